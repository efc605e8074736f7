package app

import "strings"

// CodeIntentClassifier decides whether a question asks for code. It is a
// plain case-insensitive substring test against a configurable keyword list.
type CodeIntentClassifier struct {
	keywords []string
}

func NewCodeIntentClassifier(keywords []string) *CodeIntentClassifier {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &CodeIntentClassifier{keywords: normalized}
}

func (c *CodeIntentClassifier) IsCodeQuestion(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range c.keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
