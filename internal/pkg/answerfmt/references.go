package answerfmt

import "strings"

// ExtractReferences returns the names from docs that occur anywhere in answer,
// compared case-insensitively. The result keeps the order of docs, holds each
// name once, and is never nil.
func ExtractReferences(answer string, docs []string) []string {
	refs := make([]string, 0)
	if answer == "" || len(docs) == 0 {
		return refs
	}

	haystack := strings.ToLower(answer)
	seen := make(map[string]struct{}, len(docs))
	for _, name := range docs {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(name)) {
			seen[name] = struct{}{}
			refs = append(refs, name)
		}
	}
	return refs
}
