package app

import (
	"context"
	"errors"
	"strings"

	"litqa/internal/model"
)

const (
	DefaultKnowledgeBaseDocChars = 2000
	DefaultSingleDocChars        = 3000
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore is the per-user document repository behind retrieval and the
// document endpoints.
type DocumentStore interface {
	List(ctx context.Context, userID uint) ([]model.Document, error)
	Get(ctx context.Context, userID uint, name string) (*model.Document, error)
	Save(ctx context.Context, userID uint, name, content string) (*model.Document, error)
	Delete(ctx context.Context, userID uint, name string) (bool, error)
}

// RetrievedContext is the grounding text for one question plus the names of
// the documents it was built from.
type RetrievedContext struct {
	Text      string
	Documents []string
}

func (r *RetrievedContext) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Retriever assembles context linearly from every stored document, or from one
// named document.
type Retriever struct {
	docs           DocumentStore
	kbDocChars     int
	singleDocChars int
}

func NewRetriever(docs DocumentStore, kbDocChars, singleDocChars int) *Retriever {
	if kbDocChars <= 0 {
		kbDocChars = DefaultKnowledgeBaseDocChars
	}
	if singleDocChars <= 0 {
		singleDocChars = DefaultSingleDocChars
	}
	return &Retriever{docs: docs, kbDocChars: kbDocChars, singleDocChars: singleDocChars}
}

// BuildContext uses the whole knowledge base when target is empty. A named
// target that does not exist yields ErrDocumentNotFound.
func (r *Retriever) BuildContext(ctx context.Context, userID uint, target string) (*RetrievedContext, error) {
	if target != "" {
		return r.single(ctx, userID, target)
	}

	listed, err := r.docs.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(listed))
	sections := make([]string, 0, len(listed))
	for _, meta := range listed {
		doc, err := r.docs.Get(ctx, userID, meta.Name)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		names = append(names, meta.Name)
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		sections = append(sections, section(meta.Name, doc.Content, r.kbDocChars))
	}
	return &RetrievedContext{Text: strings.Join(sections, "\n\n"), Documents: names}, nil
}

func (r *Retriever) single(ctx context.Context, userID uint, name string) (*RetrievedContext, error) {
	doc, err := r.docs.Get(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return &RetrievedContext{
		Text:      section(name, doc.Content, r.singleDocChars),
		Documents: []string{name},
	}, nil
}

func section(name, content string, limit int) string {
	return "Document: " + name + "\n" + truncateRunes(content, limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
