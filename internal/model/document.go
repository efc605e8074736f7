package model

import "time"

// Document is one extracted-text file in a user's knowledge base, keyed by
// (owner, Name). Content is only populated by reads.
type Document struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Content    string    `json:"content,omitempty"`
}
