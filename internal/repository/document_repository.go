package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"litqa/internal/model"
)

const (
	documentExt        = ".txt"
	documentsDirName   = "documents"
	maxDocumentNameLen = 200
)

var ErrInvalidDocumentName = errors.New("invalid document name")

// ValidateDocumentName rejects names that cannot be used as a single path
// element or object key segment.
func ValidateDocumentName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name || len(name) > maxDocumentNameLen {
		return ErrInvalidDocumentName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidDocumentName
	}
	return nil
}

// FileDocumentRepository keeps each document as <base>/<user>/documents/<name>.txt.
type FileDocumentRepository struct {
	baseDir string
}

func NewFileDocumentRepository(baseDir string) *FileDocumentRepository {
	return &FileDocumentRepository{baseDir: baseDir}
}

func (r *FileDocumentRepository) userDir(userID uint) string {
	return filepath.Join(r.baseDir, strconv.FormatUint(uint64(userID), 10), documentsDirName)
}

func (r *FileDocumentRepository) documentPath(userID uint, name string) string {
	return filepath.Join(r.userDir(userID), name+documentExt)
}

// List returns document metadata, most recently modified first.
func (r *FileDocumentRepository) List(ctx context.Context, userID uint) ([]model.Document, error) {
	entries, err := os.ReadDir(r.userDir(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Document{}, nil
		}
		return nil, fmt.Errorf("list documents failed: %w", err)
	}

	docs := make([]model.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), documentExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat document failed: %w", err)
		}
		docs = append(docs, model.Document{
			Name:       strings.TrimSuffix(entry.Name(), documentExt),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	sortNewestFirst(docs)
	return docs, nil
}

// Get returns the document with its content, or nil when it does not exist.
func (r *FileDocumentRepository) Get(ctx context.Context, userID uint, name string) (*model.Document, error) {
	if err := ValidateDocumentName(name); err != nil {
		return nil, nil
	}
	path := r.documentPath(userID, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat document failed: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read document failed: %w", err)
	}
	return &model.Document{
		Name:       name,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		Content:    string(raw),
	}, nil
}

// Save writes the document, replacing any previous content under the same name.
func (r *FileDocumentRepository) Save(ctx context.Context, userID uint, name, content string) (*model.Document, error) {
	if err := ValidateDocumentName(name); err != nil {
		return nil, err
	}
	dir := r.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir failed: %w", err)
	}

	path := r.documentPath(userID, name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return nil, fmt.Errorf("write document failed: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document failed: %w", err)
	}
	return &model.Document{Name: name, Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

// Delete removes the document and reports whether it existed.
func (r *FileDocumentRepository) Delete(ctx context.Context, userID uint, name string) (bool, error) {
	if err := ValidateDocumentName(name); err != nil {
		return false, nil
	}
	if err := os.Remove(r.documentPath(userID, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete document failed: %w", err)
	}
	return true, nil
}

func sortNewestFirst(docs []model.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].ModifiedAt.Equal(docs[j].ModifiedAt) {
			return docs[i].Name < docs[j].Name
		}
		return docs[i].ModifiedAt.After(docs[j].ModifiedAt)
	})
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
