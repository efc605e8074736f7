package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"litqa/internal/model"
	"litqa/internal/pkg/textextract"
	"litqa/internal/repository"
)

var ErrUnsupportedUpload = errors.New("unsupported upload")

type DocumentService struct {
	docs   DocumentStore
	logger *zap.Logger
}

type UploadInput struct {
	UserID   uint
	Filename string
	// Name overrides the document name derived from Filename.
	Name   string
	Format textextract.Format
	Body   io.Reader
}

func NewDocumentService(docs DocumentStore, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{docs: docs, logger: logger}
}

func (s *DocumentService) List(ctx context.Context, userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.List(ctx, userID)
}

func (s *DocumentService) Get(ctx context.Context, userID uint, name string) (*model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docs.Get(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// SaveText stores already extracted text under name, replacing any document
// with the same name.
func (s *DocumentService) SaveText(ctx context.Context, userID uint, name, content string) (*model.Document, error) {
	name = strings.TrimSpace(name)
	if userID == 0 || strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}
	if err := repository.ValidateDocumentName(name); err != nil {
		return nil, ErrInvalidInput
	}
	doc, err := s.docs.Save(ctx, userID, name, content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document saved", zap.Uint("user_id", userID), zap.String("name", name), zap.Int64("size", doc.Size))
	return doc, nil
}

// Upload extracts text from a PDF, CSV, Markdown or text file and stores it.
// Without an explicit format it is detected from the file extension.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == 0 || input.Body == nil {
		return nil, ErrInvalidInput
	}
	format := input.Format
	if format == "" {
		detected, err := textextract.DetectFormat(input.Filename)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedUpload, err)
		}
		format = detected
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		base := filepath.Base(strings.ReplaceAll(input.Filename, `\`, "/"))
		name = strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	text, err := textextract.Extract(input.Body, format)
	if err != nil {
		s.logger.Warn("extract upload failed", zap.String("filename", input.Filename), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedUpload, err)
	}
	return s.SaveText(ctx, input.UserID, name, text)
}

func (s *DocumentService) Delete(ctx context.Context, userID uint, name string) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.docs.Delete(ctx, userID, name)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrDocumentNotFound
	}
	s.logger.Info("document deleted", zap.Uint("user_id", userID), zap.String("name", name))
	return nil
}
