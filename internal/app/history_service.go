package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"litqa/internal/model"
)

// HistoryStore is a bounded per-user QA log. List returns oldest first.
type HistoryStore interface {
	Append(ctx context.Context, record *model.QARecord) error
	List(ctx context.Context, userID uint) ([]model.QARecord, error)
}

// HistoryPublisher hands records to the asynchronous persist worker.
type HistoryPublisher interface {
	Publish(ctx context.Context, record model.QARecord) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.QARecord, bool, error)
	SetHistory(ctx context.Context, userID uint, records []model.QARecord) error
	Invalidate(ctx context.Context, userID uint) error
	ClearDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

// HistoryService fronts the history store with an optional queue and an
// optional read cache. Publisher and cache may be nil.
type HistoryService struct {
	store     HistoryStore
	publisher HistoryPublisher
	cache     HistoryCache
	logger    *zap.Logger
}

func NewHistoryService(store HistoryStore, publisher HistoryPublisher, cache HistoryCache, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

// Record appends one QA record. With a publisher the write is queued and
// falls back to a direct append if publishing fails.
func (s *HistoryService) Record(ctx context.Context, record *model.QARecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.References == nil {
		record.References = []string{}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, record.UserID); err != nil {
			s.logger.Warn("invalidate history cache failed", zap.Uint("user_id", record.UserID), zap.Error(err))
		}
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, *record)
		if err == nil {
			return nil
		}
		s.logger.Warn("enqueue history record failed, appending directly", zap.Uint("user_id", record.UserID), zap.Error(err))
	}

	if err := s.store.Append(ctx, record); err != nil {
		return err
	}
	s.Persisted(ctx, record.UserID)
	return nil
}

// Persisted clears the dirty marker once a record is in the store.
func (s *HistoryService) Persisted(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ClearDirty(ctx, userID); err != nil {
		s.logger.Warn("clear history dirty marker failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *HistoryService) List(ctx context.Context, userID uint) ([]model.QARecord, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	records, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, userID); err == nil && !dirty {
			if err := s.cache.SetHistory(ctx, userID, records); err != nil {
				s.logger.Debug("set history cache failed", zap.Uint("user_id", userID), zap.Error(err))
			}
		}
	}
	return records, nil
}
