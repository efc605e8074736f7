package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"litqa/internal/model"
	"litqa/internal/repository"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[uint][]model.QARecord
	dirty   map[uint]bool
	gets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[uint][]model.QARecord), dirty: make(map[uint]bool)}
}

func (c *memoryCache) GetHistory(ctx context.Context, userID uint) ([]model.QARecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	records, ok := c.entries[userID]
	return records, ok, nil
}

func (c *memoryCache) SetHistory(ctx context.Context, userID uint, records []model.QARecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = records
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[userID] = true
	delete(c.entries, userID)
	return nil
}

func (c *memoryCache) ClearDirty(ctx context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dirty, userID)
	delete(c.entries, userID)
	return nil
}

func (c *memoryCache) IsDirty(ctx context.Context, userID uint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty[userID], nil
}

type queuePublisher struct {
	queued []model.QARecord
	err    error
}

func (p *queuePublisher) Publish(ctx context.Context, record model.QARecord) error {
	if p.err != nil {
		return p.err
	}
	p.queued = append(p.queued, record)
	return nil
}

func TestHistoryServiceCachesReads(t *testing.T) {
	ctx := context.Background()
	store := repository.NewFileHistoryRepository(t.TempDir(), 100)
	cache := newMemoryCache()
	s := NewHistoryService(store, nil, cache, zaptest.NewLogger(t))

	require.NoError(t, s.Record(ctx, &model.QARecord{UserID: 1, Question: "q1"}))
	assert.False(t, cache.dirty[1], "sync append clears the marker")

	records, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, cache.entries, uint(1))

	require.NoError(t, s.Record(ctx, &model.QARecord{UserID: 1, Question: "q2"}))
	assert.NotContains(t, cache.entries, uint(1), "append drops the cached list")

	records, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q2", records[1].Question)
	assert.Equal(t, []string{}, records[1].References)
}

func TestHistoryServiceQueuesWhenPublisherSet(t *testing.T) {
	ctx := context.Background()
	store := repository.NewFileHistoryRepository(t.TempDir(), 100)
	cache := newMemoryCache()
	pub := &queuePublisher{}
	s := NewHistoryService(store, pub, cache, zaptest.NewLogger(t))

	require.NoError(t, s.Record(ctx, &model.QARecord{UserID: 3, Question: "queued"}))
	require.Len(t, pub.queued, 1)
	assert.False(t, pub.queued[0].CreatedAt.IsZero())
	assert.True(t, cache.dirty[3], "marker stays until the worker persists")

	records, err := s.List(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotContains(t, cache.entries, uint(3), "dirty lists are not cached")

	rec := pub.queued[0]
	require.NoError(t, store.Append(ctx, &rec))
	s.Persisted(ctx, 3)

	records, err = s.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "queued", records[0].Question)
}

func TestHistoryServiceFallsBackWhenPublishFails(t *testing.T) {
	ctx := context.Background()
	store := repository.NewFileHistoryRepository(t.TempDir(), 100)
	pub := &queuePublisher{err: errors.New("broker down")}
	s := NewHistoryService(store, pub, nil, zaptest.NewLogger(t))

	require.NoError(t, s.Record(ctx, &model.QARecord{UserID: 4, Question: "direct"}))
	records, err := s.List(ctx, 4)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestHistoryServiceRejectsAnonymousList(t *testing.T) {
	s := NewHistoryService(&failingHistoryStore{}, nil, nil, nil)
	_, err := s.List(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
