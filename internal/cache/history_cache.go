package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"litqa/internal/model"
)

// HistoryCache caches a user's QA log in Redis. A short-lived dirty marker is
// set on every append so readers bypass a cached list that may be stale until
// the write has landed in the backing store.
type HistoryCache struct {
	client         redisv9.Cmdable
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client redisv9.Cmdable, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, userID uint) ([]model.QARecord, bool, error) {
	raw, err := c.client.Get(ctx, historyKey(userID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var records []model.QARecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return records, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, userID uint, records []model.QARecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(userID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// Invalidate marks the user's log dirty and drops the cached copy in one
// round trip.
func (c *HistoryCache) Invalidate(ctx context.Context, userID uint) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, dirtyKey(userID), "1", c.dirtyMarkerTTL)
		pipe.Del(ctx, historyKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

// ClearDirty is called once the backing store holds the appended record.
func (c *HistoryCache) ClearDirty(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, dirtyKey(userID), historyKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis clear dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, userID uint) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func historyKey(userID uint) string {
	return fmt.Sprintf("qa:history:%d", userID)
}

func dirtyKey(userID uint) string {
	return fmt.Sprintf("qa:history:dirty:%d", userID)
}
