package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"litqa/internal/model"
)

type memoryAppender struct {
	mu      sync.Mutex
	records []model.QARecord
	err     error
}

func (m *memoryAppender) Append(ctx context.Context, record *model.QARecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *record)
	return nil
}

func TestHistoryPersistWorkerHandle(t *testing.T) {
	store := &memoryAppender{}
	w := NewHistoryPersistWorker(nil, store, "qa.history.persist", zaptest.NewLogger(t))

	var persistedFor uint
	w.OnPersisted = func(ctx context.Context, userID uint) { persistedFor = userID }

	body, err := json.Marshal(model.QARecord{UserID: 5, Question: "q", Answer: "a", References: []string{"paper1"}})
	require.NoError(t, err)

	require.NoError(t, w.Handle(context.Background(), body))
	require.Len(t, store.records, 1)
	assert.Equal(t, "q", store.records[0].Question)
	assert.Equal(t, []string{"paper1"}, store.records[0].References)
	assert.EqualValues(t, 5, persistedFor)
}

func TestHistoryPersistWorkerHandleRejectsBadPayload(t *testing.T) {
	store := &memoryAppender{}
	w := NewHistoryPersistWorker(nil, store, "q", zaptest.NewLogger(t))

	assert.Error(t, w.Handle(context.Background(), []byte("{")))
	assert.Error(t, w.Handle(context.Background(), []byte(`{"question":"no user"}`)))
	assert.Empty(t, store.records)
}

func TestHistoryPersistWorkerHandleStoreError(t *testing.T) {
	store := &memoryAppender{err: errors.New("disk full")}
	w := NewHistoryPersistWorker(nil, store, "q", zaptest.NewLogger(t))
	called := false
	w.OnPersisted = func(ctx context.Context, userID uint) { called = true }

	err := w.Handle(context.Background(), []byte(`{"user_id":1,"question":"q"}`))
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, called)
}
