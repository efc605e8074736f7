package repository

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litqa/internal/model"
)

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	s := bufio.NewScanner(f)
	for s.Scan() {
		n++
	}
	return n
}

func TestFileHistoryRepositoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewFileHistoryRepository(t.TempDir(), 100)

	records, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	require.NoError(t, repo.Append(ctx, &model.QARecord{UserID: 1, Question: "q1", Answer: "a1", References: []string{"paper1"}}))
	require.NoError(t, repo.Append(ctx, &model.QARecord{UserID: 1, Question: "q2", Answer: "a2"}))
	require.NoError(t, repo.Append(ctx, &model.QARecord{UserID: 2, Question: "other", Answer: "x"}))

	records, err = repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q1", records[0].Question)
	assert.Equal(t, []string{"paper1"}, records[0].References)
	assert.Equal(t, "q2", records[1].Question)
	assert.Equal(t, []string{}, records[1].References)
	assert.False(t, records[0].CreatedAt.IsZero())
	assert.Less(t, records[0].ID, records[1].ID)
}

func TestFileHistoryRepositoryKeepsNewestWithinCapacity(t *testing.T) {
	ctx := context.Background()
	repo := NewFileHistoryRepository(t.TempDir(), 100)

	for i := 0; i < 250; i++ {
		require.NoError(t, repo.Append(ctx, &model.QARecord{UserID: 3, Question: fmt.Sprintf("q%d", i)}))

		if i%37 == 0 {
			records, err := repo.List(ctx, 3)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(records), 100)
		}
	}

	records, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 100)
	assert.Equal(t, "q150", records[0].Question)
	assert.Equal(t, "q249", records[99].Question)

	assert.Less(t, countLines(t, repo.historyPath(3)), 200)
}

func TestFileHistoryRepositoryReloadsAfterRestart(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	first := NewFileHistoryRepository(base, 5)
	for i := 0; i < 7; i++ {
		require.NoError(t, first.Append(ctx, &model.QARecord{UserID: 1, Question: fmt.Sprintf("q%d", i)}))
	}

	second := NewFileHistoryRepository(base, 5)
	for i := 7; i < 12; i++ {
		require.NoError(t, second.Append(ctx, &model.QARecord{UserID: 1, Question: fmt.Sprintf("q%d", i)}))
	}

	records, err := second.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "q7", records[0].Question)
	assert.Equal(t, "q11", records[4].Question)
	assert.EqualValues(t, 12, records[4].ID)
	assert.Less(t, countLines(t, second.historyPath(1)), 10)
}

func TestFileHistoryRepositorySkipsTornLine(t *testing.T) {
	ctx := context.Background()
	repo := NewFileHistoryRepository(t.TempDir(), 10)
	require.NoError(t, repo.Append(ctx, &model.QARecord{UserID: 1, Question: "ok"}))

	f, err := os.OpenFile(repo.historyPath(1), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"question":"tor`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].Question)
}

func TestFileHistoryRepositoryConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewFileHistoryRepository(t.TempDir(), 100)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				assert.NoError(t, repo.Append(ctx, &model.QARecord{UserID: 9, Question: fmt.Sprintf("w%d-%d", w, i)}))
			}
		}(w)
	}
	wg.Wait()

	records, err := repo.List(ctx, 9)
	require.NoError(t, err)
	require.Len(t, records, 100)

	seen := make(map[uint]bool, len(records))
	for i, rec := range records {
		assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
		if i > 0 {
			assert.Equal(t, records[i-1].ID+1, rec.ID)
		}
	}
	assert.EqualValues(t, 320, records[99].ID)
}
