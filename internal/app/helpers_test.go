package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"litqa/internal/model"
	"litqa/internal/repository"
)

const (
	testMainModel = "main-model"
	testDeepModel = "deep-model"
	testCodeModel = "code-model"
)

// stubGenerator answers per model and records every call.
type stubGenerator struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string

	replies map[string]string
	errs    map[string]error
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{
		calls:   make(map[string]int),
		prompts: make(map[string][]string),
		replies: map[string]string{
			testMainModel: "see [paper1] for details",
			testDeepModel: "## Problem Analysis\nThe question is about X.",
			testCodeModel: "```go\nfunc bubbleSort(xs []int) {}\n```",
		},
		errs: make(map[string]error),
	}
}

func (g *stubGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[model]++
	g.prompts[model] = append(g.prompts[model], prompt)
	if err := g.errs[model]; err != nil {
		return "", err
	}
	return g.replies[model], nil
}

func (g *stubGenerator) callCount(model string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[model]
}

func (g *stubGenerator) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *stubGenerator) lastPrompt(model string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.prompts[model]
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

type stageCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *stageCounter) ObserveStage(stage, outcome string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[stage+"/"+outcome]++
}

func (c *stageCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

type failingHistoryStore struct {
	appends int
}

func (f *failingHistoryStore) Append(ctx context.Context, record *model.QARecord) error {
	f.appends++
	return errors.New("disk full")
}

func (f *failingHistoryStore) List(ctx context.Context, userID uint) ([]model.QARecord, error) {
	return []model.QARecord{}, nil
}

type qaFixture struct {
	base     string
	docs     *repository.FileDocumentRepository
	history  *repository.FileHistoryRepository
	gen      *stubGenerator
	stages   *stageCounter
	service  *QAService
	keywords []string
}

func newQAFixture(t *testing.T, capacity int) *qaFixture {
	t.Helper()
	base := t.TempDir()
	f := &qaFixture{
		base:     base,
		docs:     repository.NewFileDocumentRepository(base),
		history:  repository.NewFileHistoryRepository(base, capacity),
		gen:      newStubGenerator(),
		stages:   &stageCounter{},
		keywords: []string{"implement", "algorithm", "code", "实现"},
	}
	f.service = f.build(t, f.history)
	return f
}

func (f *qaFixture) build(t *testing.T, store HistoryStore) *QAService {
	logger := zaptest.NewLogger(t)
	return NewQAService(
		NewRetriever(f.docs, 0, 0),
		NewFusionPipeline(f.gen, f.stages, logger),
		NewHistoryService(store, nil, nil, logger),
		NewCodeIntentClassifier(f.keywords),
		StageModels{Main: testMainModel, Deep: testDeepModel, Code: testCodeModel},
		nil,
		logger,
	)
}

func (f *qaFixture) addDocument(t *testing.T, userID uint, name, content string, age time.Duration) {
	t.Helper()
	_, err := f.docs.Save(context.Background(), userID, name, content)
	require.NoError(t, err)
	if age > 0 {
		mod := time.Now().Add(-age)
		path := filepath.Join(f.base, strconv.FormatUint(uint64(userID), 10), "documents", name+".txt")
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
