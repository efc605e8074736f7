package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"litqa/internal/ai"
	"litqa/internal/pkg/answerfmt"
)

const (
	StageDeepAnalysis = "deep_analysis"
	StageMainAnswer   = "main_answer"
	StageCode         = "code"
)

const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Generator is the single text generation capability every stage runs on.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// StageObserver receives one call per stage run.
type StageObserver interface {
	ObserveStage(stage, outcome string, duration time.Duration)
}

// StageInput is what a stage prompt is built from.
type StageInput struct {
	Question string
	Context  *RetrievedContext
}

// Stage is one named generation call. When When is nil the stage always runs.
// A failed or empty call yields Placeholder, or the failure's user-facing
// message when the client classified it.
type Stage struct {
	Name        string
	Model       string
	Kind        answerfmt.Kind
	Placeholder string
	Prompt      func(in StageInput) string
	When        func(in StageInput) bool
}

type StageOutput struct {
	Text    string
	Ran     bool
	Failed  bool
	Elapsed time.Duration
}

// FusionResult is the merged answer of one question.
type FusionResult struct {
	MainAnswer   string   `json:"answer"`
	DeepAnalysis string   `json:"analysis"`
	CodeSolution string   `json:"code"`
	References   []string `json:"references"`
}

// CompositeAnswer flattens the result into the text stored in history.
func (r *FusionResult) CompositeAnswer() string {
	var b strings.Builder
	b.WriteString(r.MainAnswer)
	if r.DeepAnalysis != "" {
		b.WriteString("\n\n[Deep Analysis]: ")
		b.WriteString(r.DeepAnalysis)
	}
	if r.CodeSolution != "" {
		b.WriteString("\n\n[Code Solution]: ")
		b.WriteString(r.CodeSolution)
	}
	return b.String()
}

// FusionPipeline runs independent stages concurrently. Stages never fail the
// run; each failure is folded into that stage's text.
type FusionPipeline struct {
	generator Generator
	observer  StageObserver
	logger    *zap.Logger
}

func NewFusionPipeline(generator Generator, observer StageObserver, logger *zap.Logger) *FusionPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FusionPipeline{generator: generator, observer: observer, logger: logger}
}

// Run returns one output per stage, keyed by stage name.
func (p *FusionPipeline) Run(ctx context.Context, stages []Stage, in StageInput) map[string]StageOutput {
	outputs := make([]StageOutput, len(stages))

	var g errgroup.Group
	for i := range stages {
		stage := stages[i]
		if stage.When != nil && !stage.When(in) {
			p.observe(stage.Name, OutcomeSkipped, 0)
			continue
		}
		g.Go(func() error {
			outputs[i] = p.runStage(ctx, stage, in)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]StageOutput, len(stages))
	for i, stage := range stages {
		results[stage.Name] = outputs[i]
	}
	return results
}

func (p *FusionPipeline) runStage(ctx context.Context, stage Stage, in StageInput) StageOutput {
	start := time.Now()
	text, err := p.generator.Generate(ctx, stage.Model, stage.Prompt(in))
	elapsed := time.Since(start)

	out := StageOutput{Ran: true, Elapsed: elapsed}
	switch {
	case err != nil:
		out.Failed = true
		text = stage.Placeholder
		if msg, ok := ai.FailureMessage(err); ok && msg != "" {
			text = msg
		}
		p.logger.Warn("generation stage failed",
			zap.String("stage", stage.Name),
			zap.String("model", stage.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		p.observe(stage.Name, OutcomeFailed, elapsed)
	case strings.TrimSpace(text) == "":
		text = stage.Placeholder
		p.observe(stage.Name, OutcomeOK, elapsed)
	default:
		p.logger.Debug("generation stage done",
			zap.String("stage", stage.Name),
			zap.Duration("elapsed", elapsed),
			zap.Int("chars", len(text)),
		)
		p.observe(stage.Name, OutcomeOK, elapsed)
	}

	out.Text = answerfmt.Format(text, stage.Kind)
	return out
}

func (p *FusionPipeline) observe(stage, outcome string, d time.Duration) {
	if p.observer != nil {
		p.observer.ObserveStage(stage, outcome, d)
	}
}
