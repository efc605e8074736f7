package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"litqa/internal/model"
	"litqa/internal/pkg/answerfmt"
)

// StageModels selects the model id used by each stage.
type StageModels struct {
	Main string
	Deep string
	Code string
}

// HistoryErrorObserver counts dropped history writes.
type HistoryErrorObserver interface {
	ObserveHistoryAppendError()
}

type QAService struct {
	retriever  *Retriever
	pipeline   *FusionPipeline
	history    *HistoryService
	classifier *CodeIntentClassifier
	models     StageModels
	observer   HistoryErrorObserver
	logger     *zap.Logger
}

// DocumentAnswer is the result of a question about one named document.
type DocumentAnswer struct {
	Answer     string   `json:"answer"`
	References []string `json:"references"`
}

func NewQAService(
	retriever *Retriever,
	pipeline *FusionPipeline,
	history *HistoryService,
	classifier *CodeIntentClassifier,
	models StageModels,
	observer HistoryErrorObserver,
	logger *zap.Logger,
) *QAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if models.Deep == "" {
		models.Deep = models.Main
	}
	if models.Code == "" {
		models.Code = models.Main
	}
	return &QAService{
		retriever:  retriever,
		pipeline:   pipeline,
		history:    history,
		classifier: classifier,
		models:     models,
		observer:   observer,
		logger:     logger,
	}
}

// Ask answers from the whole knowledge base: deep analysis, main answer and,
// for programming questions, a code solution.
func (s *QAService) Ask(ctx context.Context, userID uint, question string) (*FusionResult, error) {
	question = strings.TrimSpace(question)
	if userID == 0 || question == "" {
		return nil, ErrInvalidInput
	}

	retrieved, err := s.retriever.BuildContext(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	in := StageInput{Question: question, Context: retrieved}
	out := s.pipeline.Run(ctx, s.knowledgeBaseStages(), in)

	result := &FusionResult{
		MainAnswer:   out[StageMainAnswer].Text,
		DeepAnalysis: out[StageDeepAnalysis].Text,
		CodeSolution: out[StageCode].Text,
	}
	result.References = answerfmt.ExtractReferences(result.MainAnswer, retrieved.Documents)

	s.record(ctx, userID, question, result.CompositeAnswer(), result.References)
	return result, nil
}

// AskAboutDocument answers from a single named document, which is always the
// only reference.
func (s *QAService) AskAboutDocument(ctx context.Context, userID uint, name, question string) (*DocumentAnswer, error) {
	question = strings.TrimSpace(question)
	name = strings.TrimSpace(name)
	if userID == 0 || question == "" || name == "" {
		return nil, ErrInvalidInput
	}

	retrieved, err := s.retriever.BuildContext(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	stage := Stage{
		Name:        StageMainAnswer,
		Model:       s.models.Main,
		Kind:        answerfmt.KindMain,
		Placeholder: MainAnswerPlaceholder,
		Prompt:      singleDocumentPrompt,
	}
	out := s.pipeline.Run(ctx, []Stage{stage}, StageInput{Question: question, Context: retrieved})

	result := &DocumentAnswer{
		Answer:     out[StageMainAnswer].Text,
		References: []string{name},
	}
	s.record(ctx, userID, question, result.Answer, result.References)
	return result, nil
}

func (s *QAService) GetHistory(ctx context.Context, userID uint) ([]model.QARecord, error) {
	return s.history.List(ctx, userID)
}

func (s *QAService) knowledgeBaseStages() []Stage {
	return []Stage{
		{
			Name:        StageDeepAnalysis,
			Model:       s.models.Deep,
			Kind:        answerfmt.KindDeepAnalysis,
			Placeholder: DeepAnalysisPlaceholder,
			Prompt:      deepAnalysisPrompt,
		},
		{
			Name:        StageMainAnswer,
			Model:       s.models.Main,
			Kind:        answerfmt.KindMain,
			Placeholder: MainAnswerPlaceholder,
			Prompt:      mainAnswerPrompt,
		},
		{
			Name:        StageCode,
			Model:       s.models.Code,
			Kind:        answerfmt.KindCode,
			Placeholder: CodeSolutionPlaceholder,
			Prompt:      codeSolutionPrompt,
			When: func(in StageInput) bool {
				return s.classifier.IsCodeQuestion(in.Question)
			},
		},
	}
}

// record persists the exchange. Failures are logged and never reach the caller.
func (s *QAService) record(ctx context.Context, userID uint, question, answer string, refs []string) {
	rec := &model.QARecord{
		UserID:     userID,
		Question:   question,
		Answer:     answer,
		References: append([]string{}, refs...),
	}
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Error("save qa history failed", zap.Uint("user_id", userID), zap.Error(err))
		if s.observer != nil {
			s.observer.ObserveHistoryAppendError()
		}
	}
}
