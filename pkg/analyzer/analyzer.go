package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/history"
	"github.com/helmcode/riskctl/pkg/llm"
	"github.com/helmcode/riskctl/pkg/model"
	"github.com/helmcode/riskctl/pkg/parser"
	"github.com/helmcode/riskctl/pkg/prompts"
)

// Analyzer drafts guardian alerts from a student's risk history.
type Analyzer struct {
	llm llm.LLM
}

func NewFromEnv(provider, model string) (*Analyzer, error) {
	llmInstance, err := llm.CreateFromEnv(provider, model)
	if err != nil {
		return nil, err
	}
	return &Analyzer{llm: llmInstance}, nil
}

func NewWithLLM(l llm.LLM) *Analyzer {
	return &Analyzer{llm: l}
}

// Describe names the backing provider and model, e.g. "claude (claude-sonnet-4-20250514)".
func (a *Analyzer) Describe() string {
	return fmt.Sprintf("%s (%s)", a.llm.Provider(), a.llm.Model())
}

// DraftAlert loads the student's history and asks the model for a message.
// Data-quality problems in the history do not stop the draft. latest may be nil.
func (a *Analyzer) DraftAlert(ctx context.Context, src history.Source, n history.Normalizer, studentID string, latest *model.PredictionResult) (model.AlertDraft, error) {
	points, err := history.Load(ctx, src, studentID, n)
	var quality *history.DataQualityError
	if err != nil && !errors.As(err, &quality) {
		return model.AlertDraft{}, err
	}

	rawResp, err := a.llm.Chat(ctx, prompts.BuildAlertPrompt(studentID, points, latest))
	if err != nil {
		return model.AlertDraft{}, fmt.Errorf("LLM chat: %w", err)
	}

	draft := parser.ParseAlertDraft(rawResp)
	log.WithFields(log.Fields{
		"student_id": studentID,
		"points":     len(points),
		"urgency":    draft.Urgency,
	}).Debug("alert drafted")
	return draft, nil
}
