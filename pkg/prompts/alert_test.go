package prompts

import (
	"testing"

	"github.com/helmcode/riskctl/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildAlertPromptIncludesHistory(t *testing.T) {
	points := []model.RiskHistoryPoint{
		{Timestamp: "09:00:00", OrdinalRisk: 1},
		{Timestamp: "10:00:00", OrdinalRisk: 3},
	}
	latest := &model.PredictionResult{
		RiskLevel:         model.RiskHigh,
		Confidence:        0.87,
		RecommendedAction: "Schedule a meeting",
		Reasons:           []string{"low attendance", "missed assignments"},
	}

	p := BuildAlertPrompt("S-42", points, latest)

	assert.Contains(t, p, "Student ID: S-42")
	assert.Contains(t, p, "- 09:00:00: Low\n- 10:00:00: High\n")
	assert.Contains(t, p, "confidence: 87%")
	assert.Contains(t, p, "reasons: low attendance; missed assignments")
}

func TestBuildAlertPromptWithoutHistory(t *testing.T) {
	p := BuildAlertPrompt("S-1", nil, nil)

	assert.Contains(t, p, "(no history recorded)")
	assert.NotContains(t, p, "Latest prediction")
}
