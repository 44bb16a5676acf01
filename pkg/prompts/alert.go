package prompts

import (
	"fmt"
	"strings"

	"github.com/helmcode/riskctl/pkg/model"
)

// BuildAlertPrompt asks for a short guardian alert grounded on the
// student's recent risk history. latest may be nil when the alert is sent
// without a fresh prediction.
func BuildAlertPrompt(studentID string, points []model.RiskHistoryPoint, latest *model.PredictionResult) string {
	var trend strings.Builder
	if len(points) == 0 {
		trend.WriteString("(no history recorded)\n")
	}
	for _, p := range points {
		level, ok := model.RiskLevelFromOrdinal(p.OrdinalRisk)
		if !ok {
			continue
		}
		fmt.Fprintf(&trend, "- %s: %s\n", p.Timestamp, level)
	}

	var current string
	if latest != nil {
		current = fmt.Sprintf(`
Latest prediction:
- risk level: %s
- confidence: %s
- recommended action: %s
- reasons: %s
`, latest.RiskLevel, latest.ConfidencePercent(), latest.RecommendedAction, strings.Join(latest.Reasons, "; "))
	}

	return fmt.Sprintf(`You are assisting a school teacher who needs to notify a student's guardian about academic risk.

Student ID: %s

Risk history (oldest first):
%s%s
Write a short, respectful message (at most 80 words) from the teacher to the guardian.
Do not invent grades or facts that are not listed above. Suggest one concrete next step.

Respond in JSON format with this structure:
{
  "message": "the text to send",
  "urgency": "Low|Medium|High"
}`, studentID, trend.String(), current)
}
