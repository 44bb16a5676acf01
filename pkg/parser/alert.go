package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/helmcode/riskctl/pkg/model"
)

var fences = regexp.MustCompile("```[a-zA-Z]*\n|```")

// ParseAlertDraft reads the assistant's reply. A reply that is not the
// requested JSON is used verbatim as the message.
func ParseAlertDraft(raw string) model.AlertDraft {
	cleaned := stripFences(raw)

	var draft model.AlertDraft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil || strings.TrimSpace(draft.Message) == "" {
		return model.AlertDraft{Message: cleaned, Urgency: model.RiskMedium}
	}
	draft.Message = strings.TrimSpace(draft.Message)
	if _, ok := draft.Urgency.Ordinal(); !ok {
		draft.Urgency = model.RiskMedium
	}
	return draft
}

// stripFences removes markdown code fences such as ```json ... ```
func stripFences(text string) string {
	return strings.TrimSpace(fences.ReplaceAllString(text, ""))
}
