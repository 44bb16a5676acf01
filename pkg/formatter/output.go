package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/helmcode/riskctl/pkg/analytics"
	"github.com/helmcode/riskctl/pkg/client"
	"github.com/helmcode/riskctl/pkg/history"
	"github.com/helmcode/riskctl/pkg/model"
	"gopkg.in/yaml.v3"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const noHistory = "No historical data available for this student."

// ValidateFormat rejects anything other than human, json or yaml.
func ValidateFormat(format string) error {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (supported: human, json, yaml)", format)
	}
}

// display writes v as JSON or YAML, or calls human for the default format.
func display(w io.Writer, format string, v interface{}, human func()) error {
	switch format {
	case FormatJSON:
		return displayJSON(w, v)
	case FormatYAML:
		return displayYAML(w, v)
	case FormatHuman:
		fallthrough
	default:
		human()
	}
	return nil
}

func displayJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}

func displayYAML(w io.Writer, v interface{}) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(output))
	return nil
}

type predictionView struct {
	StudentID         string          `json:"student_id" yaml:"student_id"`
	RiskLevel         model.RiskLevel `json:"risk_level" yaml:"risk_level"`
	Confidence        float64         `json:"confidence" yaml:"confidence"`
	ConfidencePercent string          `json:"confidence_percent" yaml:"confidence_percent"`
	RecommendedAction string          `json:"recommended_action" yaml:"recommended_action"`
	Reasons           []string        `json:"reasons" yaml:"reasons"`
	Endpoint          string          `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// DisplayPrediction renders a prediction result. endpoint is the URL that
// answered and may be empty.
func DisplayPrediction(w io.Writer, result *model.PredictionResult, endpoint, format string) error {
	reasons := result.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	v := predictionView{
		StudentID:         result.StudentID,
		RiskLevel:         result.RiskLevel,
		Confidence:        result.Confidence,
		ConfidencePercent: result.ConfidencePercent(),
		RecommendedAction: result.RecommendedAction,
		Reasons:           reasons,
		Endpoint:          endpoint,
	}
	return display(w, format, v, func() {
		bold := color.New(color.Bold)

		fmt.Fprintln(w)
		bold.Fprintf(w, "🎓 PREDICTION FOR %s\n", orDash(result.StudentID))
		levelColor := getRiskColor(result.RiskLevel)
		levelColor.Fprintf(w, "   %s Risk level: %s\n", getRiskIcon(result.RiskLevel), orDash(string(result.RiskLevel)))
		fmt.Fprintf(w, "   Confidence: %s\n", result.ConfidencePercent())
		if result.RecommendedAction != "" {
			fmt.Fprintf(w, "   Recommended action: %s\n", color.CyanString(result.RecommendedAction))
		}

		if len(result.Reasons) > 0 {
			fmt.Fprintln(w)
			color.New(color.FgYellow, color.Bold).Fprintln(w, "⚠️  REASONS:")
			for i, r := range result.Reasons {
				fmt.Fprintf(w, "   %d. %s\n", i+1, strings.TrimLeft(wrapText(r, 80, "      "), " "))
			}
		}

		if endpoint != "" {
			fmt.Fprintf(w, "\n   %s\n", color.HiBlackString("served by %s", endpoint))
		}
	})
}

type historyView struct {
	StudentID string                   `json:"student_id" yaml:"student_id"`
	Points    []model.RiskHistoryPoint `json:"points" yaml:"points"`
	Warning   string                   `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// DisplayHistory renders a normalized trend. quality is the data-quality
// report from the normalizer, or nil.
func DisplayHistory(w io.Writer, studentID string, points []model.RiskHistoryPoint, quality error, format string) error {
	if points == nil {
		points = []model.RiskHistoryPoint{}
	}
	v := historyView{StudentID: studentID, Points: points}
	if quality != nil {
		v.Warning = quality.Error()
	}
	return display(w, format, v, func() {
		fmt.Fprintln(w)
		color.New(color.Bold).Fprintf(w, "📈 RISK TREND FOR %s\n", orDash(studentID))

		if quality != nil {
			color.New(color.FgYellow).Fprintf(w, "   ⚠️  %s\n", quality.Error())
		}

		if len(points) == 0 {
			fmt.Fprintf(w, "   %s\n", noHistory)
			return
		}

		fmt.Fprintln(w, PlotTrend(points))
		fmt.Fprintln(w)
		for _, p := range points {
			level, _ := model.RiskLevelFromOrdinal(p.OrdinalRisk)
			getRiskColor(level).Fprintf(w, "   %s %-19s %s\n", getRiskIcon(level), p.Timestamp, level)
		}
	})
}

// PlotTrend draws the ordinal series on a fixed 1..3 axis.
func PlotTrend(points []model.RiskHistoryPoint) string {
	data := make([]float64, 0, len(points))
	for _, p := range points {
		data = append(data, float64(p.OrdinalRisk))
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(4),
		asciigraph.LowerBound(1),
		asciigraph.UpperBound(3),
		asciigraph.Precision(0),
		asciigraph.Offset(5),
		asciigraph.Caption("1=Low 2=Medium 3=High"),
	)
}

type summaryView struct {
	Phase       string                  `json:"phase" yaml:"phase"`
	Summary     *model.AnalyticsSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error       string                  `json:"error,omitempty" yaml:"error,omitempty"`
	LastUpdated *time.Time              `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

// DisplaySummary renders one state of the analytics summary view.
func DisplaySummary(w io.Writer, snap analytics.Snapshot, format string) error {
	v := summaryView{Phase: snap.Phase.String(), Summary: snap.Summary}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	if !snap.LastUpdated.IsZero() {
		t := snap.LastUpdated
		v.LastUpdated = &t
	}
	return display(w, format, v, func() {
		fmt.Fprintln(w)
		color.New(color.Bold).Fprintln(w, "📊 ANALYTICS SUMMARY")

		switch snap.Phase {
		case analytics.PhaseLoading:
			fmt.Fprintf(w, "   %s\n", color.HiBlackString("Loading analytics..."))
		case analytics.PhaseError:
			color.New(color.FgRed).Fprintf(w, "   ✗ Analytics unavailable: %v\n", snap.Err)
			fmt.Fprintf(w, "   %s\n", color.HiBlackString("Retry with: riskctl summary"))
		case analytics.PhaseReady:
			s := snap.Summary
			fmt.Fprintf(w, "   Total students: %d\n", s.Students())
			getRiskColor(model.RiskHigh).Fprintf(w, "   %s High:   %d (%d%%)\n", getRiskIcon(model.RiskHigh), s.Counts.High, s.HighShare())
			getRiskColor(model.RiskMedium).Fprintf(w, "   %s Medium: %d\n", getRiskIcon(model.RiskMedium), s.Counts.Medium)
			getRiskColor(model.RiskLow).Fprintf(w, "   %s Low:    %d\n", getRiskIcon(model.RiskLow), s.Counts.Low)

			if len(s.Rows) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "   Preview:")
				for _, r := range previewRows(s.Rows, 3) {
					fmt.Fprintf(w, "   • %s  %s\n", orDash(r.Student()), orDash(r.Level()))
				}
			}
			fmt.Fprintf(w, "\n   %s\n", color.HiBlackString("Updated %s", snap.LastUpdated.Format("15:04:05")))
		}
	})
}

func previewRows(rows []model.SummaryRow, n int) []model.SummaryRow {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

type teacherView struct {
	Summary  *model.AnalyticsSummary `json:"summary" yaml:"summary"`
	Cohorts  []model.CohortSummary   `json:"cohorts" yaml:"cohorts"`
	LoadedAt time.Time               `json:"loaded_at" yaml:"loaded_at"`
}

// DisplayTeacher renders the teacher dashboard: headline numbers, the
// cohort table and the students most often flagged High.
func DisplayTeacher(w io.Writer, view *analytics.TeacherView, format string) error {
	cohorts := view.Cohorts
	if cohorts == nil {
		cohorts = []model.CohortSummary{}
	}
	v := teacherView{Summary: view.Summary, Cohorts: cohorts, LoadedAt: view.LoadedAt}
	return display(w, format, v, func() {
		s := view.Summary
		if s == nil {
			s = &model.AnalyticsSummary{}
		}
		fmt.Fprintln(w)
		color.New(color.FgCyan, color.Bold).Fprintln(w, "🏫 TEACHER DASHBOARD")
		fmt.Fprintf(w, "   Total students: %d\n", s.Students())
		fmt.Fprintf(w, "   Avg confidence: %.0f%%\n", s.AvgConfidence*100)
		getRiskColor(model.RiskHigh).Fprintf(w, "   High risk:      %d\n", s.Counts.High)

		fmt.Fprintln(w)
		color.New(color.Bold).Fprintln(w, "📚 COHORTS:")
		if len(cohorts) == 0 {
			fmt.Fprintf(w, "   %s\n", color.HiBlackString("no cohort data"))
		} else {
			fmt.Fprintf(w, "   %-16s %6s %6s %6s  %s\n", "COHORT", "LOW", "MEDIUM", "HIGH", "TOP STUDENTS")
			for _, c := range cohorts {
				fmt.Fprintf(w, "   %-16s %6d %6d %6d  %s\n", c.Cohort, c.Counts.Low, c.Counts.Medium, c.Counts.High, topStudents(c.TopStudents))
			}
		}

		if len(s.TopHighStudents) > 0 {
			fmt.Fprintln(w)
			color.New(color.FgRed, color.Bold).Fprintln(w, "🔥 MOST OFTEN HIGH RISK:")
			for i, t := range s.TopHighStudents {
				fmt.Fprintf(w, "   %d. %s (%d)\n", i+1, t.StudentID, t.HighCount)
			}
		}

		fmt.Fprintln(w, strings.Repeat("─", 80))
		fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with --history ID to inspect a student's trend"))
	})
}

func topStudents(ts []model.TopStudent) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, fmt.Sprintf("%s(%d)", t.StudentID, t.HighCount))
	}
	return strings.Join(parts, ", ")
}

type alertView struct {
	StudentID string            `json:"student_id" yaml:"student_id"`
	Status    string            `json:"status" yaml:"status"`
	Message   string            `json:"message" yaml:"message"`
	Draft     *model.AlertDraft `json:"draft,omitempty" yaml:"draft,omitempty"`
}

// DisplayAlert confirms a sent alert. draft is nil when the message was
// written by hand.
func DisplayAlert(w io.Writer, resp *model.AlertResponse, req model.AlertRequest, draft *model.AlertDraft, format string) error {
	studentID := resp.StudentID
	if studentID == "" {
		studentID = req.StudentID
	}
	v := alertView{StudentID: studentID, Status: resp.Status, Message: req.Message, Draft: draft}
	return display(w, format, v, func() {
		fmt.Fprintln(w)
		color.New(color.FgGreen).Fprintf(w, "✓ Alert sent for %s\n", studentID)
		if draft != nil {
			getRiskColor(draft.Urgency).Fprintf(w, "   %s Urgency: %s\n", getRiskIcon(draft.Urgency), draft.Urgency)
		}
		fmt.Fprintln(w, wrapText(req.Message, 80, "   "))
	})
}

// DisplayFailure prints the per-endpoint diagnostic for resolver errors
// and a one-line message for anything else.
func DisplayFailure(w io.Writer, err error) {
	red := color.New(color.FgRed)

	var serverErr *client.ServerError
	var exhausted *client.AllEndpointsFailedError
	var quality *history.DataQualityError
	switch {
	case errors.As(err, &serverErr):
		red.Fprintf(w, "✗ Server error %d from %s\n", serverErr.Status, serverErr.URL)
		if body := strings.TrimSpace(serverErr.Body); body != "" {
			fmt.Fprintf(w, "   %s\n", body)
		}
		displayAttempts(w, serverErr.Attempts)
	case errors.As(err, &exhausted):
		red.Fprintln(w, "✗ Could not reach the prediction service")
		displayAttempts(w, exhausted.Attempts)
		fmt.Fprintf(w, "\n💡 %s\n", color.HiBlackString("Is the backend running? Try: uvicorn app:app --port 8000"))
	case errors.As(err, &quality):
		color.New(color.FgYellow).Fprintf(w, "⚠️  %s\n", quality.Error())
	default:
		red.Fprintf(w, "✗ %v\n", err)
	}
}

func displayAttempts(w io.Writer, attempts []client.Attempt) {
	if len(attempts) == 0 {
		return
	}
	fmt.Fprintln(w, "   Attempts:")
	for i, a := range attempts {
		fmt.Fprintf(w, "   %d. %s\n", i+1, a.String())
	}
}

func getRiskColor(level model.RiskLevel) *color.Color {
	switch level {
	case model.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case model.RiskMedium:
		return color.New(color.FgYellow)
	case model.RiskLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func getRiskIcon(level model.RiskLevel) string {
	switch level {
	case model.RiskHigh:
		return "🔴"
	case model.RiskMedium:
		return "🟡"
	case model.RiskLow:
		return "🟢"
	default:
		return "⚪"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			switch {
			case currentLine == indent:
				currentLine += word
			case len(currentLine)+len(word)+1 > width:
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			default:
				currentLine += " " + word
			}
		}
		result.WriteString(currentLine + "\n")
	}
	return strings.TrimSuffix(result.String(), "\n")
}
