package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Ordinal maps a risk label to the 1/2/3 encoding shared by every chart.
// ok is false for any label outside Low/Medium/High.
func (r RiskLevel) Ordinal() (int, bool) {
	switch r {
	case RiskLow:
		return 1, true
	case RiskMedium:
		return 2, true
	case RiskHigh:
		return 3, true
	default:
		return 0, false
	}
}

// RiskLevelFromOrdinal is the inverse of Ordinal.
func RiskLevelFromOrdinal(n int) (RiskLevel, bool) {
	switch n {
	case 1:
		return RiskLow, true
	case 2:
		return RiskMedium, true
	case 3:
		return RiskHigh, true
	default:
		return "", false
	}
}

type PredictionRequest struct {
	StudentID          string  `json:"student_id"`
	AttendanceCurrent  float64 `json:"attendance_current"`
	AttendancePrev     float64 `json:"attendance_prev"`
	AssignmentDelayAvg float64 `json:"assignment_delay_avg"`
	MarksStd           float64 `json:"marks_std"`
	LMSLogins          float64 `json:"lms_logins"`
	TotalDays          float64 `json:"total_days"`
}

// PredictionFields lists the numeric form fields in the order they are asked for.
var PredictionFields = []string{
	"attendance_current",
	"attendance_prev",
	"assignment_delay_avg",
	"marks_std",
	"lms_logins",
	"total_days",
}

// ParsePredictionRequest coerces user-entered strings into a request.
// Every field is required; no range validation is done.
func ParsePredictionRequest(studentID string, fields map[string]string) (PredictionRequest, error) {
	req := PredictionRequest{StudentID: strings.TrimSpace(studentID)}
	if req.StudentID == "" {
		return req, fmt.Errorf("student_id is required")
	}

	targets := map[string]*float64{
		"attendance_current":   &req.AttendanceCurrent,
		"attendance_prev":      &req.AttendancePrev,
		"assignment_delay_avg": &req.AssignmentDelayAvg,
		"marks_std":            &req.MarksStd,
		"lms_logins":           &req.LMSLogins,
		"total_days":           &req.TotalDays,
	}
	for _, name := range PredictionFields {
		raw := strings.TrimSpace(fields[name])
		if raw == "" {
			return req, fmt.Errorf("%s is required", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return req, fmt.Errorf("%s must be a number, got %q", name, raw)
		}
		*targets[name] = v
	}
	return req, nil
}

type PredictionResult struct {
	StudentID         string    `json:"student_id" yaml:"student_id"`
	RiskLevel         RiskLevel `json:"risk_level" yaml:"risk_level"`
	Confidence        float64   `json:"confidence" yaml:"confidence"`
	RecommendedAction string    `json:"recommended_action" yaml:"recommended_action"`
	Reasons           []string  `json:"reasons" yaml:"reasons"`
}

// ConfidencePercent renders confidence as a whole percentage, e.g. "87%".
func (p PredictionResult) ConfidencePercent() string {
	return fmt.Sprintf("%.0f%%", p.Confidence*100)
}

type RiskHistoryPoint struct {
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	OrdinalRisk int    `json:"ordinal_risk" yaml:"ordinal_risk"`
}

type HistoryResponse struct {
	Timestamps []string `json:"timestamps"`
	Risks      []string `json:"risks"`
	Error      string   `json:"error,omitempty"`
}

type RiskCounts struct {
	Low     int `json:"Low" yaml:"low"`
	Medium  int `json:"Medium" yaml:"medium"`
	High    int `json:"High" yaml:"high"`
	Unknown int `json:"Unknown,omitempty" yaml:"unknown,omitempty"`
}

func (c RiskCounts) Total() int {
	return c.Low + c.Medium + c.High
}

type TopStudent struct {
	StudentID string `json:"student_id" yaml:"student_id"`
	HighCount int    `json:"high_count" yaml:"high_count"`
}

type CohortSummary struct {
	Cohort      string       `json:"cohort" yaml:"cohort"`
	Counts      RiskCounts   `json:"counts" yaml:"counts"`
	TopStudents []TopStudent `json:"top_students" yaml:"top_students"`
}

type CohortStats struct {
	Cohorts []CohortSummary `json:"cohorts"`
	Error   string          `json:"error,omitempty"`
}

// SummaryRow is one sample row of the analytics preview. The backend is
// loose about key names, so both spellings are accepted.
type SummaryRow struct {
	StudentID string `json:"student_id,omitempty" yaml:"student_id,omitempty"`
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	RiskLevel string `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	Risk      string `json:"risk,omitempty" yaml:"risk,omitempty"`
}

func (r SummaryRow) Student() string {
	if r.StudentID != "" {
		return r.StudentID
	}
	return r.ID
}

func (r SummaryRow) Level() string {
	if r.RiskLevel != "" {
		return r.RiskLevel
	}
	return r.Risk
}

type AnalyticsSummary struct {
	TotalStudents   int          `json:"total_students" yaml:"total_students"`
	AvgConfidence   float64      `json:"avg_confidence" yaml:"avg_confidence"`
	Counts          RiskCounts   `json:"counts" yaml:"counts"`
	TopHighStudents []TopStudent `json:"top_high_students" yaml:"top_high_students"`
	Rows            []SummaryRow `json:"rows,omitempty" yaml:"rows,omitempty"`
	Error           string       `json:"error,omitempty" yaml:"-"`
}

// Students falls back to the histogram total when the backend leaves
// total_students at zero.
func (s AnalyticsSummary) Students() int {
	if s.TotalStudents > 0 {
		return s.TotalStudents
	}
	return s.Counts.Total()
}

// HighShare is the percentage of High predictions, rounded.
func (s AnalyticsSummary) HighShare() int {
	total := s.Counts.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Counts.High) / float64(total) * 100))
}

type AlertRequest struct {
	StudentID string `json:"student_id"`
	Message   string `json:"message"`
	Method    string `json:"method"`
}

type AlertResponse struct {
	Status    string `json:"status"`
	StudentID string `json:"student_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AlertDraft is a suggested guardian message produced by the drafting
// assistant. The teacher reviews it before it is sent.
type AlertDraft struct {
	Message string    `json:"message" yaml:"message"`
	Urgency RiskLevel `json:"urgency" yaml:"urgency"`
}
