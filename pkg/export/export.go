package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/model"
)

// Artifact is a downloadable file: its bytes and a deterministic name.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// predictionExport fixes the key order of the JSON export.
type predictionExport struct {
	StudentID         string          `json:"student_id"`
	RiskLevel         model.RiskLevel `json:"risk_level"`
	Confidence        float64         `json:"confidence"`
	RecommendedAction string          `json:"recommended_action"`
	Reasons           []string        `json:"reasons"`
	GeneratedAt       string          `json:"generated_at"`
}

// PredictionJSON serializes a result for download. fallbackID is used when
// the backend left student_id empty; generatedAt is the export time.
func PredictionJSON(result model.PredictionResult, fallbackID string, generatedAt time.Time) (Artifact, error) {
	payload := predictionExport{
		StudentID:         result.StudentID,
		RiskLevel:         result.RiskLevel,
		Confidence:        result.Confidence,
		RecommendedAction: result.RecommendedAction,
		Reasons:           result.Reasons,
		GeneratedAt:       generatedAt.Format(time.RFC3339),
	}
	if payload.StudentID == "" {
		payload.StudentID = fallbackID
	}
	if payload.Reasons == nil {
		payload.Reasons = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return Artifact{}, fmt.Errorf("encode prediction: %w", err)
	}

	id := payload.StudentID
	if strings.TrimSpace(id) == "" {
		id = "unknown"
	}
	return Artifact{
		Filename:    fmt.Sprintf("prediction_%s.json", safeName(id)),
		ContentType: "application/json",
		Data:        bytes.TrimSuffix(buf.Bytes(), []byte("\n")),
	}, nil
}

// CohortStatsCSV writes one row per cohort. Top students are flattened
// into one quoted cell as id(count) joined by "|".
func CohortStatsCSV(cohorts []model.CohortSummary) Artifact {
	var b strings.Builder
	b.WriteString("cohort,low,medium,high,top_students\n")
	for _, c := range cohorts {
		tops := make([]string, 0, len(c.TopStudents))
		for _, s := range c.TopStudents {
			tops = append(tops, fmt.Sprintf("%s(%d)", s.StudentID, s.HighCount))
		}
		fmt.Fprintf(&b, "%s,%d,%d,%d,%s\n",
			cell(c.Cohort), c.Counts.Low, c.Counts.Medium, c.Counts.High,
			quoted(strings.Join(tops, "|")))
	}
	return Artifact{Filename: "cohort_stats.csv", ContentType: "text/csv", Data: []byte(b.String())}
}

// CohortCSV wraps the backend's per-cohort CSV unchanged.
func CohortCSV(cohort string, body []byte) Artifact {
	return Artifact{
		Filename:    fmt.Sprintf("cohort_%s.csv", safeName(cohort)),
		ContentType: "text/csv",
		Data:        body,
	}
}

// StudentReportCSV wraps the backend's per-student CSV unchanged.
func StudentReportCSV(studentID string, body []byte) Artifact {
	return Artifact{
		Filename:    fmt.Sprintf("student_%s_report.csv", safeName(studentID)),
		ContentType: "text/csv",
		Data:        body,
	}
}

// cell quotes a plain field only when it would break the row.
func cell(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quoted(s)
	}
	return s
}

func quoted(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}

// Saver is where artifacts end up. Serializers never touch it.
type Saver interface {
	Save(a Artifact) (string, error)
}

// DirSaver writes artifacts into Dir, overwriting files of the same name.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(a Artifact) (string, error) {
	if a.Filename == "" || a.Filename == "." || a.Filename == ".." {
		return "", fmt.Errorf("invalid artifact filename %q", a.Filename)
	}
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(a.Filename))
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	log.WithFields(log.Fields{"path": path, "bytes": len(a.Data)}).Info("export saved")
	return path, nil
}
