package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/helmcode/riskctl/pkg/client"
	"github.com/helmcode/riskctl/pkg/config"
	"github.com/helmcode/riskctl/pkg/events"
	"github.com/helmcode/riskctl/pkg/export"
	"github.com/helmcode/riskctl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type memSaver struct {
	saved map[string][]byte
}

func (m *memSaver) Save(a export.Artifact) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[a.Filename] = a.Data
	return "mem/" + a.Filename, nil
}

type testApp struct {
	*App
	out    *bytes.Buffer
	status *bytes.Buffer
	saver  *memSaver
}

func newTestApp(t *testing.T, srv *httptest.Server, endpoints ...string) *testApp {
	t.Helper()
	if len(endpoints) == 0 {
		endpoints = []string{srv.URL + "/predict"}
	}
	out, status, saver := &bytes.Buffer{}, &bytes.Buffer{}, &memSaver{}
	app := &App{
		Config:       config.Config{BaseURL: srv.URL, PredictEndpoints: endpoints, Location: time.UTC},
		Bus:          events.NewBus(),
		Resolver:     client.NewResolver(endpoints, srv.URL, 0),
		API:          client.NewAPI(srv.URL, 0),
		Saver:        saver,
		Out:          out,
		Status:       status,
		outputFormat: "human",
	}
	return &testApp{App: app, out: out, status: status, saver: saver}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func predictOpts(studentID string) *predictOptions {
	values := map[string]string{
		"attendance_current":   "61",
		"attendance_prev":      "78",
		"assignment_delay_avg": "3.5",
		"marks_std":            "12",
		"lms_logins":           "4",
		"total_days":           "90",
	}
	opts := &predictOptions{studentID: studentID, fields: map[string]*string{}}
	for k, v := range values {
		v := v
		opts.fields[k] = &v
	}
	return opts
}

func TestPredictPublishesAndRefreshesSummary(t *testing.T) {
	var summaryHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		var req model.PredictionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "S-1", req.StudentID)
		assert.Equal(t, 3.5, req.AssignmentDelayAvg)
		writeJSON(t, w, model.PredictionResult{
			StudentID: "S-1", RiskLevel: model.RiskHigh, Confidence: 0.87,
			RecommendedAction: "Call guardian", Reasons: []string{"attendance dropped"},
		})
	})
	mux.HandleFunc("/analytics-summary", func(w http.ResponseWriter, r *http.Request) {
		n := summaryHits.Add(1)
		writeJSON(t, w, model.AnalyticsSummary{TotalStudents: int(n), Counts: model.RiskCounts{High: int(n)}})
	})
	mux.HandleFunc("/student-history/S-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.HistoryResponse{
			Timestamps: []string{"2024-01-01 09:00:00.000001", "2024-01-02 10:30:00"},
			Risks:      []string{"Low", "High"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	app := newTestApp(t, srv)
	opts := predictOpts("S-1")
	opts.trend, opts.export, opts.showSummary = true, true, true

	require.NoError(t, runPredict(context.Background(), app.App, opts))

	out := app.out.String()
	assert.Contains(t, out, "Confidence: 87%")
	assert.Contains(t, out, "RISK TREND FOR S-1")
	assert.Contains(t, out, "10:30:00")
	assert.Contains(t, out, "ANALYTICS SUMMARY")
	assert.EqualValues(t, 2, summaryHits.Load())
	assert.Equal(t, 0, app.Bus.Len())

	data, ok := app.saver.saved["prediction_S-1.json"]
	require.True(t, ok)
	assert.Contains(t, string(data), `"risk_level": "High"`)
	assert.Contains(t, app.status.String(), "Saved mem/prediction_S-1.json")
}

func TestPredictRejectsMissingField(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	app := newTestApp(t, srv)
	opts := predictOpts("S-1")
	empty := ""
	opts.fields["marks_std"] = &empty

	err := runPredict(context.Background(), app.App, opts)

	assert.EqualError(t, err, "marks_std is required")
}

func TestPredictAllEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	app := newTestApp(t, srv, srv.URL+"/predict", srv.URL+"/api/predict")

	err := runPredict(context.Background(), app.App, predictOpts("S-1"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReported))
	assert.True(t, errors.Is(err, client.ErrAllEndpointsExhausted))
	assert.Contains(t, app.status.String(), "Could not reach the prediction service")
	assert.Contains(t, app.status.String(), "2. "+srv.URL+"/api/predict => 404")
	assert.Empty(t, app.out.String())
}

func TestExportCohortNoContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cohort-export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "A", r.URL.Query().Get("cohort"))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	app := newTestApp(t, srv)

	err := runExport(context.Background(), app.App, "cohort A", func(ctx context.Context) (export.Artifact, error) {
		body, err := app.API.CohortExport(ctx, "A")
		return export.CohortCSV("A", body), err
	})

	require.NoError(t, err)
	assert.Contains(t, app.status.String(), "No data to export for cohort A")
	assert.Empty(t, app.saver.saved)
}

func TestExportStudentReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/student-report/S-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("student_id,risk_level\nS-1,High\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	app := newTestApp(t, srv)

	err := runExport(context.Background(), app.App, "student S-1", func(ctx context.Context) (export.Artifact, error) {
		body, err := app.API.StudentReport(ctx, "S-1")
		return export.StudentReportCSV("S-1", body), err
	})

	require.NoError(t, err)
	assert.Equal(t, "student_id,risk_level\nS-1,High\n", string(app.saver.saved["student_S-1_report.csv"]))
}

func TestTeacherExportsCohortStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teacher-summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.AnalyticsSummary{TotalStudents: 6, AvgConfidence: 0.75, Counts: model.RiskCounts{Low: 1, Medium: 2, High: 3}})
	})
	mux.HandleFunc("/cohort-stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.CohortStats{Cohorts: []model.CohortSummary{{
			Cohort:      "A",
			Counts:      model.RiskCounts{Low: 1, Medium: 2, High: 3},
			TopStudents: []model.TopStudent{{StudentID: "s1", HighCount: 3}},
		}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	app := newTestApp(t, srv)

	require.NoError(t, runTeacher(context.Background(), app.App, &teacherOptions{exportCSV: true}))

	assert.Contains(t, app.out.String(), "Avg confidence: 75%")
	assert.Equal(t, "cohort,low,medium,high,top_students\nA,1,2,3,\"s1(3)\"\n", string(app.saver.saved["cohort_stats.csv"]))
}

func TestTeacherLoadFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teacher-summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]string{"error": "database locked"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	app := newTestApp(t, srv)

	err := runTeacher(context.Background(), app.App, &teacherOptions{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReported))
	assert.Contains(t, app.status.String(), "database locked")
}

func TestSummaryErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	app := newTestApp(t, srv)

	err := showSummary(context.Background(), app.App)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReported))
	assert.Contains(t, app.out.String(), "Analytics unavailable")
	assert.Equal(t, 0, app.Bus.Len())
}

func TestWatchSummaryRejectsBadSchedule(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	app := newTestApp(t, srv)

	err := watchSummary(context.Background(), app.App, "whenever")

	assert.ErrorContains(t, err, `invalid --watch schedule "whenever"`)
}

func TestAlertSendsMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/send-alert", func(w http.ResponseWriter, r *http.Request) {
		var req model.AlertRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "manual", req.Method)
		assert.Equal(t, "Please call.", req.Message)
		writeJSON(t, w, model.AlertResponse{Status: "ok", StudentID: req.StudentID})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	app := newTestApp(t, srv)

	require.NoError(t, runAlert(context.Background(), app.App, "S-1", &alertOptions{message: "Please call."}))

	assert.Contains(t, app.out.String(), "Alert sent for S-1")
}

func TestAlertDryRunDoesNotSend(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	app := newTestApp(t, srv)
	app.outputFormat = "json"

	require.NoError(t, runAlert(context.Background(), app.App, "S-1", &alertOptions{message: "hi", dryRun: true}))

	assert.EqualValues(t, 0, hits.Load())
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &got))
	assert.Equal(t, "draft", got["status"])
	assert.Equal(t, "hi", got["message"])
}

func TestAlertDraftNeedsAPIKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	app := newTestApp(t, srv)

	err := runAlert(context.Background(), app.App, "S-1", &alertOptions{draft: true})

	assert.EqualError(t, err, "ANTHROPIC_API_KEY environment variable not set")
}
