package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/helmcode/riskctl/pkg/export"
	"github.com/helmcode/riskctl/pkg/model"
)

// TeacherSource is the part of the backend the teacher view reads.
type TeacherSource interface {
	TeacherSummary(ctx context.Context) (*model.AnalyticsSummary, error)
	CohortStats(ctx context.Context) ([]model.CohortSummary, error)
}

type TeacherView struct {
	Summary  *model.AnalyticsSummary `json:"summary" yaml:"summary"`
	Cohorts  []model.CohortSummary   `json:"cohorts" yaml:"cohorts"`
	LoadedAt time.Time               `json:"loaded_at" yaml:"loaded_at"`
}

// TeacherDashboard holds the last complete teacher view. A failed load
// never replaces it with a partial one.
type TeacherDashboard struct {
	src TeacherSource
	now func() time.Time

	mu   sync.Mutex
	view *TeacherView
}

func NewTeacherDashboard(src TeacherSource) *TeacherDashboard {
	return &TeacherDashboard{src: src, now: time.Now}
}

// Load fetches the summary and the cohorts. On error the previous view
// (possibly nil) is returned together with the error.
func (d *TeacherDashboard) Load(ctx context.Context) (*TeacherView, error) {
	summary, err := d.src.TeacherSummary(ctx)
	if err != nil {
		return d.View(), fmt.Errorf("load teacher summary: %w", err)
	}
	cohorts, err := d.src.CohortStats(ctx)
	if err != nil {
		return d.View(), fmt.Errorf("load cohort stats: %w", err)
	}

	view := &TeacherView{Summary: summary, Cohorts: cohorts, LoadedAt: d.now()}
	d.mu.Lock()
	d.view = view
	d.mu.Unlock()
	return view, nil
}

func (d *TeacherDashboard) View() *TeacherView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// ExportCohortStats refetches the cohorts and serializes them, so the
// download reflects the backend at export time.
func (d *TeacherDashboard) ExportCohortStats(ctx context.Context) (export.Artifact, error) {
	cohorts, err := d.src.CohortStats(ctx)
	if err != nil {
		return export.Artifact{}, fmt.Errorf("load cohort stats: %w", err)
	}
	return export.CohortStatsCSV(cohorts), nil
}
