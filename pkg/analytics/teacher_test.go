package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/helmcode/riskctl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTeacherSource struct {
	summary    *model.AnalyticsSummary
	cohorts    []model.CohortSummary
	summaryErr error
	cohortErr  error
}

func (f *fakeTeacherSource) TeacherSummary(context.Context) (*model.AnalyticsSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeTeacherSource) CohortStats(context.Context) ([]model.CohortSummary, error) {
	return f.cohorts, f.cohortErr
}

func TestTeacherDashboardLoad(t *testing.T) {
	src := &fakeTeacherSource{
		summary: &model.AnalyticsSummary{TotalStudents: 4, AvgConfidence: 0.75},
		cohorts: []model.CohortSummary{{Cohort: "A1", Counts: model.RiskCounts{Low: 1}}},
	}
	d := NewTeacherDashboard(src)

	view, err := d.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, view.Summary.TotalStudents)
	assert.Len(t, view.Cohorts, 1)
	assert.Same(t, view, d.View())
}

func TestTeacherDashboardKeepsPreviousViewOnFailure(t *testing.T) {
	src := &fakeTeacherSource{
		summary: &model.AnalyticsSummary{TotalStudents: 4},
		cohorts: []model.CohortSummary{{Cohort: "A1"}},
	}
	d := NewTeacherDashboard(src)
	first, err := d.Load(context.Background())
	require.NoError(t, err)

	src.summary = &model.AnalyticsSummary{TotalStudents: 99}
	src.cohortErr = errors.New("timeout")
	view, err := d.Load(context.Background())

	assert.ErrorContains(t, err, "load cohort stats: timeout")
	assert.Same(t, first, view)
	assert.Equal(t, 4, d.View().Summary.TotalStudents)
}

func TestTeacherDashboardFirstLoadFailure(t *testing.T) {
	d := NewTeacherDashboard(&fakeTeacherSource{summaryErr: errors.New("down")})

	view, err := d.Load(context.Background())
	assert.ErrorContains(t, err, "load teacher summary: down")
	assert.Nil(t, view)
}

func TestExportCohortStats(t *testing.T) {
	d := NewTeacherDashboard(&fakeTeacherSource{cohorts: []model.CohortSummary{{
		Cohort:      "A",
		Counts:      model.RiskCounts{Low: 1, Medium: 2, High: 3},
		TopStudents: []model.TopStudent{{StudentID: "s1", HighCount: 3}},
	}}})

	a, err := d.ExportCohortStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cohort_stats.csv", a.Filename)
	assert.Equal(t, "cohort,low,medium,high,top_students\nA,1,2,3,\"s1(3)\"\n", string(a.Data))
}
