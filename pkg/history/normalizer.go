package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/model"
)

// Granularity selects how timestamps are rendered on the x axis.
type Granularity int

const (
	// Compact shows time of day, for the inline trend under a prediction.
	Compact Granularity = iota
	// Detailed shows date and time, for the teacher view.
	Detailed
)

func (g Granularity) layout() string {
	if g == Detailed {
		return "2006-01-02 15:04:05"
	}
	return "15:04:05"
}

// The backend writes Python's str(datetime); RFC 3339 is accepted as well.
// Fractional seconds are optional for every layout when parsing.
var inputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Normalizer struct {
	Granularity Granularity
	// Location is used both to read zone-less timestamps and to display
	// them. Nil means time.Local.
	Location *time.Location
}

// LabelIssue is one risk label with no ordinal.
type LabelIssue struct {
	Index int
	Label string
}

// DataQualityError reports what Normalize had to drop or keep raw. It is
// returned next to the usable points, never instead of them.
type DataQualityError struct {
	Timestamps    int
	Risks         int
	Truncated     bool
	UnknownLabels []LabelIssue
	BadTimestamps []int
}

func (e *DataQualityError) Error() string {
	var parts []string
	if e.Truncated {
		parts = append(parts, fmt.Sprintf("history arrays differ in length (%d timestamps, %d risks), truncated", e.Timestamps, e.Risks))
	}
	if len(e.UnknownLabels) > 0 {
		labels := make([]string, 0, len(e.UnknownLabels))
		for _, l := range e.UnknownLabels {
			labels = append(labels, fmt.Sprintf("#%d %q", l.Index, l.Label))
		}
		parts = append(parts, "unknown risk labels skipped: "+strings.Join(labels, ", "))
	}
	if len(e.BadTimestamps) > 0 {
		parts = append(parts, fmt.Sprintf("%d timestamps could not be parsed", len(e.BadTimestamps)))
	}
	return "history data quality: " + strings.Join(parts, "; ")
}

// Normalize zips parallel timestamp and risk arrays into ordered points.
// Input order is kept. Empty input gives an empty, non-nil slice.
func (n Normalizer) Normalize(timestamps, risks []string) ([]model.RiskHistoryPoint, error) {
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}

	size := len(timestamps)
	if len(risks) < size {
		size = len(risks)
	}

	issues := &DataQualityError{
		Timestamps: len(timestamps),
		Risks:      len(risks),
		Truncated:  len(timestamps) != len(risks),
	}

	points := make([]model.RiskHistoryPoint, 0, size)
	for i := 0; i < size; i++ {
		ordinal, ok := model.RiskLevel(risks[i]).Ordinal()
		if !ok {
			issues.UnknownLabels = append(issues.UnknownLabels, LabelIssue{Index: i, Label: risks[i]})
			continue
		}

		display := timestamps[i]
		if ts, err := parseTimestamp(timestamps[i], loc); err == nil {
			display = ts.In(loc).Format(n.Granularity.layout())
		} else {
			issues.BadTimestamps = append(issues.BadTimestamps, i)
		}

		points = append(points, model.RiskHistoryPoint{Timestamp: display, OrdinalRisk: ordinal})
	}

	if !issues.Truncated && len(issues.UnknownLabels) == 0 && len(issues.BadTimestamps) == 0 {
		return points, nil
	}
	log.WithFields(log.Fields{
		"timestamps":     issues.Timestamps,
		"risks":          issues.Risks,
		"unknown_labels": len(issues.UnknownLabels),
		"bad_timestamps": len(issues.BadTimestamps),
	}).Warn(issues.Error())
	return points, issues
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range inputLayouts {
		ts, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Source is the backend call history needs.
type Source interface {
	FetchHistory(ctx context.Context, studentID string) (*model.HistoryResponse, error)
}

// Load fetches one student's history and normalizes it. A
// *DataQualityError comes back together with the points that survived.
func Load(ctx context.Context, src Source, studentID string, n Normalizer) ([]model.RiskHistoryPoint, error) {
	resp, err := src.FetchHistory(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", studentID, err)
	}
	return n.Normalize(resp.Timestamps, resp.Risks)
}
