// Package metrics is the health-metric aggregation engine: it normalizes
// heterogeneous measurements, projects them onto a calendar grid for
// charting, and produces the filtered, grouped timeline feed. Everything in
// the package is pure; results are recomputed from the arguments on every
// call, which is what lets the UI layer re-invoke on every filter change
// without coordination.
package metrics

import (
	"time"

	"github.com/caretrack/rehabd/internal/models"
)

// Window is an inclusive reporting range.
type Window struct {
	Start time.Time
	End   time.Time
}

// SeriesView is the chart-ready result: the grid skeleton plus one aligned
// series per requested metric type.
type SeriesView struct {
	Grid   CalendarGrid `json:"grid"`
	Series SeriesSet    `json:"series"`
}

// BuildSeriesView runs the charting pipeline: normalize, resolve composites,
// build the day grid, project. Same-day duplicates collapse under the
// default last-by-input-order policy; use BuildSeriesViewWithPolicy to pick
// another.
func BuildSeriesView(raws []models.RawMeasurement, window Window, types []string) SeriesView {
	return BuildSeriesViewWithPolicy(raws, window, types, LastByInputOrder)
}

// BuildSeriesViewWithPolicy is BuildSeriesView with an explicit conflict
// policy.
func BuildSeriesViewWithPolicy(raws []models.RawMeasurement, window Window, types []string, policy ConflictPolicy) SeriesView {
	points := NormalizeAll(raws)
	grid := BuildGrid(window.Start, window.End)
	return SeriesView{
		Grid:   grid,
		Series: Project(points, grid, types, policy),
	}
}

// BuildTimelineView runs the timeline pipeline: normalize, resolve
// composites, filter, group. Non-chartable points are included; only an
// unknown groupBy errors.
func BuildTimelineView(raws []models.RawMeasurement, c Criteria, groupBy GroupBy) ([]TimelineGroup, error) {
	return FilterAndGroup(NormalizeAll(raws), c, groupBy)
}

// DistinctTypes returns the metric types present in the measurements, in
// first-seen order. Callers use it when no explicit type selection is given.
func DistinctTypes(raws []models.RawMeasurement) []string {
	seen := make(map[string]bool)
	var types []string
	for _, raw := range raws {
		if !seen[raw.MetricType] {
			seen[raw.MetricType] = true
			types = append(types, raw.MetricType)
		}
	}
	return types
}
