package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caretrack/rehabd/internal/models"
)

// NormalizedPoint is the engine's canonical view of one measurement.
// DisplayValue is the scalar used for charting and is nil when the
// measurement is non-chartable; RawValue keeps the original value for
// display either way.
type NormalizedPoint struct {
	ID           string                  `json:"id"`
	MetricType   string                  `json:"metric_type"`
	Title        string                  `json:"title"`
	Summary      string                  `json:"summary"`
	Notes        string                  `json:"notes,omitempty"`
	Unit         string                  `json:"unit,omitempty"`
	Timestamp    time.Time               `json:"timestamp"`
	AlertLevel   models.AlertLevel       `json:"alert_level,omitempty"`
	DisplayValue *float64                `json:"display_value"`
	RawValue     models.MeasurementValue `json:"raw_value"`
	Tags         []string                `json:"tags,omitempty"`
	Source       string                  `json:"source,omitempty"`
}

// Chartable reports whether the point can participate in series projection.
func (p NormalizedPoint) Chartable() bool {
	return p.DisplayValue != nil
}

// Normalize converts a raw measurement into a normalized point. It is pure
// and never fails: unparseable or unresolvable values degrade to a
// non-chartable point that still appears in the timeline feed.
func Normalize(raw models.RawMeasurement) NormalizedPoint {
	unit := raw.Unit
	if unit == "" {
		unit = UnitFor(raw.MetricType)
	}

	p := NormalizedPoint{
		ID:         raw.ID,
		MetricType: raw.MetricType,
		Title:      DisplayNameFor(raw.MetricType),
		Notes:      raw.Notes,
		Unit:       unit,
		Timestamp:  raw.MeasuredAt,
		AlertLevel: raw.AlertLevel,
		RawValue:   raw.Value,
		Tags:       raw.Tags,
		Source:     raw.Source,
	}

	switch raw.Value.Kind {
	case models.ValueScalar:
		setDisplayValue(&p, raw.Value.Scalar)
	case models.ValueText:
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw.Value.Text), 64); err == nil {
			setDisplayValue(&p, v)
		}
	case models.ValueFields:
		if len(raw.Value.Fields) > 0 {
			if v, ok := ResolveComposite(raw.MetricType, raw.Value.Fields); ok {
				setDisplayValue(&p, v)
			}
		}
	}

	p.Summary = formatSummary(raw.Value, unit)
	return p
}

// NormalizeAll normalizes a batch, preserving input order.
func NormalizeAll(raws []models.RawMeasurement) []NormalizedPoint {
	points := make([]NormalizedPoint, len(raws))
	for i, raw := range raws {
		points[i] = Normalize(raw)
	}
	return points
}

// setDisplayValue assigns the chart value, guarding the finite invariant.
func setDisplayValue(p *NormalizedPoint, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	p.DisplayValue = &v
}

// formatSummary renders the value the way the timeline shows it.
// Blood-pressure-shaped composites read "120/80 mmHg"; other composites list
// their sub-fields in key order; scalars append the unit.
func formatSummary(v models.MeasurementValue, unit string) string {
	switch v.Kind {
	case models.ValueText:
		return v.Text
	case models.ValueFields:
		sys, hasSys := v.Fields["systolic"]
		dia, hasDia := v.Fields["diastolic"]
		if hasSys && hasDia {
			return withUnit(fmt.Sprintf("%s/%s", formatNumber(sys), formatNumber(dia)), unit)
		}
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " " + formatNumber(v.Fields[k])
		}
		return withUnit(strings.Join(parts, ", "), unit)
	default:
		return withUnit(formatNumber(v.Scalar), unit)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func withUnit(s, unit string) string {
	if unit == "" {
		return s
	}
	return s + " " + unit
}
