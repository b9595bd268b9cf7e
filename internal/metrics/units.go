package metrics

import (
	"sort"
	"strings"
)

// MetricInfo describes one metric type in the static catalog: the unit used
// when a measurement arrives without one, the human-readable name shown in
// timeline titles, and whether the type carries composite sub-fields.
type MetricInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit"`
	Composite   bool   `json:"composite"`
}

// catalog is data, not code: new metric types are added here (or via
// RegisterMetric) without touching engine logic.
var catalog = map[string]MetricInfo{
	"heart_rate":              {Name: "heart_rate", DisplayName: "Heart rate", Unit: "count/min"},
	"resting_heart_rate":      {Name: "resting_heart_rate", DisplayName: "Resting heart rate", Unit: "count/min"},
	"blood_pressure":          {Name: "blood_pressure", DisplayName: "Blood pressure", Unit: "mmHg", Composite: true},
	"blood_glucose":           {Name: "blood_glucose", DisplayName: "Blood glucose", Unit: "mg/dL"},
	"blood_oxygen_saturation": {Name: "blood_oxygen_saturation", DisplayName: "Blood oxygen", Unit: "%"},
	"respiratory_rate":        {Name: "respiratory_rate", DisplayName: "Respiratory rate", Unit: "count/min"},
	"body_temperature":        {Name: "body_temperature", DisplayName: "Body temperature", Unit: "degC"},
	"weight_body_mass":        {Name: "weight_body_mass", DisplayName: "Weight", Unit: "kg"},
	"step_count":              {Name: "step_count", DisplayName: "Steps", Unit: "count"},
	"pain_level":              {Name: "pain_level", DisplayName: "Pain level", Unit: "score"},
}

// UnitFor returns the fallback unit for a metric type. Unknown types get an
// empty unit, not an error.
func UnitFor(metricType string) string {
	return catalog[metricType].Unit
}

// DisplayNameFor returns the human-readable name for a metric type. Unknown
// types get a prettified version of the key so the timeline stays readable.
func DisplayNameFor(metricType string) string {
	if info, ok := catalog[metricType]; ok {
		return info.DisplayName
	}
	name := strings.ReplaceAll(metricType, "_", " ")
	if name == "" {
		return metricType
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// IsComposite reports whether a metric type is cataloged as composite.
func IsComposite(metricType string) bool {
	return catalog[metricType].Composite
}

// RegisterMetric adds or replaces a catalog entry.
func RegisterMetric(info MetricInfo) {
	catalog[info.Name] = info
}

// Catalog returns all known metric types sorted by name.
func Catalog() []MetricInfo {
	result := make([]MetricInfo, 0, len(catalog))
	for _, info := range catalog {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
