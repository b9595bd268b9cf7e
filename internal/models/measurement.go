package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexTime handles the timestamp formats devices and exports send:
// RFC 3339, "2006-01-02 15:04:05 -0700", and date-only "2006-01-02".
type FlexTime struct {
	time.Time
}

const (
	FlexTimeLayout     = "2006-01-02 15:04:05 -0700"
	FlexDateOnlyLayout = "2006-01-02"
)

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.Parse(s)
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

// Parse parses a timestamp string, trying RFC 3339 first, then the
// space-separated layout, then date-only.
func (t *FlexTime) Parse(s string) error {
	parsed, err := time.Parse(time.RFC3339, s)
	if err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err2 := time.Parse(FlexTimeLayout, s)
	if err2 == nil {
		t.Time = parsed
		return nil
	}
	parsed, err3 := time.Parse(FlexDateOnlyLayout, s)
	if err3 == nil {
		t.Time = parsed
		return nil
	}
	return fmt.Errorf("cannot parse time %q: %w", s, err)
}

// ParseFlexTime parses a flexible time string into a time.Time.
func ParseFlexTime(s string) (time.Time, error) {
	var t FlexTime
	if err := t.Parse(s); err != nil {
		return time.Time{}, err
	}
	return t.Time, nil
}

// AlertLevel is an externally-supplied severity flag on a measurement.
// The engine passes it through; it never computes one.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// ValueKind tags the shape of a measurement value.
type ValueKind int

const (
	ValueScalar ValueKind = iota // {"value": 72}
	ValueText                    // {"value": "positive"}
	ValueFields                  // {"value": {"systolic": 120, "diastolic": 80}}
)

// MeasurementValue is the tagged union a measurement carries: a numeric
// scalar, a free-text result, or a record of named numeric sub-fields
// (composite metrics such as blood pressure).
type MeasurementValue struct {
	Kind   ValueKind
	Scalar float64
	Text   string
	Fields map[string]float64
}

// ScalarValue builds a numeric measurement value.
func ScalarValue(v float64) MeasurementValue {
	return MeasurementValue{Kind: ValueScalar, Scalar: v}
}

// TextValue builds a free-text measurement value.
func TextValue(s string) MeasurementValue {
	return MeasurementValue{Kind: ValueText, Text: s}
}

// FieldsValue builds a composite measurement value.
func FieldsValue(fields map[string]float64) MeasurementValue {
	return MeasurementValue{Kind: ValueFields, Fields: fields}
}

// UnmarshalJSON probes the JSON shape: number, string, or object of numbers.
// Non-numeric object members are dropped rather than failing the whole value.
func (v *MeasurementValue) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = ScalarValue(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextValue(s)
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("unsupported value shape: %s", data)
	}
	fields := make(map[string]float64, len(probe))
	for k, raw := range probe {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			fields[k] = f
		}
	}
	*v = FieldsValue(fields)
	return nil
}

func (v MeasurementValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueText:
		return json.Marshal(v.Text)
	case ValueFields:
		return json.Marshal(v.Fields)
	default:
		return json.Marshal(v.Scalar)
	}
}

// RawMeasurement is a single measurement as supplied by the upstream fetch
// or ingest collaborator. The aggregation engine treats it as immutable.
type RawMeasurement struct {
	ID         string           `json:"id"`
	PatientID  int              `json:"patient_id"`
	MetricType string           `json:"metric_type"`
	Value      MeasurementValue `json:"value"`
	Unit       string           `json:"unit,omitempty"`
	MeasuredAt time.Time        `json:"measured_at"`
	Tags       []string         `json:"tags,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	AlertLevel AlertLevel       `json:"alert_level,omitempty"`
	Source     string           `json:"source,omitempty"`
}
