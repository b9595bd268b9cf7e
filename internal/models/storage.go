package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MeasurementRow is a row ready for insertion into the measurements table.
// Exactly one of ValueNum, ValueText, ValueFields is set per row.
type MeasurementRow struct {
	ID          uuid.UUID
	PatientID   int
	MetricType  string
	MeasuredAt  time.Time
	Unit        string
	ValueNum    *float64
	ValueText   *string
	ValueFields []byte // JSON object of named numeric sub-fields
	Tags        []string
	Notes       string
	AlertLevel  string
	Source      string
}

// ToRaw converts a stored row back into the engine's input shape.
// A row whose value columns are all empty degrades to an empty composite,
// which the normalizer treats as non-chartable.
func (r MeasurementRow) ToRaw() RawMeasurement {
	raw := RawMeasurement{
		ID:         r.ID.String(),
		PatientID:  r.PatientID,
		MetricType: r.MetricType,
		Unit:       r.Unit,
		MeasuredAt: r.MeasuredAt,
		Tags:       r.Tags,
		Notes:      r.Notes,
		AlertLevel: AlertLevel(r.AlertLevel),
		Source:     r.Source,
	}

	switch {
	case r.ValueNum != nil:
		raw.Value = ScalarValue(*r.ValueNum)
	case r.ValueText != nil:
		raw.Value = TextValue(*r.ValueText)
	default:
		fields := map[string]float64{}
		if len(r.ValueFields) > 0 {
			// Unparseable stored JSON leaves the fields empty; the point
			// stays in the timeline feed as non-chartable.
			_ = json.Unmarshal(r.ValueFields, &fields)
		}
		raw.Value = FieldsValue(fields)
	}

	return raw
}

// FromRaw converts an engine-shaped measurement into a storable row.
func FromRaw(raw RawMeasurement, id uuid.UUID) MeasurementRow {
	row := MeasurementRow{
		ID:         id,
		PatientID:  raw.PatientID,
		MetricType: raw.MetricType,
		MeasuredAt: raw.MeasuredAt,
		Unit:       raw.Unit,
		Tags:       raw.Tags,
		Notes:      raw.Notes,
		AlertLevel: string(raw.AlertLevel),
		Source:     raw.Source,
	}

	switch raw.Value.Kind {
	case ValueScalar:
		v := raw.Value.Scalar
		row.ValueNum = &v
	case ValueText:
		s := raw.Value.Text
		row.ValueText = &s
	case ValueFields:
		data, err := json.Marshal(raw.Value.Fields)
		if err == nil {
			row.ValueFields = data
		} else {
			row.ValueFields = []byte("{}")
		}
	}

	return row
}
