package ingest

import (
	"encoding/json"

	"github.com/caretrack/rehabd/internal/models"
)

// Payload is the ingest JSON body: a batch of measurements for one patient,
// already shaped by the device bridge or import collaborator. Vendor file
// formats are parsed upstream; this is the record shape they produce.
type Payload struct {
	PatientID    int                  `json:"patient_id"`
	Source       string               `json:"source,omitempty"`
	Measurements []PayloadMeasurement `json:"measurements"`
}

// PayloadMeasurement is one measurement in an ingest payload. Value carries
// the raw JSON so the shape probe in models.MeasurementValue decides between
// scalar, text, and composite sub-fields.
type PayloadMeasurement struct {
	ID         string          `json:"id,omitempty"`
	MetricType string          `json:"metric_type"`
	Value      json.RawMessage `json:"value"`
	Unit       string          `json:"unit,omitempty"`
	MeasuredAt models.FlexTime `json:"measured_at"`
	Tags       []string        `json:"tags,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	AlertLevel string          `json:"alert_level,omitempty"`
	Device     string          `json:"device,omitempty"`
}

// Result holds the outcome of an ingest operation.
type Result struct {
	MeasurementsReceived int      `json:"measurements_received"`
	MeasurementsInserted int64    `json:"measurements_inserted"`
	MeasurementsSkipped  int64    `json:"measurements_skipped"`
	MeasurementsRejected int      `json:"measurements_rejected"`
	RejectedTypes        []string `json:"rejected_types,omitempty"`
	Message              string   `json:"message,omitempty"`
}
