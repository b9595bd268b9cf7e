package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/caretrack/rehabd/internal/models"
	"github.com/caretrack/rehabd/internal/storage"
	"github.com/google/uuid"
)

// Provider processes measurement payloads and stores accepted rows.
type Provider struct {
	db  *storage.DB
	log *slog.Logger
}

// NewProvider creates a new ingest provider.
func NewProvider(db *storage.DB, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Ingest validates a payload against the metric allowlist, converts accepted
// measurements to rows, batch-inserts them, and records an ingest log entry.
// Individual malformed measurements are skipped, not fatal.
func (p *Provider) Ingest(ctx context.Context, payload *Payload) (*Result, error) {
	started := time.Now()
	result := &Result{}

	patientID := payload.PatientID
	if patientID == 0 {
		patientID = 1
	}

	var rows []models.MeasurementRow
	allowCache := map[string]bool{}
	rejectedSet := map[string]bool{}

	for _, m := range payload.Measurements {
		result.MeasurementsReceived++

		allowed, known := allowCache[m.MetricType]
		if !known {
			var err error
			allowed, err = p.db.IsMetricAllowed(ctx, m.MetricType)
			if err != nil {
				return result, fmt.Errorf("checking allowlist for %s: %w", m.MetricType, err)
			}
			allowCache[m.MetricType] = allowed
		}
		if !allowed {
			if !rejectedSet[m.MetricType] {
				result.RejectedTypes = append(result.RejectedTypes, m.MetricType)
				rejectedSet[m.MetricType] = true
			}
			result.MeasurementsRejected++
			continue
		}

		row, err := convertMeasurement(m, patientID, payload.Source)
		if err != nil {
			p.log.Warn("skipping measurement", "metric_type", m.MetricType, "error", err)
			continue
		}
		rows = append(rows, *row)
	}

	if len(rows) > 0 {
		inserted, err := p.db.InsertMeasurements(ctx, rows)
		if err != nil {
			p.recordLog(ctx, patientID, payload.Source, "error", result, started, err)
			return result, fmt.Errorf("inserting measurements: %w", err)
		}
		result.MeasurementsInserted = inserted
		result.MeasurementsSkipped = int64(len(rows)) - inserted
	}

	if len(result.RejectedTypes) > 0 {
		result.Message = fmt.Sprintf(
			"Some measurements were rejected because their metric types are not in the allowlist: %v. "+
				"Accepted measurements are stored. Check GET /api/v1/metrics/types for the full list.",
			result.RejectedTypes)
	}

	p.recordLog(ctx, patientID, payload.Source, "success", result, started, nil)
	return result, nil
}

// convertMeasurement converts a payload measurement into a storable row.
func convertMeasurement(m PayloadMeasurement, patientID int, source string) (*models.MeasurementRow, error) {
	if m.MetricType == "" {
		return nil, fmt.Errorf("missing metric_type")
	}
	if m.MeasuredAt.IsZero() {
		return nil, fmt.Errorf("missing measured_at")
	}
	if len(m.Value) == 0 {
		return nil, fmt.Errorf("missing value")
	}

	var value models.MeasurementValue
	if err := json.Unmarshal(m.Value, &value); err != nil {
		return nil, fmt.Errorf("parsing value: %w", err)
	}

	id := uuid.New()
	if m.ID != "" {
		parsed, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid measurement ID %q: %w", m.ID, err)
		}
		id = parsed
	}

	if m.Device != "" {
		source = m.Device
	}

	alertLevel := m.AlertLevel
	switch alertLevel {
	case "", string(models.AlertNone):
		alertLevel = string(models.AlertNone)
	case string(models.AlertWarning), string(models.AlertCritical):
	default:
		return nil, fmt.Errorf("invalid alert_level %q", m.AlertLevel)
	}

	raw := models.RawMeasurement{
		PatientID:  patientID,
		MetricType: m.MetricType,
		Value:      value,
		Unit:       m.Unit,
		MeasuredAt: m.MeasuredAt.Time,
		Tags:       m.Tags,
		Notes:      m.Notes,
		AlertLevel: models.AlertLevel(alertLevel),
		Source:     source,
	}
	row := models.FromRaw(raw, id)
	return &row, nil
}

func (p *Provider) recordLog(ctx context.Context, patientID int, source, status string, result *Result, started time.Time, ingestErr error) {
	durationMs := int(time.Since(started).Milliseconds())
	logEntry := storage.IngestLog{
		PatientID:            patientID,
		Source:               source,
		Status:               status,
		MeasurementsReceived: result.MeasurementsReceived,
		MeasurementsInserted: result.MeasurementsInserted,
		MeasurementsRejected: result.MeasurementsRejected,
		DurationMs:           &durationMs,
	}
	if ingestErr != nil {
		msg := ingestErr.Error()
		logEntry.ErrorMessage = &msg
	}
	if _, err := p.db.InsertIngestLog(ctx, logEntry); err != nil {
		p.log.Warn("failed to record ingest log", "error", err)
	}
}
