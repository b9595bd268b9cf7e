package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caretrack/rehabd/internal/models"
	"github.com/jackc/pgx/v5"
)

// InsertMeasurements batch-inserts measurement rows. Returns the number
// actually inserted (duplicates are skipped via ON CONFLICT DO NOTHING).
func (db *DB) InsertMeasurements(ctx context.Context, rows []models.MeasurementRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO measurements (id, patient_id, metric_type, measured_at, unit, value_num, value_text, value_fields, tags, notes, alert_level, source)
VALUES `
	args := make([]any, 0, len(rows)*12)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 12
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args, r.ID, r.PatientID, r.MetricType, r.MeasuredAt, r.Unit,
			r.ValueNum, r.ValueText, r.ValueFields, r.Tags, r.Notes, r.AlertLevel, r.Source)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting measurements: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryMeasurements retrieves a patient's measurements in a time range,
// optionally restricted to a set of metric types, ordered by time ascending.
// The returned slice is in the engine's input shape.
func (db *DB) QueryMeasurements(ctx context.Context, patientID int, start, end time.Time, types []string) ([]models.RawMeasurement, error) {
	query := `SELECT id, patient_id, metric_type, measured_at, unit, value_num, value_text, value_fields, tags, notes, alert_level, source
	 FROM measurements
	 WHERE patient_id = $1 AND measured_at >= $2 AND measured_at < $3`
	args := []any{patientID, start, end}

	if len(types) > 0 {
		query += ` AND metric_type = ANY($4)`
		args = append(args, types)
	}
	query += ` ORDER BY measured_at ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer rows.Close()

	return scanMeasurementRows(rows)
}

// GetLatestMeasurements returns the most recent measurement per metric type
// for a patient.
func (db *DB) GetLatestMeasurements(ctx context.Context, patientID int) ([]models.RawMeasurement, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (metric_type) id, patient_id, metric_type, measured_at, unit, value_num, value_text, value_fields, tags, notes, alert_level, source
		 FROM measurements
		 WHERE patient_id = $1
		 ORDER BY metric_type, measured_at DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("querying latest measurements: %w", err)
	}
	defer rows.Close()

	return scanMeasurementRows(rows)
}

func scanMeasurementRows(rows pgx.Rows) ([]models.RawMeasurement, error) {
	var result []models.RawMeasurement
	for rows.Next() {
		var r models.MeasurementRow
		if err := rows.Scan(&r.ID, &r.PatientID, &r.MetricType, &r.MeasuredAt, &r.Unit,
			&r.ValueNum, &r.ValueText, &r.ValueFields, &r.Tags, &r.Notes, &r.AlertLevel, &r.Source); err != nil {
			return nil, fmt.Errorf("scanning measurement row: %w", err)
		}
		result = append(result, r.ToRaw())
	}
	return result, rows.Err()
}
