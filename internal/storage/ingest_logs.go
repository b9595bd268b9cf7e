package storage

import (
	"context"
	"fmt"
	"time"
)

// IngestLog represents a single ingest operation's outcome. The dashboard's
// audit view reads these.
type IngestLog struct {
	ID                   int64     `json:"id"`
	PatientID            int       `json:"patient_id"`
	CreatedAt            time.Time `json:"created_at"`
	Source               string    `json:"source"`
	Status               string    `json:"status"`
	MeasurementsReceived int       `json:"measurements_received"`
	MeasurementsInserted int64     `json:"measurements_inserted"`
	MeasurementsRejected int       `json:"measurements_rejected"`
	DurationMs           *int      `json:"duration_ms"`
	ErrorMessage         *string   `json:"error_message"`
}

// InsertIngestLog creates a new ingest log entry and returns its ID.
func (db *DB) InsertIngestLog(ctx context.Context, log IngestLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO ingest_logs (patient_id, source, status, measurements_received, measurements_inserted, measurements_rejected, duration_ms, error_message)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id`,
		log.PatientID, log.Source, log.Status, log.MeasurementsReceived,
		log.MeasurementsInserted, log.MeasurementsRejected, log.DurationMs, log.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting ingest log: %w", err)
	}
	return id, nil
}

// QueryIngestLogs returns the most recent ingest logs for a patient.
func (db *DB) QueryIngestLogs(ctx context.Context, patientID, limit int) ([]IngestLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, patient_id, created_at, source, status, measurements_received, measurements_inserted, measurements_rejected, duration_ms, error_message
		 FROM ingest_logs
		 WHERE patient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ingest logs: %w", err)
	}
	defer rows.Close()

	var result []IngestLog
	for rows.Next() {
		var l IngestLog
		if err := rows.Scan(&l.ID, &l.PatientID, &l.CreatedAt, &l.Source, &l.Status,
			&l.MeasurementsReceived, &l.MeasurementsInserted, &l.MeasurementsRejected,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning ingest log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
