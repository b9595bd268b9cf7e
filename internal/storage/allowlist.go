package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// IsMetricAllowed checks if a metric type is in the allowlist and enabled.
// Clinical deployments restrict which measurement types ingest accepts.
func (db *DB) IsMetricAllowed(ctx context.Context, metricType string) (bool, error) {
	var enabled bool
	err := db.Pool.QueryRow(ctx,
		`SELECT enabled FROM metric_allowlist WHERE metric_type = $1`,
		metricType).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking metric allowlist: %w", err)
	}
	return enabled, nil
}

// AllowedMetric represents an entry in the metric allowlist.
type AllowedMetric struct {
	MetricType string `json:"metric_type"`
	Category   string `json:"category"`
	Enabled    bool   `json:"enabled"`
}

// GetAllowedMetrics returns all metric types in the allowlist.
func (db *DB) GetAllowedMetrics(ctx context.Context) ([]AllowedMetric, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT metric_type, category, enabled FROM metric_allowlist ORDER BY category, metric_type`)
	if err != nil {
		return nil, fmt.Errorf("querying allowlist: %w", err)
	}
	defer rows.Close()

	var result []AllowedMetric
	for rows.Next() {
		var m AllowedMetric
		if err := rows.Scan(&m.MetricType, &m.Category, &m.Enabled); err != nil {
			return nil, fmt.Errorf("scanning allowlist: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SetMetricAllowed upserts an allowlist entry.
func (db *DB) SetMetricAllowed(ctx context.Context, metricType, category string, enabled bool) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO metric_allowlist (metric_type, category, enabled)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (metric_type) DO UPDATE SET category = $2, enabled = $3`,
		metricType, category, enabled)
	if err != nil {
		return fmt.Errorf("updating allowlist for %s: %w", metricType, err)
	}
	return nil
}
