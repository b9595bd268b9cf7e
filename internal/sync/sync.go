// Package sync implements the device-bridge side of ingest: it walks a
// directory of exported JSON payload files, skips files already sent, filters
// measurements against the server's metric-type allowlist, and POSTs the rest
// to the ingest endpoint.
package sync

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Stats tracks sync progress.
type Stats struct {
	FilesTotal   int
	FilesSent    int
	FilesSkipped int
	FilesErrored int

	MeasurementsSent     int
	MeasurementsFiltered int

	FilteredTypes []string
}

// payloadFile mirrors the ingest payload shape without importing the ingest
// package (which would pull in pgx and other server-side dependencies).
// Measurements stay raw so the syncer never reinterprets value shapes.
type payloadFile struct {
	PatientID    int               `json:"patient_id"`
	Source       string            `json:"source,omitempty"`
	Measurements []json.RawMessage `json:"measurements"`
}

// measurementProbe extracts just the metric type for allowlist filtering.
type measurementProbe struct {
	MetricType string `json:"metric_type"`
}

// Syncer walks an export directory and sends new payload files to the server.
type Syncer struct {
	client    *Client
	state     *StateDB
	dir       string
	dryRun    bool
	batchSize int
	log       *slog.Logger
	stats     Stats
}

// New creates a new Syncer. batchSize caps the measurements per request.
func New(client *Client, state *StateDB, dir string, dryRun bool, batchSize int, log *slog.Logger) *Syncer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Syncer{
		client:    client,
		state:     state,
		dir:       dir,
		dryRun:    dryRun,
		batchSize: batchSize,
		log:       log,
	}
}

// Run executes the sync pipeline.
func (s *Syncer) Run() (*Stats, error) {
	// Fetch the allowlist from the server (skip in dry-run — accept all types)
	var enabled map[string]bool
	if !s.dryRun {
		var err error
		enabled, err = s.client.FetchMetricTypes()
		if err != nil {
			return &s.stats, fmt.Errorf("fetching metric types: %w", err)
		}
		s.log.Info("fetched metric types", "enabled", len(enabled))
	}

	filteredSet := map[string]bool{}

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		s.processFile(path, enabled, filteredSet)
		return nil
	})
	if err != nil {
		return &s.stats, fmt.Errorf("walking %s: %w", s.dir, err)
	}

	if !s.dryRun && s.stats.FilesErrored == 0 {
		if err := s.state.SetSyncState("last_sync", time.Now().Format(time.RFC3339)); err != nil {
			s.log.Warn("failed to save sync state", "error", err)
		}
	}

	return &s.stats, nil
}

// processFile sends one payload file if it is new. Errors are counted, not
// fatal, so one bad file never stalls the rest of the export.
func (s *Syncer) processFile(path string, enabled map[string]bool, filteredSet map[string]bool) {
	s.stats.FilesTotal++

	relPath, _ := filepath.Rel(s.dir, path)
	info, err := os.Stat(path)
	if err != nil {
		s.log.Warn("stat failed", "file", path, "error", err)
		s.stats.FilesErrored++
		return
	}

	hash, err := HashFile(path)
	if err != nil {
		s.log.Warn("hash failed", "file", path, "error", err)
		s.stats.FilesErrored++
		return
	}

	sent, err := s.state.IsSent(relPath, info.Size(), hash)
	if err != nil {
		s.log.Warn("state check failed", "file", path, "error", err)
		s.stats.FilesErrored++
		return
	}
	if sent {
		s.stats.FilesSkipped++
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("read failed", "file", path, "error", err)
		s.stats.FilesErrored++
		return
	}

	var payload payloadFile
	if err := json.Unmarshal(data, &payload); err != nil {
		s.log.Warn("parse failed", "file", path, "error", err)
		s.stats.FilesErrored++
		return
	}

	if len(payload.Measurements) == 0 {
		s.stats.FilesSkipped++
		// Mark empty files as sent so we don't re-check them
		_ = s.state.MarkSent(relPath, info.Size(), hash)
		return
	}

	keep := s.filterMeasurements(payload.Measurements, enabled, filteredSet)
	if len(keep) == 0 {
		s.stats.FilesSkipped++
		_ = s.state.MarkSent(relPath, info.Size(), hash)
		return
	}

	for i := 0; i < len(keep); i += s.batchSize {
		end := min(i+s.batchSize, len(keep))
		batch := payloadFile{
			PatientID:    payload.PatientID,
			Source:       payload.Source,
			Measurements: keep[i:end],
		}

		if s.dryRun {
			s.log.Info("dry-run: would send", "file", relPath, "measurements", len(batch.Measurements))
		} else {
			if err := s.client.SendPayload(batch); err != nil {
				s.log.Warn("send failed", "file", relPath, "error", err)
				s.stats.FilesErrored++
				return
			}
		}
		s.stats.MeasurementsSent += len(batch.Measurements)
	}

	if !s.dryRun {
		if err := s.state.MarkSent(relPath, info.Size(), hash); err != nil {
			s.log.Warn("failed to mark sent", "file", relPath, "error", err)
		}
	}
	s.stats.FilesSent++
	s.log.Info("sent payload", "file", relPath, "measurements", len(keep))
}

// filterMeasurements drops measurements whose type is not enabled server-side.
// A nil allowlist (dry-run) keeps everything.
func (s *Syncer) filterMeasurements(measurements []json.RawMessage, enabled map[string]bool, filteredSet map[string]bool) []json.RawMessage {
	if enabled == nil {
		return measurements
	}

	keep := make([]json.RawMessage, 0, len(measurements))
	for _, raw := range measurements {
		var probe measurementProbe
		if err := json.Unmarshal(raw, &probe); err != nil || !enabled[probe.MetricType] {
			if probe.MetricType != "" && !filteredSet[probe.MetricType] {
				s.stats.FilteredTypes = append(s.stats.FilteredTypes, probe.MetricType)
				filteredSet[probe.MetricType] = true
			}
			s.stats.MeasurementsFiltered++
			continue
		}
		keep = append(keep, raw)
	}
	return keep
}
