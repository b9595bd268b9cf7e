package sync

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writePayload(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRunSendsNewFiles verifies the full pipeline against a stub server:
// allowlist fetch, filtering, send, and state tracking across two runs.
func TestRunSendsNewFiles(t *testing.T) {
	var received []payloadFile
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/metrics/types":
			json.NewEncoder(w).Encode([]metricTypeInfo{
				{MetricType: "heart_rate", Enabled: true},
				{MetricType: "blood_pressure", Enabled: true},
				{MetricType: "step_count", Enabled: false},
			})
		case "/api/v1/ingest":
			if r.Header.Get("X-API-Key") != "test-key" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			body, _ := io.ReadAll(r.Body)
			var p payloadFile
			if err := json.Unmarshal(body, &p); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			received = append(received, p)
			w.Write([]byte(`{"measurements_inserted":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	writePayload(t, dir, "day1.json", `{
		"patient_id": 3,
		"source": "clinic-tablet",
		"measurements": [
			{"metric_type": "heart_rate", "value": 72, "measured_at": "2024-02-06T08:30:00Z"},
			{"metric_type": "step_count", "value": 4000, "measured_at": "2024-02-06"},
			{"metric_type": "blood_pressure", "value": {"systolic": 120, "diastolic": 80}, "measured_at": "2024-02-06T09:00:00Z"}
		]
	}`)

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := New(NewClient(srv.URL, "test-key"), state, dir, false, 500, log)

	stats, err := syncer.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.FilesSent != 1 {
		t.Errorf("FilesSent = %d, want 1", stats.FilesSent)
	}
	if stats.MeasurementsSent != 2 {
		t.Errorf("MeasurementsSent = %d, want 2 (step_count filtered)", stats.MeasurementsSent)
	}
	if stats.MeasurementsFiltered != 1 {
		t.Errorf("MeasurementsFiltered = %d, want 1", stats.MeasurementsFiltered)
	}
	if len(stats.FilteredTypes) != 1 || stats.FilteredTypes[0] != "step_count" {
		t.Errorf("FilteredTypes = %v", stats.FilteredTypes)
	}

	if len(received) != 1 {
		t.Fatalf("server received %d payloads, want 1", len(received))
	}
	if received[0].PatientID != 3 {
		t.Errorf("patient_id = %d, want 3", received[0].PatientID)
	}
	if len(received[0].Measurements) != 2 {
		t.Errorf("measurements sent = %d, want 2", len(received[0].Measurements))
	}

	// Second run: nothing new
	syncer2 := New(NewClient(srv.URL, "test-key"), state, dir, false, 500, log)
	stats2, err := syncer2.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats2.FilesSkipped != 1 || stats2.FilesSent != 0 {
		t.Errorf("second run: sent=%d skipped=%d, want 0/1", stats2.FilesSent, stats2.FilesSkipped)
	}
	if len(received) != 1 {
		t.Errorf("server received %d payloads after second run, want still 1", len(received))
	}
}

// TestRunDryRun verifies dry-run sends nothing and skips the allowlist fetch.
func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	writePayload(t, dir, "day1.json", `{
		"measurements": [{"metric_type": "heart_rate", "value": 72, "measured_at": "2024-02-06"}]
	}`)

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Unreachable server URL: dry-run must never touch the network.
	syncer := New(NewClient("http://127.0.0.1:1", "key"), state, dir, true, 500, log)

	stats, err := syncer.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesSent != 1 {
		t.Errorf("FilesSent = %d, want 1 (counted, not POSTed)", stats.FilesSent)
	}
	if stats.MeasurementsFiltered != 0 {
		t.Errorf("dry-run should not filter, filtered %d", stats.MeasurementsFiltered)
	}

	// Dry-run must not mark files as sent
	if sent, _ := state.IsSent("day1.json", 0, ""); sent {
		t.Error("dry-run marked file as sent")
	}
}

// TestRunSkipsEmptyAndNonJSON verifies empty payloads are marked sent without
// a POST and non-JSON files are ignored entirely.
func TestRunSkipsEmptyAndNonJSON(t *testing.T) {
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/metrics/types" {
			json.NewEncoder(w).Encode([]metricTypeInfo{{MetricType: "heart_rate", Enabled: true}})
			return
		}
		posts++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writePayload(t, dir, "empty.json", `{"measurements": []}`)
	writePayload(t, dir, "notes.txt", `not a payload`)

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats, err := New(NewClient(srv.URL, "key"), state, dir, false, 500, log).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.FilesTotal != 1 {
		t.Errorf("FilesTotal = %d, want 1 (txt ignored)", stats.FilesTotal)
	}
	if stats.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", stats.FilesSkipped)
	}
	if posts != 0 {
		t.Errorf("empty payload caused %d POSTs, want 0", posts)
	}
}
