package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/caretrack/rehabd/internal/ingest"
	"github.com/caretrack/rehabd/internal/metrics"
	"github.com/caretrack/rehabd/internal/models"
	"github.com/caretrack/rehabd/internal/storage"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload ingest.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	result, err := s.ingest.Ingest(r.Context(), &payload)
	if err != nil {
		s.log.Error("ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleSeries builds the chart view: a calendar grid plus one value-or-null
// series per metric type. With no explicit types, every type present in the
// window gets a series.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	patientID := patientParam(r)
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	policy, err := parseConflictPolicy(r.URL.Query().Get("conflict"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	types := splitTypes(r.URL.Query().Get("types"))
	raws, err := s.db.QueryMeasurements(r.Context(), patientID, start, end, types)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(types) == 0 {
		types = metrics.DistinctTypes(raws)
	}

	view := metrics.BuildSeriesViewWithPolicy(raws, metrics.Window{Start: start, End: end}, types, policy)
	writeJSON(w, http.StatusOK, view)
}

// handleTimeline builds the filtered, grouped feed. Filtering happens in the
// engine rather than SQL so free-text search covers the derived summaries
// (e.g. "120/80") and not just stored columns.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	patientID := patientParam(r)
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	groupBy := metrics.GroupBy(r.URL.Query().Get("group_by"))
	if groupBy == "" {
		groupBy = metrics.GroupNone
	}

	types := splitTypes(r.URL.Query().Get("types"))
	raws, err := s.db.QueryMeasurements(r.Context(), patientID, start, end, types)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	criteria := metrics.Criteria{
		Start:  &start,
		End:    &end,
		Types:  types,
		Search: r.URL.Query().Get("q"),
	}
	groups, err := metrics.BuildTimelineView(raws, criteria, groupBy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleLatestMeasurements(w http.ResponseWriter, r *http.Request) {
	raws, err := s.db.GetLatestMeasurements(r.Context(), patientParam(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, metrics.NormalizeAll(raws))
}

// metricTypeInfo is an allowlist entry joined with the static catalog.
type metricTypeInfo struct {
	MetricType  string `json:"metric_type"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit"`
	Category    string `json:"category"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) handleMetricTypes(w http.ResponseWriter, r *http.Request) {
	allowed, err := s.db.GetAllowedMetrics(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	result := make([]metricTypeInfo, 0, len(allowed))
	for _, m := range allowed {
		result = append(result, metricTypeInfo{
			MetricType:  m.MetricType,
			DisplayName: metrics.DisplayNameFor(m.MetricType),
			Unit:        metrics.UnitFor(m.MetricType),
			Category:    m.Category,
			Enabled:     m.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetMetricAllowed(w http.ResponseWriter, r *http.Request) {
	var entry storage.AllowedMetric
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if entry.MetricType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "metric_type is required"})
		return
	}

	if err := s.db.SetMetricAllowed(r.Context(), entry.MetricType, entry.Category, entry.Enabled); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleIngestLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	logs, err := s.db.QueryIngestLogs(r.Context(), patientParam(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// patientParam returns the patient query parameter, defaulting to 1.
func patientParam(r *http.Request) int {
	if v := r.URL.Query().Get("patient"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			return id
		}
	}
	return 1
}

// splitTypes parses a comma-separated types parameter, dropping empty parts.
func splitTypes(raw string) []string {
	if raw == "" {
		return nil
	}
	var types []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func parseConflictPolicy(raw string) (metrics.ConflictPolicy, error) {
	switch raw {
	case "", "last":
		return metrics.LastByInputOrder, nil
	case "latest":
		return metrics.LastByTimestamp, nil
	case "average":
		return metrics.Average, nil
	default:
		return 0, &badParamError{param: "conflict", value: raw}
	}
}

type badParamError struct {
	param, value string
}

func (e *badParamError) Error() string {
	return "invalid " + e.param + " parameter: " + e.value
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = models.ParseFlexTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if endStr == "" {
		end = time.Now()
		return
	}
	end, err = models.ParseFlexTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	// Date-only ends mean end of that day, so the named day is included.
	if len(endStr) == len(models.FlexDateOnlyLayout) {
		end = end.Add(24*time.Hour - time.Second)
	}
	return
}
