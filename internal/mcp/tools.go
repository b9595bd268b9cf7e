package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caretrack/rehabd/internal/metrics"
	"github.com/caretrack/rehabd/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = models.ParseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = models.ParseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

// splitCSV parses a comma-separated list, dropping empty parts.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

// --- Tool definitions ---

var toolGetSeriesView = mcp.NewTool("get_series_view",
	mcp.WithDescription("Build a chart-ready calendar view: one entry per day in the range, and one aligned series per metric type with a value or null for each day. Blood pressure resolves to mean arterial pressure."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("types", mcp.Description("Comma-separated metric types (e.g. 'heart_rate,blood_pressure'). Defaults to every type present in the range.")),
	mcp.WithString("conflict", mcp.Description("How same-day duplicates collapse. Defaults to 'last' (last by input order)."), mcp.Enum("last", "latest", "average")),
)

var toolGetTimelineView = mcp.NewTool("get_timeline_view",
	mcp.WithDescription("Build the patient's measurement feed, newest first, with optional filtering and grouping. Free-text search covers titles, derived summaries (e.g. '120/80'), and notes."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("types", mcp.Description("Comma-separated metric types to include. Defaults to all.")),
	mcp.WithString("q", mcp.Description("Case-insensitive search over title, summary, and notes.")),
	mcp.WithString("group_by", mcp.Description("Grouping mode. Defaults to 'none'."), mcp.Enum("none", "type", "day", "week", "month")),
)

var toolGetLatestMeasurements = mcp.NewTool("get_latest_measurements",
	mcp.WithDescription("Get the patient's most recent measurement per metric type, normalized for display (title, summary, chart value)."),
)

var toolListMetricTypes = mcp.NewTool("list_metric_types",
	mcp.WithDescription("List all metric types the deployment accepts, with categories and enabled status."),
)

var toolGetIngestLogs = mcp.NewTool("get_ingest_logs",
	mcp.WithDescription("Get recent ingest operations for the patient: source, status, counts, and errors."),
	mcp.WithString("limit", mcp.Description("Maximum entries to return. Defaults to 50.")),
)

// --- Tool handlers ---

func (h *handlers) getSeriesView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	policy := metrics.LastByInputOrder
	switch req.GetString("conflict", "last") {
	case "last":
	case "latest":
		policy = metrics.LastByTimestamp
	case "average":
		policy = metrics.Average
	default:
		return mcp.NewToolResultError("invalid conflict parameter"), nil
	}

	types := splitCSV(req.GetString("types", ""))
	pid := PatientIDFromContext(ctx)

	raws, err := h.db.QueryMeasurements(ctx, pid, start, end, types)
	if err != nil {
		h.log.Error("mcp get_series_view", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if len(types) == 0 {
		types = metrics.DistinctTypes(raws)
	}

	view := metrics.BuildSeriesViewWithPolicy(raws, metrics.Window{Start: start, End: end}, types, policy)
	result, err := mcp.NewToolResultJSON(view)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTimelineView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	types := splitCSV(req.GetString("types", ""))
	pid := PatientIDFromContext(ctx)

	raws, err := h.db.QueryMeasurements(ctx, pid, start, end, types)
	if err != nil {
		h.log.Error("mcp get_timeline_view", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	criteria := metrics.Criteria{
		Start:  &start,
		End:    &end,
		Types:  types,
		Search: req.GetString("q", ""),
	}
	groups, err := metrics.BuildTimelineView(raws, criteria, metrics.GroupBy(req.GetString("group_by", "none")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(groups)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getLatestMeasurements(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid := PatientIDFromContext(ctx)

	raws, err := h.db.GetLatestMeasurements(ctx, pid)
	if err != nil {
		h.log.Error("mcp get_latest_measurements", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(metrics.NormalizeAll(raws))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listMetricTypes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	allowed, err := h.db.GetAllowedMetrics(ctx)
	if err != nil {
		h.log.Error("mcp list_metric_types", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(allowed)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getIngestLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if v := req.GetString("limit", ""); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			return mcp.NewToolResultError("invalid limit: " + err.Error()), nil
		}
		limit = parsed
	}

	pid := PatientIDFromContext(ctx)
	logs, err := h.db.QueryIngestLogs(ctx, pid, limit)
	if err != nil {
		h.log.Error("mcp get_ingest_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(logs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
