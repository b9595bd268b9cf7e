package mcp

import (
	"context"
	"log/slog"

	"github.com/caretrack/rehabd/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const patientIDKey contextKey = iota

// PatientIDFromContext extracts the patient ID injected by the transport layer.
func PatientIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(patientIDKey).(int); ok {
		return id
	}
	return 1
}

// WithPatientID returns a context with the given patient ID.
func WithPatientID(ctx context.Context, patientID int) context.Context {
	return context.WithValue(ctx, patientIDKey, patientID)
}

// New creates an MCP server with all tools and resources registered.
func New(db *storage.DB, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("CareTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("CareTrack rehabilitation data server. Query a patient's health measurements as chart-ready series or as a filtered, grouped timeline. All data is scoped to the requested patient."),
	)

	h := &handlers{db: db, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSeriesView, Handler: h.getSeriesView},
		server.ServerTool{Tool: toolGetTimelineView, Handler: h.getTimelineView},
		server.ServerTool{Tool: toolGetLatestMeasurements, Handler: h.getLatestMeasurements},
		server.ServerTool{Tool: toolListMetricTypes, Handler: h.listMetricTypes},
		server.ServerTool{Tool: toolGetIngestLogs, Handler: h.getIngestLogs},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resDailySnapshot, Handler: h.dailySnapshot},
		server.ServerResource{Resource: resMetricCatalog, Handler: h.metricCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	db  *storage.DB
	log *slog.Logger
}

// --- Resource definitions ---

var resDailySnapshot = mcp.NewResource(
	"caretrack://daily_snapshot",
	"Daily Snapshot",
	mcp.WithResourceDescription("The patient's latest measurement per metric type plus today's timeline entries"),
	mcp.WithMIMEType("application/json"),
)

var resMetricCatalog = mcp.NewResource(
	"caretrack://metric_catalog",
	"Metric Catalog",
	mcp.WithResourceDescription("All metric types the deployment accepts, with categories, units, and enabled status"),
	mcp.WithMIMEType("application/json"),
)
