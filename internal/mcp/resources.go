package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/caretrack/rehabd/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) dailySnapshot(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pid := PatientIDFromContext(ctx)

	latest, err := h.db.GetLatestMeasurements(ctx, pid)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	var todaysGroups []metrics.TimelineGroup
	raws, err := h.db.QueryMeasurements(ctx, pid, today, tomorrow, nil)
	if err != nil {
		h.log.Warn("daily_snapshot: measurement query failed", "error", err)
	} else {
		todaysGroups, err = metrics.BuildTimelineView(raws, metrics.Criteria{}, metrics.GroupNone)
		if err != nil {
			return nil, err
		}
	}

	snapshot := map[string]any{
		"date":            today.Format(metrics.DayKeyLayout),
		"latest":          metrics.NormalizeAll(latest),
		"todays_timeline": todaysGroups,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) metricCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	allowed, err := h.db.GetAllowedMetrics(ctx)
	if err != nil {
		return nil, err
	}

	catalog := map[string]any{
		"allowlist": allowed,
		"known":     metrics.Catalog(),
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
