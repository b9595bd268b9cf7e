package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Criteria filters the timeline feed. All fields are optional and compose
// as a logical AND; the zero value matches everything.
type Criteria struct {
	Start  *time.Time // inclusive lower bound on timestamp
	End    *time.Time // inclusive upper bound on timestamp
	Types  []string   // metric-type membership; empty means all types
	Search string     // case-insensitive substring over title, summary, notes
}

// GroupBy selects how the filtered feed is grouped.
type GroupBy string

const (
	GroupNone    GroupBy = "none"
	GroupByType  GroupBy = "type"
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// TimelineGroup is a labeled, newest-first run of timeline items.
type TimelineGroup struct {
	Label string            `json:"label"`
	Items []NormalizedPoint `json:"items"`
}

// FilterAndGroup filters points by the criteria, sorts survivors newest
// first (stable, ties keep input order), and groups them. An empty filtered
// set yields an empty group slice. An unknown groupBy is a caller defect and
// is the only error path.
func FilterAndGroup(points []NormalizedPoint, c Criteria, groupBy GroupBy) ([]TimelineGroup, error) {
	switch groupBy {
	case GroupNone, GroupByType, GroupByDay, GroupByWeek, GroupByMonth:
	default:
		return nil, fmt.Errorf("unknown grouping mode %q", groupBy)
	}

	filtered := filterPoints(points, c)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	if len(filtered) == 0 {
		return []TimelineGroup{}, nil
	}

	if groupBy == GroupNone {
		return []TimelineGroup{{Items: filtered}}, nil
	}

	// Group labels in first-occurrence order over the sorted list. For
	// calendar buckets that is newest-bucket-first; for type grouping it is
	// the order types first appear in the feed.
	byLabel := make(map[string]*TimelineGroup)
	var order []string
	for _, p := range filtered {
		label := groupLabel(p, groupBy)
		g, ok := byLabel[label]
		if !ok {
			g = &TimelineGroup{Label: label}
			byLabel[label] = g
			order = append(order, label)
		}
		g.Items = append(g.Items, p)
	}

	groups := make([]TimelineGroup, 0, len(order))
	for _, label := range order {
		groups = append(groups, *byLabel[label])
	}
	return groups, nil
}

func filterPoints(points []NormalizedPoint, c Criteria) []NormalizedPoint {
	var typeSet map[string]bool
	if len(c.Types) > 0 {
		typeSet = make(map[string]bool, len(c.Types))
		for _, t := range c.Types {
			typeSet[t] = true
		}
	}
	term := strings.ToLower(strings.TrimSpace(c.Search))

	filtered := make([]NormalizedPoint, 0, len(points))
	for _, p := range points {
		if c.Start != nil && p.Timestamp.Before(*c.Start) {
			continue
		}
		if c.End != nil && p.Timestamp.After(*c.End) {
			continue
		}
		if typeSet != nil && !typeSet[p.MetricType] {
			continue
		}
		if term != "" && !matchesSearch(p, term) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// matchesSearch checks the lowered term against title, summary, and notes.
func matchesSearch(p NormalizedPoint, term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Summary), term) ||
		strings.Contains(strings.ToLower(p.Notes), term)
}

func groupLabel(p NormalizedPoint, groupBy GroupBy) string {
	switch groupBy {
	case GroupByType:
		return p.Title
	case GroupByDay:
		return DayKey(p.Timestamp)
	case GroupByWeek:
		year, week := p.Timestamp.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default: // GroupByMonth
		return p.Timestamp.Format("2006-01")
	}
}
