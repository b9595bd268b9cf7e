package metrics

import "time"

// SeriesPoint pairs a grid day with an optional value. A nil Value means no
// sample on that day; it is never coerced to zero.
type SeriesPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// SeriesSet maps metric type to a series aligned 1:1 with the calendar grid.
type SeriesSet map[string][]SeriesPoint

// ConflictPolicy names how multiple samples on the same (type, day) cell
// collapse to one value.
type ConflictPolicy int

const (
	// LastByInputOrder keeps the last sample in the caller-supplied order.
	// This is the default and is deterministic for a fixed input order.
	LastByInputOrder ConflictPolicy = iota
	// LastByTimestamp keeps the sample with the latest timestamp.
	LastByTimestamp
	// Average keeps the arithmetic mean of the day's samples.
	Average
)

// Project maps normalized points onto the grid for the requested types.
// Only chartable points of a requested type whose date falls inside the grid
// participate; everything else is silently dropped from the series. Every
// requested type gets a series of exactly the grid's length.
func Project(points []NormalizedPoint, grid CalendarGrid, types []string, policy ConflictPolicy) SeriesSet {
	dayIndex := make(map[string]int, len(grid))
	for i, key := range grid {
		dayIndex[key] = i
	}

	set := make(SeriesSet, len(types))
	for _, t := range types {
		if _, ok := set[t]; ok {
			continue
		}
		series := make([]SeriesPoint, len(grid))
		for i, key := range grid {
			series[i] = SeriesPoint{Date: key}
		}
		set[t] = series
	}

	type cell struct {
		sum   float64
		count int
		ts    time.Time
	}
	cells := make(map[string][]cell, len(set))
	for t := range set {
		cells[t] = make([]cell, len(grid))
	}

	for _, p := range points {
		if !p.Chartable() {
			continue
		}
		series, wanted := set[p.MetricType]
		if !wanted {
			continue
		}
		idx, inGrid := dayIndex[DayKey(p.Timestamp)]
		if !inGrid {
			continue
		}

		v := *p.DisplayValue
		switch policy {
		case Average:
			c := &cells[p.MetricType][idx]
			c.sum += v
			c.count++
			avg := c.sum / float64(c.count)
			series[idx].Value = &avg
		case LastByTimestamp:
			c := &cells[p.MetricType][idx]
			if series[idx].Value == nil || !p.Timestamp.Before(c.ts) {
				c.ts = p.Timestamp
				val := v
				series[idx].Value = &val
			}
		default: // LastByInputOrder
			val := v
			series[idx].Value = &val
		}
	}

	return set
}
