package metrics

import "time"

// DayKeyLayout is the calendar grid's date key format.
const DayKeyLayout = "2006-01-02"

// CalendarGrid is an ordered, gap-free, strictly increasing sequence of day
// keys spanning a reporting window inclusive of both endpoints.
type CalendarGrid []string

// DayKey formats a timestamp's date portion as a grid key in the
// timestamp's own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// BuildGrid produces the day grid covering [start, end]. Time-of-day is
// discarded; no timezone conversion happens, so callers pass
// already-localized boundaries. start after end yields an empty grid.
func BuildGrid(start, end time.Time) CalendarGrid {
	start = truncateToDay(start)
	end = truncateToDay(end)
	if start.After(end) {
		return CalendarGrid{}
	}

	grid := CalendarGrid{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		grid = append(grid, DayKey(d))
	}
	return grid
}

// Index returns the grid position for a day key, or -1 when the key falls
// outside the grid.
func (g CalendarGrid) Index(dayKey string) int {
	for i, key := range g {
		if key == dayKey {
			return i
		}
	}
	return -1
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
