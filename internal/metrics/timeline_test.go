package metrics

import (
	"testing"
	"time"

	"github.com/caretrack/rehabd/internal/models"
)

func feedPoint(id, metricType string, ts time.Time, notes string) NormalizedPoint {
	v := 1.0
	return NormalizedPoint{
		ID:           id,
		MetricType:   metricType,
		Title:        DisplayNameFor(metricType),
		Notes:        notes,
		Timestamp:    ts,
		DisplayValue: &v,
	}
}

func testFeed() []NormalizedPoint {
	return []NormalizedPoint{
		feedPoint("hr1", "heart_rate", time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), ""),
		feedPoint("bp1", "blood_pressure", time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), "after lunch"),
		feedPoint("hr2", "heart_rate", time.Date(2024, 2, 8, 9, 0, 0, 0, time.UTC), ""),
		feedPoint("wt1", "weight_body_mass", time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC), ""),
	}
}

func ids(groups []TimelineGroup) []string {
	var out []string
	for _, g := range groups {
		for _, p := range g.Items {
			out = append(out, p.ID)
		}
	}
	return out
}

func TestFilterAndGroupNoneSortsNewestFirst(t *testing.T) {
	groups, err := FilterAndGroup(testFeed(), Criteria{}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	want := []string{"wt1", "hr2", "bp1", "hr1"}
	got := ids(groups)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestFilterByTypeIsPureIntersection(t *testing.T) {
	all, err := FilterAndGroup(testFeed(), Criteria{}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}
	hr, err := FilterAndGroup(testFeed(), Criteria{Types: []string{"heart_rate"}}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}

	allIDs := map[string]bool{}
	for _, id := range ids(all) {
		allIDs[id] = true
	}
	for _, g := range hr {
		for _, p := range g.Items {
			if p.MetricType != "heart_rate" {
				t.Errorf("leaked type %q", p.MetricType)
			}
			if !allIDs[p.ID] {
				t.Errorf("item %q not a subset of the unfiltered feed", p.ID)
			}
		}
	}
	if len(ids(hr)) != 2 {
		t.Errorf("heart_rate items = %d, want 2", len(ids(hr)))
	}
}

func TestFilterByTimeWindowInclusive(t *testing.T) {
	start := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) // exactly bp1
	end := time.Date(2024, 2, 8, 9, 0, 0, 0, time.UTC)    // exactly hr2

	groups, err := FilterAndGroup(testFeed(), Criteria{Start: &start, End: &end}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}
	got := ids(groups)
	if len(got) != 2 || got[0] != "hr2" || got[1] != "bp1" {
		t.Errorf("window result = %v, want [hr2 bp1] (bounds inclusive)", got)
	}
}

func TestFreeTextSearch(t *testing.T) {
	tests := []struct {
		name    string
		search  string
		groupBy GroupBy
		wantIDs []string
	}{
		{name: "notes match", search: "lunch", groupBy: GroupNone, wantIDs: []string{"bp1"}},
		{name: "notes match survives grouping", search: "LUNCH", groupBy: GroupByType, wantIDs: []string{"bp1"}},
		{name: "title match", search: "blood pressure", groupBy: GroupNone, wantIDs: []string{"bp1"}},
		{name: "no match", search: "marathon", groupBy: GroupNone, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := FilterAndGroup(testFeed(), Criteria{Search: tt.search}, tt.groupBy)
			if err != nil {
				t.Fatal(err)
			}
			got := ids(groups)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", got, tt.wantIDs)
			}
			for i := range tt.wantIDs {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("got %v, want %v", got, tt.wantIDs)
				}
			}
		})
	}
}

func TestSearchMatchesSummary(t *testing.T) {
	p := Normalize(models.RawMeasurement{
		MetricType: "blood_pressure",
		Value:      models.FieldsValue(map[string]float64{"systolic": 120, "diastolic": 80}),
		MeasuredAt: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
	})

	groups, err := FilterAndGroup([]NormalizedPoint{p}, Criteria{Search: "120/80"}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Items) != 1 {
		t.Errorf("summary search missed the formatted value")
	}
}

func TestGroupByTypePartitionsExactly(t *testing.T) {
	feed := testFeed()
	groups, err := FilterAndGroup(feed, Criteria{}, GroupByType)
	if err != nil {
		t.Fatal(err)
	}

	// First-occurrence order over the newest-first feed.
	wantLabels := []string{"Weight", "Heart rate", "Blood pressure"}
	if len(groups) != len(wantLabels) {
		t.Fatalf("groups = %d, want %d", len(groups), len(wantLabels))
	}
	for i, g := range groups {
		if g.Label != wantLabels[i] {
			t.Errorf("group %d label = %q, want %q", i, g.Label, wantLabels[i])
		}
	}

	seen := map[string]int{}
	for _, id := range ids(groups) {
		seen[id]++
	}
	if len(seen) != len(feed) {
		t.Errorf("partition lost items: %v", seen)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("item %q appears %d times", id, n)
		}
	}
}

func TestGroupByCalendarBuckets(t *testing.T) {
	tests := []struct {
		name       string
		groupBy    GroupBy
		wantLabels []string
	}{
		{name: "day", groupBy: GroupByDay, wantLabels: []string{"2024-03-02", "2024-02-08", "2024-02-01"}},
		{name: "week", groupBy: GroupByWeek, wantLabels: []string{"2024-W09", "2024-W06", "2024-W05"}},
		{name: "month", groupBy: GroupByMonth, wantLabels: []string{"2024-03", "2024-02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := FilterAndGroup(testFeed(), Criteria{}, tt.groupBy)
			if err != nil {
				t.Fatal(err)
			}
			if len(groups) != len(tt.wantLabels) {
				t.Fatalf("groups = %d, want %d", len(groups), len(tt.wantLabels))
			}
			for i, g := range groups {
				if g.Label != tt.wantLabels[i] {
					t.Errorf("group %d label = %q, want %q", i, g.Label, tt.wantLabels[i])
				}
				for j := 1; j < len(g.Items); j++ {
					if g.Items[j].Timestamp.After(g.Items[j-1].Timestamp) {
						t.Errorf("group %q items not newest-first", g.Label)
					}
				}
			}
		})
	}
}

func TestStableTieOrder(t *testing.T) {
	ts := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	feed := []NormalizedPoint{
		feedPoint("first", "heart_rate", ts, ""),
		feedPoint("second", "heart_rate", ts, ""),
		feedPoint("third", "heart_rate", ts, ""),
	}

	groups, err := FilterAndGroup(feed, Criteria{}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}
	got := ids(groups)
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order = %v, want input order %v", got, want)
		}
	}
}

func TestEmptyFilteredSetYieldsEmptyGroupList(t *testing.T) {
	groups, err := FilterAndGroup(testFeed(), Criteria{Types: []string{"blood_glucose"}}, GroupByDay)
	if err != nil {
		t.Fatal(err)
	}
	if groups == nil {
		t.Fatal("want empty slice, got nil")
	}
	if len(groups) != 0 {
		t.Errorf("groups = %d, want 0 (no empty group placeholder)", len(groups))
	}
}

func TestInvalidGroupByErrors(t *testing.T) {
	if _, err := FilterAndGroup(testFeed(), Criteria{}, GroupBy("year")); err == nil {
		t.Error("unknown grouping mode must error")
	}
	// Validated even for empty input: it is a caller defect, not data variability.
	if _, err := FilterAndGroup(nil, Criteria{}, GroupBy("bogus")); err == nil {
		t.Error("unknown grouping mode must error on empty input too")
	}
}
