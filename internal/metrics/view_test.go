package metrics

import (
	"reflect"
	"testing"
	"time"

	"github.com/caretrack/rehabd/internal/models"
)

func testRaws() []models.RawMeasurement {
	return []models.RawMeasurement{
		{
			ID:         "hr-day1",
			MetricType: "heart_rate",
			Value:      models.ScalarValue(71),
			MeasuredAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:         "bp-day2",
			MetricType: "blood_pressure",
			Value:      models.FieldsValue(map[string]float64{"systolic": 130, "diastolic": 85}),
			MeasuredAt: time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC),
			Notes:      "clinic visit",
		},
		{
			ID:         "lab-day2",
			MetricType: "lab_result",
			Value:      models.TextValue("negative"),
			MeasuredAt: time.Date(2024, 2, 2, 11, 0, 0, 0, time.UTC),
		},
		{
			ID:         "hr-day3",
			MetricType: "heart_rate",
			Value:      models.ScalarValue(75),
			MeasuredAt: time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC),
		},
	}
}

func testWindow() Window {
	return Window{
		Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildSeriesView(t *testing.T) {
	view := BuildSeriesView(testRaws(), testWindow(), []string{"heart_rate", "blood_pressure"})

	if len(view.Grid) != 3 {
		t.Fatalf("grid len = %d, want 3", len(view.Grid))
	}
	for metricType, series := range view.Series {
		if len(series) != len(view.Grid) {
			t.Errorf("%s series len = %d, want %d", metricType, len(series), len(view.Grid))
		}
	}

	hr := view.Series["heart_rate"]
	if hr[0].Value == nil || *hr[0].Value != 71 {
		t.Errorf("hr day 1 = %v, want 71", ptr(hr[0].Value))
	}
	if hr[1].Value != nil {
		t.Errorf("hr day 2 = %v, want nil", *hr[1].Value)
	}
	if hr[2].Value == nil || *hr[2].Value != 75 {
		t.Errorf("hr day 3 = %v, want 75", ptr(hr[2].Value))
	}

	bp := view.Series["blood_pressure"]
	if bp[1].Value == nil {
		t.Fatal("bp day 2 missing")
	}
	want := (130.0 + 170.0) / 3.0
	if *bp[1].Value != want {
		t.Errorf("bp day 2 = %v, want %v", *bp[1].Value, want)
	}
}

func TestBuildSeriesViewIdempotent(t *testing.T) {
	a := BuildSeriesView(testRaws(), testWindow(), []string{"heart_rate"})
	b := BuildSeriesView(testRaws(), testWindow(), []string{"heart_rate"})
	if !reflect.DeepEqual(a, b) {
		t.Error("identical arguments produced different series views")
	}
}

func TestBuildSeriesViewDoesNotMutateInput(t *testing.T) {
	raws := testRaws()
	BuildSeriesView(raws, testWindow(), []string{"blood_pressure"})

	if raws[1].Value.Fields["systolic"] != 130 || raws[1].Value.Fields["diastolic"] != 85 {
		t.Errorf("input measurement mutated: %v", raws[1].Value.Fields)
	}
}

func TestBuildTimelineViewIncludesNonChartable(t *testing.T) {
	groups, err := BuildTimelineView(testRaws(), Criteria{}, GroupNone)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Items) != 4 {
		t.Fatalf("timeline should keep all four points, got %v", groups)
	}

	var sawText bool
	for _, p := range groups[0].Items {
		if p.ID == "lab-day2" {
			sawText = true
			if p.Chartable() {
				t.Error("text lab result should be non-chartable")
			}
		}
	}
	if !sawText {
		t.Error("non-chartable point dropped from timeline")
	}
}

func TestBuildTimelineViewIdempotent(t *testing.T) {
	a, err := BuildTimelineView(testRaws(), Criteria{Search: "clinic"}, GroupByType)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildTimelineView(testRaws(), Criteria{Search: "clinic"}, GroupByType)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical arguments produced different timeline views")
	}
}

func TestDistinctTypes(t *testing.T) {
	types := DistinctTypes(testRaws())
	want := []string{"heart_rate", "blood_pressure", "lab_result"}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("types = %v, want %v (first-seen order)", types, want)
	}
}
