package metrics

import (
	"math"
	"testing"
)

func TestResolveCompositeBloodPressure(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]float64
		want   float64
	}{
		{
			name:   "standard reading",
			fields: map[string]float64{"systolic": 120, "diastolic": 80},
			want:   (120.0 + 160.0) / 3.0,
		},
		{
			name:   "missing diastolic reads as zero",
			fields: map[string]float64{"systolic": 120},
			want:   40,
		},
		{
			name:   "missing systolic reads as zero",
			fields: map[string]float64{"diastolic": 90},
			want:   60,
		},
		{
			name:   "empty fields",
			fields: map[string]float64{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveComposite("blood_pressure", tt.fields)
			if !ok {
				t.Fatal("blood_pressure resolver not registered")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %.6f, want %.6f", got, tt.want)
			}
		})
	}
}

func TestResolveCompositeDoesNotMutateFields(t *testing.T) {
	fields := map[string]float64{"systolic": 120, "diastolic": 80}
	ResolveComposite("blood_pressure", fields)

	if len(fields) != 2 || fields["systolic"] != 120 || fields["diastolic"] != 80 {
		t.Errorf("fields mutated: %v", fields)
	}
}

func TestResolveCompositeUnregisteredType(t *testing.T) {
	if _, ok := ResolveComposite("lab_panel", map[string]float64{"ldl": 130}); ok {
		t.Error("expected no resolver for lab_panel")
	}
}

func TestRegisterComposite(t *testing.T) {
	RegisterComposite("test_ratio", func(f map[string]float64) float64 {
		return f["num"] / 2
	})
	defer delete(compositeResolvers, "test_ratio")

	got, ok := ResolveComposite("test_ratio", map[string]float64{"num": 10})
	if !ok || got != 5 {
		t.Errorf("got %v ok=%v, want 5 true", got, ok)
	}
}
