package mealtimings

import (
	"reflect"
	"testing"
)

func timings(times ...string) []Timing {
	out := make([]Timing, len(times))
	for i, t := range times {
		out[i] = Timing{MealNumber: i + 1, Time: t}
	}
	return out
}

func TestReconcile(t *testing.T) {
	current := timings("08:00", "13:00", "19:00")

	tests := []struct {
		name    string
		saved   []Timing
		current []Timing
		want    []Timing
	}{
		{
			name:    "no saved structure uses current",
			saved:   nil,
			current: current,
			want:    current,
		},
		{
			name:    "identical uses current",
			saved:   timings("08:00", "13:00", "19:00"),
			current: current,
			want:    current,
		},
		{
			name:    "saved shorter keeps current",
			saved:   timings("08:00", "13:00"),
			current: current,
			want:    current,
		},
		{
			name:    "saved same length but different wins",
			saved:   timings("09:00", "14:00", "20:00"),
			current: current,
			want:    timings("09:00", "14:00", "20:00"),
		},
		{
			name:    "saved longer wins",
			saved:   timings("08:00", "11:00", "13:00", "19:00"),
			current: current,
			want:    timings("08:00", "11:00", "13:00", "19:00"),
		},
		{
			name:    "empty current with saved present",
			saved:   timings("08:00"),
			current: nil,
			want:    timings("08:00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.saved, tt.current)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reconcile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	cases := [][2][]Timing{
		{nil, timings("08:00", "13:00")},
		{timings("08:00", "13:00"), timings("08:00", "13:00")},
		{timings("09:00"), timings("08:00", "13:00")},
		{timings("09:00", "12:00", "18:00"), timings("08:00", "13:00")},
	}

	for _, c := range cases {
		saved, current := c[0], c[1]
		once := Reconcile(saved, current)
		twice := Reconcile(once, current)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Reconcile not idempotent: first %v, second %v", once, twice)
		}
	}
}

func TestValidateTimings(t *testing.T) {
	if err := ValidateTimings(nil, 12); err == nil {
		t.Error("expected error for empty list")
	}
	if err := ValidateTimings(timings("08:00", "25:00"), 12); err == nil {
		t.Error("expected error for invalid time")
	}
	if err := ValidateTimings([]Timing{{MealNumber: 2, Time: "08:00"}}, 12); err == nil {
		t.Error("expected error for non-contiguous meal numbers")
	}
	if err := ValidateTimings(timings("08:00", "13:00", "19:00"), 2); err == nil {
		t.Error("expected error when over max meals")
	}
	if err := ValidateTimings(timings("08:00", "13:00", "19:00"), 12); err != nil {
		t.Errorf("unexpected error for valid list: %v", err)
	}
}

func TestDefaultTimings(t *testing.T) {
	def := DefaultTimings()
	if len(def) != 7 {
		t.Fatalf("expected 7 default timings, got %d", len(def))
	}
	if err := ValidateTimings(def, 12); err != nil {
		t.Errorf("default timings must validate: %v", err)
	}
}
