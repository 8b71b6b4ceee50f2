package scheduling

import (
	"testing"
	"time"
)

func TestRoundDownToInterval(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Time
		interval int
		want     time.Time
	}{
		{
			name:     "rounds down within the hour",
			in:       time.Date(2026, 10, 1, 12, 7, 0, 0, time.UTC),
			interval: 10,
			want:     time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "aligned input unchanged",
			in:       time.Date(2026, 10, 1, 12, 50, 0, 0, time.UTC),
			interval: 10,
			want:     time.Date(2026, 10, 1, 12, 50, 0, 0, time.UTC),
		},
		{
			name:     "seconds and nanoseconds zeroed",
			in:       time.Date(2026, 10, 1, 12, 10, 59, 123, time.UTC),
			interval: 10,
			want:     time.Date(2026, 10, 1, 12, 10, 0, 0, time.UTC),
		},
		{
			name:     "fifteen minute grid",
			in:       time.Date(2026, 10, 1, 12, 44, 0, 0, time.UTC),
			interval: 15,
			want:     time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundDownToInterval(tt.in, tt.interval)
			if !got.Equal(tt.want) {
				t.Errorf("RoundDownToInterval(%v, %d) = %v, want %v", tt.in, tt.interval, got, tt.want)
			}
		})
	}
}

func TestRoundDownToInterval_Idempotent(t *testing.T) {
	in := time.Date(2026, 10, 1, 12, 7, 30, 0, time.UTC)
	once := RoundDownToInterval(in, 10)
	twice := RoundDownToInterval(once, 10)
	if !once.Equal(twice) {
		t.Errorf("rounding is not idempotent: %v then %v", once, twice)
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 10, 1, h, m, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", Interval{at(9, 0), at(9, 30)}, Interval{at(10, 0), at(10, 30)}, false},
		{"touching end to start", Interval{at(9, 0), at(10, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"partial overlap", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 30), at(10, 30)}, true},
		{"containment", Interval{at(9, 0), at(11, 0)}, Interval{at(9, 30), at(10, 0)}, true},
		{"identical", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			// symmetry
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterval_Duration(t *testing.T) {
	iv := Interval{
		Start: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 10, 1, 9, 40, 0, 0, time.UTC),
	}
	if got := iv.Duration(); got != 40*time.Minute {
		t.Errorf("Duration = %v, want 40m", got)
	}
}
