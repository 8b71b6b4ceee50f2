package scheduling

import "time"

// Interval is a half-open [Start, End) time window.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open windows intersect. Touching
// endpoints do not count as overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv.Start, iv.End, other.Start, other.End)
}

// Overlaps is the half-open interval test: [startA, endA) and [startB, endB)
// intersect iff startA < endB && endA > startB.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}

// RoundDownToInterval snaps t onto the booking grid: the minute component is
// truncated to the nearest lower multiple of intervalMinutes and seconds and
// sub-second fields are zeroed. Already-aligned inputs are returned unchanged.
func RoundDownToInterval(t time.Time, intervalMinutes int) time.Time {
	minute := (t.Minute() / intervalMinutes) * intervalMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// conflictsAny reports whether the candidate window overlaps any busy
// interval.
func conflictsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
