package scheduling

import (
	"math/rand"
	"time"
)

// RandomSlot draws candidate start times uniformly from the window, snaps
// them onto the booking grid, and returns the first candidate whose window
// fits before the window end and conflicts with no busy interval. It gives up
// after maxAttempts draws; ok=false means "no availability", not an error,
// and callers must never fall back to a conflicting slot.
//
// The randomized search is intended for bulk synthetic scheduling, where its
// distribution matters more than completeness: it may miss a valid slot out
// of attempt exhaustion. Interactive booking should use FirstFitSlot.
func RandomSlot(rng *rand.Rand, busy []Interval, window Interval, duration time.Duration, intervalMinutes, maxAttempts int) (Interval, bool) {
	span := window.End.Sub(window.Start)
	if span < 0 {
		return Interval{}, false
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		offset := time.Duration(0)
		if span > 0 {
			offset = time.Duration(rng.Int63n(int64(span) + 1))
		}
		start := RoundDownToInterval(window.Start.Add(offset), intervalMinutes)
		candidate := Interval{Start: start, End: start.Add(duration)}

		if candidate.End.After(window.End) {
			continue
		}
		if conflictsAny(candidate, busy) {
			continue
		}
		return candidate, true
	}
	return Interval{}, false
}

// FirstFitSlot scans grid-aligned start times from the beginning of the
// window and returns the earliest candidate that fits before the window end
// and conflicts with no busy interval. Same contract as RandomSlot, but
// deterministic: ok=false means no aligned slot of the requested duration
// exists in the window.
func FirstFitSlot(busy []Interval, window Interval, duration time.Duration, intervalMinutes int) (Interval, bool) {
	step := time.Duration(intervalMinutes) * time.Minute

	start := RoundDownToInterval(window.Start, intervalMinutes)
	if start.Before(window.Start) {
		start = start.Add(step)
	}

	for ; !start.Add(duration).After(window.End); start = start.Add(step) {
		candidate := Interval{Start: start, End: start.Add(duration)}
		if !conflictsAny(candidate, busy) {
			return candidate, true
		}
	}
	return Interval{}, false
}
