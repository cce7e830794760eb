package availability

import (
	"time"

	"chairbook/internal/domain"
)

// Request describes one slot computation for a single worker and day.
type Request struct {
	// Window is the working window of the day, [open, close).
	Window domain.Interval
	// Duration of the service being booked.
	Duration time.Duration
	// Step between candidate starts. Zero steps by Duration, which keeps
	// slots aligned to the service length from the opening time.
	Step time.Duration
	// Blocking intervals of the worker on that day.
	Blocking []domain.Interval
	// NotBefore drops candidates starting earlier than it. Zero disables it.
	NotBefore time.Time
}

// Slots returns, in ascending order, every candidate start on the step grid
// whose interval [start, start+Duration) fits inside the window and overlaps
// no blocking interval. Rejected candidates are skipped, never retried at a
// finer granularity.
func Slots(req Request) []time.Time {
	if req.Duration <= 0 {
		return nil
	}
	step := req.Step
	if step <= 0 {
		step = req.Duration
	}
	if !req.Window.End.After(req.Window.Start) {
		return nil
	}

	var slots []time.Time
	for cursor := req.Window.Start; !cursor.Add(req.Duration).After(req.Window.End); cursor = cursor.Add(step) {
		if !req.NotBefore.IsZero() && cursor.Before(req.NotBefore) {
			continue
		}
		if !overlapsAny(cursor, cursor.Add(req.Duration), req.Blocking) {
			slots = append(slots, cursor)
		}
	}
	return slots
}

// IsFree is the authoritative definition of an available slot: the interval
// lies inside the window and is disjoint from every blocking interval. It does
// not depend on the step grid.
func IsFree(window domain.Interval, start time.Time, duration time.Duration, blocking []domain.Interval) bool {
	if duration <= 0 {
		return false
	}
	candidate := domain.Interval{Start: start, End: start.Add(duration)}
	if !window.Contains(candidate) {
		return false
	}
	return !overlapsAny(candidate.Start, candidate.End, blocking)
}

// BlockingIntervals keeps only appointments whose status occupies time.
func BlockingIntervals(appts []domain.Appointment) []domain.Interval {
	out := make([]domain.Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Occupies() {
			continue
		}
		out = append(out, a.Interval())
	}
	return out
}

func overlapsAny(start, end time.Time, busy []domain.Interval) bool {
	for _, b := range busy {
		if domain.Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
