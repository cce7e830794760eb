package availability

import (
	"math/rand"
	"testing"
	"time"

	"chairbook/internal/domain"
)

func dayWindow(openHour, closeHour int) domain.Interval {
	return domain.Interval{
		Start: time.Date(2026, 3, 2, openHour, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, closeHour, 0, 0, 0, time.UTC),
	}
}

func TestSlots_NoBlockingEmitsFloorOfWindowOverDuration(t *testing.T) {
	window := dayWindow(8, 20)
	for _, minutes := range []int{15, 25, 30, 45, 60, 90, 120, 700, 720} {
		d := time.Duration(minutes) * time.Minute
		slots := Slots(Request{Window: window, Duration: d})

		want := int(window.Duration() / d)
		if len(slots) != want {
			t.Fatalf("duration %d: len(slots) = %d, want %d", minutes, len(slots), want)
		}
		for i, s := range slots {
			if expected := window.Start.Add(time.Duration(i) * d); !s.Equal(expected) {
				t.Fatalf("duration %d: slot[%d] = %v, want %v", minutes, i, s, expected)
			}
		}
	}
}

func TestSlots_DurationLongerThanWindow(t *testing.T) {
	slots := Slots(Request{Window: dayWindow(8, 9), Duration: 90 * time.Minute})
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(slots))
	}
}

func TestSlots_SingleBlockingHourExcluded(t *testing.T) {
	window := dayWindow(8, 20)
	appts := []domain.Appointment{
		{
			StartTime: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			Service:   domain.ServiceSnapshot{Name: "Cut", DurationMinutes: 60},
			Status:    domain.StatusConfirmed,
		},
	}

	slots := Slots(Request{Window: window, Duration: time.Hour, Blocking: BlockingIntervals(appts)})
	if len(slots) != 11 {
		t.Fatalf("len(slots) = %d, want 11", len(slots))
	}
	got := map[int]bool{}
	for _, s := range slots {
		got[s.Hour()] = true
	}
	if got[10] {
		t.Fatalf("10:00 must be excluded")
	}
	for _, h := range []int{8, 9, 11, 12, 13, 14, 15, 16, 17, 18, 19} {
		if !got[h] {
			t.Fatalf("%02d:00 missing from %v", h, slots)
		}
	}
}

func TestSlots_BackToBackBoundaryIsFree(t *testing.T) {
	window := dayWindow(8, 12)
	blocking := []domain.Interval{
		{Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}
	slots := Slots(Request{Window: window, Duration: time.Hour, Blocking: blocking})
	want := []time.Time{
		time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestSlots_NonBlockingStatusesIgnored(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	var appts []domain.Appointment
	for _, s := range []domain.AppointmentStatus{domain.StatusCanceled, domain.StatusNoShow, domain.StatusCompleted} {
		appts = append(appts, domain.Appointment{
			StartTime: start,
			Service:   domain.ServiceSnapshot{DurationMinutes: 60},
			Status:    s,
		})
	}
	if got := BlockingIntervals(appts); len(got) != 0 {
		t.Fatalf("len(BlockingIntervals) = %d, want 0", len(got))
	}
}

func TestSlots_MisalignedGapNotOfferedWithDurationStep(t *testing.T) {
	window := dayWindow(8, 11)
	// Free gap 08:30-10:00 fits a 60 minute service, but not on the 08:00/09:00/10:00 grid.
	blocking := []domain.Interval{
		{Start: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
		{Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
	}

	coarse := Slots(Request{Window: window, Duration: time.Hour, Blocking: blocking})
	if len(coarse) != 1 || coarse[0].Hour() != 9 {
		t.Fatalf("duration-step slots = %v, want [09:00]", coarse)
	}

	fine := Slots(Request{Window: window, Duration: time.Hour, Step: 15 * time.Minute, Blocking: blocking})
	want := []string{"08:30", "08:45", "09:00"}
	if len(fine) != len(want) {
		t.Fatalf("15-minute-step slots = %v, want %v", fine, want)
	}
	for i := range want {
		if got := fine[i].Format("15:04"); got != want[i] {
			t.Fatalf("slot[%d] = %s, want %s", i, got, want[i])
		}
	}
}

func TestSlots_NotBeforeDropsPastCandidates(t *testing.T) {
	window := dayWindow(8, 12)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	slots := Slots(Request{Window: window, Duration: time.Hour, NotBefore: now})
	if len(slots) != 2 || slots[0].Hour() != 10 || slots[1].Hour() != 11 {
		t.Fatalf("slots = %v, want [10:00 11:00]", slots)
	}
}

func TestSlots_InvalidInput(t *testing.T) {
	if got := Slots(Request{Window: dayWindow(8, 20), Duration: 0}); got != nil {
		t.Fatalf("zero duration: slots = %v, want nil", got)
	}
	if got := Slots(Request{Window: dayWindow(20, 8), Duration: time.Hour}); got != nil {
		t.Fatalf("inverted window: slots = %v, want nil", got)
	}
}

func TestSlots_PropertiesHoldForRandomCalendars(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	window := dayWindow(8, 20)
	durations := []int{15, 20, 30, 45, 60, 75, 90}

	for iter := 0; iter < 500; iter++ {
		var blocking []domain.Interval
		for n := rng.Intn(8); n > 0; n-- {
			start := window.Start.Add(time.Duration(rng.Intn(13*60)-30) * time.Minute)
			blocking = append(blocking, domain.Interval{
				Start: start,
				End:   start.Add(time.Duration(5+rng.Intn(120)) * time.Minute),
			})
		}
		d := time.Duration(durations[rng.Intn(len(durations))]) * time.Minute
		step := time.Duration(0)
		if rng.Intn(2) == 0 {
			step = time.Duration(5*(1+rng.Intn(6))) * time.Minute
		}

		slots := Slots(Request{Window: window, Duration: d, Step: step, Blocking: blocking})
		for i, s := range slots {
			end := s.Add(d)
			if s.Before(window.Start) || end.After(window.End) {
				t.Fatalf("iter %d: slot %v..%v escapes window", iter, s, end)
			}
			for _, b := range blocking {
				if domain.Overlaps(s, end, b.Start, b.End) {
					t.Fatalf("iter %d: slot %v..%v overlaps blocking %v..%v", iter, s, end, b.Start, b.End)
				}
			}
			if !IsFree(window, s, d, blocking) {
				t.Fatalf("iter %d: emitted slot %v is not free per IsFree", iter, s)
			}
			if i > 0 && !slots[i-1].Before(s) {
				t.Fatalf("iter %d: slots not strictly ascending at %d", iter, i)
			}
		}
	}
}

func TestIsFree(t *testing.T) {
	window := dayWindow(8, 20)
	blocking := []domain.Interval{
		{Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
	}

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{name: "ends at blocking start", start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), want: true},
		{name: "starts at blocking end", start: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), want: true},
		{name: "off grid but free", start: time.Date(2026, 3, 2, 11, 10, 0, 0, time.UTC), want: true},
		{name: "overlaps", start: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC), want: false},
		{name: "before open", start: time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC), want: false},
		{name: "past close", start: time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC), want: false},
		{name: "ends at close", start: time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFree(window, tt.start, time.Hour, blocking); got != tt.want {
				t.Fatalf("IsFree = %v, want %v", got, tt.want)
			}
		})
	}
}
