package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/domain"
	"chairbook/internal/store"
)

type fakeCalendarTx struct {
	insertFn      func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	getFn         func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	overlappingFn func(ctx context.Context, workerID string, window domain.Interval) ([]domain.Appointment, error)
	countFn       func(ctx context.Context, businessID, clientID string, now time.Time) (int, error)
	setStatusFn   func(ctx context.Context, appt domain.Appointment, status domain.AppointmentStatus) (domain.Appointment, error)
}

func (f *fakeCalendarTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if f.insertFn == nil {
		return appt, nil
	}
	return f.insertFn(ctx, appt)
}

func (f *fakeCalendarTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		return domain.Appointment{}, store.ErrNotFound
	}
	return f.getFn(ctx, id)
}

func (f *fakeCalendarTx) ListConfirmedOverlapping(ctx context.Context, workerID string, window domain.Interval) ([]domain.Appointment, error) {
	if f.overlappingFn == nil {
		return nil, nil
	}
	return f.overlappingFn(ctx, workerID, window)
}

func (f *fakeCalendarTx) CountUpcomingConfirmed(ctx context.Context, businessID, clientID string, now time.Time) (int, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, businessID, clientID, now)
}

func (f *fakeCalendarTx) SetStatus(ctx context.Context, appt domain.Appointment, status domain.AppointmentStatus) (domain.Appointment, error) {
	if f.setStatusFn == nil {
		appt.Status = status
		return appt, nil
	}
	return f.setStatusFn(ctx, appt, status)
}

func newBooking(start time.Time) domain.Appointment {
	return domain.Appointment{
		ID:         uuid.MustParse("00000000-0000-0000-0000-000000000101"),
		BusinessID: "b1",
		ClientID:   "c1",
		WorkerID:   "w1",
		Service:    domain.ServiceSnapshot{Name: "Cut", DurationMinutes: 60, Price: 25},
		StartTime:  start,
	}
}

func TestCreateWithRules(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := start.Add(-48 * time.Hour)
	rules := store.BookingRules{MaxConfirmedPerClient: 3, Now: now}

	t.Run("inserts confirmed when calendar is free", func(t *testing.T) {
		var window domain.Interval
		tx := &fakeCalendarTx{
			overlappingFn: func(ctx context.Context, workerID string, w domain.Interval) ([]domain.Appointment, error) {
				window = w
				return nil, nil
			},
		}
		got, err := createWithRules(context.Background(), tx, newBooking(start), rules)
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if got.Status != domain.StatusConfirmed {
			t.Fatalf("status = %q, want %q", got.Status, domain.StatusConfirmed)
		}
		if !window.Start.Equal(start) || !window.End.Equal(start.Add(time.Hour)) {
			t.Fatalf("checked window = %v..%v, want derived end", window.Start, window.End)
		}
	})

	t.Run("overlap is a conflict", func(t *testing.T) {
		tx := &fakeCalendarTx{
			overlappingFn: func(ctx context.Context, workerID string, w domain.Interval) ([]domain.Appointment, error) {
				return []domain.Appointment{newBooking(start.Add(30 * time.Minute))}, nil
			},
			insertFn: func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
				t.Fatalf("insert must not run on conflict")
				return appt, nil
			},
		}
		_, err := createWithRules(context.Background(), tx, newBooking(start), rules)
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("err = %v, want %v", err, store.ErrConflict)
		}
	})

	t.Run("cap reached is reported before overlap", func(t *testing.T) {
		tx := &fakeCalendarTx{
			countFn: func(ctx context.Context, businessID, clientID string, n time.Time) (int, error) {
				if !n.Equal(now) {
					t.Fatalf("count now = %v, want %v", n, now)
				}
				return 3, nil
			},
			overlappingFn: func(ctx context.Context, workerID string, w domain.Interval) ([]domain.Appointment, error) {
				return []domain.Appointment{newBooking(start)}, nil
			},
		}
		_, err := createWithRules(context.Background(), tx, newBooking(start), rules)
		if !errors.Is(err, store.ErrLimitReached) {
			t.Fatalf("err = %v, want %v", err, store.ErrLimitReached)
		}
	})

	t.Run("zero cap disables the limit", func(t *testing.T) {
		tx := &fakeCalendarTx{
			countFn: func(ctx context.Context, businessID, clientID string, n time.Time) (int, error) {
				t.Fatalf("count must not run when the cap is disabled")
				return 0, nil
			},
		}
		if _, err := createWithRules(context.Background(), tx, newBooking(start), store.BookingRules{Now: now}); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
	})

	t.Run("replay returns the stored appointment", func(t *testing.T) {
		stored := newBooking(start)
		stored.Status = domain.StatusConfirmed
		tx := &fakeCalendarTx{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return stored, nil
			},
			overlappingFn: func(ctx context.Context, workerID string, w domain.Interval) ([]domain.Appointment, error) {
				t.Fatalf("replay must not re-check the calendar")
				return nil, nil
			},
		}
		got, err := createWithRules(context.Background(), tx, newBooking(start), rules)
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if got.ID != stored.ID {
			t.Fatalf("id = %s, want %s", got.ID, stored.ID)
		}
	})

	t.Run("replay matches a price stored at cent precision", func(t *testing.T) {
		stored := newBooking(start)
		stored.Service.Price = 12.35
		incoming := newBooking(start)
		incoming.Service.Price = 12.345
		tx := &fakeCalendarTx{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return stored, nil
			},
		}
		got, err := createWithRules(context.Background(), tx, incoming, rules)
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if got.Service.Price != 12.35 {
			t.Fatalf("price = %v, want 12.35", got.Service.Price)
		}
	})

	t.Run("replay with a different price in cents is rejected", func(t *testing.T) {
		stored := newBooking(start)
		stored.Service.Price = 12.35
		incoming := newBooking(start)
		incoming.Service.Price = 12.36
		tx := &fakeCalendarTx{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return stored, nil
			},
		}
		_, err := createWithRules(context.Background(), tx, incoming, rules)
		if !errors.Is(err, store.ErrIdempotencyConflict) {
			t.Fatalf("err = %v, want %v", err, store.ErrIdempotencyConflict)
		}
	})

	t.Run("replay with different payload is rejected", func(t *testing.T) {
		stored := newBooking(start.Add(time.Hour))
		tx := &fakeCalendarTx{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return stored, nil
			},
		}
		_, err := createWithRules(context.Background(), tx, newBooking(start), rules)
		if !errors.Is(err, store.ErrIdempotencyConflict) {
			t.Fatalf("err = %v, want %v", err, store.ErrIdempotencyConflict)
		}
	})
}

func TestApplyStatus(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("settling does not re-check the calendar", func(t *testing.T) {
		current := newBooking(start)
		current.Status = domain.StatusConfirmed
		tx := &fakeCalendarTx{
			overlappingFn: func(ctx context.Context, workerID string, w domain.Interval) ([]domain.Appointment, error) {
				t.Fatalf("calendar re-checked for a non-blocking move")
				return nil, nil
			},
		}
		got, err := applyStatus(context.Background(), tx, current, domain.StatusCompleted)
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if got.Status != domain.StatusCompleted {
			t.Fatalf("status = %q, want %q", got.Status, domain.StatusCompleted)
		}
	})

	t.Run("reconfirmation into a taken slot conflicts", func(t *testing.T) {
		current := newBooking(start)
		current.Status = domain.StatusCanceled
		other := newBooking(start)
		other.ID = uuid.MustParse("00000000-0000-0000-0000-000000000102")
		tx := &fakeCalendarTx{
			overlappingFn: func(ctx context.Context, workerID string, w domain.Interval) ([]domain.Appointment, error) {
				return []domain.Appointment{other}, nil
			},
			setStatusFn: func(ctx context.Context, appt domain.Appointment, status domain.AppointmentStatus) (domain.Appointment, error) {
				t.Fatalf("status written despite conflict")
				return appt, nil
			},
		}
		_, err := applyStatus(context.Background(), tx, current, domain.StatusConfirmed)
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("err = %v, want %v", err, store.ErrConflict)
		}
	})

	t.Run("reconfirmation into a free slot succeeds", func(t *testing.T) {
		current := newBooking(start)
		current.Status = domain.StatusNoShow
		got, err := applyStatus(context.Background(), &fakeCalendarTx{}, current, domain.StatusConfirmed)
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if got.Status != domain.StatusConfirmed {
			t.Fatalf("status = %q, want %q", got.Status, domain.StatusConfirmed)
		}
	})
}

func TestLockKeysAreNamespaced(t *testing.T) {
	if clientLockKey("x") == workerLockKey("x") {
		t.Fatalf("client and worker lock keys must differ for the same id")
	}
}
