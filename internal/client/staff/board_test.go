package staff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/client/api"
	"chairbook/internal/domain"
)

type fakeBackend struct {
	byDayFn     func(ctx context.Context, date time.Time, workerID string) ([]domain.Appointment, error)
	setStatusFn func(ctx context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)
}

func (f *fakeBackend) ByDay(ctx context.Context, _ api.Credentials, date time.Time, workerID string) ([]domain.Appointment, error) {
	if f.byDayFn == nil {
		panic("unexpected ByDay call")
	}
	return f.byDayFn(ctx, date, workerID)
}

func (f *fakeBackend) SetStatus(ctx context.Context, _ api.Credentials, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	if f.setStatusFn == nil {
		panic("unexpected SetStatus call")
	}
	return f.setStatusFn(ctx, id, status)
}

var day = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

func appt(hour int, status domain.AppointmentStatus) domain.Appointment {
	return domain.Appointment{
		ID:        uuid.New(),
		WorkerID:  "w1",
		StartTime: day.Add(time.Duration(hour) * time.Hour),
		Service:   domain.ServiceSnapshot{Name: "Cut", DurationMinutes: 60},
		Status:    status,
	}
}

func loadedBoard(t *testing.T, b *fakeBackend, rows ...domain.Appointment) *Board {
	t.Helper()
	b.byDayFn = func(_ context.Context, date time.Time, workerID string) ([]domain.Appointment, error) {
		if !date.Equal(day) || workerID != "w1" {
			t.Errorf("ByDay(%v, %q)", date, workerID)
		}
		return append([]domain.Appointment(nil), rows...), nil
	}
	board := NewBoard(b, api.Credentials{Token: "staff-token"}, nil)
	if err := board.Load(context.Background(), day, "w1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return board
}

func TestActions_NoneForSettledAppointments(t *testing.T) {
	board := NewBoard(&fakeBackend{}, api.Credentials{}, nil)
	for _, s := range []domain.AppointmentStatus{domain.StatusCanceled, domain.StatusCompleted, domain.StatusNoShow} {
		if got := board.Actions(appt(9, s)); len(got) != 0 {
			t.Fatalf("Actions(%s) = %v, want none", s, got)
		}
	}
	if got := board.Actions(appt(9, domain.StatusConfirmed)); len(got) != 3 {
		t.Fatalf("Actions(confirmed) = %v, want 3", got)
	}
}

func TestApply_MergesServerResultByID(t *testing.T) {
	a, other := appt(9, domain.StatusConfirmed), appt(11, domain.StatusConfirmed)
	b := &fakeBackend{}
	board := loadedBoard(t, b, a, other)

	b.setStatusFn = func(_ context.Context, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
		if id != a.ID || status != domain.StatusCompleted {
			t.Errorf("SetStatus(%s, %s)", id, status)
		}
		if got := board.State().Appointments[0].Status; got != domain.StatusConfirmed {
			t.Errorf("status changed before the server answered: %s", got)
		}
		out := a
		out.Status = domain.StatusCompleted
		return out, nil
	}

	if _, err := board.Apply(context.Background(), a.ID, domain.StatusCompleted); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	st := board.State()
	if st.Appointments[0].Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want completed", st.Appointments[0].Status)
	}
	if st.Appointments[1].Status != domain.StatusConfirmed {
		t.Fatalf("other appointment changed")
	}
	if got := board.Actions(st.Appointments[0]); len(got) != 0 {
		t.Fatalf("completed appointment still offers %v", got)
	}
}

func TestApply_ServerRejectionLeavesBoardUnchanged(t *testing.T) {
	a := appt(9, domain.StatusConfirmed)
	b := &fakeBackend{}
	board := loadedBoard(t, b, a)
	b.setStatusFn = func(context.Context, uuid.UUID, domain.AppointmentStatus) (domain.Appointment, error) {
		return domain.Appointment{}, &api.TransitionConflictError{Code: domain.CodeInvalidStatusTransition, Message: "cannot change status from canceled to completed"}
	}

	_, err := board.Apply(context.Background(), a.ID, domain.StatusCompleted)
	var e *api.TransitionConflictError
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *api.TransitionConflictError", err)
	}
	if got := api.AlertMessage(err); got != "cannot change status from canceled to completed" {
		t.Fatalf("AlertMessage = %q", got)
	}
	if got := board.State().Appointments[0].Status; got != domain.StatusConfirmed {
		t.Fatalf("status = %q, want unchanged confirmed", got)
	}
}

func TestApply_RefusesTransitionsNotOffered(t *testing.T) {
	done := appt(9, domain.StatusCompleted)
	board := loadedBoard(t, &fakeBackend{}, done)

	if _, err := board.Apply(context.Background(), done.ID, domain.StatusCanceled); !errors.Is(err, ErrTransitionNotOffered) {
		t.Fatalf("err = %v, want ErrTransitionNotOffered", err)
	}
	if _, err := board.Apply(context.Background(), uuid.New(), domain.StatusCompleted); !errors.Is(err, ErrUnknownAppointment) {
		t.Fatalf("err = %v, want ErrUnknownAppointment", err)
	}
}
