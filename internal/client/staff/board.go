// Package staff is the staff view of a worker's day with the status
// actions allowed on each appointment.
package staff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/client/api"
	"chairbook/internal/client/dayview"
	"chairbook/internal/domain"
	"chairbook/internal/policy"
)

var (
	ErrUnknownAppointment   = errors.New("staff: appointment is not on the board")
	ErrTransitionNotOffered = errors.New("staff: transition is not offered for this appointment")
)

type Backend interface {
	dayview.Loader
	SetStatus(ctx context.Context, cred api.Credentials, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)
}

type Board struct {
	backend Backend
	cred    api.Credentials
	day     *dayview.Fetcher
	logger  *slog.Logger
}

func NewBoard(backend Backend, cred api.Credentials, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{backend: backend, cred: cred, day: dayview.NewFetcher(backend, logger), logger: logger}
}

// Load shows the worker's day. Switching days while a load is in flight
// drops the older response.
func (b *Board) Load(ctx context.Context, date time.Time, workerID string) error {
	err := b.day.Fetch(ctx, b.cred, date, workerID)
	if errors.Is(err, dayview.ErrSuperseded) {
		return nil
	}
	return err
}

func (b *Board) State() dayview.State { return b.day.State() }

// Actions lists the status buttons for a. Settled appointments get none.
func (b *Board) Actions(a domain.Appointment) []domain.AppointmentStatus {
	return policy.Transitions(a.Status)
}

// Apply asks the server to move id to status. The board changes only when
// the server returns the updated appointment, which replaces the old one.
func (b *Board) Apply(ctx context.Context, id uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	current, ok := b.find(id)
	if !ok {
		return domain.Appointment{}, ErrUnknownAppointment
	}
	if !policy.CanTransition(current.Status, to) {
		return domain.Appointment{}, ErrTransitionNotOffered
	}

	log := b.logger.With(slog.String("appointment_id", id.String()), slog.String("from", string(current.Status)), slog.String("to", string(to)))
	updated, err := b.backend.SetStatus(ctx, b.cred, id, to)
	if err != nil {
		var conflict *api.TransitionConflictError
		if errors.As(err, &conflict) {
			log.Warn("server refused status change", slog.String("code", conflict.Code))
		}
		return domain.Appointment{}, err
	}
	if !b.day.Merge(updated) {
		log.Debug("updated appointment no longer on the board")
	}
	return updated, nil
}

func (b *Board) find(id uuid.UUID) (domain.Appointment, bool) {
	for _, a := range b.day.State().Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Appointment{}, false
}
