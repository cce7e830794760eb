// Package myappointments is the signed-in client's list of appointments
// and the cancellation action on it.
package myappointments

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/client/api"
	"chairbook/internal/domain"
	"chairbook/internal/policy"
)

var ErrUnknownAppointment = errors.New("myappointments: appointment is not in the list")

type Backend interface {
	Mine(ctx context.Context, cred api.Credentials, statuses []domain.AppointmentStatus, includePast bool) ([]domain.Appointment, error)
	Cancel(ctx context.Context, cred api.Credentials, id uuid.UUID) (domain.Appointment, error)
}

type Filter struct {
	Statuses    []domain.AppointmentStatus
	IncludePast bool
}

// DefaultFilter shows upcoming confirmed appointments.
var DefaultFilter = Filter{Statuses: []domain.AppointmentStatus{domain.StatusConfirmed}}

type List struct {
	backend Backend
	cred    api.Credentials
	filter  Filter
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	items []domain.Appointment
}

func New(backend Backend, cred api.Credentials, filter Filter, logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	return &List{backend: backend, cred: cred, filter: filter, now: time.Now, logger: logger}
}

func (l *List) Refresh(ctx context.Context) error {
	rows, err := l.backend.Mine(ctx, l.cred, l.filter.Statuses, l.filter.IncludePast)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = rows
	l.mu.Unlock()
	l.logger.Debug("appointments refreshed", slog.Int("count", len(rows)))
	return nil
}

func (l *List) Items() []domain.Appointment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Appointment(nil), l.items...)
}

// Cancelable gates the cancel action. The server re-checks.
func (l *List) Cancelable(a domain.Appointment) bool {
	return policy.CanCancel(a, l.now()).Allowed
}

// Cancel asks the server to cancel id. The appointment leaves the list only
// once the server has accepted; a refusal leaves the list untouched.
func (l *List) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	current, ok := l.find(id)
	if !ok {
		return domain.Appointment{}, ErrUnknownAppointment
	}
	if d := policy.CanCancel(current, l.now()); !d.Allowed {
		return domain.Appointment{}, &api.CancellationWindowError{Code: d.Code}
	}

	canceled, err := l.backend.Cancel(ctx, l.cred, id)
	if err != nil {
		var windowErr *api.CancellationWindowError
		if errors.As(err, &windowErr) {
			l.logger.Warn("server refused cancellation", slog.String("appointment_id", id.String()), slog.String("code", windowErr.Code))
		}
		return domain.Appointment{}, err
	}

	l.mu.Lock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	l.mu.Unlock()
	return canceled, nil
}

func (l *List) find(id uuid.UUID) (domain.Appointment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.items {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Appointment{}, false
}
