package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/domain"
)

// CalendarTx is the set of operations available while a worker's calendar is
// locked for writing.
type CalendarTx interface {
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	ListConfirmedOverlapping(ctx context.Context, workerID string, window domain.Interval) ([]domain.Appointment, error)
	CountUpcomingConfirmed(ctx context.Context, businessID, clientID string, now time.Time) (int, error)
	SetStatus(ctx context.Context, appt domain.Appointment, status domain.AppointmentStatus) (domain.Appointment, error)
}
