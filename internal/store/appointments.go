package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/domain"
)

// BookingRules are enforced inside the write transaction that creates an
// appointment, after the client and worker calendars are locked.
type BookingRules struct {
	// MaxConfirmedPerClient caps upcoming confirmed appointments; 0 disables it.
	MaxConfirmedPerClient int
	Now                   time.Time
}

type ClientFilter struct {
	Statuses    []domain.AppointmentStatus
	IncludePast bool
	Now         time.Time
}

// StatusDecision inspects the locked current row and returns the status to
// write, or an error to abort the transaction unchanged.
type StatusDecision func(current domain.Appointment) (domain.AppointmentStatus, error)

type AppointmentRepository interface {
	Create(ctx context.Context, appt domain.Appointment, rules BookingRules) (domain.Appointment, error)
	Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	ListByWorkerDay(ctx context.Context, businessID, workerID string, day domain.Interval) ([]domain.Appointment, error)
	ListByClient(ctx context.Context, businessID, clientID string, filter ClientFilter) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, decide StatusDecision) (domain.Appointment, error)
}

type CatalogRepository interface {
	ListServices(ctx context.Context, businessID string) ([]domain.Service, error)
	GetService(ctx context.Context, businessID, serviceID string) (domain.Service, error)
	ListWorkers(ctx context.Context, businessID string) ([]domain.Worker, error)
	GetWorker(ctx context.Context, businessID, workerID string) (domain.Worker, error)
	ListOpeningHours(ctx context.Context, businessID string) ([]domain.OpeningHours, error)
}
