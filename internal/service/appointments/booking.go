package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"chairbook/internal/availability"
	"chairbook/internal/domain"
	"chairbook/internal/events"
	"chairbook/internal/store"
)

const (
	maxNotesLen          = 500
	maxIdempotencyKeyLen = 256
	// service_price is NUMERIC(10, 2).
	maxPrice             = 99999999.99
)

type BookInput struct {
	Actor    Actor
	ClientID string
	WorkerID string
	// ServiceID, when set, resolves the snapshot from the catalog and
	// overrides Service.
	ServiceID      string
	Service        domain.ServiceSnapshot
	Start          time.Time
	Notes          string
	IdempotencyKey string
}

func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.Actor.ID == "" {
		return domain.Appointment{}, validationError("client is required")
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		clientID = in.Actor.ID
	}
	if in.Actor.Role != RoleStaff && clientID != in.Actor.ID {
		// 403 on this route is reserved for MAX_CONFIRMED_REACHED.
		return domain.Appointment{}, validationError("clients can only book for themselves")
	}

	workerID := strings.TrimSpace(in.WorkerID)
	if workerID == "" {
		return domain.Appointment{}, validationError("worker is required")
	}
	if _, err := s.catalog.GetWorker(ctx, s.cfg.BusinessID, workerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, validationError("unknown worker")
		}
		return domain.Appointment{}, err
	}

	snapshot := in.Service
	if id := strings.TrimSpace(in.ServiceID); id != "" {
		svc, err := s.catalog.GetService(ctx, s.cfg.BusinessID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Appointment{}, validationError("unknown service")
			}
			return domain.Appointment{}, err
		}
		snapshot = svc.Snapshot()
	}
	if err := validateSnapshot(snapshot); err != nil {
		return domain.Appointment{}, err
	}
	snapshot.Price = domain.RoundPrice(snapshot.Price)

	if in.Start.IsZero() {
		return domain.Appointment{}, validationError("start is required")
	}
	if len(in.Notes) > maxNotesLen {
		return domain.Appointment{}, validationError("notes too long")
	}

	now := s.now().UTC()
	start := in.Start.UTC()
	if start.Before(now) {
		return domain.Appointment{}, validationError("start is in the past")
	}

	hours, err := s.weeklyHours(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	window, open := hours.WindowFor(start, s.cfg.Location)
	if !open {
		return domain.Appointment{}, validationError("the business is closed on that day")
	}
	appt := domain.Appointment{
		BusinessID: s.cfg.BusinessID,
		ClientID:   clientID,
		WorkerID:   workerID,
		Service:    snapshot,
		StartTime:  start,
		Status:     domain.StatusConfirmed,
		Notes:      in.Notes,
	}
	// Disjointness from other bookings is checked by the repository under
	// the worker lock; here only the window half of the predicate applies.
	if !availability.IsFree(window, appt.StartTime, snapshot.Duration(), nil) {
		return domain.Appointment{}, validationError("appointment must fit within working hours")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return domain.Appointment{}, validationError("idempotency key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("chairbook:book:"+clientID+":"+key))
	}

	created, err := s.repo.Create(ctx, appt, store.BookingRules{
		MaxConfirmedPerClient: s.cfg.MaxConfirmedPerClient,
		Now:                   now,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.logger.InfoContext(ctx, "appointment booked",
		"appointment_id", created.ID.String(),
		"worker_id", created.WorkerID,
		"start", created.StartTime,
	)
	s.publish(ctx, events.Booked(created, now))
	return created, nil
}

func validateSnapshot(sn domain.ServiceSnapshot) error {
	if strings.TrimSpace(sn.Name) == "" {
		return validationError("service is required")
	}
	if sn.DurationMinutes <= 0 {
		return validationError("service duration must be positive")
	}
	if sn.DurationMinutes > 24*60 {
		return validationError("service duration too long")
	}
	if sn.Price < 0 {
		return validationError("service price must not be negative")
	}
	if sn.Price > maxPrice {
		return validationError("service price too large")
	}
	return nil
}
