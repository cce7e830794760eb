package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCanceled  AppointmentStatus = "canceled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCanceled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status occupies calendar time.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusConfirmed
}

// ServiceSnapshot is the value copy of a catalog service taken at booking time.
type ServiceSnapshot struct {
	Name            string  `bun:"service_name,notnull"`
	DurationMinutes int     `bun:"service_duration_minutes,notnull"`
	Price           float64 `bun:"service_price,notnull"`
}

func (s ServiceSnapshot) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Equal compares snapshots with prices at cent precision, the precision
// prices are stored with.
func (s ServiceSnapshot) Equal(o ServiceSnapshot) bool {
	return s.Name == o.Name &&
		s.DurationMinutes == o.DurationMinutes &&
		PriceCents(s.Price) == PriceCents(o.Price)
}

// PriceCents converts a price to whole cents, rounding half away from zero.
func PriceCents(p float64) int64 {
	return int64(math.Round(p * 100))
}

// RoundPrice rounds p to cents.
func RoundPrice(p float64) float64 {
	return float64(PriceCents(p)) / 100
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID         uuid.UUID         `bun:"id,pk,type:uuid"`
	BusinessID string            `bun:"business_id,notnull"`
	ClientID   string            `bun:"client_id,notnull"`
	WorkerID   string            `bun:"worker_id,notnull"`
	Service    ServiceSnapshot   `bun:"embed:"`
	StartTime  time.Time         `bun:"start_time,notnull"`
	Status     AppointmentStatus `bun:"status,notnull"`
	Notes      string            `bun:"notes"`
	CreatedAt  time.Time         `bun:"created_at,notnull"`
	UpdatedAt  time.Time         `bun:"updated_at,notnull"`
}

// EndTime is derived from the start and the snapshot duration; it is never stored.
func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(a.Service.Duration())
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime()}
}

// Occupies reports whether the appointment blocks its worker's calendar.
func (a Appointment) Occupies() bool {
	return a.Status.Blocking()
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
