// Package events publishes appointment lifecycle notifications.
package events

import (
	"context"
	"time"

	"chairbook/internal/domain"
)

const (
	TypeBooked        = "appointment.booked"
	TypeCanceled      = "appointment.canceled"
	TypeStatusChanged = "appointment.status_changed"
)

type Event struct {
	ID          string                   `json:"eventId"`
	Type        string                   `json:"eventType"`
	OccurredAt  time.Time                `json:"occurredAt"`
	Appointment AppointmentPayload       `json:"appointment"`
	PrevStatus  domain.AppointmentStatus `json:"previousStatus,omitempty"`
}

type AppointmentPayload struct {
	ID              string                   `json:"id"`
	BusinessID      string                   `json:"businessId"`
	ClientID        string                   `json:"clientId"`
	WorkerID        string                   `json:"workerId"`
	ServiceName     string                   `json:"serviceName"`
	DurationMinutes int                      `json:"durationMinutes"`
	Start           time.Time                `json:"start"`
	Status          domain.AppointmentStatus `json:"status"`
}

func payloadOf(a domain.Appointment) AppointmentPayload {
	return AppointmentPayload{
		ID:              a.ID.String(),
		BusinessID:      a.BusinessID,
		ClientID:        a.ClientID,
		WorkerID:        a.WorkerID,
		ServiceName:     a.Service.Name,
		DurationMinutes: a.Service.DurationMinutes,
		Start:           a.StartTime.UTC(),
		Status:          a.Status,
	}
}

func Booked(a domain.Appointment, at time.Time) Event {
	return Event{Type: TypeBooked, OccurredAt: at.UTC(), Appointment: payloadOf(a)}
}

func Canceled(a domain.Appointment, at time.Time) Event {
	return Event{Type: TypeCanceled, OccurredAt: at.UTC(), Appointment: payloadOf(a), PrevStatus: domain.StatusConfirmed}
}

func StatusChanged(a domain.Appointment, prev domain.AppointmentStatus, at time.Time) Event {
	return Event{Type: TypeStatusChanged, OccurredAt: at.UTC(), Appointment: payloadOf(a), PrevStatus: prev}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
