// Package wire holds the JSON shapes exchanged over the REST API. Server and
// client both encode and decode through these types.
package wire

import (
	"time"

	"github.com/google/uuid"

	"chairbook/internal/domain"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestID      = "X-Request-ID"
)

type ServiceSnapshot struct {
	Name            string  `json:"name"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
}

type Appointment struct {
	ID        string          `json:"id"`
	Business  string          `json:"business"`
	Client    string          `json:"client,omitempty"`
	Worker    string          `json:"worker"`
	Service   ServiceSnapshot `json:"service"`
	Start     time.Time       `json:"start"`
	Status    string          `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type CreateAppointmentRequest struct {
	Client    string          `json:"client"`
	Worker    string          `json:"worker"`
	ServiceID string          `json:"serviceId,omitempty"`
	Service   ServiceSnapshot `json:"service"`
	Start     time.Time       `json:"start"`
	Notes     string          `json:"notes,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

// ErrorBody is the body of every non-2xx response. Error is a machine code;
// Message is for people.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
}

type Worker struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// DaySchedule is the working window of one day. Open and Close are zero
// when Closed is true. SlotStepMinutes 0 means "step by service duration".
type DaySchedule struct {
	Date            string    `json:"date"`
	Closed          bool      `json:"closed"`
	Open            time.Time `json:"open,omitempty"`
	Close           time.Time `json:"close,omitempty"`
	SlotStepMinutes int       `json:"slotStepMinutes"`
}

type Availability struct {
	Date            string      `json:"date"`
	Worker          string      `json:"worker"`
	DurationMinutes int         `json:"durationMinutes"`
	Slots           []time.Time `json:"slots"`
}

func FromSnapshot(s domain.ServiceSnapshot) ServiceSnapshot {
	return ServiceSnapshot{Name: s.Name, DurationMinutes: s.DurationMinutes, Price: s.Price}
}

func (s ServiceSnapshot) Domain() domain.ServiceSnapshot {
	return domain.ServiceSnapshot{Name: s.Name, DurationMinutes: s.DurationMinutes, Price: s.Price}
}

func FromAppointment(a domain.Appointment) Appointment {
	return Appointment{
		ID:        a.ID.String(),
		Business:  a.BusinessID,
		Client:    a.ClientID,
		Worker:    a.WorkerID,
		Service:   FromSnapshot(a.Service),
		Start:     a.StartTime.UTC(),
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt.UTC(),
	}
}

func FromAppointments(in []domain.Appointment) []Appointment {
	out := make([]Appointment, 0, len(in))
	for _, a := range in {
		out = append(out, FromAppointment(a))
	}
	return out
}

// Domain converts back to the domain model. A malformed id yields uuid.Nil.
func (a Appointment) Domain() domain.Appointment {
	id, _ := uuid.Parse(a.ID)
	return domain.Appointment{
		ID:         id,
		BusinessID: a.Business,
		ClientID:   a.Client,
		WorkerID:   a.Worker,
		Service:    a.Service.Domain(),
		StartTime:  a.Start,
		Status:     domain.AppointmentStatus(a.Status),
		Notes:      a.Notes,
		CreatedAt:  a.CreatedAt,
	}
}

func FromService(s domain.Service) Service {
	return Service{ID: s.ID, Name: s.Name, DurationMinutes: s.DurationMinutes, Price: s.Price}
}

func (s Service) Snapshot() domain.ServiceSnapshot {
	return domain.ServiceSnapshot{Name: s.Name, DurationMinutes: s.DurationMinutes, Price: s.Price}
}

func FromWorker(w domain.Worker) Worker {
	return Worker{ID: w.ID, Name: w.Name, AvatarURL: w.AvatarURL}
}

// Window returns the schedule's working window; ok is false on closed days.
func (d DaySchedule) Window() (domain.Interval, bool) {
	if d.Closed || !d.Close.After(d.Open) {
		return domain.Interval{}, false
	}
	return domain.Interval{Start: d.Open, End: d.Close}, true
}

func (d DaySchedule) SlotStep() time.Duration {
	return time.Duration(d.SlotStepMinutes) * time.Minute
}
