package appointments

import (
	"context"
	"log/slog"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/events"
	"chairbook/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// RuleError is a policy denial on well-formed input. Code is one of the
// domain.Code* constants.
type RuleError struct {
	Code string
	msg  string
}

func (e *RuleError) Error() string {
	return e.msg
}

type ForbiddenError struct {
	msg string
}

func (e *ForbiddenError) Error() string {
	return e.msg
}

type Role string

const (
	RoleClient Role = "client"
	RoleStaff  Role = "staff"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role Role
}

type Config struct {
	BusinessID string
	Location   *time.Location
	// DefaultOpen and DefaultClose are offsets from midnight used for
	// weekdays without an opening_hours row.
	DefaultOpen  time.Duration
	DefaultClose time.Duration
	// MaxConfirmedPerClient caps upcoming confirmed bookings; 0 disables it.
	MaxConfirmedPerClient int
	// SlotStep is the availability grid; 0 steps by the service duration.
	SlotStep time.Duration
}

type Service struct {
	repo    store.AppointmentRepository
	catalog store.CatalogRepository
	events  events.Publisher
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

func NewService(repo store.AppointmentRepository, catalog store.CatalogRepository, pub events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultClose <= cfg.DefaultOpen {
		cfg.DefaultOpen = domain.DefaultOpenHour * time.Hour
		cfg.DefaultClose = domain.DefaultCloseHour * time.Hour
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		events:  pub,
		logger:  logger.With("component", "appointments"),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *Service) weeklyHours(ctx context.Context) (domain.WeeklyHours, error) {
	rows, err := s.catalog.ListOpeningHours(ctx, s.cfg.BusinessID)
	if err != nil {
		return domain.WeeklyHours{}, err
	}
	return domain.NewWeeklyHours(rows, s.cfg.DefaultOpen, s.cfg.DefaultClose)
}

// publish runs after the write committed; delivery failures are logged only.
func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "appointment event dropped", "event_type", ev.Type, "appointment_id", ev.Appointment.ID, "err", err)
	}
}
