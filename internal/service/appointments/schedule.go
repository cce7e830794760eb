package appointments

import (
	"context"
	"strings"
	"time"

	"chairbook/internal/availability"
	"chairbook/internal/domain"
	"chairbook/internal/store"
)

// DaySchedule is the working window the server applies to one calendar day.
type DaySchedule struct {
	Date     string
	Closed   bool
	Window   domain.Interval
	SlotStep time.Duration
}

func (s *Service) DaySchedule(ctx context.Context, date string) (DaySchedule, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return DaySchedule{}, err
	}
	hours, err := s.weeklyHours(ctx)
	if err != nil {
		return DaySchedule{}, err
	}
	window, open := hours.WindowFor(day, s.cfg.Location)
	return DaySchedule{
		Date:     day.Format(domain.DateLayout),
		Closed:   !open,
		Window:   window,
		SlotStep: s.cfg.SlotStep,
	}, nil
}

// ListByDay returns every appointment of the worker on date, whatever its
// status. Other clients' identities and notes are hidden from clients.
func (s *Service) ListByDay(ctx context.Context, actor Actor, workerID, date string) ([]domain.Appointment, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, validationError("worker is required")
	}
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByWorkerDay(ctx, s.cfg.BusinessID, workerID, domain.DayBounds(day, s.cfg.Location))
	if err != nil {
		return nil, err
	}
	if actor.Role == RoleStaff {
		return rows, nil
	}
	for i := range rows {
		if rows[i].ClientID != actor.ID {
			rows[i].ClientID = ""
			rows[i].Notes = ""
		}
	}
	return rows, nil
}

type MineFilter struct {
	Statuses    []domain.AppointmentStatus
	IncludePast bool
}

func (s *Service) ListMine(ctx context.Context, actor Actor, filter MineFilter) ([]domain.Appointment, error) {
	if actor.ID == "" {
		return nil, validationError("client is required")
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, validationError("invalid status " + string(st))
		}
	}
	return s.repo.ListByClient(ctx, s.cfg.BusinessID, actor.ID, store.ClientFilter{
		Statuses:    filter.Statuses,
		IncludePast: filter.IncludePast,
		Now:         s.now().UTC(),
	})
}

// Availability computes bookable start times with the same generator and
// window the booking path enforces.
func (s *Service) Availability(ctx context.Context, workerID, date string, durationMinutes int) ([]time.Time, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, validationError("worker is required")
	}
	if durationMinutes <= 0 || durationMinutes > 24*60 {
		return nil, validationError("durationMinutes must be between 1 and 1440")
	}
	sched, err := s.DaySchedule(ctx, date)
	if err != nil {
		return nil, err
	}
	if sched.Closed {
		return []time.Time{}, nil
	}
	rows, err := s.repo.ListByWorkerDay(ctx, s.cfg.BusinessID, workerID, sched.Window)
	if err != nil {
		return nil, err
	}
	slots := availability.Slots(availability.Request{
		Window:    sched.Window,
		Duration:  time.Duration(durationMinutes) * time.Minute,
		Step:      s.cfg.SlotStep,
		Blocking:  availability.BlockingIntervals(rows),
		NotBefore: s.now(),
	})
	if slots == nil {
		slots = []time.Time{}
	}
	return slots, nil
}

func (s *Service) Services(ctx context.Context) ([]domain.Service, error) {
	return s.catalog.ListServices(ctx, s.cfg.BusinessID)
}

func (s *Service) Workers(ctx context.Context) ([]domain.Worker, error) {
	return s.catalog.ListWorkers(ctx, s.cfg.BusinessID)
}

func (s *Service) parseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, validationError("date is required")
	}
	day, err := domain.ParseDate(date, s.cfg.Location)
	if err != nil {
		return time.Time{}, validationError("date must be YYYY-MM-DD")
	}
	return day, nil
}
