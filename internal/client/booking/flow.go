// Package booking drives the four step booking wizard: worker, service,
// date, time. Submission is optimistic; the server decides who gets a slot.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chairbook/internal/client/api"
	"chairbook/internal/client/dayview"
	"chairbook/internal/domain"
	"chairbook/internal/wire"
)

type Backend interface {
	dayview.Loader
	Workers(ctx context.Context, cred api.Credentials) ([]wire.Worker, error)
	Services(ctx context.Context, cred api.Credentials) ([]wire.Service, error)
	DaySchedule(ctx context.Context, cred api.Credentials, date time.Time) (wire.DaySchedule, error)
	Book(ctx context.Context, cred api.Credentials, req wire.CreateAppointmentRequest, idempotencyKey string) (domain.Appointment, error)
}

type Step int

const (
	StepWorker Step = iota
	StepService
	StepDate
	StepTime
	StepReview
	StepDone
)

// Selection is the wizard's ephemeral state. Zero values mean "not chosen".
type Selection struct {
	Worker  wire.Worker
	Service wire.Service
	Date    time.Time
	Time    time.Time
	Notes   string
}

func (s Selection) Step() Step {
	switch {
	case s.Worker.ID == "":
		return StepWorker
	case s.Service.ID == "":
		return StepService
	case s.Date.IsZero():
		return StepDate
	case s.Time.IsZero():
		return StepTime
	default:
		return StepReview
	}
}

// Flow is owned by a single screen and is not safe for concurrent use.
type Flow struct {
	backend Backend
	day     *dayview.Fetcher
	cred    api.Credentials
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger

	workers  []wire.Worker
	services []wire.Service
	schedule wire.DaySchedule

	sel             Selection
	idempotencyKey  string
	mustPickNewTime bool
	submitting      bool
	booked          *domain.Appointment
}

type Option func(*Flow)

func WithClock(now func() time.Time) Option { return func(f *Flow) { f.now = now } }

// WithLocation sets the zone dates are interpreted in. Defaults to UTC.
func WithLocation(loc *time.Location) Option { return func(f *Flow) { f.loc = loc } }

func NewFlow(backend Backend, cred api.Credentials, logger *slog.Logger, opts ...Option) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Flow{
		backend: backend,
		day:     dayview.NewFetcher(backend, logger),
		cred:    cred,
		loc:     time.UTC,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start loads the catalog. A lone worker is selected automatically.
func (f *Flow) Start(ctx context.Context) error {
	var workers []wire.Worker
	var services []wire.Service
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workers, err = f.backend.Workers(gctx, f.cred)
		return err
	})
	g.Go(func() error {
		var err error
		services, err = f.backend.Services(gctx, f.cred)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	f.workers = workers
	f.services = services
	f.autoSelectWorker()
	return nil
}

func (f *Flow) autoSelectWorker() {
	if len(f.workers) == 1 && f.sel.Worker.ID == "" {
		f.sel.Worker = f.workers[0]
		f.selectionChanged()
	}
}

func (f *Flow) Workers() []wire.Worker { return append([]wire.Worker(nil), f.workers...) }
func (f *Flow) Services() []wire.Service { return append([]wire.Service(nil), f.services...) }
func (f *Flow) Selection() Selection { return f.sel }

func (f *Flow) Step() Step {
	if f.booked != nil {
		return StepDone
	}
	return f.sel.Step()
}

// MustPickNewTime is set after a conflict and cleared when a time is chosen.
func (f *Flow) MustPickNewTime() bool { return f.mustPickNewTime }

// Booked returns the appointment created by the last successful Submit.
func (f *Flow) Booked() (domain.Appointment, bool) {
	if f.booked == nil {
		return domain.Appointment{}, false
	}
	return *f.booked, true
}

// IdempotencyKey is stable for one selection and replaced when it changes.
func (f *Flow) IdempotencyKey() string { return f.idempotencyKey }

func (f *Flow) selectionChanged() {
	f.idempotencyKey = uuid.NewString()
	f.booked = nil
}

func (f *Flow) SelectWorker(ctx context.Context, workerID string) error {
	w, ok := findWorker(f.workers, workerID)
	if !ok {
		return ErrUnknownWorker
	}
	if w.ID == f.sel.Worker.ID {
		return nil
	}
	f.sel.Worker = w
	f.sel.Time = time.Time{}
	f.selectionChanged()
	if !f.sel.Date.IsZero() {
		return f.loadDay(ctx)
	}
	return nil
}

func (f *Flow) SelectService(serviceID string) error {
	s, ok := findService(f.services, serviceID)
	if !ok {
		return ErrUnknownService
	}
	if s.ID == f.sel.Service.ID {
		return nil
	}
	f.sel.Service = s
	f.sel.Time = time.Time{}
	f.selectionChanged()
	return nil
}

// SelectDate picks a calendar day and loads its schedule and appointments.
// The previous day's slots are gone as soon as this is called.
func (f *Flow) SelectDate(ctx context.Context, date time.Time) error {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, f.loc)
	ny, nm, nd := f.now().In(f.loc).Date()
	if day.Before(time.Date(ny, nm, nd, 0, 0, 0, 0, f.loc)) {
		return ErrDateInPast
	}
	f.sel.Date = day
	f.sel.Time = time.Time{}
	f.schedule = wire.DaySchedule{}
	f.selectionChanged()
	if f.sel.Worker.ID == "" {
		return nil
	}
	return f.loadDay(ctx)
}

// Refresh re-fetches the selected day, e.g. after a conflict.
func (f *Flow) Refresh(ctx context.Context) error {
	if f.sel.Worker.ID == "" || f.sel.Date.IsZero() {
		return nil
	}
	return f.loadDay(ctx)
}

func (f *Flow) loadDay(ctx context.Context) error {
	date, workerID := f.sel.Date, f.sel.Worker.ID
	var sched wire.DaySchedule
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sched, err = f.backend.DaySchedule(gctx, f.cred, date)
		return err
	})
	g.Go(func() error {
		return f.day.Fetch(gctx, f.cred, date, workerID)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, dayview.ErrSuperseded) {
			return nil
		}
		return err
	}
	f.schedule = sched
	return nil
}

// Day exposes the fetcher state for the selected worker and date.
func (f *Flow) Day() dayview.State { return f.day.State() }

func (f *Flow) Schedule() wire.DaySchedule { return f.schedule }

// Slots lists the bookable start times for the current selection. It is
// empty until worker, service and date are chosen and the day has loaded.
func (f *Flow) Slots() []time.Time {
	if f.sel.Worker.ID == "" || f.sel.Service.ID == "" || f.sel.Date.IsZero() {
		return nil
	}
	st := f.day.State()
	if st.Key != dayview.KeyFor(f.sel.Date, f.sel.Worker.ID) {
		return nil
	}
	d := time.Duration(f.sel.Service.DurationMinutes) * time.Minute
	return st.Slots(f.schedule, d, f.now())
}

func (f *Flow) SelectTime(t time.Time) error {
	for _, s := range f.Slots() {
		if s.Equal(t) {
			if !s.Equal(f.sel.Time) {
				f.sel.Time = s
				f.selectionChanged()
			}
			f.mustPickNewTime = false
			return nil
		}
	}
	return ErrSlotNotOffered
}

func (f *Flow) SetNotes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == f.sel.Notes {
		return
	}
	f.sel.Notes = notes
	f.selectionChanged()
}

// Validate returns the first missing precondition, or nil. A time rejected
// by the server counts as missing until a new one is picked.
func (f *Flow) Validate() error {
	switch {
	case strings.TrimSpace(f.cred.Token) == "":
		return &ValidationError{Field: FieldAuthentication}
	case strings.TrimSpace(f.cred.ClientID) == "":
		return &ValidationError{Field: FieldActor}
	case f.sel.Worker.ID == "":
		return &ValidationError{Field: FieldWorker}
	case f.sel.Service.ID == "":
		return &ValidationError{Field: FieldService}
	case f.sel.Date.IsZero():
		return &ValidationError{Field: FieldDate}
	case f.sel.Time.IsZero(), f.mustPickNewTime:
		return &ValidationError{Field: FieldTime}
	}
	return nil
}

// Submit books the current selection. On a conflict the selection is kept
// and MustPickNewTime is set; on success the selection is discarded.
func (f *Flow) Submit(ctx context.Context) (domain.Appointment, error) {
	if err := f.Validate(); err != nil {
		return domain.Appointment{}, err
	}
	if f.submitting {
		return domain.Appointment{}, ErrSubmitInProgress
	}
	f.submitting = true
	defer func() { f.submitting = false }()

	req := wire.CreateAppointmentRequest{
		Client:    f.cred.ClientID,
		Worker:    f.sel.Worker.ID,
		ServiceID: f.sel.Service.ID,
		Service: wire.ServiceSnapshot{
			Name:            f.sel.Service.Name,
			DurationMinutes: f.sel.Service.DurationMinutes,
			Price:           f.sel.Service.Price,
		},
		Start: f.sel.Time.UTC(),
		Notes: f.sel.Notes,
	}
	log := f.logger.With(
		slog.String("worker_id", req.Worker),
		slog.String("service_id", req.ServiceID),
		slog.Time("start", req.Start),
	)

	appt, err := f.backend.Book(ctx, f.cred, req, f.idempotencyKey)
	if err != nil {
		var conflict *api.ConflictError
		if errors.As(err, &conflict) {
			log.Warn("slot taken before submission")
			f.mustPickNewTime = true
			if rerr := f.day.Fetch(ctx, f.cred, f.sel.Date, f.sel.Worker.ID); rerr != nil && !errors.Is(rerr, dayview.ErrSuperseded) {
				log.Warn("day refresh after conflict failed", slog.Any("err", rerr))
			}
		}
		return domain.Appointment{}, err
	}

	log.Info("booking confirmed", slog.String("appointment_id", appt.ID.String()))
	f.reset()
	f.booked = &appt
	return appt, nil
}

func (f *Flow) reset() {
	f.sel = Selection{}
	f.schedule = wire.DaySchedule{}
	f.mustPickNewTime = false
	f.autoSelectWorker()
	f.idempotencyKey = uuid.NewString()
}

func findWorker(ws []wire.Worker, id string) (wire.Worker, bool) {
	for _, w := range ws {
		if w.ID == id {
			return w, true
		}
	}
	return wire.Worker{}, false
}

func findService(ss []wire.Service, id string) (wire.Service, bool) {
	for _, s := range ss {
		if s.ID == id {
			return s, true
		}
	}
	return wire.Service{}, false
}
