// Package dayview holds one worker's appointments for one day, fetched from
// the server. Fetches may overlap; the most recently started one wins.
package dayview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chairbook/internal/availability"
	"chairbook/internal/client/api"
	"chairbook/internal/domain"
	"chairbook/internal/wire"
)

// ErrSuperseded is returned by Fetch when a later Fetch replaced it before
// its response arrived. The result was discarded.
var ErrSuperseded = errors.New("dayview: fetch superseded")

type Loader interface {
	ByDay(ctx context.Context, cred api.Credentials, date time.Time, workerID string) ([]domain.Appointment, error)
}

type Key struct {
	Date     string
	WorkerID string
}

func KeyFor(date time.Time, workerID string) Key {
	return Key{Date: date.Format(time.DateOnly), WorkerID: workerID}
}

// State is a snapshot of the fetcher. Appointments is nil while Loading and
// after a failed fetch; data from a previous key is never carried over.
type State struct {
	Key          Key
	Loading      bool
	Appointments []domain.Appointment
	Err          error
}

// Ready reports whether Appointments holds a completed fetch for Key.
func (s State) Ready() bool {
	return s.Key != (Key{}) && !s.Loading && s.Err == nil
}

// Slots previews the bookable starts for a service of the given duration,
// using the window and step the server published for the day. It is empty
// until the day's appointments are loaded.
func (s State) Slots(sched wire.DaySchedule, duration time.Duration, notBefore time.Time) []time.Time {
	if !s.Ready() || sched.Date != s.Key.Date {
		return nil
	}
	window, open := sched.Window()
	if !open {
		return nil
	}
	return availability.Slots(availability.Request{
		Window:    window,
		Duration:  duration,
		Step:      sched.SlotStep(),
		Blocking:  availability.BlockingIntervals(s.Appointments),
		NotBefore: notBefore,
	})
}

type Fetcher struct {
	loader Loader
	logger *slog.Logger

	gen atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	state  State
}

func NewFetcher(loader Loader, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{loader: loader, logger: logger}
}

func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Appointments = append([]domain.Appointment(nil), f.state.Appointments...)
	return s
}

// Fetch loads the day for (date, workerID). Starting a fetch cancels the one
// in flight and clears the visible data. A response that arrives after a
// newer fetch started is dropped and Fetch returns ErrSuperseded.
func (f *Fetcher) Fetch(ctx context.Context, cred api.Credentials, date time.Time, workerID string) error {
	key := KeyFor(date, workerID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	gen := f.gen.Add(1)
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.state = State{Key: key, Loading: true}
	f.mu.Unlock()

	log := f.logger.With(slog.String("date", key.Date), slog.String("worker_id", key.WorkerID), slog.Uint64("generation", gen))
	log.Debug("fetching day")

	rows, err := f.loader.ByDay(ctx, cred, date, workerID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen.Load() != gen {
		log.Debug("discarding stale day fetch")
		return ErrSuperseded
	}
	f.cancel = nil
	if err != nil {
		f.state = State{Key: key, Err: err}
		return err
	}
	f.state = State{Key: key, Appointments: rows}
	log.Debug("day fetched", slog.Int("count", len(rows)))
	return nil
}

// Merge replaces the appointment with the same id in the loaded day. It
// reports false when the day is not loaded or does not contain it.
func (f *Fetcher) Merge(a domain.Appointment) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Loading {
		return false
	}
	for i := range f.state.Appointments {
		if f.state.Appointments[i].ID == a.ID {
			f.state.Appointments[i] = a
			return true
		}
	}
	return false
}
