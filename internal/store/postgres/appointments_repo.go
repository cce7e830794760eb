package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"chairbook/internal/domain"
	"chairbook/internal/store"
)

// endExpr derives the exclusive end of an appointment; end is never stored.
const endExpr = "start_time + make_interval(mins => service_duration_minutes)"

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment, rules store.BookingRules) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InCalendarTransaction(ctx, appt.WorkerID, appt.ClientID, func(ctx context.Context, tx store.CalendarTx) error {
		a, err := createWithRules(ctx, tx, appt, rules)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r *AppointmentRepo) ListByWorkerDay(ctx context.Context, businessID, workerID string, day domain.Interval) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		Where("worker_id = ?", workerID).
		Where("start_time < ?", day.End).
		Where(endExpr+" > ?", day.Start).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByClient(ctx context.Context, businessID, clientID string, filter store.ClientFilter) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		Where("client_id = ?", clientID)
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(filter.Statuses))
	}
	if !filter.IncludePast {
		q = q.Where(endExpr+" > ?", filter.Now)
	}
	if err := q.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, decide store.StatusDecision) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		c := calendarTx{tx: tx}
		current, err := c.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		next, err := decide(current)
		if err != nil {
			return err
		}
		if next.Blocking() && !current.Status.Blocking() {
			if err := lockCalendars(ctx, tx, workerLockKey(current.WorkerID)); err != nil {
				return err
			}
		}
		a, err := applyStatus(ctx, c, current, next)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// InCalendarTransaction runs fn with the client's and the worker's calendars
// locked. Client locks are always taken before worker locks.
func (r *AppointmentRepo) InCalendarTransaction(ctx context.Context, workerID, clientID string, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendars(ctx, tx, clientLockKey(clientID), workerLockKey(workerID)); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func clientLockKey(clientID string) string { return "client:" + clientID }
func workerLockKey(workerID string) string { return "worker:" + workerID }

func lockCalendars(ctx context.Context, tx bun.Tx, keys ...string) error {
	for _, key := range keys {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// createWithRules checks, in order: idempotent replay, the per-client cap and
// the no-overlap invariant for the worker, then inserts.
func createWithRules(ctx context.Context, tx store.CalendarTx, appt domain.Appointment, rules store.BookingRules) (domain.Appointment, error) {
	if appt.ID != uuid.Nil {
		existing, err := tx.GetAppointmentForUpdate(ctx, appt.ID)
		switch {
		case err == nil:
			if !sameBooking(existing, appt) {
				return domain.Appointment{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.Appointment{}, err
		}
	}

	if rules.MaxConfirmedPerClient > 0 {
		n, err := tx.CountUpcomingConfirmed(ctx, appt.BusinessID, appt.ClientID, rules.Now)
		if err != nil {
			return domain.Appointment{}, err
		}
		if n >= rules.MaxConfirmedPerClient {
			return domain.Appointment{}, store.ErrLimitReached
		}
	}

	overlapping, err := tx.ListConfirmedOverlapping(ctx, appt.WorkerID, appt.Interval())
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(overlapping) > 0 {
		return domain.Appointment{}, store.ErrConflict
	}

	appt.Status = domain.StatusConfirmed
	return tx.InsertAppointment(ctx, appt)
}

// applyStatus writes next, re-checking the worker's calendar when the move
// makes the appointment occupy time again.
func applyStatus(ctx context.Context, tx store.CalendarTx, current domain.Appointment, next domain.AppointmentStatus) (domain.Appointment, error) {
	if next.Blocking() && !current.Status.Blocking() {
		overlapping, err := tx.ListConfirmedOverlapping(ctx, current.WorkerID, current.Interval())
		if err != nil {
			return domain.Appointment{}, err
		}
		for _, o := range overlapping {
			if o.ID != current.ID {
				return domain.Appointment{}, store.ErrConflict
			}
		}
	}
	return tx.SetStatus(ctx, current, next)
}

func sameBooking(a, b domain.Appointment) bool {
	return a.ClientID == b.ClientID &&
		a.WorkerID == b.WorkerID &&
		a.BusinessID == b.BusinessID &&
		a.Service.Equal(b.Service) &&
		a.Notes == b.Notes &&
		a.StartTime.Equal(b.StartTime)
}

func (r calendarTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			var existing domain.Appointment
			selectErr := r.tx.NewSelect().
				Model(&existing).
				Where("id = ?", m.ID).
				Limit(1).
				Scan(ctx)
			if selectErr != nil {
				return domain.Appointment{}, err
			}
			if !sameBooking(existing, appt) {
				return domain.Appointment{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r calendarTx) GetAppointmentForUpdate(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("id = ?", appointmentID).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r calendarTx) ListConfirmedOverlapping(ctx context.Context, workerID string, window domain.Interval) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("worker_id = ?", workerID).
		Where("status = ?", domain.StatusConfirmed).
		Where("start_time < ?", window.End).
		Where(endExpr+" > ?", window.Start).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r calendarTx) CountUpcomingConfirmed(ctx context.Context, businessID, clientID string, now time.Time) (int, error) {
	return r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("business_id = ?", businessID).
		Where("client_id = ?", clientID).
		Where("status = ?", domain.StatusConfirmed).
		Where("start_time >= ?", now).
		Count(ctx)
}

func (r calendarTx) SetStatus(ctx context.Context, appt domain.Appointment, status domain.AppointmentStatus) (domain.Appointment, error) {
	m := appt
	m.Status = status

	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}
