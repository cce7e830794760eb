package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"chairbook/internal/domain"
	"chairbook/internal/store"
)

func TestPostgresIntegration_BookingOverlapCapAndIdempotency(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("CHAIRBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("CHAIRBOOK_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "chairbook_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&domain.Worker{ID: "w1", BusinessID: "b1", Name: "Ana"}).Exec(ctx); err != nil {
			return err
		}

		c := calendarTx{tx: tx}
		start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		rules := store.BookingRules{MaxConfirmedPerClient: 2, Now: start.Add(-48 * time.Hour)}
		book := func(id string, clientID string, at time.Time) domain.Appointment {
			return domain.Appointment{
				ID:         uuid.MustParse(id),
				BusinessID: "b1",
				ClientID:   clientID,
				WorkerID:   "w1",
				Service:    domain.ServiceSnapshot{Name: "Cut", DurationMinutes: 60, Price: 25},
				StartTime:  at,
			}
		}

		a1, err := createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000901", "c1", start), rules)
		if err != nil {
			return err
		}

		rows, err := c.ListConfirmedOverlapping(ctx, "w1", domain.Interval{Start: start.Add(59 * time.Minute), End: start.Add(2 * time.Hour)})
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].ID != a1.ID {
			return fmt.Errorf("overlapping = %v, want [%s]", rows, a1.ID)
		}

		_, err = createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000902", "c2", start.Add(30*time.Minute)), rules)
		if err != store.ErrConflict {
			return fmt.Errorf("overlap err = %v, want %v", err, store.ErrConflict)
		}

		if _, err := createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000903", "c1", start.Add(time.Hour)), rules); err != nil {
			return fmt.Errorf("back-to-back booking: %w", err)
		}

		_, err = createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000904", "c1", start.Add(3*time.Hour)), rules)
		if err != store.ErrLimitReached {
			return fmt.Errorf("cap err = %v, want %v", err, store.ErrLimitReached)
		}

		if _, err := createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000901", "c1", start), rules); err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		_, err = createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000901", "c1", start.Add(5*time.Hour)), rules)
		if err != store.ErrIdempotencyConflict {
			return fmt.Errorf("idempotency err = %v, want %v", err, store.ErrIdempotencyConflict)
		}

		canceled, err := c.SetStatus(ctx, a1, domain.StatusCanceled)
		if err != nil {
			return err
		}
		rows, err = c.ListConfirmedOverlapping(ctx, "w1", a1.Interval())
		if err != nil {
			return err
		}
		if len(rows) != 0 {
			return fmt.Errorf("canceled appointment still blocks: %v", rows)
		}

		if _, err := createWithRules(ctx, c, book("00000000-0000-0000-0000-000000000905", "c2", start), rules); err != nil {
			return fmt.Errorf("rebook freed slot: %w", err)
		}
		if _, err := applyStatus(ctx, c, canceled, domain.StatusConfirmed); err != store.ErrConflict {
			return fmt.Errorf("reconfirm err = %v, want %v", err, store.ErrConflict)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		stmts := splitSQLStatements(upSQL)
		for _, stmt := range stmts {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
