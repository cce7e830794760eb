package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"chairbook/internal/domain"
	"chairbook/internal/store"
)

type CatalogRepo struct {
	db *bun.DB
}

func NewCatalogRepo(db *bun.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) ListServices(ctx context.Context, businessID string) ([]domain.Service, error) {
	var rows []domain.Service
	err := r.db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CatalogRepo) GetService(ctx context.Context, businessID, serviceID string) (domain.Service, error) {
	var s domain.Service
	err := r.db.NewSelect().
		Model(&s).
		Where("business_id = ?", businessID).
		Where("id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrNotFound
		}
		return domain.Service{}, err
	}
	return s, nil
}

func (r *CatalogRepo) ListWorkers(ctx context.Context, businessID string) ([]domain.Worker, error) {
	var rows []domain.Worker
	err := r.db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CatalogRepo) GetWorker(ctx context.Context, businessID, workerID string) (domain.Worker, error) {
	var w domain.Worker
	err := r.db.NewSelect().
		Model(&w).
		Where("business_id = ?", businessID).
		Where("id = ?", workerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Worker{}, store.ErrNotFound
		}
		return domain.Worker{}, err
	}
	return w, nil
}

func (r *CatalogRepo) ListOpeningHours(ctx context.Context, businessID string) ([]domain.OpeningHours, error) {
	var rows []domain.OpeningHours
	err := r.db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		OrderExpr("weekday ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping backs the readiness probe.
func Ping(ctx context.Context, db *bun.DB) error {
	return db.PingContext(ctx)
}
