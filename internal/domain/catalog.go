package domain

import (
	"github.com/uptrace/bun"
)

// Service is reference data owned by the business. Bookings copy it into a
// ServiceSnapshot and never mutate it.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              string  `bun:"id,pk"`
	BusinessID      string  `bun:"business_id,notnull"`
	Name            string  `bun:"name,notnull"`
	DurationMinutes int     `bun:"duration_minutes,notnull"`
	Price           float64 `bun:"price,notnull"`
}

func (s Service) Snapshot() ServiceSnapshot {
	return ServiceSnapshot{
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
	}
}

type Worker struct {
	bun.BaseModel `bun:"table:workers"`

	ID         string `bun:"id,pk"`
	BusinessID string `bun:"business_id,notnull"`
	Name       string `bun:"name,notnull"`
	AvatarURL  string `bun:"avatar_url"`
}
