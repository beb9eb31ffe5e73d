package repository

import (
	"context"
	"time"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// ReservationRepository puerto de persistencia para reservas.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	UpdateStatus(ctx context.Context, id, status string, fulfilledAt *time.Time) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.Reservation, error)
	// SumActive suma las cantidades de reservas ACTIVE del material.
	SumActive(ctx context.Context, materialID string) (int64, error)
}
