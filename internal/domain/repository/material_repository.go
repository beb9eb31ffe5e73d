package repository

import (
	"context"
	"time"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// MaterialRepository define el puerto de persistencia para materiales (DIP).
// GetByID y GetForUpdate devuelven (nil, nil) si no existe.
type MaterialRepository interface {
	Create(ctx context.Context, m *entity.Material) error
	GetByID(ctx context.Context, id string) (*entity.Material, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Material, error)
	List(ctx context.Context, category string, limit, offset int) ([]*entity.Material, error)
	// ListLowStock materiales con (quantity - reserved) < min_threshold.
	ListLowStock(ctx context.Context) ([]*entity.Material, error)
	// Update modifica solo datos de catálogo (nombre, unidad, categoría, umbral).
	Update(ctx context.Context, m *entity.Material) error
	// UpdateStock escribe quantity y reserved; solo lo usa el ledger dentro de una transacción.
	UpdateStock(ctx context.Context, id string, quantity, reserved int64, updatedAt time.Time) error
}
