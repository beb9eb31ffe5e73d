package repository

import (
	"context"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// StockMovementRepository puerto append-only para el historial de movimientos.
// No existen operaciones de actualización ni borrado.
type StockMovementRepository interface {
	Create(ctx context.Context, mov *entity.StockMovement) error
	ListByMaterial(ctx context.Context, materialID string, limit int) ([]*entity.StockMovement, error)
	ExistsByReference(ctx context.Context, referenceID, reason string) (bool, error)
}
