package inventory

import (
	"context"

	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el ledger: todo lo escrito en fn se confirma junto o nada.
// Los bloqueos tomados con GetForUpdate se liberan al terminar Run.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		materials repository.MaterialRepository,
		reservations repository.ReservationRepository,
		movements repository.StockMovementRepository,
	) error) error
}
