package repository

import (
	"context"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// PurchaseOrderFilter filtros opcionales para listar órdenes.
type PurchaseOrderFilter struct {
	Status     string
	SupplierID string
	MaterialID string
	Limit      int
	Offset     int
}

// PurchaseOrderRepository puerto de persistencia para órdenes de compra.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, o *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// UpdateIfStatus guarda o solo si su estado persistido sigue siendo expectedStatus.
	// Devuelve false si otro proceso cambió el estado antes (compare-and-set).
	UpdateIfStatus(ctx context.Context, o *entity.PurchaseOrder, expectedStatus string) (bool, error)
	List(ctx context.Context, f PurchaseOrderFilter) ([]*entity.PurchaseOrder, error)
}
