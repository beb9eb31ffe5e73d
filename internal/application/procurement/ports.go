package procurement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// PlacementRequest datos de la orden enviados al proveedor.
type PlacementRequest struct {
	OrderID      string
	MaterialID   string
	MaterialName string
	Quantity     int64
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
}

// Confirmation respuesta del proveedor a PlaceOrder.
type Confirmation struct {
	Success           bool
	ExternalOrderID   string
	EstimatedDelivery *time.Time
	Error             string
}

// SupplierPlacement define el puerto de salida hacia el sistema de pedidos del proveedor
// (API HTTP, simulador, etc.). Puede ser lento o fallar: el caller aplica timeout vía ctx.
type SupplierPlacement interface {
	PlaceOrder(ctx context.Context, supplier *entity.Supplier, order PlacementRequest) (*Confirmation, error)
	// GetPrice devuelve nil si el proveedor no cotiza el material.
	GetPrice(ctx context.Context, supplierID, materialID string) (*decimal.Decimal, error)
	CheckAvailability(ctx context.Context, supplierID, materialID string, quantity int64) (bool, error)
	CancelOrder(ctx context.Context, supplier *entity.Supplier, externalOrderID string) (bool, error)
}

// StockAdjuster es la parte del ledger que usa abastecimiento para cerrar la saga.
// Lo implementa *inventory.LedgerUseCase.
type StockAdjuster interface {
	AdjustQuantity(ctx context.Context, in inventory.AdjustInput) (int64, error)
	HasMovement(ctx context.Context, referenceID, reason string) (bool, error)
}

// MaterialReader lectura de materiales para órdenes manuales y reposición.
type MaterialReader interface {
	GetMaterial(ctx context.Context, id string) (*entity.Material, error)
	GetLowStock(ctx context.Context) ([]*entity.Material, error)
}

// OrderPDFGenerator genera la representación PDF de una orden de compra.
type OrderPDFGenerator interface {
	GenerateOrderPDF(ctx context.Context, order *entity.PurchaseOrder, supplier *entity.Supplier) ([]byte, error)
}

var (
	_ StockAdjuster  = (*inventory.LedgerUseCase)(nil)
	_ MaterialReader = (*inventory.LedgerUseCase)(nil)
)
