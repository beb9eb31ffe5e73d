package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de compra.
const (
	OrderPending   = "PENDING"
	OrderOrdered   = "ORDERED"
	OrderDelivered = "DELIVERED"
	OrderCancelled = "CANCELLED"
)

// transitions estados alcanzables desde cada estado. DELIVERED y CANCELLED son terminales.
var transitions = map[string][]string{
	OrderPending: {OrderOrdered, OrderCancelled},
	OrderOrdered: {OrderDelivered, OrderCancelled},
}

// CanTransition indica si el paso from -> to está permitido.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PurchaseOrder orden de compra a un proveedor. TotalPrice = UnitPrice * Quantity.
type PurchaseOrder struct {
	ID                   string
	MaterialID           string
	MaterialName         string
	SupplierID           string
	SupplierName         string
	Quantity             int64
	UnitPrice            decimal.Decimal
	TotalPrice           decimal.Decimal
	Status               string
	ExternalOrderID      string
	TriggeredByRequestID string
	ExpectedDelivery     *time.Time
	FailureReason        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CalculateTotal recalcula TotalPrice en aritmética decimal exacta.
func (o *PurchaseOrder) CalculateTotal() {
	o.TotalPrice = o.UnitPrice.Mul(decimal.NewFromInt(o.Quantity))
}

// IsTerminal indica si la orden ya no admite transiciones.
func (o *PurchaseOrder) IsTerminal() bool {
	return o.Status == OrderDelivered || o.Status == OrderCancelled
}
