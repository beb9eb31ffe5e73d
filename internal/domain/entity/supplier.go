package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier proveedor de materiales. Rating en [0,5].
type Supplier struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Rating    float64
	IsActive  bool
	CreatedAt time.Time
}

// SupplierMaterial oferta de un proveedor para un material (precio unitario >= 0).
type SupplierMaterial struct {
	ID           string
	SupplierID   string
	MaterialID   string
	MaterialName string
	UnitPrice    decimal.Decimal
	UpdatedAt    time.Time
}
