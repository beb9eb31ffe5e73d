package entity

import "time"

// Unidades de medida de un material de construcción.
const (
	UnitPiece       = "piece"
	UnitMeter       = "meter"
	UnitKilogram    = "kilogram"
	UnitLiter       = "liter"
	UnitCubicMeter  = "cubic-meter"
	UnitSquareMeter = "square-meter"
)

// ValidUnit indica si u es una unidad de medida soportada.
func ValidUnit(u string) bool {
	switch u {
	case UnitPiece, UnitMeter, UnitKilogram, UnitLiter, UnitCubicMeter, UnitSquareMeter:
		return true
	}
	return false
}

// Material representa un material de construcción con su existencia física y lo reservado.
// Invariante: 0 <= Reserved <= Quantity. Quantity y Reserved solo cambian vía el ledger.
type Material struct {
	ID           string
	Name         string // único
	Unit         string
	Category     string
	Quantity     int64 // existencia total
	Reserved     int64 // comprometido por reservas ACTIVE
	MinThreshold int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Available devuelve max(0, Quantity - Reserved).
func (m *Material) Available() int64 {
	if a := m.Quantity - m.Reserved; a > 0 {
		return a
	}
	return 0
}

// IsLowStock es verdadero cuando lo disponible está por debajo del umbral mínimo.
func (m *Material) IsLowStock() bool {
	return m.Available() < m.MinThreshold
}
