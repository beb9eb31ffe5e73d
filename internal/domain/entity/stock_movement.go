package entity

import "time"

// Razones de un movimiento de stock.
const (
	ReasonPurchase         = "PURCHASE"
	ReasonManualAdjustment = "MANUAL_ADJUSTMENT"
	ReasonConsumption      = "CONSUMPTION"
	ReasonReservation      = "RESERVATION"
	ReasonRelease          = "RELEASE"
	ReasonInitial          = "INITIAL"
)

// ValidReason indica si r es una razón de movimiento conocida.
func ValidReason(r string) bool {
	switch r {
	case ReasonPurchase, ReasonManualAdjustment, ReasonConsumption,
		ReasonReservation, ReasonRelease, ReasonInitial:
		return true
	}
	return false
}

// StockMovement registro inmutable de un cambio de cantidad (append-only).
// Delta es el cambio efectivo aplicado a Quantity, no el solicitado.
type StockMovement struct {
	ID          string
	MaterialID  string
	Delta       int64
	Reason      string
	ReferenceID string // orden de compra, reserva, nota de ajuste, etc.
	Notes       string
	CreatedAt   time.Time
}
