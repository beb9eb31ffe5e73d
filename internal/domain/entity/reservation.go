package entity

import "time"

// Estados de una reserva.
const (
	ReservationActive    = "ACTIVE"
	ReservationFulfilled = "FULFILLED"
	ReservationCancelled = "CANCELLED"
)

// Reservation compromete cantidad de un material para una solicitud.
// Material.Reserved == suma de Quantity de sus reservas ACTIVE.
type Reservation struct {
	ID          string
	MaterialID  string
	RequestID   string
	Quantity    int64
	Status      string
	CreatedAt   time.Time
	FulfilledAt *time.Time
}

// IsActive indica si la reserva sigue comprometiendo stock.
func (r *Reservation) IsActive() bool { return r.Status == ReservationActive }
