package dto

import (
	"time"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// ReserveRequest entrada para reservar stock de un material.
type ReserveRequest struct {
	MaterialID string `json:"material_id" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"min=1"`
	RequestID  string `json:"request_id" validate:"required"`
}

// ReservationResponse salida de una reserva.
type ReservationResponse struct {
	ID          string     `json:"id"`
	MaterialID  string     `json:"material_id"`
	RequestID   string     `json:"request_id"`
	Quantity    int64      `json:"quantity"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}

// ToReservationResponse mapea la entidad a su salida HTTP.
func ToReservationResponse(r *entity.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID,
		MaterialID:  r.MaterialID,
		RequestID:   r.RequestID,
		Quantity:    r.Quantity,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		FulfilledAt: r.FulfilledAt,
	}
}
