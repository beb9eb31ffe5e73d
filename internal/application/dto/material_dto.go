package dto

import (
	"time"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// CreateMaterialRequest entrada para registrar un material.
type CreateMaterialRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=200"`
	Unit            string `json:"unit" validate:"required"`
	Category        string `json:"category"`
	InitialQuantity int64  `json:"initial_quantity" validate:"min=0"`
	MinThreshold    int64  `json:"min_threshold" validate:"min=0"`
}

// UpdateMaterialRequest entrada para modificar datos de catálogo (sin cantidades).
type UpdateMaterialRequest struct {
	Name         *string `json:"name"`
	Unit         *string `json:"unit"`
	Category     *string `json:"category"`
	MinThreshold *int64  `json:"min_threshold"`
}

// MaterialResponse salida de un material con sus valores derivados.
type MaterialResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Category     string    `json:"category"`
	Quantity     int64     `json:"quantity"`
	Reserved     int64     `json:"reserved"`
	Available    int64     `json:"available"`
	MinThreshold int64     `json:"min_threshold"`
	IsLowStock   bool      `json:"is_low_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MaterialListResponse lista paginada de materiales.
type MaterialListResponse struct {
	Items []MaterialResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// AdjustQuantityRequest entrada para ajustar la existencia de un material.
type AdjustQuantityRequest struct {
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason" validate:"required"`
	ReferenceID string `json:"reference_id"`
	Notes       string `json:"notes"`
}

// AdjustQuantityResponse resultado de un ajuste.
type AdjustQuantityResponse struct {
	MaterialID  string `json:"material_id"`
	NewQuantity int64  `json:"new_quantity"`
}

// AvailabilityResponse resultado de verificar disponibilidad.
type AvailabilityResponse struct {
	MaterialID   string `json:"material_id"`
	MaterialName string `json:"material_name"`
	IsAvailable  bool   `json:"is_available"`
	Available    int64  `json:"available"`
	Requested    int64  `json:"requested"`
	Shortage     int64  `json:"shortage"`
}

// StockMovementResponse salida de un movimiento del historial.
type StockMovementResponse struct {
	ID          string    `json:"id"`
	MaterialID  string    `json:"material_id"`
	Delta       int64     `json:"delta"`
	Reason      string    `json:"reason"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToMaterialResponse mapea la entidad a su salida HTTP.
func ToMaterialResponse(m *entity.Material) MaterialResponse {
	return MaterialResponse{
		ID:           m.ID,
		Name:         m.Name,
		Unit:         m.Unit,
		Category:     m.Category,
		Quantity:     m.Quantity,
		Reserved:     m.Reserved,
		Available:    m.Available(),
		MinThreshold: m.MinThreshold,
		IsLowStock:   m.IsLowStock(),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ToMaterialResponses mapea una lista de materiales.
func ToMaterialResponses(list []*entity.Material) []MaterialResponse {
	out := make([]MaterialResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMaterialResponse(m))
	}
	return out
}

// ToStockMovementResponses mapea el historial de movimientos.
func ToStockMovementResponses(list []*entity.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, 0, len(list))
	for _, mv := range list {
		out = append(out, StockMovementResponse{
			ID:          mv.ID,
			MaterialID:  mv.MaterialID,
			Delta:       mv.Delta,
			Reason:      mv.Reason,
			ReferenceID: mv.ReferenceID,
			Notes:       mv.Notes,
			CreatedAt:   mv.CreatedAt,
		})
	}
	return out
}
