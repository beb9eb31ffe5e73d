package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// CreateSupplierRequest entrada para registrar un proveedor.
type CreateSupplierRequest struct {
	Name   string   `json:"name" validate:"required"`
	Email  string   `json:"email"`
	Phone  string   `json:"phone"`
	Rating *float64 `json:"rating"` // 0..5, por defecto 5
}

// SupplierResponse salida de un proveedor.
type SupplierResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Rating    float64   `json:"rating"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// SetSupplierActiveRequest activa o desactiva un proveedor.
type SetSupplierActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// AddOfferRequest entrada para publicar el precio de un material de un proveedor.
type AddOfferRequest struct {
	MaterialID string          `json:"material_id" validate:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// OfferResponse salida de una oferta proveedor/material.
type OfferResponse struct {
	ID           string          `json:"id"`
	SupplierID   string          `json:"supplier_id"`
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// ToSupplierResponse mapea la entidad a su salida HTTP.
func ToSupplierResponse(s *entity.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Phone:     s.Phone,
		Rating:    s.Rating,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

// ToOfferResponse mapea una oferta.
func ToOfferResponse(o *entity.SupplierMaterial) OfferResponse {
	return OfferResponse{
		ID:           o.ID,
		SupplierID:   o.SupplierID,
		MaterialID:   o.MaterialID,
		MaterialName: o.MaterialName,
		UnitPrice:    o.UnitPrice,
	}
}
