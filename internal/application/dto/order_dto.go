package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// CreateOrderRequest entrada para una orden de compra manual.
type CreateOrderRequest struct {
	MaterialID string `json:"material_id" validate:"required"`
	SupplierID string `json:"supplier_id" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"min=1"`
	RequestID  string `json:"request_id"`
}

// ProcurementResult resultado de procesar un faltante o crear una orden.
type ProcurementResult struct {
	OrderID       string          `json:"order_id"`
	SupplierName  string          `json:"supplier_name"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

// PurchaseOrderResponse salida de una orden de compra.
type PurchaseOrderResponse struct {
	ID                   string          `json:"id"`
	MaterialID           string          `json:"material_id"`
	MaterialName         string          `json:"material_name"`
	SupplierID           string          `json:"supplier_id"`
	SupplierName         string          `json:"supplier_name"`
	Quantity             int64           `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	Status               string          `json:"status"`
	ExternalOrderID      string          `json:"external_order_id,omitempty"`
	TriggeredByRequestID string          `json:"triggered_by_request_id,omitempty"`
	ExpectedDelivery     *time.Time      `json:"expected_delivery,omitempty"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ToPurchaseOrderResponse mapea la entidad a su salida HTTP.
func ToPurchaseOrderResponse(o *entity.PurchaseOrder) PurchaseOrderResponse {
	return PurchaseOrderResponse{
		ID:                   o.ID,
		MaterialID:           o.MaterialID,
		MaterialName:         o.MaterialName,
		SupplierID:           o.SupplierID,
		SupplierName:         o.SupplierName,
		Quantity:             o.Quantity,
		UnitPrice:            o.UnitPrice,
		TotalPrice:           o.TotalPrice,
		Status:               o.Status,
		ExternalOrderID:      o.ExternalOrderID,
		TriggeredByRequestID: o.TriggeredByRequestID,
		ExpectedDelivery:     o.ExpectedDelivery,
		FailureReason:        o.FailureReason,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// ReplenishmentSuggestion material bajo umbral con la cantidad sugerida y la mejor oferta.
type ReplenishmentSuggestion struct {
	MaterialID        string          `json:"material_id"`
	MaterialName      string          `json:"material_name"`
	Category          string          `json:"category,omitempty"`
	Unit              string          `json:"unit"`
	Available         int64           `json:"available"`
	MinThreshold      int64           `json:"min_threshold"`
	IdealStock        int64           `json:"ideal_stock"`
	SuggestedOrderQty int64           `json:"suggested_order_qty"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	SupplierName      string          `json:"supplier_name,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
	Priority          int             `json:"priority"`
}
