package repository

import (
	"context"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// SupplierRepository puerto de persistencia para proveedores.
type SupplierRepository interface {
	Create(ctx context.Context, s *entity.Supplier) error
	GetByID(ctx context.Context, id string) (*entity.Supplier, error)
	List(ctx context.Context, activeOnly bool) ([]*entity.Supplier, error)
	SetActive(ctx context.Context, id string, active bool) error
	// ListActiveForMaterial proveedores activos con al menos una oferta para el material.
	ListActiveForMaterial(ctx context.Context, materialID string) ([]*entity.Supplier, error)
}

// SupplierMaterialRepository puerto de persistencia para ofertas proveedor/material.
type SupplierMaterialRepository interface {
	// Upsert crea o reemplaza la oferta del proveedor para el material.
	Upsert(ctx context.Context, o *entity.SupplierMaterial) error
	Get(ctx context.Context, supplierID, materialID string) (*entity.SupplierMaterial, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*entity.SupplierMaterial, error)
	ListByMaterial(ctx context.Context, materialID string) ([]*entity.SupplierMaterial, error)
}
