package procurement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/procurement"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

const defaultRating = 5.0

// SupplierDirectory administra proveedores y sus ofertas por material.
type SupplierDirectory struct {
	suppliers repository.SupplierRepository
	offers    repository.SupplierMaterialRepository
	materials MaterialReader
}

// NewSupplierDirectory construye el directorio.
func NewSupplierDirectory(
	suppliers repository.SupplierRepository,
	offers repository.SupplierMaterialRepository,
	materials MaterialReader,
) *SupplierDirectory {
	return &SupplierDirectory{suppliers: suppliers, offers: offers, materials: materials}
}

// CreateSupplier registra un proveedor activo. Rating por defecto 5.
func (d *SupplierDirectory) CreateSupplier(ctx context.Context, in dto.CreateSupplierRequest) (*entity.Supplier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	rating := defaultRating
	if in.Rating != nil {
		rating = *in.Rating
	}
	if rating < 0 || rating > 5 {
		return nil, domain.ErrInvalidInput
	}
	s := &entity.Supplier{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Rating:    rating,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.suppliers.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSupplier obtiene un proveedor por ID.
func (d *SupplierDirectory) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	s, err := d.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// ListSuppliers lista proveedores, opcionalmente solo activos.
func (d *SupplierDirectory) ListSuppliers(ctx context.Context, activeOnly bool) ([]*entity.Supplier, error) {
	return d.suppliers.List(ctx, activeOnly)
}

// SetActive activa o desactiva un proveedor. Un proveedor inactivo no participa en la selección.
func (d *SupplierDirectory) SetActive(ctx context.Context, id string, active bool) (*entity.Supplier, error) {
	if _, err := d.GetSupplier(ctx, id); err != nil {
		return nil, err
	}
	if err := d.suppliers.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return d.GetSupplier(ctx, id)
}

// AddOffer crea o actualiza el precio de un material para un proveedor.
func (d *SupplierDirectory) AddOffer(ctx context.Context, supplierID string, in dto.AddOfferRequest) (*entity.SupplierMaterial, error) {
	if in.MaterialID == "" || in.UnitPrice.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	if _, err := d.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}
	m, err := d.materials.GetMaterial(ctx, in.MaterialID)
	if err != nil {
		return nil, err
	}
	o := &entity.SupplierMaterial{
		ID:           uuid.New().String(),
		SupplierID:   supplierID,
		MaterialID:   m.ID,
		MaterialName: m.Name,
		UnitPrice:    in.UnitPrice,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := d.offers.Upsert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOffers ofertas publicadas por un proveedor.
func (d *SupplierDirectory) ListOffers(ctx context.Context, supplierID string) ([]*entity.SupplierMaterial, error) {
	if _, err := d.GetSupplier(ctx, supplierID); err != nil {
		return nil, err
	}
	return d.offers.ListBySupplier(ctx, supplierID)
}

// GetSuppliersForMaterial proveedores activos con al menos una oferta para el material.
func (d *SupplierDirectory) GetSuppliersForMaterial(ctx context.Context, materialID string) ([]*entity.Supplier, error) {
	return d.suppliers.ListActiveForMaterial(ctx, materialID)
}

// OffersBySupplier agrupa por proveedor las ofertas para el material.
func (d *SupplierDirectory) OffersBySupplier(ctx context.Context, materialID string, suppliers []*entity.Supplier) (map[string][]*entity.SupplierMaterial, error) {
	offers, err := d.offers.ListByMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(suppliers))
	for _, s := range suppliers {
		wanted[s.ID] = true
	}
	out := make(map[string][]*entity.SupplierMaterial, len(suppliers))
	for _, o := range offers {
		if wanted[o.SupplierID] {
			out[o.SupplierID] = append(out[o.SupplierID], o)
		}
	}
	return out, nil
}

// BestOffer consulta el directorio y aplica el selector. ok es false si no hay candidato.
func (d *SupplierDirectory) BestOffer(ctx context.Context, materialID string) (procurement.Candidate, bool, error) {
	suppliers, err := d.GetSuppliersForMaterial(ctx, materialID)
	if err != nil {
		return procurement.Candidate{}, false, err
	}
	offers, err := d.OffersBySupplier(ctx, materialID, suppliers)
	if err != nil {
		return procurement.Candidate{}, false, err
	}
	best, ok := procurement.SelectBest(materialID, suppliers, offers)
	return best, ok, nil
}

// Offer oferta del proveedor para el material; (nil, nil) si no cotiza.
func (d *SupplierDirectory) Offer(ctx context.Context, supplierID, materialID string) (*entity.SupplierMaterial, error) {
	return d.offers.Get(ctx, supplierID, materialID)
}
