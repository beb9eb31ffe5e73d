package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

var (
	_ repository.SupplierRepository         = (*SupplierRepo)(nil)
	_ repository.SupplierMaterialRepository = (*SupplierMaterialRepo)(nil)
	_ repository.PurchaseOrderRepository    = (*PurchaseOrderRepo)(nil)
	_ repository.ProcessedEventRepository   = (*ProcessedEventRepo)(nil)
)

// ── Proveedores ──────────────────────────────────────────────────────────────

// SupplierRepo implementación en memoria de SupplierRepository.
type SupplierRepo struct{ s *Store }

// NewSupplierRepository construye el repositorio.
func NewSupplierRepository(s *Store) *SupplierRepo { return &SupplierRepo{s: s} }

// Create persiste un proveedor.
func (r *SupplierRepo) Create(_ context.Context, sup *entity.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[sup.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.suppliers[sup.ID] = *sup
	return nil
}

// GetByID obtiene un proveedor; (nil, nil) si no existe.
func (r *SupplierRepo) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sup, ok := r.s.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &sup, nil
}

// List proveedores ordenados por nombre.
func (r *SupplierRepo) List(_ context.Context, activeOnly bool) ([]*entity.Supplier, error) {
	r.s.mu.RLock()
	out := make([]*entity.Supplier, 0, len(r.s.suppliers))
	for _, sup := range r.s.suppliers {
		if activeOnly && !sup.IsActive {
			continue
		}
		out = append(out, &sup)
	}
	r.s.mu.RUnlock()
	sortSuppliers(out)
	return out, nil
}

// SetActive activa o desactiva un proveedor.
func (r *SupplierRepo) SetActive(_ context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sup, ok := r.s.suppliers[id]
	if !ok {
		return domain.ErrNotFound
	}
	sup.IsActive = active
	r.s.suppliers[id] = sup
	return nil
}

// ListActiveForMaterial proveedores activos con oferta para el material.
func (r *SupplierRepo) ListActiveForMaterial(_ context.Context, materialID string) ([]*entity.Supplier, error) {
	r.s.mu.RLock()
	var out []*entity.Supplier
	for _, sup := range r.s.suppliers {
		if !sup.IsActive {
			continue
		}
		if _, ok := r.s.offers[offerKey(sup.ID, materialID)]; ok {
			out = append(out, &sup)
		}
	}
	r.s.mu.RUnlock()
	sortSuppliers(out)
	return out, nil
}

func sortSuppliers(list []*entity.Supplier) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

// ── Ofertas ──────────────────────────────────────────────────────────────────

// SupplierMaterialRepo implementación en memoria de SupplierMaterialRepository.
type SupplierMaterialRepo struct{ s *Store }

// NewSupplierMaterialRepository construye el repositorio.
func NewSupplierMaterialRepository(s *Store) *SupplierMaterialRepo {
	return &SupplierMaterialRepo{s: s}
}

// Upsert crea o reemplaza la oferta; conserva el ID de una oferta existente.
func (r *SupplierMaterialRepo) Upsert(_ context.Context, o *entity.SupplierMaterial) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[o.SupplierID]; !ok {
		return domain.ErrNotFound
	}
	key := offerKey(o.SupplierID, o.MaterialID)
	if cur, ok := r.s.offers[key]; ok {
		o.ID = cur.ID
	}
	r.s.offers[key] = *o
	return nil
}

// Get obtiene la oferta del proveedor para el material; (nil, nil) si no existe.
func (r *SupplierMaterialRepo) Get(_ context.Context, supplierID, materialID string) (*entity.SupplierMaterial, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.offers[offerKey(supplierID, materialID)]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// ListBySupplier ofertas de un proveedor.
func (r *SupplierMaterialRepo) ListBySupplier(_ context.Context, supplierID string) ([]*entity.SupplierMaterial, error) {
	return r.filter(func(o entity.SupplierMaterial) bool { return o.SupplierID == supplierID }), nil
}

// ListByMaterial ofertas para un material.
func (r *SupplierMaterialRepo) ListByMaterial(_ context.Context, materialID string) ([]*entity.SupplierMaterial, error) {
	return r.filter(func(o entity.SupplierMaterial) bool { return o.MaterialID == materialID }), nil
}

func (r *SupplierMaterialRepo) filter(keep func(entity.SupplierMaterial) bool) []*entity.SupplierMaterial {
	r.s.mu.RLock()
	var out []*entity.SupplierMaterial
	for _, o := range r.s.offers {
		if keep(o) {
			out = append(out, &o)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UnitPrice.LessThan(out[j].UnitPrice) })
	return out
}

// ── Órdenes de compra ────────────────────────────────────────────────────────

// PurchaseOrderRepo implementación en memoria de PurchaseOrderRepository.
type PurchaseOrderRepo struct{ s *Store }

// NewPurchaseOrderRepository construye el repositorio.
func NewPurchaseOrderRepository(s *Store) *PurchaseOrderRepo { return &PurchaseOrderRepo{s: s} }

// Create persiste una orden.
func (r *PurchaseOrderRepo) Create(_ context.Context, o *entity.PurchaseOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.orders[o.ID] = *o
	return nil
}

// GetByID obtiene una orden; (nil, nil) si no existe.
func (r *PurchaseOrderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// UpdateIfStatus reemplaza la orden solo si su estado actual es expectedStatus.
func (r *PurchaseOrderRepo) UpdateIfStatus(_ context.Context, o *entity.PurchaseOrder, expectedStatus string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[o.ID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if cur.Status != expectedStatus {
		return false, nil
	}
	r.s.orders[o.ID] = *o
	return true, nil
}

// List órdenes filtradas, más recientes primero.
func (r *PurchaseOrderRepo) List(_ context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	var out []*entity.PurchaseOrder
	for _, o := range r.s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.SupplierID != "" && o.SupplierID != f.SupplierID {
			continue
		}
		if f.MaterialID != "" && o.MaterialID != f.MaterialID {
			continue
		}
		out = append(out, &o)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Limit, f.Offset), nil
}

// ── Eventos procesados ───────────────────────────────────────────────────────

// ProcessedEventRepo implementación en memoria de ProcessedEventRepository.
type ProcessedEventRepo struct{ s *Store }

// NewProcessedEventRepository construye el repositorio.
func NewProcessedEventRepository(s *Store) *ProcessedEventRepo { return &ProcessedEventRepo{s: s} }

// Claim registra key; false si ya estaba.
func (r *ProcessedEventRepo) Claim(_ context.Context, key string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.processed[key]; ok {
		return false, nil
	}
	r.s.processed[key] = time.Now().UTC()
	return true, nil
}

// Release elimina key.
func (r *ProcessedEventRepo) Release(_ context.Context, key string) error {
	r.s.mu.Lock()
	delete(r.s.processed, key)
	r.s.mu.Unlock()
	return nil
}
