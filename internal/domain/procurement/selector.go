package procurement

import (
	"sort"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// Candidate par proveedor/oferta elegible para un material.
type Candidate struct {
	Supplier *entity.Supplier
	Offer    *entity.SupplierMaterial
}

// SelectBest elige el proveedor para materialID (servicio de dominio, sin I/O).
// Descarta inactivos y proveedores sin oferta para el material; de cada proveedor toma
// su oferta más barata. Orden: rating descendente y luego precio unitario ascendente.
// ok es false si no hay candidato.
func SelectBest(
	materialID string,
	suppliers []*entity.Supplier,
	offersBySupplier map[string][]*entity.SupplierMaterial,
) (best Candidate, ok bool) {
	candidates := make([]Candidate, 0, len(suppliers))
	for _, s := range suppliers {
		if s == nil || !s.IsActive {
			continue
		}
		var cheapest *entity.SupplierMaterial
		for _, o := range offersBySupplier[s.ID] {
			if o == nil || o.MaterialID != materialID {
				continue
			}
			if cheapest == nil || o.UnitPrice.LessThan(cheapest.UnitPrice) {
				cheapest = o
			}
		}
		if cheapest != nil {
			candidates = append(candidates, Candidate{Supplier: s, Offer: cheapest})
		}
	}
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Supplier.Rating != b.Supplier.Rating {
			return a.Supplier.Rating > b.Supplier.Rating
		}
		return a.Offer.UnitPrice.LessThan(b.Offer.UnitPrice)
	})
	return candidates[0], true
}
