package procurement

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/application/dto"
)

// ReplenishmentUseCase genera la lista de reposición: materiales bajo umbral con la
// cantidad sugerida para volver a 1.5x el umbral y el costo con la mejor oferta vigente.
type ReplenishmentUseCase struct {
	materials MaterialReader
	directory *SupplierDirectory
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(materials MaterialReader, directory *SupplierDirectory) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{materials: materials, directory: directory}
}

// GenerateReplenishmentList devuelve las sugerencias ordenadas por urgencia (1 = más urgente).
// Un material sin proveedor aparece igual, con costo cero y sin proveedor.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context) ([]dto.ReplenishmentSuggestion, error) {
	low, err := uc.materials.GetLowStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReplenishmentSuggestion, 0, len(low))
	for _, m := range low {
		ideal := (m.MinThreshold*3 + 1) / 2
		suggested := ideal - m.Available()
		if suggested < 0 {
			suggested = 0
		}
		s := dto.ReplenishmentSuggestion{
			MaterialID:        m.ID,
			MaterialName:      m.Name,
			Category:          m.Category,
			Unit:              m.Unit,
			Available:         m.Available(),
			MinThreshold:      m.MinThreshold,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
			UnitPrice:         decimal.Zero,
			EstimatedCost:     decimal.Zero,
		}
		best, ok, err := uc.directory.BestOffer(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			s.SupplierID = best.Supplier.ID
			s.SupplierName = best.Supplier.Name
			s.UnitPrice = best.Offer.UnitPrice
			s.EstimatedCost = best.Offer.UnitPrice.Mul(decimal.NewFromInt(suggested))
		}
		out = append(out, s)
	}

	// Mayor déficit relativo al umbral primero; empate por déficit absoluto.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ra := deficitRatio(a)
		rb := deficitRatio(b)
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return a.MinThreshold-a.Available > b.MinThreshold-b.Available
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

func deficitRatio(s dto.ReplenishmentSuggestion) decimal.Decimal {
	if s.MinThreshold <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.MinThreshold - s.Available).Div(decimal.NewFromInt(s.MinThreshold))
}
