package placement

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

var _ procurement.SupplierPlacement = (*Simulator)(nil)

// SimulatorConfig comportamiento del proveedor simulado.
type SimulatorConfig struct {
	FailureRate float64       // probabilidad [0,1] de rechazar una orden
	Latency     time.Duration // demora de cada colocación
	MinDays     int           // entrega estimada mínima
	MaxDays     int           // entrega estimada máxima
}

// Simulator proveedor en proceso para desarrollo y demos: acepta órdenes con un número
// STUB-XXXXXXXX, entrega estimada de 2 a 7 días y una tasa de rechazo configurable.
// Respeta la cancelación de ctx durante la latencia simulada.
type Simulator struct {
	cfg    SimulatorConfig
	mu     sync.Mutex
	rnd    *rand.Rand
	placed map[string]bool
	prices map[string]decimal.Decimal
}

// NewSimulator construye el simulador.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.MinDays <= 0 {
		cfg.MinDays = 2
	}
	if cfg.MaxDays < cfg.MinDays {
		cfg.MaxDays = 7
	}
	return &Simulator{
		cfg:    cfg,
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		placed: make(map[string]bool),
		prices: make(map[string]decimal.Decimal),
	}
}

// SetPrice fija la cotización del proveedor para un material (usada por GetPrice).
func (s *Simulator) SetPrice(supplierID, materialID string, price decimal.Decimal) {
	s.mu.Lock()
	s.prices[supplierID+"|"+materialID] = price
	s.mu.Unlock()
}

// PlaceOrder simula la colocación.
func (s *Simulator) PlaceOrder(ctx context.Context, supplier *entity.Supplier, req procurement.PlacementRequest) (*procurement.Confirmation, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.FailureRate > 0 && s.rnd.Float64() < s.cfg.FailureRate {
		return &procurement.Confirmation{
			Success: false,
			Error:   fmt.Sprintf("%s no pudo confirmar %d unidades de %s", supplier.Name, req.Quantity, req.MaterialName),
		}, nil
	}
	external := "STUB-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	s.placed[external] = true
	days := s.cfg.MinDays + s.rnd.IntN(s.cfg.MaxDays-s.cfg.MinDays+1)
	eta := time.Now().UTC().AddDate(0, 0, days)
	return &procurement.Confirmation{Success: true, ExternalOrderID: external, EstimatedDelivery: &eta}, nil
}

// GetPrice devuelve la cotización fijada con SetPrice o nil.
func (s *Simulator) GetPrice(_ context.Context, supplierID, materialID string) (*decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[supplierID+"|"+materialID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// CheckAvailability el simulador siempre tiene existencias.
func (s *Simulator) CheckAvailability(ctx context.Context, _, _ string, quantity int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return quantity > 0, nil
}

// CancelOrder anula una orden colocada por este simulador.
func (s *Simulator) CancelOrder(_ context.Context, _ *entity.Supplier, externalOrderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.placed[externalOrderID] {
		return false, nil
	}
	delete(s.placed, externalOrderID)
	return true, nil
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
