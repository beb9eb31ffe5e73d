package procurement_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/internal/infrastructure/memory"
)

// recordingPublisher guarda los eventos publicados para entregarlos a mano al consumidor.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	routingKey string
	payload    []byte
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey, _ string, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{routingKey: routingKey, payload: b})
	return nil
}

func (p *recordingPublisher) snapshot() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type sagaContext struct {
	ledger    *inventory.LedgerUseCase
	requests  *inventory.RequestService
	directory *procurement.SupplierDirectory
	manager   *procurement.OrderManager
	consumer  *procurement.ShortageConsumer
	placement *fakePlacement
	events    *recordingPublisher

	materials   map[string]*entity.Material
	suppliers   map[string]*entity.Supplier
	reservation *entity.Reservation
	avail       *dto.AvailabilityResponse
	reserveErr  error
	delivered   int
}

func (c *sagaContext) reset() {
	store := memory.NewStore()
	c.events = &recordingPublisher{}
	notifier := inventory.NewEventNotifier(c.events, nil, nil, time.Second)
	materials := memory.NewMaterialRepository(store)
	c.ledger = inventory.NewLedgerUseCase(
		memory.NewTxRunner(store), materials,
		memory.NewReservationRepository(store), memory.NewStockMovementRepository(store),
		notifier, nil, nil,
	)
	c.requests = inventory.NewRequestService(c.ledger, inventory.NewAvailabilityChecker(materials, notifier, nil, nil))
	c.directory = procurement.NewSupplierDirectory(
		memory.NewSupplierRepository(store), memory.NewSupplierMaterialRepository(store), c.ledger,
	)
	c.placement = newFakePlacement()
	c.manager = procurement.NewOrderManager(
		memory.NewPurchaseOrderRepository(store), c.directory, c.placement, c.ledger, c.ledger,
		fakePDF{}, nil, nil, procurement.OrderManagerConfig{PlacementTimeout: time.Second},
	)
	c.consumer = procurement.NewShortageConsumer(c.manager, memory.NewProcessedEventRepository(store), nil, nil)
	c.materials = make(map[string]*entity.Material)
	c.suppliers = make(map[string]*entity.Supplier)
	c.reservation, c.avail, c.reserveErr = nil, nil, nil
	c.delivered = 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Given
// ─────────────────────────────────────────────────────────────────────────────

func (c *sagaContext) material(ctx context.Context, name string, qty, threshold int64) error {
	m, err := c.ledger.CreateMaterial(ctx, dto.CreateMaterialRequest{
		Name: name, Unit: entity.UnitKilogram, InitialQuantity: qty, MinThreshold: threshold,
	})
	if err != nil {
		return err
	}
	c.materials[name] = m
	return nil
}

func (c *sagaContext) supplierOffers(ctx context.Context, name string, rating float64, material, price string) error {
	m, ok := c.materials[material]
	if !ok {
		return fmt.Errorf("material %q no registrado", material)
	}
	s, err := c.directory.CreateSupplier(ctx, dto.CreateSupplierRequest{Name: name, Rating: &rating})
	if err != nil {
		return err
	}
	c.suppliers[name] = s
	_, err = c.directory.AddOffer(ctx, s.ID, dto.AddOfferRequest{MaterialID: m.ID, UnitPrice: decimal.RequireFromString(price)})
	return err
}

func (c *sagaContext) supplierInactive(ctx context.Context, name string) error {
	s, ok := c.suppliers[name]
	if !ok {
		return fmt.Errorf("proveedor %q no registrado", name)
	}
	_, err := c.directory.SetActive(ctx, s.ID, false)
	return err
}

func (c *sagaContext) supplierRejects(reason string) error {
	c.placement.mu.Lock()
	c.placement.fail = reason
	c.placement.mu.Unlock()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// When
// ─────────────────────────────────────────────────────────────────────────────

func (c *sagaContext) requestReserve(ctx context.Context, requestID string, qty int64, material string) error {
	m, ok := c.materials[material]
	if !ok {
		return fmt.Errorf("material %q no registrado", material)
	}
	c.reservation, c.avail, c.reserveErr = c.requests.ReserveOrSignal(ctx, m.ID, qty, requestID)
	if c.reserveErr != nil && !errors.Is(c.reserveErr, domain.ErrInsufficientStock) {
		return c.reserveErr
	}
	return nil
}

func (c *sagaContext) consumeEvents(ctx context.Context) error {
	return c.consumeEventsTimes(ctx, 1)
}

func (c *sagaContext) consumeEventsTimes(ctx context.Context, times int) error {
	for range times {
		for _, ev := range c.events.snapshot() {
			if err := c.consumer.Handle(ctx, ev.routingKey, ev.payload); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *sagaContext) deliverLastOrder(ctx context.Context) error {
	o, err := c.lastOrder(ctx)
	if err != nil {
		return err
	}
	_, err = c.manager.MarkDelivered(ctx, o.ID)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Then
// ─────────────────────────────────────────────────────────────────────────────

func (c *sagaContext) rejectedWithShortage(shortage int64) error {
	if !errors.Is(c.reserveErr, domain.ErrInsufficientStock) {
		return fmt.Errorf("se esperaba stock insuficiente, error: %v", c.reserveErr)
	}
	if c.avail == nil || c.avail.Shortage != shortage {
		return fmt.Errorf("faltante esperado %d, disponibilidad %+v", shortage, c.avail)
	}
	return nil
}

func (c *sagaContext) reserved() error {
	if c.reserveErr != nil || c.reservation == nil {
		return fmt.Errorf("se esperaba una reserva, error: %v", c.reserveErr)
	}
	if c.reservation.Status != entity.ReservationActive {
		return fmt.Errorf("reserva en estado %s", c.reservation.Status)
	}
	return nil
}

func (c *sagaContext) publishedEvents(n int, routingKey string) error {
	got := 0
	for _, ev := range c.events.snapshot() {
		if ev.routingKey == routingKey {
			got++
		}
	}
	if got != n {
		return fmt.Errorf("eventos %s: esperados %d, publicados %d", routingKey, n, got)
	}
	return nil
}

func (c *sagaContext) orderCount(ctx context.Context, n int) error {
	orders, err := c.manager.ListOrders(ctx, repository.PurchaseOrderFilter{})
	if err != nil {
		return err
	}
	if len(orders) != n {
		return fmt.Errorf("órdenes: esperadas %d, hay %d", n, len(orders))
	}
	return nil
}

func (c *sagaContext) lastOrderIs(ctx context.Context, status, supplier string, qty int64, total string) error {
	o, err := c.lastOrder(ctx)
	if err != nil {
		return err
	}
	switch {
	case o.Status != status:
		return fmt.Errorf("estado %s, esperado %s", o.Status, status)
	case o.SupplierName != supplier:
		return fmt.Errorf("proveedor %s, esperado %s", o.SupplierName, supplier)
	case o.Quantity != qty:
		return fmt.Errorf("cantidad %d, esperada %d", o.Quantity, qty)
	case !o.TotalPrice.Equal(decimal.RequireFromString(total)):
		return fmt.Errorf("total %s, esperado %s", o.TotalPrice, total)
	}
	return nil
}

func (c *sagaContext) lastOrderFailed(ctx context.Context, status, reason string) error {
	o, err := c.lastOrder(ctx)
	if err != nil {
		return err
	}
	if o.Status != status || !strings.Contains(o.FailureReason, reason) {
		return fmt.Errorf("orden %s con motivo %q", o.Status, o.FailureReason)
	}
	return nil
}

func (c *sagaContext) materialQuantity(ctx context.Context, name string, qty int64) error {
	m, err := c.current(ctx, name)
	if err != nil {
		return err
	}
	if m.Quantity != qty {
		return fmt.Errorf("%s: cantidad %d, esperada %d", name, m.Quantity, qty)
	}
	return nil
}

func (c *sagaContext) materialAvailable(ctx context.Context, name string, qty int64) error {
	m, err := c.current(ctx, name)
	if err != nil {
		return err
	}
	if m.Available() != qty {
		return fmt.Errorf("%s: disponible %d, esperado %d", name, m.Available(), qty)
	}
	return nil
}

func (c *sagaContext) canReserve(ctx context.Context, requestID string, qty int64, material string) error {
	if err := c.requestReserve(ctx, requestID, qty, material); err != nil {
		return err
	}
	return c.reserved()
}

func (c *sagaContext) current(ctx context.Context, name string) (*entity.Material, error) {
	m, ok := c.materials[name]
	if !ok {
		return nil, fmt.Errorf("material %q no registrado", name)
	}
	return c.ledger.GetMaterial(ctx, m.ID)
}

func (c *sagaContext) lastOrder(ctx context.Context) (*entity.PurchaseOrder, error) {
	orders, err := c.manager.ListOrders(ctx, repository.PurchaseOrderFilter{})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, errors.New("no hay órdenes de compra")
	}
	last := orders[0]
	for _, o := range orders[1:] {
		if o.CreatedAt.After(last.CreatedAt) {
			last = o
		}
	}
	return last, nil
}

func initializeSagaScenario(sc *godog.ScenarioContext) {
	c := &sagaContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		c.reset()
		return ctx, nil
	})

	sc.Step(`^el material "([^"]*)" con (\d+) unidades y umbral (\d+)$`, c.material)
	sc.Step(`^el proveedor "([^"]*)" con calificación ([\d.]+) ofrece "([^"]*)" a "([^"]*)"$`, c.supplierOffers)
	sc.Step(`^el proveedor "([^"]*)" está inactivo$`, c.supplierInactive)
	sc.Step(`^el proveedor rechaza las órdenes con "([^"]*)"$`, c.supplierRejects)

	sc.Step(`^la solicitud "([^"]*)" pide (\d+) unidades de "([^"]*)"$`, c.requestReserve)
	sc.Step(`^el consumidor procesa los eventos publicados$`, c.consumeEvents)
	sc.Step(`^el consumidor procesa los eventos publicados (\d+) veces$`, c.consumeEventsTimes)
	sc.Step(`^se registra la entrega de la última orden$`, c.deliverLastOrder)

	sc.Step(`^la solicitud es rechazada con un faltante de (\d+)$`, c.rejectedWithShortage)
	sc.Step(`^la solicitud queda reservada$`, c.reserved)
	sc.Step(`^se publicaron (\d+) eventos "([^"]*)"$`, c.publishedEvents)
	sc.Step(`^hay (\d+) órdenes de compra$`, c.orderCount)
	sc.Step(`^la última orden está "([^"]*)" con "([^"]*)" por (\d+) unidades y total "([^"]*)"$`, c.lastOrderIs)
	sc.Step(`^la última orden está "([^"]*)" con motivo "([^"]*)"$`, c.lastOrderFailed)
	sc.Step(`^"([^"]*)" tiene (\d+) unidades$`, c.materialQuantity)
	sc.Step(`^"([^"]*)" tiene (\d+) unidades disponibles$`, c.materialAvailable)
	sc.Step(`^la solicitud "([^"]*)" puede reservar (\d+) unidades de "([^"]*)"$`, c.canReserve)
}

func TestShortageSagaFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "shortage-saga",
		ScenarioInitializer: initializeSagaScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("escenarios de abastecimiento fallidos")
	}
}

var _ ports.EventPublisher = (*recordingPublisher)(nil)
