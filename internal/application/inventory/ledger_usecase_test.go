package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/infrastructure/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type published struct {
	routingKey string
	key        string
	payload    []byte
}

// fakePublisher registra los eventos publicados; err simula un canal caído.
type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey, key string, event any) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, published{routingKey: routingKey, key: key, payload: b})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) byRoutingKey(rk string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.routingKey == rk {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store     *memory.Store
	ledger    *inventory.LedgerUseCase
	checker   *inventory.AvailabilityChecker
	requests  *inventory.RequestService
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &fakePublisher{}
	notifier := inventory.NewEventNotifier(pub, nil, nil, 0)
	materials := memory.NewMaterialRepository(store)
	ledger := inventory.NewLedgerUseCase(
		memory.NewTxRunner(store),
		materials,
		memory.NewReservationRepository(store),
		memory.NewStockMovementRepository(store),
		notifier, nil, nil,
	)
	checker := inventory.NewAvailabilityChecker(materials, notifier, nil, nil)
	return &fixture{
		store:     store,
		ledger:    ledger,
		checker:   checker,
		requests:  inventory.NewRequestService(ledger, checker),
		publisher: pub,
	}
}

func (f *fixture) material(t *testing.T, name string, qty, threshold int64) *entity.Material {
	t.Helper()
	m, err := f.ledger.CreateMaterial(context.Background(), dto.CreateMaterialRequest{
		Name:            name,
		Unit:            entity.UnitPiece,
		InitialQuantity: qty,
		MinThreshold:    threshold,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) reload(t *testing.T, id string) *entity.Material {
	t.Helper()
	m, err := f.ledger.GetMaterial(context.Background(), id)
	require.NoError(t, err)
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Catálogo
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateMaterial_RegistraMovimientoInicial(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "Cemento gris 50kg", 100, 20)

	movs, err := f.ledger.ListMovements(context.Background(), m.ID, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, int64(100), movs[0].Delta)
	assert.Equal(t, entity.ReasonInitial, movs[0].Reason)
}

func TestCreateMaterial_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.CreateMaterial(ctx, dto.CreateMaterialRequest{Name: "  ", Unit: entity.UnitPiece})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.CreateMaterial(ctx, dto.CreateMaterialRequest{Name: "Arena", Unit: "bulto"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.material(t, "Arena", 10, 0)
	_, err = f.ledger.CreateMaterial(ctx, dto.CreateMaterialRequest{Name: "Arena", Unit: entity.UnitCubicMeter})
	assert.ErrorIs(t, err, domain.ErrDuplicate, "el nombre es único")
}

func TestGetMaterial_NoExiste(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.GetMaterial(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Reservas
// ─────────────────────────────────────────────────────────────────────────────

func TestReserve_DescuentaDisponible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Varilla 3/8", 100, 20)

	res, err := f.ledger.Reserve(ctx, m.ID, 90, "req-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationActive, res.Status)

	got := f.reload(t, m.ID)
	assert.Equal(t, int64(100), got.Quantity)
	assert.Equal(t, int64(90), got.Reserved)
	assert.Equal(t, int64(10), got.Available())
	assert.True(t, got.IsLowStock(), "disponible 10 < umbral 20")

	_, err = f.ledger.Reserve(ctx, m.ID, 11, "req-2")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(90), f.reload(t, m.ID).Reserved, "un rechazo no modifica reserved")
}

func TestReserve_EntradasInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Ladrillo", 10, 0)

	_, err := f.ledger.Reserve(ctx, m.ID, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.Reserve(ctx, "no-existe", 1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_ConcurrenteNoSobrevende(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "Bloque de concreto", 50, 0)

	const workers = 40
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Reserve(context.Background(), m.ID, 2, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				refused++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, ok, "50 unidades alcanzan para 25 reservas de 2")
	assert.Equal(t, workers-25, refused)
	got := f.reload(t, m.ID)
	assert.Equal(t, int64(50), got.Reserved)
	assert.Equal(t, int64(0), got.Available())
}

func TestRelease_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Tubo PVC 4in", 30, 0)

	res, err := f.ledger.Reserve(ctx, m.ID, 12, "req-1")
	require.NoError(t, err)

	require.NoError(t, f.ledger.Release(ctx, res.ID))
	assert.Equal(t, int64(0), f.reload(t, m.ID).Reserved)

	err = f.ledger.Release(ctx, res.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInactive)
	assert.Equal(t, int64(0), f.reload(t, m.ID).Reserved, "la segunda liberación no toca reserved")

	got, err := f.ledger.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationCancelled, got.Status)

	assert.ErrorIs(t, f.ledger.Release(ctx, "no-existe"), domain.ErrNotFound)
}

func TestFulfill_ConsumeExistencia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Alambre negro", 40, 0)

	res, err := f.ledger.Reserve(ctx, m.ID, 15, "req-9")
	require.NoError(t, err)

	done, err := f.ledger.Fulfill(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationFulfilled, done.Status)
	assert.NotNil(t, done.FulfilledAt)

	got := f.reload(t, m.ID)
	assert.Equal(t, int64(25), got.Quantity)
	assert.Equal(t, int64(0), got.Reserved)

	movs, err := f.ledger.ListMovements(ctx, m.ID, 0)
	require.NoError(t, err)
	var consumption *entity.StockMovement
	for _, mv := range movs {
		if mv.Reason == entity.ReasonConsumption {
			consumption = mv
		}
	}
	require.NotNil(t, consumption)
	assert.Equal(t, int64(-15), consumption.Delta)
	assert.Equal(t, res.ID, consumption.ReferenceID)

	_, err = f.ledger.Fulfill(ctx, res.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInactive)
	assert.Len(t, f.publisher.byRoutingKey("stock.updated"), 1)
}

func TestListReservations_PorSolicitud(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.material(t, "Cal hidratada", 10, 0)
	b := f.material(t, "Yeso", 10, 0)

	_, err := f.ledger.Reserve(ctx, a.ID, 1, "obra-7")
	require.NoError(t, err)
	_, err = f.ledger.Reserve(ctx, b.ID, 2, "obra-7")
	require.NoError(t, err)
	_, err = f.ledger.Reserve(ctx, b.ID, 3, "obra-8")
	require.NoError(t, err)

	list, err := f.ledger.ListReservations(ctx, "obra-7")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.ledger.ListReservations(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ─────────────────────────────────────────────────────────────────────────────
// Ajustes
// ─────────────────────────────────────────────────────────────────────────────

func TestAdjustQuantity_IdaYVuelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Grava", 100, 0)

	q, err := f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: m.ID, Delta: 25, Reason: entity.ReasonPurchase})
	require.NoError(t, err)
	assert.Equal(t, int64(125), q)

	q, err = f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: m.ID, Delta: -25, Reason: entity.ReasonManualAdjustment})
	require.NoError(t, err)
	assert.Equal(t, int64(100), q)

	movs, err := f.ledger.ListMovements(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 3, "inicial más dos ajustes")
	assert.Len(t, f.publisher.byRoutingKey("stock.updated"), 2)
}

func TestAdjustQuantity_RecortaEnCeroYRegistraDeltaEfectivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Pintura blanca", 30, 0)

	q, err := f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: m.ID, Delta: -50, Reason: entity.ReasonManualAdjustment})
	require.NoError(t, err)
	assert.Equal(t, int64(0), q)

	movs, err := f.ledger.ListMovements(ctx, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, int64(-30), movs[0].Delta)
}

func TestAdjustQuantity_NoBajaDeLoReservado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Malla electrosoldada", 20, 0)
	_, err := f.ledger.Reserve(ctx, m.ID, 15, "")
	require.NoError(t, err)

	_, err = f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: m.ID, Delta: -10, Reason: entity.ReasonManualAdjustment})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(20), f.reload(t, m.ID).Quantity)
}

func TestAdjustQuantity_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Teja", 5, 0)

	_, err := f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: m.ID, Delta: 0, Reason: entity.ReasonManualAdjustment})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: m.ID, Delta: 1, Reason: "REGALO"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.AdjustQuantity(ctx, inventory.AdjustInput{MaterialID: "x", Delta: 1, Reason: entity.ReasonManualAdjustment})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustQuantity_SkipIfRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Perfil de aluminio", 10, 0)
	in := inventory.AdjustInput{
		MaterialID:     m.ID,
		Delta:          40,
		Reason:         entity.ReasonPurchase,
		ReferenceID:    "orden-1",
		SkipIfRecorded: true,
	}

	q, err := f.ledger.AdjustQuantity(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(50), q)

	q, err = f.ledger.AdjustQuantity(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(50), q, "el reintento no suma dos veces")

	ok, err := f.ledger.HasMovement(ctx, "orden-1", entity.ReasonPurchase)
	require.NoError(t, err)
	assert.True(t, ok)
}

// ─────────────────────────────────────────────────────────────────────────────
// Invariantes
// ─────────────────────────────────────────────────────────────────────────────

func TestInvariantes_ReservadoIgualSumaDeActivas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "Adhesivo cerámico", 200, 0)

	var ids []string
	for i := 0; i < 6; i++ {
		r, err := f.ledger.Reserve(ctx, m.ID, int64(10+i), "")
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.NoError(t, f.ledger.Release(ctx, ids[0]))
	_, err := f.ledger.Fulfill(ctx, ids[1])
	require.NoError(t, err)

	sum, err := memory.NewReservationRepository(f.store).SumActive(ctx, m.ID)
	require.NoError(t, err)
	got := f.reload(t, m.ID)
	assert.Equal(t, sum, got.Reserved)
	assert.LessOrEqual(t, got.Reserved, got.Quantity)
	assert.GreaterOrEqual(t, got.Available(), int64(0))
}
