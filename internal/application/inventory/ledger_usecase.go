package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/inventory"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

const defaultMovementLimit = 50

// LedgerUseCase es la fuente de verdad de existencias y reservas por material.
// Toda mutación ocurre dentro de TxRunner.Run con la fila del material bloqueada
// (SELECT FOR UPDATE o mutex por material), de modo que reservas concurrentes
// nunca superan lo disponible.
type LedgerUseCase struct {
	txRunner     TxRunner
	materials    repository.MaterialRepository
	reservations repository.ReservationRepository
	movements    repository.StockMovementRepository
	notifier     *EventNotifier
	metrics      ports.Metrics
	log          *logger.Logger
}

// NewLedgerUseCase construye el caso de uso. Los repositorios sueltos se usan solo para lecturas.
func NewLedgerUseCase(
	txRunner TxRunner,
	materials repository.MaterialRepository,
	reservations repository.ReservationRepository,
	movements repository.StockMovementRepository,
	notifier *EventNotifier,
	metrics ports.Metrics,
	log *logger.Logger,
) *LedgerUseCase {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{
		txRunner:     txRunner,
		materials:    materials,
		reservations: reservations,
		movements:    movements,
		notifier:     notifier,
		metrics:      metrics,
		log:          log,
	}
}

// AdjustInput entrada para AdjustQuantity.
type AdjustInput struct {
	MaterialID  string
	Delta       int64
	Reason      string
	ReferenceID string
	Notes       string
	// SkipIfRecorded no aplica el ajuste si ya existe un movimiento con la misma
	// referencia y razón (reintentos de la saga).
	SkipIfRecorded bool
}

// ── Catálogo ─────────────────────────────────────────────────────────────────

// CreateMaterial registra un material. La cantidad inicial queda como movimiento INITIAL.
func (uc *LedgerUseCase) CreateMaterial(ctx context.Context, in dto.CreateMaterialRequest) (*entity.Material, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || !entity.ValidUnit(in.Unit) || in.InitialQuantity < 0 || in.MinThreshold < 0 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	m := &entity.Material{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Unit:         in.Unit,
		Category:     strings.TrimSpace(in.Category),
		Quantity:     in.InitialQuantity,
		MinThreshold: in.MinThreshold,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := uc.txRunner.Run(ctx, func(
		materials repository.MaterialRepository,
		_ repository.ReservationRepository,
		movements repository.StockMovementRepository,
	) error {
		if err := materials.Create(ctx, m); err != nil {
			return err
		}
		if m.Quantity == 0 {
			return nil
		}
		return movements.Create(ctx, &entity.StockMovement{
			ID:         uuid.New().String(),
			MaterialID: m.ID,
			Delta:      m.Quantity,
			Reason:     entity.ReasonInitial,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("material_id", m.ID).Str("name", m.Name).Int64("quantity", m.Quantity).Msg("material creado")
	return m, nil
}

// GetMaterial obtiene un material por ID.
func (uc *LedgerUseCase) GetMaterial(ctx context.Context, id string) (*entity.Material, error) {
	m, err := uc.materials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// ListMaterials lista materiales ordenados por nombre, con filtro opcional de categoría.
func (uc *LedgerUseCase) ListMaterials(ctx context.Context, category string, page dto.PageRequest) ([]*entity.Material, error) {
	page = page.Normalize()
	return uc.materials.List(ctx, category, page.Limit, page.Offset)
}

// UpdateMaterial modifica datos de catálogo. Quantity y Reserved solo cambian vía el ledger.
func (uc *LedgerUseCase) UpdateMaterial(ctx context.Context, id string, in dto.UpdateMaterialRequest) (*entity.Material, error) {
	m, err := uc.GetMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		m.Name = name
	}
	if in.Unit != nil {
		if !entity.ValidUnit(*in.Unit) {
			return nil, domain.ErrInvalidInput
		}
		m.Unit = *in.Unit
	}
	if in.Category != nil {
		m.Category = strings.TrimSpace(*in.Category)
	}
	if in.MinThreshold != nil {
		if *in.MinThreshold < 0 {
			return nil, domain.ErrInvalidInput
		}
		m.MinThreshold = *in.MinThreshold
	}
	m.UpdatedAt = time.Now().UTC()
	if err := uc.materials.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetLowStock devuelve los materiales con disponible < umbral mínimo.
func (uc *LedgerUseCase) GetLowStock(ctx context.Context) ([]*entity.Material, error) {
	return uc.materials.ListLowStock(ctx)
}

// ListMovements devuelve el historial de movimientos del material (más recientes primero).
func (uc *LedgerUseCase) ListMovements(ctx context.Context, materialID string, limit int) ([]*entity.StockMovement, error) {
	if _, err := uc.GetMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultMovementLimit
	}
	return uc.movements.ListByMaterial(ctx, materialID, limit)
}

// HasMovement indica si ya existe un movimiento con esa referencia y razón.
func (uc *LedgerUseCase) HasMovement(ctx context.Context, referenceID, reason string) (bool, error) {
	return uc.movements.ExistsByReference(ctx, referenceID, reason)
}

// ── Reservas ─────────────────────────────────────────────────────────────────

// Reserve compromete quantity del material para requestID. La verificación
// disponible >= quantity y el incremento de reserved ocurren bajo el mismo bloqueo.
func (uc *LedgerUseCase) Reserve(ctx context.Context, materialID string, quantity int64, requestID string) (*entity.Reservation, error) {
	if materialID == "" || quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(
		materials repository.MaterialRepository,
		reservations repository.ReservationRepository,
		_ repository.StockMovementRepository,
	) error {
		m, err := materials.GetForUpdate(ctx, materialID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Available() < quantity {
			return domain.ErrInsufficientStock
		}
		now := time.Now().UTC()
		if err := materials.UpdateStock(ctx, m.ID, m.Quantity, m.Reserved+quantity, now); err != nil {
			return err
		}
		res = &entity.Reservation{
			ID:         uuid.New().String(),
			MaterialID: m.ID,
			RequestID:  requestID,
			Quantity:   quantity,
			Status:     entity.ReservationActive,
			CreatedAt:  now,
		}
		return reservations.Create(ctx, res)
	})
	uc.metrics.ReservationAttempt(outcome(err))
	if err != nil {
		return nil, err
	}
	uc.log.Debug().Str("reservation_id", res.ID).Str("material_id", materialID).Int64("quantity", quantity).Msg("reserva creada")
	return res, nil
}

// Release cancela una reserva ACTIVE y devuelve su cantidad a disponible.
// Una reserva ya cancelada o cumplida devuelve ErrAlreadyInactive sin tocar reserved.
func (uc *LedgerUseCase) Release(ctx context.Context, reservationID string) error {
	_, err := uc.closeReservation(ctx, reservationID, entity.ReservationCancelled)
	return err
}

// Fulfill consume una reserva ACTIVE: descuenta la cantidad de existencia y de reservado
// y registra un movimiento CONSUMPTION con referencia a la reserva.
func (uc *LedgerUseCase) Fulfill(ctx context.Context, reservationID string) (*entity.Reservation, error) {
	return uc.closeReservation(ctx, reservationID, entity.ReservationFulfilled)
}

func (uc *LedgerUseCase) closeReservation(ctx context.Context, reservationID, status string) (*entity.Reservation, error) {
	// Lectura previa solo para conocer el material; el estado se revalida con el material bloqueado.
	r, err := uc.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}

	var (
		closed  *entity.Reservation
		updated *entity.Material
	)
	err = uc.txRunner.Run(ctx, func(
		materials repository.MaterialRepository,
		reservations repository.ReservationRepository,
		movements repository.StockMovementRepository,
	) error {
		m, err := materials.GetForUpdate(ctx, r.MaterialID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		cur, err := reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.ErrNotFound
		}
		if !cur.IsActive() {
			return domain.ErrAlreadyInactive
		}
		if m.Reserved < cur.Quantity {
			return fmt.Errorf("material %s: reservado %d menor que la reserva %d: %w", m.ID, m.Reserved, cur.Quantity, domain.ErrConflict)
		}

		now := time.Now().UTC()
		m.Reserved -= cur.Quantity
		var fulfilledAt *time.Time
		if status == entity.ReservationFulfilled {
			m.Quantity -= cur.Quantity
			fulfilledAt = &now
		}
		if err := materials.UpdateStock(ctx, m.ID, m.Quantity, m.Reserved, now); err != nil {
			return err
		}
		if err := reservations.UpdateStatus(ctx, cur.ID, status, fulfilledAt); err != nil {
			return err
		}
		cur.Status = status
		cur.FulfilledAt = fulfilledAt
		closed = cur
		if status != entity.ReservationFulfilled {
			return nil
		}
		updated = m
		return movements.Create(ctx, &entity.StockMovement{
			ID:          uuid.New().String(),
			MaterialID:  m.ID,
			Delta:       -cur.Quantity,
			Reason:      entity.ReasonConsumption,
			ReferenceID: cur.ID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		uc.notifyStockUpdated(ctx, updated, -closed.Quantity, entity.ReasonConsumption)
	}
	return closed, nil
}

// GetReservation obtiene una reserva por ID.
func (uc *LedgerUseCase) GetReservation(ctx context.Context, id string) (*entity.Reservation, error) {
	r, err := uc.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

// ListReservations devuelve las reservas de una solicitud.
func (uc *LedgerUseCase) ListReservations(ctx context.Context, requestID string) ([]*entity.Reservation, error) {
	if requestID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.reservations.ListByRequest(ctx, requestID)
}

// ── Ajustes ──────────────────────────────────────────────────────────────────

// AdjustQuantity aplica quantity = max(0, quantity+delta), registra siempre un movimiento
// con el delta efectivo y no modifica reserved. Un ajuste negativo que dejaría la existencia
// por debajo de lo reservado se rechaza con ErrInsufficientStock.
func (uc *LedgerUseCase) AdjustQuantity(ctx context.Context, in AdjustInput) (int64, error) {
	if in.MaterialID == "" || in.Delta == 0 || !entity.ValidReason(in.Reason) {
		return 0, domain.ErrInvalidInput
	}
	var (
		updated *entity.Material
		applied int64
		skipped bool
	)
	err := uc.txRunner.Run(ctx, func(
		materials repository.MaterialRepository,
		_ repository.ReservationRepository,
		movements repository.StockMovementRepository,
	) error {
		m, err := materials.GetForUpdate(ctx, in.MaterialID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if in.SkipIfRecorded && in.ReferenceID != "" {
			exists, err := movements.ExistsByReference(ctx, in.ReferenceID, in.Reason)
			if err != nil {
				return err
			}
			if exists {
				updated, skipped = m, true
				return nil
			}
		}
		newQty, delta := inventory.ApplyDelta(m.Quantity, in.Delta)
		if newQty < m.Reserved {
			return domain.ErrInsufficientStock
		}
		now := time.Now().UTC()
		if err := materials.UpdateStock(ctx, m.ID, newQty, m.Reserved, now); err != nil {
			return err
		}
		m.Quantity = newQty
		m.UpdatedAt = now
		updated, applied = m, delta
		return movements.Create(ctx, &entity.StockMovement{
			ID:          uuid.New().String(),
			MaterialID:  m.ID,
			Delta:       delta,
			Reason:      in.Reason,
			ReferenceID: in.ReferenceID,
			Notes:       in.Notes,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return 0, err
	}
	if skipped {
		uc.log.Debug().Str("material_id", updated.ID).Str("reference_id", in.ReferenceID).Msg("ajuste ya registrado")
		return updated.Quantity, nil
	}
	uc.log.Info().
		Str("material_id", updated.ID).
		Int64("delta", applied).
		Int64("quantity", updated.Quantity).
		Str("reason", in.Reason).
		Str("reference_id", in.ReferenceID).
		Msg("stock ajustado")
	uc.notifyStockUpdated(ctx, updated, applied, in.Reason)
	return updated.Quantity, nil
}

func (uc *LedgerUseCase) notifyStockUpdated(ctx context.Context, m *entity.Material, delta int64, reason string) {
	uc.notifier.Notify(ctx, ports.RoutingKeyStockUpdated, m.ID, entity.StockUpdatedEvent{
		MaterialID:   m.ID,
		MaterialName: m.Name,
		NewQuantity:  m.Quantity,
		Delta:        delta,
		Reason:       reason,
		Timestamp:    entity.EventTimestamp(time.Now()),
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
