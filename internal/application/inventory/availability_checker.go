package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/inventory"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

// AvailabilityChecker calcula disponibilidad sobre una lectura (posiblemente desfasada)
// y, si hay faltante, publica exactamente un ShortageEvent por verificación.
// La falla del canal no falla la verificación.
type AvailabilityChecker struct {
	materials repository.MaterialRepository
	notifier  *EventNotifier
	metrics   ports.Metrics
	log       *logger.Logger
}

// NewAvailabilityChecker construye el verificador.
func NewAvailabilityChecker(
	materials repository.MaterialRepository,
	notifier *EventNotifier,
	metrics ports.Metrics,
	log *logger.Logger,
) *AvailabilityChecker {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AvailabilityChecker{materials: materials, notifier: notifier, metrics: metrics, log: log}
}

// Check verifica si hay requested unidades disponibles del material. requestID es opcional.
func (c *AvailabilityChecker) Check(ctx context.Context, materialID string, requested int64, requestID string) (*dto.AvailabilityResponse, error) {
	if materialID == "" || requested <= 0 {
		return nil, domain.ErrInvalidInput
	}
	m, err := c.materials.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}

	available := m.Available()
	shortage := inventory.Shortage(requested, available)
	out := &dto.AvailabilityResponse{
		MaterialID:   m.ID,
		MaterialName: m.Name,
		IsAvailable:  shortage == 0,
		Available:    available,
		Requested:    requested,
		Shortage:     shortage,
	}
	if shortage == 0 {
		return out, nil
	}

	c.metrics.ShortageDetected()
	ev := entity.ShortageEvent{
		MaterialID:        m.ID,
		MaterialName:      m.Name,
		CurrentQuantity:   available,
		RequestedQuantity: requested,
		Shortage:          shortage,
		Timestamp:         entity.EventTimestamp(time.Now()),
	}
	if requestID != "" {
		ev.TriggeredByRequestID = &requestID
	}
	published := c.notifier.Notify(ctx, ports.RoutingKeyShortage, m.ID, ev)
	c.log.Info().
		Str("material_id", m.ID).
		Int64("requested", requested).
		Int64("available", available).
		Int64("shortage", shortage).
		Bool("published", published).
		Msg("faltante detectado")
	return out, nil
}

// RequestService atiende el flujo de una solicitud de material: intenta reservar y,
// si no alcanza, señala el faltante para que abastecimiento reaccione.
type RequestService struct {
	ledger  *LedgerUseCase
	checker *AvailabilityChecker
}

// NewRequestService construye el servicio.
func NewRequestService(ledger *LedgerUseCase, checker *AvailabilityChecker) *RequestService {
	return &RequestService{ledger: ledger, checker: checker}
}

// ReserveOrSignal reserva quantity; ante ErrInsufficientStock ejecuta Check (que publica el
// faltante) y devuelve la disponibilidad junto al error.
func (s *RequestService) ReserveOrSignal(ctx context.Context, materialID string, quantity int64, requestID string) (*entity.Reservation, *dto.AvailabilityResponse, error) {
	res, err := s.ledger.Reserve(ctx, materialID, quantity, requestID)
	if err == nil {
		return res, nil, nil
	}
	if !errors.Is(err, domain.ErrInsufficientStock) {
		return nil, nil, err
	}
	avail, cerr := s.checker.Check(ctx, materialID, quantity, requestID)
	if cerr != nil {
		return nil, nil, errors.Join(err, cerr)
	}
	return nil, avail, err
}
