package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

// Resultados del consumo de un evento de faltante (etiqueta de métricas).
const (
	ConsumedOrdered    = "ordered"
	ConsumedDuplicate  = "duplicate"
	ConsumedNoSupplier = "no_supplier"
	ConsumedFailed     = "placement_failed"
	ConsumedInvalid    = "invalid"
	ConsumedError      = "error"
)

// ShortageProcessor lo implementa *OrderManager.
type ShortageProcessor interface {
	ProcessShortage(ctx context.Context, ev entity.ShortageEvent) (*dto.ProcurementResult, error)
}

// ShortageConsumer convierte eventos material.shortage en órdenes de compra.
// La entrega es al-menos-una-vez: cada evento se reclama por su clave (material + timestamp)
// antes de procesarse, de modo que una redelivery no genera una segunda orden.
type ShortageConsumer struct {
	processor ShortageProcessor
	processed repository.ProcessedEventRepository
	metrics   ports.Metrics
	log       *logger.Logger
}

// NewShortageConsumer construye el consumidor.
func NewShortageConsumer(processor ShortageProcessor, processed repository.ProcessedEventRepository, metrics ports.Metrics, log *logger.Logger) *ShortageConsumer {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ShortageConsumer{processor: processor, processed: processed, metrics: metrics, log: log}
}

// Handle procesa un mensaje del canal. Devuelve error solo cuando el mensaje debe reintentarse;
// los faltantes sin proveedor o con colocación fallida quedan registrados y no se reintentan.
func (c *ShortageConsumer) Handle(ctx context.Context, routingKey string, payload []byte) error {
	if routingKey != ports.RoutingKeyShortage {
		return nil
	}
	var ev entity.ShortageEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.metrics.ShortageConsumed(ConsumedInvalid)
		c.log.Warn().Err(err).Msg("evento de faltante ilegible, descartado")
		return nil
	}
	if ev.MaterialID == "" || ev.Shortage <= 0 {
		c.metrics.ShortageConsumed(ConsumedInvalid)
		c.log.Warn().Str("material_id", ev.MaterialID).Int64("shortage", ev.Shortage).Msg("evento de faltante inválido, descartado")
		return nil
	}

	key := ev.DedupKey()
	claimed, err := c.processed.Claim(ctx, key)
	if err != nil {
		c.metrics.ShortageConsumed(ConsumedError)
		return fmt.Errorf("reclamar evento %s: %w", key, err)
	}
	if !claimed {
		c.metrics.ShortageConsumed(ConsumedDuplicate)
		c.log.Debug().Str("event_key", key).Msg("evento de faltante duplicado, ignorado")
		return nil
	}

	res, err := c.processor.ProcessShortage(ctx, ev)
	switch {
	case err == nil:
		c.metrics.ShortageConsumed(ConsumedOrdered)
		c.log.Info().
			Str("material_id", ev.MaterialID).
			Str("order_id", res.OrderID).
			Str("supplier", res.SupplierName).
			Str("estimated_cost", res.EstimatedCost.StringFixed(2)).
			Msg("faltante atendido con orden de compra")
		return nil
	case errors.Is(err, domain.ErrNoSupplier):
		c.metrics.ShortageConsumed(ConsumedNoSupplier)
		return nil
	case errors.Is(err, domain.ErrPlacementFailure):
		c.metrics.ShortageConsumed(ConsumedFailed)
		return nil
	case errors.Is(err, domain.ErrInvalidInput):
		c.metrics.ShortageConsumed(ConsumedInvalid)
		return nil
	case errors.Is(err, domain.ErrInvalidTransition):
		// La orden ya fue creada y otro actor la movió; reintentar crearía una segunda.
		c.metrics.ShortageConsumed(ConsumedFailed)
		c.log.Warn().Err(err).Str("event_key", key).Msg("faltante cerrado sin orden confirmada")
		return nil
	}

	// Falla de infraestructura: se libera el reclamo para que la redelivery lo reintente.
	c.metrics.ShortageConsumed(ConsumedError)
	if rerr := c.processed.Release(context.WithoutCancel(ctx), key); rerr != nil {
		c.log.Error().Err(rerr).Str("event_key", key).Msg("no se pudo liberar el evento")
	}
	return fmt.Errorf("procesar faltante %s: %w", key, err)
}
