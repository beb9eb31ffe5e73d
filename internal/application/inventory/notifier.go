package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

const defaultPublishTimeout = 2 * time.Second

// EventNotifier publica eventos del ledger en modo best-effort: una falla del canal
// se registra y se cuenta, pero nunca se propaga a la operación de negocio.
type EventNotifier struct {
	publisher ports.EventPublisher
	metrics   ports.Metrics
	log       *logger.Logger
	timeout   time.Duration
}

// NewEventNotifier construye el notificador. publisher nil desactiva la publicación.
func NewEventNotifier(publisher ports.EventPublisher, metrics ports.Metrics, log *logger.Logger, timeout time.Duration) *EventNotifier {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &EventNotifier{publisher: publisher, metrics: metrics, log: log, timeout: timeout}
}

// Notify publica event una sola vez con timeout acotado. Devuelve true si el canal lo aceptó.
func (n *EventNotifier) Notify(ctx context.Context, routingKey, key string, event any) bool {
	if n == nil || n.publisher == nil {
		return false
	}
	// La cancelación del request no debe abortar la publicación; sí se conservan trazas y valores.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.publisher.Publish(pubCtx, routingKey, key, event); err != nil {
		n.metrics.EventPublished(routingKey, false)
		n.log.Warn().Err(err).
			Str("routing_key", routingKey).
			Str("key", key).
			Msg("evento no publicado")
		return false
	}
	n.metrics.EventPublished(routingKey, true)
	return true
}
