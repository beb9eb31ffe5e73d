package ports

import "context"

// Canal de eventos de materiales.
const (
	TopicMaterialsEvents   = "materials.events"
	RoutingKeyShortage     = "material.shortage"
	RoutingKeyStockUpdated = "stock.updated"
)

// EventPublisher define el puerto de salida hacia el canal de eventos (Kafka, bus en memoria, etc.).
// Publish no espera a que los consumidores procesen el evento; key agrupa eventos del mismo material.
// Una falla se devuelve envuelta en domain.ErrPublishFailure.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey, key string, event any) error
}

// EventHandler procesa un mensaje recibido del canal. Un error provoca la reentrega.
type EventHandler func(ctx context.Context, routingKey string, payload []byte) error
