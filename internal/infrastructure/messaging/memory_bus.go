package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

// ErrBusClosed el bus en memoria ya no acepta eventos.
var ErrBusClosed = errors.New("messaging: bus cerrado")

var _ ports.EventPublisher = (*MemoryBus)(nil)

type envelope struct {
	routingKey string
	payload    []byte
	attempts   int
}

// MemoryBusConfig parámetros del bus en memoria.
type MemoryBusConfig struct {
	Buffer      int           // capacidad de la cola
	MaxAttempts int           // entregas por mensaje antes de descartarlo
	RetryDelay  time.Duration // pausa entre entregas fallidas
}

// MemoryBus canal de eventos en proceso para desarrollo y pruebas. Publica sin bloquear
// mientras haya espacio y entrega con reintentos acotados, igual que el consumidor Kafka
// vuelve a entregar lo no confirmado.
type MemoryBus struct {
	cfg    MemoryBusConfig
	queue  chan envelope
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewMemoryBus construye el bus.
func NewMemoryBus(cfg MemoryBusConfig, log *logger.Logger) *MemoryBus {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryBus{cfg: cfg, queue: make(chan envelope, cfg.Buffer), log: log}
}

// Publish encola el evento serializado; con la cola llena espera hasta que ctx expire.
func (b *MemoryBus) Publish(ctx context.Context, routingKey, _ string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- envelope{routingKey: routingKey, payload: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run entrega los eventos a handler hasta que ctx se cancele o el bus se cierre.
func (b *MemoryBus) Run(ctx context.Context, handler ports.EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-b.queue:
			if !ok {
				return nil
			}
			b.deliver(ctx, env, handler)
		}
	}
}

func (b *MemoryBus) deliver(ctx context.Context, env envelope, handler ports.EventHandler) {
	for {
		env.attempts++
		err := handler(ctx, env.routingKey, env.payload)
		if err == nil {
			return
		}
		if env.attempts >= b.cfg.MaxAttempts {
			b.log.Error().Err(err).
				Str("routing_key", env.routingKey).
				Int("attempts", env.attempts).
				Msg("evento descartado tras agotar reintentos")
			return
		}
		b.log.Warn().Err(err).Str("routing_key", env.routingKey).Int("attempt", env.attempts).Msg("reintento de evento")
		if !sleep(ctx, b.cfg.RetryDelay) {
			return
		}
	}
}

// Close deja de aceptar eventos; Run termina al vaciar la cola.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	return nil
}
