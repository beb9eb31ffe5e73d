package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

const (
	// HeaderRoutingKey header del mensaje con la clave de ruteo (material.shortage, stock.updated).
	HeaderRoutingKey = "routing_key"
	tracerName       = "github.com/jhoicas/materiales-api/messaging"
	retryBackoff     = time.Second
	// defaultMaxAttempts entregas de un mismo mensaje antes de descartarlo y avanzar.
	defaultMaxAttempts = 5
)

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter subconjunto de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader subconjunto de *kafka.Reader con commit explícito.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica eventos JSON en un tópico. La clave del mensaje es el material,
// de modo que los eventos de un mismo material conservan su orden en la partición.
type KafkaPublisher struct {
	w      messageWriter
	topic  string
	tracer trace.Tracer
}

// NewKafkaPublisher construye el productor.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              1,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, topic)
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: w, topic: topic, tracer: otel.Tracer(tracerName)}
}

// Publish serializa event y lo escribe con la clave de ruteo y el contexto de traza en headers.
func (p *KafkaPublisher) Publish(ctx context.Context, routingKey, key string, event any) error {
	ctx, span := p.tracer.Start(ctx, p.topic+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			attribute.String("messaging.routing_key", routingKey),
		))
	defer span.End()

	body, err := json.Marshal(event)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: HeaderRoutingKey, Value: []byte(routingKey)},
		},
	}
	injectTrace(ctx, &msg)
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close libera el productor.
func (p *KafkaPublisher) Close() error { return p.w.Close() }

// KafkaConsumer lee del tópico en un grupo de consumidores y confirma el offset solo
// cuando el handler termina sin error (entrega al-menos-una-vez).
type KafkaConsumer struct {
	r           messageReader
	topic       string
	log         *logger.Logger
	tracer      trace.Tracer
	maxAttempts int
	retryDelay  time.Duration
}

// NewKafkaConsumer construye el consumidor del grupo groupID.
func NewKafkaConsumer(brokers []string, topic, groupID string, log *logger.Logger) *KafkaConsumer {
	return newKafkaConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}), topic, log)
}

func newKafkaConsumer(r messageReader, topic string, log *logger.Logger) *KafkaConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaConsumer{
		r:           r,
		topic:       topic,
		log:         log,
		tracer:      otel.Tracer(tracerName),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  retryBackoff,
	}
}

// Run consume hasta que ctx se cancele. Un mensaje cuyo handler falla se reintenta tras
// una pausa hasta maxAttempts veces; agotados los intentos se registra como descartado y
// se confirma para no bloquear la partición. Si el proceso reinicia antes de confirmar,
// el grupo lo vuelve a entregar.
func (c *KafkaConsumer) Run(ctx context.Context, handler ports.EventHandler) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Str("topic", c.topic).Msg("kafka fetch")
			if !sleep(ctx, retryBackoff) {
				return nil
			}
			continue
		}
		for attempt := 1; !c.handle(ctx, msg, handler); attempt++ {
			if attempt >= c.maxAttempts {
				c.log.Error().
					Str("topic", c.topic).
					Str("routing_key", header(msg, HeaderRoutingKey)).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Int("attempts", attempt).
					Bytes("payload", msg.Value).
					Msg("mensaje descartado tras agotar reintentos")
				break
			}
			if !sleep(ctx, c.retryDelay) {
				return nil
			}
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("kafka commit")
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message, handler ports.EventHandler) bool {
	routingKey := header(msg, HeaderRoutingKey)
	ctx = extractTrace(ctx, msg)
	ctx, span := c.tracer.Start(ctx, c.topic+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(c.topic),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.routing_key", routingKey),
		))
	defer span.End()

	if err := handler(ctx, routingKey, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Ctx(ctx).Warn().Err(err).
			Str("routing_key", routingKey).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("mensaje no procesado, se reintenta")
		return false
	}
	return true
}

// Close libera el consumidor.
func (c *KafkaConsumer) Close() error { return c.r.Close() }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func injectTrace(ctx context.Context, msg *kafka.Message) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
}

func extractTrace(ctx context.Context, msg kafka.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		if h.Key != HeaderRoutingKey {
			carrier[h.Key] = string(h.Value)
		}
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
