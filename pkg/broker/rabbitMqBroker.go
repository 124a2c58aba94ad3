package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-databroker/pkg/config"
)

const defaultPoolSize = 5

type RabbitMQBrokerCreator func(ctx context.Context, settings *config.BrokerSettings, logger *slog.Logger) (Transport, error)

var NewRabbitMqBroker RabbitMQBrokerCreator = func(ctx context.Context, settings *config.BrokerSettings, logger *slog.Logger) (Transport, error) {
	if settings.PoolSize < 0 {
		return nil, errors.New("poolSize must not be negative")
	}
	if settings.URL == "" {
		return nil, errors.New("rabbitmq url must not be empty")
	}
	return newRabbitMqBroker(settings, logger, dialAMQP), nil
}

type rabbitMqBroker struct {
	mu          sync.Mutex
	connection  amqpConnection
	channelPool chan *pooledChannel
	settings    *config.BrokerSettings
	poolSize    int
	dial        dialFunc
	logger      *slog.Logger
	tracer      trace.Tracer
}

func newRabbitMqBroker(settings *config.BrokerSettings, logger *slog.Logger, dial dialFunc) *rabbitMqBroker {
	poolSize := settings.PoolSize
	if poolSize == 0 {
		poolSize = defaultPoolSize
	}
	return &rabbitMqBroker{
		channelPool: make(chan *pooledChannel, poolSize),
		settings:    settings,
		poolSize:    poolSize,
		dial:        dial,
		logger:      logger.With("transport", "rabbitmq"),
		tracer:      otel.Tracer("go-databroker"),
	}
}

func (r *rabbitMqBroker) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectedLocked()
}

func (r *rabbitMqBroker) connectedLocked() bool {
	return r.connection != nil && !r.connection.IsClosed()
}

func (r *rabbitMqBroker) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connectedLocked() {
		return nil
	}
	return r.connectAndInitialize()
}

func (r *rabbitMqBroker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	ctx, span := r.tracer.Start(ctx, "Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("rabbitmq"),
			semconv.MessagingDestinationKindKey.String("exchange"),
			semconv.MessagingDestinationKey.String(exchange),
			semconv.MessagingRabbitmqRoutingKeyKey.String(routingKey),
		),
	)
	defer span.End()

	// Inject the trace context into the message headers
	traceHeaders := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(traceHeaders))
	amqpHeaders := make(amqp.Table, len(traceHeaders))
	for k, v := range traceHeaders {
		amqpHeaders[k] = v
	}

	pooledChan, err := r.getChannel()
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = pooledChan.channel.Publish(
		exchange, routingKey, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			Headers:      amqpHeaders,
		},
	)
	if err != nil {
		r.releaseChannel(pooledChan)
		span.RecordError(err)
		return fmt.Errorf("failed to publish to %s: %w", exchange, err)
	}

	if err := r.awaitConfirm(ctx, pooledChan); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish to %s: %w", exchange, err)
	}
	r.releaseChannel(pooledChan)

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(body)),
	)
	return nil
}

// awaitConfirm waits for the broker to acknowledge the last publish on
// pooledChan. A channel that is abandoned mid-wait is closed rather than
// returned to the pool, since its confirmation would be read by the next user.
func (r *rabbitMqBroker) awaitConfirm(ctx context.Context, pooledChan *pooledChannel) error {
	select {
	case confirm, ok := <-pooledChan.confirms:
		if !ok {
			// the broker closes the channel on errors such as a missing exchange
			return channelClosedError(pooledChan)
		}
		if !confirm.Ack {
			r.releaseChannel(pooledChan)
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		pooledChan.channel.Close()
		return ctx.Err()
	}
}

func channelClosedError(pooledChan *pooledChannel) error {
	select {
	case amqpErr, ok := <-pooledChan.notifyClose:
		if ok && amqpErr != nil {
			return fmt.Errorf("%w: %v", ErrChannelClosed, amqpErr)
		}
	default:
	}
	return ErrChannelClosed
}

func (r *rabbitMqBroker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drainPoolLocked()

	if r.connection != nil && !r.connection.IsClosed() {
		err := r.connection.Close()
		r.connection = nil
		return err
	}
	r.connection = nil
	return nil
}
