package broker

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/zoff-tech/go-databroker/pkg/config"
)

// PubSubBrokerCreator defines a function type for creating Pub/Sub transports.
type PubSubBrokerCreator func(ctx context.Context, settings *config.BrokerSettings, logger *slog.Logger, opts ...option.ClientOption) (Transport, error)

// NewPubSubBroker maps exchanges to topics and routing keys to ordering keys.
// The client is created on Start.
var NewPubSubBroker PubSubBrokerCreator = func(ctx context.Context, settings *config.BrokerSettings, logger *slog.Logger, opts ...option.ClientOption) (Transport, error) {
	if settings.ProjectID == "" {
		return nil, errors.New("pubsub project id must not be empty")
	}
	return &pubSubBroker{
		settings: settings,
		opts:     opts,
		topics:   make(map[string]*pubsub.Topic),
		logger:   logger.With("transport", "gcp-pubsub"),
		tracer:   otel.Tracer("go-databroker"),
	}, nil
}

type pubSubBroker struct {
	mu       sync.Mutex
	client   *pubsub.Client
	topics   map[string]*pubsub.Topic
	settings *config.BrokerSettings
	opts     []option.ClientOption
	logger   *slog.Logger
	tracer   trace.Tracer
}

func (p *pubSubBroker) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil
}

func (p *pubSubBroker) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return nil
	}
	client, err := pubsub.NewClient(ctx, p.settings.ProjectID, p.opts...)
	if err != nil {
		return err
	}
	p.client = client
	p.logger.Info("Pub/Sub client initialized", "project", p.settings.ProjectID)
	return nil
}

func (p *pubSubBroker) topic(name string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil, ErrNotConnected
	}
	if t, ok := p.topics[name]; ok {
		return t, nil
	}
	t := p.client.Topic(name)
	t.EnableMessageOrdering = true
	p.topics[name] = t
	return t, nil
}

func (p *pubSubBroker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	ctx, span := p.tracer.Start(ctx, "Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("pubsub"),
			semconv.MessagingDestinationKindKey.String("topic"),
			semconv.MessagingDestinationKey.String(exchange),
		),
	)
	defer span.End()

	topic, err := p.topic(exchange)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// Inject the trace context into the message attributes
	attributes := map[string]string{"routing_key": routingKey}
	traceAttributes := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(traceAttributes))
	maps.Copy(attributes, traceAttributes)

	res := topic.Publish(ctx, &pubsub.Message{
		Data:        body,
		Attributes:  attributes,
		OrderingKey: routingKey,
	})
	if _, err := res.Get(ctx); err != nil { // wait for server ack
		span.RecordError(err)
		topic.ResumePublish(routingKey)
		return err
	}

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(body)),
	)
	return nil
}

func (p *pubSubBroker) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, t := range p.topics {
		t.Stop()
		delete(p.topics, name)
	}
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
