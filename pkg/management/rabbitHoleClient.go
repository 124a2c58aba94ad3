package management

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	rabbithole "github.com/michaelklishin/rabbit-hole/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-databroker/pkg/config"
	"github.com/zoff-tech/go-databroker/pkg/metadata"
)

// managementAPI is the subset of *rabbithole.Client used here.
type managementAPI interface {
	GetExchange(vhost, exchange string) (*rabbithole.DetailedExchangeInfo, error)
	ListExchangesIn(vhost string) ([]rabbithole.ExchangeInfo, error)
	DeclareExchange(vhost, exchange string, info rabbithole.ExchangeSettings) (*http.Response, error)
	DeleteExchange(vhost, exchange string) (*http.Response, error)
	GetQueue(vhost, queue string) (*rabbithole.DetailedQueueInfo, error)
	DeclareQueue(vhost, queue string, info rabbithole.QueueSettings) (*http.Response, error)
	DeclareBinding(vhost string, info rabbithole.BindingInfo) (*http.Response, error)
}

var _ managementAPI = (*rabbithole.Client)(nil)

// RabbitHoleClient implements Client on top of the RabbitMQ HTTP management API.
type RabbitHoleClient struct {
	api          managementAPI
	exchangeType string
	defaultQueue string
	tracer       trace.Tracer
}

var _ Client = (*RabbitHoleClient)(nil)

func NewRabbitHoleClient(cfg config.ManagementSettings) (*RabbitHoleClient, error) {
	api, err := rabbithole.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create management client: %w", err)
	}
	return newRabbitHoleClient(api, cfg), nil
}

func newRabbitHoleClient(api managementAPI, cfg config.ManagementSettings) *RabbitHoleClient {
	exchangeType := cfg.ExchangeType
	if exchangeType == "" {
		exchangeType = "topic"
	}
	return &RabbitHoleClient{
		api:          api,
		exchangeType: exchangeType,
		defaultQueue: cfg.DefaultQueue,
		tracer:       otel.Tracer("go-databroker"),
	}
}

func (c *RabbitHoleClient) ExchangeExists(ctx context.Context, name, vhost string, hint Hint) (bool, error) {
	if exists, known := hint.Value(); known && exists {
		return true, nil
	}

	_, span := c.start(ctx, "ExchangeExists", vhost, attribute.String("exchange", name))
	defer span.End()

	if _, err := c.api.GetExchange(vhost, name); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		span.RecordError(err)
		return false, fmt.Errorf("failed to query exchange %s: %w", name, err)
	}
	return true, nil
}

func (c *RabbitHoleClient) CreateExchange(ctx context.Context, name, vhost string) error {
	_, span := c.start(ctx, "CreateExchange", vhost, attribute.String("exchange", name))
	defer span.End()

	res, err := c.api.DeclareExchange(vhost, name, rabbithole.ExchangeSettings{
		Type:    c.exchangeType,
		Durable: true,
	})
	if err = checkResponse(res, err); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}
	return nil
}

func (c *RabbitHoleClient) DeleteExchange(ctx context.Context, name, vhost string) (map[string]any, error) {
	_, span := c.start(ctx, "DeleteExchange", vhost, attribute.String("exchange", name))
	defer span.End()

	res, err := c.api.DeleteExchange(vhost, name)
	if err = checkResponse(res, err); err != nil {
		span.RecordError(err)
		if isNotFound(err) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("failed to delete exchange %s: %w", name, err)
	}
	return map[string]any{
		"exchangeName": name,
		"vhost":        vhost,
	}, nil
}

// GetOrCreateQueue reuses an existing queue and declares a durable one
// otherwise. The queue is the one named in the request, else the configured
// default queue, else a queue named after the exchange.
func (c *RabbitHoleClient) GetOrCreateQueue(ctx context.Context, meta metadata.StreamMetadata, vhost string) (string, error) {
	queue := meta.QueueName
	if queue == "" {
		queue = c.defaultQueue
	}
	if queue == "" {
		queue = meta.ExchangeName
	}

	_, span := c.start(ctx, "GetOrCreateQueue", vhost, attribute.String("queue", queue))
	defer span.End()

	_, err := c.api.GetQueue(vhost, queue)
	if err == nil {
		return queue, nil
	}
	if !isNotFound(err) {
		span.RecordError(err)
		return "", fmt.Errorf("failed to query queue %s: %w", queue, err)
	}

	res, err := c.api.DeclareQueue(vhost, queue, rabbithole.QueueSettings{Durable: true})
	if err = checkResponse(res, err); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return queue, nil
}

func (c *RabbitHoleClient) BindQueue(ctx context.Context, binding Binding, vhost string) error {
	_, span := c.start(ctx, "BindQueue", vhost,
		attribute.String("exchange", binding.Exchange),
		attribute.String("queue", binding.Queue),
		attribute.String("routing_key", binding.RoutingKey),
	)
	defer span.End()

	res, err := c.api.DeclareBinding(vhost, rabbithole.BindingInfo{
		Source:          binding.Exchange,
		Vhost:           vhost,
		Destination:     binding.Queue,
		DestinationType: "queue",
		RoutingKey:      binding.RoutingKey,
	})
	if err = checkResponse(res, err); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to bind queue %s to %s: %w", binding.Queue, binding.Exchange, err)
	}
	return nil
}

// ListExchanges returns the user defined exchanges of vhost. The default
// exchange and the built-in amq.* exchanges are skipped.
func (c *RabbitHoleClient) ListExchanges(ctx context.Context, vhost string) ([]string, error) {
	_, span := c.start(ctx, "ListExchanges", vhost)
	defer span.End()

	infos, err := c.api.ListExchangesIn(vhost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Name == "" || isBuiltin(info.Name) {
			continue
		}
		names = append(names, info.Name)
	}
	span.SetAttributes(attribute.Int("exchanges.count", len(names)))
	return names, nil
}

func (c *RabbitHoleClient) start(ctx context.Context, op, vhost string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("rabbitmq.vhost", vhost),
	)
	return c.tracer.Start(ctx, "management."+op, trace.WithAttributes(attrs...))
}

func isBuiltin(name string) bool {
	return strings.HasPrefix(name, "amq.")
}

func checkResponse(res *http.Response, err error) error {
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	if err != nil {
		return err
	}
	if res != nil && res.StatusCode >= http.StatusBadRequest {
		return rabbithole.ErrorResponse{StatusCode: res.StatusCode, Message: res.Status}
	}
	return nil
}

func isNotFound(err error) bool {
	var resp rabbithole.ErrorResponse
	if errors.As(err, &resp) {
		return resp.StatusCode == http.StatusNotFound
	}
	var respPtr *rabbithole.ErrorResponse
	if errors.As(err, &respPtr) && respPtr != nil {
		return respPtr.StatusCode == http.StatusNotFound
	}
	return false
}
