package databroker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-databroker/pkg/broker"
	"github.com/zoff-tech/go-databroker/pkg/management"
	"github.com/zoff-tech/go-databroker/pkg/metadata"
)

// PublishData publishes req to the exchange of its data stream. The exchange
// must already exist. Failures are reported in the returned Outcome.
func (s *Service) PublishData(ctx context.Context, req metadata.Request) Outcome {
	ctx, span := s.tracer.Start(ctx, "PublishData")
	defer span.End()

	s.logger.Debug("publishData started")
	if req.IsEmpty() {
		return s.failure("publish", badRequest(ReasonEmptyRequest))
	}

	meta, err := metadata.Extract(req)
	if err != nil {
		return s.failure("publish", badRequest(err.Error()))
	}
	span.SetAttributes(attribute.String("exchange", meta.ExchangeName))

	if err := s.publishToExisting(ctx, req, meta); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Publishing data failed", "exchange", meta.ExchangeName, "error", err)
		return s.failure("publish", err)
	}

	s.logger.Debug("Message published successfully", "exchange", meta.ExchangeName)
	return s.success("publish", Outcome{})
}

func (s *Service) publishToExisting(ctx context.Context, req metadata.Request, meta metadata.StreamMetadata) error {
	exists, ok := s.cache.Get(meta.ExchangeName)
	s.metrics.CacheLookup(ok)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache.hit", ok))

	found, err := s.management.ExchangeExists(ctx, meta.ExchangeName, s.vhost, management.HintFrom(exists, ok))
	if err != nil {
		return err
	}
	if !found {
		return badRequest(ReasonUnknownExchange)
	}

	s.cache.Put(meta.ExchangeName, true)
	return s.publish(ctx, s.transport, req, meta.ExchangeName, meta.RoutingKey)
}

// PublishMessage encodes body as JSON and publishes it once over the raw
// transport, starting it first when it is not connected. A nil body is sent
// as an empty object.
func (s *Service) PublishMessage(ctx context.Context, body metadata.Request, exchange, routingKey string) error {
	ctx, span := s.tracer.Start(ctx, "PublishMessage", trace.WithAttributes(
		attribute.String("exchange", exchange),
		attribute.String("routing_key", routingKey),
	))
	defer span.End()

	return s.publish(ctx, s.raw, body, exchange, routingKey)
}

func (s *Service) publish(ctx context.Context, transport broker.Transport, body metadata.Request, exchange, routingKey string) error {
	span := trace.SpanFromContext(ctx)

	if !transport.IsConnected() {
		s.logger.Info("Starting broker transport")
		if err := transport.Start(ctx); err != nil {
			span.RecordError(err)
			return &TransportError{Op: "connect", Err: err}
		}
	}

	if body == nil {
		body = metadata.Request{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := transport.Publish(ctx, exchange, routingKey, payload); err != nil {
		span.RecordError(err)
		s.logger.Error("Publish failed", "exchange", exchange, "routing_key", routingKey, "error", err)
		return &TransportError{Op: "publish", Err: err}
	}
	return nil
}
