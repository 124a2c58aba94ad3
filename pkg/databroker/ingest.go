package databroker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zoff-tech/go-databroker/pkg/management"
	"github.com/zoff-tech/go-databroker/pkg/metadata"
)

// provisionOutcome accumulates the result of the provisioning sequence.
// label names the step that is blamed if the current step fails.
type provisionOutcome struct {
	exchangeName string
	queueName    string
	routingKey   string
	label        string
}

func (p *provisionOutcome) binding() management.Binding {
	return management.Binding{
		Exchange:   p.exchangeName,
		Queue:      p.queueName,
		RoutingKey: p.routingKey,
	}
}

func (p *provisionOutcome) fail(err error) error {
	if p.label == "" {
		return err
	}
	return &StepError{Label: p.label, Err: err}
}

// IngestCreate provisions a queue, an exchange and the binding between them
// for a new data stream. Unlike the other operations a failure is returned as
// an error; a *StepError names the failed step. Steps already completed are
// not rolled back.
func (s *Service) IngestCreate(ctx context.Context, req metadata.Request) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "IngestCreate")
	defer span.End()

	s.logger.Debug("ingestCreate started")
	if req.IsEmpty() {
		s.metrics.Operation("ingest_create", string(TypeFailure))
		return Outcome{}, badRequest(ReasonEmptyRequest)
	}

	meta, err := metadata.Extract(req)
	if err != nil {
		s.metrics.Operation("ingest_create", string(TypeFailure))
		return Outcome{}, badRequest(err.Error())
	}
	span.SetAttributes(attribute.String("exchange", meta.ExchangeName))

	acc := &provisionOutcome{exchangeName: meta.ExchangeName, routingKey: meta.RoutingKey}
	if err := s.provision(ctx, meta, acc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if acc.label != "" {
			s.logger.Error(acc.label, "exchange", meta.ExchangeName)
		}
		s.logger.Error("Ingest data operation failed", "exchange", meta.ExchangeName, "error", err)
		s.metrics.ProvisioningFailed(stepName(acc.label))
		s.metrics.Operation("ingest_create", string(TypeFailure))
		return Outcome{}, err
	}

	s.logger.Debug("Ingest data operation successful", "exchange", acc.exchangeName, "queue", acc.queueName)
	return s.success("ingest_create", Outcome{
		ExchangeName: acc.exchangeName,
		QueueName:    acc.queueName,
		RoutingKey:   acc.routingKey,
	}), nil
}

func (s *Service) provision(ctx context.Context, meta metadata.StreamMetadata, acc *provisionOutcome) error {
	queue, err := s.management.GetOrCreateQueue(ctx, meta, s.vhost)
	if err != nil {
		return acc.fail(err)
	}
	s.logger.Debug("Get queue successful", "queue", queue)
	acc.queueName = queue
	acc.label = LabelExchangeCreation

	if err := s.management.CreateExchange(ctx, acc.exchangeName, s.vhost); err != nil {
		return acc.fail(err)
	}
	s.logger.Debug("Exchange creation successful", "exchange", acc.exchangeName)
	acc.label = LabelQueueBinding
	s.cache.Put(acc.exchangeName, true)

	if err := s.management.BindQueue(ctx, acc.binding(), s.vhost); err != nil {
		return acc.fail(err)
	}
	s.logger.Debug("Queue binding successful", "queue", acc.queueName, "routing_key", acc.routingKey)
	return nil
}

// IngestDelete deletes the exchange of a data stream and forgets it in the
// cache. Failures are reported in the returned Outcome and leave the cache
// untouched.
func (s *Service) IngestDelete(ctx context.Context, req metadata.Request) Outcome {
	ctx, span := s.tracer.Start(ctx, "IngestDelete")
	defer span.End()

	s.logger.Debug("ingestDelete started")
	if req.IsEmpty() {
		return s.failure("ingest_delete", badRequest(ReasonEmptyRequest))
	}

	meta, err := metadata.Extract(req)
	if err != nil {
		return s.failure("ingest_delete", badRequest(err.Error()))
	}
	span.SetAttributes(attribute.String("exchange", meta.ExchangeName))

	details, err := s.management.DeleteExchange(ctx, meta.ExchangeName, s.vhost)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("Could not delete exchange", "exchange", meta.ExchangeName, "error", err)
		return s.failure("ingest_delete", &DeletionError{Exchange: meta.ExchangeName, Err: err})
	}

	s.logger.Debug("Deletion of exchange successful", "exchange", meta.ExchangeName)
	s.cache.Invalidate(meta.ExchangeName)
	return s.success("ingest_delete", Outcome{
		ExchangeName: meta.ExchangeName,
		Details:      details,
	})
}
