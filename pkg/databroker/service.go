// Package databroker coordinates exchange provisioning, deletion and
// publishing against the broker for ingested data streams.
package databroker

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-databroker/pkg/broker"
	"github.com/zoff-tech/go-databroker/pkg/management"
	"github.com/zoff-tech/go-databroker/pkg/metrics"
)

// ExistenceCache holds hints about exchanges known to exist.
type ExistenceCache interface {
	Get(exchange string) (exists bool, ok bool)
	Put(exchange string, exists bool)
	Invalidate(exchange string)
}

// Options carries the collaborators of a Service. Cache, Management and
// Transport are required; Logger and Metrics are optional.
//
// Transport must publish into Vhost, the vhost existence checks run against.
// RawTransport serves PublishMessage and defaults to Transport.
type Options struct {
	Cache        ExistenceCache
	Management   management.Client
	Transport    broker.Transport
	RawTransport broker.Transport
	Vhost        string
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Service is one coordinator instance per broker virtual host. It is safe for
// concurrent use; the cache and the transport are the only shared state.
type Service struct {
	cache      ExistenceCache
	management management.Client
	transport  broker.Transport
	raw        broker.Transport
	vhost      string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func New(opts Options) (*Service, error) {
	switch {
	case opts.Cache == nil:
		return nil, errors.New("databroker: cache is required")
	case opts.Management == nil:
		return nil, errors.New("databroker: management client is required")
	case opts.Transport == nil:
		return nil, errors.New("databroker: transport is required")
	case opts.Vhost == "":
		return nil, errors.New("databroker: vhost is required")
	}

	raw := opts.RawTransport
	if raw == nil {
		raw = opts.Transport
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cache:      opts.Cache,
		management: opts.Management,
		transport:  opts.Transport,
		raw:        raw,
		vhost:      opts.Vhost,
		logger:     logger.With("component", "databroker", "vhost", opts.Vhost),
		metrics:    opts.Metrics,
		tracer:     otel.Tracer("go-databroker"),
	}, nil
}

func (s *Service) success(op string, outcome Outcome) Outcome {
	outcome.Type = TypeSuccess
	s.metrics.Operation(op, string(TypeSuccess))
	return outcome
}

func (s *Service) failure(op string, err error) Outcome {
	s.metrics.Operation(op, string(TypeFailure))
	return Outcome{Type: TypeFailure, ErrorMessage: err.Error()}
}
