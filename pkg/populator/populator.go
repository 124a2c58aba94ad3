// Package populator warms the exchange existence cache from the management API.
package populator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-databroker/pkg/management"
	"github.com/zoff-tech/go-databroker/pkg/metrics"
)

// Cache is the part of the existence cache the populator writes to.
type Cache interface {
	Put(exchange string, exists bool)
}

// ExchangeLister lists the exchanges of a virtual host.
type ExchangeLister interface {
	ListExchanges(ctx context.Context, vhost string) ([]string, error)
}

var _ ExchangeLister = (management.Client)(nil)

// Populator marks every exchange of a vhost as existing in the cache.
type Populator struct {
	lister   ExchangeLister
	cache    Cache
	vhost    string
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// New creates a Populator. An interval of zero makes Run return after the
// first pass.
func New(lister ExchangeLister, cache Cache, vhost string, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Populator {
	return &Populator{
		lister:   lister,
		cache:    cache,
		vhost:    vhost,
		interval: interval,
		logger:   logger.With("component", "populator", "vhost", vhost),
		metrics:  m,
		tracer:   otel.Tracer("go-databroker"),
	}
}

// Populate performs a single pass and returns the number of cached exchanges.
func (p *Populator) Populate(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "PopulateExchangeCache")
	defer span.End()

	names, err := p.lister.ListExchanges(ctx, p.vhost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	for _, name := range names {
		p.cache.Put(name, true)
	}
	span.SetAttributes(attribute.Int("exchanges.count", len(names)))
	p.metrics.SetCachedExchanges(len(names))
	return len(names), nil
}

// Run populates the cache once and then every interval until ctx is done.
// Failed passes are logged and leave the cache as it was.
func (p *Populator) Run(ctx context.Context) {
	p.pass(ctx)
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping exchange cache refresh")
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *Populator) pass(ctx context.Context) {
	n, err := p.Populate(ctx)
	if err != nil {
		p.logger.Warn("Could not populate exchange cache, continuing with lazy lookups", "error", err)
		return
	}
	p.logger.Info("Exchange cache populated", "exchanges", n)
}
