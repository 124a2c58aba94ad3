package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zoff-tech/go-databroker/pkg/config"
)

// NewTransport builds the transport selected by cfg.Type. No connection is
// made until Start is called.
func NewTransport(ctx context.Context, cfg *config.BrokerSettings, logger *slog.Logger) (Transport, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMqBroker(ctx, cfg, logger)
	case "gcp-pubsub":
		return NewPubSubBroker(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}
}
