package broker

import (
	"context"
	"errors"
)

var (
	ErrNotConnected  = errors.New("transport not connected")
	ErrNacked        = errors.New("message rejected by broker")
	ErrChannelClosed = errors.New("channel closed before confirmation")
)

// Transport publishes raw payloads to the broker over a lazily started
// connection.
type Transport interface {
	// IsConnected reports whether a usable connection is currently held.
	IsConnected() bool
	// Start establishes the connection. Concurrent and repeated calls are
	// safe; a call on a connected transport is a no-op.
	Start(ctx context.Context) error
	// Publish sends body to exchange with routingKey and returns once the
	// broker has accepted it. It fails with ErrNotConnected when Start has not
	// succeeded.
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	// Close cleans up any resources (connections).
	Close() error
}
