// Package management talks to the broker's management API to query, create and
// delete exchanges and queues.
package management

import (
	"context"
	"errors"

	"github.com/zoff-tech/go-databroker/pkg/metadata"
)

var (
	ErrExchangeNotFound = errors.New("exchange not found")
	ErrQueueNotFound    = errors.New("queue not found")
)

// Hint is an advisory, possibly stale, answer to "does this exchange exist".
type Hint struct {
	value bool
	known bool
}

// NoHint means nothing is known about the exchange.
var NoHint = Hint{}

func HintOf(exists bool) Hint {
	return Hint{value: exists, known: true}
}

// HintFrom converts the (value, ok) pair returned by a cache lookup.
func HintFrom(exists, ok bool) Hint {
	if !ok {
		return NoHint
	}
	return HintOf(exists)
}

// Value returns the hinted flag and whether a hint is present.
func (h Hint) Value() (exists bool, known bool) {
	return h.value, h.known
}

// Binding links a queue to an exchange under a routing key.
type Binding struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// Client is the broker management collaborator. All operations are scoped to
// a virtual host.
type Client interface {
	// ExchangeExists gives an authoritative answer. A present hint may be used
	// to skip the round trip, an absent one never can.
	ExchangeExists(ctx context.Context, name, vhost string, hint Hint) (bool, error)
	CreateExchange(ctx context.Context, name, vhost string) error
	// DeleteExchange returns collaborator specific details about the deletion.
	DeleteExchange(ctx context.Context, name, vhost string) (map[string]any, error)
	// GetOrCreateQueue returns the name of the queue that should receive the stream.
	GetOrCreateQueue(ctx context.Context, meta metadata.StreamMetadata, vhost string) (string, error)
	BindQueue(ctx context.Context, binding Binding, vhost string) error
	ListExchanges(ctx context.Context, vhost string) ([]string, error)
}
