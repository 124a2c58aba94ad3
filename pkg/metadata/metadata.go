// Package metadata resolves the broker resources a data stream request refers to.
package metadata

import (
	"errors"
	"strings"
)

const (
	FieldID           = "id"
	FieldEntities     = "entities"
	FieldExchangeName = "exchangeName"
	FieldQueueName    = "queueName"
	FieldRoutingKey   = "routingKey"

	// resource ids are <provider>/<provider-hash>/<server>/<group>[/<resource>...]
	groupSegments = 4
)

var ErrMissingResourceID = errors.New("Resource ID missing")

// Request is a decoded JSON request body.
type Request map[string]any

// IsEmpty reports whether the request is nil or carries no fields.
func (r Request) IsEmpty() bool {
	return len(r) == 0
}

// StreamMetadata identifies the exchange, queue and routing key of a data stream.
type StreamMetadata struct {
	ExchangeName string `json:"exchangeName"`
	QueueName    string `json:"queueName,omitempty"`
	RoutingKey   string `json:"routingKey"`
}

// Extract derives StreamMetadata from a request. Explicit exchangeName,
// routingKey and queueName fields win over values derived from the resource id.
func Extract(req Request) (StreamMetadata, error) {
	var meta StreamMetadata

	id := resourceID(req)
	if id != "" {
		meta.ExchangeName, meta.RoutingKey = fromResourceID(id)
	}

	if v := stringField(req, FieldExchangeName); v != "" {
		meta.ExchangeName = v
		if id == "" {
			meta.RoutingKey = v + "/.*"
		}
	}
	if v := stringField(req, FieldRoutingKey); v != "" {
		meta.RoutingKey = v
	}
	meta.QueueName = stringField(req, FieldQueueName)

	if meta.ExchangeName == "" {
		return StreamMetadata{}, ErrMissingResourceID
	}
	return meta, nil
}

func fromResourceID(id string) (exchange, routingKey string) {
	segments := strings.Split(strings.Trim(id, "/"), "/")
	if len(segments) > groupSegments {
		exchange = strings.Join(segments[:groupSegments], "/")
		return exchange, exchange + "/." + strings.Join(segments[groupSegments:], "/")
	}
	exchange = strings.Join(segments, "/")
	return exchange, exchange + "/.*"
}

func resourceID(req Request) string {
	if id := stringField(req, FieldID); id != "" {
		return id
	}
	switch entities := req[FieldEntities].(type) {
	case []any:
		if len(entities) > 0 {
			if s, ok := entities[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	case []string:
		if len(entities) > 0 {
			return strings.TrimSpace(entities[0])
		}
	}
	return ""
}

func stringField(req Request, key string) string {
	s, _ := req[key].(string)
	return strings.TrimSpace(s)
}
