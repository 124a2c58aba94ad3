package databroker

import (
	"encoding/json"
	"maps"
)

// Type discriminates successful from failed outcomes.
type Type string

const (
	TypeSuccess Type = "success"
	TypeFailure Type = "failure"
)

// Outcome is the structured result returned to callers. Details holds
// collaborator specific fields and is flattened into the JSON object.
type Outcome struct {
	Type         Type
	ErrorMessage string
	ExchangeName string
	QueueName    string
	RoutingKey   string
	Details      map[string]any
}

func (o Outcome) Succeeded() bool {
	return o.Type == TypeSuccess
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Details)+5)
	maps.Copy(out, o.Details)

	out["type"] = o.Type
	for key, value := range map[string]string{
		"errorMessage": o.ErrorMessage,
		"exchangeName": o.ExchangeName,
		"queueName":    o.QueueName,
		"routingKey":   o.RoutingKey,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return json.Marshal(out)
}
