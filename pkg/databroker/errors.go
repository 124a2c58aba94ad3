package databroker

import (
	"errors"
	"fmt"
)

const (
	ReasonEmptyRequest    = "Request Json empty"
	ReasonUnknownExchange = "Resource ID does not exist"

	LabelExchangeCreation = "Exchange creation failed"
	LabelQueueBinding     = "Queue binding failed"
)

// BadRequestError reports empty or malformed input, or a reference to a
// resource that does not exist.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return "Bad Request: " + e.Reason
}

func badRequest(reason string) error {
	return &BadRequestError{Reason: reason}
}

// StepError reports which step of the ingestion provisioning sequence failed.
type StepError struct {
	Label string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TransportError is a connection or publish fault raised by the transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeletionError wraps a failed exchange deletion.
type DeletionError struct {
	Exchange string
	Err      error
}

func (e *DeletionError) Error() string {
	return e.Err.Error()
}

func (e *DeletionError) Unwrap() error {
	return e.Err
}

// IsBadRequest reports whether err is caused by the caller's input.
func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}

// stepName maps a failure label to a short step identifier.
func stepName(label string) string {
	switch label {
	case LabelExchangeCreation:
		return "exchange"
	case LabelQueueBinding:
		return "binding"
	default:
		return "queue"
	}
}
