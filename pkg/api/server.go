// Package api exposes the data broker operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zoff-tech/go-databroker/pkg/databroker"
	"github.com/zoff-tech/go-databroker/pkg/metadata"
)

const maxBodyBytes = 1 << 20

// DataBroker is implemented by *databroker.Service.
type DataBroker interface {
	PublishData(ctx context.Context, req metadata.Request) databroker.Outcome
	IngestCreate(ctx context.Context, req metadata.Request) (databroker.Outcome, error)
	IngestDelete(ctx context.Context, req metadata.Request) databroker.Outcome
	PublishMessage(ctx context.Context, body metadata.Request, exchange, routingKey string) error
}

type server struct {
	broker DataBroker
	logger *slog.Logger
}

// NewHandler routes the ingestion endpoints to broker.
func NewHandler(broker DataBroker, logger *slog.Logger) http.Handler {
	s := &server{broker: broker, logger: logger.With("component", "api")}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingestion/publish", s.publishData)
	mux.HandleFunc("POST /ingestion", s.ingestCreate)
	mux.HandleFunc("DELETE /ingestion", s.ingestDelete)
	mux.HandleFunc("POST /ingestion/raw", s.rawPublish)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *server) publishData(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.broker.PublishData(r.Context(), req))
}

func (s *server) ingestCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	outcome, err := s.broker.IngestCreate(r.Context(), req)
	if err == nil {
		s.writeJSON(w, http.StatusOK, outcome)
		return
	}

	status := http.StatusBadGateway
	body := map[string]any{"type": databroker.TypeFailure, "errorMessage": err.Error()}
	var stepErr *databroker.StepError
	switch {
	case databroker.IsBadRequest(err):
		status = http.StatusBadRequest
	case errors.As(err, &stepErr):
		body["step"] = stepErr.Label
	}
	s.writeJSON(w, status, body)
}

func (s *server) ingestDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.broker.IngestDelete(r.Context(), req))
}

func (s *server) rawPublish(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	routingKey := r.URL.Query().Get("routingKey")
	if exchange == "" {
		s.writeFailure(w, http.StatusBadRequest, "Bad Request: exchange is required")
		return
	}

	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.broker.PublishMessage(r.Context(), body, exchange, routingKey); err != nil {
		s.writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON object body. An empty body decodes to an empty request
// so the coordinators can report it in their own terms.
func (s *server) decode(w http.ResponseWriter, r *http.Request) (metadata.Request, bool) {
	var req metadata.Request
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err == nil || errors.Is(err, io.EOF) {
		return req, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeFailure(w, http.StatusRequestEntityTooLarge, "Bad Request: Request body too large")
		return nil, false
	}
	s.writeFailure(w, http.StatusBadRequest, "Bad Request: Invalid Json")
	return nil, false
}

func (s *server) writeFailure(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, databroker.Outcome{Type: databroker.TypeFailure, ErrorMessage: message})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}
