package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
	"github.com/oshokin/order-alert/internal/version"
)

// maxCommandSize bounds command bodies.
const maxCommandSize = 4096

// Commander executes commands and reports status.
type Commander interface {
	Handle(ctx context.Context, req domain.Request) domain.Response
	Status() *domain.Status
}

// Subscriber hands out event subscriptions.
type Subscriber interface {
	Subscribe() (<-chan domain.Event, func())
}

// api holds the handler dependencies.
type api struct {
	// ctx is the server lifetime; event streams end with it.
	ctx context.Context //nolint:containedctx // Server lifetime.
	// commander runs commands.
	commander Commander
	// events feeds the websocket stream.
	events Subscriber
}

// NewRouter builds the HTTP handler. ctx bounds long-lived event streams.
func NewRouter(ctx context.Context, commander Commander, events Subscriber) http.Handler {
	a := &api{
		ctx:       logger.WithName(ctx, "http-api"),
		commander: commander,
		events:    events,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(a.logRequests)

	r.Get("/health", a.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/commands", a.command)
		r.Get("/status", a.status)
		r.Get("/events", a.stream)
	})

	return r
}

// health reports liveness.
func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(a.ctx, w, http.StatusOK, &healthBody{Status: "ok", Version: version.Short()})
}

// command decodes and executes one command. Rejected commands are still 200 with success false.
func (a *api) command(w http.ResponseWriter, r *http.Request) {
	var body commandBody

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandSize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&body); err != nil {
		writeJSON(a.ctx, w, http.StatusBadRequest, &responseBody{Error: "invalid command: " + err.Error()})
		return
	}

	resp := a.commander.Handle(r.Context(), body.toRequest())

	writeJSON(a.ctx, w, http.StatusOK, toResponseBody(resp))
}

// status returns the monitor status.
func (a *api) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(a.ctx, w, http.StatusOK, toStatusBody(a.commander.Status()))
}

// logRequests logs each request at debug level.
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.DebugKV(a.ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
		)

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorKV(ctx, "Failed to write response", "error", err)
	}
}
