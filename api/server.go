// Package api exposes the HTTP surface of the agent: the catalog event
// receiver, a health endpoint and the Prometheus metrics handler.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/hiveline/hiveline/catalog"
	"github.com/hiveline/hiveline/queue"
)

// EventHandlers decodes catalog event payloads and forwards them to the
// replication listener.
type EventHandlers struct {
	listener catalog.Listener
	queue    *queue.Queue
}

// NewEventHandlers creates handlers forwarding to the given listener. The
// queue is only consulted for depth reporting on the health endpoint.
func NewEventHandlers(listener catalog.Listener, q *queue.Queue) *EventHandlers {
	return &EventHandlers{listener: listener, queue: q}
}

// Router builds the chi router for the event receiver.
func (h *EventHandlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)

	r.Route("/events", func(r chi.Router) {
		r.Post("/create-table", h.handleCreateTable)
		r.Post("/drop-table", h.handleDropTable)
		r.Post("/add-partition", h.handleAddPartition)
		r.Post("/drop-partition", h.handleDropPartition)
	})

	return r
}

// tableEvent is the payload for create-table and drop-table events.
type tableEvent struct {
	Table catalog.Table `json:"table"`
}

// addPartitionEvent carries one or more partitions added in a single catalog
// operation. Status reports whether the source operation succeeded.
type addPartitionEvent struct {
	Table      catalog.Table       `json:"table"`
	Partitions []catalog.Partition `json:"partitions"`
	Status     bool                `json:"status"`
}

// dropPartitionEvent carries a single dropped partition.
type dropPartitionEvent struct {
	Table     catalog.Table     `json:"table"`
	Partition catalog.Partition `json:"partition"`
	Status    bool              `json:"status"`
}

func (h *EventHandlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"queued": h.queue.Len(),
	})
}

func (h *EventHandlers) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var event tableEvent
	if err := decodeEvent(r, &event); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateTable(&event.Table); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.listener.OnCreateTable(event.Table)
	writeAccepted(w)
}

func (h *EventHandlers) handleDropTable(w http.ResponseWriter, r *http.Request) {
	var event tableEvent
	if err := decodeEvent(r, &event); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateTable(&event.Table); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.listener.OnDropTable(event.Table)
	writeAccepted(w)
}

func (h *EventHandlers) handleAddPartition(w http.ResponseWriter, r *http.Request) {
	var event addPartitionEvent
	if err := decodeEvent(r, &event); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateTable(&event.Table); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(event.Partitions) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "at least one partition is required")
		return
	}

	h.listener.OnAddPartition(event.Table, event.Partitions, event.Status)
	writeAccepted(w)
}

func (h *EventHandlers) handleDropPartition(w http.ResponseWriter, r *http.Request) {
	var event dropPartitionEvent
	if err := decodeEvent(r, &event); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateTable(&event.Table); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.listener.OnDropPartition(event.Table, event.Partition, event.Status)
	writeAccepted(w)
}

func decodeEvent(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("malformed event payload: %w", err)
	}
	return nil
}

func validateTable(table *catalog.Table) error {
	if table.Database == "" || table.Name == "" {
		return fmt.Errorf("event table must carry database and name")
	}
	return nil
}

func writeAccepted(w http.ResponseWriter) {
	writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{"accepted": true})
}

func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSONResponse(w, status, map[string]interface{}{"error": message})
}

// Server wraps the HTTP listener for the event receiver.
type Server struct {
	srv *http.Server
}

// NewServer builds the receiver server on the given bind address.
func NewServer(addr string, handlers *EventHandlers) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handlers.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start runs the listener on its own goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Event receiver listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Event receiver failed")
		}
	}()
}

// Shutdown stops the listener, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
