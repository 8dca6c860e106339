// Package httpapi exposes the engine over a JSON HTTP API. It is a thin
// adapter: request decoding, the error-to-status mapping, and nothing else.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/personakit/persona"
)

// Server handles the HTTP surface of the engine.
type Server struct {
	engine *persona.Engine
}

// Option configures the handler.
type Option func(*routerConfig)

type routerConfig struct {
	gatherer prometheus.Gatherer
}

// WithMetricsGatherer mounts GET /metrics backed by the given gatherer.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(c *routerConfig) {
		c.gatherer = g
	}
}

// NewHandler builds the chi router for an engine.
func NewHandler(engine *persona.Engine, opts ...Option) http.Handler {
	cfg := &routerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{engine: engine}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": persona.Version})
	})
	if cfg.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/personas", s.definePersona)
	r.Post("/conversations", s.startConversation)
	r.Route("/conversations/{channelID}", func(r chi.Router) {
		r.Get("/", s.getConversation)
		r.Post("/events", s.processEvent)
		r.Post("/finish", s.finishConversation)
		r.Post("/cancel", s.cancelConversation)
	})

	return r
}

func (s *Server) definePersona(w http.ResponseWriter, r *http.Request) {
	var req DefinePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "invalid request body"})
		return
	}

	id, err := s.engine.DefinePersona(r.Context(), req.Name, req.StateGraph, req.FormSchema, req.ViewMap)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DefinePersonaResponse{PersonaID: id})
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "invalid request body"})
		return
	}
	if req.PersonaID == "" || req.ChannelConversationID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "persona_id and channel_conversation_id are required"})
		return
	}

	view, err := s.engine.StartConversation(r.Context(), req.PersonaID, req.ChannelConversationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ViewResponse{View: view})
}

func (s *Server) processEvent(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "invalid request body"})
		return
	}
	if req.Event == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "event is required"})
		return
	}

	result, err := s.engine.ProcessEvent(r.Context(), channelID, req.Event, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{View: result.View, Finished: result.Finished})
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	conv, err := s.engine.GetConversation(r.Context(), channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConversationResponse{
		ID:                    conv.ID,
		PersonaID:             conv.PersonaID,
		ChannelConversationID: conv.ChannelConversationID,
		Status:                conv.Status,
		CurrentStateID:        conv.CurrentStateID,
		FormData:              conv.Form.Data(),
		FormComplete:          conv.Form.IsComplete(),
		CreatedAt:             conv.CreatedAt,
		UpdatedAt:             conv.UpdatedAt,
	})
}

func (s *Server) finishConversation(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	if err := s.engine.FinishConversation(r.Context(), channelID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "finished"})
}

func (s *Server) cancelConversation(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	if err := s.engine.CancelConversation(r.Context(), channelID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
