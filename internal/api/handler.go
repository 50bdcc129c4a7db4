package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/telemetry"
	"go.uber.org/zap"
)

// Pinger reports whether a backend is reachable; used by the status endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry   *skill.Registry
	dispatcher *skill.Dispatcher
	recorder   *telemetry.Recorder
	authToken  string
	devMode    bool
	backends   map[string]Pinger
	gateways   func() []string
	logger     *zap.Logger
}

// Config wires a Handler.
type Config struct {
	Registry   *skill.Registry
	Dispatcher *skill.Dispatcher
	Recorder   *telemetry.Recorder
	AuthToken  string
	DevMode    bool
	Backends   map[string]Pinger // name -> pinger, nil entries allowed
	Gateways   func() []string   // connected chat adapter names
}

// NewHandler creates the API handler.
func NewHandler(cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		recorder:   cfg.Recorder,
		authToken:  cfg.AuthToken,
		devMode:    cfg.DevMode,
		backends:   cfg.Backends,
		gateways:   cfg.Gateways,
		logger:     logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/status", h.status)
		r.Post("/dispatch", h.dispatch)

		r.Group(func(r chi.Router) {
			r.Use(h.requireBearer)
			r.Get("/skills", h.listSkills)
		})
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pipewise"})
}

// listSkills is the discovery surface: public descriptor fields only, never
// the handler function.
func (h *Handler) listSkills(w http.ResponseWriter, r *http.Request) {
	descs := h.registry.Descriptors()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skills": descs,
		"count":  len(descs),
	})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req skill.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SkillID == "" && req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "skill_id or text is required"})
		return
	}

	requestID := uuid.New().String()
	start := time.Now()
	env := h.dispatcher.Dispatch(r.Context(), &req)
	h.recorder.Record(r.Context(), &telemetry.Event{
		RequestID:  requestID,
		Surface:    "api",
		SkillID:    env.SkillID,
		OK:         env.OK,
		ErrorKind:  string(env.ErrorKind),
		DurationMs: time.Since(start).Milliseconds(),
	})

	// Failure envelopes are still HTTP 200: the envelope carries the error
	// and the chat surface renders it.
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	backends := make(map[string]bool, len(h.backends))
	for name, p := range h.backends {
		if p == nil {
			backends[name] = false
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		backends[name] = p.Ping(ctx) == nil
		cancel()
	}

	var gateways []string
	if h.gateways != nil {
		gateways = h.gateways()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skills":   len(h.registry.All()),
		"gateways": gateways,
		"backends": backends,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
