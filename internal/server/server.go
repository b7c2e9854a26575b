package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/storage"
)

// ServerStore defines the storage queries the server needs.
type ServerStore interface {
	LatestRun(ctx context.Context) (*storage.Run, error)
	GetRun(ctx context.Context, id string) (*storage.Run, error)
	RecentRuns(ctx context.Context, limit, offset int) ([]storage.Run, int, error)
	PassRate(ctx context.Context, endpoint, probeKind string, last int) (float64, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store     ServerStore
	endpoints []config.Endpoint
	primary   string
	router    chi.Router
	logger    *slog.Logger
}

// New creates a new Server and registers all routes.
func New(store ServerStore, cfg config.VerifyConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		endpoints: cfg.Endpoints,
		primary:   cfg.Primary,
		router:    chi.NewRouter(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/endpoints", s.handleListEndpoints)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/latest", s.handleLatestRun)
	r.Get("/api/runs/{id}", s.handleGetRun)
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type endpointDetail struct {
	Name              string  `json:"name"`
	URL               string  `json:"url"`
	Kind              string  `json:"kind"`
	Primary           bool    `json:"primary"`
	HealthPassPct     float64 `json:"health_pass_percent"`
	FunctionalPassPct float64 `json:"functional_pass_percent"`
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	details := make([]endpointDetail, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		d := endpointDetail{
			Name:    ep.Name,
			URL:     ep.URL,
			Kind:    ep.Kind,
			Primary: ep.Name == s.primary,
		}
		var err error
		if d.HealthPassPct, err = s.store.PassRate(r.Context(), ep.Name, "health", 100); err != nil {
			s.logger.Error("PassRate", "endpoint", ep.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if d.FunctionalPassPct, err = s.store.PassRate(r.Context(), ep.Name, "functional", 100); err != nil {
			s.logger.Error("PassRate", "endpoint", ep.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		details = append(details, d)
	}
	writeJSON(w, http.StatusOK, details)
}

type runsResponse struct {
	Runs  []storage.Run `json:"runs"`
	Total int           `json:"total"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 1000

	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	runs, total, err := s.store.RecentRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("RecentRuns", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}

	writeJSON(w, http.StatusOK, runsResponse{Runs: runs, Total: total})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun(r.Context())
	if err != nil {
		s.logger.Error("LatestRun", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no verification runs recorded")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.logger.Error("GetRun", "run", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
