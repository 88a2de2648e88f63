// Package http exposes flow containers over a JSON HTTP API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps evaluate request bodies.
const maxBodyBytes = 1 << 20

// Server serves the container API for a flow engine.
type Server struct {
	Engine ports.FlowEngine
	Logger *slog.Logger
}

// ContainerInfo describes an invocable container.
type ContainerInfo struct {
	Name           string `json:"name"`
	Start          string `json:"start"`
	DefaultHandler string `json:"default_handler,omitempty"`
}

// EvaluateRequest is the body of POST /containers/{name}/evaluate.
type EvaluateRequest struct {
	Params map[string]any `json:"params"`
}

// EvaluateResponse carries the container result or the unhandled error.
type EvaluateResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.FlowEngine, opts ...Option) http.Handler {
	server := &Server{Engine: engine, Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", server.GetHealth)
	r.Get("/containers", server.ListContainers)
	r.Route("/containers/{name}", func(r chi.Router) {
		r.Post("/evaluate", server.Evaluate)
		r.Get("/graph", server.GetGraph)
	})
	return r
}

// Mount attaches extra handlers (e.g. /metrics) next to the API.
func Mount(api http.Handler, extra map[string]http.Handler) http.Handler {
	r := chi.NewRouter()
	for pattern, h := range extra {
		r.Handle(pattern, h)
	}
	r.Mount("/", api)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListContainers handles GET /containers.
func (s *Server) ListContainers(w http.ResponseWriter, r *http.Request) {
	defs := s.Engine.Containers()
	out := make([]ContainerInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, ContainerInfo{Name: d.Name, Start: d.Start, DefaultHandler: d.DefaultHandler})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Evaluate handles POST /containers/{name}/evaluate.
// A flow that ends in an unhandled error answers 422 with the error text.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body EvaluateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
			s.Logger.Warn("Evaluate: invalid request body", "container", name, "err", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	res, err := s.Engine.Evaluate(r.Context(), name, body.Params)
	if err != nil {
		s.writeError(w, name, err)
		return
	}

	if !res.Ok() {
		s.Logger.Info("Evaluate: unhandled flow error", "container", name, "err", res.Err)
		status := http.StatusUnprocessableEntity
		if errors.Is(res.Err, domain.ErrConfiguration) {
			status = http.StatusInternalServerError
		}
		s.writeJSON(w, status, EvaluateResponse{Error: res.ErrorMessage()})
		return
	}
	s.writeJSON(w, http.StatusOK, EvaluateResponse{Result: res.Value})
}

// GetGraph handles GET /containers/{name}/graph.
// ?format=mermaid renders a flowchart instead of the node list.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	nodes, err := s.Engine.Inspect(name)
	if err != nil {
		s.writeError(w, name, err)
		return
	}

	if r.URL.Query().Get("format") == "mermaid" {
		start := ""
		for _, d := range s.Engine.Containers() {
			if d.Name == name {
				start = d.Start
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(graph.GenerateMermaid(nodes, start, nil)))
		return
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) writeError(w http.ResponseWriter, container string, err error) {
	switch {
	case errors.Is(err, domain.ErrContainerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrConfiguration):
		s.Logger.Error("container is misconfigured", "container", container, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		s.Logger.Error("request failed", "container", container, "err", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
