package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/healthtrace/internal/agent"
	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/ingest"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/metrics"
	"github.com/ziadkadry99/healthtrace/internal/retrieval"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Ingester stores new check-ins and documents. ingest.Pipeline satisfies it.
type Ingester interface {
	IngestCheckIn(ctx context.Context, c *checkins.CheckIn) (*ingest.CheckInResult, error)
	IngestDocument(ctx context.Context, d *documents.Document) (*ingest.DocumentResult, error)
}

// CheckInLister lists stored check-ins. checkins.Store satisfies it.
type CheckInLister interface {
	List(ctx context.Context, userID string, limit int) ([]checkins.CheckIn, error)
}

// Asker answers questions. agent.Agent satisfies it.
type Asker interface {
	Ask(ctx context.Context, userID, question string, history ...agent.Turn) (*agent.Answer, error)
}

// Deps are the components the HTTP API routes to.
type Deps struct {
	Ingest    Ingester
	CheckIns  CheckInLister
	Retriever agent.ContextRetriever
	Patterns  agent.PatternSource
	Agent     Asker
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	// RetrievalDefaults fill in options a context request leaves out.
	RetrievalDefaults retrieval.Options
}

// Server is the HTTP API over check-ins, documents, retrieval and patterns.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server with all dependencies.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrDefault(deps.Logger).With("component", "server"),
	}
	if s.deps.RetrievalDefaults.Limit == 0 {
		s.deps.RetrievalDefaults = retrieval.DefaultOptions()
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.deps.Metrics.Handler())

	// The websocket must not sit behind the request timeout.
	r.Get("/ws/chat", s.handleChat)

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/checkins", s.handleCreateCheckIn)
		r.Get("/checkins", s.handleListCheckIns)
		r.Post("/documents", s.handleCreateDocument)
		r.Post("/context", s.handleContext)
		r.Get("/patterns", s.handlePatterns)
		r.Post("/ask", s.handleAsk)
	})

	return r
}

// requestLogger logs one line per request with slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("healthtrace server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
