package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/eventmail/internal/instrumentation"
	"github.com/teemow/eventmail/internal/logging"
	"github.com/teemow/eventmail/internal/pipeline"
)

const (
	// DefaultAddr is the default address for the API server.
	DefaultAddr = ":8080"

	// DefaultReadHeaderTimeout bounds how long reading request headers may take.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 60 * time.Second
)

// Runner executes one fetch-and-classify run for a bearer token.
// It is implemented by pipeline.Pipeline and by test fakes.
type Runner interface {
	Run(ctx context.Context, accessToken string) ([]pipeline.FilteredEmail, error)
}

// Config holds configuration for the API server.
type Config struct {
	// Addr is the address to bind the API server to (e.g., ":8080").
	Addr string

	// GoogleClientID is exposed to the browser via /api/config so the
	// frontend can run the Google Identity Services token flow.
	GoogleClientID string

	// AllowedOrigin is the value of the Access-Control-Allow-Origin
	// response header. Defaults to "*".
	AllowedOrigin string
}

// Server is the HTTP API server the browser talks to. It exposes the
// events endpoint, a config endpoint for the OAuth client ID and health
// endpoints for Kubernetes probes.
type Server struct {
	config     Config
	runner     Runner
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates an API server. The runner is required, metrics and logger
// fall back to no-op and slog.Default respectively.
func New(config Config, runner Runner, metrics *instrumentation.Metrics, logger *slog.Logger) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.AllowedOrigin == "" {
		config.AllowedOrigin = "*"
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  config,
		runner:  runner,
		health:  NewHealthChecker(),
		metrics: metrics,
		logger:  logger,
	}
}

// Health returns the server's health checker so the lifecycle code can
// flip readiness during startup and shutdown.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Handler builds the request router with CORS and instrumentation
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/email/events", http.HandlerFunc(s.handleEvents))
	mux.Handle("/api/config", http.HandlerFunc(s.handleConfig))
	s.health.RegisterHealthEndpoints(mux)

	return s.withCORS(s.withInstrumentation(mux))
}

// Start starts the API server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *Server) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal starts the API server and closes the ready channel
// once the listener is bound. Blocks until the server stops.
func (s *Server) StartWithReadySignal(ready chan<- struct{}) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind API server to %s: %w", s.config.Addr, err)
	}

	s.logger.Info("starting API server", "addr", s.config.Addr)

	if ready != nil {
		close(ready)
	}

	return s.httpServer.Serve(listener)
}

// Shutdown gracefully shuts down the API server. Readiness probes start
// failing as soon as shutdown begins.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	if s.httpServer != nil {
		s.logger.Info("shutting down API server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the API server.
func (s *Server) Addr() string {
	return s.config.Addr
}

// withCORS handles cross-origin requests from the browser frontend.
// Preflight requests are answered without hitting the handlers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.config.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withInstrumentation records request metrics and logs each request.
func (s *Server) withInstrumentation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, duration)

		s.logger.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			slog.Duration(logging.KeyDuration, duration),
		)
	})
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
