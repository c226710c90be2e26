package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/eventmail/internal/classify"
	"github.com/teemow/eventmail/internal/config"
	"github.com/teemow/eventmail/internal/instrumentation"
	"github.com/teemow/eventmail/internal/pipeline"
	"github.com/teemow/eventmail/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		httpAddr       string
		googleClientID string
		strategy       string
		gmailQuery     string
		maxResults     int64
		concurrency    int
		metricsEnabled bool
		metricsAddr    string
		allowedOrigin  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the eventmail API server",
		Long: `Start the HTTP API server the browser frontend talks to.

The server exposes:
  GET /api/email/events  List relevant event emails for the caller's mailbox
  GET /api/config        OAuth client ID for the Google Identity Services flow
  /healthz, /readyz      Kubernetes probe endpoints

Authentication:
  The browser passes its short-lived Google OAuth access token as a bearer
  token with every request. The server never stores tokens.

Classification:
  --classifier keyword   Local keyword and link-pattern rules (default)
  --classifier gemini    Delegate the relevance decision to the Gemini API.
                         Requires GEMINI_API_KEY.

All flags can also be set via EVENTMAIL_-prefixed environment variables,
e.g. EVENTMAIL_CLASSIFIER_STRATEGY or EVENTMAIL_GMAIL_MAX_RESULTS.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags take precedence over environment configuration,
			// but only when explicitly set.
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debugMode
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("google-client-id") {
				cfg.GoogleClientID = googleClientID
			}
			if cmd.Flags().Changed("classifier") {
				cfg.Classifier.Strategy = strategy
			}
			if cmd.Flags().Changed("gmail-query") {
				cfg.Gmail.Query = gmailQuery
			}
			if cmd.Flags().Changed("gmail-max-results") {
				cfg.Gmail.MaxResults = maxResults
			}
			if cmd.Flags().Changed("fetch-concurrency") {
				cfg.Gmail.FetchConcurrency = concurrency
			}
			if cmd.Flags().Changed("metrics-enabled") {
				cfg.Metrics.Enabled = metricsEnabled
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cfg, allowedOrigin)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP API server address")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth Client ID served to the browser frontend. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&strategy, "classifier", config.StrategyKeyword, "Classification strategy: keyword or gemini")
	cmd.Flags().StringVar(&gmailQuery, "gmail-query", "", "Gmail search query used to list candidate messages")
	cmd.Flags().Int64Var(&maxResults, "gmail-max-results", 30, "Maximum number of messages fetched per run (1-100)")
	cmd.Flags().IntVar(&concurrency, "fetch-concurrency", 5, "Number of parallel Gmail message fetches")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use EVENTMAIL_METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use EVENTMAIL_METRICS_ADDR env var.")
	cmd.Flags().StringVar(&allowedOrigin, "allowed-origin", "", "Value of the Access-Control-Allow-Origin header (default \"*\")")

	return cmd
}

func runServe(cfg *config.Config, allowedOrigin string) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		// Wait for metrics server to be ready or fail
		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during metrics server shutdown", "error", err)
			}
		}()
	}

	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}

	pipe := pipeline.New(
		pipeline.Config{
			Query:            cfg.Gmail.Query,
			MaxResults:       cfg.Gmail.MaxResults,
			FetchConcurrency: cfg.Gmail.FetchConcurrency,
		},
		pipeline.GmailSourceFactory,
		classifier,
		provider.Metrics(),
		logger,
	)

	apiServer := server.New(
		server.Config{
			Addr:           cfg.HTTPAddr,
			GoogleClientID: cfg.GoogleClientID,
			AllowedOrigin:  allowedOrigin,
		},
		pipe,
		provider.Metrics(),
		logger,
	)

	logger.Info("starting eventmail",
		"addr", cfg.HTTPAddr,
		"classifier", classifier.Name(),
		"gmail_max_results", cfg.Gmail.MaxResults,
		"fetch_concurrency", cfg.Gmail.FetchConcurrency,
	)

	serverReady := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := apiServer.StartWithReadySignal(serverReady); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-serverReady:
		logger.Info("API server ready", "addr", apiServer.Addr())
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("API server failed to start: %w", err)
		}
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("API server startup timed out")
	}

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping API server")
		stopCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down API server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("API server stopped with error: %w", err)
		}
	}

	logger.Info("API server gracefully stopped")
	return nil
}

// buildClassifier constructs the classifier selected by the configuration.
func buildClassifier(cfg *config.Config, logger *slog.Logger) (classify.Classifier, error) {
	switch cfg.Classifier.Strategy {
	case config.StrategyKeyword:
		return classify.NewKeywordClassifier(), nil
	case config.StrategyGemini:
		return classify.NewGeminiClassifier(cfg.Classifier.GeminiAPIKey, cfg.Classifier.GeminiModel, logger), nil
	default:
		return nil, fmt.Errorf("unknown classifier strategy: %s", cfg.Classifier.Strategy)
	}
}
