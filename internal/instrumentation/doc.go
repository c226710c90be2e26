// Package instrumentation provides OpenTelemetry instrumentation for the
// eventmail server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, Gmail API calls, and classification
//   - Distributed tracing for request flows and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Gmail API Metrics:
//   - gmail_api_operations_total: Counter of Gmail API operations by operation and status
//   - gmail_api_operation_duration_seconds: Histogram of Gmail API operation durations
//
// Pipeline Metrics:
//   - pipeline_runs_total: Counter of fetch-and-classify runs by status
//   - pipeline_run_duration_seconds: Histogram of run durations
//   - pipeline_messages_dropped_total: Counter of messages dropped by reason
//
// Classification Metrics:
//   - classifications_total: Counter of classifications by strategy and verdict
//   - classification_duration_seconds: Histogram of classification durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - Pipeline runs (pipeline.run)
//   - Gmail API calls (google.gmail.<operation>)
//   - Message classification (classify.<strategy>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: eventmail)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "eventmail",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "GET", "/api/email/events", 200, time.Since(start))
//
//	// Record a Gmail API operation
//	recorder.RecordGmailOperation(ctx, "list", "success", time.Since(start))
//
//	// Record a classification
//	recorder.RecordClassification(ctx, "keyword", "relevant", time.Since(start))
package instrumentation
