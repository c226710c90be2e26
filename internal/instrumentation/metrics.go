package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrOp       = "operation"
	attrStrategy = "strategy"
	attrVerdict  = "verdict"
	attrReason   = "reason"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Gmail API metrics
	gmailOperationsTotal   metric.Int64Counter
	gmailOperationDuration metric.Float64Histogram

	// Pipeline metrics
	pipelineRunsTotal    metric.Int64Counter
	pipelineRunDuration  metric.Float64Histogram
	messagesDroppedTotal metric.Int64Counter

	// Classification metrics
	classificationsTotal   metric.Int64Counter
	classificationDuration metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.gmailOperationsTotal, err = meter.Int64Counter(
		"gmail_api_operations_total",
		metric.WithDescription("Total number of Gmail API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operations_total counter: %w", err)
	}

	m.gmailOperationDuration, err = meter.Float64Histogram(
		"gmail_api_operation_duration_seconds",
		metric.WithDescription("Gmail API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operation_duration_seconds histogram: %w", err)
	}

	m.pipelineRunsTotal, err = meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of retrieval pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_runs_total counter: %w", err)
	}

	m.pipelineRunDuration, err = meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Retrieval pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_run_duration_seconds histogram: %w", err)
	}

	m.messagesDroppedTotal, err = meter.Int64Counter(
		"pipeline_messages_dropped_total",
		metric.WithDescription("Total number of messages dropped during a pipeline run"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_messages_dropped_total counter: %w", err)
	}

	m.classificationsTotal, err = meter.Int64Counter(
		"classifications_total",
		metric.WithDescription("Total number of message classifications by strategy and verdict"),
		metric.WithUnit("{classification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifications_total counter: %w", err)
	}

	m.classificationDuration, err = meter.Float64Histogram(
		"classification_duration_seconds",
		metric.WithDescription("Message classification duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGmailOperation records a Gmail API operation.
//
// Parameters:
//   - operation: Operation type (list, get)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGmailOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.gmailOperationsTotal == nil || m.gmailOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOp, operation),
		attribute.String(attrStatus, status),
	}

	m.gmailOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gmailOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordPipelineRun records one retrieval pipeline run.
// Status should be one of: "success", "error".
func (m *Metrics) RecordPipelineRun(ctx context.Context, status string, duration time.Duration) {
	if m.pipelineRunsTotal == nil || m.pipelineRunDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}

	m.pipelineRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.pipelineRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessageDropped records a message excluded from a run, with the
// reason it was dropped (e.g. "fetch_error").
func (m *Metrics) RecordMessageDropped(ctx context.Context, reason string) {
	if m.messagesDroppedTotal == nil {
		return // Instrumentation not initialized
	}

	m.messagesDroppedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrReason, reason),
	))
}

// RecordClassification records one classification with strategy, verdict,
// and duration. Verdict should be "relevant" or "irrelevant".
func (m *Metrics) RecordClassification(ctx context.Context, strategy, verdict string, duration time.Duration) {
	if m.classificationsTotal == nil || m.classificationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStrategy, strategy),
		attribute.String(attrVerdict, verdict),
	}

	m.classificationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.classificationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordClassificationWithSender records a classification including the
// sender domain. The domain label is only added when detailedLabels is
// enabled, to keep metric cardinality bounded by default.
func (m *Metrics) RecordClassificationWithSender(ctx context.Context, strategy, verdict, senderDomain string, duration time.Duration) {
	if m.classificationsTotal == nil || m.classificationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStrategy, strategy),
		attribute.String(attrVerdict, verdict),
	}

	if m.detailedLabels && senderDomain != "" {
		attrs = append(attrs, attribute.String("sender_domain", senderDomain))
	}

	m.classificationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.classificationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
