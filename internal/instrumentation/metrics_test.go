package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewMetrics(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	metrics, err := NewMetrics(provider.Meter("test"), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Recording must not panic with initialized instruments.
	ctx := context.Background()
	metrics.RecordHTTPRequest(ctx, "GET", "/api/email/events", 200, 10*time.Millisecond)
	metrics.RecordGmailOperation(ctx, OperationList, StatusSuccess, 20*time.Millisecond)
	metrics.RecordGmailOperation(ctx, OperationGet, StatusError, 20*time.Millisecond)
	metrics.RecordPipelineRun(ctx, StatusSuccess, 100*time.Millisecond)
	metrics.RecordMessageDropped(ctx, DropReasonFetchError)
	metrics.RecordClassification(ctx, "keyword", VerdictRelevant, time.Millisecond)
	metrics.RecordClassificationWithSender(ctx, "gemini", VerdictIrrelevant, "example.com", time.Millisecond)
}

func TestMetrics_ZeroValueIsNoOp(t *testing.T) {
	// A zero-value Metrics is handed out when instrumentation is disabled;
	// recording must be a silent no-op.
	m := &Metrics{}
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	m.RecordGmailOperation(ctx, OperationList, StatusSuccess, time.Millisecond)
	m.RecordPipelineRun(ctx, StatusSuccess, time.Millisecond)
	m.RecordMessageDropped(ctx, DropReasonFetchError)
	m.RecordClassification(ctx, "keyword", VerdictRelevant, time.Millisecond)
	m.RecordClassificationWithSender(ctx, "keyword", VerdictRelevant, "example.com", time.Millisecond)
}
