package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/eventmail/internal/classify"
	"github.com/teemow/eventmail/internal/gmail"
	"github.com/teemow/eventmail/internal/instrumentation"
	"github.com/teemow/eventmail/internal/logging"
)

// ErrMissingToken is returned when Run is called without an access token.
var ErrMissingToken = errors.New("access token missing")

// FilteredEmail is one relevant message as returned to the browser.
type FilteredEmail struct {
	Subject string     `json:"subject"`
	From    string     `json:"from"`
	Snippet string     `json:"snippet"`
	Body    string     `json:"body"`
	Date    *time.Time `json:"date"`
	Reason  string     `json:"reason"`
	Links   []string   `json:"links"`
}

// Source lists and fetches mailbox messages. It is implemented by
// gmail.Client and by test fakes.
type Source interface {
	ListMessages(ctx context.Context, q string, maxResults int64) ([]gmail.Ref, error)
	FetchEmail(ctx context.Context, ref gmail.Ref) (gmail.Email, error)
}

// SourceFactory creates a Source authenticated with the given per-request
// access token.
type SourceFactory func(ctx context.Context, accessToken string) (Source, error)

// GmailSourceFactory is the production SourceFactory backed by the Gmail API.
func GmailSourceFactory(ctx context.Context, accessToken string) (Source, error) {
	return gmail.NewClient(ctx, accessToken)
}

// Config holds the tunables of a pipeline run.
type Config struct {
	// Query is the Gmail search query used for listing.
	Query string

	// MaxResults bounds the listing.
	MaxResults int64

	// FetchConcurrency bounds the number of in-flight message fetches.
	FetchConcurrency int
}

// Pipeline fetches recent messages for a mailbox and classifies them for
// relevance. It is safe for concurrent use: all per-request state lives in
// the Run call.
type Pipeline struct {
	config     Config
	newSource  SourceFactory
	classifier classify.Classifier
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// New creates a Pipeline. The classifier and source factory are required,
// metrics and logger fall back to no-op and slog.Default respectively.
func New(config Config, newSource SourceFactory, classifier classify.Classifier, metrics *instrumentation.Metrics, logger *slog.Logger) *Pipeline {
	if config.FetchConcurrency < 1 {
		config.FetchConcurrency = 1
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		config:     config,
		newSource:  newSource,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run lists messages matching the configured query, fetches them with
// bounded concurrency, classifies each one and returns the relevant
// messages in listing order. Messages that fail to fetch are dropped,
// the rest of the run continues.
func (p *Pipeline) Run(ctx context.Context, accessToken string) ([]FilteredEmail, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	start := time.Now()
	ctx, span := instrumentation.StartPipelineSpan(ctx,
		attribute.String(instrumentation.SpanAttrStrategy, p.classifier.Name()),
	)
	defer span.End()

	source, err := p.newSource(ctx, accessToken)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		p.metrics.RecordPipelineRun(ctx, instrumentation.StatusError, time.Since(start))
		return nil, err
	}

	refs, err := p.listRefs(ctx, source)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		p.metrics.RecordPipelineRun(ctx, instrumentation.StatusError, time.Since(start))
		return nil, err
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrMessageCount, len(refs)))

	emails := p.fetchAll(ctx, source, refs)

	filtered := make([]FilteredEmail, 0, len(emails))
	for _, email := range emails {
		if email == nil {
			continue // dropped during fetch
		}

		verdict := p.classifyOne(ctx, *email)
		if !verdict.IsRelevant {
			continue
		}

		filtered = append(filtered, FilteredEmail{
			Subject: email.Subject,
			From:    email.From,
			Snippet: email.Snippet,
			Body:    email.Body,
			Date:    email.Date,
			Reason:  verdict.Reason,
			Links:   verdict.Links,
		})
	}

	p.logger.Info("pipeline run complete",
		logging.Operation("pipeline_run"),
		logging.Strategy(p.classifier.Name()),
		slog.Int("listed", len(refs)),
		slog.Int("relevant", len(filtered)),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)

	instrumentation.SetSpanSuccess(span)
	p.metrics.RecordPipelineRun(ctx, instrumentation.StatusSuccess, time.Since(start))

	return filtered, nil
}

func (p *Pipeline) listRefs(ctx context.Context, source Source) ([]gmail.Ref, error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailAPISpan(ctx, instrumentation.OperationList)
	defer span.End()

	refs, err := source.ListMessages(ctx, p.config.Query, p.config.MaxResults)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		p.metrics.RecordGmailOperation(ctx, instrumentation.OperationList, instrumentation.StatusError, time.Since(start))
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	p.metrics.RecordGmailOperation(ctx, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
	return refs, nil
}

// fetchAll fetches every ref with bounded concurrency. The result slice is
// keyed by listing index so the listing order survives the concurrency.
// Failed fetches leave a nil entry.
func (p *Pipeline) fetchAll(ctx context.Context, source Source, refs []gmail.Ref) []*gmail.Email {
	emails := make([]*gmail.Email, len(refs))

	sem := make(chan struct{}, p.config.FetchConcurrency)
	var wg sync.WaitGroup

	for i, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, ref gmail.Ref) {
			defer wg.Done()
			defer func() { <-sem }()

			email, err := p.fetchOne(ctx, source, ref)
			if err != nil {
				p.logger.Warn("dropping message after fetch failure",
					logging.Operation("fetch_message"),
					logging.MessageID(ref.ID),
					logging.Err(err),
				)
				p.metrics.RecordMessageDropped(ctx, instrumentation.DropReasonFetchError)
				return
			}
			emails[i] = &email
		}(i, ref)
	}

	wg.Wait()
	return emails
}

func (p *Pipeline) fetchOne(ctx context.Context, source Source, ref gmail.Ref) (gmail.Email, error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailAPISpan(ctx, instrumentation.OperationGet,
		attribute.String(instrumentation.SpanAttrMessageID, ref.ID),
	)
	defer span.End()

	email, err := source.FetchEmail(ctx, ref)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		p.metrics.RecordGmailOperation(ctx, instrumentation.OperationGet, instrumentation.StatusError, time.Since(start))
		return gmail.Email{}, err
	}

	instrumentation.SetSpanSuccess(span)
	p.metrics.RecordGmailOperation(ctx, instrumentation.OperationGet, instrumentation.StatusSuccess, time.Since(start))
	return email, nil
}

// classifyOne classifies a single message. Classifier errors degrade to an
// irrelevant verdict so one bad message never fails the whole run.
func (p *Pipeline) classifyOne(ctx context.Context, email gmail.Email) classify.Result {
	start := time.Now()
	ctx, span := instrumentation.StartClassificationSpan(ctx, p.classifier.Name(),
		attribute.String(instrumentation.SpanAttrMessageID, email.ID),
	)
	defer span.End()

	verdict, err := p.classifier.Classify(ctx, email.Subject, email.Body)
	if err != nil {
		p.logger.Warn("classification failed, treating message as irrelevant",
			logging.Operation("classify_message"),
			logging.Strategy(p.classifier.Name()),
			logging.MessageID(email.ID),
			logging.Err(err),
		)
		instrumentation.SetSpanError(span, err)
		verdict = classify.Result{
			IsRelevant: false,
			Reason:     "Failed to parse response",
			Links:      []string{},
		}
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	label := instrumentation.VerdictIrrelevant
	if verdict.IsRelevant {
		label = instrumentation.VerdictRelevant
	}
	span.SetAttributes(attribute.String(instrumentation.SpanAttrVerdict, label))
	p.metrics.RecordClassificationWithSender(ctx, p.classifier.Name(), label, logging.ExtractDomain(email.From), time.Since(start))

	return verdict
}
