package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/eventmail/internal/classify"
	"github.com/teemow/eventmail/internal/gmail"
)

// fakeSource serves canned messages keyed by ID and can be told to fail
// listing or individual fetches.
type fakeSource struct {
	refs     []gmail.Ref
	emails   map[string]gmail.Email
	listErr  error
	fetchErr map[string]error

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (s *fakeSource) ListMessages(ctx context.Context, q string, maxResults int64) ([]gmail.Ref, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if int64(len(s.refs)) > maxResults {
		return s.refs[:maxResults], nil
	}
	return s.refs, nil
}

func (s *fakeSource) FetchEmail(ctx context.Context, ref gmail.Ref) (gmail.Email, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if err := s.fetchErr[ref.ID]; err != nil {
		return gmail.Email{}, err
	}
	email, ok := s.emails[ref.ID]
	if !ok {
		return gmail.Email{}, fmt.Errorf("no such message: %s", ref.ID)
	}
	return email, nil
}

// subjectClassifier marks messages relevant when the subject contains
// "interview". It records the order it saw subjects in.
type subjectClassifier struct {
	err  error
	seen []string
}

func (c *subjectClassifier) Classify(ctx context.Context, subject, body string) (classify.Result, error) {
	c.seen = append(c.seen, subject)
	if c.err != nil {
		return classify.Result{}, c.err
	}
	if strings.Contains(strings.ToLower(subject), "interview") {
		return classify.Result{
			IsRelevant: true,
			Reason:     "interview found",
			Links:      []string{"https://zoom.us/j/123"},
		}, nil
	}
	return classify.Result{IsRelevant: false, Reason: "not relevant", Links: []string{}}, nil
}

func (c *subjectClassifier) Name() string { return "subject" }

func staticFactory(s Source) SourceFactory {
	return func(ctx context.Context, accessToken string) (Source, error) {
		return s, nil
	}
}

func testEmail(id, subject string) gmail.Email {
	return gmail.Email{
		ID:      id,
		Subject: subject,
		From:    "recruiter@example.com",
		Snippet: "snippet " + id,
		Body:    "body " + id,
	}
}

func TestRun_MissingToken(t *testing.T) {
	p := New(Config{MaxResults: 10}, staticFactory(&fakeSource{}), &subjectClassifier{}, nil, nil)

	_, err := p.Run(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestRun_EmptyListing(t *testing.T) {
	source := &fakeSource{}
	p := New(Config{MaxResults: 10}, staticFactory(source), &subjectClassifier{}, nil, nil)

	got, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRun_ListingError(t *testing.T) {
	source := &fakeSource{listErr: errors.New("quota exceeded")}
	p := New(Config{MaxResults: 10}, staticFactory(source), &subjectClassifier{}, nil, nil)

	_, err := p.Run(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRun_SourceFactoryError(t *testing.T) {
	factory := func(ctx context.Context, accessToken string) (Source, error) {
		return nil, errors.New("bad token")
	}
	p := New(Config{MaxResults: 10}, factory, &subjectClassifier{}, nil, nil)

	_, err := p.Run(context.Background(), "tok")
	require.Error(t, err)
}

func TestRun_FiltersAndKeepsListingOrder(t *testing.T) {
	source := &fakeSource{
		refs: []gmail.Ref{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		emails: map[string]gmail.Email{
			"a": testEmail("a", "Interview with ACME"),
			"b": testEmail("b", "Weekly newsletter"),
			"c": testEmail("c", "Final interview round"),
			"d": testEmail("d", "Your receipt"),
		},
		fetchErr: map[string]error{},
	}
	classifier := &subjectClassifier{}
	p := New(Config{MaxResults: 10, FetchConcurrency: 3}, staticFactory(source), classifier, nil, nil)

	got, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Interview with ACME", got[0].Subject)
	assert.Equal(t, "Final interview round", got[1].Subject)
	assert.Equal(t, "recruiter@example.com", got[0].From)
	assert.Equal(t, "snippet a", got[0].Snippet)
	assert.Equal(t, "interview found", got[0].Reason)
	assert.Equal(t, []string{"https://zoom.us/j/123"}, got[0].Links)

	// Classification happens in listing order regardless of fetch timing.
	assert.Equal(t, []string{
		"Interview with ACME",
		"Weekly newsletter",
		"Final interview round",
		"Your receipt",
	}, classifier.seen)
}

func TestRun_DropsFailedFetches(t *testing.T) {
	source := &fakeSource{
		refs: []gmail.Ref{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		emails: map[string]gmail.Email{
			"a": testEmail("a", "Interview invite"),
			"c": testEmail("c", "Interview schedule"),
		},
		fetchErr: map[string]error{
			"b": errors.New("message not found"),
		},
	}
	classifier := &subjectClassifier{}
	p := New(Config{MaxResults: 10, FetchConcurrency: 2}, staticFactory(source), classifier, nil, nil)

	got, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Interview invite", got[0].Subject)
	assert.Equal(t, "Interview schedule", got[1].Subject)

	// The dropped message never reaches the classifier.
	assert.Equal(t, []string{"Interview invite", "Interview schedule"}, classifier.seen)
}

func TestRun_ClassifierErrorDegradesToIrrelevant(t *testing.T) {
	source := &fakeSource{
		refs: []gmail.Ref{{ID: "a"}},
		emails: map[string]gmail.Email{
			"a": testEmail("a", "Interview invite"),
		},
	}
	p := New(Config{MaxResults: 10}, staticFactory(source), &subjectClassifier{err: errors.New("backend down")}, nil, nil)

	got, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRun_BoundsFetchConcurrency(t *testing.T) {
	refs := make([]gmail.Ref, 0, 20)
	emails := make(map[string]gmail.Email, 20)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("m%d", i)
		refs = append(refs, gmail.Ref{ID: id})
		emails[id] = testEmail(id, "Interview "+id)
	}
	source := &fakeSource{refs: refs, emails: emails}
	p := New(Config{MaxResults: 20, FetchConcurrency: 3}, staticFactory(source), &subjectClassifier{}, nil, nil)

	got, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.LessOrEqual(t, source.maxInFlight, 3)
	assert.Greater(t, source.maxInFlight, 0)
}

func TestRun_Idempotent(t *testing.T) {
	source := &fakeSource{
		refs: []gmail.Ref{{ID: "a"}, {ID: "b"}},
		emails: map[string]gmail.Email{
			"a": testEmail("a", "Interview invite"),
			"b": testEmail("b", "Interview round two"),
		},
	}
	p := New(Config{MaxResults: 10, FetchConcurrency: 2}, staticFactory(source), &subjectClassifier{}, nil, nil)

	first, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{MaxResults: 5}, staticFactory(&fakeSource{}), &subjectClassifier{}, nil, nil)
	assert.Equal(t, 1, p.config.FetchConcurrency)
	assert.NotNil(t, p.metrics)
	assert.NotNil(t, p.logger)
}

func TestRun_RespectsMaxResults(t *testing.T) {
	var calls atomic.Int64
	refs := []gmail.Ref{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	source := &fakeSource{
		refs: refs,
		emails: map[string]gmail.Email{
			"a": testEmail("a", "Interview"),
			"b": testEmail("b", "Interview"),
			"c": testEmail("c", "Interview"),
		},
	}
	factory := func(ctx context.Context, accessToken string) (Source, error) {
		calls.Add(1)
		return source, nil
	}
	p := New(Config{MaxResults: 2, FetchConcurrency: 2}, factory, &subjectClassifier{}, nil, nil)

	got, err := p.Run(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), calls.Load())
}
