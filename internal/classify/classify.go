package classify

import (
	"context"
)

// Result is the verdict produced for one normalized message.
type Result struct {
	// IsRelevant reports whether the message concerns a job or internship
	// technical assessment.
	IsRelevant bool `json:"isRelevant"`

	// Reason is a short explanation of the verdict.
	Reason string `json:"reason"`

	// Links are the meeting/test URLs found in the message, deduplicated
	// with first-occurrence order preserved.
	Links []string `json:"links"`
}

// Classifier decides whether a message is relevant to job/internship
// technical assessments and extracts any actionable links.
//
// Implementations must never let a malformed upstream response escape as
// an error: an unparsable verdict is reported as a non-relevant Result
// (fail-safe classification). The error return is reserved for
// programming errors, not classification outcomes.
type Classifier interface {
	Classify(ctx context.Context, subject, body string) (Result, error)

	// Name identifies the strategy for logs and metrics.
	Name() string
}
