// Package classify decides whether a normalized email is relevant to
// job/internship technical assessments.
//
// Two interchangeable strategies implement the Classifier interface:
//
//   - KeywordClassifier: local rule-based matching. Relevant iff the
//     message contains at least one domain keyword and at least one
//     URL matching a recognized meeting/test-platform shape.
//   - GeminiClassifier: delegates the judgment to the Generative
//     Language API and parses the JSON verdict out of the model's
//     free-form response.
//
// Both strategies honor fail-safe classification: an unparsable or
// failing upstream response is reported as a non-relevant Result, never
// as an error out of Classify. Strategy selection happens at process
// start and is invisible to callers of the interface.
package classify
