// Package pipeline implements the fetch-and-classify flow behind the
// events endpoint: list recent messages for a mailbox, fetch their full
// content with bounded concurrency, classify each one for relevance and
// return the relevant messages in listing order.
//
// The pipeline is assembled from injected parts: a SourceFactory that
// creates a per-token mailbox Source, and a classify.Classifier that
// decides relevance. Fetch failures drop the affected message and the run
// continues; classifier errors degrade to an irrelevant verdict.
package pipeline
