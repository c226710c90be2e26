// Package gmail adapts the Gmail API into the message source used by the
// retrieval pipeline.
//
// The adapter exposes two operations: listing recent message refs under a
// bounded window policy (server-side search query plus a max-results cap)
// and fetching full message detail. Fetched messages are normalized into
// a flat Email record: case-insensitive header lookup with documented
// defaults, and the first text/plain MIME leaf decoded from base64url
// into the body.
//
// Authentication is per request: the browser client obtains a short-lived
// access token through the Google Identity Services consent flow and the
// backend wraps it in a static oauth2 token source. No token is ever
// stored or refreshed here; an expired token surfaces as an API error and
// the client re-runs consent.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, accessToken)
//	if err != nil {
//	    return err
//	}
//
//	refs, err := client.ListMessages(ctx, "interview OR assessment", 30)
//	if err != nil {
//	    return err
//	}
//
//	for _, ref := range refs {
//	    email, err := client.FetchEmail(ctx, ref)
//	    ...
//	}
package gmail
