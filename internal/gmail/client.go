package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ReadScope is the OAuth scope the browser must request for the
// listing and fetch operations used here.
const ReadScope = gmail.GmailReadonlyScope

// Client wraps the Gmail Users service for a single bearer token.
// A client is scoped to one request: the browser obtains a short-lived
// access token via the Google Identity Services consent flow and passes
// it with every API call, so there is no token storage on this side.
type Client struct {
	svc *gmail.UsersService
}

// Ref identifies one message returned by the list operation.
// It is transient and only valid within a single pipeline run.
type Ref struct {
	ID string
}

// NewClient creates a Gmail client authenticated with the given OAuth
// access token. The token must be scoped for read-only mail access.
func NewClient(ctx context.Context, accessToken string) (*Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc.Users}, nil
}

// ListMessages lists message refs matching the query, in provider listing
// order, with pagination. It will fetch up to maxResults refs, making
// multiple API calls if necessary.
func (c *Client) ListMessages(ctx context.Context, q string, maxResults int64) ([]Ref, error) {
	var refs []Ref
	pageToken := ""

	for {
		remaining := maxResults - int64(len(refs))
		if remaining <= 0 {
			break
		}

		// Gmail API has a max page size of 100
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			refs = append(refs, Ref{ID: m.Id})
		}

		if res.NextPageToken == "" || int64(len(refs)) >= maxResults {
			break
		}

		pageToken = res.NextPageToken
	}

	// Trim to exact maxResults if we got more
	if int64(len(refs)) > maxResults {
		refs = refs[:maxResults]
	}

	return refs, nil
}

// GetMessage retrieves a full Gmail message.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// FetchEmail retrieves a message and normalizes it in one step.
func (c *Client) FetchEmail(ctx context.Context, ref Ref) (Email, error) {
	msg, err := c.GetMessage(ctx, ref.ID)
	if err != nil {
		return Email{}, err
	}
	return Normalize(msg), nil
}
