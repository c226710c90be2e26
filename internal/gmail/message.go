package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// Defaults used when a message is missing the corresponding header.
const (
	DefaultSubject = "No Subject"
	DefaultSender  = "Unknown Sender"
)

// Email is the normalized form of a Gmail message: headers resolved with
// defaults, body decoded to plain text. Immutable once constructed and
// scoped to a single pipeline run.
type Email struct {
	ID      string     `json:"id"`
	Subject string     `json:"subject"`
	From    string     `json:"from"`
	Date    *time.Time `json:"date"`
	Body    string     `json:"body"`
	Snippet string     `json:"snippet"`
}

// Normalize converts a raw Gmail message into an Email.
//
// Header lookup is case-insensitive; missing headers yield the documented
// defaults rather than failing. The body is the first text/plain leaf of
// the MIME tree when the message is multipart, otherwise the top-level
// body. A message with no plain-text payload normalizes to an empty body;
// that is a valid terminal state, not an error.
func Normalize(m *gmail.Message) Email {
	e := Email{
		ID:      m.Id,
		Subject: DefaultSubject,
		From:    DefaultSender,
		Snippet: m.Snippet,
	}

	if m.Payload == nil {
		return e
	}

	if v := headerValue(m.Payload, "Subject"); v != "" {
		e.Subject = v
	}
	if v := headerValue(m.Payload, "From"); v != "" {
		e.From = v
	}
	if v := headerValue(m.Payload, "Date"); v != "" {
		if t, err := mail.ParseDate(v); err == nil {
			utc := t.UTC()
			e.Date = &utc
		}
	}

	e.Body = extractBody(m.Payload)

	return e
}

// headerValue returns the value of the named header, matched
// case-insensitively, or "" if absent.
func headerValue(p *gmail.MessagePart, name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody decodes the plain-text body of a message payload.
// For multipart messages the first text/plain leaf wins; otherwise the
// top-level body data is decoded directly.
func extractBody(p *gmail.MessagePart) string {
	if len(p.Parts) > 0 {
		var body string
		walkParts(p, func(part *gmail.MessagePart) {
			if body == "" && part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
				body = decodeBody(part.Body.Data)
			}
		})
		return body
	}

	if p.Body != nil && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}

	return ""
}

// decodeBody decodes base64url-encoded body data (Gmail API uses RFC 4648
// base64url encoding). Falls back to standard base64, and to "" when the
// data is not decodable at all.
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// walkParts recursively walks through message parts.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
