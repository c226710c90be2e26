package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/teemow/eventmail/internal/gmail"
	"github.com/teemow/eventmail/internal/logging"
	"github.com/teemow/eventmail/internal/pipeline"
)

// Client-facing error messages. The frontend matches on these strings,
// so they are part of the API contract.
const (
	errMissingToken = "Access token missing"
	errFetchFailed  = "Failed to fetch event emails"
)

// errorResponse is the JSON envelope for error responses.
type errorResponse struct {
	Error string `json:"error"`
}

// emailsResponse is the JSON envelope for the events endpoint.
type emailsResponse struct {
	Emails []pipeline.FilteredEmail `json:"emails"`
}

// configResponse is the JSON envelope for the config endpoint.
type configResponse struct {
	GoogleClientID string `json:"googleClientId"`
	Scope          string `json:"scope"`
}

// handleEvents serves GET /api/email/events. The browser passes its
// short-lived Google access token as a bearer token with every call.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errMissingToken})
		return
	}

	emails, err := s.runner.Run(r.Context(), token)
	if err != nil {
		if errors.Is(err, pipeline.ErrMissingToken) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errMissingToken})
			return
		}

		s.logger.Error("event email run failed",
			logging.Operation("list_event_emails"),
			logging.Err(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errFetchFailed})
		return
	}

	if emails == nil {
		emails = []pipeline.FilteredEmail{}
	}

	writeJSON(w, http.StatusOK, emailsResponse{Emails: emails})
}

// handleConfig serves GET /api/config with the OAuth client ID the
// frontend needs to start the Google Identity Services token flow.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, configResponse{
		GoogleClientID: s.config.GoogleClientID,
		Scope:          gmail.ReadScope,
	})
}

// bearerToken extracts the bearer token from the Authorization header.
// Returns the empty string when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
