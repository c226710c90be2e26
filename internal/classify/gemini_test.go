package classify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geminiReply wraps text into the generateContent response envelope.
func geminiReply(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				},
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClassifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewGeminiClassifier("test-key", "gemini-1.5-flash", nil)
	c.baseURL = srv.URL
	return c
}

func TestGeminiClassifier_ParsesVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "bare JSON verdict",
			text: `{"isRelevant": true, "reason": "Online assessment invite", "links": ["https://www.hackerrank.com/test/1"]}`,
		},
		{
			name: "json fenced verdict",
			text: "```json\n{\"isRelevant\": true, \"reason\": \"Online assessment invite\", \"links\": [\"https://www.hackerrank.com/test/1\"]}\n```",
		},
		{
			name: "plain fenced verdict",
			text: "```\n{\"isRelevant\": true, \"reason\": \"Online assessment invite\", \"links\": [\"https://www.hackerrank.com/test/1\"]}\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Contains(t, r.URL.Path, "gemini-1.5-flash:generateContent")
				assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
				_, _ = w.Write([]byte(geminiReply(tt.text)))
			})

			result, err := c.Classify(t.Context(), "Assessment", "body")
			require.NoError(t, err)

			assert.True(t, result.IsRelevant)
			assert.Equal(t, "Online assessment invite", result.Reason)
			assert.Equal(t, []string{"https://www.hackerrank.com/test/1"}, result.Links)
		})
	}
}

func TestGeminiClassifier_FailSafe(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-JSON model output",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(geminiReply("I think this email is about an interview.")))
			},
		},
		{
			name: "truncated JSON verdict",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(geminiReply(`{"isRelevant": true, "reason": "cut off`)))
			},
		},
		{
			name: "empty candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"candidates": []}`))
			},
		},
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed response envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json at all"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestGemini(t, tt.handler)

			result, err := c.Classify(t.Context(), "subject", "body")

			// Classification never raises out of Classify
			require.NoError(t, err)
			assert.False(t, result.IsRelevant)
			assert.Equal(t, failSafeReason, result.Reason)
			assert.Equal(t, []string{}, result.Links)
		})
	}
}

func TestGeminiClassifier_TransportError(t *testing.T) {
	c := NewGeminiClassifier("test-key", "gemini-1.5-flash", nil)
	// Unroutable base URL forces a transport failure
	c.baseURL = "http://127.0.0.1:1"

	result, err := c.Classify(t.Context(), "subject", "body")
	require.NoError(t, err)
	assert.False(t, result.IsRelevant)
	assert.Equal(t, failSafeReason, result.Reason)
}

func TestGeminiClassifier_PromptContainsMessage(t *testing.T) {
	var gotPrompt string
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		gotPrompt = req.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(geminiReply(`{"isRelevant": false, "reason": "n/a", "links": []}`)))
	})

	_, err := c.Classify(t.Context(), "My Subject", "My Body")
	require.NoError(t, err)

	assert.Contains(t, gotPrompt, "Subject: My Subject")
	assert.Contains(t, gotPrompt, "Body: My Body")
	assert.Contains(t, gotPrompt, "isRelevant")
}

func TestParseVerdict_NilLinksNormalized(t *testing.T) {
	result, err := parseVerdict(`{"isRelevant": false, "reason": "nothing here"}`)
	require.NoError(t, err)
	assert.NotNil(t, result.Links)
	assert.Empty(t, result.Links)
}

func TestGeminiClassifier_Name(t *testing.T) {
	assert.Equal(t, "gemini", NewGeminiClassifier("k", "m", nil).Name())
}
