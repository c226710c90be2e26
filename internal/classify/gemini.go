package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/teemow/eventmail/internal/logging"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiTimeout = 30 * time.Second

	// failSafeReason is the fixed reason reported when the model response
	// cannot be turned into a verdict.
	failSafeReason = "Failed to parse response"
)

// Model responses often wrap the verdict JSON in fenced code blocks.
var (
	fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedBlock     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// GeminiClassifier delegates the relevance judgment to the Generative
// Language API. The model output is untrusted free-form text that
// nominally contains a JSON verdict; any deviation from the expected
// shape fails safe to a non-relevant Result instead of raising.
type GeminiClassifier struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClassifier creates the delegated classifier. model is the
// Generative Language model name, e.g. "gemini-1.5-flash".
func NewGeminiClassifier(apiKey, model string, logger *slog.Logger) *GeminiClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClassifier{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: defaultGeminiTimeout},
		logger:     logging.WithStrategy(logger, "gemini"),
	}
}

// Name implements Classifier.
func (c *GeminiClassifier) Name() string {
	return "gemini"
}

// Request/response subset of the generateContent wire format.
type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify implements Classifier. Transport failures, non-200 responses,
// and unparsable model output all fail safe to a non-relevant Result;
// the error return stays nil so a flaky upstream never aborts a run.
func (c *GeminiClassifier) Classify(ctx context.Context, subject, body string) (Result, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []generateContent{
			{Parts: []generatePart{{Text: buildPrompt(subject, body)}}},
		},
	})
	if err != nil {
		return failSafe(), nil
	}

	// Adopt the caller's deadline or fall back to a local one.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultGeminiTimeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failSafe(), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("generateContent request failed", logging.Err(err))
		return failSafe(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("generateContent returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response", strings.TrimSpace(string(b))))
		return failSafe(), nil
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		c.logger.Warn("failed to decode generateContent response", logging.Err(err))
		return failSafe(), nil
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		c.logger.Warn("generateContent response has no candidates")
		return failSafe(), nil
	}

	result, err := parseVerdict(gr.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		c.logger.Warn("failed to parse model verdict", logging.Err(err))
		return failSafe(), nil
	}

	return result, nil
}

// parseVerdict extracts the JSON verdict from free-form model output.
// Known wrapping delimiters (``` fences) are stripped; no further repair
// is attempted, any other deviation is an error.
func parseVerdict(text string) (Result, error) {
	cleaned := text
	if m := fencedJSONBlock.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	} else if m := fencedBlock.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	cleaned = strings.TrimSpace(cleaned)

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return Result{}, fmt.Errorf("verdict is not valid JSON: %w", err)
	}

	if result.Links == nil {
		result.Links = []string{}
	}

	return result, nil
}

// failSafe is the verdict used when the upstream response is unusable.
func failSafe() Result {
	return Result{
		IsRelevant: false,
		Reason:     failSafeReason,
		Links:      []string{},
	}
}

// buildPrompt serializes the message into the instruction prompt sent to
// the model.
func buildPrompt(subject, body string) string {
	return fmt.Sprintf(`You are a smart email filtering assistant.

Check if this email is related to:
- Online technical assessments
- Internship role tests (like SDE intern, frontend intern, etc.)
- Coding challenges or test links
- Anything related to job/intern hiring assessments

Important keywords might include:
- "online test", "assessment", "technical round", "test login time", "intern role", "secure browser", "demo test"
- URLs to platforms like mettl, hackerrank, testinvite, google forms, etc.

### Task:
Analyze the following subject and body.
Return only if it's **relevant to a candidate looking for job/internship technical assessments**.

Give the result in this exact JSON:
{
  "isRelevant": true or false,
  "reason": "Short one-liner",
  "links": [list of URLs if any]
}

Subject: %s
Body: %s
`, subject, body)
}
