package classify

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Keywords that identify assessment, interview, and meeting emails.
var assessmentKeywords = []string{
	"interview",
	"online test",
	"assessment",
	"coding challenge",
	"technical round",
	"sde intern",
	"google meet",
	"zoom",
	"teams",
}

// Regular expressions for meeting, calendar, and test-platform URL shapes.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://\S*zoom\.us/\S*`),
	regexp.MustCompile(`https?://meet\.google\.com/\S*`),
	regexp.MustCompile(`https?://teams\.microsoft\.com/\S*`),
	regexp.MustCompile(`https?://drive\.google\.com/\S*`),
	regexp.MustCompile(`https?://calendar\.google\.com/\S*`),
	regexp.MustCompile(`https?://\S*hackerrank\.com/\S*`),
	regexp.MustCompile(`https?://\S*mettl\.com/\S*`),
}

// KeywordClassifier is the local rule-based strategy: a message is
// relevant iff it contains at least one keyword AND at least one link
// matching a recognized pattern. The conjunction is a deliberate
// precision-over-recall choice: keyword matches without an actionable
// link are excluded.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Name implements Classifier.
func (c *KeywordClassifier) Name() string {
	return "keyword"
}

// Classify implements Classifier. Matching is case-insensitive over the
// combined subject and body.
func (c *KeywordClassifier) Classify(_ context.Context, subject, body string) (Result, error) {
	text := strings.ToLower(subject + "\n" + body)

	keyword := firstKeyword(text)
	if keyword == "" {
		return Result{Reason: "No assessment keywords found", Links: []string{}}, nil
	}

	links := extractLinks(text)
	if len(links) == 0 {
		return Result{Reason: "No actionable meeting or test link found", Links: []string{}}, nil
	}

	return Result{
		IsRelevant: true,
		Reason:     fmt.Sprintf("Matched keyword %q with an actionable link", keyword),
		Links:      links,
	}, nil
}

// firstKeyword returns the first configured keyword contained in text,
// or "" when none matches. text must already be lowercased.
func firstKeyword(text string) string {
	for _, kw := range assessmentKeywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

// extractLinks collects all URLs matching the recognized link shapes,
// deduplicated with first-occurrence order in the text preserved.
func extractLinks(text string) []string {
	type match struct {
		start int
		url   string
	}

	var matches []match
	for _, pattern := range linkPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			matches = append(matches, match{start: loc[0], url: text[loc[0]:loc[1]]})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	var links []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m.url] {
			continue
		}
		seen[m.url] = true
		links = append(links, m.url)
	}

	return links
}
