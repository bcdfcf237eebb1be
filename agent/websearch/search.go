package websearch

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultNumResults is used when a caller asks for zero results.
const DefaultNumResults = 5

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher finds pages and reads their content.
type Searcher interface {
	// Search returns at most n results for query.
	Search(ctx context.Context, query string, n int) ([]Result, error)
	// Content returns the main text of the page at url.
	// Blocked URLs fail with browser.ErrBlockedURL.
	Content(ctx context.Context, url string) (string, error)
}

const errorResultTitle = "Search error"

// ErrorResult is the single result returned when results could not be produced.
func ErrorResult(snippet string) []Result {
	return []Result{{Title: errorResultTitle, URL: "", Snippet: snippet}}
}

var (
	fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	bareArray  = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
)

// extractJSON pulls the JSON payload out of a model reply: a ```json fence,
// otherwise the outermost [ {...} ] span, otherwise the whole text.
func extractJSON(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if m := bareArray.FindString(content); m != "" {
		return m
	}
	return strings.TrimSpace(content)
}

// parseResults decodes a model reply into at most n results.
func parseResults(content string, n int) ([]Result, error) {
	var results []Result
	if err := json.Unmarshal([]byte(extractJSON(content)), &results); err != nil {
		return nil, err
	}
	return truncate(results, n), nil
}

func truncate(results []Result, n int) []Result {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

func normalizeN(n int) int {
	if n <= 0 {
		return DefaultNumResults
	}
	return n
}
