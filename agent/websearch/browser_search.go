package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/browser"
)

// DefaultSearchURL is the Bing results page; the query is appended escaped.
const DefaultSearchURL = "https://www.bing.com/search?q="

// Page is the part of browser.Session used by BrowserSearch.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context, selector string) (string, error)
	Extract(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// BrowserSearchOption 配置 BrowserSearch
type BrowserSearchOption func(*BrowserSearch)

// WithSnapshotDir saves a screenshot of every results page into dir.
func WithSnapshotDir(dir string) BrowserSearchOption {
	return func(s *BrowserSearch) { s.snapshotDir = dir }
}

// WithSearchURL overrides DefaultSearchURL.
func WithSearchURL(prefix string) BrowserSearchOption {
	return func(s *BrowserSearch) {
		if prefix != "" {
			s.searchURL = prefix
		}
	}
}

// WithBrowserLogger sets the logger.
func WithBrowserLogger(logger *zap.Logger) BrowserSearchOption {
	return func(s *BrowserSearch) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPageBlocklist sets the domains Content refuses before navigating.
func WithPageBlocklist(b *browser.Blocklist) BrowserSearchOption {
	return func(s *BrowserSearch) { s.blocklist = b }
}

// BrowserSearch runs the query in a real browser and scrapes the results page.
type BrowserSearch struct {
	page        Page
	searchURL   string
	snapshotDir string
	blocklist   *browser.Blocklist
	now         func() time.Time
	logger      *zap.Logger
}

// NewBrowserSearch creates a BrowserSearch.
func NewBrowserSearch(page Page, opts ...BrowserSearchOption) *BrowserSearch {
	s := &BrowserSearch{
		page:      page,
		searchURL: DefaultSearchURL,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "browser_search"))
	return s
}

// Search navigates to the results page and returns at most n organic results.
func (s *BrowserSearch) Search(ctx context.Context, query string, n int) ([]Result, error) {
	n = normalizeN(n)
	if err := s.page.Navigate(ctx, s.searchURL+url.QueryEscape(query)); err != nil {
		return nil, fmt.Errorf("open results page: %w", err)
	}

	if s.snapshotDir != "" {
		s.snapshot(ctx, query)
	}

	html, err := s.page.HTML(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read results page: %w", err)
	}
	results, err := ParseBingResults(html)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search results parsed", zap.String("query", query), zap.Int("count", len(results)))
	return truncate(results, n), nil
}

// Content opens url and returns the visible body text.
func (s *BrowserSearch) Content(ctx context.Context, rawURL string) (string, error) {
	if err := s.blocklist.CheckURL(rawURL); err != nil {
		return "", err
	}
	if err := s.page.Navigate(ctx, rawURL); err != nil {
		return "", err
	}
	return s.page.Extract(ctx, "body")
}

// snapshot failures are logged only; the results are still usable.
func (s *BrowserSearch) snapshot(ctx context.Context, query string) {
	data, err := s.page.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("search snapshot failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("search_%s_%s.png", s.now().Format("20060102_150405"), slug(query))
	path, err := browser.SaveScreenshot(s.snapshotDir, name, data)
	if err != nil {
		s.logger.Warn("search snapshot failed", zap.Error(err))
		return
	}
	s.logger.Info("search snapshot saved", zap.String("path", path))
}

// ParseBingResults extracts the organic results (li.b_algo) of a Bing page.
func ParseBingResults(html string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []Result
	doc.Find("li.b_algo").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("h2 a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if title == "" || href == "" {
			return
		}
		snippet := sel.Find(".b_caption p").First().Text()
		if snippet == "" {
			snippet = sel.Find("p").First().Text()
		}
		results = append(results, Result{
			Title:   title,
			URL:     href,
			Snippet: strings.Join(strings.Fields(snippet), " "),
		})
	})
	return results, nil
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
