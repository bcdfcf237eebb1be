package websearch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/browser"
)

// EnvAPIKey is read when LLMConfig.APIKey is empty.
const EnvAPIKey = "OPENAI_API_KEY"

// ErrMissingAPIKey is returned when no OpenAI API key is configured.
var ErrMissingAPIKey = errors.New("openai api key is required: set OPENAI_API_KEY")

// Completion is a model reply with its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer sends a single user prompt to a chat model.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error)
	Model() string
}

// LLMRecorder receives one observation per model call. *metrics.Collector satisfies it.
type LLMRecorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// LLMConfig 配置 OpenAI 客户端
type LLMConfig struct {
	APIKey      string        `json:"-" yaml:"api_key"`
	BaseURL     string        `json:"base_url,omitempty" yaml:"base_url"`
	Model       string        `json:"model" yaml:"model"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultLLMConfig 返回默认配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "gpt-4o",
		Temperature: 0.7,
		Timeout:     2 * time.Minute,
	}
}

// OpenAICompleter implements Completer with the OpenAI chat completions API.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAICompleter creates an OpenAICompleter.
func NewOpenAICompleter(cfg LLMConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMConfig().Model
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Model returns the configured model name.
func (c *OpenAICompleter) Model() string { return c.model }

// Complete sends prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("model returned no choices")
	}
	return Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// ============================================================
// LLMSearch
// ============================================================

const searchPrompt = `Simulate a web search for: %q

Return %d plausible search results in this format:

` + "```json" + `
[
    {
        "title": "Result title",
        "url": "https://example.com/result-path",
        "snippet": "Brief description of what this result contains..."
    }
]
` + "```" + `

Rules:
1. Generate realistic titles, URLs, and snippets
2. Use real domain names of reputable sites that would have information on this topic
3. Make URLs look realistic with proper paths
4. Snippets should be informative and relevant to the query
5. Return exactly %d results
6. Return ONLY the JSON array, no other text`

const contentPrompt = `Simulate the main content of a webpage at this URL: %s

Based on the URL, generate plausible, informative content that might be found on this page.
Focus on:
1. The main textual content (articles, information, etc.)
2. A realistic structure with sections and paragraphs
3. Relevant information to what the URL suggests
4. Factual information where possible

Don't include navigation menus, comments, ads, or other non-content elements.
Write at least 3-4 paragraphs of realistic content.`

const contentMaxTokens = 1000

// LLMSearchOption 配置 LLMSearch
type LLMSearchOption func(*LLMSearch)

// WithLLMLogger sets the logger.
func WithLLMLogger(logger *zap.Logger) LLMSearchOption {
	return func(s *LLMSearch) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLLMRecorder reports model calls to r.
func WithLLMRecorder(r LLMRecorder) LLMSearchOption {
	return func(s *LLMSearch) { s.recorder = r }
}

// WithBlocklist sets the domains Content refuses.
func WithBlocklist(b *browser.Blocklist) LLMSearchOption {
	return func(s *LLMSearch) { s.blocklist = b }
}

// LLMSearch asks a chat model to simulate search results and page content.
// It performs no real retrieval.
type LLMSearch struct {
	completer Completer
	blocklist *browser.Blocklist
	recorder  LLMRecorder
	logger    *zap.Logger
}

// NewLLMSearch creates an LLMSearch.
func NewLLMSearch(c Completer, opts ...LLMSearchOption) *LLMSearch {
	s := &LLMSearch{completer: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "llm_search"))
	return s
}

// Search never fails: model or parse errors come back as a single
// "Search error" result.
func (s *LLMSearch) Search(ctx context.Context, query string, n int) ([]Result, error) {
	n = normalizeN(n)
	reply, err := s.complete(ctx, fmt.Sprintf(searchPrompt, query, n, n), 0)
	if err != nil {
		s.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		return ErrorResult(err.Error()), nil
	}

	results, err := parseResults(reply, n)
	if err != nil {
		s.logger.Warn("failed to parse search results",
			zap.String("query", query),
			zap.String("content", reply),
			zap.Error(err))
		return ErrorResult("Failed to parse search results"), nil
	}
	return results, nil
}

// Content simulates the main content of url.
func (s *LLMSearch) Content(ctx context.Context, url string) (string, error) {
	if err := s.blocklist.CheckURL(url); err != nil {
		s.logger.Warn("url blocked", zap.String("url", url))
		return "", err
	}
	reply, err := s.complete(ctx, fmt.Sprintf(contentPrompt, url), contentMaxTokens)
	if err != nil {
		return "", fmt.Errorf("simulate content of %s: %w", url, err)
	}
	return reply, nil
}

func (s *LLMSearch) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	c, err := s.completer.Complete(ctx, prompt, maxTokens)
	if s.recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.recorder.RecordLLMRequest("openai", s.completer.Model(), status, time.Since(start), c.PromptTokens, c.CompletionTokens)
	}
	if err != nil {
		return "", err
	}
	return c.Text, nil
}
