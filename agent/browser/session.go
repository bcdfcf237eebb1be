package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ActionRecorder receives one observation per executed command.
// *metrics.Collector satisfies it.
type ActionRecorder interface {
	RecordBrowserAction(action string, success bool, duration time.Duration)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder reports every command to r.
func WithRecorder(r ActionRecorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithRateLimit caps commands per second. Zero disables the limit.
func WithRateLimit(perSecond float64) SessionOption {
	return func(s *Session) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// Session manages a browser automation session.
type Session struct {
	id       string
	config   BrowserConfig
	browser  Browser
	limiter  *rate.Limiter
	recorder ActionRecorder
	history  []BrowserCommand
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewSession creates a new browser session.
func NewSession(browser Browser, config BrowserConfig, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		config:  config,
		browser: browser,
		history: make([]BrowserCommand, 0),
		logger:  zap.NewNop(),
	}
	if config.ActionsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.ActionsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Browser returns the wrapped browser.
func (s *Session) Browser() Browser { return s.browser }

// Execute runs a command and records it in history.
func (s *Session) Execute(ctx context.Context, cmd BrowserCommand) (*BrowserResult, error) {
	s.mu.Lock()
	s.history = append(s.history, cmd)
	s.mu.Unlock()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	timeout := s.config.Timeout
	if cmd.Timeout > timeout {
		timeout = cmd.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.logger.Debug("executing browser command",
		zap.String("action", string(cmd.Action)),
		zap.String("selector", cmd.Selector))

	start := time.Now()
	result, err := s.browser.Execute(ctx, cmd)
	if s.recorder != nil {
		s.recorder.RecordBrowserAction(string(cmd.Action), err == nil, time.Since(start))
	}
	if err != nil {
		s.logger.Debug("browser command failed",
			zap.String("action", string(cmd.Action)),
			zap.String("selector", cmd.Selector),
			zap.Error(err))
		return result, err
	}

	return result, nil
}

// GetHistory returns the command history.
func (s *Session) GetHistory() []BrowserCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BrowserCommand{}, s.history...)
}

// State returns the current page state.
func (s *Session) State(ctx context.Context) (*PageState, error) {
	return s.browser.GetState(ctx)
}

// ============================================================
// 导航
// ============================================================

// Navigate navigates to a URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionNavigate, Value: url})
	return err
}

// Back goes back in history.
func (s *Session) Back(ctx context.Context) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionBack})
	return err
}

// Forward goes forward in history.
func (s *Session) Forward(ctx context.Context) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionForward})
	return err
}

// Refresh reloads the page.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionRefresh})
	return err
}

// ============================================================
// 坐标操作
// ============================================================

// ClickAt clicks at a viewport coordinate.
func (s *Session) ClickAt(ctx context.Context, x, y int, button MouseButton) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionClick, X: x, Y: y, Button: button})
	return err
}

// DoubleClickAt double clicks at a viewport coordinate.
func (s *Session) DoubleClickAt(ctx context.Context, x, y int) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionDoubleClick, X: x, Y: y})
	return err
}

// Scroll moves the mouse to (x, y) and scrolls the window by (dx, dy).
func (s *Session) Scroll(ctx context.Context, x, y, dx, dy int) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionScroll, X: x, Y: y, DeltaX: dx, DeltaY: dy})
	return err
}

// Move moves the mouse.
func (s *Session) Move(ctx context.Context, x, y int) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionMove, X: x, Y: y})
	return err
}

// Drag drags along path with the left button held.
func (s *Session) Drag(ctx context.Context, path []Point) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionDrag, Path: path})
	return err
}

// TypeText types into whatever has focus.
func (s *Session) TypeText(ctx context.Context, text string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionType, Value: text})
	return err
}

// Keypress presses a key chord such as ["ctrl", "enter"].
func (s *Session) Keypress(ctx context.Context, keys ...string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionKeypress, Keys: keys})
	return err
}

// ============================================================
// 元素操作
// ============================================================

// Click clicks on an element.
func (s *Session) Click(ctx context.Context, selector string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionClick, Selector: selector})
	return err
}

// DoubleClick double clicks on an element.
func (s *Session) DoubleClick(ctx context.Context, selector string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionDoubleClick, Selector: selector})
	return err
}

// Type types text into an element without clearing it.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionType, Selector: selector, Value: text})
	return err
}

// Fill replaces the value of an input element.
func (s *Session) Fill(ctx context.Context, selector, text string) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionFill, Selector: selector, Value: text})
	return err
}

// Wait waits for an element to become visible.
func (s *Session) Wait(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionWait, Selector: selector, Timeout: timeout})
	return err
}

// Sleep pauses for d.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionWait, Timeout: d})
	return err
}

// WaitFor reports whether selector became visible within timeout.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	return s.Wait(ctx, selector, timeout) == nil
}

// AttemptClick reports whether clicking selector succeeded within timeout.
func (s *Session) AttemptClick(ctx context.Context, selector string, timeout time.Duration) bool {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionClick, Selector: selector, Timeout: timeout})
	return err == nil
}

// Extract returns the text content of selector, or of the body when empty.
func (s *Session) Extract(ctx context.Context, selector string) (string, error) {
	res, err := s.Execute(ctx, BrowserCommand{Action: ActionExtract, Selector: selector})
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := decodeData(res, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// HTML returns the outer HTML of selector, or of the document when empty.
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	res, err := s.Execute(ctx, BrowserCommand{Action: ActionHTML, Selector: selector})
	if err != nil {
		return "", err
	}
	var out struct {
		HTML string `json:"html"`
	}
	if err := decodeData(res, &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}

// ElementInfo describes the element matched by selector.
func (s *Session) ElementInfo(ctx context.Context, selector string) (*ElementInfo, error) {
	res, err := s.Execute(ctx, BrowserCommand{Action: ActionElementInfo, Selector: selector})
	if err != nil {
		return nil, err
	}
	var info ElementInfo
	if err := decodeData(res, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Screenshot captures the viewport.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	res, err := s.Execute(ctx, BrowserCommand{Action: ActionScreenshot})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Screenshot) == 0 {
		return nil, errors.New("browser returned an empty screenshot")
	}
	return res.Screenshot, nil
}

// ScreenshotBase64 captures the viewport as base64 text.
func (s *Session) ScreenshotBase64(ctx context.Context) (string, error) {
	data, err := s.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	return EncodeBase64(data), nil
}

// ============================================================
// 标签页与下载
// ============================================================

// NewTab opens a tab, switches to it and returns its index.
func (s *Session) NewTab(ctx context.Context, url string) (int, error) {
	res, err := s.Execute(ctx, BrowserCommand{Action: ActionNewTab, Value: url})
	if err != nil {
		return 0, err
	}
	var out struct {
		Tab int `json:"tab"`
	}
	if err := decodeData(res, &out); err != nil {
		return 0, err
	}
	return out.Tab, nil
}

// SwitchTab activates the tab at index.
func (s *Session) SwitchTab(ctx context.Context, index int) error {
	_, err := s.Execute(ctx, BrowserCommand{Action: ActionSwitchTab, Tab: index})
	return err
}

// WaitDownload waits for the next finished download and renames it to name when set.
func (s *Session) WaitDownload(ctx context.Context, name string, timeout time.Duration) (*Download, error) {
	res, err := s.Execute(ctx, BrowserCommand{Action: ActionWaitDownload, Value: name, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	var dl Download
	if err := decodeData(res, &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

// Close closes the session.
func (s *Session) Close() error {
	return s.browser.Close()
}

func decodeData(res *BrowserResult, v any) error {
	if res == nil || len(res.Data) == 0 {
		return errors.New("browser returned no data")
	}
	if err := json.Unmarshal(res.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", res.Action, err)
	}
	return nil
}
