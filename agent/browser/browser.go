// Package browser provides browser automation capabilities for UI agents.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Common errors
var (
	ErrBlockedURL         = errors.New("url is blocked")
	ErrTabOutOfRange      = errors.New("tab index out of range")
	ErrDownloadTimeout    = errors.New("download did not complete in time")
	ErrElementNotFound    = errors.New("element not found")
	ErrUnsupportedCommand = errors.New("unsupported browser command")
)

// Action represents a browser action type.
type Action string

const (
	ActionNavigate     Action = "navigate"
	ActionClick        Action = "click"
	ActionDoubleClick  Action = "double_click"
	ActionType         Action = "type"
	ActionKeypress     Action = "keypress"
	ActionScroll       Action = "scroll"
	ActionDrag         Action = "drag"
	ActionMove         Action = "move"
	ActionScreenshot   Action = "screenshot"
	ActionExtract      Action = "extract"
	ActionWait         Action = "wait"
	ActionBack         Action = "back"
	ActionForward      Action = "forward"
	ActionRefresh      Action = "refresh"
	ActionFill         Action = "fill"
	ActionHTML         Action = "html"
	ActionElementInfo  Action = "element_info"
	ActionNewTab       Action = "new_tab"
	ActionSwitchTab    Action = "switch_tab"
	ActionWaitDownload Action = "wait_download"
)

// MouseButton names the button used by coordinate clicks.
// back and forward navigate history; wheel scrolls by (X, Y).
type MouseButton string

const (
	ButtonLeft    MouseButton = "left"
	ButtonRight   MouseButton = "right"
	ButtonBack    MouseButton = "back"
	ButtonForward MouseButton = "forward"
	ButtonWheel   MouseButton = "wheel"
)

// Point is a viewport coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BrowserCommand represents a command to execute in the browser.
type BrowserCommand struct {
	Action   Action `json:"action"`
	Selector string `json:"selector,omitempty"` // locator, see ParseLocator
	Value    string `json:"value,omitempty"`    // For type, fill, navigate, new_tab, wait_download

	// Coordinates for click, double_click, scroll, move.
	X      int         `json:"x,omitempty"`
	Y      int         `json:"y,omitempty"`
	Button MouseButton `json:"button,omitempty"`

	// Scroll offsets.
	DeltaX int `json:"delta_x,omitempty"`
	DeltaY int `json:"delta_y,omitempty"`

	Keys []string `json:"keys,omitempty"` // keypress chord
	Path []Point  `json:"path,omitempty"` // drag path
	Tab  int      `json:"tab,omitempty"`  // switch_tab index

	// Timeout bounds wait and wait_download; for wait without a selector it is
	// the sleep duration.
	Timeout time.Duration     `json:"timeout,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// BrowserResult represents the result of a browser command.
type BrowserResult struct {
	Success    bool            `json:"success"`
	Action     Action          `json:"action"`
	Data       json.RawMessage `json:"data,omitempty"`
	Screenshot []byte          `json:"screenshot,omitempty"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
	URL        string          `json:"url,omitempty"`
	Title      string          `json:"title,omitempty"`
}

// PageState represents the current state of a browser page.
type PageState struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"` // truncated outer HTML
	Tabs     int    `json:"tabs"`
	TabIndex int    `json:"tab_index"`
}

// ElementInfo describes one element as seen by the page.
type ElementInfo struct {
	Tag         string            `json:"tag"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Visible     bool              `json:"isVisible"`
	BoundingBox *BoundingBox      `json:"boundingBox,omitempty"`
}

// BoundingBox represents element position and size.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BrowserConfig configures the browser automation.
type BrowserConfig struct {
	Headless          bool          `json:"headless"`
	Timeout           time.Duration `json:"timeout"`
	ViewportWidth     int           `json:"viewport_width"`
	ViewportHeight    int           `json:"viewport_height"`
	UserAgent         string        `json:"user_agent,omitempty"`
	ProxyURL          string        `json:"proxy_url,omitempty"`
	ExecPath          string        `json:"exec_path,omitempty"`
	DownloadDir       string        `json:"download_dir"`
	BlockedDomains    []string      `json:"blocked_domains,omitempty"`
	ScreenshotOnError bool          `json:"screenshot_on_error"`
	ActionsPerSecond  float64       `json:"actions_per_second,omitempty"`
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1024,
		ViewportHeight: 768,
		DownloadDir:    "./downloads",
	}
}

// Browser defines the interface for browser automation.
type Browser interface {
	// Execute runs a browser command.
	Execute(ctx context.Context, cmd BrowserCommand) (*BrowserResult, error)
	// GetState returns the current page state.
	GetState(ctx context.Context) (*PageState, error)
	// Close closes the browser.
	Close() error
}
