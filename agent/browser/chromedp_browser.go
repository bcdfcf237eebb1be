package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChromeDPBrowser 实现 Browser 接口
type ChromeDPBrowser struct {
	driver *ChromeDPDriver
	config BrowserConfig
	logger *zap.Logger
	mu     sync.Mutex
}

// NewChromeDPBrowser 创建 ChromeDPBrowser
func NewChromeDPBrowser(config BrowserConfig, logger *zap.Logger, opts ...ChromeDPDriverOption) (*ChromeDPBrowser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := NewChromeDPDriver(config, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &ChromeDPBrowser{
		driver: driver,
		config: config,
		logger: logger,
	}, nil
}

// Driver 返回底层驱动
func (b *ChromeDPBrowser) Driver() *ChromeDPDriver { return b.driver }

// Execute 执行浏览器命令
func (b *ChromeDPBrowser) Execute(ctx context.Context, cmd BrowserCommand) (*BrowserResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	result := &BrowserResult{
		Action: cmd.Action,
	}

	var data any
	var err error
	d := b.driver

	switch cmd.Action {
	case ActionNavigate:
		err = d.Navigate(ctx, cmd.Value)
	case ActionClick:
		if cmd.Selector != "" {
			err = d.ClickElement(ctx, cmd.Selector, cmd.Timeout)
		} else {
			err = d.ClickAt(ctx, cmd.X, cmd.Y, cmd.Button)
		}
	case ActionDoubleClick:
		if cmd.Selector != "" {
			err = d.DoubleClickElement(ctx, cmd.Selector, cmd.Timeout)
		} else {
			err = d.DoubleClickAt(ctx, cmd.X, cmd.Y)
		}
	case ActionType:
		if cmd.Selector != "" {
			err = d.TypeInto(ctx, cmd.Selector, cmd.Value, cmd.Timeout)
		} else {
			err = d.Type(ctx, cmd.Value)
		}
	case ActionFill:
		err = d.Fill(ctx, cmd.Selector, cmd.Value, cmd.Timeout)
	case ActionKeypress:
		err = d.Keypress(ctx, cmd.Keys)
	case ActionScroll:
		err = d.Scroll(ctx, cmd.X, cmd.Y, cmd.DeltaX, cmd.DeltaY)
	case ActionMove:
		err = d.Move(ctx, cmd.X, cmd.Y)
	case ActionDrag:
		err = d.Drag(ctx, cmd.Path)
	case ActionScreenshot:
		shot, sErr := d.Screenshot(ctx, cmd.Options["full_page"] == "true")
		if sErr != nil {
			err = sErr
		} else {
			result.Screenshot = shot.Data
			data = map[string]int{"width": shot.Width, "height": shot.Height}
		}
	case ActionWait:
		if cmd.Selector != "" {
			err = d.WaitVisible(ctx, cmd.Selector, cmd.Timeout)
		} else {
			err = sleep(ctx, cmd.Timeout)
		}
	case ActionExtract:
		var text string
		if text, err = d.Text(ctx, cmd.Selector); err == nil {
			data = map[string]string{"text": text}
		}
	case ActionHTML:
		var html string
		if html, err = d.HTML(ctx, cmd.Selector); err == nil {
			data = map[string]string{"html": html}
		}
	case ActionElementInfo:
		var info *ElementInfo
		if info, err = d.ElementInfo(ctx, cmd.Selector); err == nil {
			data = info
		}
	case ActionBack:
		err = d.Back(ctx)
	case ActionForward:
		err = d.Forward(ctx)
	case ActionRefresh:
		err = d.Refresh(ctx)
	case ActionNewTab:
		var index int
		if index, err = d.NewTab(ctx, cmd.Value); err == nil {
			data = map[string]int{"tab": index}
		}
	case ActionSwitchTab:
		if err = d.SwitchTab(ctx, cmd.Tab); err == nil {
			data = map[string]int{"tab": cmd.Tab}
		}
	case ActionWaitDownload:
		var dl Download
		if dl, err = d.WaitDownload(ctx, cmd.Value, cmd.Timeout); err == nil {
			data = dl
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Action)
	}

	if err == nil && data != nil {
		result.Data, err = json.Marshal(data)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		if b.config.ScreenshotOnError {
			if ss, ssErr := d.Screenshot(ctx, false); ssErr == nil {
				result.Screenshot = ss.Data
			}
		}
		return result, err
	}

	result.Success = true
	if u, urlErr := d.GetURL(ctx); urlErr == nil {
		result.URL = u
	}

	return result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetState 获取页面状态
func (b *ChromeDPBrowser) GetState(ctx context.Context) (*PageState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := &PageState{}
	state.Tabs, state.TabIndex = b.driver.Tabs()

	// 获取 URL
	if u, err := b.driver.GetURL(ctx); err == nil {
		state.URL = u
	}

	// 获取 Title
	if title, err := b.driver.GetTitle(ctx); err == nil {
		state.Title = title
	}

	// 获取页面 HTML 内容
	if content, err := b.driver.HTML(ctx, ""); err == nil {
		// 截断过长内容
		if len(content) > 10000 {
			content = content[:10000] + "..."
		}
		state.Content = content
	}

	return state, nil
}

// Close 关闭浏览器
func (b *ChromeDPBrowser) Close() error {
	return b.driver.Close()
}
