package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeDPDriver 基于 chromedp 的底层浏览器驱动，管理标签页、下载与请求拦截
type ChromeDPDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context // 第一个标签页，关闭即关闭浏览器
	cancel      context.CancelFunc

	config      BrowserConfig
	blocklist   *Blocklist
	downloads   *downloadTracker
	downloadDir string
	onBlocked   func(host string)
	logger      *zap.Logger

	mu      sync.Mutex
	tabs    []*tab
	current int
	mouse   Point
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeDPDriverOption 配置选项
type ChromeDPDriverOption func(*ChromeDPDriver)

// WithBlockedHook 设置请求被拦截时的回调
func WithBlockedHook(fn func(host string)) ChromeDPDriverOption {
	return func(d *ChromeDPDriver) { d.onBlocked = fn }
}

// NewChromeDPDriver 创建 chromedp 驱动并打开第一个标签页
func NewChromeDPDriver(config BrowserConfig, logger *zap.Logger, opts ...ChromeDPDriverOption) (*ChromeDPDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	downloadDir := config.DownloadDir
	if downloadDir == "" {
		downloadDir = DefaultBrowserConfig().DownloadDir
	}
	downloadDir, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("invalid download dir: %w", err)
	}
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(config.ProxyURL))
	}
	if config.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	d := &ChromeDPDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		blocklist:   NewBlocklist(config.BlockedDomains),
		downloads:   newDownloadTracker(downloadDir),
		downloadDir: downloadDir,
		logger:      logger.With(zap.String("component", "chromedp_driver")),
	}
	for _, opt := range opts {
		opt(d)
	}

	// 启动浏览器
	if err := d.setupTab(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	d.tabs = []*tab{{ctx: ctx, cancel: cancel}}

	d.logger.Info("chromedp browser started",
		zap.Bool("headless", config.Headless),
		zap.Int("viewport_w", config.ViewportWidth),
		zap.Int("viewport_h", config.ViewportHeight),
		zap.String("download_dir", downloadDir),
		zap.Int("blocked_domains", len(d.blocklist.Domains())))

	return d, nil
}

// setupTab 为标签页设置视口、下载行为与请求拦截
func (d *ChromeDPDriver) setupTab(ctx context.Context) error {
	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev := ev.(type) {
		case *fetch.EventRequestPaused:
			go d.handlePaused(ctx, ev)
		case *cdpbrowser.EventDownloadWillBegin:
			d.logger.Debug("download started",
				zap.String("guid", ev.GUID),
				zap.String("filename", ev.SuggestedFilename))
			d.downloads.begin(ev.GUID, ev.SuggestedFilename)
		case *cdpbrowser.EventDownloadProgress:
			d.downloads.progress(ev.GUID, ev.State)
		}
	})

	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(d.config.ViewportWidth), int64(d.config.ViewportHeight)),
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(d.downloadDir).
			WithEventsEnabled(true),
	}
	if !d.blocklist.Empty() {
		actions = append(actions, fetch.Enable())
	}
	return chromedp.Run(ctx, actions...)
}

func (d *ChromeDPDriver) handlePaused(tabCtx context.Context, ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(tabCtx, c.Target)

	host := ""
	if ev.Request != nil {
		if u, err := url.Parse(ev.Request.URL); err == nil {
			host = u.Hostname()
		}
	}

	if host != "" && d.blocklist.BlockedHost(host) {
		d.logger.Warn("blocked request", zap.String("host", host))
		if d.onBlocked != nil {
			d.onBlocked(host)
		}
		if err := fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx); err != nil {
			d.logger.Debug("fail request", zap.Error(err))
		}
		return
	}
	if err := fetch.ContinueRequest(ev.RequestID).Do(ctx); err != nil {
		d.logger.Debug("continue request", zap.Error(err))
	}
}

func (d *ChromeDPDriver) currentTab() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tabs[d.current].ctx
}

// run 在当前标签页上执行动作；ctx 取消时中止动作但不关闭标签页
func (d *ChromeDPDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.currentTab())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if timeout <= 0 {
		timeout = d.config.Timeout
	}
	if timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, timeout)
		defer tcancel()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ============================================================
// 导航
// ============================================================

// Navigate 导航到 URL，被屏蔽的域名直接拒绝
func (d *ChromeDPDriver) Navigate(ctx context.Context, rawURL string) error {
	if err := d.blocklist.CheckURL(rawURL); err != nil {
		if d.onBlocked != nil {
			if u, perr := url.Parse(rawURL); perr == nil {
				d.onBlocked(u.Hostname())
			}
		}
		return err
	}
	d.logger.Debug("navigating", zap.String("url", rawURL))
	return d.run(ctx, 0, chromedp.Navigate(rawURL))
}

// Back 后退
func (d *ChromeDPDriver) Back(ctx context.Context) error {
	return d.run(ctx, 0, chromedp.NavigateBack())
}

// Forward 前进
func (d *ChromeDPDriver) Forward(ctx context.Context) error {
	return d.run(ctx, 0, chromedp.NavigateForward())
}

// Refresh 刷新
func (d *ChromeDPDriver) Refresh(ctx context.Context) error {
	return d.run(ctx, 0, chromedp.Reload())
}

// GetURL 获取当前 URL
func (d *ChromeDPDriver) GetURL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, 0, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("failed to get URL: %w", err)
	}
	return u, nil
}

// GetTitle 获取页面标题
func (d *ChromeDPDriver) GetTitle(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, 0, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to get title: %w", err)
	}
	return title, nil
}

// ============================================================
// 截图
// ============================================================

// Screenshot 截取当前视口；fullPage 时截取整页
func (d *ChromeDPDriver) Screenshot(ctx context.Context, fullPage bool) (*Screenshot, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := d.run(ctx, 0, action); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	currentURL, err := d.GetURL(ctx)
	if err != nil {
		currentURL = "unknown"
	}

	shot, err := NewScreenshot(buf, currentURL)
	if err != nil {
		return &Screenshot{
			Data:      buf,
			Width:     d.config.ViewportWidth,
			Height:    d.config.ViewportHeight,
			Timestamp: time.Now(),
			URL:       currentURL,
		}, nil
	}
	return shot, nil
}

// ============================================================
// 鼠标与键盘
// ============================================================

// ClickAt 在坐标处点击；back/forward 按键映射为历史导航，wheel 映射为滚轮
func (d *ChromeDPDriver) ClickAt(ctx context.Context, x, y int, button MouseButton) error {
	d.logger.Debug("clicking", zap.Int("x", x), zap.Int("y", y), zap.String("button", string(button)))

	switch button {
	case ButtonBack:
		return d.Back(ctx)
	case ButtonForward:
		return d.Forward(ctx)
	case ButtonWheel:
		pos := d.mousePosition()
		return d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseWheel, float64(pos.X), float64(pos.Y)).
				WithDeltaX(float64(x)).
				WithDeltaY(float64(y)).Do(ctx)
		}))
	}

	btn := input.Left
	if button == ButtonRight {
		btn = input.Right
	}
	d.setMouse(x, y)
	return d.run(ctx, 0, chromedp.MouseClickXY(float64(x), float64(y), chromedp.ButtonType(btn)))
}

// DoubleClickAt 在坐标处双击
func (d *ChromeDPDriver) DoubleClickAt(ctx context.Context, x, y int) error {
	d.setMouse(x, y)
	return d.run(ctx, 0, chromedp.MouseClickXY(float64(x), float64(y), chromedp.ClickCount(2)))
}

// Move 移动鼠标
func (d *ChromeDPDriver) Move(ctx context.Context, x, y int) error {
	d.setMouse(x, y)
	return d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)).Do(ctx)
	}))
}

// Scroll 将鼠标移至 (x, y) 后按 (deltaX, deltaY) 滚动窗口
func (d *ChromeDPDriver) Scroll(ctx context.Context, x, y, deltaX, deltaY int) error {
	d.logger.Debug("scrolling", zap.Int("deltaX", deltaX), zap.Int("deltaY", deltaY))
	d.setMouse(x, y)
	return d.run(ctx, 0,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)).Do(ctx)
		}),
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", deltaX, deltaY), nil),
	)
}

// Drag 按住左键沿路径拖动
func (d *ChromeDPDriver) Drag(ctx context.Context, path []Point) error {
	if len(path) == 0 {
		return nil
	}
	last := path[len(path)-1]
	d.setMouse(last.X, last.Y)
	return d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		start := path[0]
		if err := input.DispatchMouseEvent(input.MouseMoved, float64(start.X), float64(start.Y)).Do(ctx); err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MousePressed, float64(start.X), float64(start.Y)).
			WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		for _, p := range path[1:] {
			if err := input.DispatchMouseEvent(input.MouseMoved, float64(p.X), float64(p.Y)).
				WithButton(input.Left).Do(ctx); err != nil {
				return err
			}
		}
		return input.DispatchMouseEvent(input.MouseReleased, float64(last.X), float64(last.Y)).
			WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
}

// Type 向当前焦点逐字符输入文本
func (d *ChromeDPDriver) Type(ctx context.Context, text string) error {
	d.logger.Debug("typing", zap.Int("length", len(text)))
	return d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ch := range text {
			if err := input.DispatchKeyEvent(input.KeyChar).
				WithText(string(ch)).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Keypress 按下组合键，例如 ["ctrl", "enter"]
func (d *ChromeDPDriver) Keypress(ctx context.Context, keys []string) error {
	chord := MapKeys(keys)
	if chord.Keys == "" {
		return nil
	}
	return d.run(ctx, 0, chromedp.KeyEvent(chord.Keys, chromedp.KeyModifiers(chord.Modifiers...)))
}

func (d *ChromeDPDriver) setMouse(x, y int) {
	d.mu.Lock()
	d.mouse = Point{X: x, Y: y}
	d.mu.Unlock()
}

func (d *ChromeDPDriver) mousePosition() Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mouse
}

// ============================================================
// 元素操作
// ============================================================

func queryOpts(loc Locator) []chromedp.QueryOption {
	if loc.Strategy == StrategyXPath {
		return []chromedp.QueryOption{chromedp.BySearch}
	}
	return []chromedp.QueryOption{chromedp.ByQuery}
}

// ClickElement 点击元素
func (d *ChromeDPDriver) ClickElement(ctx context.Context, selector string, timeout time.Duration) error {
	loc, err := ParseLocator(selector)
	if err != nil {
		return err
	}
	return d.run(ctx, timeout, chromedp.Click(loc.Query, queryOpts(loc)...))
}

// DoubleClickElement 双击元素
func (d *ChromeDPDriver) DoubleClickElement(ctx context.Context, selector string, timeout time.Duration) error {
	loc, err := ParseLocator(selector)
	if err != nil {
		return err
	}
	return d.run(ctx, timeout, chromedp.DoubleClick(loc.Query, queryOpts(loc)...))
}

// TypeInto 聚焦元素后追加输入
func (d *ChromeDPDriver) TypeInto(ctx context.Context, selector, text string, timeout time.Duration) error {
	loc, err := ParseLocator(selector)
	if err != nil {
		return err
	}
	return d.run(ctx, timeout, chromedp.SendKeys(loc.Query, text, queryOpts(loc)...))
}

// Fill 清空元素后输入
func (d *ChromeDPDriver) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	loc, err := ParseLocator(selector)
	if err != nil {
		return err
	}
	return d.run(ctx, timeout,
		chromedp.Clear(loc.Query, queryOpts(loc)...),
		chromedp.SendKeys(loc.Query, text, queryOpts(loc)...),
	)
}

// WaitVisible 等待元素可见
func (d *ChromeDPDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	loc, err := ParseLocator(selector)
	if err != nil {
		return err
	}
	err = d.run(ctx, timeout, chromedp.WaitVisible(loc.Query, queryOpts(loc)...))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return err
}

// Text 读取元素可见文本，默认 body
func (d *ChromeDPDriver) Text(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		selector = "body"
	}
	loc, err := ParseLocator(selector)
	if err != nil {
		return "", err
	}
	var text string
	if err := d.run(ctx, 0, chromedp.Text(loc.Query, &text, queryOpts(loc)...)); err != nil {
		return "", err
	}
	return text, nil
}

// HTML 读取元素外层 HTML，默认整个文档
func (d *ChromeDPDriver) HTML(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		selector = "html"
	}
	loc, err := ParseLocator(selector)
	if err != nil {
		return "", err
	}
	var html string
	if err := d.run(ctx, 0, chromedp.OuterHTML(loc.Query, &html, queryOpts(loc)...)); err != nil {
		return "", err
	}
	return html, nil
}

// ElementInfo 读取元素标签、文本、属性、可见性与位置
func (d *ChromeDPDriver) ElementInfo(ctx context.Context, selector string) (*ElementInfo, error) {
	loc, err := ParseLocator(selector)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := d.run(ctx, 0, chromedp.Evaluate(elementInfoScript(loc), &raw)); err != nil {
		return nil, err
	}
	return decodeElementInfo(raw, selector)
}

func decodeElementInfo(raw []byte, selector string) (*ElementInfo, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	var info ElementInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to decode element info: %w", err)
	}
	return &info, nil
}

func elementInfoScript(loc Locator) string {
	q, _ := json.Marshal(loc.Query)
	find := fmt.Sprintf("document.querySelector(%s)", q)
	if loc.Strategy == StrategyXPath {
		find = fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", q)
	}
	return `(() => {
  const el = ` + find + `;
  if (!el) return null;
  const rect = el.getBoundingClientRect();
  const style = window.getComputedStyle(el);
  const attributes = {};
  for (const a of el.attributes) attributes[a.name] = a.value;
  return {
    tag: el.tagName.toLowerCase(),
    text: el.innerText || el.textContent || "",
    html: el.outerHTML,
    attributes: attributes,
    isVisible: rect.width > 0 && rect.height > 0 && style.visibility !== "hidden" && style.display !== "none",
    boundingBox: {x: rect.x, y: rect.y, width: rect.width, height: rect.height}
  };
})()`
}

// ============================================================
// 标签页
// ============================================================

// NewTab 打开新标签页并切换过去；rawURL 为空时停留在空白页
func (d *ChromeDPDriver) NewTab(ctx context.Context, rawURL string) (int, error) {
	if rawURL != "" {
		if err := d.blocklist.CheckURL(rawURL); err != nil {
			return 0, err
		}
	}

	tabCtx, cancel := chromedp.NewContext(d.ctx)
	if err := d.setupTab(tabCtx); err != nil {
		cancel()
		return 0, fmt.Errorf("failed to open tab: %w", err)
	}

	d.mu.Lock()
	d.tabs = append(d.tabs, &tab{ctx: tabCtx, cancel: cancel})
	d.current = len(d.tabs) - 1
	index := d.current
	d.mu.Unlock()

	if err := d.run(ctx, 0, page.BringToFront()); err != nil {
		return index, err
	}
	if rawURL != "" {
		if err := d.run(ctx, 0, chromedp.Navigate(rawURL)); err != nil {
			return index, err
		}
	}
	return index, nil
}

// SwitchTab 切换到指定下标的标签页
func (d *ChromeDPDriver) SwitchTab(ctx context.Context, index int) error {
	d.mu.Lock()
	if index < 0 || index >= len(d.tabs) {
		n := len(d.tabs)
		d.mu.Unlock()
		return fmt.Errorf("%w: %d (have %d)", ErrTabOutOfRange, index, n)
	}
	d.current = index
	d.mu.Unlock()

	return d.run(ctx, 0, page.BringToFront())
}

// Tabs 返回标签页数量与当前下标
func (d *ChromeDPDriver) Tabs() (count, current int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tabs), d.current
}

// ============================================================
// 下载
// ============================================================

// WaitDownload 等待下一个下载完成；name 非空时重命名为 name
func (d *ChromeDPDriver) WaitDownload(ctx context.Context, name string, timeout time.Duration) (Download, error) {
	if timeout <= 0 {
		timeout = d.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	dl, err := d.downloads.wait(ctx)
	if err != nil {
		return dl, err
	}
	return moveDownload(dl, name)
}

// DownloadDir 返回下载目录的绝对路径
func (d *ChromeDPDriver) DownloadDir() string { return d.downloadDir }

// Close 关闭浏览器
func (d *ChromeDPDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("closing chromedp browser")
	for i := len(d.tabs) - 1; i > 0; i-- {
		d.tabs[i].cancel()
	}
	d.cancel()
	d.allocCancel()
	return nil
}
