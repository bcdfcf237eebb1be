package metabase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/browser"
	"github.com/BaSui01/uipilot/agent/interaction"
)

// AgentName namespaces the selector memory of the Metabase agent.
const AgentName = "metabase"

// Credential environment variables.
const (
	EnvUsername = "METABASE_USERNAME"
	EnvPassword = "METABASE_PASSWORD"
)

// ErrMissingCredentials is returned when no username or password is available.
var ErrMissingCredentials = errors.New("metabase credentials are required: set METABASE_USERNAME and METABASE_PASSWORD")

// Config 配置 Metabase 智能体
type Config struct {
	URL             string        `json:"url" yaml:"url"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"-" yaml:"password"`
	Database        string        `json:"database" yaml:"database"`
	DownloadDir     string        `json:"download_dir" yaml:"download_dir"`
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout"`
	QueryTimeout    time.Duration `json:"query_timeout" yaml:"query_timeout"`
	LoginTimeout    time.Duration `json:"login_timeout" yaml:"login_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		URL:             "http://localhost:3000",
		Database:        "Sample Database",
		DownloadDir:     "./downloads",
		DownloadTimeout: 60 * time.Second,
		QueryTimeout:    60 * time.Second,
		LoginTimeout:    5 * time.Second,
	}
}

// WithEnvCredentials fills missing credentials from METABASE_USERNAME / METABASE_PASSWORD.
func (c Config) WithEnvCredentials() Config {
	if c.Username == "" {
		c.Username = os.Getenv(EnvUsername)
	}
	if c.Password == "" {
		c.Password = os.Getenv(EnvPassword)
	}
	return c
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if c.URL == "" {
		return errors.New("metabase url is required")
	}
	return nil
}

// Browser is the part of browser.Session the agent drives directly.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Keypress(ctx context.Context, keys ...string) error
	TypeText(ctx context.Context, text string) error
	Sleep(ctx context.Context, d time.Duration) error
	WaitDownload(ctx context.Context, name string, timeout time.Duration) (*browser.Download, error)
}

// Option 配置 Agent
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides time.Now, used for result file names.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSettleDelay sets the pause after navigation and key-driven steps.
func WithSettleDelay(d time.Duration) Option {
	return func(a *Agent) { a.settle = d }
}

// Agent runs SQL questions in Metabase and downloads the results as CSV.
type Agent struct {
	cfg        Config
	browser    Browser
	interactor *interaction.Interactor
	now        func() time.Time
	settle     time.Duration
	logger     *zap.Logger
}

// New creates an Agent. interactor must be backed by the same browser and a
// Resolver that includes DefaultSelectors.
func New(cfg Config, b Browser, interactor *interaction.Interactor, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defaults := DefaultConfig()
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaults.DownloadTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaults.QueryTimeout
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = defaults.LoginTimeout
	}

	a := &Agent{
		cfg:        cfg,
		browser:    b,
		interactor: interactor,
		now:        time.Now,
		settle:     time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "metabase_agent"))
	return a, nil
}

// ResultFileName 返回下载结果的文件名
func ResultFileName(t time.Time) string {
	return "metabase_query_result_" + t.Format("20060102_150405") + ".csv"
}

// RunQueryAndDownload logs in when needed, runs sql against database (the
// configured one when empty) and returns the path of the downloaded CSV.
func (a *Agent) RunQueryAndDownload(ctx context.Context, sql, database string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", errors.New("sql query is empty")
	}
	if database == "" {
		database = a.cfg.Database
	}

	a.logger.Info("running metabase query",
		zap.String("url", a.cfg.URL),
		zap.String("database", database))

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"open", a.open},
		{"login", a.login},
		{"new question", a.newQuestion},
		{"select database", func(ctx context.Context) error { return a.selectDatabase(ctx, database) }},
		{"run query", func(ctx context.Context) error { return a.runQuery(ctx, sql) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return "", fmt.Errorf("metabase %s: %w", step.name, err)
		}
	}

	path, err := a.download(ctx)
	if err != nil {
		return "", fmt.Errorf("metabase download: %w", err)
	}
	a.logger.Info("metabase results downloaded", zap.String("path", path))
	return path, nil
}

func (a *Agent) open(ctx context.Context) error {
	if err := a.browser.Navigate(ctx, a.cfg.URL); err != nil {
		return err
	}
	return a.pause(ctx)
}

// login fills the login form when it is shown; an existing session skips it.
func (a *Agent) login(ctx context.Context) error {
	_, visible, err := a.interactor.Visible(ctx, PageLogin, ElementEmail, a.cfg.LoginTimeout)
	if err != nil {
		return err
	}
	if !visible {
		a.logger.Debug("login form not shown, assuming an active session")
		return nil
	}

	if _, err := a.interactor.Fill(ctx, PageLogin, ElementEmail, a.cfg.Username); err != nil {
		return err
	}
	if _, err := a.interactor.Fill(ctx, PageLogin, ElementPassword, a.cfg.Password); err != nil {
		return err
	}
	if _, err := a.interactor.Click(ctx, PageLogin, ElementLoginButton); err != nil {
		// Enter submits the form as well
		a.logger.Debug("login button not found, submitting with enter", zap.Error(err))
		if kerr := a.browser.Keypress(ctx, "enter"); kerr != nil {
			return kerr
		}
	}
	return a.pause(ctx)
}

func (a *Agent) newQuestion(ctx context.Context) error {
	if _, err := a.interactor.Click(ctx, PageHome, ElementNewButton); err != nil {
		return err
	}
	_, err := a.interactor.Click(ctx, PageNewMenu, ElementSQLQuery)
	return err
}

func (a *Agent) selectDatabase(ctx context.Context, database string) error {
	in := a.interactor.WithDefaults(databaseDefaults(database))

	// a single-database instance opens the editor without a picker
	if _, visible, err := in.Visible(ctx, PageEditor, ElementDatabasePicker, 0); err != nil {
		return err
	} else if !visible {
		a.logger.Debug("no database picker shown")
		return nil
	}
	if _, err := in.Click(ctx, PageEditor, ElementDatabasePicker); err != nil {
		return err
	}
	_, err := in.Click(ctx, PageDatabase, DatabaseOption(database))
	return err
}

func (a *Agent) runQuery(ctx context.Context, sql string) error {
	if _, err := a.interactor.Click(ctx, PageEditor, ElementEditor); err != nil {
		return err
	}
	for _, keys := range [][]string{{"ctrl", "a"}, {"delete"}} {
		if err := a.browser.Keypress(ctx, keys...); err != nil {
			return err
		}
	}
	if err := a.browser.TypeText(ctx, sql); err != nil {
		return err
	}
	if err := a.browser.Keypress(ctx, "ctrl", "enter"); err != nil {
		return err
	}

	// 等待结果区域出现下载按钮
	_, ready, err := a.interactor.Visible(ctx, PageResults, ElementDownload, a.cfg.QueryTimeout)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("query results did not appear within %s", a.cfg.QueryTimeout)
	}
	return nil
}

func (a *Agent) download(ctx context.Context) (string, error) {
	if _, err := a.interactor.Click(ctx, PageResults, ElementDownload); err != nil {
		return "", err
	}
	if _, err := a.interactor.Click(ctx, PageResults, ElementCSV); err != nil {
		return "", err
	}

	name := ResultFileName(a.now())
	dl, err := a.browser.WaitDownload(ctx, name, a.cfg.DownloadTimeout)
	if err != nil {
		return "", err
	}
	return a.place(dl.Path, name)
}

// place moves the file into the configured download dir when the browser saved it elsewhere.
func (a *Agent) place(path, name string) (string, error) {
	if a.cfg.DownloadDir == "" {
		return path, nil
	}
	dir, err := filepath.Abs(a.cfg.DownloadDir)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	if src, err := filepath.Abs(path); err == nil && src == dst {
		return dst, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("failed to move download: %w", err)
	}
	return dst, nil
}

func (a *Agent) pause(ctx context.Context) error {
	if a.settle <= 0 {
		return nil
	}
	return a.browser.Sleep(ctx, a.settle)
}
