// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 选择器记忆指标
	selectorLookups *prometheus.CounterVec
	selectorUpdates *prometheus.CounterVec

	// 交互指标
	interactionsTotal   *prometheus.CounterVec
	interactionDuration *prometheus.HistogramVec
	selectorAttempts    *prometheus.HistogramVec

	// 浏览器指标
	browserActionsTotal   *prometheus.CounterVec
	browserActionDuration *prometheus.HistogramVec
	blockedRequests       *prometheus.CounterVec
	downloadsTotal        *prometheus.CounterVec

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 选择器记忆指标
	c.selectorLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selector_lookups_total",
			Help:      "Total number of selector memory lookups",
		},
		[]string{"agent", "result"}, // result: hit, miss
	)

	c.selectorUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selector_updates_total",
			Help:      "Total number of selector memory updates",
		},
		[]string{"agent", "outcome"}, // outcome: success, failure
	)

	// 交互指标
	c.interactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Total number of memory-driven element interactions",
		},
		[]string{"agent", "page", "action", "status"},
	)

	c.interactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_duration_seconds",
			Help:      "Element interaction duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"agent", "action"},
	)

	c.selectorAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_selector_attempts",
			Help:      "Number of candidate selectors tried per interaction",
			Buckets:   []float64{1, 2, 3, 4, 6, 8},
		},
		[]string{"agent"},
	)

	// 浏览器指标
	c.browserActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_actions_total",
			Help:      "Total number of browser actions",
		},
		[]string{"action", "status"},
	)

	c.browserActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "browser_action_duration_seconds",
			Help:      "Browser action duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	c.blockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_blocked_requests_total",
			Help:      "Total number of requests refused by the domain blocklist",
		},
		[]string{"host"},
	)

	c.downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_downloads_total",
			Help:      "Total number of browser downloads",
		},
		[]string{"status"},
	)

	// LLM 指标
	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🧠 选择器记忆指标记录
// =============================================================================

// ObserveSelectorLookup 记录选择器查询，实现 memory.Observer
func (c *Collector) ObserveSelectorLookup(agent string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.selectorLookups.WithLabelValues(agent, result).Inc()
}

// ObserveSelectorUpdate 记录选择器更新，实现 memory.Observer
func (c *Collector) ObserveSelectorUpdate(agent string, success bool) {
	c.selectorUpdates.WithLabelValues(agent, outcomeLabel(success)).Inc()
}

// =============================================================================
// 🖱️ 交互指标记录
// =============================================================================

// RecordInteraction 记录一次元素交互
func (c *Collector) RecordInteraction(agent, page, action string, success bool, attempts int, duration time.Duration) {
	c.interactionsTotal.WithLabelValues(agent, page, action, outcomeLabel(success)).Inc()
	c.interactionDuration.WithLabelValues(agent, action).Observe(duration.Seconds())
	c.selectorAttempts.WithLabelValues(agent).Observe(float64(attempts))
}

// =============================================================================
// 🌐 浏览器指标记录
// =============================================================================

// RecordBrowserAction 记录浏览器动作
func (c *Collector) RecordBrowserAction(action string, success bool, duration time.Duration) {
	c.browserActionsTotal.WithLabelValues(action, outcomeLabel(success)).Inc()
	c.browserActionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordBlockedRequest 记录被拦截的请求
func (c *Collector) RecordBlockedRequest(host string) {
	c.blockedRequests.WithLabelValues(host).Inc()
}

// RecordDownload 记录下载结果
func (c *Collector) RecordDownload(success bool) {
	c.downloadsTotal.WithLabelValues(outcomeLabel(success)).Inc()
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
