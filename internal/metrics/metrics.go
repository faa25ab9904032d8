// Package metrics provides metrics collection and reporting for the MCP server.
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "cloudwatch_logs_mcp"

// Prometheus metric labels
const (
	labelTool      = "tool"
	labelOperation = "operation"
	labelStatus    = "status"
)

// Metrics tracks operational metrics with both internal counters and Prometheus metrics
type Metrics struct {
	// AWS API request metrics
	totalRequests      atomic.Uint64
	successfulRequests atomic.Uint64
	failedRequests     atomic.Uint64

	totalLatency atomic.Int64 // microseconds
	latencyCount atomic.Uint64
	maxLatency   atomic.Int64

	rateLimitWaits atomic.Uint64
	retries        atomic.Uint64

	// Logs Insights polling
	queryPolls    atomic.Uint64
	pollTimeouts  atomic.Uint64
	queriesIssued atomic.Uint64

	errorsMu       sync.RWMutex
	errorsByStatus map[int]uint64

	toolsMu     sync.RWMutex
	toolUsage   map[string]uint64
	toolErrors  map[string]uint64
	toolLatency map[string]int64 // microseconds, rolling average

	logger   *zap.Logger
	registry *prometheus.Registry

	promRequests       *prometheus.CounterVec
	promRequestLatency *prometheus.HistogramVec
	promRateLimitWaits prometheus.Counter
	promRetries        prometheus.Counter
	promQueries        prometheus.Counter
	promQueryPolls     prometheus.Counter
	promPollTimeouts   prometheus.Counter
	promToolCalls      *prometheus.CounterVec
	promToolErrors     *prometheus.CounterVec
	promToolLatency    *prometheus.HistogramVec
}

// New creates a metrics tracker backed by its own Prometheus registry.
func New(logger *zap.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		errorsByStatus: make(map[int]uint64),
		toolUsage:      make(map[string]uint64),
		toolErrors:     make(map[string]uint64),
		toolLatency:    make(map[string]int64),
		logger:         logger,
		registry:       reg,

		promRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aws_requests_total",
			Help:      "CloudWatch Logs API requests, labeled by operation and HTTP status (0 when no response)",
		}, []string{labelOperation, labelStatus}),
		promRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aws_request_latency_seconds",
			Help:      "CloudWatch Logs API latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{labelOperation}),
		promRateLimitWaits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Requests delayed by the client side rate limiter",
		}),
		promRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aws_retries_total",
			Help:      "CloudWatch Logs API attempts retried by the SDK retryer",
		}),
		promQueries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_queries_started_total",
			Help:      "Logs Insights queries started",
		}),
		promQueryPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_query_polls_total",
			Help:      "GetQueryResults calls made while waiting for a query",
		}),
		promPollTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_poll_timeouts_total",
			Help:      "Queries that did not finish within the poll budget",
		}),
		promToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls, labeled by tool name",
		}, []string{labelTool}),
		promToolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_errors_total",
			Help:      "Total number of tool errors, labeled by tool name",
		}, []string{labelTool}),
		promToolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_latency_seconds",
			Help:      "Tool execution latency in seconds, labeled by tool name",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~160s
		}, []string{labelTool}),
	}
}

// Registry returns the registry to serve with promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one CloudWatch Logs API call
func (m *Metrics) RecordRequest(operation string, success bool, latency time.Duration, statusCode int) {
	m.totalRequests.Add(1)
	m.promRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	m.promRequestLatency.WithLabelValues(operation).Observe(latency.Seconds())

	if success {
		m.successfulRequests.Add(1)
	} else {
		m.failedRequests.Add(1)
		if statusCode != 0 {
			m.errorsMu.Lock()
			m.errorsByStatus[statusCode]++
			m.errorsMu.Unlock()
		}
	}

	latencyUs := latency.Microseconds()
	m.totalLatency.Add(latencyUs)
	m.latencyCount.Add(1)
	for {
		currentMax := m.maxLatency.Load()
		if latencyUs <= currentMax || m.maxLatency.CompareAndSwap(currentMax, latencyUs) {
			break
		}
	}
}

// RecordRateLimitWait records a request that had to wait for a token
func (m *Metrics) RecordRateLimitWait() {
	m.rateLimitWaits.Add(1)
	m.promRateLimitWaits.Inc()
}

// RecordRetry records one retried API attempt
func (m *Metrics) RecordRetry() {
	m.retries.Add(1)
	m.promRetries.Inc()
}

// RecordQueryStarted records a started Logs Insights query
func (m *Metrics) RecordQueryStarted() {
	m.queriesIssued.Add(1)
	m.promQueries.Inc()
}

// RecordQueryPoll records one status fetch of a running query
func (m *Metrics) RecordQueryPoll() {
	m.queryPolls.Add(1)
	m.promQueryPolls.Inc()
}

// RecordPollTimeout records a query that outlived its poll budget
func (m *Metrics) RecordPollTimeout() {
	m.pollTimeouts.Add(1)
	m.promPollTimeouts.Inc()
}

// RecordToolExecution records tool usage (both internal counters and Prometheus)
func (m *Metrics) RecordToolExecution(toolName string, success bool, latency time.Duration) {
	m.toolsMu.Lock()
	m.toolUsage[toolName]++
	if !success {
		m.toolErrors[toolName]++
	}
	count := float64(m.toolUsage[toolName])
	avg := (float64(m.toolLatency[toolName])*(count-1) + float64(latency.Microseconds())) / count
	m.toolLatency[toolName] = int64(avg)
	m.toolsMu.Unlock()

	m.promToolCalls.WithLabelValues(toolName).Inc()
	m.promToolLatency.WithLabelValues(toolName).Observe(latency.Seconds())
	if !success {
		m.promToolErrors.WithLabelValues(toolName).Inc()
	}
}

// Stats represents current metrics
type Stats struct {
	TotalRequests      uint64                   `json:"total_requests"`
	SuccessfulRequests uint64                   `json:"successful_requests"`
	FailedRequests     uint64                   `json:"failed_requests"`
	RateLimitWaits     uint64                   `json:"rate_limit_waits"`
	Retries            uint64                   `json:"retries"`
	QueriesStarted     uint64                   `json:"queries_started"`
	QueryPolls         uint64                   `json:"query_polls"`
	PollTimeouts       uint64                   `json:"poll_timeouts"`
	AverageLatency     time.Duration            `json:"average_latency"`
	MaxLatency         time.Duration            `json:"max_latency"`
	ErrorsByStatus     map[int]uint64           `json:"errors_by_status"`
	ToolUsage          map[string]uint64        `json:"tool_usage"`
	ToolErrors         map[string]uint64        `json:"tool_errors"`
	ToolLatency        map[string]time.Duration `json:"tool_latency"`
}

// GetStats returns current statistics
func (m *Metrics) GetStats() Stats {
	m.errorsMu.RLock()
	errorsByStatus := make(map[int]uint64, len(m.errorsByStatus))
	for k, v := range m.errorsByStatus {
		errorsByStatus[k] = v
	}
	m.errorsMu.RUnlock()

	m.toolsMu.RLock()
	toolUsage := make(map[string]uint64, len(m.toolUsage))
	toolErrors := make(map[string]uint64, len(m.toolErrors))
	toolLatency := make(map[string]time.Duration, len(m.toolLatency))
	for k, v := range m.toolUsage {
		toolUsage[k] = v
	}
	for k, v := range m.toolErrors {
		toolErrors[k] = v
	}
	for k, v := range m.toolLatency {
		toolLatency[k] = time.Duration(v) * time.Microsecond
	}
	m.toolsMu.RUnlock()

	var avgLatency time.Duration
	if n := m.latencyCount.Load(); n > 0 {
		avgLatency = time.Duration(float64(m.totalLatency.Load())/float64(n)) * time.Microsecond
	}

	return Stats{
		TotalRequests:      m.totalRequests.Load(),
		SuccessfulRequests: m.successfulRequests.Load(),
		FailedRequests:     m.failedRequests.Load(),
		RateLimitWaits:     m.rateLimitWaits.Load(),
		Retries:            m.retries.Load(),
		QueriesStarted:     m.queriesIssued.Load(),
		QueryPolls:         m.queryPolls.Load(),
		PollTimeouts:       m.pollTimeouts.Load(),
		AverageLatency:     avgLatency,
		MaxLatency:         time.Duration(m.maxLatency.Load()) * time.Microsecond,
		ErrorsByStatus:     errorsByStatus,
		ToolUsage:          toolUsage,
		ToolErrors:         toolErrors,
		ToolLatency:        toolLatency,
	}
}

// LogStats logs current statistics
func (m *Metrics) LogStats() {
	stats := m.GetStats()

	var errorRate float64
	if stats.TotalRequests > 0 {
		errorRate = float64(stats.FailedRequests) / float64(stats.TotalRequests) * 100
	}

	m.logger.Info("Operational metrics",
		zap.Uint64("total_requests", stats.TotalRequests),
		zap.Uint64("failed_requests", stats.FailedRequests),
		zap.Float64("error_rate_pct", errorRate),
		zap.Uint64("rate_limit_waits", stats.RateLimitWaits),
		zap.Uint64("retries", stats.Retries),
		zap.Uint64("queries_started", stats.QueriesStarted),
		zap.Uint64("poll_timeouts", stats.PollTimeouts),
		zap.Duration("avg_latency", stats.AverageLatency),
		zap.Duration("max_latency", stats.MaxLatency),
		zap.Any("errors_by_status", stats.ErrorsByStatus),
		zap.Any("tool_usage", stats.ToolUsage),
	)
}
