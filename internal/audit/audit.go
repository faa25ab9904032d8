// Package audit records tool executions for debugging and usage review.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/tracing"
)

// DefaultCapacity is the number of entries kept in memory.
const DefaultCapacity = 1000

// Entry represents a single audit log entry
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
	SpanID    string    `json:"span_id,omitempty"`
	Tool      string    `json:"tool"`
	Category  string    `json:"category,omitempty"` // discovery, query, analysis, documentation
	Region    string    `json:"region,omitempty"`
	// Target is the query id or log group the call acted on, when known.
	Target    string        `json:"target,omitempty"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration_ms"`
	ErrorCode string        `json:"error_code,omitempty"`
	ErrorMsg  string        `json:"error_message,omitempty"`
}

// Logger keeps a bounded ring of recent entries and mirrors them to zap.
type Logger struct {
	enabled bool
	logger  *zap.Logger

	mu       sync.RWMutex
	entries  []Entry
	next     int
	full     bool
	capacity int
}

// NewLogger creates a new audit logger
func NewLogger(logger *zap.Logger, enabled bool) *Logger {
	return NewLoggerWithCapacity(logger, enabled, DefaultCapacity)
}

// NewLoggerWithCapacity creates an audit logger holding at most capacity entries.
func NewLoggerWithCapacity(logger *zap.Logger, enabled bool, capacity int) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Logger{
		enabled:  enabled,
		logger:   logger.Named("audit"),
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Log records an audit entry
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if !l.enabled {
		return
	}

	info := tracing.FromContext(ctx)
	if info.TraceID != "" {
		entry.TraceID = info.TraceID
		entry.SpanID = info.SpanID
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("tool", entry.Tool),
		zap.Bool("success", entry.Success),
		zap.Duration("duration", entry.Duration),
	}
	if entry.TraceID != "" {
		fields = append(fields, zap.String("trace_id", entry.TraceID))
	}
	if entry.Category != "" {
		fields = append(fields, zap.String("category", entry.Category))
	}
	if entry.Region != "" {
		fields = append(fields, zap.String("region", entry.Region))
	}
	if entry.Target != "" {
		fields = append(fields, zap.String("target", entry.Target))
	}
	if entry.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", entry.ErrorCode))
	}
	if entry.ErrorMsg != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMsg))
	}
	l.logger.Info("audit", fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % l.capacity
	if l.next == 0 {
		l.full = true
	}
}

// GetRecentEntries returns up to limit entries, newest first. A limit of
// zero or less returns everything held.
func (l *Logger) GetRecentEntries(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = l.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + l.capacity) % l.capacity
		result = append(result, l.entries[idx])
	}
	return result
}

// Stats contains aggregated audit statistics
type Stats struct {
	TotalEntries    int            `json:"total_entries"`
	SuccessRate     float64        `json:"success_rate_pct"`
	AverageDuration time.Duration  `json:"average_duration"`
	ToolUsage       map[string]int `json:"tool_usage"`
	ErrorCounts     map[string]int `json:"error_counts"`
}

// GetStats returns statistics about the entries held.
func (l *Logger) GetStats() Stats {
	entries := l.GetRecentEntries(0)
	stats := Stats{
		TotalEntries: len(entries),
		ToolUsage:    make(map[string]int),
		ErrorCounts:  make(map[string]int),
	}

	var successes int
	var total time.Duration
	for _, e := range entries {
		stats.ToolUsage[e.Tool]++
		if e.Success {
			successes++
		} else if e.ErrorCode != "" {
			stats.ErrorCounts[e.ErrorCode]++
		}
		total += e.Duration
	}
	if len(entries) > 0 {
		stats.SuccessRate = float64(successes) / float64(len(entries)) * 100
		stats.AverageDuration = total / time.Duration(len(entries))
	}
	return stats
}

// IsEnabled returns whether audit logging is enabled
func (l *Logger) IsEnabled() bool {
	return l.enabled
}
