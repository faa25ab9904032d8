// Package resources provides MCP resource handlers for the CloudWatch Logs server.
// Resources expose read-only data to MCP clients for context and status information.
package resources

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/audit"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
)

const (
	commandPrefix  = "docs://commands/"
	functionPrefix = "docs://functions/"
	auditLimit     = 50
)

// Registry holds all registered resources and their handlers
type Registry struct {
	config  *config.Config
	metrics *metrics.Metrics
	audit   *audit.Logger
	docs    *docs.Library
	tools   []string
	logger  *zap.Logger
	version string
}

// Options are the sources the resources read from.
type Options struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Audit     *audit.Logger
	Docs      *docs.Library
	ToolNames []string
	Version   string
}

// NewRegistry creates a new resource registry
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		config:  opts.Config,
		metrics: opts.Metrics,
		audit:   opts.Audit,
		docs:    opts.Docs,
		tools:   opts.ToolNames,
		logger:  logger,
		version: opts.Version,
	}
}

// RegisteredResource represents a resource with its definition and handler
type RegisteredResource struct {
	Resource *mcp.Resource
	Handler  mcp.ResourceHandler
}

// GetResources returns all registered resources with their handlers
func (r *Registry) GetResources() []RegisteredResource {
	return []RegisteredResource{
		r.jsonResource("about://service", "About CloudWatch Logs MCP Server",
			"Service information, capabilities and the Logs Insights query language", r.about),
		r.jsonResource("config://current", "Server Configuration",
			"Current server configuration (profile name masked)", r.currentConfig),
		r.jsonResource("metrics://server", "Server Metrics",
			"Operational metrics including AWS request counts, query polling and tool usage", r.serverMetrics),
		r.jsonResource("audit://recent", "Recent Tool Executions",
			"The most recent tool executions recorded by the audit log", r.recentAudit),
	}
}

// jsonResource wraps a JSON-producing function as a static resource.
func (r *Registry) jsonResource(uri, title, description string, build func() interface{}) RegisteredResource {
	return RegisteredResource{
		Resource: &mcp.Resource{
			URI:         uri,
			Name:        uri,
			Title:       title,
			Description: description,
			MIMEType:    "application/json",
		},
		Handler: func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return r.jsonResult(uri, build())
		},
	}
}

func (r *Registry) jsonResult(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		r.logger.Error("Failed to marshal resource", zap.String("uri", uri), zap.Error(err))
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}

func (r *Registry) about() interface{} {
	return map[string]interface{}{
		"service": map[string]interface{}{
			"name":        "Amazon CloudWatch Logs",
			"description": "Read-only access to CloudWatch Logs: log group discovery, Logs Insights queries and anomaly analysis",
			"aliases":     []string{"CloudWatch Logs", "CWL", "Logs Insights"},
		},
		"query_language": map[string]interface{}{
			"name":    "CloudWatch Logs Insights",
			"type":    "Piped command query language",
			"example": "fields @timestamp, @message | filter @message like /ERROR/ | sort @timestamp desc | limit 20",
			"stats":   r.docs.SummaryStats(),
		},
		"mcp_server": map[string]interface{}{
			"version":      r.version,
			"tools":        r.tools,
			"tool_count":   len(r.tools),
			"capabilities": []string{"tools", "prompts", "resources"},
		},
	}
}

func (r *Registry) currentConfig() interface{} {
	c := r.config.Redact()
	return map[string]interface{}{
		"region":                c.Region,
		"profile":               c.Profile,
		"max_retries":           c.MaxRetries,
		"timeout":               c.Timeout.String(),
		"rate_limit":            c.RateLimit,
		"rate_limit_burst":      c.RateLimitBurst,
		"rate_limit_enabled":    c.EnableRateLimit,
		"poll_interval":         c.PollInterval.String(),
		"default_query_timeout": c.DefaultQueryTimeout.String(),
		"max_query_timeout":     c.MaxQueryTimeout.String(),
		"tool_timeout":          c.ToolTimeout.String(),
		"transport":             c.Transport,
		"tracing_enabled":       c.EnableTracing,
		"audit_log_enabled":     c.EnableAuditLog,
		"metrics_endpoint":      c.MetricsEndpoint,
		"log_level":             c.LogLevel,
	}
}

func (r *Registry) serverMetrics() interface{} {
	stats := r.metrics.GetStats()
	return map[string]interface{}{
		"requests": map[string]interface{}{
			"total":      stats.TotalRequests,
			"successful": stats.SuccessfulRequests,
			"failed":     stats.FailedRequests,
			"retries":    stats.Retries,
		},
		"rate_limiting": map[string]interface{}{
			"waits": stats.RateLimitWaits,
		},
		"queries": map[string]interface{}{
			"started":       stats.QueriesStarted,
			"polls":         stats.QueryPolls,
			"poll_timeouts": stats.PollTimeouts,
		},
		"latency": map[string]interface{}{
			"average_ms": stats.AverageLatency.Milliseconds(),
			"max_ms":     stats.MaxLatency.Milliseconds(),
		},
		"errors_by_status": stats.ErrorsByStatus,
		"tools": map[string]interface{}{
			"usage":   stats.ToolUsage,
			"errors":  stats.ToolErrors,
			"latency": formatToolLatency(stats.ToolLatency),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

func (r *Registry) recentAudit() interface{} {
	if r.audit == nil || !r.audit.IsEnabled() {
		return map[string]interface{}{
			"enabled": false,
			"message": "Audit logging is disabled. Set LOGS_ENABLE_AUDIT_LOG=true to record tool executions.",
		}
	}
	return map[string]interface{}{
		"enabled": true,
		"stats":   r.audit.GetStats(),
		"entries": r.audit.GetRecentEntries(auditLimit),
	}
}

// formatToolLatency converts time.Duration map to milliseconds for JSON
func formatToolLatency(latency map[string]time.Duration) map[string]int64 {
	result := make(map[string]int64, len(latency))
	for tool, duration := range latency {
		result[tool] = duration.Milliseconds()
	}
	return result
}

// GetResourceTemplates returns templates for per-command and per-category
// query language documentation.
func (r *Registry) GetResourceTemplates() []mcp.ResourceTemplate {
	return []mcp.ResourceTemplate{
		{
			URITemplate: commandPrefix + "{name}",
			Name:        "Logs Insights Command",
			Description: "Documentation of one Logs Insights command, e.g. docs://commands/stats. Commands: " +
				strings.Join(r.docs.CommandNames(), ", "),
			MIMEType: "application/json",
		},
		{
			URITemplate: functionPrefix + "{category}",
			Name:        "Logs Insights Function Category",
			Description: "Documentation of one function category, e.g. docs://functions/string. Categories: " +
				strings.Join(r.docs.FunctionCategoryNames(), ", "),
			MIMEType: "application/json",
		},
	}
}

// GetTemplateHandler returns a handler for resource templates
func (r *Registry) GetTemplateHandler() mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI

		var doc *docs.Documentation
		var err error
		switch {
		case matchTemplate(uri, commandPrefix):
			doc, err = r.docs.Command(extractTemplateName(uri, commandPrefix))
		case matchTemplate(uri, functionPrefix):
			doc, err = r.docs.FunctionCategory(extractTemplateName(uri, functionPrefix))
		default:
			return nil, mcp.ResourceNotFoundError(uri)
		}
		if err != nil {
			r.logger.Debug("Unknown documentation resource", zap.String("uri", uri), zap.Error(err))
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return r.jsonResult(uri, doc)
	}
}

func matchTemplate(uri, prefix string) bool {
	return len(uri) > len(prefix) && uri[:len(prefix)] == prefix
}

func extractTemplateName(uri, prefix string) string {
	return uri[len(prefix):]
}
