// Package server provides the MCP server implementation for CloudWatch Logs.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/analysis"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/audit"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/auth"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cloudwatch"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/health"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/prompts"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/resources"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/sanitize"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/security"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/tools"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/tracing"
)

const instructions = `Read-only access to Amazon CloudWatch Logs.
Start with describe_log_groups to find log groups and their saved queries.
execute_log_insights_query runs a Logs Insights query and waits for it; when it reports a polling timeout,
fetch the results later with get_logs_insight_query_results. analyze_log_group combines anomaly detectors
with pattern queries for one log group. get_query_syntax_documentation and validate_logs_insight_query
help write queries and need no AWS access.`

// maxAuditMessage bounds the error text kept in audit entries.
const maxAuditMessage = 256

// Server represents the MCP server
type Server struct {
	mcpServer    *mcp.Server
	apiClient    *client.Client
	config       *config.Config
	logger       *zap.Logger
	metrics      *metrics.Metrics
	audit        *audit.Logger
	docs         *docs.Library
	tools        []tools.Tool
	version      string
	healthServer *health.Server
}

// New creates a new MCP server instance backed by real AWS clients.
func New(cfg *config.Config, logger *zap.Logger, version string) (*Server, error) {
	m := metrics.New(logger)
	return newServer(cfg, logger, version, m, client.New(cfg, logger, m, version))
}

func newServer(cfg *config.Config, logger *zap.Logger, version string, m *metrics.Metrics, apiClient *client.Client) (*Server, error) {
	lib, err := docs.New(version)
	if err != nil {
		return nil, fmt.Errorf("failed to load query documentation: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "CloudWatch Logs MCP Server",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: instructions,
		HasTools:     true,
		HasPrompts:   true,
		HasResources: true,
	})

	logs := cloudwatch.NewService(apiClient, logger, m, cloudwatch.Options{
		DefaultRegion: cfg.Region,
		PollInterval:  cfg.PollInterval,
	})

	s := &Server{
		mcpServer: mcpServer,
		apiClient: apiClient,
		config:    cfg,
		logger:    logger,
		metrics:   m,
		audit:     audit.NewLogger(logger, cfg.EnableAuditLog),
		docs:      lib,
		version:   version,
	}
	s.tools = tools.GetAllTools(&tools.Deps{
		Logs:     logs,
		Analyzer: analysis.New(apiClient, logs, logger),
		Docs:     lib,
		Config:   cfg,
		Logger:   logger,
	})

	// Create health server if port is configured (port > 0)
	if cfg.HealthPort > 0 {
		checker := health.New(s.checkCredentials, apiClient, cfg.Region, logger)
		registry := m.Registry()
		if !cfg.MetricsEndpoint {
			registry = nil
		}
		s.healthServer = health.NewServer(checker, logger, cfg.HealthPort, cfg.HealthBindAddr, registry)
	}

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s, nil
}

// checkCredentials resolves the credential chain for the default region.
func (s *Server) checkCredentials(ctx context.Context) error {
	awsCfg, err := auth.LoadAWSConfig(ctx, auth.Options{
		Region:  s.config.Region,
		Profile: s.config.Profile,
		Version: s.version,
	}, s.logger)
	if err != nil {
		return err
	}
	return auth.CheckCredentials(ctx, awsCfg)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	for _, t := range s.tools {
		s.registerTool(t)
	}
	s.logger.Info("Registered all MCP tools", zap.Int("count", len(s.tools)))
}

// registerTool wraps a tool's Execute with argument decoding, a timeout,
// tracing, metrics and audit logging.
func (s *Server) registerTool(t tools.Tool) {
	toolName := t.Name()

	mcpTool := &mcp.Tool{
		Name:        toolName,
		Description: t.Description(),
		InputSchema: t.InputSchema(),
		Annotations: t.Annotations(),
	}

	handler := func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		ctx, span := tracing.ToolSpan(ctx, toolName)
		defer span.End()

		args, err := decodeArguments(request.Params.Arguments)
		if err != nil {
			s.metrics.RecordToolExecution(toolName, false, time.Since(start))
			tracing.RecordError(span, err)
			return nil, err
		}
		tracing.AddToolAttributes(span, security.MaskMap(args))

		timeout := t.DefaultTimeout()
		if timeout <= 0 {
			timeout = s.config.ToolTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := t.Execute(ctx, args)
		duration := time.Since(start)
		success := err == nil && (result == nil || !result.IsError)
		s.metrics.RecordToolExecution(toolName, success, duration)

		entry := audit.Entry{
			Tool:     toolName,
			Category: toolCategory(t),
			Region:   stringArg(args, "region"),
			Target:   auditTarget(args),
			Success:  success,
			Duration: duration,
		}
		switch {
		case err != nil:
			tracing.RecordError(span, err)
			entry.ErrorCode = "UNKNOWN"
			entry.ErrorMsg = truncate(security.SanitizeError(err))
		case !success:
			text := resultText(result)
			tracing.RecordError(span, stderrors.New(text))
			entry.ErrorCode = errorCode(text)
			entry.ErrorMsg = truncate(text)
		default:
			tracing.SetSuccess(span)
		}
		s.audit.Log(ctx, entry)

		return result, err
	}

	s.mcpServer.AddTool(mcpTool, handler)
	s.logger.Debug("Registered tool", zap.String("tool", toolName))
}

// decodeArguments unmarshals tool arguments. Keys with a JSON null value are
// dropped so that they read as absent.
func decodeArguments(raw json.RawMessage) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return sanitize.DropAbsent(args), nil
}

func toolCategory(t tools.Tool) string {
	if c, ok := t.(tools.Categorized); ok {
		return string(c.Category())
	}
	return ""
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// auditTarget names the query or log group a call acted on.
func auditTarget(args map[string]interface{}) string {
	for _, key := range []string{"query_id", "log_group_arn", "log_group_name_prefix"} {
		if v := stringArg(args, key); v != "" {
			return v
		}
	}
	for _, key := range []string{"log_group_names", "log_group_identifiers"} {
		if list, ok := args[key].([]interface{}); ok && len(list) > 0 {
			first, _ := list[0].(string)
			if len(list) > 1 {
				return fmt.Sprintf("%s (+%d)", first, len(list)-1)
			}
			return first
		}
	}
	return ""
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// errorCode extracts the kind from an error text of the form "[KIND] message".
func errorCode(text string) string {
	if strings.HasPrefix(text, "[") {
		if end := strings.Index(text, "]"); end > 1 {
			return text[1:end]
		}
	}
	return "UNKNOWN"
}

func truncate(s string) string {
	if len(s) <= maxAuditMessage {
		return s
	}
	return s[:maxAuditMessage] + "..."
}

// registerPrompts registers all available MCP prompts
func (s *Server) registerPrompts() {
	registry := prompts.NewRegistry(s.logger)

	for _, p := range registry.GetPrompts() {
		s.mcpServer.AddPrompt(p.Prompt, p.Handler)
		s.logger.Debug("Registered prompt", zap.String("prompt", p.Prompt.Name))
	}

	s.logger.Info("Registered all MCP prompts", zap.Int("count", len(registry.GetPrompts())))
}

// registerResources registers all available MCP resources and resource templates
func (s *Server) registerResources() {
	names := make([]string, 0, len(s.tools))
	for _, t := range s.tools {
		names = append(names, t.Name())
	}
	registry := resources.NewRegistry(resources.Options{
		Config:    s.config,
		Metrics:   s.metrics,
		Audit:     s.audit,
		Docs:      s.docs,
		ToolNames: names,
		Version:   s.version,
	}, s.logger)

	for _, r := range registry.GetResources() {
		s.mcpServer.AddResource(r.Resource, r.Handler)
		s.logger.Debug("Registered resource", zap.String("uri", r.Resource.URI))
	}

	templateHandler := registry.GetTemplateHandler()
	templates := registry.GetResourceTemplates()
	for i := range templates {
		s.mcpServer.AddResourceTemplate(&templates[i], templateHandler)
		s.logger.Debug("Registered resource template", zap.String("uri_template", templates[i].URITemplate))
	}

	s.logger.Info("Registered all MCP resources",
		zap.Int("static_count", len(registry.GetResources())),
		zap.Int("template_count", len(templates)),
	)
}

// Start serves MCP over the configured transport until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server",
		zap.String("transport", s.config.Transport),
		zap.String("region", s.config.Region),
	)

	if s.healthServer != nil {
		go func() {
			if err := s.healthServer.Start(); err != nil {
				s.logger.Error("Health server error", zap.Error(err))
			}
		}()
		s.healthServer.SetReady(true)
	}

	defer s.shutdown()

	if s.config.Transport == config.TransportHTTP {
		return s.serveHTTP(ctx)
	}
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// serveHTTP exposes the MCP server over the streamable HTTP transport.
func (s *Server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              s.config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening for MCP over HTTP", zap.String("addr", s.config.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("MCP HTTP server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down MCP HTTP server: %w", err)
	}
	return nil
}

func (s *Server) shutdown() {
	s.metrics.LogStats()

	if s.healthServer != nil {
		s.healthServer.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.healthServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown health server", zap.Error(err))
		}
	}

	if err := s.apiClient.Close(); err != nil {
		s.logger.Error("Failed to close API client", zap.Error(err))
	}
}

// GetMetrics returns the server's metrics tracker for external access
func (s *Server) GetMetrics() *metrics.Metrics {
	return s.metrics
}
