// Package prompts provides guided workflows for investigating CloudWatch Logs.
package prompts

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultTimeRange applies when time_range is omitted or unparseable.
const defaultTimeRange = time.Hour

// PromptDefinition represents a prompt with its metadata and handler
type PromptDefinition struct {
	// Prompt is the MCP prompt metadata
	Prompt *mcp.Prompt
	// Handler is the function that generates the prompt content
	Handler mcp.PromptHandler
}

// Registry holds all registered prompts
type Registry struct {
	logger  *zap.Logger
	prompts []*PromptDefinition
	now     func() time.Time
}

// NewRegistry creates a new prompt registry with all available prompts
func NewRegistry(logger *zap.Logger) *Registry {
	return newRegistry(logger, time.Now)
}

func newRegistry(logger *zap.Logger, now func() time.Time) *Registry {
	r := &Registry{
		logger: logger,
		now:    now,
	}
	r.prompts = []*PromptDefinition{
		r.analyzeLogGroupWorkflowPrompt(),
		r.investigateErrorsPrompt(),
	}
	return r
}

// GetPrompts returns all registered prompt definitions
func (r *Registry) GetPrompts() []*PromptDefinition {
	return r.prompts
}

// Helper to create a prompt result with user role
func createPromptResult(description, content string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: content},
			},
		},
	}
}

// getStringArg safely extracts a string argument with a default value
func getStringArg(args map[string]string, key, defaultVal string) string {
	if val, ok := args[key]; ok && val != "" {
		return val
	}
	return defaultVal
}

// parseTimeRange accepts Go durations plus a "d" suffix for days.
func parseTimeRange(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// window renders the [now-range, now] interval as ISO-8601.
func (r *Registry) window(timeRange string) (string, string, string) {
	d, ok := parseTimeRange(timeRange)
	if !ok {
		r.logger.Debug("Unparseable time_range, using default", zap.String("time_range", timeRange))
		d = defaultTimeRange
		timeRange = "1h"
	}
	end := r.now().UTC().Truncate(time.Second)
	start := end.Add(-d)
	return start.Format(time.RFC3339), end.Format(time.RFC3339), timeRange
}

// serviceName derives a readable name from the last log group path segment,
// e.g. /aws/lambda/order-service becomes "Order Service".
func serviceName(logGroup string) string {
	if i := strings.LastIndex(logGroup, ":log-group:"); i >= 0 {
		logGroup = logGroup[i+len(":log-group:"):]
	}
	base := path.Base(strings.TrimSuffix(logGroup, ":*"))
	if base == "." || base == "/" || base == "" {
		return "the service"
	}
	base = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(base)
	// Casers are stateful, so one per call.
	return cases.Title(language.English).String(base)
}

// analyzeLogGroupWorkflowPrompt creates the "analyze_log_group_workflow" prompt definition
func (r *Registry) analyzeLogGroupWorkflowPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "analyze_log_group_workflow",
			Title:       "Analyze a Log Group",
			Description: "Find a log group, check its anomalies and common patterns, then drill down with Logs Insights",
			Arguments: []*mcp.PromptArgument{
				{
					Name:        "log_group_name_prefix",
					Description: "Prefix of the log group to analyze (e.g., '/aws/lambda/orders')",
					Required:    true,
				},
				{
					Name:        "time_range",
					Description: "How far back to look (e.g., '1h', '24h', '7d'). Default 1h",
					Required:    false,
				},
				{
					Name:        "region",
					Description: "AWS region of the log group",
					Required:    false,
				},
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			prefix := getStringArg(req.Params.Arguments, "log_group_name_prefix", "")
			if prefix == "" {
				return nil, fmt.Errorf("log_group_name_prefix is required")
			}
			start, end, timeRange := r.window(getStringArg(req.Params.Arguments, "time_range", "1h"))
			region := regionHint(req.Params.Arguments)
			name := serviceName(prefix)

			content := fmt.Sprintf(`Let's analyze the CloudWatch Logs of %s over the last %s (%s to %s).

1. **Find the log group**: run describe_log_groups with log_group_name_prefix "%s"%s.
   Note the logGroupArn of the group to analyze and any saved_queries that apply to it.
2. **Get an overview**: run analyze_log_group with that log_group_arn, start_time "%s" and end_time "%s"%s.
   It returns anomalies found by anomaly detectors plus the most common message and error patterns.
3. **Drill down**: for any pattern or anomaly worth a closer look, write a query (see
   get_query_syntax_documentation) and run execute_log_insights_query over the same window.
   Always end queries with a limit.
4. If a query reports status "Polling Timeout", fetch it later with get_logs_insight_query_results.

Summarize what changed in the window, which patterns dominate and whether any anomaly needs attention.`,
				name, timeRange, start, end, prefix, region, start, end, region)

			return createPromptResult("Analyze log group workflow", content), nil
		},
	}
}

// investigateErrorsPrompt creates the "investigate_errors" prompt definition
func (r *Registry) investigateErrorsPrompt() *PromptDefinition {
	return &PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        "investigate_errors",
			Title:       "Investigate Errors",
			Description: "Query recent errors in a log group and group them into root causes",
			Arguments: []*mcp.PromptArgument{
				{
					Name:        "log_group_name",
					Description: "Log group to investigate (e.g., '/ecs/checkout')",
					Required:    true,
				},
				{
					Name:        "time_range",
					Description: "Time range to investigate (e.g., '1h', '24h', '7d'). Default 1h",
					Required:    false,
				},
				{
					Name:        "region",
					Description: "AWS region of the log group",
					Required:    false,
				},
			},
		},
		Handler: func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			logGroup := getStringArg(req.Params.Arguments, "log_group_name", "")
			if logGroup == "" {
				return nil, fmt.Errorf("log_group_name is required")
			}
			start, end, timeRange := r.window(getStringArg(req.Params.Arguments, "time_range", "1h"))
			region := regionHint(req.Params.Arguments)

			content := fmt.Sprintf(`Let's investigate errors from %s in %s over the last %s.

Run these with execute_log_insights_query, log_group_names ["%s"], start_time "%s", end_time "%s"%s:

1. **Error volume over time**:
   filter @message like /(?i)(error|exception|fail|timeout|fatal)/ | stats count(*) as errors by bin(5m)
2. **Most frequent error shapes**:
   filter @message like /(?i)(error|exception|fail|timeout|fatal)/ | pattern @message | limit 10
3. **Latest examples**:
   fields @timestamp, @message | filter @message like /(?i)(error|exception)/ | sort @timestamp desc | limit 20

If the spike has a clear start, compare the patterns before and after it. Group the errors by
likely root cause and say which one to fix first.`,
				serviceName(logGroup), logGroup, timeRange, logGroup, start, end, region)

			return createPromptResult("Investigate errors workflow", content), nil
		},
	}
}

func regionHint(args map[string]string) string {
	if region := getStringArg(args, "region", ""); region != "" {
		return fmt.Sprintf(` and region "%s"`, region)
	}
	return ""
}
