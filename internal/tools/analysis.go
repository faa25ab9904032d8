package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/analysis"
)

// AnalyzeLogGroupTool reports anomalies and the most common message and
// error patterns of one log group.
type AnalyzeLogGroupTool struct {
	*BaseTool
}

// NewAnalyzeLogGroupTool creates a new tool instance
func NewAnalyzeLogGroupTool(deps *Deps) *AnalyzeLogGroupTool {
	return &AnalyzeLogGroupTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *AnalyzeLogGroupTool) Name() string {
	return "analyze_log_group"
}

// Category returns the tool category
func (t *AnalyzeLogGroupTool) Category() ToolCategory {
	return CategoryAnalysis
}

// Annotations returns tool hints for LLMs
func (t *AnalyzeLogGroupTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Analyze Log Group")
}

// DefaultTimeout covers both pattern queries polling to their budget.
func (t *AnalyzeLogGroupTool) DefaultTimeout() time.Duration {
	return t.maxWait() + time.Minute
}

// maxWait is the poll budget of each pattern query.
func (t *AnalyzeLogGroupTool) maxWait() time.Duration {
	if d := t.deps.Config.DefaultQueryTimeout; d > 0 {
		return d
	}
	return analysis.DefaultMaxWait
}

// Description returns the tool description
func (t *AnalyzeLogGroupTool) Description() string {
	return `Analyzes a log group for a time window. Runs three lookups concurrently:
1. Anomalies found by the log group's anomaly detectors that overlap the window
2. The 5 most common message patterns
3. The 5 most common patterns among messages that look like errors

Use this as a starting point for investigating a service. It needs the log group ARN
(see describe_log_groups). Fails as a whole if any of the three lookups fails.`
}

// InputSchema returns the input schema
func (t *AnalyzeLogGroupTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"log_group_arn": map[string]interface{}{
				"type":        "string",
				"description": "ARN of the log group to analyze, as returned by describe_log_groups (logGroupArn).",
			},
			"start_time": timeSchema("Start of the window."),
			"end_time":   timeSchema("End of the window."),
			"region":     regionSchema(),
		},
		"required": []string{"log_group_arn", "start_time", "end_time"},
	}
}

// Execute executes the tool
func (t *AnalyzeLogGroupTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	var w analysis.Window
	var err error
	if w.LogGroupArn, err = GetStringParam(arguments, "log_group_arn", true); err != nil {
		return HandleError(t.Name(), err), nil
	}
	if w.StartTime, err = GetStringParam(arguments, "start_time", true); err != nil {
		return HandleError(t.Name(), err), nil
	}
	if w.EndTime, err = GetStringParam(arguments, "end_time", true); err != nil {
		return HandleError(t.Name(), err), nil
	}
	if w.Region, err = t.region(arguments); err != nil {
		return HandleError(t.Name(), err), nil
	}

	result, err := t.deps.Analyzer.AnalyzeLogGroup(ctx, w, t.maxWait())
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(result)
}
