package tools

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cloudwatch"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
)

const (
	// maxQueryLogGroups is the StartQuery limit on target log groups.
	maxQueryLogGroups = 50
	// toolTimeoutMargin is added to the poll budget for the start and
	// final fetch calls.
	toolTimeoutMargin = 30 * time.Second
)

// ExecuteQueryTool starts a Logs Insights query and waits for its results.
type ExecuteQueryTool struct {
	*BaseTool
}

// NewExecuteQueryTool creates a new tool instance
func NewExecuteQueryTool(deps *Deps) *ExecuteQueryTool {
	return &ExecuteQueryTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *ExecuteQueryTool) Name() string {
	return "execute_log_insights_query"
}

// Category returns the tool category
func (t *ExecuteQueryTool) Category() ToolCategory {
	return CategoryQuery
}

// Annotations returns tool hints for LLMs
func (t *ExecuteQueryTool) Annotations() *mcp.ToolAnnotations {
	return QueryAnnotations("Execute Logs Insights Query")
}

// DefaultTimeout lets the longest allowed poll budget finish.
func (t *ExecuteQueryTool) DefaultTimeout() time.Duration {
	return t.deps.Config.MaxQueryTimeout + toolTimeoutMargin
}

// Description returns the tool description
func (t *ExecuteQueryTool) Description() string {
	return `Executes a CloudWatch Logs Insights query and waits for it to finish.

Provide exactly one of log_group_names or log_group_identifiers (up to 50 groups).

**Query Syntax Example:**
fields @timestamp, @message | filter @message like /ERROR/ | sort @timestamp desc | limit 20

Always include a limit to keep results small. If the query does not finish within
max_timeout seconds the result has status "Polling Timeout" and the queryId can be passed to
get_logs_insight_query_results later.

**Related tools:**
- get_query_syntax_documentation: commands, functions and example queries
- validate_logs_insight_query: check a query before running it
- cancel_logs_insight_query: stop a long running query`
}

// InputSchema returns the input schema
func (t *ExecuteQueryTool) InputSchema() interface{} {
	defaultSeconds := int(t.deps.Config.DefaultQueryTimeout.Seconds())
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"log_group_names": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Log group names to query. Mutually exclusive with log_group_identifiers.",
				"maxItems":    maxQueryLogGroups,
			},
			"log_group_identifiers": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Log group names or ARNs; use ARNs for groups in linked source accounts. Mutually exclusive with log_group_names.",
				"maxItems":    maxQueryLogGroups,
			},
			"query_string": map[string]interface{}{
				"type":        "string",
				"description": "Logs Insights query.",
				"examples": []string{
					"fields @timestamp, @message | sort @timestamp desc | limit 20",
					"stats count(*) by bin(5m)",
				},
			},
			"start_time": timeSchema("Start of the time range."),
			"end_time":   timeSchema("End of the time range."),
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of log events to return. Overrides a limit command in the query only when smaller.",
				"minimum":     1,
				"maximum":     cloudwatch.MaxQueryLimit,
			},
			"max_timeout": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Seconds to wait for the query to complete. Default %d.", defaultSeconds),
				"minimum":     0,
				"default":     defaultSeconds,
			},
			"region": regionSchema(),
		},
		"required": []string{"query_string", "start_time", "end_time"},
	}
}

// Execute executes the tool
func (t *ExecuteQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	in, maxWait, err := t.parse(arguments)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}

	queryID, err := t.deps.Logs.StartQuery(ctx, in)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}

	result, err := t.deps.Logs.PollUntilComplete(ctx, in.Region, queryID, maxWait)
	if errors.Is(err, errors.KindTimeout) {
		t.logger.Warn("Query still running after poll budget",
			zap.String("query_id", queryID),
			zap.Duration("max_timeout", maxWait))
		return t.FormatResponse(models.PollTimeout{
			QueryID: queryID,
			Status:  "Polling Timeout",
			Message: fmt.Sprintf("Query %s did not complete within %s seconds. "+
				"Use get_logs_insight_query_results with the returned queryId to try again to retrieve query results.",
				queryID, strconv.FormatFloat(maxWait.Seconds(), 'f', -1, 64)),
		})
	}
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(result)
}

func (t *ExecuteQueryTool) parse(arguments map[string]interface{}) (cloudwatch.StartQueryInput, time.Duration, error) {
	var in cloudwatch.StartQueryInput
	var err error
	if in.LogGroupNames, err = GetStringArrayParam(arguments, "log_group_names", false); err != nil {
		return in, 0, err
	}
	if in.LogGroupIdentifiers, err = GetStringArrayParam(arguments, "log_group_identifiers", false); err != nil {
		return in, 0, err
	}
	if (len(in.LogGroupNames) == 0) == (len(in.LogGroupIdentifiers) == 0) {
		return in, 0, errors.InvalidParameter("Exactly one of log_group_names or log_group_identifiers must be provided")
	}
	if n := len(in.LogGroupNames) + len(in.LogGroupIdentifiers); n > maxQueryLogGroups {
		return in, 0, errors.InvalidParameter("At most %d log groups can be queried at once, got %d", maxQueryLogGroups, n)
	}
	if in.QueryString, err = GetStringParam(arguments, "query_string", true); err != nil {
		return in, 0, err
	}
	if in.StartTime, err = GetStringParam(arguments, "start_time", true); err != nil {
		return in, 0, err
	}
	if in.EndTime, err = GetStringParam(arguments, "end_time", true); err != nil {
		return in, 0, err
	}
	if in.Limit, err = GetIntParam(arguments, "limit", false); err != nil {
		return in, 0, err
	}
	if in.Limit < 0 {
		return in, 0, errors.InvalidParameter("limit must be positive")
	}
	if in.Limit > cloudwatch.MaxQueryLimit {
		return in, 0, errors.InvalidParameter("limit must not exceed %d, got %d", cloudwatch.MaxQueryLimit, in.Limit)
	}
	if in.Region, err = t.region(arguments); err != nil {
		return in, 0, err
	}

	limit := t.deps.Config.MaxQueryTimeout
	maxWait := t.deps.Config.DefaultQueryTimeout
	if _, ok := arguments["max_timeout"]; ok {
		seconds, err := GetIntParam(arguments, "max_timeout", false)
		if err != nil {
			return in, 0, err
		}
		if seconds < 0 {
			return in, 0, errors.InvalidParameter("max_timeout must not be negative")
		}
		// Compared in seconds so huge values cannot overflow the Duration.
		if limit > 0 && float64(seconds) >= limit.Seconds() {
			return in, limit, nil
		}
		maxWait = time.Duration(seconds) * time.Second
	}
	if limit > 0 && maxWait > limit {
		maxWait = limit
	}
	return in, maxWait, nil
}

// GetQueryResultsTool fetches the current state of a query without waiting.
type GetQueryResultsTool struct {
	*BaseTool
}

// NewGetQueryResultsTool creates a new tool instance
func NewGetQueryResultsTool(deps *Deps) *GetQueryResultsTool {
	return &GetQueryResultsTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *GetQueryResultsTool) Name() string {
	return "get_logs_insight_query_results"
}

// Category returns the tool category
func (t *GetQueryResultsTool) Category() ToolCategory {
	return CategoryQuery
}

// Annotations returns tool hints for LLMs
func (t *GetQueryResultsTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Get Logs Insights Query Results")
}

// Description returns the tool description
func (t *GetQueryResultsTool) Description() string {
	return `Returns the status, statistics and results of a Logs Insights query.

Use this with the queryId of an execute_log_insights_query call that timed out while polling.
Results are partial while the status is Scheduled or Running.`
}

// InputSchema returns the input schema
func (t *GetQueryResultsTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query_id": map[string]interface{}{
				"type":        "string",
				"description": "Query id returned by execute_log_insights_query.",
			},
			"region": regionSchema(),
		},
		"required": []string{"query_id"},
	}
}

// Execute executes the tool
func (t *GetQueryResultsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	queryID, err := GetStringParam(arguments, "query_id", true)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	region, err := t.region(arguments)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}

	result, err := t.deps.Logs.FetchResults(ctx, region, queryID)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(result)
}

// CancelQueryTool stops a running query.
type CancelQueryTool struct {
	*BaseTool
}

// NewCancelQueryTool creates a new tool instance
func NewCancelQueryTool(deps *Deps) *CancelQueryTool {
	return &CancelQueryTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *CancelQueryTool) Name() string {
	return "cancel_logs_insight_query"
}

// Category returns the tool category
func (t *CancelQueryTool) Category() ToolCategory {
	return CategoryQuery
}

// Annotations returns tool hints for LLMs
func (t *CancelQueryTool) Annotations() *mcp.ToolAnnotations {
	return CancelAnnotations("Cancel Logs Insights Query")
}

// Description returns the tool description
func (t *CancelQueryTool) Description() string {
	return `Cancels a running Logs Insights query.

success is false when the query already finished before the cancel request arrived.`
}

// InputSchema returns the input schema
func (t *CancelQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query_id": map[string]interface{}{
				"type":        "string",
				"description": "Query id returned by execute_log_insights_query.",
			},
			"region": regionSchema(),
		},
		"required": []string{"query_id"},
	}
}

// Execute executes the tool
func (t *CancelQueryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	queryID, err := GetStringParam(arguments, "query_id", true)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	region, err := t.region(arguments)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}

	ok, err := t.deps.Logs.CancelQuery(ctx, region, queryID)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(models.CancelResult{Success: ok})
}
