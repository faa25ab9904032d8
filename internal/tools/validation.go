package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/timeutil"
)

// QueryValidation is the validate_logs_insight_query result.
type QueryValidation struct {
	*docs.Validation
	Query string `json:"query"`
}

// ValidateQueryTool performs an offline sanity check of a query.
type ValidateQueryTool struct {
	*BaseTool
}

// NewValidateQueryTool creates a new tool instance
func NewValidateQueryTool(deps *Deps) *ValidateQueryTool {
	return &ValidateQueryTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *ValidateQueryTool) Name() string {
	return "validate_logs_insight_query"
}

// Category returns the tool category
func (t *ValidateQueryTool) Category() ToolCategory {
	return CategoryDocumentation
}

// Annotations returns tool hints for LLMs
func (t *ValidateQueryTool) Annotations() *mcp.ToolAnnotations {
	return OfflineAnnotations("Validate Logs Insights Query")
}

// Description returns the tool description
func (t *ValidateQueryTool) Description() string {
	return `Checks a Logs Insights query without running it.

Reports piped commands that are not recognized and suggests adding a limit. When start_time
and end_time are given they are checked too. This is a shallow check; the service may still
reject a query that passes.`
}

// InputSchema returns the input schema
func (t *ValidateQueryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query_string": map[string]interface{}{
				"type":        "string",
				"description": "Logs Insights query to check.",
			},
			"start_time": timeSchema("Optional start of the intended time range."),
			"end_time":   timeSchema("Optional end of the intended time range."),
		},
		"required": []string{"query_string"},
	}
}

// Execute executes the tool
func (t *ValidateQueryTool) Execute(_ context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	query, err := GetStringParam(arguments, "query_string", false)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}

	v := t.deps.Docs.ValidateQuery(query)
	if err := t.checkRange(arguments, v); err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(QueryValidation{Validation: v, Query: query})
}

// checkRange adds errors for an unparseable or inverted time range.
func (t *ValidateQueryTool) checkRange(arguments map[string]interface{}, v *docs.Validation) error {
	start, err := GetStringParam(arguments, "start_time", false)
	if err != nil {
		return err
	}
	end, err := GetStringParam(arguments, "end_time", false)
	if err != nil {
		return err
	}
	if start == "" || end == "" {
		return nil
	}

	startEpoch, err := timeutil.ISO8601ToEpochSeconds(start)
	if err != nil {
		v.IsValid = false
		v.Errors = append(v.Errors, err.Error())
		return nil
	}
	endEpoch, err := timeutil.ISO8601ToEpochSeconds(end)
	if err != nil {
		v.IsValid = false
		v.Errors = append(v.Errors, err.Error())
		return nil
	}
	if endEpoch < startEpoch {
		v.IsValid = false
		v.Errors = append(v.Errors, "end_time is before start_time")
	}
	return nil
}
