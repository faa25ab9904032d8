package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cloudwatch"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
)

// DescribeLogGroupsTool lists log groups and the saved queries that apply to them.
type DescribeLogGroupsTool struct {
	*BaseTool
}

// NewDescribeLogGroupsTool creates a new tool instance
func NewDescribeLogGroupsTool(deps *Deps) *DescribeLogGroupsTool {
	return &DescribeLogGroupsTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *DescribeLogGroupsTool) Name() string {
	return "describe_log_groups"
}

// Category returns the tool category
func (t *DescribeLogGroupsTool) Category() ToolCategory {
	return CategoryDiscovery
}

// Annotations returns tool hints for LLMs
func (t *DescribeLogGroupsTool) Annotations() *mcp.ToolAnnotations {
	return ReadOnlyAnnotations("Describe Log Groups")
}

// Description returns the tool description
func (t *DescribeLogGroupsTool) Description() string {
	return `Lists CloudWatch log groups and the saved Logs Insights queries that apply to them.

Use this first to discover log group names and ARNs before running queries or analysis.

Returns:
- log_group_metadata: name, ARN, creation time, retention, stored bytes, class
- saved_queries: saved queries targeting the returned groups by name or by SOURCE namePrefix

**Related tools:**
- execute_log_insights_query: run a query against the discovered groups
- analyze_log_group: anomalies and common patterns for one group (needs the ARN)`
}

// InputSchema returns the input schema
func (t *DescribeLogGroupsTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"account_identifiers": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Account ids to search when this is a monitoring account. Requires include_linked_accounts.",
			},
			"include_linked_accounts": map[string]interface{}{
				"type":        "boolean",
				"description": "Include log groups from source accounts linked to this monitoring account.",
				"default":     false,
			},
			"log_group_class": map[string]interface{}{
				"type":        "string",
				"description": "Only return log groups of this class.",
				"enum":        []string{"STANDARD", "INFREQUENT_ACCESS", "DELIVERY"},
			},
			"log_group_name_prefix": map[string]interface{}{
				"type":        "string",
				"description": "Only return log groups whose name starts with this prefix, e.g. /aws/lambda/.",
			},
			"max_items": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of log groups to return. Omit to list all.",
				"minimum":     1,
			},
			"region": regionSchema(),
		},
	}
}

// Execute executes the tool
func (t *DescribeLogGroupsTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	in, err := t.parse(arguments)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}

	result, err := t.deps.Logs.DescribeLogGroups(ctx, in)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(result)
}

func (t *DescribeLogGroupsTool) parse(arguments map[string]interface{}) (cloudwatch.ListLogGroupsInput, error) {
	var in cloudwatch.ListLogGroupsInput
	var err error
	if in.Region, err = t.region(arguments); err != nil {
		return in, err
	}
	if in.AccountIdentifiers, err = GetStringArrayParam(arguments, "account_identifiers", false); err != nil {
		return in, err
	}
	if in.IncludeLinkedAccounts, err = GetBoolParam(arguments, "include_linked_accounts", false); err != nil {
		return in, err
	}
	if in.LogGroupClass, err = GetStringParam(arguments, "log_group_class", false); err != nil {
		return in, err
	}
	switch in.LogGroupClass {
	case "", "STANDARD", "INFREQUENT_ACCESS", "DELIVERY":
	default:
		return in, errors.InvalidParameter("Invalid log_group_class: %s", in.LogGroupClass)
	}
	if in.NamePrefix, err = GetStringParam(arguments, "log_group_name_prefix", false); err != nil {
		return in, err
	}
	if in.MaxItems, err = GetIntParam(arguments, "max_items", false); err != nil {
		return in, err
	}
	if in.MaxItems < 0 {
		return in, errors.InvalidParameter("max_items must be positive")
	}
	return in, nil
}
