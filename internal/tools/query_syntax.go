package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
)

const (
	defaultSearchLimit     = 10
	defaultExampleCategory = "common_patterns"
)

// queryTypes lists the accepted values of query_type in display order.
var queryTypes = []string{
	"overview", "command", "function", "search", "examples", "best_practices", "troubleshooting",
}

// QuerySyntaxTool serves the Logs Insights query language reference.
type QuerySyntaxTool struct {
	*BaseTool
}

// NewQuerySyntaxTool creates a new tool instance
func NewQuerySyntaxTool(deps *Deps) *QuerySyntaxTool {
	return &QuerySyntaxTool{BaseTool: NewBaseTool(deps)}
}

// Name returns the tool name
func (t *QuerySyntaxTool) Name() string {
	return "get_query_syntax_documentation"
}

// Category returns the tool category
func (t *QuerySyntaxTool) Category() ToolCategory {
	return CategoryDocumentation
}

// Annotations returns tool hints for LLMs
func (t *QuerySyntaxTool) Annotations() *mcp.ToolAnnotations {
	return OfflineAnnotations("Logs Insights Query Syntax")
}

// Description returns the tool description
func (t *QuerySyntaxTool) Description() string {
	return `Returns documentation for the CloudWatch Logs Insights query language. Works offline.

query_type selects what to return:
- overview: the whole reference
- command: one command (command_name, e.g. filter, stats, parse)
- function: one function category (function_category, e.g. string, datetime)
- search: commands and function categories matching search_term
- examples: example queries (example_category: common_patterns or advanced_queries)
- best_practices: tips for fast, cheap queries
- troubleshooting: common problems and fixes

Read this before writing a query for execute_log_insights_query.`
}

// InputSchema returns the input schema
func (t *QuerySyntaxTool) InputSchema() interface{} {
	lib := t.deps.Docs
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query_type": map[string]interface{}{
				"type":        "string",
				"description": "Kind of documentation to return.",
				"enum":        queryTypes,
				"default":     "overview",
			},
			"command_name": map[string]interface{}{
				"type":        "string",
				"description": "Command to document when query_type is command.",
				"enum":        lib.CommandNames(),
			},
			"function_category": map[string]interface{}{
				"type":        "string",
				"description": "Function category to document when query_type is function.",
				"enum":        lib.FunctionCategoryNames(),
			},
			"search_term": map[string]interface{}{
				"type":        "string",
				"description": "Keyword matched against names and descriptions when query_type is search.",
			},
			"search_limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of search results.",
				"minimum":     1,
				"default":     defaultSearchLimit,
			},
			"example_category": map[string]interface{}{
				"type":        "string",
				"description": "Example set to return when query_type is examples.",
				"enum":        lib.ExampleCategoryNames(),
				"default":     defaultExampleCategory,
			},
		},
	}
}

// Execute executes the tool
func (t *QuerySyntaxTool) Execute(_ context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	doc, err := t.lookup(arguments)
	if err != nil {
		return HandleError(t.Name(), err), nil
	}
	return t.FormatResponse(doc)
}

func (t *QuerySyntaxTool) lookup(arguments map[string]interface{}) (*docs.Documentation, error) {
	lib := t.deps.Docs
	queryType, err := GetStringParam(arguments, "query_type", false)
	if err != nil {
		return nil, err
	}
	if queryType == "" {
		queryType = "overview"
	}

	switch queryType {
	case "overview":
		return lib.Overview(), nil
	case "command":
		name, err := requiredFor(arguments, "command_name", queryType)
		if err != nil {
			return nil, err
		}
		return lib.Command(name)
	case "function":
		category, err := requiredFor(arguments, "function_category", queryType)
		if err != nil {
			return nil, err
		}
		return lib.FunctionCategory(category)
	case "search":
		term, err := requiredFor(arguments, "search_term", queryType)
		if err != nil {
			return nil, err
		}
		limit := defaultSearchLimit
		if _, ok := arguments["search_limit"]; ok {
			if limit, err = GetIntParam(arguments, "search_limit", false); err != nil {
				return nil, err
			}
		}
		return lib.Search(term, limit), nil
	case "examples":
		category, err := GetStringParam(arguments, "example_category", false)
		if err != nil {
			return nil, err
		}
		if category == "" {
			category = defaultExampleCategory
		}
		return lib.Examples(category), nil
	case "best_practices":
		return lib.BestPractices(), nil
	case "troubleshooting":
		return lib.Troubleshooting(), nil
	default:
		return nil, errors.InvalidParameter("Invalid query_type: %s", queryType).
			WithSuggestion("Use one of: " + strings.Join(queryTypes, ", "))
	}
}

// requiredFor reads an argument that a given query_type cannot do without.
func requiredFor(arguments map[string]interface{}, key, queryType string) (string, error) {
	value, err := GetStringParam(arguments, key, false)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", errors.InvalidParameter("%s is required when query_type is %q", key, queryType)
	}
	return value, nil
}
