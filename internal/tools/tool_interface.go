// Package tools provides the MCP tool implementations for CloudWatch Logs.
package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool defines the interface that all MCP tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// InputSchema returns the JSON Schema for the tool's input parameters
	InputSchema() interface{}

	// Execute runs the tool with the given arguments. Business failures are
	// reported through an error result, not a Go error.
	Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error)

	// Annotations returns hints about tool behavior for LLMs.
	Annotations() *mcp.ToolAnnotations

	// DefaultTimeout returns the timeout the server applies to Execute.
	// Returns 0 to use the configured tool timeout.
	DefaultTimeout() time.Duration
}

// ToolCategory groups tools by what they operate on.
type ToolCategory string

// Tool categories
const (
	CategoryDiscovery     ToolCategory = "discovery"
	CategoryQuery         ToolCategory = "query"
	CategoryAnalysis      ToolCategory = "analysis"
	CategoryDocumentation ToolCategory = "documentation"
)

// Categorized is implemented by tools that report a category.
type Categorized interface {
	Category() ToolCategory
}
