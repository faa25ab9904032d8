package tools

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/security"
)

// NewToolResultError creates a new tool result with an error message
func NewToolResultError(message string) *mcp.CallToolResult {
	if message == "" {
		message = "An unknown error occurred"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// NewToolResultErrorWithSuggestion creates a tool result with an error and recovery guidance
func NewToolResultErrorWithSuggestion(message, suggestion string) *mcp.CallToolResult {
	return NewToolResultError(fmt.Sprintf("%s\n\nSuggestion: %s", message, suggestion))
}

// NewTimeoutErrorWithFallback creates a timeout error naming a tool to continue with
func NewTimeoutErrorWithFallback(operation, fallbackTool, fallbackReason string) *mcp.CallToolResult {
	message := fmt.Sprintf("[%s] Operation '%s' timed out", errors.KindTimeout, operation)
	suggestion := fmt.Sprintf("Use '%s' which %s.", fallbackTool, fallbackReason)
	return NewToolResultErrorWithSuggestion(message, suggestion)
}

// HandleError converts an error into an MCP error result. The text starts
// with the error kind code and has credentials masked. Kinded errors also
// carry their JSON form as structured content.
func HandleError(operation string, err error) *mcp.CallToolResult {
	if stderrors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errors.KindClient) {
		return NewTimeoutErrorWithFallback(
			operation,
			"get_logs_insight_query_results",
			"returns the current state of a query without waiting",
		)
	}

	kind := errors.KindOf(err)
	message := fmt.Sprintf("[%s] %s", kind, security.SanitizeError(err))
	e, ok := errors.As(err)
	if !ok {
		return NewToolResultError(message)
	}

	var result *mcp.CallToolResult
	if e.Suggestion != "" {
		result = NewToolResultErrorWithSuggestion(message, e.Suggestion)
	} else {
		result = NewToolResultError(message)
	}
	masked := &errors.Error{
		Kind:       e.Kind,
		Message:    security.SanitizeError(e),
		Details:    security.MaskMap(e.Details),
		Suggestion: e.Suggestion,
	}
	result.StructuredContent = json.RawMessage(masked.ToJSON())
	return result
}
