package tools

import "github.com/modelcontextprotocol/go-sdk/mcp"

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// ReadOnlyAnnotations returns annotations for tools that only read from
// CloudWatch Logs (describe, get, analyze).
func ReadOnlyAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(true), // AWS account contents are not known in advance
	}
}

// QueryAnnotations returns annotations for tools that start Logs Insights
// queries. Each call starts a new billable query.
func QueryAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: false,
		OpenWorldHint:  boolPtr(true),
	}
}

// CancelAnnotations returns annotations for stopping a running query.
func CancelAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:           title,
		ReadOnlyHint:    false,
		DestructiveHint: boolPtr(false), // stops work, never deletes data
		IdempotentHint:  true,
		OpenWorldHint:   boolPtr(true),
	}
}

// OfflineAnnotations returns annotations for tools served from the embedded
// reference without calling AWS.
func OfflineAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}
