package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MaxResultSize is the response size above which a warning is logged.
// Results are never truncated since clients rely on the full JSON shape.
const MaxResultSize = 100 * 1024

// FormatResponse renders v as indented JSON text.
func (t *BaseTool) FormatResponse(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format response: %w", err)
	}
	if len(data) > MaxResultSize {
		t.logger.Warn("Large tool result, consider a narrower query or a lower limit")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
