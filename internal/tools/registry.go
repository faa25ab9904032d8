package tools

// GetAllTools returns all available MCP tools organized by category.
func GetAllTools(deps *Deps) []Tool {
	return []Tool{
		// Discovery
		NewDescribeLogGroupsTool(deps),

		// Analysis
		NewAnalyzeLogGroupTool(deps),

		// Query lifecycle
		NewExecuteQueryTool(deps),
		NewGetQueryResultsTool(deps),
		NewCancelQueryTool(deps),

		// Documentation
		NewQuerySyntaxTool(deps),
		NewValidateQueryTool(deps),
	}
}

// ToolsByCategory groups tool names by category, preserving registration order.
func ToolsByCategory(tools []Tool) map[ToolCategory][]string {
	out := make(map[ToolCategory][]string)
	for _, t := range tools {
		category := ToolCategory("uncategorized")
		if c, ok := t.(Categorized); ok {
			category = c.Category()
		}
		out[category] = append(out[category], t.Name())
	}
	return out
}
