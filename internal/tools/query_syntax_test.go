package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
)

// documentation is the subset of docs.Documentation the tests inspect.
type documentation struct {
	QueryType       string                 `json:"query_type"`
	Content         map[string]interface{} `json:"content"`
	MatchedElements []docs.Element         `json:"matched_elements"`
	TotalElements   int                    `json:"total_elements"`
	SearchMetadata  map[string]interface{} `json:"search_metadata"`
}

func TestQuerySyntaxTool(t *testing.T) {
	tests := []struct {
		name          string
		arguments     map[string]interface{}
		wantType      string
		wantContent   string
		wantElements  int
		wantAtLeast   int
		wantMetaKey   string
		wantMetaValue interface{}
	}{
		{
			name:         "default is overview",
			arguments:    map[string]interface{}{},
			wantType:     "overview",
			wantContent:  "commands",
			wantElements: 23,
		},
		{
			name:         "command",
			arguments:    map[string]interface{}{"query_type": "command", "command_name": "stats"},
			wantType:     "command",
			wantContent:  "stats",
			wantElements: 1,
		},
		{
			name:         "function category",
			arguments:    map[string]interface{}{"query_type": "function", "function_category": "datetime"},
			wantType:     "function",
			wantContent:  "datetime",
			wantElements: 1,
		},
		{
			name:          "search is limited",
			arguments:     map[string]interface{}{"query_type": "search", "search_term": "e", "search_limit": float64(2)},
			wantType:      "search",
			wantContent:   "search_results",
			wantElements:  2,
			wantMetaKey:   "returned_matches",
			wantMetaValue: float64(2),
		},
		{
			name:          "examples default category",
			arguments:     map[string]interface{}{"query_type": "examples"},
			wantType:      "examples",
			wantContent:   "common_patterns",
			wantMetaKey:   "example_category",
			wantMetaValue: "common_patterns",
		},
		{
			name:        "examples explicit category",
			arguments:   map[string]interface{}{"query_type": "examples", "example_category": "advanced_queries"},
			wantType:    "examples",
			wantContent: "advanced_queries",
		},
		{
			name:        "best practices",
			arguments:   map[string]interface{}{"query_type": "best_practices"},
			wantType:    "best_practices",
			wantContent: "best_practices",
			wantAtLeast: 1,
		},
		{
			name:        "troubleshooting",
			arguments:   map[string]interface{}{"query_type": "troubleshooting"},
			wantType:    "troubleshooting",
			wantContent: "troubleshooting",
			wantAtLeast: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, provider := newTestDeps(t, nil)

			result, err := NewQuerySyntaxTool(deps).Execute(context.Background(), tt.arguments)
			require.NoError(t, err)

			var doc documentation
			decodeResult(t, result, &doc)
			assert.Equal(t, tt.wantType, doc.QueryType)
			assert.Contains(t, doc.Content, tt.wantContent)
			assert.Len(t, doc.MatchedElements, tt.wantElements)
			assert.GreaterOrEqual(t, doc.TotalElements, tt.wantAtLeast)
			if tt.wantMetaKey != "" {
				assert.Equal(t, tt.wantMetaValue, doc.SearchMetadata[tt.wantMetaKey])
			}
			assert.Empty(t, provider.Regions(), "documentation must not call AWS")
		})
	}
}

func TestQuerySyntaxToolSearchDefaultLimit(t *testing.T) {
	deps, _ := newTestDeps(t, nil)

	result, err := NewQuerySyntaxTool(deps).Execute(context.Background(), map[string]interface{}{
		"query_type":  "search",
		"search_term": "a",
	})
	require.NoError(t, err)

	var doc documentation
	decodeResult(t, result, &doc)
	assert.LessOrEqual(t, len(doc.MatchedElements), defaultSearchLimit)
	assert.Equal(t, "a", doc.SearchMetadata["search_term"])
}

func TestQuerySyntaxToolErrors(t *testing.T) {
	tests := []struct {
		name      string
		arguments map[string]interface{}
		want      string
	}{
		{"unknown type", map[string]interface{}{"query_type": "tutorial"}, "[INVALID_PARAMETER] Invalid query_type: tutorial"},
		{"command without name", map[string]interface{}{"query_type": "command"}, `[INVALID_PARAMETER] command_name is required when query_type is "command"`},
		{"function without category", map[string]interface{}{"query_type": "function"}, `[INVALID_PARAMETER] function_category is required when query_type is "function"`},
		{"search without term", map[string]interface{}{"query_type": "search"}, `[INVALID_PARAMETER] search_term is required when query_type is "search"`},
		{"unknown command", map[string]interface{}{"query_type": "command", "command_name": "select"}, "[NOT_FOUND] Command 'select' not found in documentation"},
		{"unknown category", map[string]interface{}{"query_type": "function", "function_category": "crypto"}, "[NOT_FOUND] Function category 'crypto' not found in documentation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _ := newTestDeps(t, nil)
			result, err := NewQuerySyntaxTool(deps).Execute(context.Background(), tt.arguments)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestQuerySyntaxToolSchemaListsReference(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	schema := NewQuerySyntaxTool(deps).InputSchema().(map[string]interface{})
	props := schema["properties"].(map[string]interface{})

	commands := props["command_name"].(map[string]interface{})["enum"].([]string)
	assert.Contains(t, commands, "filter")
	assert.Contains(t, commands, "SOURCE")
	assert.Equal(t, queryTypes, props["query_type"].(map[string]interface{})["enum"])
}
