package tools

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/analysis"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client/clienttest"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cloudwatch"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
)

// newTestDeps wires the tools to a fake CloudWatch Logs API.
func newTestDeps(t *testing.T, fake *clienttest.Fake) (*Deps, *clienttest.Provider) {
	t.Helper()
	if fake == nil {
		fake = &clienttest.Fake{}
	}
	provider := &clienttest.Provider{API: fake}
	cfg := config.Default()
	cfg.PollInterval = time.Millisecond
	logger := zap.NewNop()

	logs := cloudwatch.NewService(provider, logger, metrics.New(logger), cloudwatch.Options{
		DefaultRegion: cfg.Region,
		PollInterval:  cfg.PollInterval,
	})
	lib, err := docs.New("test")
	require.NoError(t, err)

	return &Deps{
		Logs:     logs,
		Analyzer: analysis.New(provider, logs, logger),
		Docs:     lib,
		Config:   cfg,
		Logger:   logger,
	}, provider
}

// resultText returns the text of a single-content tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

// decodeResult unmarshals a successful tool result.
func decodeResult(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), v))
}

func TestGetStringParam(t *testing.T) {
	tests := []struct {
		name      string
		arguments map[string]interface{}
		required  bool
		want      string
		wantErr   bool
	}{
		{"valid string", map[string]interface{}{"id": "q-1"}, true, "q-1", false},
		{"missing required", map[string]interface{}{}, true, "", true},
		{"missing optional", map[string]interface{}{}, false, "", false},
		{"empty required", map[string]interface{}{"id": ""}, true, "", true},
		{"empty optional", map[string]interface{}{"id": ""}, false, "", false},
		{"int converted", map[string]interface{}{"id": 123}, true, "123", false},
		{"float64 converted", map[string]interface{}{"id": float64(456)}, true, "456", false},
		{"wrong type", map[string]interface{}{"id": map[string]interface{}{}}, true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetStringParam(tt.arguments, "id", tt.required)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetIntParam(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantErr bool
	}{
		{"float64 from JSON", float64(25), 25, false},
		{"int", 7, 7, false},
		{"int64", int64(9), 9, false},
		{"numeric string", "12", 12, false},
		{"non numeric string", "twelve", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetIntParam(map[string]interface{}{"n": tt.value}, "n", true)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := GetIntParam(map[string]interface{}{}, "n", true)
	assert.Error(t, err)
}

func TestGetBoolParam(t *testing.T) {
	got, err := GetBoolParam(map[string]interface{}{"b": true}, "b", false)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = GetBoolParam(map[string]interface{}{"b": "false"}, "b", false)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = GetBoolParam(map[string]interface{}{"b": "maybe"}, "b", false)
	assert.Error(t, err)

	_, err = GetBoolParam(map[string]interface{}{"b": 1}, "b", false)
	assert.Error(t, err)
}

func TestGetStringArrayParam(t *testing.T) {
	got, err := GetStringArrayParam(map[string]interface{}{"a": []interface{}{"x", "y"}}, "a", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)

	got, err = GetStringArrayParam(map[string]interface{}{"a": []string{"z"}}, "a", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, got)

	got, err = GetStringArrayParam(map[string]interface{}{}, "a", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = GetStringArrayParam(map[string]interface{}{"a": []interface{}{"x", 1}}, "a", true)
	assert.Error(t, err)

	_, err = GetStringArrayParam(map[string]interface{}{"a": "x"}, "a", true)
	assert.Error(t, err)
}

func TestRegionDefaultsToConfig(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	deps.Config.Region = "eu-central-1"
	base := NewBaseTool(deps)

	region, err := base.region(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", region)

	region, err = base.region(map[string]interface{}{"region": "ap-south-1"})
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", region)
}
