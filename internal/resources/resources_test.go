package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/audit"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
)

func newTestRegistry(t *testing.T, auditEnabled bool) (*Registry, *audit.Logger, *metrics.Metrics) {
	t.Helper()
	logger := zap.NewNop()
	lib, err := docs.New("test")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Profile = "production-admin"
	m := metrics.New(logger)
	a := audit.NewLogger(logger, auditEnabled)

	return NewRegistry(Options{
		Config:    cfg,
		Metrics:   m,
		Audit:     a,
		Docs:      lib,
		ToolNames: []string{"describe_log_groups", "execute_log_insights_query"},
		Version:   "1.2.3",
	}, logger), a, m
}

func readJSON(t *testing.T, handler mcp.ResourceHandler, uri string) map[string]interface{} {
	t.Helper()
	result, err := handler(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, uri, result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &out))
	return out
}

func resourceHandler(t *testing.T, r *Registry, uri string) mcp.ResourceHandler {
	t.Helper()
	for _, res := range r.GetResources() {
		if res.Resource.URI == uri {
			return res.Handler
		}
	}
	t.Fatalf("resource %s not registered", uri)
	return nil
}

func TestGetResources(t *testing.T) {
	r, _, _ := newTestRegistry(t, true)

	var uris []string
	for _, res := range r.GetResources() {
		uris = append(uris, res.Resource.URI)
		assert.NotEmpty(t, res.Resource.Description)
		assert.NotNil(t, res.Handler)
	}
	assert.Equal(t, []string{"about://service", "config://current", "metrics://server", "audit://recent"}, uris)
}

func TestAboutResource(t *testing.T) {
	r, _, _ := newTestRegistry(t, true)

	out := readJSON(t, resourceHandler(t, r, "about://service"), "about://service")
	server := out["mcp_server"].(map[string]interface{})
	assert.Equal(t, "1.2.3", server["version"])
	assert.Equal(t, float64(2), server["tool_count"])

	query := out["query_language"].(map[string]interface{})
	assert.Equal(t, "CloudWatch Logs Insights", query["name"])
	assert.NotNil(t, query["stats"])
}

func TestConfigResourceMasksProfile(t *testing.T) {
	r, _, _ := newTestRegistry(t, true)

	out := readJSON(t, resourceHandler(t, r, "config://current"), "config://current")
	assert.Equal(t, "us-east-1", out["region"])
	assert.NotEqual(t, "production-admin", out["profile"])
	assert.Equal(t, "1s", out["poll_interval"])
	assert.Equal(t, "10m0s", out["max_query_timeout"])
}

func TestMetricsResource(t *testing.T) {
	r, _, m := newTestRegistry(t, true)
	m.RecordToolExecution("describe_log_groups", true, 40*time.Millisecond)
	m.RecordQueryStarted()

	out := readJSON(t, resourceHandler(t, r, "metrics://server"), "metrics://server")
	queries := out["queries"].(map[string]interface{})
	assert.Equal(t, float64(1), queries["started"])

	tools := out["tools"].(map[string]interface{})
	assert.Equal(t, float64(1), tools["usage"].(map[string]interface{})["describe_log_groups"])
	assert.Equal(t, float64(40), tools["latency"].(map[string]interface{})["describe_log_groups"])
}

func TestAuditResource(t *testing.T) {
	tests := []struct {
		name        string
		enabled     bool
		wantEnabled bool
	}{
		{"enabled", true, true},
		{"disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, a, _ := newTestRegistry(t, tt.enabled)
			a.Log(context.Background(), audit.Entry{Tool: "describe_log_groups", Success: true})

			out := readJSON(t, resourceHandler(t, r, "audit://recent"), "audit://recent")
			assert.Equal(t, tt.wantEnabled, out["enabled"])
			if tt.wantEnabled {
				entries := out["entries"].([]interface{})
				require.Len(t, entries, 1)
				assert.Equal(t, "describe_log_groups", entries[0].(map[string]interface{})["tool"])
			} else {
				assert.NotEmpty(t, out["message"])
			}
		})
	}
}

func TestResourceTemplates(t *testing.T) {
	r, _, _ := newTestRegistry(t, true)

	templates := r.GetResourceTemplates()
	require.Len(t, templates, 2)
	assert.Equal(t, "docs://commands/{name}", templates[0].URITemplate)
	assert.Equal(t, "docs://functions/{category}", templates[1].URITemplate)
	assert.Contains(t, templates[0].Description, "stats")
}

func TestTemplateHandler(t *testing.T) {
	r, _, _ := newTestRegistry(t, true)
	handler := r.GetTemplateHandler()

	tests := []struct {
		name      string
		uri       string
		wantType  string
		wantError bool
	}{
		{"command", "docs://commands/filter", "command", false},
		{"function category", "docs://functions/string", "function", false},
		{"unknown command", "docs://commands/select", "", true},
		{"unknown category", "docs://functions/nope", "", true},
		{"missing name", "docs://commands/", "", true},
		{"other scheme", "file:///etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), &mcp.ReadResourceRequest{
				Params: &mcp.ReadResourceParams{URI: tt.uri},
			})
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var doc map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &doc))
			assert.Equal(t, tt.wantType, doc["query_type"])
		})
	}
}

func TestMatchTemplate(t *testing.T) {
	assert.True(t, matchTemplate("docs://commands/stats", commandPrefix))
	assert.False(t, matchTemplate("docs://commands/", commandPrefix))
	assert.False(t, matchTemplate("docs://functions/string", commandPrefix))
	assert.Equal(t, "stats", extractTemplateName("docs://commands/stats", commandPrefix))
}
