package tools

import (
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/analysis"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cloudwatch"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
)

// Deps are the services tools dispatch to.
type Deps struct {
	Logs     *cloudwatch.Service
	Analyzer *analysis.Analyzer
	Docs     *docs.Library
	Config   *config.Config
	Logger   *zap.Logger
}

// BaseTool provides common functionality for all tools
type BaseTool struct {
	deps   *Deps
	logger *zap.Logger
}

// NewBaseTool creates a new base tool
func NewBaseTool(deps *Deps) *BaseTool {
	return &BaseTool{deps: deps, logger: deps.Logger}
}

// DefaultTimeout defers to the configured tool timeout.
func (t *BaseTool) DefaultTimeout() time.Duration {
	return 0
}

// region returns the region argument or the configured default.
func (t *BaseTool) region(arguments map[string]interface{}) (string, error) {
	region, err := GetStringParam(arguments, "region", false)
	if err != nil {
		return "", err
	}
	if region == "" {
		region = t.deps.Config.Region
	}
	return region, nil
}

// regionSchema is shared by every tool that calls AWS.
func regionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "AWS region to query. Defaults to the server's configured region (AWS_REGION, us-east-1 when unset).",
		"examples":    []string{"us-east-1", "eu-west-1"},
	}
}

// timeSchema describes an ISO-8601 time argument.
func timeSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"format":      "date-time",
		"description": description + " ISO-8601, e.g. 2025-04-19T20:00:00+00:00.",
	}
}
