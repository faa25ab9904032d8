package tools

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/analysis"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client/clienttest"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
)

const testGroupArn = "arn:aws:logs:us-east-1:123456789012:log-group:/app/api"

func TestAnalyzeLogGroupTool(t *testing.T) {
	fake := &clienttest.Fake{
		StartQueryFn: func(in *cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error) {
			return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("q-" + in.LogGroupIdentifiers[0])}, nil
		},
		GetQueryResultsFn: func(*cloudwatchlogs.GetQueryResultsInput) (*cloudwatchlogs.GetQueryResultsOutput, error) {
			return &cloudwatchlogs.GetQueryResultsOutput{
				Status: types.QueryStatusComplete,
				Results: [][]types.ResultField{{
					{Field: aws.String("@pattern"), Value: aws.String("GET /health <*>")},
					{Field: aws.String("@visualization"), Value: aws.String("{}")},
				}},
			}, nil
		},
	}
	deps, _ := newTestDeps(t, fake)

	result, err := NewAnalyzeLogGroupTool(deps).Execute(context.Background(), map[string]interface{}{
		"log_group_arn": testGroupArn,
		"start_time":    "2025-01-01T00:00:00Z",
		"end_time":      "2025-01-01T06:00:00Z",
	})
	require.NoError(t, err)

	var got models.AnalysisResult
	decodeResult(t, result, &got)
	assert.Empty(t, got.LogAnomalyResults.AnomalyDetectors)
	assert.Empty(t, got.LogAnomalyResults.Anomalies)
	require.NotNil(t, got.TopPatterns)
	require.NotNil(t, got.TopPatternsContainingErrors)
	assert.Equal(t, []models.Row{{"@pattern": "GET /health <*>"}}, got.TopPatterns.Results)
	assert.Equal(t, 2, fake.Calls("StartQuery"))
	assert.Equal(t, 1, fake.Calls("ListLogAnomalyDetectors"))
}

func TestAnalyzeLogGroupToolInvalidArguments(t *testing.T) {
	tests := []struct {
		name      string
		arguments map[string]interface{}
		want      string
	}{
		{
			name:      "missing arn",
			arguments: map[string]interface{}{"start_time": "2025-01-01T00:00:00Z", "end_time": "2025-01-01T01:00:00Z"},
			want:      "[INVALID_PARAMETER] missing required argument: log_group_arn",
		},
		{
			name:      "missing end",
			arguments: map[string]interface{}{"log_group_arn": testGroupArn, "start_time": "2025-01-01T00:00:00Z"},
			want:      "[INVALID_PARAMETER] missing required argument: end_time",
		},
		{
			name:      "bad start",
			arguments: map[string]interface{}{"log_group_arn": testGroupArn, "start_time": "soon", "end_time": "2025-01-01T01:00:00Z"},
			want:      "[INVALID_PARAMETER]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &clienttest.Fake{}
			deps, _ := newTestDeps(t, fake)
			result, err := NewAnalyzeLogGroupTool(deps).Execute(context.Background(), tt.arguments)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
			assert.Zero(t, fake.Calls("StartQuery"))
		})
	}
}

func TestAnalyzeLogGroupToolBudgetFollowsConfig(t *testing.T) {
	tests := []struct {
		name          string
		configDefault time.Duration
		want          time.Duration
	}{
		{"configured", 45 * time.Second, 45*time.Second + time.Minute},
		{"unset", 0, analysis.DefaultMaxWait + time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _ := newTestDeps(t, nil)
			deps.Config.DefaultQueryTimeout = tt.configDefault
			assert.Equal(t, tt.want, NewAnalyzeLogGroupTool(deps).DefaultTimeout())
		})
	}
}

func TestAnalyzeLogGroupToolPollsWithConfiguredBudget(t *testing.T) {
	fake := &clienttest.Fake{
		StartQueryFn: func(*cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error) {
			return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("q-1")}, nil
		},
		GetQueryResultsFn: func(*cloudwatchlogs.GetQueryResultsInput) (*cloudwatchlogs.GetQueryResultsOutput, error) {
			return &cloudwatchlogs.GetQueryResultsOutput{Status: types.QueryStatusRunning}, nil
		},
	}
	deps, _ := newTestDeps(t, fake)
	deps.Config.DefaultQueryTimeout = 20 * time.Millisecond

	result, err := NewAnalyzeLogGroupTool(deps).Execute(context.Background(), map[string]interface{}{
		"log_group_arn": testGroupArn,
		"start_time":    "2025-01-01T00:00:00Z",
		"end_time":      "2025-01-01T06:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "did not complete within 0.02 seconds")
}
