package tools

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client/clienttest"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
)

func queryArgs(extra map[string]interface{}) map[string]interface{} {
	args := map[string]interface{}{
		"log_group_names": []interface{}{"/app/api"},
		"query_string":    "fields @timestamp, @message | limit 5",
		"start_time":      "2025-01-01T00:00:00+00:00",
		"end_time":        "2025-01-01T01:00:00+00:00",
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

// queryFake serves one query that reports status on every fetch.
func queryFake(status types.QueryStatus) *clienttest.Fake {
	return &clienttest.Fake{
		StartQueryFn: func(*cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error) {
			return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("q-1")}, nil
		},
		GetQueryResultsFn: func(*cloudwatchlogs.GetQueryResultsInput) (*cloudwatchlogs.GetQueryResultsOutput, error) {
			return &cloudwatchlogs.GetQueryResultsOutput{
				Status: status,
				Results: [][]types.ResultField{{
					{Field: aws.String("@message"), Value: aws.String("hello")},
				}},
				Statistics: &types.QueryStatistics{RecordsMatched: 1, RecordsScanned: 10, BytesScanned: 100},
			}, nil
		},
	}
}

func TestExecuteQueryTool(t *testing.T) {
	var started *cloudwatchlogs.StartQueryInput
	fake := queryFake(types.QueryStatusComplete)
	start := fake.StartQueryFn
	fake.StartQueryFn = func(in *cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error) {
		started = in
		return start(in)
	}
	deps, _ := newTestDeps(t, fake)

	result, err := NewExecuteQueryTool(deps).Execute(context.Background(), queryArgs(map[string]interface{}{
		"limit": float64(5),
	}))
	require.NoError(t, err)

	var execution models.QueryExecution
	decodeResult(t, result, &execution)
	assert.Equal(t, "q-1", execution.QueryID)
	assert.Equal(t, "Complete", execution.Status)
	assert.Equal(t, []models.Row{{"@message": "hello"}}, execution.Results)
	assert.Equal(t, float64(10), execution.Statistics.RecordsScanned)

	require.NotNil(t, started)
	assert.Equal(t, []string{"/app/api"}, started.LogGroupNames)
	assert.Equal(t, int64(1735689600), aws.ToInt64(started.StartTime))
	assert.Equal(t, int64(1735693200), aws.ToInt64(started.EndTime))
	assert.Equal(t, int32(5), aws.ToInt32(started.Limit))
}

func TestExecuteQueryToolLogGroupSelection(t *testing.T) {
	tooMany := make([]interface{}, maxQueryLogGroups+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("/app/%d", i)
	}

	tests := []struct {
		name  string
		names interface{}
		ids   interface{}
		want  string
	}{
		{"neither", nil, nil, "Exactly one of log_group_names or log_group_identifiers must be provided"},
		{"both", []interface{}{"/app/a"}, []interface{}{"/app/b"}, "Exactly one of log_group_names or log_group_identifiers must be provided"},
		{"empty names", []interface{}{}, nil, "Exactly one of log_group_names or log_group_identifiers must be provided"},
		{"too many", tooMany, nil, "At most 50 log groups can be queried at once, got 51"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := queryFake(types.QueryStatusComplete)
			deps, _ := newTestDeps(t, fake)
			args := queryArgs(nil)
			delete(args, "log_group_names")
			if tt.names != nil {
				args["log_group_names"] = tt.names
			}
			if tt.ids != nil {
				args["log_group_identifiers"] = tt.ids
			}

			result, err := NewExecuteQueryTool(deps).Execute(context.Background(), args)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Equal(t, "[INVALID_PARAMETER] "+tt.want, resultText(t, result))
			assert.Zero(t, fake.Calls("StartQuery"))
		})
	}
}

func TestExecuteQueryToolIdentifiers(t *testing.T) {
	var started *cloudwatchlogs.StartQueryInput
	fake := queryFake(types.QueryStatusComplete)
	start := fake.StartQueryFn
	fake.StartQueryFn = func(in *cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error) {
		started = in
		return start(in)
	}
	deps, _ := newTestDeps(t, fake)
	args := queryArgs(map[string]interface{}{
		"log_group_identifiers": []interface{}{"arn:aws:logs:us-east-1:123456789012:log-group:/app/api"},
	})
	delete(args, "log_group_names")

	result, err := NewExecuteQueryTool(deps).Execute(context.Background(), args)
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))
	assert.Empty(t, started.LogGroupNames)
	assert.Len(t, started.LogGroupIdentifiers, 1)
}

func TestExecuteQueryToolPollingTimeout(t *testing.T) {
	tests := []struct {
		name          string
		maxTimeout    interface{}
		configDefault time.Duration
		configMax     time.Duration
		wantSeconds   string
		wantMinChecks int
	}{
		{"zero budget", float64(0), 30 * time.Second, 10 * time.Minute, "0", 0},
		{"clamped to configured maximum", float64(600), 30 * time.Second, 20 * time.Millisecond, "0.02", 1},
		{"huge value clamped", float64(1e10), 30 * time.Second, 20 * time.Millisecond, "0.02", 1},
		{"configured default", nil, 20 * time.Millisecond, 10 * time.Minute, "0.02", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := queryFake(types.QueryStatusRunning)
			deps, _ := newTestDeps(t, fake)
			deps.Config.DefaultQueryTimeout = tt.configDefault
			deps.Config.MaxQueryTimeout = tt.configMax

			args := queryArgs(nil)
			if tt.maxTimeout != nil {
				args["max_timeout"] = tt.maxTimeout
			}
			result, err := NewExecuteQueryTool(deps).Execute(context.Background(), args)
			require.NoError(t, err)

			var timeout models.PollTimeout
			decodeResult(t, result, &timeout)
			assert.Equal(t, "q-1", timeout.QueryID)
			assert.Equal(t, "Polling Timeout", timeout.Status)
			assert.Equal(t, "Query q-1 did not complete within "+tt.wantSeconds+" seconds. "+
				"Use get_logs_insight_query_results with the returned queryId to try again to retrieve query results.",
				timeout.Message)
			assert.GreaterOrEqual(t, fake.Calls("GetQueryResults"), tt.wantMinChecks)
		})
	}
}

func TestExecuteQueryToolHugeTimeoutStillPolls(t *testing.T) {
	fake := queryFake(types.QueryStatusComplete)
	deps, _ := newTestDeps(t, fake)

	result, err := NewExecuteQueryTool(deps).Execute(context.Background(), queryArgs(map[string]interface{}{
		"max_timeout": float64(1e10),
	}))
	require.NoError(t, err)

	var execution models.QueryExecution
	decodeResult(t, result, &execution)
	assert.Equal(t, "Complete", execution.Status)
	assert.Equal(t, 1, fake.Calls("GetQueryResults"))
}

func TestExecuteQueryToolSchemaDefaultFollowsConfig(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	deps.Config.DefaultQueryTimeout = 45 * time.Second

	schema := NewExecuteQueryTool(deps).InputSchema().(map[string]interface{})
	props := schema["properties"].(map[string]interface{})
	maxTimeout := props["max_timeout"].(map[string]interface{})
	assert.Equal(t, 45, maxTimeout["default"])
}

func TestExecuteQueryToolFailures(t *testing.T) {
	tests := []struct {
		name   string
		args   map[string]interface{}
		mutate func(*clienttest.Fake)
		want   string
	}{
		{
			name: "bad start time",
			args: queryArgs(map[string]interface{}{"start_time": "yesterday"}),
			want: "[INVALID_PARAMETER]",
		},
		{
			name: "negative timeout",
			args: queryArgs(map[string]interface{}{"max_timeout": float64(-1)}),
			want: "[INVALID_PARAMETER] max_timeout must not be negative",
		},
		{
			name: "oversized limit",
			args: queryArgs(map[string]interface{}{"limit": float64(4294967297)}),
			want: "[INVALID_PARAMETER] limit must not exceed 10000, got 4294967297",
		},
		{
			name: "missing query",
			args: queryArgs(map[string]interface{}{"query_string": ""}),
			want: "[INVALID_PARAMETER] argument query_string must not be empty",
		},
		{
			name: "start rejected",
			args: queryArgs(nil),
			mutate: func(f *clienttest.Fake) {
				f.StartQueryFn = func(*cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error) {
					return nil, stderrors.New("malformed")
				}
			},
			want: "[AWS_CLIENT_ERROR] Failed to start query: malformed",
		},
		{
			name: "poll rejected",
			args: queryArgs(nil),
			mutate: func(f *clienttest.Fake) {
				f.GetQueryResultsFn = func(*cloudwatchlogs.GetQueryResultsInput) (*cloudwatchlogs.GetQueryResultsOutput, error) {
					return nil, stderrors.New("gone")
				}
			},
			want: "[AWS_CLIENT_ERROR] Failed to poll query results: gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := queryFake(types.QueryStatusComplete)
			if tt.mutate != nil {
				tt.mutate(fake)
			}
			deps, _ := newTestDeps(t, fake)

			result, err := NewExecuteQueryTool(deps).Execute(context.Background(), tt.args)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestExecuteQueryToolTimeoutCoversBudget(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	deps.Config.MaxQueryTimeout = time.Minute
	assert.Equal(t, time.Minute+toolTimeoutMargin, NewExecuteQueryTool(deps).DefaultTimeout())
}

func TestGetQueryResultsTool(t *testing.T) {
	fake := queryFake(types.QueryStatusRunning)
	deps, provider := newTestDeps(t, fake)

	result, err := NewGetQueryResultsTool(deps).Execute(context.Background(), map[string]interface{}{
		"query_id": "q-1",
		"region":   "us-west-2",
	})
	require.NoError(t, err)

	var execution models.QueryExecution
	decodeResult(t, result, &execution)
	assert.Equal(t, "q-1", execution.QueryID)
	assert.Equal(t, "Running", execution.Status)
	assert.Equal(t, 1, fake.Calls("GetQueryResults"))
	assert.Equal(t, []string{"us-west-2"}, provider.Regions())

	result, err = NewGetQueryResultsTool(deps).Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "[INVALID_PARAMETER] missing required argument: query_id", resultText(t, result))
}

func TestCancelQueryTool(t *testing.T) {
	tests := []struct {
		name        string
		success     bool
		err         error
		wantSuccess bool
		wantError   string
	}{
		{name: "running query stopped", success: true, wantSuccess: true},
		{name: "already finished", success: false, wantSuccess: false},
		{name: "remote failure", err: stderrors.New("throttled"), wantError: "[AWS_CLIENT_ERROR] Failed to stop query: throttled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &clienttest.Fake{
				StopQueryFn: func(in *cloudwatchlogs.StopQueryInput) (*cloudwatchlogs.StopQueryOutput, error) {
					assert.Equal(t, "q-1", aws.ToString(in.QueryId))
					if tt.err != nil {
						return nil, tt.err
					}
					return &cloudwatchlogs.StopQueryOutput{Success: tt.success}, nil
				},
			}
			deps, _ := newTestDeps(t, fake)

			result, err := NewCancelQueryTool(deps).Execute(context.Background(), map[string]interface{}{"query_id": "q-1"})
			require.NoError(t, err)
			if tt.wantError != "" {
				assert.True(t, result.IsError)
				assert.Equal(t, tt.wantError, resultText(t, result))
				return
			}

			var cancel models.CancelResult
			decodeResult(t, result, &cancel)
			assert.Equal(t, tt.wantSuccess, cancel.Success)
		})
	}
}
