package cloudwatch

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/timeutil"
)

// MaxQueryLimit is the largest number of rows StartQuery accepts.
const MaxQueryLimit = 10000

// StartQueryInput describes a Logs Insights query. Exactly one of
// LogGroupNames and LogGroupIdentifiers is normally set; empty fields are
// not sent.
type StartQueryInput struct {
	Region              string
	LogGroupNames       []string
	LogGroupIdentifiers []string
	StartTime           string // ISO-8601
	EndTime             string // ISO-8601
	QueryString         string
	Limit               int
}

// StartQuery starts a Logs Insights query and returns its id.
func (s *Service) StartQuery(ctx context.Context, in StartQueryInput) (string, error) {
	if in.Limit < 0 || in.Limit > MaxQueryLimit {
		return "", errors.InvalidParameter("limit must be between 0 (no limit) and %d, got %d", MaxQueryLimit, in.Limit)
	}
	start, err := timeutil.ISO8601ToEpochSeconds(in.StartTime)
	if err != nil {
		return "", err
	}
	end, err := timeutil.ISO8601ToEpochSeconds(in.EndTime)
	if err != nil {
		return "", err
	}

	api, region, err := s.api(ctx, in.Region)
	if err != nil {
		return "", err
	}

	params := &cloudwatchlogs.StartQueryInput{
		StartTime:           aws.Int64(start),
		EndTime:             aws.Int64(end),
		QueryString:         aws.String(in.QueryString),
		LogGroupNames:       in.LogGroupNames,
		LogGroupIdentifiers: in.LogGroupIdentifiers,
	}
	if in.Limit > 0 {
		params.Limit = aws.Int32(int32(in.Limit))
	}

	out, err := api.StartQuery(ctx, params)
	if err != nil {
		s.logger.Error("Error starting query",
			zap.String("region", region),
			zap.Strings("log_group_names", in.LogGroupNames),
			zap.Strings("log_group_identifiers", in.LogGroupIdentifiers),
			zap.Error(err),
		)
		return "", errors.Client("start query", err)
	}

	queryID := aws.ToString(out.QueryId)
	s.metrics.RecordQueryStarted()
	s.logger.Info("Started query", zap.String("query_id", queryID), zap.String("region", region))
	return queryID, nil
}

// FetchResults returns the current state of a query without waiting.
func (s *Service) FetchResults(ctx context.Context, region, queryID string) (*models.QueryExecution, error) {
	api, region, err := s.api(ctx, region)
	if err != nil {
		return nil, err
	}
	exec, err := fetch(ctx, api, queryID)
	if err != nil {
		s.logger.Error("Error getting query results",
			zap.String("query_id", queryID), zap.String("region", region), zap.Error(err))
		return nil, errors.Client("get query results", err)
	}
	s.logger.Info("Retrieved query results",
		zap.String("query_id", queryID), zap.String("status", exec.Status), zap.Int("rows", len(exec.Results)))
	return exec, nil
}

// PollUntilComplete fetches the query state until it is terminal or maxWait
// has elapsed, sleeping one poll interval between fetches. A terminal state
// is returned as soon as it is seen. Running out of time yields a Timeout
// error; the query keeps running remotely.
func (s *Service) PollUntilComplete(ctx context.Context, region, queryID string, maxWait time.Duration) (*models.QueryExecution, error) {
	api, region, err := s.api(ctx, region)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	for time.Since(start) < maxWait {
		s.metrics.RecordQueryPoll()
		exec, err := fetch(ctx, api, queryID)
		if err != nil {
			s.logger.Error("Error polling query",
				zap.String("query_id", queryID), zap.String("region", region), zap.Error(err))
			return nil, errors.Client("poll query results", err)
		}
		if models.IsTerminal(exec.Status) {
			s.logger.Info("Query finished",
				zap.String("query_id", queryID), zap.String("status", exec.Status), zap.Duration("elapsed", time.Since(start)))
			return exec, nil
		}

		wait := s.pollInterval
		if remaining := maxWait - time.Since(start); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Warn("Polling stopped",
				zap.String("query_id", queryID), zap.String("region", region), zap.Error(ctx.Err()))
			return nil, pollStopped(queryID, ctx.Err())
		case <-timer.C:
		}
	}

	bound := strconv.FormatFloat(maxWait.Seconds(), 'f', -1, 64)
	s.metrics.RecordPollTimeout()
	s.logger.Warn("Query did not complete in time",
		zap.String("query_id", queryID), zap.String("region", region), zap.Duration("max_wait", maxWait))
	return nil, errors.Timeout("Query %s did not complete within %s seconds", queryID, bound).
		WithDetails(map[string]interface{}{
			"query_id":         queryID,
			"max_wait_seconds": maxWait.Seconds(),
		})
}

// pollStopped maps a done context to an error kind: a deadline is a
// Timeout, a cancellation a client failure.
func pollStopped(queryID string, cause error) *errors.Error {
	if stderrors.Is(cause, context.DeadlineExceeded) {
		e := errors.Timeout("Query %s did not complete before the request deadline", queryID).
			WithDetails(map[string]interface{}{"query_id": queryID})
		e.Err = cause
		return e
	}
	return errors.Client("poll query results", cause)
}

// CancelQuery stops a running query and reports whether CloudWatch Logs
// accepted the request.
func (s *Service) CancelQuery(ctx context.Context, region, queryID string) (bool, error) {
	api, region, err := s.api(ctx, region)
	if err != nil {
		return false, err
	}
	out, err := api.StopQuery(ctx, &cloudwatchlogs.StopQueryInput{QueryId: aws.String(queryID)})
	if err != nil {
		s.logger.Error("Error stopping query",
			zap.String("query_id", queryID), zap.String("region", region), zap.Error(err))
		return false, errors.Client("stop query", err)
	}
	s.logger.Info("Stop query", zap.String("query_id", queryID), zap.Bool("success", out.Success))
	return out.Success, nil
}

func fetch(ctx context.Context, api client.LogsAPI, queryID string) (*models.QueryExecution, error) {
	out, err := api.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{QueryId: aws.String(queryID)})
	if err != nil {
		return nil, err
	}
	exec := &models.QueryExecution{
		QueryID: queryID,
		Status:  string(out.Status),
		Results: NormalizeRows(out.Results),
	}
	if out.Statistics != nil {
		exec.Statistics = models.QueryStatistics{
			BytesScanned:   out.Statistics.BytesScanned,
			RecordsMatched: out.Statistics.RecordsMatched,
			RecordsScanned: out.Statistics.RecordsScanned,
		}
	}
	return exec, nil
}
