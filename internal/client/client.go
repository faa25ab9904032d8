// Package client provides per-region CloudWatch Logs API clients with rate
// limiting, metrics and tracing applied to every call.
package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/auth"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cache"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/tracing"
)

// LogsAPI is the subset of the CloudWatch Logs API this server calls.
type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DescribeQueryDefinitions(ctx context.Context, params *cloudwatchlogs.DescribeQueryDefinitionsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeQueryDefinitionsOutput, error)
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
	StopQuery(ctx context.Context, params *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error)
	ListLogAnomalyDetectors(ctx context.Context, params *cloudwatchlogs.ListLogAnomalyDetectorsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.ListLogAnomalyDetectorsOutput, error)
	ListAnomalies(ctx context.Context, params *cloudwatchlogs.ListAnomaliesInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.ListAnomaliesOutput, error)
}

var _ LogsAPI = (*cloudwatchlogs.Client)(nil)

// Factory builds the raw API client for a region.
type Factory func(ctx context.Context, region string) (LogsAPI, error)

// Client hands out one instrumented LogsAPI per region. Clients are built on
// first use and cached for the life of the process.
type Client struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter
	factory Factory
	clients *cache.Store[LogsAPI]
}

// New creates a client that loads AWS configuration from the environment.
func New(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, version string) *Client {
	factory := func(ctx context.Context, region string) (LogsAPI, error) {
		awsCfg, err := auth.LoadAWSConfig(ctx, auth.Options{
			Region:     region,
			Profile:    cfg.Profile,
			Version:    version,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
			OnRetry: func(attempt int, err error) {
				m.RecordRetry()
				logger.Debug("Retrying CloudWatch Logs request",
					zap.String("region", region), zap.Int("attempt", attempt), zap.Error(err))
			},
		}, logger)
		if err != nil {
			return nil, err
		}
		return cloudwatchlogs.NewFromConfig(awsCfg), nil
	}
	return NewWithFactory(cfg, logger, m, factory)
}

// NewWithFactory creates a client whose raw API clients come from factory.
func NewWithFactory(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, factory Factory) *Client {
	var limiter *rate.Limiter
	if cfg.EnableRateLimit {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)
	}
	return &Client{
		logger:  logger,
		metrics: m,
		limiter: limiter,
		factory: factory,
		clients: cache.New[LogsAPI](),
	}
}

// ForRegion returns the cached client for region, creating it on first use.
// Concurrent callers for the same region share one client.
func (c *Client) ForRegion(ctx context.Context, region string) (LogsAPI, error) {
	api, err := c.clients.GetOrCreate(region, func() (LogsAPI, error) {
		raw, err := c.factory(ctx, region)
		if err != nil {
			return nil, err
		}
		c.logger.Info("Created CloudWatch Logs client", zap.String("region", region))
		return &instrumented{api: raw, region: region, owner: c}, nil
	})
	if err != nil {
		c.logger.Error("Error creating CloudWatch Logs client", zap.String("region", region), zap.Error(err))
		return nil, errors.Client(fmt.Sprintf("create AWS client for region %s", region), err)
	}
	return api, nil
}

// Regions lists the regions with a cached client, sorted.
func (c *Client) Regions() []string {
	regions := c.clients.Keys()
	sort.Strings(regions)
	return regions
}

// CacheStats reports how many region clients exist and how often a cached
// client was reused.
func (c *Client) CacheStats() map[string]interface{} {
	return c.clients.Stats()
}

// Close releases cached clients
func (c *Client) Close() error {
	for _, region := range c.clients.Keys() {
		c.clients.Delete(region)
	}
	return nil
}

// wait blocks until the rate limiter admits one request
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil || c.limiter.Allow() {
		return nil
	}
	c.metrics.RecordRateLimitWait()
	return c.limiter.Wait(ctx)
}

// instrumented wraps a raw API client.
type instrumented struct {
	api    LogsAPI
	region string
	owner  *Client
}

func invoke[T any](ctx context.Context, i *instrumented, operation string, call func(context.Context) (T, error)) (T, error) {
	if err := i.owner.wait(ctx); err != nil {
		var zero T
		return zero, err
	}

	ctx, span := tracing.AWSSpan(ctx, i.region, operation)
	defer span.End()

	start := time.Now()
	out, err := call(ctx)
	latency := time.Since(start)

	i.owner.metrics.RecordRequest(operation, err == nil, latency, errors.HTTPStatus(err))
	if err != nil {
		tracing.RecordError(span, err)
		i.owner.logger.Debug("CloudWatch Logs request failed",
			zap.String("operation", operation),
			zap.String("region", i.region),
			zap.Duration("latency", latency),
			zap.String("aws_error_code", errors.APIErrorCode(err)),
			zap.Error(err),
		)
		return out, err
	}
	tracing.SetSuccess(span)
	return out, nil
}

func (i *instrumented) DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	return invoke(ctx, i, "DescribeLogGroups", func(ctx context.Context) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
		return i.api.DescribeLogGroups(ctx, params, optFns...)
	})
}

func (i *instrumented) DescribeQueryDefinitions(ctx context.Context, params *cloudwatchlogs.DescribeQueryDefinitionsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeQueryDefinitionsOutput, error) {
	return invoke(ctx, i, "DescribeQueryDefinitions", func(ctx context.Context) (*cloudwatchlogs.DescribeQueryDefinitionsOutput, error) {
		return i.api.DescribeQueryDefinitions(ctx, params, optFns...)
	})
}

func (i *instrumented) StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error) {
	return invoke(ctx, i, "StartQuery", func(ctx context.Context) (*cloudwatchlogs.StartQueryOutput, error) {
		return i.api.StartQuery(ctx, params, optFns...)
	})
}

func (i *instrumented) GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	return invoke(ctx, i, "GetQueryResults", func(ctx context.Context) (*cloudwatchlogs.GetQueryResultsOutput, error) {
		return i.api.GetQueryResults(ctx, params, optFns...)
	})
}

func (i *instrumented) StopQuery(ctx context.Context, params *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error) {
	return invoke(ctx, i, "StopQuery", func(ctx context.Context) (*cloudwatchlogs.StopQueryOutput, error) {
		return i.api.StopQuery(ctx, params, optFns...)
	})
}

func (i *instrumented) ListLogAnomalyDetectors(ctx context.Context, params *cloudwatchlogs.ListLogAnomalyDetectorsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.ListLogAnomalyDetectorsOutput, error) {
	return invoke(ctx, i, "ListLogAnomalyDetectors", func(ctx context.Context) (*cloudwatchlogs.ListLogAnomalyDetectorsOutput, error) {
		return i.api.ListLogAnomalyDetectors(ctx, params, optFns...)
	})
}

func (i *instrumented) ListAnomalies(ctx context.Context, params *cloudwatchlogs.ListAnomaliesInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.ListAnomaliesOutput, error) {
	return invoke(ctx, i, "ListAnomalies", func(ctx context.Context) (*cloudwatchlogs.ListAnomaliesOutput, error) {
		return i.api.ListAnomalies(ctx, params, optFns...)
	})
}
