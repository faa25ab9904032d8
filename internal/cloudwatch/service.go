// Package cloudwatch implements the log group catalog and the Logs Insights
// query lifecycle on top of the CloudWatch Logs API.
package cloudwatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
)

// DefaultPollInterval is the wait between status fetches of a running query.
const DefaultPollInterval = time.Second

// ClientProvider returns the API client for a region.
type ClientProvider interface {
	ForRegion(ctx context.Context, region string) (client.LogsAPI, error)
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	DefaultRegion string
	PollInterval  time.Duration
}

// Service performs CloudWatch Logs operations for any region.
type Service struct {
	provider      ClientProvider
	logger        *zap.Logger
	metrics       *metrics.Metrics
	defaultRegion string
	pollInterval  time.Duration
}

// NewService creates a Service.
func NewService(provider ClientProvider, logger *zap.Logger, m *metrics.Metrics, opts Options) *Service {
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = "us-east-1"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Service{
		provider:      provider,
		logger:        logger,
		metrics:       m,
		defaultRegion: opts.DefaultRegion,
		pollInterval:  opts.PollInterval,
	}
}

// DefaultRegion is the region used when a caller passes "".
func (s *Service) DefaultRegion() string {
	return s.defaultRegion
}

func (s *Service) api(ctx context.Context, region string) (client.LogsAPI, string, error) {
	if region == "" {
		region = s.defaultRegion
	}
	api, err := s.provider.ForRegion(ctx, region)
	return api, region, err
}
