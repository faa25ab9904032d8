package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// slowThreshold marks a reachable API as degraded.
const slowThreshold = 3 * time.Second

// Check represents a health check result
type Check struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// CredentialsFunc resolves AWS credentials without calling CloudWatch Logs.
type CredentialsFunc func(ctx context.Context) error

// Provider is the part of the API client the checker needs.
type Provider interface {
	ForRegion(ctx context.Context, region string) (client.LogsAPI, error)
	Regions() []string
}

// cacheReporter is implemented by providers that cache region clients.
type cacheReporter interface {
	CacheStats() map[string]interface{}
}

// Checker performs health checks
type Checker struct {
	credentials CredentialsFunc
	provider    Provider
	region      string
	logger      *zap.Logger
}

// New creates a health checker that tests connectivity in region.
func New(credentials CredentialsFunc, provider Provider, region string, logger *zap.Logger) *Checker {
	return &Checker{
		credentials: credentials,
		provider:    provider,
		region:      region,
		logger:      logger,
	}
}

// CheckAll performs all health checks
func (c *Checker) CheckAll(ctx context.Context) (Status, []Check) {
	checks := []Check{
		c.checkCredentials(ctx),
		c.checkAPIConnectivity(ctx),
		c.checkRegionClients(),
	}

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}
	return overall, checks
}

// checkCredentials verifies the credential chain resolves
func (c *Checker) checkCredentials(ctx context.Context) Check {
	start := time.Now()
	check := Check{Name: "aws_credentials", Timestamp: start}

	err := c.credentials(ctx)
	check.Duration = time.Since(start)
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Credential resolution failed: %v", err)
		c.logger.Error("Health check failed: aws_credentials",
			zap.Error(err),
			zap.Duration("duration", check.Duration),
		)
		return check
	}
	check.Status = StatusHealthy
	check.Message = "Credentials resolved"
	c.logger.Debug("Health check passed: aws_credentials", zap.Duration("duration", check.Duration))
	return check
}

// checkAPIConnectivity lists a single log group in the default region
func (c *Checker) checkAPIConnectivity(ctx context.Context) Check {
	start := time.Now()
	check := Check{Name: "api_connectivity", Timestamp: start}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	api, err := c.provider.ForRegion(checkCtx, c.region)
	if err == nil {
		_, err = api.DescribeLogGroups(checkCtx, &cloudwatchlogs.DescribeLogGroupsInput{Limit: aws.Int32(1)})
	}
	check.Duration = time.Since(start)

	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("CloudWatch Logs unreachable in %s: %v", c.region, err)
		c.logger.Warn("Health check failed: api_connectivity",
			zap.String("region", c.region),
			zap.Error(err),
			zap.Duration("duration", check.Duration),
		)
		return check
	}
	if check.Duration > slowThreshold {
		check.Status = StatusDegraded
		check.Message = "CloudWatch Logs responding slowly"
		return check
	}
	check.Status = StatusHealthy
	check.Message = "CloudWatch Logs reachable in " + c.region
	return check
}

// checkRegionClients reports the regions with a cached client and, when the
// provider keeps them, cache statistics. Informational.
func (c *Checker) checkRegionClients() Check {
	regions := c.provider.Regions()
	message := "No region clients created yet"
	if len(regions) > 0 {
		message = "Cached region clients: " + strings.Join(regions, ", ")
	}
	check := Check{
		Name:      "region_clients",
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
	if r, ok := c.provider.(cacheReporter); ok {
		check.Details = r.CacheStats()
	}
	return check
}
