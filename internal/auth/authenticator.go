// Package auth resolves AWS configuration and credentials for CloudWatch Logs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go/middleware"
	"go.uber.org/zap"
)

// UserAgentKey identifies this server in the AWS user agent.
const UserAgentKey = "cloudwatch-logs-mcp-server"

// Options controls how the AWS configuration is loaded.
type Options struct {
	Region     string
	Profile    string // AWS_PROFILE; empty uses the default credential chain
	Version    string
	MaxRetries int
	Timeout    time.Duration
	// OnRetry is called before every retry attempt.
	OnRetry func(attempt int, err error)
}

// LoadAWSConfig loads the shared AWS configuration for one region.
func LoadAWSConfig(ctx context.Context, opts Options, logger *zap.Logger) (aws.Config, error) {
	if opts.Region == "" {
		return aws.Config{}, fmt.Errorf("region is required")
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithAPIOptions(
			[]func(*middleware.Stack) error{awsmiddleware.AddUserAgentKeyValue(UserAgentKey, version)},
		),
		awsconfig.WithRetryer(func() aws.Retryer {
			return newRetryer(opts.MaxRetries, opts.OnRetry)
		}),
	}
	if opts.Timeout > 0 {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(opts.Timeout)))
	}
	if opts.Profile != "" {
		logger.Info("Using AWS profile", zap.String("profile", opts.Profile), zap.String("region", opts.Region))
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	} else {
		logger.Info("Using default AWS credentials", zap.String("region", opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Error("Failed to load AWS configuration", zap.String("region", opts.Region), zap.Error(err))
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration for region %s: %w", opts.Region, err)
	}
	return cfg, nil
}

// CheckCredentials verifies that credentials can be resolved without
// calling CloudWatch Logs.
func CheckCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return errors.New("no AWS credentials provider configured")
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve AWS credentials: %w", err)
	}
	if !creds.HasKeys() {
		return errors.New("resolved AWS credentials are empty")
	}
	return nil
}

// retryer adds transient network failures to the standard retryable set and
// reports every retry.
type retryer struct {
	aws.RetryerV2
	onRetry func(attempt int, err error)
}

func newRetryer(maxRetries int, onRetry func(int, error)) aws.Retryer {
	standard := retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = maxRetries + 1
		o.Retryables = append(o.Retryables, retry.IsErrorRetryableFunc(func(err error) aws.Ternary {
			if isTransient(err) {
				return aws.TrueTernary
			}
			return aws.UnknownTernary
		}))
	})
	return &retryer{RetryerV2: standard, onRetry: onRetry}
}

// RetryDelay is called by the SDK before each retry.
func (r *retryer) RetryDelay(attempt int, err error) (time.Duration, error) {
	if r.onRetry != nil {
		r.onRetry(attempt, err)
	}
	return r.RetryerV2.RetryDelay(attempt, err)
}

// isTransient reports connection level failures that are safe to retry
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection reset", "connection refused", "i/o timeout", "tls handshake timeout"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
