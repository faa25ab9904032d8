// Package main implements the CloudWatch Logs MCP (Model Context Protocol) server.
//
// This server provides MCP tools for Amazon CloudWatch Logs: log group
// discovery, Logs Insights queries, anomaly analysis and query syntax help.
// It is read-only and never modifies log groups or their data.
//
// The server communicates using the MCP protocol over stdio by default, making
// it compatible with Claude Desktop and other MCP clients. Set
// LOGS_TRANSPORT=http to serve the streamable HTTP transport instead.
//
// Configuration is provided through environment variables:
//   - AWS_REGION: default region for tools called without one (default us-east-1)
//   - AWS_PROFILE: (Optional) shared config profile; otherwise the default credential chain
//   - CONFIG_FILE: (Optional) YAML or JSON file with the same keys
//   - ENVIRONMENT: (Optional) Set to "production" for production logging
//
// Example usage:
//
//	export AWS_PROFILE=observability
//	export AWS_REGION=eu-west-1
//	./cloudwatch-logs-mcp-server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/server"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/tracing"
)

// Build information - set at build time via ldflags
// e.g. -X main.version=v0.1.0 -X main.commit=$(git rev-parse HEAD)
var (
	version = "dev"
	commit  = "unknown"
	builtBy = "manual"
)

const serviceName = "cloudwatch-logs-mcp-server"

func main() {
	// Load .env file if it exists (optional, for development)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "MCP server for Amazon CloudWatch Logs",
		Long: `An MCP server exposing read-only CloudWatch Logs tools: log group discovery,
Logs Insights query execution, anomaly analysis and query syntax documentation.

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		serveCmd(),
		versionCmd(),
		docsCmd(),
	)
	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		RunE:  runServe,
	}
	cmd.Flags().String("transport", "", "override LOGS_TRANSPORT (stdio, http)")
	cmd.Flags().String("region", "", "override AWS_REGION")
	return cmd
}

// runServe starts the server and blocks until a shutdown signal or a server error.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if f := cmd.Flags().Lookup("transport"); f != nil && f.Value.String() != "" {
		cfg.Transport = f.Value.String()
	}
	if f := cmd.Flags().Lookup("region"); f != nil && f.Value.String() != "" {
		cfg.Region = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Ignore error on cleanup
	}()

	shutdownTracing, err := tracing.InitOTel(tracing.OTelConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    os.Getenv("ENVIRONMENT"),
		Enabled:        cfg.EnableTracing,
		Writer:         os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	redacted := cfg.Redact()
	logger.Info("Starting CloudWatch Logs MCP Server",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("built_by", builtBy),
		zap.String("region", redacted.Region),
		zap.String("profile", redacted.Profile),
		zap.String("transport", redacted.Transport),
	)

	mcpServer, err := server.New(cfg, logger, version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- mcpServer.Start(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
		return err
	}

	logger.Info("Initiating graceful shutdown", zap.Duration("timeout", cfg.ShutdownTimeout))
	cancel()

	select {
	case <-serverDone:
		logger.Info("Server shutdown complete")
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("Shutdown timeout exceeded, forcing exit",
			zap.Duration("timeout", cfg.ShutdownTimeout))
	}
	return nil
}

// initLogger builds a zap logger writing to stderr, since stdout carries the
// stdio transport. ENVIRONMENT=production selects the production preset.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if os.Getenv("ENVIRONMENT") == "production" {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level
	zapCfg.Encoding = cfg.LogFormat
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	return zapCfg.Build()
}
