// Package analysis combines anomaly detection results with pattern queries to
// summarize what is happening in a log group.
package analysis

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/cloudwatch"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/timeutil"
)

// Canned Logs Insights queries.
const (
	PatternQuery      = "pattern @message | sort @sampleCount desc | limit 5"
	ErrorPatternQuery = "fields @timestamp, @message | filter @message like /(?i)(error|exception|fail|timeout|fatal)/ | pattern @message | limit 5"

	patternLimit = 5
)

// DefaultMaxWait bounds each pattern query when the caller gives no budget.
const DefaultMaxWait = 30 * time.Second

// Window selects the log group and time range to analyze.
type Window struct {
	LogGroupArn string
	StartTime   string // ISO-8601
	EndTime     string // ISO-8601
	Region      string
}

// Analyzer runs anomaly lookups and pattern queries.
type Analyzer struct {
	provider cloudwatch.ClientProvider
	queries  *cloudwatch.Service
	logger   *zap.Logger
}

// New creates an Analyzer. Queries run through the given service.
func New(provider cloudwatch.ClientProvider, queries *cloudwatch.Service, logger *zap.Logger) *Analyzer {
	return &Analyzer{provider: provider, queries: queries, logger: logger}
}

// GetAnomalies lists the anomaly detectors watching the log group and the
// unsuppressed anomalies they found that overlap the window.
func (a *Analyzer) GetAnomalies(ctx context.Context, w Window) (*models.AnomalyResults, error) {
	start, err := timeutil.ParseISO8601(w.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := timeutil.ParseISO8601(w.EndTime)
	if err != nil {
		return nil, err
	}

	region := w.Region
	if region == "" {
		region = a.queries.DefaultRegion()
	}
	api, err := a.provider.ForRegion(ctx, region)
	if err != nil {
		return nil, err
	}

	detectors := make([]models.AnomalyDetector, 0)
	detectorPages := cloudwatchlogs.NewListLogAnomalyDetectorsPaginator(api, &cloudwatchlogs.ListLogAnomalyDetectorsInput{
		FilterLogGroupArn: aws.String(w.LogGroupArn),
	})
	for detectorPages.HasMorePages() {
		page, err := detectorPages.NextPage(ctx)
		if err != nil {
			a.logger.Error("Error listing anomaly detectors",
				zap.String("log_group_arn", w.LogGroupArn), zap.String("region", region), zap.Error(err))
			return nil, errors.Client("get log anomalies", err)
		}
		for _, d := range page.AnomalyDetectors {
			detectors = append(detectors, models.NewAnomalyDetector(d))
		}
	}

	var all []models.Anomaly
	for _, d := range detectors {
		anomalyPages := cloudwatchlogs.NewListAnomaliesPaginator(api, &cloudwatchlogs.ListAnomaliesInput{
			AnomalyDetectorArn: aws.String(d.AnomalyDetectorArn),
			SuppressionState:   types.SuppressionStateUnsuppressed,
		})
		for anomalyPages.HasMorePages() {
			page, err := anomalyPages.NextPage(ctx)
			if err != nil {
				a.logger.Error("Error listing anomalies",
					zap.String("detector_arn", d.AnomalyDetectorArn), zap.String("region", region), zap.Error(err))
				return nil, errors.Client("get log anomalies", err)
			}
			for _, an := range page.Anomalies {
				all = append(all, models.NewAnomaly(an))
			}
		}
	}

	applicable := make([]models.Anomaly, 0, len(all))
	for _, an := range all {
		ok, err := overlaps(an, w.LogGroupArn, start, end)
		if err != nil {
			return nil, err
		}
		if ok {
			applicable = append(applicable, an)
		}
	}

	a.logger.Info("Retrieved log anomalies",
		zap.String("log_group_arn", w.LogGroupArn),
		zap.Int("detectors", len(detectors)),
		zap.Int("anomalies", len(all)),
		zap.Int("applicable", len(applicable)),
	)
	return &models.AnomalyResults{AnomalyDetectors: detectors, Anomalies: applicable}, nil
}

// overlaps reports whether the anomaly belongs to the log group and its
// [firstSeen, lastSeen] range intersects [start, end], bounds included.
func overlaps(an models.Anomaly, logGroupArn string, start, end time.Time) (bool, error) {
	first, err := timeutil.ParseISO8601(an.FirstSeen)
	if err != nil {
		return false, err
	}
	last, err := timeutil.ParseISO8601(an.LastSeen)
	if err != nil {
		return false, err
	}
	if first.After(end) || last.Before(start) {
		return false, nil
	}
	for _, arn := range an.LogGroupArnList {
		if arn == logGroupArn {
			return true, nil
		}
	}
	return false, nil
}

// AnalyzePatterns returns the most common message patterns in the window.
func (a *Analyzer) AnalyzePatterns(ctx context.Context, w Window, maxWait time.Duration) (*models.QueryExecution, error) {
	return a.runPatternQuery(ctx, w, PatternQuery, maxWait)
}

// AnalyzeErrorPatterns returns the most common patterns among messages that
// look like errors.
func (a *Analyzer) AnalyzeErrorPatterns(ctx context.Context, w Window, maxWait time.Duration) (*models.QueryExecution, error) {
	return a.runPatternQuery(ctx, w, ErrorPatternQuery, maxWait)
}

func (a *Analyzer) runPatternQuery(ctx context.Context, w Window, query string, maxWait time.Duration) (*models.QueryExecution, error) {
	queryID, err := a.queries.StartQuery(ctx, cloudwatch.StartQueryInput{
		Region:              w.Region,
		LogGroupIdentifiers: []string{w.LogGroupArn},
		StartTime:           w.StartTime,
		EndTime:             w.EndTime,
		QueryString:         query,
		Limit:               patternLimit,
	})
	if err != nil {
		return nil, err
	}
	exec, err := a.queries.PollUntilComplete(ctx, w.Region, queryID, maxWait)
	if err != nil {
		return nil, err
	}
	exec.Results = cloudwatch.CleanPatterns(exec.Results)
	return exec, nil
}

// AnalyzeLogGroup runs the anomaly lookup and both pattern queries
// concurrently. The first failure cancels the others.
func (a *Analyzer) AnalyzeLogGroup(ctx context.Context, w Window, maxWait time.Duration) (*models.AnalysisResult, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if _, err := timeutil.ParseISO8601(w.StartTime); err != nil {
		return nil, err
	}
	if _, err := timeutil.ParseISO8601(w.EndTime); err != nil {
		return nil, err
	}

	var (
		anomalies *models.AnomalyResults
		patterns  *models.QueryExecution
		errs      *models.QueryExecution
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		anomalies, err = a.GetAnomalies(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		patterns, err = a.AnalyzePatterns(gctx, w, maxWait)
		return err
	})
	g.Go(func() error {
		var err error
		errs, err = a.AnalyzeErrorPatterns(gctx, w, maxWait)
		return err
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("Error analyzing log group", zap.String("log_group_arn", w.LogGroupArn), zap.Error(err))
		return nil, errors.Client("analyze log group", err)
	}

	return &models.AnalysisResult{
		LogAnomalyResults:           *anomalies,
		TopPatterns:                 patterns,
		TopPatternsContainingErrors: errs,
	}, nil
}
