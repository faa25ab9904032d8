// Package models defines the JSON shapes returned by the CloudWatch Logs tools
// and their construction from AWS SDK types.
package models

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/sanitize"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/timeutil"
)

// Query statuses reported by GetQueryResults, plus the local pseudo-status
// used when the poll budget runs out.
const (
	StatusScheduled      = "Scheduled"
	StatusRunning        = "Running"
	StatusComplete       = "Complete"
	StatusFailed         = "Failed"
	StatusCancelled      = "Cancelled"
	StatusTimeout        = "Timeout"
	StatusUnknown        = "Unknown"
	StatusPollingTimeout = "Polling Timeout"
)

// IsTerminal reports whether a query in this status will not change again.
func IsTerminal(status string) bool {
	switch status {
	case StatusComplete, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// LogGroupMetadata describes one log group.
type LogGroupMetadata struct {
	LogGroupName         string   `json:"logGroupName"`
	LogGroupArn          string   `json:"logGroupArn"`
	CreationTime         string   `json:"creationTime"`
	RetentionInDays      *int32   `json:"retentionInDays"`
	MetricFilterCount    int32    `json:"metricFilterCount"`
	StoredBytes          int64    `json:"storedBytes"`
	KmsKeyID             *string  `json:"kmsKeyId"`
	DataProtectionStatus *string  `json:"dataProtectionStatus"`
	InheritedProperties  []string `json:"inheritedProperties"`
	LogGroupClass        string   `json:"logGroupClass"`
}

// NewLogGroupMetadata converts a DescribeLogGroups entry.
func NewLogGroupMetadata(g types.LogGroup) LogGroupMetadata {
	m := LogGroupMetadata{
		LogGroupName:        aws.ToString(g.LogGroupName),
		LogGroupArn:         aws.ToString(g.LogGroupArn),
		CreationTime:        timeutil.EpochMillisToISO8601(aws.ToInt64(g.CreationTime)),
		RetentionInDays:     g.RetentionInDays,
		MetricFilterCount:   aws.ToInt32(g.MetricFilterCount),
		StoredBytes:         aws.ToInt64(g.StoredBytes),
		KmsKeyID:            g.KmsKeyId,
		InheritedProperties: make([]string, 0, len(g.InheritedProperties)),
		LogGroupClass:       string(types.LogGroupClassStandard),
	}
	// Arn carries a trailing ":*" that LogGroupArn omits.
	if m.LogGroupArn == "" {
		m.LogGroupArn = strings.TrimSuffix(aws.ToString(g.Arn), ":*")
	}
	if g.DataProtectionStatus != "" {
		status := string(g.DataProtectionStatus)
		m.DataProtectionStatus = &status
	}
	for _, p := range g.InheritedProperties {
		m.InheritedProperties = append(m.InheritedProperties, string(p))
	}
	if g.LogGroupClass != "" {
		m.LogGroupClass = string(g.LogGroupClass)
	}
	return m
}

var (
	sourceClause = regexp.MustCompile(`SOURCE\s+logGroups\((.*?)\)`)
	namePrefix   = regexp.MustCompile(`namePrefix:\s*\[(.*?)\]`)
)

// SavedQuery is a saved Logs Insights query definition.
type SavedQuery struct {
	Name             string   `json:"name"`
	QueryString      string   `json:"queryString"`
	LogGroupNames    []string `json:"logGroupNames"`
	LogGroupPrefixes []string `json:"logGroupPrefixes"`
}

// NewSavedQuery builds a SavedQuery and derives its log group prefixes from a
// SOURCE logGroups(namePrefix: [...]) clause in the query string.
func NewSavedQuery(name, queryString string, logGroupNames []string) SavedQuery {
	return SavedQuery{
		Name:             name,
		QueryString:      queryString,
		LogGroupNames:    dedupe(logGroupNames),
		LogGroupPrefixes: ExtractPrefixes(queryString),
	}
}

// NewSavedQueryFromDefinition converts a DescribeQueryDefinitions entry.
func NewSavedQueryFromDefinition(d types.QueryDefinition) SavedQuery {
	return NewSavedQuery(aws.ToString(d.Name), aws.ToString(d.QueryString), d.LogGroupNames)
}

// ExtractPrefixes returns the namePrefix entries of a SOURCE clause, trimmed
// of whitespace and quotes. No clause yields an empty set.
func ExtractPrefixes(queryString string) []string {
	source := sourceClause.FindStringSubmatch(queryString)
	if source == nil {
		return []string{}
	}
	match := namePrefix.FindStringSubmatch(source[1])
	if match == nil {
		return []string{}
	}
	parts := strings.Split(match[1], ",")
	prefixes := make([]string, 0, len(parts))
	for _, p := range parts {
		prefixes = append(prefixes, strings.Trim(strings.TrimSpace(p), `'"`))
	}
	return dedupe(prefixes)
}

// AppliesTo reports whether the query targets any of the given log groups,
// by exact name or by prefix.
func (q SavedQuery) AppliesTo(logGroupNames []string) bool {
	for _, target := range logGroupNames {
		for _, name := range q.LogGroupNames {
			if name == target {
				return true
			}
		}
	}
	return len(sanitize.FilterByPrefix(logGroupNames, q.LogGroupPrefixes)) > 0
}

// LogsMetadata is the describe_log_groups result.
type LogsMetadata struct {
	LogGroupMetadata []LogGroupMetadata `json:"log_group_metadata"`
	SavedQueries     []SavedQuery       `json:"saved_queries"`
}

// AnomalyDetector is a log anomaly detector watching a log group.
type AnomalyDetector struct {
	AnomalyDetectorArn    string `json:"anomalyDetectorArn"`
	DetectorName          string `json:"detectorName"`
	AnomalyDetectorStatus string `json:"anomalyDetectorStatus"`
}

// NewAnomalyDetector converts a ListLogAnomalyDetectors entry.
func NewAnomalyDetector(d types.AnomalyDetector) AnomalyDetector {
	return AnomalyDetector{
		AnomalyDetectorArn:    aws.ToString(d.AnomalyDetectorArn),
		DetectorName:          aws.ToString(d.DetectorName),
		AnomalyDetectorStatus: string(d.AnomalyDetectorStatus),
	}
}

// LogSample is one log event attached to an anomaly.
type LogSample struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Anomaly is a detected log anomaly. Only the first log sample is kept.
type Anomaly struct {
	AnomalyDetectorArn string           `json:"anomalyDetectorArn"`
	LogGroupArnList    []string         `json:"logGroupArnList"`
	FirstSeen          string           `json:"firstSeen"`
	LastSeen           string           `json:"lastSeen"`
	Description        string           `json:"description"`
	Priority           string           `json:"priority"`
	PatternRegex       string           `json:"patternRegex"`
	PatternString      string           `json:"patternString"`
	LogSamples         []LogSample      `json:"logSamples"`
	Histogram          map[string]int64 `json:"histogram"`
}

// NewAnomaly converts a ListAnomalies entry, rendering every epoch value as
// ISO-8601.
func NewAnomaly(a types.Anomaly) Anomaly {
	m := Anomaly{
		AnomalyDetectorArn: aws.ToString(a.AnomalyDetectorArn),
		LogGroupArnList:    a.LogGroupArnList,
		FirstSeen:          timeutil.EpochMillisToISO8601(a.FirstSeen),
		LastSeen:           timeutil.EpochMillisToISO8601(a.LastSeen),
		Description:        aws.ToString(a.Description),
		Priority:           aws.ToString(a.Priority),
		PatternRegex:       aws.ToString(a.PatternRegex),
		PatternString:      aws.ToString(a.PatternString),
		LogSamples:         make([]LogSample, 0, 1),
		Histogram:          make(map[string]int64, len(a.Histogram)),
	}
	if m.LogGroupArnList == nil {
		m.LogGroupArnList = []string{}
	}
	if len(a.LogSamples) > 0 {
		s := a.LogSamples[0]
		m.LogSamples = append(m.LogSamples, LogSample{
			Timestamp: timeutil.EpochMillisToISO8601(aws.ToInt64(s.Timestamp)),
			Message:   aws.ToString(s.Message),
		})
	}
	for key, count := range a.Histogram {
		if ms, err := strconv.ParseInt(key, 10, 64); err == nil {
			key = timeutil.EpochMillisToISO8601(ms)
		}
		m.Histogram[key] = count
	}
	return m
}

// AnomalyResults holds the detectors watching a log group and the anomalies
// that overlap the requested window.
type AnomalyResults struct {
	AnomalyDetectors []AnomalyDetector `json:"anomaly_detectors"`
	Anomalies        []Anomaly         `json:"anomalies"`
}

// Row is one Logs Insights result row keyed by field name.
type Row map[string]interface{}

// QueryStatistics mirrors the statistics block of GetQueryResults.
type QueryStatistics struct {
	BytesScanned   float64 `json:"bytesScanned"`
	RecordsMatched float64 `json:"recordsMatched"`
	RecordsScanned float64 `json:"recordsScanned"`
}

// QueryExecution is the normalized state of a Logs Insights query.
type QueryExecution struct {
	QueryID    string          `json:"queryId"`
	Status     string          `json:"status"`
	Statistics QueryStatistics `json:"statistics"`
	Results    []Row           `json:"results"`
}

// PollTimeout is returned by execute_log_insights_query when the poll budget
// runs out before the query finishes.
type PollTimeout struct {
	QueryID string `json:"queryId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AnalysisResult is the analyze_log_group result.
type AnalysisResult struct {
	LogAnomalyResults           AnomalyResults  `json:"log_anomaly_results"`
	TopPatterns                 *QueryExecution `json:"top_patterns"`
	TopPatternsContainingErrors *QueryExecution `json:"top_patterns_containing_errors"`
}

// CancelResult is the cancel_logs_insight_query result.
type CancelResult struct {
	Success bool `json:"success"`
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
