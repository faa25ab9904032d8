package cloudwatch

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
)

// Fields produced by the pattern command that are dropped or trimmed before
// pattern results are returned.
const (
	fieldTokens        = "@tokens"
	fieldVisualization = "@visualization"
	fieldLogSamples    = "@logSamples"
)

// NormalizeRows turns GetQueryResults rows into field -> value maps, keeping
// row order. Fields without a name are skipped.
func NormalizeRows(rows [][]types.ResultField) []models.Row {
	out := make([]models.Row, 0, len(rows))
	for _, fields := range rows {
		row := make(models.Row, len(fields))
		for _, f := range fields {
			if f.Field == nil {
				continue
			}
			row[*f.Field] = aws.ToString(f.Value)
		}
		out = append(out, row)
	}
	return out
}

// CleanPatterns returns copies of pattern rows without token and
// visualization data and with at most one log sample. Input rows are not
// modified.
func CleanPatterns(rows []models.Row) []models.Row {
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		cleaned := make(models.Row, len(row))
		for k, v := range row {
			switch k {
			case fieldTokens, fieldVisualization:
				continue
			}
			cleaned[k] = v
		}
		if raw, ok := cleaned[fieldLogSamples].(string); ok {
			var samples []interface{}
			if err := json.Unmarshal([]byte(raw), &samples); err == nil {
				if len(samples) > 1 {
					samples = samples[:1]
				}
				if samples == nil {
					samples = []interface{}{}
				}
				cleaned[fieldLogSamples] = samples
			}
		}
		out = append(out, cleaned)
	}
	return out
}
