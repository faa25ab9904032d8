package cloudwatch

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/models"
)

// describeLogGroupsPageSize is the largest page DescribeLogGroups accepts.
const describeLogGroupsPageSize = 50

// ListLogGroupsInput filters a log group listing. Empty fields are not sent.
type ListLogGroupsInput struct {
	Region                string
	AccountIdentifiers    []string
	IncludeLinkedAccounts bool
	LogGroupClass         string
	NamePrefix            string
	MaxItems              int // 0 lists everything
}

// ListLogGroups pages through DescribeLogGroups until the listing is
// exhausted or MaxItems groups have been collected.
func (s *Service) ListLogGroups(ctx context.Context, in ListLogGroupsInput) ([]models.LogGroupMetadata, error) {
	api, region, err := s.api(ctx, in.Region)
	if err != nil {
		return nil, err
	}

	params := &cloudwatchlogs.DescribeLogGroupsInput{
		AccountIdentifiers: in.AccountIdentifiers,
		LogGroupClass:      types.LogGroupClass(in.LogGroupClass),
	}
	if in.IncludeLinkedAccounts {
		params.IncludeLinkedAccounts = aws.Bool(true)
	}
	if in.NamePrefix != "" {
		params.LogGroupNamePrefix = aws.String(in.NamePrefix)
	}
	if in.MaxItems > 0 && in.MaxItems < describeLogGroupsPageSize {
		params.Limit = aws.Int32(int32(in.MaxItems))
	}

	groups := make([]models.LogGroupMetadata, 0)
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(api, params)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("Error describing log groups",
				zap.String("region", region), zap.String("prefix", in.NamePrefix), zap.Error(err))
			return nil, errors.Client("describe log groups", err)
		}
		for _, g := range page.LogGroups {
			groups = append(groups, models.NewLogGroupMetadata(g))
			if in.MaxItems > 0 && len(groups) >= in.MaxItems {
				s.logger.Info("Retrieved log groups", zap.String("region", region), zap.Int("count", len(groups)))
				return groups, nil
			}
		}
	}

	s.logger.Info("Retrieved log groups", zap.String("region", region), zap.Int("count", len(groups)))
	return groups, nil
}

// ListSavedQueries returns the saved Logs Insights queries that apply to any
// of the target log groups, by exact name or by a SOURCE namePrefix.
func (s *Service) ListSavedQueries(ctx context.Context, region string, targetLogGroups []string) ([]models.SavedQuery, error) {
	api, region, err := s.api(ctx, region)
	if err != nil {
		return nil, err
	}

	// DescribeQueryDefinitions has no paginator.
	var all []models.SavedQuery
	var nextToken *string
	for {
		out, err := api.DescribeQueryDefinitions(ctx, &cloudwatchlogs.DescribeQueryDefinitionsInput{
			NextToken:     nextToken,
			QueryLanguage: types.QueryLanguageCwli,
		})
		if err != nil {
			s.logger.Error("Error getting saved queries", zap.String("region", region), zap.Error(err))
			return nil, errors.Client("get saved queries", err)
		}
		for _, d := range out.QueryDefinitions {
			all = append(all, models.NewSavedQueryFromDefinition(d))
		}
		nextToken = out.NextToken
		if aws.ToString(nextToken) == "" {
			break
		}
	}

	applicable := make([]models.SavedQuery, 0, len(all))
	for _, q := range all {
		if q.AppliesTo(targetLogGroups) {
			applicable = append(applicable, q)
		}
	}

	s.logger.Info("Retrieved saved queries",
		zap.String("region", region),
		zap.Int("total", len(all)),
		zap.Int("applicable", len(applicable)),
	)
	return applicable, nil
}

// DescribeLogGroups lists log groups and the saved queries that apply to them.
func (s *Service) DescribeLogGroups(ctx context.Context, in ListLogGroupsInput) (*models.LogsMetadata, error) {
	groups, err := s.ListLogGroups(ctx, in)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.LogGroupName)
	}
	queries, err := s.ListSavedQueries(ctx, in.Region, names)
	if err != nil {
		return nil, err
	}

	return &models.LogsMetadata{LogGroupMetadata: groups, SavedQueries: queries}, nil
}
