// Package clienttest provides an in-memory client.LogsAPI for tests.
package clienttest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client"
)

var _ client.LogsAPI = (*Fake)(nil)

// Fake implements client.LogsAPI. Each method delegates to the matching Fn
// field; an unset field returns an empty output. Calls are counted by
// operation name.
type Fake struct {
	DescribeLogGroupsFn        func(*cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DescribeQueryDefinitionsFn func(*cloudwatchlogs.DescribeQueryDefinitionsInput) (*cloudwatchlogs.DescribeQueryDefinitionsOutput, error)
	StartQueryFn               func(*cloudwatchlogs.StartQueryInput) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResultsFn          func(*cloudwatchlogs.GetQueryResultsInput) (*cloudwatchlogs.GetQueryResultsOutput, error)
	StopQueryFn                func(*cloudwatchlogs.StopQueryInput) (*cloudwatchlogs.StopQueryOutput, error)
	ListLogAnomalyDetectorsFn  func(*cloudwatchlogs.ListLogAnomalyDetectorsInput) (*cloudwatchlogs.ListLogAnomalyDetectorsOutput, error)
	ListAnomaliesFn            func(*cloudwatchlogs.ListAnomaliesInput) (*cloudwatchlogs.ListAnomaliesOutput, error)

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times operation was invoked.
func (f *Fake) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

func (f *Fake) record(operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[operation]++
}

func (f *Fake) DescribeLogGroups(_ context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	f.record("DescribeLogGroups")
	if f.DescribeLogGroupsFn == nil {
		return &cloudwatchlogs.DescribeLogGroupsOutput{}, nil
	}
	return f.DescribeLogGroupsFn(in)
}

func (f *Fake) DescribeQueryDefinitions(_ context.Context, in *cloudwatchlogs.DescribeQueryDefinitionsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeQueryDefinitionsOutput, error) {
	f.record("DescribeQueryDefinitions")
	if f.DescribeQueryDefinitionsFn == nil {
		return &cloudwatchlogs.DescribeQueryDefinitionsOutput{}, nil
	}
	return f.DescribeQueryDefinitionsFn(in)
}

func (f *Fake) StartQuery(_ context.Context, in *cloudwatchlogs.StartQueryInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error) {
	f.record("StartQuery")
	if f.StartQueryFn == nil {
		return &cloudwatchlogs.StartQueryOutput{}, nil
	}
	return f.StartQueryFn(in)
}

func (f *Fake) GetQueryResults(_ context.Context, in *cloudwatchlogs.GetQueryResultsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	f.record("GetQueryResults")
	if f.GetQueryResultsFn == nil {
		return &cloudwatchlogs.GetQueryResultsOutput{}, nil
	}
	return f.GetQueryResultsFn(in)
}

func (f *Fake) StopQuery(_ context.Context, in *cloudwatchlogs.StopQueryInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error) {
	f.record("StopQuery")
	if f.StopQueryFn == nil {
		return &cloudwatchlogs.StopQueryOutput{}, nil
	}
	return f.StopQueryFn(in)
}

func (f *Fake) ListLogAnomalyDetectors(_ context.Context, in *cloudwatchlogs.ListLogAnomalyDetectorsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.ListLogAnomalyDetectorsOutput, error) {
	f.record("ListLogAnomalyDetectors")
	if f.ListLogAnomalyDetectorsFn == nil {
		return &cloudwatchlogs.ListLogAnomalyDetectorsOutput{}, nil
	}
	return f.ListLogAnomalyDetectorsFn(in)
}

func (f *Fake) ListAnomalies(_ context.Context, in *cloudwatchlogs.ListAnomaliesInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.ListAnomaliesOutput, error) {
	f.record("ListAnomalies")
	if f.ListAnomaliesFn == nil {
		return &cloudwatchlogs.ListAnomaliesOutput{}, nil
	}
	return f.ListAnomaliesFn(in)
}

// Provider serves the same Fake for every region and records the regions
// requested.
type Provider struct {
	API *Fake
	Err error

	mu      sync.Mutex
	regions []string
}

// ForRegion returns p.API, or p.Err when set.
func (p *Provider) ForRegion(_ context.Context, region string) (client.LogsAPI, error) {
	p.mu.Lock()
	p.regions = append(p.regions, region)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return p.API, nil
}

// Regions returns the regions requested so far, in order.
func (p *Provider) Regions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.regions...)
}
