package health

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/client/clienttest"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/config"
	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/metrics"
)

func credentialsOK(context.Context) error { return nil }

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name        string
		credentials CredentialsFunc
		providerErr error
		apiErr      error
		want        Status
		wantFailed  string
	}{
		{name: "healthy", credentials: credentialsOK, want: StatusHealthy},
		{
			name:        "no credentials",
			credentials: func(context.Context) error { return stderrors.New("no valid providers in chain") },
			want:        StatusUnhealthy,
			wantFailed:  "aws_credentials",
		},
		{
			name:        "api unreachable",
			credentials: credentialsOK,
			apiErr:      stderrors.New("dial tcp: i/o timeout"),
			want:        StatusUnhealthy,
			wantFailed:  "api_connectivity",
		},
		{
			name:        "client creation fails",
			credentials: credentialsOK,
			providerErr: stderrors.New("bad region"),
			want:        StatusUnhealthy,
			wantFailed:  "api_connectivity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *cloudwatchlogs.DescribeLogGroupsInput
			fake := &clienttest.Fake{
				DescribeLogGroupsFn: func(in *cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
					got = in
					return &cloudwatchlogs.DescribeLogGroupsOutput{}, tt.apiErr
				},
			}
			provider := &clienttest.Provider{API: fake, Err: tt.providerErr}
			checker := New(tt.credentials, provider, "eu-west-1", zap.NewNop())

			status, checks := checker.CheckAll(context.Background())
			assert.Equal(t, tt.want, status)
			require.Len(t, checks, 3)

			for _, c := range checks {
				if c.Name == tt.wantFailed {
					assert.Equal(t, StatusUnhealthy, c.Status)
				} else {
					assert.Equal(t, StatusHealthy, c.Status, c.Name)
				}
			}
			assert.Equal(t, "eu-west-1", provider.Regions()[0])
			if tt.providerErr == nil {
				assert.Equal(t, int32(1), aws.ToInt32(got.Limit))
			}
		})
	}
}

func TestRegionClientsCheckReportsCacheStats(t *testing.T) {
	cfg := config.Default()
	cfg.EnableRateLimit = false
	fake := &clienttest.Fake{}
	provider := client.NewWithFactory(cfg, zap.NewNop(), metrics.New(zap.NewNop()), func(context.Context, string) (client.LogsAPI, error) {
		return fake, nil
	})

	tests := []struct {
		name        string
		provider    Provider
		wantMessage string
		wantDetails map[string]interface{}
	}{
		{
			name:        "caching client",
			provider:    provider,
			wantMessage: "Cached region clients: eu-west-1",
			wantDetails: map[string]interface{}{"size": 1, "total_hits": 1},
		},
		{
			name:        "provider without cache",
			provider:    &clienttest.Provider{API: fake},
			wantMessage: "Cached region clients: eu-west-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(credentialsOK, tt.provider, "eu-west-1", zap.NewNop())
			// The connectivity check creates the client, the second run reuses it.
			checker.CheckAll(context.Background())
			_, checks := checker.CheckAll(context.Background())

			require.Len(t, checks, 3)
			regionClients := checks[2]
			assert.Equal(t, "region_clients", regionClients.Name)
			assert.Contains(t, regionClients.Message, tt.wantMessage)
			assert.Equal(t, tt.wantDetails, regionClients.Details)
		})
	}
}

func newTestServer(registry *prometheus.Registry) *Server {
	checker := New(credentialsOK, &clienttest.Provider{API: &clienttest.Fake{}}, "us-east-1", zap.NewNop())
	return NewServer(checker, zap.NewNop(), 0, "", registry)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "us-east-1", resp.Region)
	assert.Len(t, resp.Checks, 3)
}

func TestHealthEndpointUnhealthy(t *testing.T) {
	checker := New(func(context.Context) error { return stderrors.New("expired") },
		&clienttest.Provider{API: &clienttest.Fake{}}, "us-east-1", zap.NewNop())
	s := NewServer(checker, zap.NewNop(), 0, "", nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessAndReadinessEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		ready    bool
		wantCode int
		wantBody string
	}{
		{"live", http.MethodGet, "/live", false, http.StatusOK, `{"status":"alive"}`},
		{"not ready", http.MethodGet, "/ready", false, http.StatusServiceUnavailable, `{"status":"not_ready"}`},
		{"ready", http.MethodGet, "/ready", true, http.StatusOK, `{"regions":[],"status":"ready"}`},
		{"wrong method", http.MethodPost, "/live", true, http.StatusMethodNotAllowed, "Method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(nil)
			s.SetReady(tt.ready)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	rec := httptest.NewRecorder()
	newTestServer(registry).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total 1")

	rec = httptest.NewRecorder()
	newTestServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
