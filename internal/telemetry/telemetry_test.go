package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tel.Metrics)

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInit_ServesRecordedMetrics(t *testing.T) {
	tel, err := Init(Config{Enabled: true, ServiceName: "cogniscan-test"})
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	ctx := context.Background()
	tel.Metrics.RecordSubmission(ctx, "predict", "succeeded")
	tel.Metrics.ObserveRequest(ctx, "/predict/batch", 200, 120*time.Millisecond)
	tel.Metrics.HandleObserver()(1)

	srv := httptest.NewServer(tel.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "cogniscan_submissions")
	assert.Contains(t, text, "cogniscan_backend_request_duration")
	assert.Contains(t, text, "cogniscan_visual_handles")
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	a, err := Init(Config{Enabled: true})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())
	b, err := Init(Config{Enabled: true})
	require.NoError(t, err)
	defer b.Shutdown(context.Background())
}

func TestMetrics_LiveHandles(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	observe := m.HandleObserver()
	observe(1)
	observe(1)
	observe(-1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var live int64 = -1
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "cogniscan_visual_handles" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			live = sum.DataPoints[0].Value
		}
	}
	assert.Equal(t, int64(1), live)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordSubmission(context.Background(), "predict", "failed")
	m.ObserveRequest(context.Background(), "/train", 500, time.Second)
	assert.Nil(t, m.HandleObserver())
}
