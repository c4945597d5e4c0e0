package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gradebook/internal/infrastructure"
	"gradebook/internal/shared/testutil"
)

func TestOTelMiddleware_RecordsRouteMetricsAndSpan(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	logger, _ := testutil.NewTestLogger(t)

	m, err := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: tp.Tracer("test"),
		Meter:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"),
		Logger: logger,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/classes/{classID}/roster", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classes/c1/roster", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "http_requests_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			dp := sum.DataPoints[0]
			assert.Equal(t, int64(1), dp.Value)
			route, _ := dp.Attributes.Value(attribute.Key("route"))
			assert.Equal(t, "/api/classes/{classID}/roster", route.AsString())
			status, _ := dp.Attributes.Value(attribute.Key("status_code"))
			assert.Equal(t, int64(http.StatusTeapot), status.AsInt64())
			found = true
		}
	}
	assert.True(t, found, "http_requests_total recorded")

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /api/classes/{classID}/roster", ended[0].Name())
}

func TestOTelMiddleware_DefaultStatus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: sdktrace.NewTracerProvider().Tracer("test"),
		Meter:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
