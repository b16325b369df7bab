package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/comedor/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.Config{Enabled: false, ServiceName: "test-service", SamplingRatio: 1}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "test-service", tp.GetConfig().ServiceName)
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{ServiceName: "test-service"}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestStartSpan_RecordsErrorAndAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := telemetry.StartServiceSpan(context.Background(), "reconciler", "close_day",
		telemetry.WithAttribute(telemetry.SpanAttrDay, "2024-05-03"))
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.SetAttributes(span, telemetry.SpanAttrRecords, 3, 42, "ignored")
	telemetry.AddEvent(span, "snapshot_written", telemetry.SpanAttrPersisted, true)
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "reconciler.close_day", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Attributes, 2)
	require.Len(t, spans[0].Events, 2)
	assert.Equal(t, "snapshot_written", spans[0].Events[0].Name)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestDashboardMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewDashboardMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRecompute(ctx, 3*time.Millisecond)
	m.RecordRecompute(ctx, time.Millisecond)
	m.RecordSnapshotWrite(ctx, "close", nil)
	m.RecordSnapshotWrite(ctx, "close", errors.New("db down"))
	m.RecordBackfill(ctx)
	m.RecordSourceError(ctx, "delivery_orders")
	m.RecordDayState(ctx, "this_month", "closed", 12)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if data, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["dashboard_recompute_total"])
	assert.Equal(t, int64(1), sums["dashboard_snapshot_writes_total"])
	assert.Equal(t, int64(1), sums["dashboard_snapshot_write_failures_total"])
	assert.Equal(t, int64(1), sums["dashboard_backfill_total"])
	assert.Equal(t, int64(1), sums["dashboard_source_errors_total"])
}

func TestDashboardMetrics_NilSafe(t *testing.T) {
	var m *telemetry.DashboardMetrics
	assert.NotPanics(t, func() {
		m.RecordRecompute(context.Background(), time.Second)
		m.RecordBackfill(context.Background())
	})

	_, err := telemetry.NewDashboardMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.NotNil(t, telemetry.NewNoopDashboardMetrics())
}

func TestDBTracingPlugin_Defaults(t *testing.T) {
	cfg := telemetry.DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)

	p := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{}, nil)
	assert.NoError(t, p.RegisterOtelGorm(nil))
}
