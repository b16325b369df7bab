package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// DashboardMetrics records engine and reconciler activity.
type DashboardMetrics struct {
	recomputeTotal    *Counter
	recomputeDuration *Histogram
	snapshotWrites    *Counter
	snapshotFailures  *Counter
	backfillTotal     *Counter
	sourceErrors      *Counter
	dayStates         *Gauge
}

// NewDashboardMetrics creates all dashboard instruments on meter.
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   DashboardMetrics
		err error
	)
	if m.recomputeTotal, err = NewCounter(meter, "dashboard_recompute_total",
		"Number of dashboard snapshot recomputations", "{recompute}"); err != nil {
		return nil, err
	}
	if m.recomputeDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "dashboard_recompute_duration_seconds",
		Description: "Time spent recomputing the dashboard snapshot",
		Unit:        "s",
		Boundaries:  RecomputeDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.snapshotWrites, err = NewCounter(meter, "dashboard_snapshot_writes_total",
		"Daily snapshot writes by trigger", "{write}"); err != nil {
		return nil, err
	}
	if m.snapshotFailures, err = NewCounter(meter, "dashboard_snapshot_write_failures_total",
		"Failed daily snapshot writes by trigger", "{write}"); err != nil {
		return nil, err
	}
	if m.backfillTotal, err = NewCounter(meter, "dashboard_backfill_total",
		"Days reconstructed from live data", "{day}"); err != nil {
		return nil, err
	}
	if m.sourceErrors, err = NewCounter(meter, "dashboard_source_errors_total",
		"Errors reported by data sources", "{error}"); err != nil {
		return nil, err
	}
	if m.dayStates, err = NewGauge(meter, "dashboard_period_days",
		"Days of the last composed period by state", "{day}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewNoopDashboardMetrics returns metrics that record nothing.
func NewNoopDashboardMetrics() *DashboardMetrics {
	m, _ := NewDashboardMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// RecordRecompute counts one recomputation and its duration.
func (m *DashboardMetrics) RecordRecompute(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.recomputeTotal.Inc(ctx)
	m.recomputeDuration.RecordDuration(ctx, d)
}

// RecordSnapshotWrite counts a snapshot write attempt for trigger.
func (m *DashboardMetrics) RecordSnapshotWrite(ctx context.Context, trigger string, err error) {
	if m == nil {
		return
	}
	attr := AttrTrigger.String(trigger)
	if err != nil {
		m.snapshotFailures.Inc(ctx, attr)
		return
	}
	m.snapshotWrites.Inc(ctx, attr)
}

// RecordBackfill counts one reconstructed day.
func (m *DashboardMetrics) RecordBackfill(ctx context.Context) {
	if m == nil {
		return
	}
	m.backfillTotal.Inc(ctx)
}

// RecordSourceError counts one error from source.
func (m *DashboardMetrics) RecordSourceError(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.sourceErrors.Inc(ctx, AttrSource.String(source))
}

// RecordDayState records how many days of period resolved to state.
func (m *DashboardMetrics) RecordDayState(ctx context.Context, period, state string, n int) {
	if m == nil {
		return
	}
	m.dayStates.Record(ctx, int64(n), AttrPeriod.String(period), AttrDayState.String(state))
}
