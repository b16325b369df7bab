package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	reportapp "github.com/comedor/backend/internal/application/report"
	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const updateBuffer = 64

// ErrNotStarted is returned by Stop when Start never ran
var ErrNotStarted = errors.New("dashboard engine not started")

type update struct {
	source  orders.SourceTag
	records []orders.Record
	err     error
	refresh bool
}

// Engine keeps the latest record set of every source and recomputes the whole
// dashboard on each change. Updates are applied by a single goroutine; readers
// get the last published Snapshot and never see a partial one.
type Engine struct {
	reconciler *reportapp.Reconciler
	composer   *reportapp.PeriodComposer
	revenue    *reportapp.RevenueReconciler
	sources    []orders.Source
	logger     *zap.Logger
	metrics    *telemetry.DashboardMetrics

	dataset  atomic.Pointer[reportapp.Dataset]
	snapshot atomic.Pointer[Snapshot]
	status   map[orders.SourceTag]SourceStatus

	updates chan update
	running atomic.Bool
	cancel  context.CancelFunc
	subs    []orders.Subscription
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithEngineLogger sets the logger
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEngineMetrics sets the metrics sink
func WithEngineMetrics(m *telemetry.DashboardMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an Engine over sources
func NewEngine(
	reconciler *reportapp.Reconciler,
	composer *reportapp.PeriodComposer,
	revenue *reportapp.RevenueReconciler,
	normalizer orders.Normalizer,
	sources []orders.Source,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		reconciler: reconciler,
		composer:   composer,
		revenue:    revenue,
		sources:    sources,
		logger:     zap.NewNop(),
		status:     make(map[orders.SourceTag]SourceStatus, len(sources)),
		updates:    make(chan update, updateBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, src := range sources {
		e.status[src.Tag()] = SourceStatus{Source: src.Tag()}
	}
	e.dataset.Store(reportapp.EmptyDataset(normalizer))
	return e
}

// Start subscribes to every source and starts the update loop.
// A source that fails to subscribe is marked loaded with an empty set.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dashboard engine already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.publish(loopCtx)

	e.wg.Add(1)
	go e.loop(loopCtx)

	for _, src := range e.sources {
		tag := src.Tag()
		sub, err := src.Subscribe(loopCtx,
			func(records []orders.Record) { e.send(loopCtx, update{source: tag, records: records}) },
			func(err error) { e.send(loopCtx, update{source: tag, err: err}) },
		)
		if err != nil {
			e.send(loopCtx, update{source: tag, err: fmt.Errorf("subscribe: %w", err)})
			continue
		}
		e.mu.Lock()
		e.subs = append(e.subs, sub)
		e.mu.Unlock()
	}

	e.logger.Info("Dashboard engine started", zap.Int("sources", len(e.sources)))
	return nil
}

// Stop releases every subscription, stops the loop and waits for pending snapshot writes
func (e *Engine) Stop(ctx context.Context) error {
	if !e.running.CompareAndSwap(true, false) {
		return ErrNotStarted
	}

	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		e.reconciler.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	e.logger.Info("Dashboard engine stopped")
	return errors.Join(errs...)
}

func (e *Engine) send(ctx context.Context, u update) {
	select {
	case e.updates <- u:
	case <-ctx.Done():
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-e.updates:
			e.apply(ctx, u)
		}
	}
}

func (e *Engine) apply(ctx context.Context, u update) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Dashboard update panicked",
				zap.String("source", string(u.source)),
				zap.Any("panic", r),
			)
		}
	}()

	if !u.refresh {
		st := e.status[u.source]
		st.Source = u.source
		st.Loaded = true
		st.UpdatedAt = e.reconciler.Now()
		if u.err != nil {
			st.LastError = u.err.Error()
			e.metrics.RecordSourceError(ctx, string(u.source))
			e.logger.Warn("Source update failed, keeping last loaded records",
				zap.String("source", string(u.source)),
				zap.Error(u.err),
			)
		} else {
			st.LastError = ""
			st.Records = len(u.records)
			e.dataset.Store(e.dataset.Load().With(u.source, u.records))
		}
		e.status[u.source] = st
	}
	e.publish(ctx)
}

// publish recomputes the dashboard from the current dataset. Called from the loop
// goroutine, and from Start before the loop runs.
func (e *Engine) publish(ctx context.Context) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "recompute")
	defer span.End()
	started := time.Now()

	ds := e.dataset.Load()
	today := e.reconciler.Today()

	snap := &Snapshot{
		GeneratedAt:   e.reconciler.Now(),
		Today:         today,
		Ready:         true,
		Sources:       make([]SourceStatus, 0, len(e.sources)),
		Periods:       e.composer.Compose(ctx, today, ds),
		Live:          e.reconciler.Aggregator().Aggregate(today, ds),
		Revenue:       e.revenue.Reconcile(today, ds),
		AllTimeIncome: allTimeIncome(ds),
		Undated:       ds.Undated(),
	}
	for _, src := range e.sources {
		st := e.status[src.Tag()]
		snap.Sources = append(snap.Sources, st)
		if !st.Loaded {
			snap.Ready = false
		}
	}
	e.snapshot.Store(snap)

	e.metrics.RecordRecompute(ctx, time.Since(started))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDay, today,
		telemetry.SpanAttrRecords, len(ds.Orders()),
		telemetry.SpanAttrTotal, snap.Live.TotalIncome.String(),
	)
}

func allTimeIncome(ds *reportapp.Dataset) decimal.Decimal {
	total := decimal.Zero
	for _, r := range ds.Orders() {
		if orders.IsCancelled(r.Status()) {
			continue
		}
		if amt := orders.RecordAmount(r); amt.IsPositive() {
			total = total.Add(amt)
		}
	}
	return total
}

// refresh asks the loop to recompute without a source change
func (e *Engine) refresh(ctx context.Context) {
	if !e.running.Load() {
		return
	}
	select {
	case e.updates <- update{refresh: true}:
	case <-ctx.Done():
	}
}

// Snapshot returns the last published dashboard
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Ready reports whether every source delivered its first set or failed
func (e *Engine) Ready() bool {
	s := e.snapshot.Load()
	return s != nil && s.Ready
}

// Period returns one composed period of the last snapshot
func (e *Engine) Period(p report.Period) (report.PeriodView, error) {
	view, ok := e.Snapshot().Period(p)
	if !ok {
		return report.PeriodView{}, shared.ErrUnavailable
	}
	return view, nil
}

// Day resolves one day against the current dataset
func (e *Engine) Day(ctx context.Context, day string) (DayView, error) {
	if !reportapp.ValidDay(day) {
		return DayView{}, shared.ErrInvalidInput.WithMessage("date must be YYYY-MM-DD")
	}
	ds := e.dataset.Load()
	view := DayView{
		Day:     e.reconciler.ResolveDay(ctx, e.reconciler.Today(), day, ds),
		Live:    e.reconciler.Aggregator().Aggregate(day, ds),
		Revenue: e.revenue.Reconcile(day, ds),
	}
	counts, err := e.reconciler.OrderCounts(ctx, day)
	switch {
	case err == nil:
		view.Counts = counts
	case !errors.Is(err, shared.ErrNotFound):
		e.logger.Warn("Order counts unavailable", zap.String("date", day), zap.Error(err))
	}
	return view, nil
}

// CloseDay closes the previous calendar day and seeds today
func (e *Engine) CloseDay(ctx context.Context) reportapp.CloseResult {
	result := e.reconciler.CloseDay(ctx, e.reconciler.Now(), e.dataset.Load())
	e.refresh(ctx)
	return result
}

// RebuildDay recomputes day from live data and overwrites its snapshot
func (e *Engine) RebuildDay(ctx context.Context, day string) (reportapp.DayWriteResult, error) {
	if !reportapp.ValidDay(day) {
		return reportapp.DayWriteResult{}, shared.ErrInvalidInput.WithMessage("date must be YYYY-MM-DD")
	}
	result := e.reconciler.RebuildDay(ctx, day, e.dataset.Load())
	e.refresh(ctx)
	return result, nil
}

// DeleteDaySnapshot removes the persisted snapshot of day
func (e *Engine) DeleteDaySnapshot(ctx context.Context, day string) error {
	if !reportapp.ValidDay(day) {
		return shared.ErrInvalidInput.WithMessage("date must be YYYY-MM-DD")
	}
	if err := e.reconciler.DeleteDaySnapshot(ctx, day); err != nil {
		return err
	}
	e.refresh(ctx)
	return nil
}

// SaveOrderCounts persists the live order counts of day
func (e *Engine) SaveOrderCounts(ctx context.Context, day string) (*report.OrderCountSnapshot, error) {
	if !reportapp.ValidDay(day) {
		return nil, shared.ErrInvalidInput.WithMessage("date must be YYYY-MM-DD")
	}
	return e.reconciler.SaveOrderCounts(ctx, day, e.dataset.Load())
}

// DeleteOrderCounts removes the persisted order counts of day
func (e *Engine) DeleteOrderCounts(ctx context.Context, day string) error {
	if !reportapp.ValidDay(day) {
		return shared.ErrInvalidInput.WithMessage("date must be YYYY-MM-DD")
	}
	return e.reconciler.DeleteOrderCounts(ctx, day)
}
