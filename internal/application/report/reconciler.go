package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Write triggers, used in logs, metrics and processed keys
const (
	TriggerBackfill = "backfill"
	TriggerOpenDay  = "open_day"
	TriggerClose    = "close"
	TriggerSeed     = "seed"
	TriggerRebuild  = "rebuild"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultMissTTL      = 5 * time.Minute
)

// ReconcilerConfig holds the reconciliation rules
type ReconcilerConfig struct {
	// BackfillWindowDays bounds how far back a missing day is reconstructed from live data
	BackfillWindowDays int
	// PersistOpenDay writes the current day's live total through on every change
	PersistOpenDay bool
	// ProcessedKeyTTL bounds how long one-shot writes are remembered
	ProcessedKeyTTL time.Duration
	// MissTTL bounds how long a day without a persisted snapshot is trusted to stay without one
	MissTTL time.Duration
	// Location is the restaurant's calendar
	Location *time.Location
}

// DayWriteResult reports a snapshot write. Err is informative only.
type DayWriteResult struct {
	Date      string                `json:"date"`
	Snapshot  *report.DailySnapshot `json:"snapshot"`
	Persisted bool                  `json:"persisted"`
	Err       error                 `json:"-"`
}

// CloseResult reports a day close
type CloseResult struct {
	Closed      DayWriteResult `json:"closed"`
	SeededToday bool           `json:"seeded_today"`
}

// Reconciler decides per day between the persisted snapshot and the live value,
// and performs the snapshot writes. Persisted snapshots are cached in memory once read;
// days found without one are rechecked after MissTTL.
type Reconciler struct {
	aggregator *DayAggregator
	snapshots  report.SnapshotRepository
	counts     report.OrderCountRepository
	keys       shared.ProcessedKeyStore
	metrics    *telemetry.DashboardMetrics
	logger     *zap.Logger
	config     ReconcilerConfig
	now        func() time.Time

	mu          sync.RWMutex
	known       map[string]report.DailySnapshot
	misses      map[string]time.Time
	openWritten map[string]string
	openMu      sync.Mutex

	wg sync.WaitGroup
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithReconcilerMetrics sets the metrics sink
func WithReconcilerMetrics(m *telemetry.DashboardMetrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithReconcilerLogger sets the logger
func WithReconcilerLogger(logger *zap.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a Reconciler
func NewReconciler(
	aggregator *DayAggregator,
	snapshots report.SnapshotRepository,
	counts report.OrderCountRepository,
	keys shared.ProcessedKeyStore,
	cfg ReconcilerConfig,
	opts ...ReconcilerOption,
) *Reconciler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ProcessedKeyTTL <= 0 {
		cfg.ProcessedKeyTTL = shared.DefaultProcessedKeyConfig().TTL
	}
	if cfg.MissTTL <= 0 {
		cfg.MissTTL = defaultMissTTL
	}
	r := &Reconciler{
		aggregator:  aggregator,
		snapshots:   snapshots,
		counts:      counts,
		keys:        keys,
		logger:      zap.NewNop(),
		config:      cfg,
		now:         time.Now,
		known:       make(map[string]report.DailySnapshot),
		misses:      make(map[string]time.Time),
		openWritten: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the calendar the reconciler works in
func (r *Reconciler) Location() *time.Location {
	return r.config.Location
}

// Now returns the reconciler's clock reading
func (r *Reconciler) Now() time.Time {
	return r.now()
}

// Today returns the current day key
func (r *Reconciler) Today() string {
	return DayOf(r.now(), r.config.Location)
}

// Aggregator returns the day aggregator
func (r *Reconciler) Aggregator() *DayAggregator {
	return r.aggregator
}

// Warm loads persisted snapshots of [from, to] into memory
func (r *Reconciler) Warm(ctx context.Context, from, to string) error {
	n, err := r.load(ctx, from, to)
	if err != nil {
		return err
	}
	r.logger.Info("Daily snapshots loaded",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("count", n),
	)
	return nil
}

// Refresh reloads the persisted snapshots of [from, to] with one range query,
// picking up snapshots written by other processes. A failed query keeps the cache.
func (r *Reconciler) Refresh(ctx context.Context, from, to string) {
	if from > to {
		return
	}
	if _, err := r.load(ctx, from, to); err != nil {
		r.logger.Warn("Daily snapshot refresh failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
	}
}

func (r *Reconciler) load(ctx context.Context, from, to string) (int, error) {
	list, err := r.snapshots.ListDailySnapshots(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load daily snapshots: %w", err)
	}
	found := make(map[string]struct{}, len(list))
	expires := r.now().Add(r.config.MissTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range list {
		r.known[s.Date] = s
		delete(r.misses, s.Date)
		found[s.Date] = struct{}{}
	}
	for _, day := range DaysBetween(from, to) {
		if _, ok := found[day]; ok {
			continue
		}
		// snapshots this process wrote stay cached even if the range read raced them
		if _, ok := r.known[day]; !ok {
			r.misses[day] = expires
		}
	}
	return len(list), nil
}

// Snapshot returns the persisted snapshot of day, reading storage when the day is not cached.
// A storage error reads as no snapshot and is not cached.
func (r *Reconciler) Snapshot(ctx context.Context, day string) (report.DailySnapshot, bool) {
	r.mu.RLock()
	s, ok := r.known[day]
	expires, missed := r.misses[day]
	r.mu.RUnlock()
	if ok {
		return s, true
	}
	if missed && r.now().Before(expires) {
		return report.DailySnapshot{}, false
	}

	stored, err := r.snapshots.GetDailySnapshot(ctx, day)
	switch {
	case err == nil:
		r.remember(*stored)
		return *stored, true
	case errors.Is(err, shared.ErrNotFound):
		r.mu.Lock()
		r.misses[day] = r.now().Add(r.config.MissTTL)
		r.mu.Unlock()
	default:
		r.logger.Warn("Daily snapshot read failed", zap.String("date", day), zap.Error(err))
	}
	return report.DailySnapshot{}, false
}

// State classifies day. It may read storage but never writes.
func (r *Reconciler) State(ctx context.Context, today, day string, ds *Dataset) report.DayState {
	if day == today {
		return report.DayOpen
	}
	if _, ok := r.Snapshot(ctx, day); ok {
		return report.DayClosed
	}
	if day < today && r.inBackfillWindow(today, day) && ds.HasDataOn(day) {
		return report.DayBackfillPending
	}
	return report.DayMissing
}

func (r *Reconciler) inBackfillWindow(today, day string) bool {
	return day >= AddDays(today, -r.config.BackfillWindowDays)
}

// ResolveDay returns the figures of day, scheduling any write-through it calls for.
// Closed days come from their snapshot and are never rewritten here.
func (r *Reconciler) ResolveDay(ctx context.Context, today, day string, ds *Dataset) report.ResolvedDay {
	state := r.State(ctx, today, day, ds)
	live := r.aggregator.Aggregate(day, ds)
	resolved := report.ResolvedDay{
		Date:        day,
		State:       state,
		Categories:  live.Categories,
		TotalIncome: live.TotalIncome,
		Expenses:    live.Expenses,
		Orders:      live.Orders,
	}

	switch state {
	case report.DayClosed:
		s, _ := r.Snapshot(ctx, day)
		resolved.Categories = s.Categories
		resolved.TotalIncome = s.TotalIncome
		resolved.Closed = true
	case report.DayMissing:
		resolved.Categories = report.ZeroCategories()
		resolved.TotalIncome = resolved.Categories.Total()
		resolved.Orders = report.OrderTally{}
	case report.DayBackfillPending:
		r.backfill(ctx, live)
	case report.DayOpen:
		if r.config.PersistOpenDay && live.HasData() {
			r.persistOpenDay(ctx, live)
		}
	}
	return resolved
}

func (r *Reconciler) backfill(ctx context.Context, live report.DayTotals) {
	if !r.claim(ctx, TriggerBackfill+":"+live.Date) {
		return
	}
	snapshot := report.NewDailySnapshot(live.Date, live.Categories, r.now())
	r.async(ctx, func(ctx context.Context) {
		created, err := r.snapshots.CreateDailySnapshotIfAbsent(ctx, snapshot)
		r.observeWrite(ctx, TriggerBackfill, live.Date, err)
		if err != nil {
			return
		}
		r.metrics.RecordBackfill(ctx)
		if created {
			r.remember(*snapshot)
			return
		}
		// another writer got there first; pick up its snapshot
		if existing, err := r.snapshots.GetDailySnapshot(ctx, live.Date); err == nil {
			r.remember(*existing)
		}
	})
}

func (r *Reconciler) persistOpenDay(ctx context.Context, live report.DayTotals) {
	total := live.TotalIncome.String()
	r.mu.Lock()
	if r.openWritten[live.Date] == total {
		r.mu.Unlock()
		return
	}
	r.openWritten[live.Date] = total
	r.mu.Unlock()

	snapshot := report.NewDailySnapshot(live.Date, live.Categories, r.now())
	r.async(ctx, func(ctx context.Context) {
		r.openMu.Lock()
		defer r.openMu.Unlock()
		r.mu.RLock()
		stale := r.openWritten[live.Date] != total
		r.mu.RUnlock()
		if stale {
			return
		}
		err := r.snapshots.UpsertDailySnapshot(ctx, snapshot)
		r.observeWrite(ctx, TriggerOpenDay, live.Date, err)
		if err == nil {
			r.remember(*snapshot)
		}
	})
}

// claim marks a one-shot write. A failing key store lets the write through.
func (r *Reconciler) claim(ctx context.Context, key string) bool {
	if r.keys == nil {
		return true
	}
	fresh, err := r.keys.MarkProcessed(ctx, key, r.config.ProcessedKeyTTL)
	if err != nil {
		r.logger.Warn("Processed key store unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	return fresh
}

func (r *Reconciler) async(ctx context.Context, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
		defer cancel()
		fn(writeCtx)
	}()
}

// Wait blocks until every background write finished
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) remember(s report.DailySnapshot) {
	r.mu.Lock()
	r.known[s.Date] = s
	delete(r.misses, s.Date)
	r.mu.Unlock()
}

func (r *Reconciler) forget(day string) {
	r.mu.Lock()
	delete(r.known, day)
	r.misses[day] = r.now().Add(r.config.MissTTL)
	r.mu.Unlock()
}

func (r *Reconciler) observeWrite(ctx context.Context, trigger, day string, err error) {
	r.metrics.RecordSnapshotWrite(ctx, trigger, err)
	if err != nil {
		r.logger.Warn("Daily snapshot write failed",
			zap.String("trigger", trigger),
			zap.String("date", day),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("Daily snapshot written",
		zap.String("trigger", trigger),
		zap.String("date", day),
	)
}

// CloseDay finalizes the day before now and seeds an empty snapshot for now's day
func (r *Reconciler) CloseDay(ctx context.Context, now time.Time, ds *Dataset) CloseResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciler", "close_day")
	defer span.End()

	today := DayOf(now, r.config.Location)
	previous := AddDays(today, -1)
	telemetry.SetAttributes(span, telemetry.SpanAttrDay, previous)

	result := CloseResult{Closed: r.write(ctx, TriggerClose, r.aggregator.Aggregate(previous, ds), now)}
	if result.Closed.Err != nil {
		telemetry.RecordError(span, result.Closed.Err)
	}

	seed := report.NewDailySnapshot(today, report.ZeroCategories(), now)
	created, err := r.snapshots.CreateDailySnapshotIfAbsent(ctx, seed)
	r.observeWrite(ctx, TriggerSeed, today, err)
	if err == nil && created {
		r.remember(*seed)
		result.SeededToday = true
	}

	r.logger.Info("Day closed",
		zap.String("date", previous),
		zap.String("total_income", result.Closed.Snapshot.TotalIncome.String()),
		zap.Bool("persisted", result.Closed.Persisted),
		zap.Bool("seeded_today", result.SeededToday),
	)
	return result
}

// RebuildDay recomputes day from live data and overwrites its snapshot.
// It is the only operation that alters a closed day.
func (r *Reconciler) RebuildDay(ctx context.Context, day string, ds *Dataset) DayWriteResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciler", "rebuild_day",
		telemetry.WithAttribute(telemetry.SpanAttrDay, day))
	defer span.End()

	result := r.write(ctx, TriggerRebuild, r.aggregator.Aggregate(day, ds), r.now())
	if result.Err != nil {
		telemetry.RecordError(span, result.Err)
	}
	return result
}

func (r *Reconciler) write(ctx context.Context, trigger string, live report.DayTotals, now time.Time) DayWriteResult {
	snapshot := report.NewDailySnapshot(live.Date, live.Categories, now)
	if existing, ok := r.Snapshot(ctx, live.Date); ok {
		snapshot.CreatedAt = existing.CreatedAt
	}
	err := r.snapshots.UpsertDailySnapshot(ctx, snapshot)
	r.observeWrite(ctx, trigger, live.Date, err)
	if err != nil {
		return DayWriteResult{Date: live.Date, Snapshot: snapshot, Err: err}
	}
	r.remember(*snapshot)
	return DayWriteResult{Date: live.Date, Snapshot: snapshot, Persisted: true}
}

// DeleteDaySnapshot removes the persisted snapshot of day so it resolves live again
func (r *Reconciler) DeleteDaySnapshot(ctx context.Context, day string) error {
	if err := r.snapshots.DeleteDailySnapshot(ctx, day); err != nil {
		r.logger.Warn("Daily snapshot delete failed", zap.String("date", day), zap.Error(err))
		return fmt.Errorf("failed to delete daily snapshot %s: %w", day, err)
	}
	r.forget(day)
	if r.keys != nil {
		if err := r.keys.Forget(ctx, TriggerBackfill+":"+day); err != nil {
			r.logger.Warn("Failed to reset backfill key", zap.String("date", day), zap.Error(err))
		}
	}
	r.logger.Info("Daily snapshot deleted", zap.String("date", day))
	return nil
}

// SaveOrderCounts persists the live order counts of day
func (r *Reconciler) SaveOrderCounts(ctx context.Context, day string, ds *Dataset) (*report.OrderCountSnapshot, error) {
	if r.counts == nil {
		return nil, shared.ErrInvalidState.WithMessage("order count storage is not configured")
	}
	tally := r.aggregator.Aggregate(day, ds).Orders
	now := r.now()
	snapshot := &report.OrderCountSnapshot{
		Date:          day,
		DeliveryCount: tally.Delivery,
		SalonCount:    tally.Salon(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.counts.UpsertOrderCounts(ctx, snapshot); err != nil {
		r.logger.Warn("Order count write failed", zap.String("date", day), zap.Error(err))
		return snapshot, fmt.Errorf("failed to save order counts %s: %w", day, err)
	}
	r.logger.Info("Order counts saved",
		zap.String("date", day),
		zap.Int("delivery", snapshot.DeliveryCount),
		zap.Int("salon", snapshot.SalonCount),
	)
	return snapshot, nil
}

// OrderCounts returns the persisted order counts of day
func (r *Reconciler) OrderCounts(ctx context.Context, day string) (*report.OrderCountSnapshot, error) {
	if r.counts == nil {
		return nil, shared.ErrNotFound
	}
	return r.counts.GetOrderCounts(ctx, day)
}

// DeleteOrderCounts removes the persisted order counts of day
func (r *Reconciler) DeleteOrderCounts(ctx context.Context, day string) error {
	if r.counts == nil {
		return shared.ErrInvalidState.WithMessage("order count storage is not configured")
	}
	if err := r.counts.DeleteOrderCounts(ctx, day); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound.WithMessage("no order counts saved for " + day)
		}
		return fmt.Errorf("failed to delete order counts %s: %w", day, err)
	}
	r.logger.Info("Order counts deleted", zap.String("date", day))
	return nil
}
