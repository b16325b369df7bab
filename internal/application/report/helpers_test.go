package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	bogota   = time.FixedZone("COT", -5*60*60)
	fixedNow = time.Date(2024, 5, 4, 10, 0, 0, 0, bogota)
	today    = "2024-05-04"
)

func order(source orders.SourceTag, id, day string, fields map[string]any) orders.Record {
	f := map[string]any{"localDate": day}
	for k, v := range fields {
		f[k] = v
	}
	return orders.NewRecord(source, id, f)
}

func dataset(records ...orders.Record) *Dataset {
	sets := map[orders.SourceTag][]orders.Record{}
	for _, r := range records {
		sets[r.Source] = append(sets[r.Source], r)
	}
	return NewDataset(orders.NewNormalizer(bogota), sets)
}

func newAggregator() *DayAggregator {
	return NewDayAggregator(orders.NewUnitEstimator(nil, 0))
}

// memorySnapshots is an in-memory SnapshotRepository with failure injection
type memorySnapshots struct {
	mu      sync.Mutex
	days    map[string]report.DailySnapshot
	writes  int
	gets    int
	lists   int
	failErr error
}

func newMemorySnapshots(seed ...report.DailySnapshot) *memorySnapshots {
	m := &memorySnapshots{days: map[string]report.DailySnapshot{}}
	for _, s := range seed {
		m.days[s.Date] = s
	}
	return m
}

func (m *memorySnapshots) GetDailySnapshot(_ context.Context, date string) (*report.DailySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	s, ok := m.days[date]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (m *memorySnapshots) ListDailySnapshots(_ context.Context, from, to string) ([]report.DailySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	var out []report.DailySnapshot
	for date, s := range m.days {
		if date >= from && date <= to {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memorySnapshots) UpsertDailySnapshot(_ context.Context, s *report.DailySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failErr != nil {
		return m.failErr
	}
	if existing, ok := m.days[s.Date]; ok {
		s.CreatedAt = existing.CreatedAt
	}
	m.days[s.Date] = *s
	return nil
}

func (m *memorySnapshots) CreateDailySnapshotIfAbsent(_ context.Context, s *report.DailySnapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failErr != nil {
		return false, m.failErr
	}
	if _, ok := m.days[s.Date]; ok {
		return false, nil
	}
	m.days[s.Date] = *s
	return true, nil
}

func (m *memorySnapshots) DeleteDailySnapshot(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.days, date)
	return nil
}

func (m *memorySnapshots) get(date string) (report.DailySnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.days[date]
	return s, ok
}

func (m *memorySnapshots) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// put stores a snapshot behind the reconciler's back, as another process would
func (m *memorySnapshots) put(s report.DailySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[s.Date] = s
}

func (m *memorySnapshots) reads() (gets, lists int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, m.lists
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryCounts struct {
	mu   sync.Mutex
	days map[string]report.OrderCountSnapshot
}

func (m *memoryCounts) GetOrderCounts(_ context.Context, date string) (*report.OrderCountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.days[date]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (m *memoryCounts) UpsertOrderCounts(_ context.Context, s *report.OrderCountSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[s.Date] = *s
	return nil
}

func (m *memoryCounts) DeleteOrderCounts(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.days[date]; !ok {
		return shared.ErrNotFound
	}
	delete(m.days, date)
	return nil
}

var errStorageDown = errors.New("storage down")

type reconcilerFixture struct {
	reconciler *Reconciler
	snapshots  *memorySnapshots
	counts     *memoryCounts
	keys       *cache.InMemoryProcessedKeyStore
	clock      *testClock
}

func newReconcilerFixture(t *testing.T, cfg ReconcilerConfig, seed ...report.DailySnapshot) *reconcilerFixture {
	t.Helper()
	if cfg.Location == nil {
		cfg.Location = bogota
	}
	f := &reconcilerFixture{
		snapshots: newMemorySnapshots(seed...),
		counts:    &memoryCounts{days: map[string]report.OrderCountSnapshot{}},
		keys:      cache.NewInMemoryProcessedKeyStore(),
		clock:     &testClock{now: fixedNow},
	}
	t.Cleanup(func() { _ = f.keys.Close() })
	f.reconciler = NewReconciler(newAggregator(), f.snapshots, f.counts, f.keys, cfg,
		WithReconcilerLogger(zaptest.NewLogger(t)),
		WithClock(f.clock.Now),
	)
	require.NoError(t, f.reconciler.Warm(context.Background(), "2024-01-01", "2024-12-31"))
	return f
}
