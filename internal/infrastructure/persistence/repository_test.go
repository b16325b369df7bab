package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(day string, dineInLunch, deliveryBreakfast int64, at time.Time) *report.DailySnapshot {
	cats := report.ZeroCategories()
	cats.DineInLunch = decimal.NewFromInt(dineInLunch)
	cats.DeliveryBreakfast = decimal.NewFromInt(deliveryBreakfast)
	return report.NewDailySnapshot(day, cats, at)
}

func TestGormSnapshotRepository(t *testing.T) {
	repo := NewGormSnapshotRepository(setupTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, 5, 3, 23, 0, 0, 0, time.UTC)

	t.Run("get missing day", func(t *testing.T) {
		_, err := repo.GetDailySnapshot(ctx, "2024-05-01")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("create if absent inserts once", func(t *testing.T) {
		ok, err := repo.CreateDailySnapshotIfAbsent(ctx, snapshotOf("2024-05-03", 30000, 8000, created))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.CreateDailySnapshotIfAbsent(ctx, snapshotOf("2024-05-03", 99000, 0, created))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.GetDailySnapshot(ctx, "2024-05-03")
		require.NoError(t, err)
		assert.True(t, got.TotalIncome.Equal(decimal.NewFromInt(38000)))
		assert.True(t, got.Categories.DeliveryBreakfast.Equal(decimal.NewFromInt(8000)))
	})

	t.Run("upsert overwrites buckets and keeps created_at", func(t *testing.T) {
		later := created.Add(48 * time.Hour)
		require.NoError(t, repo.UpsertDailySnapshot(ctx, snapshotOf("2024-05-03", 26000, 0, later)))

		got, err := repo.GetDailySnapshot(ctx, "2024-05-03")
		require.NoError(t, err)
		assert.True(t, got.TotalIncome.Equal(decimal.NewFromInt(26000)))
		assert.True(t, got.TotalIncome.Equal(got.Categories.Total()))
		assert.True(t, got.Categories.DeliveryBreakfast.IsZero())
		assert.True(t, got.CreatedAt.Equal(created), "created_at %s", got.CreatedAt)
	})

	t.Run("list is ordered and bounded", func(t *testing.T) {
		require.NoError(t, repo.UpsertDailySnapshot(ctx, snapshotOf("2024-05-01", 1000, 0, created)))
		require.NoError(t, repo.UpsertDailySnapshot(ctx, snapshotOf("2024-04-30", 1000, 0, created)))

		list, err := repo.ListDailySnapshots(ctx, "2024-05-01", "2024-05-31")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "2024-05-01", list[0].Date)
		assert.Equal(t, "2024-05-03", list[1].Date)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteDailySnapshot(ctx, "2024-05-03"))
		require.NoError(t, repo.DeleteDailySnapshot(ctx, "2024-05-03"))
		_, err := repo.GetDailySnapshot(ctx, "2024-05-03")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderCountRepository(t *testing.T) {
	repo := NewGormOrderCountRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertOrderCounts(ctx, &report.OrderCountSnapshot{Date: "2024-05-04", DeliveryCount: 3, SalonCount: 7}))
	require.NoError(t, repo.UpsertOrderCounts(ctx, &report.OrderCountSnapshot{Date: "2024-05-04", DeliveryCount: 4, SalonCount: 9}))

	got, err := repo.GetOrderCounts(ctx, "2024-05-04")
	require.NoError(t, err)
	assert.Equal(t, 4, got.DeliveryCount)
	assert.Equal(t, 9, got.SalonCount)

	require.NoError(t, repo.DeleteOrderCounts(ctx, "2024-05-04"))
	assert.ErrorIs(t, repo.DeleteOrderCounts(ctx, "2024-05-04"), shared.ErrNotFound)
	_, err = repo.GetOrderCounts(ctx, "2024-05-04")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSourceDocumentRepository(t *testing.T) {
	repo := NewSourceDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, orders.NewRecord(orders.SourceDineIn, "b", map[string]any{"total": 14000})))
	require.NoError(t, repo.Save(ctx, orders.NewRecord(orders.SourceDineIn, "a", map[string]any{"total": 15000})))
	require.NoError(t, repo.Save(ctx, orders.NewRecord(orders.SourceWaiter, "c", map[string]any{"total": 1})))
	require.NoError(t, repo.Save(ctx, orders.NewRecord(orders.SourceDineIn, "a", map[string]any{"total": "16.000"})))

	docs, err := repo.ListBySource(ctx, orders.SourceDineIn)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].DocID)

	record, err := docs[0].ToRecord()
	require.NoError(t, err)
	assert.Equal(t, orders.SourceDineIn, record.Source)
	assert.Equal(t, "16.000", record.String("total"))

	require.NoError(t, repo.Delete(ctx, orders.SourceDineIn, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, orders.SourceDineIn, "a"), shared.ErrNotFound)
}
