package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/migration"
	"github.com/comedor/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPostgres starts a disposable PostgreSQL and applies the embedded migrations
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("comedor_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if s, err := db.DB(); err == nil {
			_ = s.Close()
		}
	})
	return db
}

func TestPostgres_SnapshotLifecycle(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()
	created := time.Date(2024, 5, 3, 23, 0, 0, 0, time.UTC)

	ok, err := repo.CreateDailySnapshotIfAbsent(ctx, snapshotOf("2024-05-03", 30000, 8000, created))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CreateDailySnapshotIfAbsent(ctx, snapshotOf("2024-05-03", 1, 1, created))
	require.NoError(t, err)
	assert.False(t, ok, "a second create must not replace the first snapshot")

	require.NoError(t, repo.UpsertDailySnapshot(ctx, snapshotOf("2024-05-03", 26000, 0, created.Add(time.Hour))))
	got, err := repo.GetDailySnapshot(ctx, "2024-05-03")
	require.NoError(t, err)
	assert.True(t, got.TotalIncome.Equal(decimal.NewFromInt(26000)))
	assert.True(t, got.CreatedAt.Equal(created))

	require.NoError(t, repo.DeleteDailySnapshot(ctx, "2024-05-03"))
	_, err = repo.GetDailySnapshot(ctx, "2024-05-03")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPostgres_SourceDocuments(t *testing.T) {
	db := setupPostgres(t)
	repo := NewSourceDocumentRepository(db)
	ctx := context.Background()

	rec := orders.NewRecord(orders.SourceDineIn, "t-1", map[string]any{"total": 15000})
	require.NoError(t, repo.Save(ctx, rec))
	require.NoError(t, repo.Save(ctx, rec))

	docs, err := repo.ListBySource(ctx, orders.SourceDineIn)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "t-1", docs[0].DocID)

	require.NoError(t, repo.Delete(ctx, orders.SourceDineIn, "t-1"))
	docs, err = repo.ListBySource(ctx, orders.SourceDineIn)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
