package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/comedor/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add order counts", "add_order_counts"},
		{"Add-Order-Counts", "add_order_counts"},
		{"ADD__ORDER__COUNTS", "add_order_counts"},
		{"Index 2024", "index_2024"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_existing.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000002_existing.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "add payment index", "Index payment methods")
	require.NoError(t, err)
	assert.Equal(t, "000003", mf.Version)
	assert.Equal(t, "000003_add_payment_index.up.sql", filepath.Base(mf.UpPath))

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "add payment index")
	assert.Contains(t, string(upContent), "Index payment methods")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_late.up.sql":     {Data: []byte("--")},
		"000010_late.down.sql":   {Data: []byte("--")},
		"000002_counts.up.sql":   {Data: []byte("--")},
		"000002_counts.down.sql": {Data: []byte("--")},
		"README.md":              {Data: []byte("docs")},
		"subdir.up.sql/keep.txt": {Data: []byte("")},
		"000001_snapshot.up.sql": {Data: []byte("--")},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_snapshot", "000002_counts", "000010_late"}, got)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "000001_create_daily_snapshots", got[0])

	for _, base := range got {
		_, err := migrations.FS.Open(base + ".down.sql")
		assert.NoError(t, err, "%s has a rollback", base)
	}
}
