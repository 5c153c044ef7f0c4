package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ledgersync/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	createTestOrg(t, db)

	storage := t.TempDir()
	logger := zerolog.Nop()
	service := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: storage}, &logger)

	require.NoError(t, service.Snapshot(context.Background()))

	entries, err := os.ReadDir(storage)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The snapshot is a standalone database holding the same rows.
	snapshot, err := NewDB(filepath.Join(storage, entries[0].Name()), &logger)
	require.NoError(t, err)
	defer snapshot.Close()

	var count int
	row := snapshot.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM organizations`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPruneOldSnapshots(t *testing.T) {
	db := setupTestDB(t)
	storage := t.TempDir()
	logger := zerolog.Nop()
	service := NewBackupService(db, config.BackupConfig{
		Enabled:       true,
		StoragePath:   storage,
		RetentionDays: 7,
	}, &logger)

	stale := filepath.Join(storage, "snapshot_20200101_000000.db")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(storage, "snapshot_recent.db")
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))

	unrelated := filepath.Join(storage, "notes.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	service.pruneOldSnapshots()

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, unrelated, "only snapshot files are pruned")
}
