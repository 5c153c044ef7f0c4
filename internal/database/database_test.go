package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ledgersync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestOrg(t *testing.T, db *DB) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Test Org"}
	require.NoError(t, db.CreateOrganization(context.Background(), org))
	return org
}

// timeNowTrunc keeps comparisons stable across the sqlite datetime round trip.
func timeNowTrunc() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test_dir")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestOrganizationTimestamps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org := createTestOrg(t, db)

	got, err := db.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastSyncAt)
	assert.Nil(t, got.LastSuccessfulSyncAt)

	now := timeNowTrunc()
	require.NoError(t, db.UpdateSyncTimestamps(ctx, org.ID, now, nil))

	got, err = db.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncAt)
	assert.Nil(t, got.LastSuccessfulSyncAt, "failed run must not touch last_successful_sync_at")

	require.NoError(t, db.UpdateSyncTimestamps(ctx, org.ID, now, &now))

	got, err = db.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSuccessfulSyncAt)
	assert.True(t, got.LastSuccessfulSyncAt.Equal(now))
}

func TestGetOrganizationNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetOrganization(context.Background(), 9999)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
