package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledgersync/internal/models"
)

func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	now := time.Now()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO organizations (name, last_sync_at, last_successful_sync_at, created_at) VALUES (?, ?, ?, ?)`,
		org.Name, org.LastSyncAt, org.LastSuccessfulSyncAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	org.ID = id
	org.CreatedAt = now
	return nil
}

func (db *DB) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, name, last_sync_at, last_successful_sync_at, created_at FROM organizations WHERE id = ?`, id)

	var org models.Organization
	var lastSync, lastSuccess sql.NullTime
	if err := row.Scan(&org.ID, &org.Name, &lastSync, &lastSuccess, &org.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("organization %d not found", id)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if lastSync.Valid {
		org.LastSyncAt = &lastSync.Time
	}
	if lastSuccess.Valid {
		org.LastSuccessfulSyncAt = &lastSuccess.Time
	}
	return &org, nil
}

// UpdateSyncTimestamps overwrites the organization's sync timestamps. Writes
// are last-write-wins on purpose: concurrent syncs for the same organization
// may race here and the latest run wins. A nil lastSuccessfulSyncAt leaves the
// stored value untouched.
func (db *DB) UpdateSyncTimestamps(ctx context.Context, id int64, lastSyncAt time.Time, lastSuccessfulSyncAt *time.Time) error {
	var err error
	if lastSuccessfulSyncAt != nil {
		_, err = db.db.ExecContext(ctx,
			`UPDATE organizations SET last_sync_at = ?, last_successful_sync_at = ? WHERE id = ?`,
			lastSyncAt, lastSuccessfulSyncAt, id)
	} else {
		_, err = db.db.ExecContext(ctx,
			`UPDATE organizations SET last_sync_at = ? WHERE id = ?`,
			lastSyncAt, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update sync timestamps: %w", err)
	}
	return nil
}
