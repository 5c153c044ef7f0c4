package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ledgersync/internal/models"
)

func (db *DB) CreateSync(ctx context.Context, sync *models.Sync) error {
	if sync.State == "" {
		sync.State = models.StateDormant
	}
	history, err := json.Marshal(sync.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if sync.History == nil {
		history = []byte("[]")
	}

	now := time.Now()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO syncs (organization_id, token_id, action, for_model, state, history, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sync.OrganizationID, sync.TokenID, sync.Action, sync.ForModel, sync.State, string(history), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	sync.ID = id
	sync.CreatedAt = now
	sync.UpdatedAt = now
	return nil
}

func (db *DB) GetSync(ctx context.Context, id int64) (*models.Sync, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, organization_id, token_id, action, for_model, state, history, created_at, updated_at
         FROM syncs WHERE id = ?`, id)
	sync, err := scanSync(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync %d not found", id)
	}
	return sync, err
}

// FindSyncForKind returns the organization's sync for a target kind, or
// (nil, nil) when the organization has none. Used for kind chaining.
func (db *DB) FindSyncForKind(ctx context.Context, organizationID int64, kind string) (*models.Sync, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, organization_id, token_id, action, for_model, state, history, created_at, updated_at
         FROM syncs WHERE organization_id = ? AND for_model = ? ORDER BY created_at LIMIT 1`,
		organizationID, kind)
	sync, err := scanSync(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return sync, nil
}

func (db *DB) GetQueuedSyncs(ctx context.Context, limit int) ([]*models.Sync, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, organization_id, token_id, action, for_model, state, history, created_at, updated_at
         FROM syncs WHERE state = ? ORDER BY updated_at ASC LIMIT ?`,
		models.StateQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get queued syncs: %w", err)
	}
	defer rows.Close()

	var syncs []*models.Sync
	for rows.Next() {
		sync, err := scanSync(rows)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, sync)
	}
	return syncs, rows.Err()
}

func (db *DB) UpdateSyncState(ctx context.Context, id int64, state string) error {
	if _, err := db.db.ExecContext(ctx,
		`UPDATE syncs SET state = ?, updated_at = ? WHERE id = ?`, state, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}

// AppendReport adds one report to the sync's history. History is append-only;
// existing entries are never rewritten.
func (db *DB) AppendReport(ctx context.Context, syncID int64, report models.Report) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT history FROM syncs WHERE id = ?`, syncID).Scan(&raw); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	var history []models.Report
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}
	history = append(history, report)

	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE syncs SET history = ?, updated_at = ? WHERE id = ?`, string(encoded), time.Now(), syncID); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSync(row rowScanner) (*models.Sync, error) {
	var sync models.Sync
	var history string
	err := row.Scan(
		&sync.ID, &sync.OrganizationID, &sync.TokenID, &sync.Action, &sync.ForModel,
		&sync.State, &history, &sync.CreatedAt, &sync.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &sync.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &sync, nil
}
