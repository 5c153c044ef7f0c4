package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledgersync/internal/models"
)

func (db *DB) CreateToken(ctx context.Context, token *models.ConsumerToken) error {
	now := time.Now()
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO consumer_tokens (organization_id, access_token, refresh_token, expiry, created_at) VALUES (?, ?, ?, ?, ?)`,
		token.OrganizationID, token.AccessToken, token.RefreshToken, token.Expiry, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create consumer token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	token.ID = id
	token.CreatedAt = now
	return nil
}

func (db *DB) GetToken(ctx context.Context, id int64) (*models.ConsumerToken, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, organization_id, access_token, refresh_token, expiry, created_at FROM consumer_tokens WHERE id = ?`, id)

	var token models.ConsumerToken
	if err := row.Scan(&token.ID, &token.OrganizationID, &token.AccessToken, &token.RefreshToken, &token.Expiry, &token.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("consumer token %d not found", id)
		}
		return nil, fmt.Errorf("failed to get consumer token: %w", err)
	}
	return &token, nil
}

// DeleteToken revokes a credential. Invoked when the provider reports the
// token as no longer valid.
func (db *DB) DeleteToken(ctx context.Context, id int64) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM consumer_tokens WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete consumer token: %w", err)
	}
	return nil
}
