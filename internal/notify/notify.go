// Package notify delivers fire-and-forget operator notifications.
package notify

import (
	"context"

	"ledgersync/internal/models"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log. Used when no Telegram channel
// is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) FirstSyncComplete(ctx context.Context, sync *models.Sync) error {
	n.logger.Info().
		Int64("sync_id", sync.ID).
		Int64("organization_id", sync.OrganizationID).
		Str("kind", sync.ForModel).
		Msg("First sync complete")
	return nil
}

func (n *LogNotifier) InvalidToken(ctx context.Context, sync *models.Sync) error {
	n.logger.Warn().
		Int64("sync_id", sync.ID).
		Int64("organization_id", sync.OrganizationID).
		Int64("token_id", sync.TokenID).
		Msg("Consumer token invalid, revoking")
	return nil
}
