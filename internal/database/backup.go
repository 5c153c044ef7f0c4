package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgersync/internal/config"

	"github.com/rs/zerolog"
)

// BackupService periodically snapshots the sqlite store. Synced records are
// rebuildable from the provider, but report history is not.
type BackupService struct {
	db     *DB
	config config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{db: db, config: cfg, logger: logger}
}

func (s *BackupService) interval() time.Duration {
	if s.config.Interval == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(s.config.Interval)
	if err != nil {
		s.logger.Warn().Err(err).Str("interval", s.config.Interval).Msg("Bad backup interval, using 24h")
		return 24 * time.Hour
	}
	return d
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Msg("Backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.pruneOldSnapshots()
		}
	}
}

// Snapshot writes a consistent copy of the database. VACUUM INTO runs inside
// sqlite, so concurrent writers see no lock beyond a normal read transaction.
func (s *BackupService) Snapshot(ctx context.Context) error {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("snapshot_%s.db", time.Now().Format("20060102_150405"))
	target := filepath.Join(s.config.StoragePath, name)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}

	s.logger.Info().Str("path", target).Msg("Backup complete")
	return nil
}

func (s *BackupService) pruneOldSnapshots() {
	if s.config.RetentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	entries, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list backup directory")
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "snapshot_") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.config.StoragePath, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("Failed to remove old snapshot")
		}
	}
}
