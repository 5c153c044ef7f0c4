package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ledgersync/internal/config"
	"ledgersync/internal/database"
	"ledgersync/internal/domain"
	"ledgersync/internal/export"
	"ledgersync/internal/lifecycle"
	"ledgersync/internal/logging"
	"ledgersync/internal/metrics"
	"ledgersync/internal/monitoring"
	"ledgersync/internal/notify"
	"ledgersync/internal/reconcile"
	"ledgersync/internal/repository"
	"ledgersync/internal/syncer"
	"ledgersync/internal/worker"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	exportSyncID := flag.Int64("export-sync", 0, "export the report history of a sync to xlsx and exit")
	flag.Parse()

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *exportSyncID != 0 {
		return exportHistory(ctx, db, cfg, *exportSyncID, logger)
	}

	metrics.Register()
	monitor := monitoring.NewLogMonitor(logger)
	notifier := buildNotifier(cfg, logger)

	machine := lifecycle.NewMachine(db, db, notifier, monitor, logger)
	reconciler := reconcile.New(db, logger)
	handler := syncer.NewErrorHandler(machine, db, db, notifier, monitor, logger)
	runner := syncer.NewRunner(
		machine, db, db, db, reconciler, handler,
		syncer.NewProviderFetcherFactory(cfg.Provider, logger),
		logger,
	)

	dispatcher := worker.NewDispatcher(
		db, runner, buildLocker(cfg, logger), machine,
		syncer.Options{FetchTimeout: cfg.Sync.FetchTimeout, TotalTimeout: cfg.Sync.TotalTimeout},
		cfg.Sync.LockTTL, cfg.Sync.DispatchInterval, cfg.Sync.DispatchBatch,
		logger,
	)

	if cfg.Monitoring.PrometheusEnabled {
		monitoringServer := monitoring.NewServer(cfg.Monitoring.PrometheusPort, logger)
		go func() {
			if err := monitoringServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Monitoring server error")
			}
		}()
		defer func() {
			_ = monitoringServer.Shutdown(context.Background())
		}()
	}

	if cfg.Database.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Database.Backup, logger)
		go backupService.Start(ctx)
	}

	dispatcher.Start(ctx)
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Component(baseLogger, "syncd")
	return cfg, &logger, closer, nil
}

func buildNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Notify.TelegramToken == "" {
		return notify.NewLogNotifier(logger)
	}
	notifier, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Telegram notifier unavailable, falling back to log notifier")
		return notify.NewLogNotifier(logger)
	}
	return notifier
}

func buildLocker(cfg *config.Config, logger *zerolog.Logger) domain.Locker {
	memory := repository.NewMemoryLocker()
	if cfg.Redis.Address == "" {
		return memory
	}
	redisLocker := repository.NewRedisLocker(repository.NewRedisClient(cfg.Redis))
	return repository.NewFailoverLocker(redisLocker, memory, logger)
}

func exportHistory(ctx context.Context, db *database.DB, cfg *config.Config, syncID int64, logger *zerolog.Logger) error {
	sync, err := db.GetSync(ctx, syncID)
	if err != nil {
		return err
	}

	dir := cfg.Exports.Path
	if dir == "" {
		dir = "exports"
	}
	path, err := export.WriteReportHistory(dir, sync)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Int64("sync_id", syncID).Msg("Report history exported")
	return nil
}
