// Package worker polls for queued syncs and runs them, one at a time per
// sync identity.
package worker

import (
	"context"
	"time"

	"ledgersync/internal/domain"
	"ledgersync/internal/lifecycle"
	"ledgersync/internal/metrics"
	"ledgersync/internal/models"
	"ledgersync/internal/provider"
	"ledgersync/internal/syncer"

	"github.com/rs/zerolog"
)

// SyncRunner is what the dispatcher drives for each due sync.
type SyncRunner interface {
	Run(ctx context.Context, sync *models.Sync, opts syncer.Options) (models.Report, error)
}

// Dispatcher polls the store for queued syncs, takes the per-sync run lock
// and executes them. When a run completes it queues the organization's sync
// for the next kind in dependency order.
type Dispatcher struct {
	syncs        domain.SyncStore
	runner       SyncRunner
	locker       domain.Locker
	machine      *lifecycle.Machine
	runOpts      syncer.Options
	lockTTL      time.Duration
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
}

func NewDispatcher(
	syncs domain.SyncStore,
	runner SyncRunner,
	locker domain.Locker,
	machine *lifecycle.Machine,
	runOpts syncer.Options,
	lockTTL time.Duration,
	pollInterval time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *Dispatcher {
	if lockTTL == 0 {
		lockTTL = 5 * time.Hour
	}
	if pollInterval == 0 {
		pollInterval = 30 * time.Second
	}
	if batchSize == 0 {
		batchSize = 10
	}
	return &Dispatcher{
		syncs:        syncs,
		runner:       runner,
		locker:       locker,
		machine:      machine,
		runOpts:      runOpts,
		lockTTL:      lockTTL,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Enqueue marks a sync as queued. Queueing a running sync is a no-op on its
// state, so an in-flight run is never disturbed.
func (d *Dispatcher) Enqueue(ctx context.Context, sync *models.Sync) error {
	return d.machine.Fire(ctx, sync, lifecycle.EventMarkQueued)
}

// Start launches the poll loop; stops when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info().Msg("Sync dispatcher started")
	defer d.logger.Info().Msg("Sync dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		syncs, err := d.syncs.GetQueuedSyncs(ctx, d.batchSize)
		if err != nil {
			d.logger.Error().Err(err).Msg("Failed to fetch queued syncs")
			d.sleep(ctx)
			continue
		}
		if len(syncs) == 0 {
			d.sleep(ctx)
			continue
		}

		for _, sync := range syncs {
			d.dispatch(ctx, sync)
		}
	}
}

func (d *Dispatcher) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(d.pollInterval):
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, sync *models.Sync) {
	acquired, err := d.locker.Acquire(ctx, sync.ID, d.lockTTL)
	if err != nil {
		d.logger.Error().Err(err).Int64("sync_id", sync.ID).Msg("Failed to acquire run lock")
		return
	}
	if !acquired {
		d.logger.Debug().Int64("sync_id", sync.ID).Msg("Sync already running elsewhere")
		return
	}
	defer func() {
		if err := d.locker.Release(ctx, sync.ID); err != nil {
			d.logger.Error().Err(err).Int64("sync_id", sync.ID).Msg("Failed to release run lock")
		}
	}()

	start := time.Now()
	rep, err := d.runner.Run(ctx, sync, d.runOpts)
	d.observe(sync, rep, err, time.Since(start))
	if err != nil {
		return
	}

	d.chainNext(ctx, sync)
}

func (d *Dispatcher) observe(sync *models.Sync, rep models.Report, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = syncer.Classify(err).String()
	}
	metrics.IncRun(result)
	metrics.ObserveRunDuration(elapsed)
	metrics.AddSynced(sync.ForModel, rep.Count)
	for range rep.Skips {
		metrics.IncSkip(sync.ForModel, "hard")
	}
	for counter, n := range rep.AllowableSkips {
		for i := 0; i < n; i++ {
			metrics.IncSkip(sync.ForModel, counter)
		}
	}
}

// chainNext queues the organization's sync for the kind after this one, so a
// full pass walks customers, then invoices, then payments.
func (d *Dispatcher) chainNext(ctx context.Context, sync *models.Sync) {
	nextKind, ok := provider.NextKind(sync.ForModel)
	if !ok {
		return
	}

	nextSync, err := d.syncs.FindSyncForKind(ctx, sync.OrganizationID, nextKind)
	if err != nil {
		d.logger.Error().Err(err).Int64("sync_id", sync.ID).Str("next_kind", nextKind).Msg("Failed to look up next sync")
		return
	}
	if nextSync == nil {
		return
	}

	if err := d.Enqueue(ctx, nextSync); err != nil {
		d.logger.Error().Err(err).Int64("sync_id", nextSync.ID).Msg("Failed to queue next sync")
	}
}
