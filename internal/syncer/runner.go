// Package syncer orchestrates a sync run: state transitions, the
// fetch-paginate loop, reconciliation and failure handling.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgersync/internal/config"
	"ledgersync/internal/domain"
	"ledgersync/internal/fetch"
	"ledgersync/internal/lifecycle"
	"ledgersync/internal/models"
	"ledgersync/internal/provider"
	"ledgersync/internal/reconcile"
	"ledgersync/internal/report"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRunTimeout is raised when a run exceeds its total timeout between pages.
var ErrRunTimeout = errors.New("sync: total timeout exceeded")

// Fetcher is the bounded page capability the runner loops over.
type Fetcher interface {
	FetchPage(ctx context.Context, kind string, opts provider.FetchOptions) ([]models.RecordData, error)
	SupportsPagination(kind string) bool
}

// FetcherFactory builds a Fetcher for one consumer token; each run gets a
// fresh one because the token may have been refreshed or revoked in between.
type FetcherFactory func(ctx context.Context, token *models.ConsumerToken, fetchTimeout time.Duration) Fetcher

// Options tune one run. Zero values fall back to the defaults: page 1,
// 1 minute per fetch, 4 hours overall.
type Options struct {
	OnOrAfter    *time.Time
	PageStart    int
	FetchTimeout time.Duration
	TotalTimeout time.Duration
}

// Runner drives the full lifecycle of a sync run.
type Runner struct {
	machine    *lifecycle.Machine
	syncs      domain.SyncStore
	orgs       domain.OrganizationStore
	tokens     domain.TokenStore
	reconciler *reconcile.Reconciler
	handler    *ErrorHandler
	newFetcher FetcherFactory
	logger     *zerolog.Logger
}

func NewRunner(
	machine *lifecycle.Machine,
	syncs domain.SyncStore,
	orgs domain.OrganizationStore,
	tokens domain.TokenStore,
	reconciler *reconcile.Reconciler,
	handler *ErrorHandler,
	newFetcher FetcherFactory,
	logger *zerolog.Logger,
) *Runner {
	return &Runner{
		machine:    machine,
		syncs:      syncs,
		orgs:       orgs,
		tokens:     tokens,
		reconciler: reconciler,
		handler:    handler,
		newFetcher: newFetcher,
		logger:     logger,
	}
}

// Run executes one sync run and returns its report. On failure the report is
// partially filled, the error handler has already updated state and history,
// and the original error is returned to the caller.
func (r *Runner) Run(ctx context.Context, sync *models.Sync, opts Options) (models.Report, error) {
	if opts.PageStart == 0 {
		opts.PageStart = 1
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = time.Minute
	}
	if opts.TotalTimeout == 0 {
		opts.TotalTimeout = 4 * time.Hour
	}

	runID := uuid.NewString()
	logger := r.logger.With().
		Int64("sync_id", sync.ID).
		Str("run_id", runID).
		Str("kind", sync.ForModel).
		Logger()

	// The run-ended event fires regardless of outcome; dashboards key off it.
	defer func() {
		logger.Info().Str("state", sync.State).Msg("Sync run ended")
	}()

	builder := report.New(sync.ForModel, time.Now(), runID)

	if err := r.run(ctx, sync, opts, builder, &logger); err != nil {
		r.handler.Handle(ctx, sync, builder, err)
		return builder.Report(), err
	}
	return builder.Report(), nil
}

func (r *Runner) run(ctx context.Context, sync *models.Sync, opts Options, builder *report.Builder, logger *zerolog.Logger) error {
	if err := r.machine.Fire(ctx, sync, lifecycle.EventMarkRunning); err != nil {
		return err
	}

	org, err := r.orgs.GetOrganization(ctx, sync.OrganizationID)
	if err != nil {
		return err
	}
	token, err := r.tokens.GetToken(ctx, sync.TokenID)
	if err != nil {
		return err
	}

	fetchOpts := provider.FetchOptions{Page: opts.PageStart}
	if sync.Action == models.ActionUpdate {
		// Pull everything touched since the last good run, padded back an
		// hour so clock skew between us and the provider loses no records.
		if org.LastSuccessfulSyncAt != nil {
			onOrAfter := org.LastSuccessfulSyncAt.Add(-time.Hour)
			fetchOpts.OnOrAfter = &onOrAfter
		}
		if opts.OnOrAfter != nil {
			fetchOpts.OnOrAfter = opts.OnOrAfter
		}
	}

	fetcher := r.newFetcher(ctx, token, opts.FetchTimeout)
	paginates := fetcher.SupportsPagination(sync.ForModel)
	deadline := builder.StartedAt().Add(opts.TotalTimeout)

	records, err := fetcher.FetchPage(ctx, sync.ForModel, fetchOpts)
	if err != nil {
		return err
	}

	for len(records) > 0 {
		for _, record := range records {
			if err := r.reconciler.Process(ctx, sync.OrganizationID, sync.ForModel, record, builder); err != nil {
				return err
			}
		}

		fetchOpts.Page++

		if !paginates {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("sync %d ran past %s: %w", sync.ID, opts.TotalTimeout, ErrRunTimeout)
		}

		records, err = fetcher.FetchPage(ctx, sync.ForModel, fetchOpts)
		if err != nil {
			return err
		}
	}

	finished := builder.Report()
	if err := r.syncs.AppendReport(ctx, sync.ID, finished); err != nil {
		return err
	}
	sync.History = append(sync.History, finished)

	logger.Info().Int("count", builder.Count()).Msg("Sync run reconciled")
	return r.machine.Fire(ctx, sync, lifecycle.EventComplete)
}

// NewProviderFetcherFactory wires the real provider client behind the
// bounded fetch wrapper.
func NewProviderFetcherFactory(cfg config.ProviderConfig, logger *zerolog.Logger) FetcherFactory {
	return func(ctx context.Context, token *models.ConsumerToken, fetchTimeout time.Duration) Fetcher {
		client := provider.NewClient(ctx, cfg, token, logger)
		return fetch.New(client, fetchTimeout, logger)
	}
}
