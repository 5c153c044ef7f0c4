// Package lifecycle implements the finite-state machine governing a sync's
// run states and its after-transition side effects.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgersync/internal/domain"
	"ledgersync/internal/models"

	"github.com/rs/zerolog"
)

// Events a sync can receive.
type Event string

const (
	EventMarkQueued  Event = "mark_queued"
	EventMarkRunning Event = "mark_running"
	EventMarkFailed  Event = "mark_failed"
	EventMarkTimeout Event = "mark_timeout"
	EventComplete    Event = "complete"
)

// ErrInvalidTransition is returned when an event is not legal from the sync's
// current state. Illegal transitions are rejected, never silently ignored.
var ErrInvalidTransition = errors.New("lifecycle: invalid transition")

// transitions maps event x current state -> next state. mark_queued from
// running stays running: a re-queue request must not disturb an in-flight run
// restarted by a crashed worker.
var transitions = map[Event]map[string]string{
	EventMarkQueued: {
		models.StateDormant: models.StateQueued,
		models.StateQueued:  models.StateQueued,
		models.StateRunning: models.StateRunning,
		models.StateFailed:  models.StateQueued,
		models.StateTimeout: models.StateQueued,
	},
	EventMarkRunning: {
		models.StateDormant: models.StateRunning,
		models.StateQueued:  models.StateRunning,
		models.StateRunning: models.StateRunning,
		models.StateFailed:  models.StateRunning,
		models.StateTimeout: models.StateRunning,
	},
	EventMarkFailed: {
		models.StateDormant: models.StateFailed,
		models.StateQueued:  models.StateFailed,
		models.StateRunning: models.StateFailed,
		models.StateFailed:  models.StateFailed,
		models.StateTimeout: models.StateFailed,
	},
	EventMarkTimeout: {
		models.StateDormant: models.StateTimeout,
		models.StateQueued:  models.StateTimeout,
		models.StateRunning: models.StateTimeout,
		models.StateFailed:  models.StateTimeout,
		models.StateTimeout: models.StateTimeout,
	},
	EventComplete: {
		models.StateRunning: models.StateDormant,
	},
}

// Machine fires events against syncs, persists the resulting state and runs
// the after-transition hooks.
type Machine struct {
	syncs    domain.SyncStore
	orgs     domain.OrganizationStore
	notifier domain.Notifier
	monitor  domain.Monitor
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewMachine(syncs domain.SyncStore, orgs domain.OrganizationStore, notifier domain.Notifier, monitor domain.Monitor, logger *zerolog.Logger) *Machine {
	return &Machine{
		syncs:    syncs,
		orgs:     orgs,
		notifier: notifier,
		monitor:  monitor,
		logger:   logger,
		now:      time.Now,
	}
}

// Fire applies one event. On success the sync's state is persisted and the
// event's after-hooks run; hook failures are reported to monitoring and
// swallowed so they never mask the event itself.
func (m *Machine) Fire(ctx context.Context, sync *models.Sync, event Event) error {
	next, ok := transitions[event][sync.State]
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, sync.State)
	}

	if err := m.syncs.UpdateSyncState(ctx, sync.ID, next); err != nil {
		return fmt.Errorf("persist state %s: %w", next, err)
	}

	m.logger.Debug().
		Int64("sync_id", sync.ID).
		Str("event", string(event)).
		Str("from", sync.State).
		Str("to", next).
		Msg("Sync transition")
	sync.State = next

	switch event {
	case EventMarkFailed, EventMarkTimeout:
		m.recordFail(ctx, sync)
	case EventComplete:
		m.recordSuccess(ctx, sync)
	}
	return nil
}

// recordFail stamps the organization's last_sync_at. Saved without full
// validation; a failure here must never mask the original run error.
func (m *Machine) recordFail(ctx context.Context, sync *models.Sync) {
	if err := m.orgs.UpdateSyncTimestamps(ctx, sync.OrganizationID, m.now(), nil); err != nil {
		m.monitor.Report(fmt.Errorf("record fail for sync %d: %w", sync.ID, err))
	}
}

// recordSuccess stamps both timestamps and, on the organization's first ever
// successful sync, sends the first-sync-complete notification.
func (m *Machine) recordSuccess(ctx context.Context, sync *models.Sync) {
	org, err := m.orgs.GetOrganization(ctx, sync.OrganizationID)
	if err != nil {
		m.monitor.Report(fmt.Errorf("record success for sync %d: %w", sync.ID, err))
		return
	}

	isFirstSync := org.LastSuccessfulSyncAt == nil
	now := m.now()
	if err := m.orgs.UpdateSyncTimestamps(ctx, sync.OrganizationID, now, &now); err != nil {
		m.monitor.Report(fmt.Errorf("record success for sync %d: %w", sync.ID, err))
		return
	}

	if isFirstSync {
		if err := m.notifier.FirstSyncComplete(ctx, sync); err != nil {
			m.monitor.Report(fmt.Errorf("first sync notification for sync %d: %w", sync.ID, err))
		}
	}
}
