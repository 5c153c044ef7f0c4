package syncer

import (
	"context"
	"errors"
	"fmt"

	"ledgersync/internal/domain"
	"ledgersync/internal/fetch"
	"ledgersync/internal/lifecycle"
	"ledgersync/internal/models"
	"ledgersync/internal/provider"
	"ledgersync/internal/report"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ErrorKind is the closed classification of run failures.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindTimeout
	KindInvalidToken
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindInvalidToken:
		return "invalid_token"
	default:
		return "other"
	}
}

// invalidTokenErrors is the explicit allow-list of failures that mean the
// stored credential is no longer usable. Membership here triggers token
// revocation; nothing is inferred from error text.
var invalidTokenErrors = []error{
	provider.ErrUnauthorized,
	provider.ErrAuthorizationFailure,
	provider.ErrMalformedResponse,
}

// Classify maps a run failure onto its kind.
func Classify(err error) ErrorKind {
	if errors.Is(err, ErrRunTimeout) || errors.Is(err, fetch.ErrFetchTimeout) {
		return KindTimeout
	}
	for _, target := range invalidTokenErrors {
		if errors.Is(err, target) {
			return KindInvalidToken
		}
	}
	// A failed OAuth2 token refresh is the transport-level variant of an
	// invalid credential.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return KindInvalidToken
	}
	return KindOther
}

// ErrorHandler updates sync state and report bookkeeping for a failed run and
// decides secondary effects. It never raises: any failure inside Handle is
// forwarded to monitoring and swallowed, so the caller always re-raises the
// original run error, not a bookkeeping one.
type ErrorHandler struct {
	machine  *lifecycle.Machine
	syncs    domain.SyncStore
	tokens   domain.TokenStore
	notifier domain.Notifier
	monitor  domain.Monitor
	logger   *zerolog.Logger
}

func NewErrorHandler(
	machine *lifecycle.Machine,
	syncs domain.SyncStore,
	tokens domain.TokenStore,
	notifier domain.Notifier,
	monitor domain.Monitor,
	logger *zerolog.Logger,
) *ErrorHandler {
	return &ErrorHandler{
		machine:  machine,
		syncs:    syncs,
		tokens:   tokens,
		notifier: notifier,
		monitor:  monitor,
		logger:   logger,
	}
}

func (h *ErrorHandler) Handle(ctx context.Context, sync *models.Sync, builder *report.Builder, cause error) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error().Interface("panic", p).Msg("Panic inside sync error handler")
		}
	}()

	kind := Classify(cause)
	h.logger.Error().
		Err(cause).
		Int64("sync_id", sync.ID).
		Str("error_kind", kind.String()).
		Msg("Sync run failed")

	builder.SetException(cause.Error())

	event := lifecycle.EventMarkFailed
	if kind == KindTimeout {
		event = lifecycle.EventMarkTimeout
	}
	if err := h.machine.Fire(ctx, sync, event); err != nil {
		h.monitor.Report(fmt.Errorf("mark sync %d after failure: %w", sync.ID, err))
	}

	failedReport := builder.Report()
	if err := h.syncs.AppendReport(ctx, sync.ID, failedReport); err != nil {
		h.monitor.Report(fmt.Errorf("append failure report for sync %d: %w", sync.ID, err))
	} else {
		sync.History = append(sync.History, failedReport)
	}

	if kind == KindInvalidToken {
		if err := h.notifier.InvalidToken(ctx, sync); err != nil {
			h.monitor.Report(fmt.Errorf("invalid token notification for sync %d: %w", sync.ID, err))
		}
		if err := h.tokens.DeleteToken(ctx, sync.TokenID); err != nil {
			h.monitor.Report(fmt.Errorf("revoke token %d: %w", sync.TokenID, err))
		}
	}

	h.monitor.Report(cause)
}
