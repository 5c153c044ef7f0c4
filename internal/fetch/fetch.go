// Package fetch wraps single page requests to the provider with a bounded
// timeout and exactly one retry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"ledgersync/internal/models"
	"ledgersync/internal/provider"

	"github.com/rs/zerolog"
)

// ErrFetchTimeout is returned after two consecutive timed-out calls for the
// same page.
var ErrFetchTimeout = errors.New("fetch: provider call timed out")

// Provider is the paged capability consumed by the client.
type Provider interface {
	Fetch(ctx context.Context, kind string, opts provider.FetchOptions) ([]models.RecordData, error)
	SupportsPagination(kind string) bool
}

// Client bounds every provider call and strips blank attributes from the
// returned records.
type Client struct {
	provider Provider
	timeout  time.Duration
	logger   *zerolog.Logger
}

func New(p Provider, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Client{provider: p, timeout: timeout, logger: logger}
}

func (c *Client) SupportsPagination(kind string) bool {
	return c.provider.SupportsPagination(kind)
}

// FetchPage issues one bounded call. A timed-out call is retried once; a
// second timeout surfaces as ErrFetchTimeout. Other errors propagate as-is.
func (c *Client) FetchPage(ctx context.Context, kind string, opts provider.FetchOptions) ([]models.RecordData, error) {
	records, err := c.fetchOnce(ctx, kind, opts)
	if err == nil {
		return stripBlanks(records), nil
	}
	if !isTimeout(err) || ctx.Err() != nil {
		return nil, err
	}

	c.logger.Warn().Str("kind", kind).Int("page", opts.Page).Msg("Fetch timed out, retrying once")

	records, err = c.fetchOnce(ctx, kind, opts)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("fetch %s page %d: %w", kind, opts.Page, ErrFetchTimeout)
		}
		return nil, err
	}
	return stripBlanks(records), nil
}

func (c *Client) fetchOnce(ctx context.Context, kind string, opts provider.FetchOptions) ([]models.RecordData, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.Fetch(callCtx, kind, opts)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// stripBlanks removes attributes whose value is blank, so empty-string and
// nil noise from the provider never reaches reconciliation.
func stripBlanks(records []models.RecordData) []models.RecordData {
	for _, record := range records {
		for key, value := range record {
			if isBlank(value) {
				delete(record, key)
			}
		}
	}
	return records
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []int64:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
