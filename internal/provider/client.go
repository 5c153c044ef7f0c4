package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ledgersync/internal/config"
	"ledgersync/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client fetches record pages for one consumer token. The underlying HTTP
// client refreshes the OAuth2 token transparently; a failed refresh surfaces
// as *oauth2.RetrieveError to the caller.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	pageSize  int
	paginated map[string]bool
	logger    *zerolog.Logger
}

func NewClient(ctx context.Context, cfg config.ProviderConfig, token *models.ConsumerToken, logger *zerolog.Logger) *Client {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}

	paginated := make(map[string]bool, len(cfg.PaginatedKinds))
	for _, kind := range cfg.PaginatedKinds {
		paginated[kind] = true
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		http:      oauthCfg.Client(ctx, token.OAuth()),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		pageSize:  cfg.PageSize,
		paginated: paginated,
		logger:    logger,
	}
}

// SupportsPagination reports whether the provider pages results for a kind.
// Non-paginated kinds return their entire result on page 1 and must not be
// asked for page 2.
func (c *Client) SupportsPagination(kind string) bool {
	return c.paginated[kind]
}

// Fetch retrieves one page of records for a kind. An empty slice signals
// end-of-data.
func (c *Client) Fetch(ctx context.Context, kind string, opts FetchOptions) ([]models.RecordData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.baseURL, kind)
	if err != nil {
		return nil, fmt.Errorf("build provider url: %w", err)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(opts.Page))
	query.Set("per_page", strconv.Itoa(c.pageSize))
	if opts.OnOrAfter != nil {
		query.Set("updated_since", opts.OnOrAfter.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request %s: %w", kind, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("kind", kind).
		Int("page", opts.Page).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Provider page fetched")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("fetch %s page %d: %w", kind, opts.Page, ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("fetch %s page %d: %w", kind, opts.Page, ErrAuthorizationFailure)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s page %d: provider returned %d: %s", kind, opts.Page, resp.StatusCode, body)
	}

	var records []models.RecordData
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s page %d: %w: %v", kind, opts.Page, ErrMalformedResponse, err)
	}
	return records, nil
}
