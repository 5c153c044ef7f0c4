package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Organization owns all synced records and the two sync timestamps. The
// timestamps are only ever touched by state machine after-hooks, always as
// last-write-wins overwrites.
type Organization struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	LastSyncAt           *time.Time `json:"last_sync_at"`
	LastSuccessfulSyncAt *time.Time `json:"last_successful_sync_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ConsumerToken grants access to one external provider account. A sync holds a
// reference; destroying the token revokes that access for every sync using it.
type ConsumerToken struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	Expiry         time.Time `json:"expiry"`
	CreatedAt      time.Time `json:"created_at"`
}

// OAuth converts the stored credential into an oauth2 token usable by the
// provider HTTP client.
func (t *ConsumerToken) OAuth() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}
