package provider

import "errors"

// Sentinel errors surfaced by the client. ErrUnauthorized,
// ErrAuthorizationFailure and ErrMalformedResponse indicate the stored
// credential is no longer usable; the syncer's classifier keys off them.
var (
	ErrUnauthorized         = errors.New("provider: unauthorized")
	ErrAuthorizationFailure = errors.New("provider: authorization failure")
	ErrMalformedResponse    = errors.New("provider: malformed response")
)
