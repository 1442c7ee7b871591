package identity

import (
	"errors"
	"time"
)

// ExternalIdentity is the normalized profile returned by an OAuth
// provider. It contains facts only and lives for the duration of a
// single callback; it is never persisted as-is.
type ExternalIdentity struct {
	Provider    string // e.g. "discord", "google"
	ExternalID  string // provider-scoped unique user identifier
	Email       string
	DisplayName string
	AvatarURL   string
}

// AccountLink is the persistent association between a platform account
// and one external identity. At most one link exists per
// (provider, external_id) and per (user_id, provider).
type AccountLink struct {
	ID         string
	UserID     string
	Provider   string
	ExternalID string
	LinkedAt   time.Time
}

// Intent says what the browser was trying to do when it left for the
// provider. It round-trips inside the state token.
type Intent string

const (
	// IntentLogin signs the user in, creating an account on first contact.
	IntentLogin Intent = "login"
	// IntentLink attaches the identity to an already-authenticated account.
	IntentLink Intent = "link"
)

var (
	// ErrNotFound is returned by repository lookups that match nothing.
	ErrNotFound = errors.New("identity: not found")

	// ErrDuplicateLink is returned when a link insert loses a uniqueness
	// race on (provider, external_id). Callers re-read and treat a
	// consistent existing row as success.
	ErrDuplicateLink = errors.New("identity: link already exists")

	// ErrLinkConflict is returned when the external identity is already
	// linked to a different user. The existing link is never reassigned.
	ErrLinkConflict = errors.New("identity: linked to another account")
)
