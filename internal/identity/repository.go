package identity

import "context"

// Repository persists accounts and their external-identity links. It is
// the only cross-request shared resource in the linking flow; the
// uniqueness invariants are enforced by its own constraints, not by
// application-level locking.
type Repository interface {
	// FindLinkByExternalID returns the link for (provider, externalID),
	// or ErrNotFound.
	FindLinkByExternalID(ctx context.Context, provider, externalID string) (*AccountLink, error)

	// CreateLink inserts a new link. Returns ErrDuplicateLink when a row
	// for (provider, externalID) or (userID, provider) already exists.
	CreateLink(ctx context.Context, userID, provider, externalID string) (*AccountLink, error)

	// FindOrCreateAccount resolves the platform account for a profile,
	// matching by email and creating the account when no match exists.
	FindOrCreateAccount(ctx context.Context, profile *ExternalIdentity) (userID string, err error)

	// DeleteLink removes the user's link for a provider. Returns
	// ErrNotFound when no such link exists.
	DeleteLink(ctx context.Context, userID, provider string) error

	// LinksByUser lists all links owned by a user, ordered by provider.
	LinksByUser(ctx context.Context, userID string) ([]*AccountLink, error)
}
