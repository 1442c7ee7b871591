package provider

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
)

// OAuthProvider defines the contract every external identity provider
// implements. Implementations return identity facts only and must not
// perform account creation, linking, or session management.
//
// Exchange and FetchIdentity are separate steps on purpose: they fail
// for different reasons and the callback flow reports them with
// different markers.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "discord", "google").
	Name() string

	// AuthCodeURL returns the provider authorization URL carrying the
	// given state token. The redirect URI baked in at construction time
	// is the registered one; it is never derived from a request.
	AuthCodeURL(state string) string

	// Exchange trades the single-use authorization code for provider
	// tokens. Providers validate that the redirect URI sent here equals
	// the one used in AuthCodeURL.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchIdentity retrieves the user's profile with the obtained token.
	FetchIdentity(ctx context.Context, token *oauth2.Token) (*identity.ExternalIdentity, error)
}
