package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
)

const providerName = "discord"

const (
	defaultAuthURL  = "https://discord.com/api/oauth2/authorize"
	defaultTokenURL = "https://discord.com/api/oauth2/token"
	defaultUserURL  = "https://discord.com/api/users/@me"
	cdnBase         = "https://cdn.discordapp.com"
)

// Provider implements OAuth2 authentication against Discord. Discord is
// plain OAuth2 (no OIDC discovery); the profile comes from the
// users/@me endpoint.
type Provider struct {
	oauthConfig *oauth2.Config
	userURL     string
}

// New builds a Discord provider. redirectURL must be the exact URI
// registered in the Discord developer portal.
func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("discord oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  defaultAuthURL,
				TokenURL: defaultTokenURL,
			},
			Scopes: []string{"identify", "email"},
		},
		userURL: defaultUserURL,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the Discord authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens. The same redirect
// URI configured at construction is sent along; Discord rejects the
// exchange if it differs from the one used during authorization.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("discord token exchange failed: %w", err)
	}
	return token, nil
}

// discordUser mirrors the subset of the users/@me response we consume.
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

// FetchIdentity retrieves the user's Discord profile.
func (p *Provider) FetchIdentity(ctx context.Context, token *oauth2.Token) (*identity.ExternalIdentity, error) {
	client := p.oauthConfig.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("discord profile request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord profile fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("discord profile fetch failed: status %d: %s", resp.StatusCode, body)
	}

	var u discordUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("discord profile decode failed: %w", err)
	}
	if u.ID == "" {
		return nil, errors.New("discord profile missing user id")
	}

	displayName := u.GlobalName
	if displayName == "" {
		displayName = u.Username
	}

	var avatarURL string
	if u.Avatar != "" {
		avatarURL = fmt.Sprintf("%s/avatars/%s/%s.png", cdnBase, u.ID, u.Avatar)
	}

	return &identity.ExternalIdentity{
		Provider:    providerName,
		ExternalID:  u.ID,
		Email:       u.Email,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}, nil
}
