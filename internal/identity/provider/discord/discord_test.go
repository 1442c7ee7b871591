package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testRedirect = "https://aethex.dev/api/discord/oauth/callback"

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New("client-id", "client-secret", testRedirect)
	require.NoError(t, err)
	return p
}

func TestNew_RejectsMissingFields(t *testing.T) {
	_, err := New("", "secret", testRedirect)
	assert.Error(t, err)
	_, err = New("id", "", testRedirect)
	assert.Error(t, err)
	_, err = New("id", "secret", "")
	assert.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	p := newTestProvider(t)

	u, err := url.Parse(p.AuthCodeURL("signed-state-token"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, testRedirect, q.Get("redirect_uri"))
	assert.Equal(t, "signed-state-token", q.Get("state"))
	assert.Equal(t, "identify email", q.Get("scope"))
}

func TestExchange(t *testing.T) {
	var gotCode, gotRedirect string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotCode = r.FormValue("code")
		gotRedirect = r.FormValue("redirect_uri")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-xyz","token_type":"Bearer"}`)
	}))
	defer tokenSrv.Close()

	p := newTestProvider(t)
	p.oauthConfig.Endpoint.TokenURL = tokenSrv.URL

	token, err := p.Exchange(context.Background(), "one-time-code")
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", token.AccessToken)
	assert.Equal(t, "one-time-code", gotCode)
	// Must echo the registered redirect URI byte for byte.
	assert.Equal(t, testRedirect, gotRedirect)
}

func TestExchange_TokenEndpointError(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer tokenSrv.Close()

	p := newTestProvider(t)
	p.oauthConfig.Endpoint.TokenURL = tokenSrv.URL

	_, err := p.Exchange(context.Background(), "used-code")
	assert.Error(t, err)
}

func TestFetchIdentity(t *testing.T) {
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-xyz", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "190958668",
			"username": "devacct",
			"global_name": "Dev",
			"email": "dev@aethex.dev",
			"avatar": "a1b2c3"
		}`)
	}))
	defer userSrv.Close()

	p := newTestProvider(t)
	p.userURL = userSrv.URL

	got, err := p.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "tok-xyz", TokenType: "Bearer"})
	require.NoError(t, err)

	assert.Equal(t, "discord", got.Provider)
	assert.Equal(t, "190958668", got.ExternalID)
	assert.Equal(t, "dev@aethex.dev", got.Email)
	assert.Equal(t, "Dev", got.DisplayName)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/190958668/a1b2c3.png", got.AvatarURL)
}

func TestFetchIdentity_UsernameFallback(t *testing.T) {
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"5","username":"plainuser","email":"p@example.com"}`)
	}))
	defer userSrv.Close()

	p := newTestProvider(t)
	p.userURL = userSrv.URL

	got, err := p.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "t", TokenType: "Bearer"})
	require.NoError(t, err)
	assert.Equal(t, "plainuser", got.DisplayName)
	assert.Empty(t, got.AvatarURL)
}

func TestFetchIdentity_MissingID(t *testing.T) {
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"username":"ghost"}`)
	}))
	defer userSrv.Close()

	p := newTestProvider(t)
	p.userURL = userSrv.URL

	_, err := p.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "t", TokenType: "Bearer"})
	assert.Error(t, err)
}

func TestFetchIdentity_UpstreamFailure(t *testing.T) {
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer userSrv.Close()

	p := newTestProvider(t)
	p.userURL = userSrv.URL

	_, err := p.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "t", TokenType: "Bearer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
