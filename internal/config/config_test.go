package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Link: LinkConfig{
			APIBaseURL:        "https://aethex.dev/api",
			StateSecret:       "0123456789abcdef0123456789abcdef",
			DefaultReturnPath: "/dashboard",
			FailurePath:       "/login",
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_TrimsTrailingSlash(t *testing.T) {
	cfg := validConfig()
	cfg.Link.APIBaseURL = "https://aethex.dev/api/"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://aethex.dev/api", cfg.Link.APIBaseURL)
}

func TestValidate_RejectsRelativeBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Link.APIBaseURL = "aethex.dev/api"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsShortStateSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Link.StateSecret = "too-short"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonRootedPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Link.DefaultReturnPath = "dashboard"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Link.FailurePath = "login"
	assert.Error(t, cfg.Validate())
}

func TestOAuthClientConfigured(t *testing.T) {
	assert.True(t, OAuthClientConfig{ClientID: "id", ClientSecret: "secret"}.Configured())
	assert.False(t, OAuthClientConfig{ClientID: "id"}.Configured())
	assert.False(t, OAuthClientConfig{}.Configured())
}
