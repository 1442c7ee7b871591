package config

import (
	"errors"
	"strings"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Link      LinkConfig      `yaml:"link"`
	Providers ProvidersConfig `yaml:"providers"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"APP_PORT"                env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-required:"true"`
}

// RedisConfig holds the session store connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// KafkaConfig holds event publication settings. Publication is disabled
// when no brokers are configured.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic"   env:"KAFKA_TOPIC" env-default:"identity.events"`
}

// LinkConfig governs the identity-linking flow itself.
type LinkConfig struct {
	// APIBaseURL is the canonical public base of this service's API.
	// Provider redirect URIs are derived from this value and only this
	// value; they must match the URI registered with the provider
	// byte-for-byte, so the inbound Host header is never consulted.
	APIBaseURL string `yaml:"api_base_url" env:"API_BASE_URL" env-required:"true"`

	// StateSecret signs the state token that round-trips through the
	// provider. Any instance must be able to decode a state issued by
	// any other instance, so the secret is shared, not per-process.
	StateSecret string        `yaml:"state_secret" env:"LINK_STATE_SECRET" env-required:"true"`
	StateTTL    time.Duration `yaml:"state_ttl"    env:"LINK_STATE_TTL"    env-default:"10m"`

	// ProviderTimeout bounds the token-exchange and profile-fetch calls.
	// Authorization codes are single-use, so these calls are never retried.
	ProviderTimeout time.Duration `yaml:"provider_timeout" env:"LINK_PROVIDER_TIMEOUT" env-default:"5s"`

	// DefaultReturnPath is where the browser lands when the caller did
	// not supply a destination or the state token failed to decode.
	DefaultReturnPath string `yaml:"default_return_path" env:"LINK_DEFAULT_RETURN_PATH" env-default:"/dashboard"`

	// FailurePath is the landing page for every failure exit; the error
	// marker is appended as ?error=<marker>.
	FailurePath string `yaml:"failure_path" env:"LINK_FAILURE_PATH" env-default:"/login"`

	SessionTTL time.Duration `yaml:"session_ttl" env:"LINK_SESSION_TTL" env-default:"24h"`
}

// ProvidersConfig holds per-provider OAuth client registrations.
type ProvidersConfig struct {
	Discord OAuthClientConfig `yaml:"discord" env-prefix:"DISCORD_"`
	Google  OAuthClientConfig `yaml:"google"  env-prefix:"GOOGLE_"`
}

// OAuthClientConfig is the client registration for one OAuth provider.
type OAuthClientConfig struct {
	ClientID     string `yaml:"client_id"     env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Configured reports whether the client registration is usable.
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Validate checks invariants that cleanenv tags cannot express.
func (c *Config) Validate() error {
	c.Link.APIBaseURL = strings.TrimRight(c.Link.APIBaseURL, "/")
	if !strings.HasPrefix(c.Link.APIBaseURL, "http://") && !strings.HasPrefix(c.Link.APIBaseURL, "https://") {
		return errors.New("link.api_base_url must be an absolute URL")
	}
	if len(c.Link.StateSecret) < 32 {
		return errors.New("link.state_secret must be at least 32 bytes")
	}
	if !strings.HasPrefix(c.Link.DefaultReturnPath, "/") {
		return errors.New("link.default_return_path must be relative to the site root")
	}
	if !strings.HasPrefix(c.Link.FailurePath, "/") {
		return errors.New("link.failure_path must be relative to the site root")
	}
	return nil
}
