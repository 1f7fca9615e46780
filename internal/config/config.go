package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/fieldwise/internal/attom"
	"github.com/Veraticus/fieldwise/internal/auth"
	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/eventlog"
	"github.com/Veraticus/fieldwise/internal/jobber"
	"github.com/Veraticus/fieldwise/internal/webhook"
)

// DefaultDatabasePath is where the account store lives unless configured.
const DefaultDatabasePath = "~/.local/share/fieldwise/fieldwise.db"

// Config is the full application configuration.
type Config struct {
	Jobber   JobberConfig
	Attom    AttomConfig
	Server   ServerConfig
	Webhook  WebhookConfig
	Database DatabaseConfig
	EventLog EventLogConfig
	Logging  LoggingConfig
}

// JobberConfig holds the platform OAuth client and API settings.
type JobberConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	GraphQLURL   string
	APIVersion   string
	RedirectURL  string
}

// AttomConfig holds the property-data API settings.
type AttomConfig struct {
	APIKey            string
	BaseURL           string
	CacheTTL          time.Duration
	RequestsPerMinute int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string
	SessionSecret     string
	ProcessingTimeout time.Duration
}

// WebhookConfig controls delivery verification.
type WebhookConfig struct {
	VerifySignatures bool
}

// DatabaseConfig locates the account store.
type DatabaseConfig struct {
	Path string
}

// EventLogConfig sizes the in-memory event history.
type EventLogConfig struct {
	Capacity int
}

// LoggingConfig selects the slog level and format.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("jobber.auth_url", auth.DefaultAuthURL)
	v.SetDefault("jobber.token_url", auth.DefaultTokenURL)
	v.SetDefault("jobber.graphql_url", jobber.DefaultEndpoint)
	v.SetDefault("jobber.api_version", jobber.DefaultAPIVersion)
	v.SetDefault("jobber.redirect_url", "http://localhost:3000/auth/callback")

	v.SetDefault("attom.base_url", attom.DefaultBaseURL)
	v.SetDefault("attom.requests_per_minute", attom.DefaultRequestsPerMinute)
	v.SetDefault("attom.cache_ttl", attom.DefaultCacheTTL)

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.processing_timeout", webhook.DefaultProcessingTimeout)

	v.SetDefault("webhook.verify_signatures", true)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("eventlog.capacity", eventlog.DefaultCapacity)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration from v. Defaults must already be registered.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Jobber: JobberConfig{
			ClientID:     v.GetString("jobber.client_id"),
			ClientSecret: v.GetString("jobber.client_secret"),
			AuthURL:      v.GetString("jobber.auth_url"),
			TokenURL:     v.GetString("jobber.token_url"),
			GraphQLURL:   v.GetString("jobber.graphql_url"),
			APIVersion:   v.GetString("jobber.api_version"),
			RedirectURL:  v.GetString("jobber.redirect_url"),
		},
		Attom: AttomConfig{
			APIKey:            v.GetString("attom.api_key"),
			BaseURL:           v.GetString("attom.base_url"),
			RequestsPerMinute: v.GetInt("attom.requests_per_minute"),
			CacheTTL:          v.GetDuration("attom.cache_ttl"),
		},
		Server: ServerConfig{
			Addr:              v.GetString("server.addr"),
			SessionSecret:     v.GetString("server.session_secret"),
			ProcessingTimeout: v.GetDuration("server.processing_timeout"),
		},
		Webhook: WebhookConfig{
			VerifySignatures: v.GetBool("webhook.verify_signatures"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		EventLog: EventLogConfig{
			Capacity: v.GetInt("eventlog.capacity"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.EventLog.Capacity <= 0 {
		return fmt.Errorf("%w: eventlog.capacity must be positive, got %d", common.ErrInvalidConfig, c.EventLog.Capacity)
	}
	if c.Attom.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: attom.requests_per_minute must not be negative", common.ErrInvalidConfig)
	}
	if c.Server.ProcessingTimeout <= 0 {
		return fmt.Errorf("%w: server.processing_timeout must be positive", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	var missing []string
	if c.Jobber.ClientID == "" {
		missing = append(missing, "jobber.client_id")
	}
	if c.Jobber.ClientSecret == "" {
		missing = append(missing, "jobber.client_secret")
	}
	if c.Attom.APIKey == "" {
		missing = append(missing, "attom.api_key")
	}
	if c.Server.SessionSecret == "" {
		missing = append(missing, "server.session_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", common.ErrMissingConfig, missing)
	}
	if len(c.Server.SessionSecret) < 32 {
		return fmt.Errorf("%w: server.session_secret must be at least 32 bytes", common.ErrInvalidConfig)
	}
	return nil
}
