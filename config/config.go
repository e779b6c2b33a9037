// Package config loads the service configuration from YAML with environment
// variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	Audio    AudioConfig    `yaml:"audio"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains the SQLite DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AuthConfig contains token and password settings. The signing secret should
// come from BREWY_SIGNING_SECRET rather than the file.
type AuthConfig struct {
	SigningSecret string `yaml:"signing_secret"`
	TokenTTL      string `yaml:"token_ttl"`
	TokenIssuer   string `yaml:"token_issuer"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
}

// LockoutConfig contains failed-login lockout settings.
type LockoutConfig struct {
	Threshold     int `yaml:"threshold"`
	WindowMinutes int `yaml:"window_minutes"`
}

// AudioConfig contains external pipeline settings.
type AudioConfig struct {
	PipelineURL   string `yaml:"pipeline_url"`
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			DSN: "file:brewy.db?cache=shared&mode=rwc",
		},
		Auth: AuthConfig{
			TokenTTL:    "24h",
			TokenIssuer: "brewy",
			BcryptCost:  12,
		},
		Lockout: LockoutConfig{
			Threshold:     5,
			WindowMinutes: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// applyEnvOverrides applies environment variable overrides. Secrets should
// always come from the environment in production.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BREWY_SIGNING_SECRET"); v != "" {
		cfg.Auth.SigningSecret = v
	}
	if v := os.Getenv("BREWY_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("BREWY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("BREWY_AUDIO_PIPELINE_URL"); v != "" {
		cfg.Audio.PipelineURL = v
	}
	if v := os.Getenv("BREWY_AUDIO_API_KEY"); v != "" {
		cfg.Audio.APIKey = v
	}
	if v := os.Getenv("BREWY_AUDIO_WEBHOOK_SECRET"); v != "" {
		cfg.Audio.WebhookSecret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}

	// Forged tokens grant full tenant access, so an absent or short signing
	// secret is a hard failure rather than a warning.
	const minSecretLength = 32
	if c.Auth.SigningSecret == "" {
		errs = append(errs, "auth.signing_secret is required (set BREWY_SIGNING_SECRET environment variable)")
	} else if len(c.Auth.SigningSecret) < minSecretLength {
		errs = append(errs, "auth.signing_secret must be at least 32 characters")
	}

	if c.Auth.BcryptCost < 12 {
		errs = append(errs, "auth.bcrypt_cost must be at least 12")
	}

	if c.Lockout.Threshold < 1 {
		errs = append(errs, "lockout.threshold must be at least 1")
	}

	if c.Lockout.WindowMinutes < 1 {
		errs = append(errs, "lockout.window_minutes must be at least 1")
	}

	if c.Audio.PipelineURL != "" && c.Audio.WebhookSecret == "" {
		errs = append(errs, "audio.webhook_secret is required when audio.pipeline_url is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PersistenceSettings exposes the database section through the getter surface
// the persistence client consumes.
type PersistenceSettings struct {
	debug       bool
	driver      string
	server      string
	database    string
	dsn         string
	user        string
	password    string
	port        int
	pingTimeout time.Duration
}

// Persistence shapes the database section for the persistence client.
func (c *Config) Persistence() PersistenceSettings {
	return PersistenceSettings{
		debug:       c.Logging.Level == "debug" || c.Logging.Level == "trace",
		driver:      "sqlite",
		database:    c.Database.DSN,
		dsn:         c.Database.DSN,
		pingTimeout: 5 * time.Second,
	}
}

func (p PersistenceSettings) GetDebug() bool                { return p.debug }
func (p PersistenceSettings) GetDriver() string             { return p.driver }
func (p PersistenceSettings) GetServer() string             { return p.server }
func (p PersistenceSettings) GetDatabase() string           { return p.database }
func (p PersistenceSettings) GetDSN() string                { return p.dsn }
func (p PersistenceSettings) GetUser() string               { return p.user }
func (p PersistenceSettings) GetPassword() string           { return p.password }
func (p PersistenceSettings) GetPort() int                  { return p.port }
func (p PersistenceSettings) GetPingTimeout() time.Duration { return p.pingTimeout }
func (p PersistenceSettings) GetOtelIdentifier() string     { return "" }

// LockoutWindow returns the lockout window as a Duration.
func (c *Config) LockoutWindow() time.Duration {
	return time.Duration(c.Lockout.WindowMinutes) * time.Minute
}
