package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Vault     VaultConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// VaultConfig holds credential vault settings
type VaultConfig struct {
	// RootSecret is the secret the per-deployment encryption key is derived
	// from. Required in production; rotating it invalidates every stored
	// credential blob.
	RootSecret string
}

// SyncConfig holds synchronization engine settings
type SyncConfig struct {
	// FetchRetryAttempts is the total feed fetch attempts per run
	FetchRetryAttempts int
	// FetchRetryBackoff holds the waits between fetch attempts
	FetchRetryBackoff []time.Duration
	// StuckRunThreshold is how long a run may stay in progress before the
	// watchdog declares it interrupted
	StuckRunThreshold time.Duration
	// FeedDialTimeout bounds connection establishment to vendor endpoints
	FeedDialTimeout time.Duration
	// FeedRequestTimeout bounds a single feed download
	FeedRequestTimeout time.Duration
	// MaxRowErrors caps how many row errors a run result retains
	MaxRowErrors int
}

// SchedulerConfig holds background trigger configuration
type SchedulerConfig struct {
	Enabled bool
	// Interval is how often due vendors are checked
	Interval time.Duration
	// MaxConcurrentRuns bounds parallel sync runs across all tenants
	MaxConcurrentRuns int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CATSYNC_ prefix (e.g., CATSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CATSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Vault: VaultConfig{
			RootSecret: v.GetString("vault.root_secret"),
		},
		Sync: SyncConfig{
			FetchRetryAttempts: v.GetInt("sync.fetch_retry_attempts"),
			StuckRunThreshold:  v.GetDuration("sync.stuck_run_threshold"),
			FeedDialTimeout:    v.GetDuration("sync.feed_dial_timeout"),
			FeedRequestTimeout: v.GetDuration("sync.feed_request_timeout"),
			MaxRowErrors:       v.GetInt("sync.max_row_errors"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			Interval:          v.GetDuration("scheduler.interval"),
			MaxConcurrentRuns: v.GetInt("scheduler.max_concurrent_runs"),
		},
	}
	if backoffs := v.GetStringSlice("sync.fetch_retry_backoff"); len(backoffs) > 0 {
		for _, raw := range backoffs {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid sync.fetch_retry_backoff entry %q: %w", raw, err)
			}
			cfg.Sync.FetchRetryBackoff = append(cfg.Sync.FetchRetryBackoff, d)
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "catsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Sync.FetchRetryAttempts == 0 {
		cfg.Sync.FetchRetryAttempts = 3
	}
	if len(cfg.Sync.FetchRetryBackoff) == 0 {
		cfg.Sync.FetchRetryBackoff = []time.Duration{5 * time.Second, 10 * time.Second}
	}
	if cfg.Sync.StuckRunThreshold == 0 {
		cfg.Sync.StuckRunThreshold = 25 * time.Hour
	}
	if cfg.Sync.FeedDialTimeout == 0 {
		cfg.Sync.FeedDialTimeout = 30 * time.Second
	}
	if cfg.Sync.FeedRequestTimeout == 0 {
		cfg.Sync.FeedRequestTimeout = 5 * time.Minute
	}
	if cfg.Sync.MaxRowErrors == 0 {
		cfg.Sync.MaxRowErrors = 100
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 15 * time.Minute
	}
	if cfg.Scheduler.MaxConcurrentRuns == 0 {
		cfg.Scheduler.MaxConcurrentRuns = 4
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.FetchRetryAttempts <= 0 {
		return fmt.Errorf("sync.fetch_retry_attempts must be positive")
	}
	if c.Sync.StuckRunThreshold < time.Hour {
		return fmt.Errorf("sync.stuck_run_threshold must be at least one hour")
	}

	if c.App.Env == "production" {
		if c.Vault.RootSecret == "" {
			return fmt.Errorf("vault.root_secret is required in production")
		}
		if len(c.Vault.RootSecret) < 32 {
			return fmt.Errorf("vault.root_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// IsProduction returns true when running with the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
