// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Webstore WebstoreConfig `mapstructure:"webstore"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Output   OutputConfig   `mapstructure:"output"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// WebstoreConfig governs the Chrome Web Store harvest loop.
type WebstoreConfig struct {
	Endpoint     string   `mapstructure:"endpoint"`
	Categories   []string `mapstructure:"categories"`
	PageSize     int      `mapstructure:"page_size"`
	MaxPages     int      `mapstructure:"max_pages"`
	DelayMinMs   int      `mapstructure:"delay_min_ms"`
	DelayMaxMs   int      `mapstructure:"delay_max_ms"`
}

// HTTPConfig configures the transport session and its retry budget.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	UserAgent      string `mapstructure:"user_agent"`
}

// OutputConfig sets where and how decoded records are exported.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Format   string `mapstructure:"format"`
	Filename string `mapstructure:"filename"`
}

// StorageConfig selects the blob store used for raw-response debug artifacts.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls the optional Postgres persistence layer.
type DBConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
	LifetimeMins int    `mapstructure:"conn_lifetime_minutes"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls the status/metrics HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment. An empty path skips the
// config file and relies on defaults plus STORECRAWL_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STORECRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webstore.endpoint",
		"https://chromewebstore.google.com/_/ChromeWebStoreConsumerFeUi/data/batchexecute")
	v.SetDefault("webstore.categories", []string{"productivity/education"})
	v.SetDefault("webstore.page_size", 32)
	v.SetDefault("webstore.max_pages", 10)
	v.SetDefault("webstore.delay_min_ms", 1000)
	v.SetDefault("webstore.delay_max_ms", 3000)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.filename", "extensions")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_dir", "output/debug")
	v.SetDefault("storage.prefix", "responses")
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.table", "extensions")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Webstore.Endpoint == "" {
		return fmt.Errorf("webstore.endpoint must be set")
	}
	if len(c.Webstore.Categories) == 0 {
		return fmt.Errorf("webstore.categories must include at least one category")
	}
	if c.Webstore.PageSize <= 0 {
		return fmt.Errorf("webstore.page_size must be > 0")
	}
	if c.Webstore.MaxPages <= 0 {
		return fmt.Errorf("webstore.max_pages must be > 0")
	}
	if c.Webstore.DelayMinMs < 0 || c.Webstore.DelayMaxMs < c.Webstore.DelayMinMs {
		return fmt.Errorf("webstore delay range is invalid")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent must be set")
	}
	switch c.Output.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("output.format must be csv or json, got %q", c.Output.Format)
	}
	switch c.Storage.Provider {
	case "local", "memory":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when provider is gcs")
		}
	default:
		return fmt.Errorf("storage.provider must be local, memory, or gcs, got %q", c.Storage.Provider)
	}
	if c.DB.Enabled && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db is enabled")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// DelayRange returns the inter-page delay bounds.
func (c Config) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.Webstore.DelayMinMs) * time.Millisecond,
		time.Duration(c.Webstore.DelayMaxMs) * time.Millisecond
}
