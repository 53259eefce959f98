package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RegistryConfig holds NPI registry API settings.
type RegistryConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapeConfig configures the practice-website scraper.
type ScrapeConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// SourcesConfig bounds the external source lookups.
type SourcesConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryMax    int     `yaml:"retry_max" mapstructure:"retry_max"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// ConfidenceConfig points at the scoring weight table. When WeightsFile is
// empty the built-in defaults apply.
type ConfidenceConfig struct {
	WeightsFile string `yaml:"weights_file" mapstructure:"weights_file"`
}

// PipelineConfig bounds the orchestrated run.
type PipelineConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// NotifyConfig configures urgent-review notifications.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROVDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "provdir.db")
	v.SetDefault("registry.base_url", "https://npiregistry.cms.hhs.gov/api")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; ProvdirBot/1.0)")
	v.SetDefault("scrape.max_body_bytes", 512*1024)
	v.SetDefault("sources.timeout_secs", 15)
	v.SetDefault("sources.retry_max", 2)
	v.SetDefault("sources.rate_per_sec", 5)
	v.SetDefault("sources.rate_burst", 5)
	v.SetDefault("pipeline.max_concurrency", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration at startup. An invalid configuration is
// fatal: the run must not begin.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Pipeline.MaxConcurrency <= 0 {
		errs = append(errs, "pipeline.max_concurrency must be > 0")
	}
	if c.Sources.TimeoutSecs <= 0 {
		errs = append(errs, "sources.timeout_secs must be > 0")
	}
	if c.Sources.RetryMax < 0 {
		errs = append(errs, "sources.retry_max must be >= 0")
	}
	if c.Sources.RatePerSec <= 0 {
		errs = append(errs, "sources.rate_per_sec must be > 0")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be a valid port")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
