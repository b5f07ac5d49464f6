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
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Runner  RunnerConfig  `yaml:"runner" mapstructure:"runner"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SearchConfig holds the target search endpoint settings.
type SearchConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	Skill          string `yaml:"skill" mapstructure:"skill"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	QueryLanguage  string `yaml:"query_language" mapstructure:"query_language"`
	ServiceRootURL string `yaml:"service_root_url" mapstructure:"service_root_url"`
	UserID         string `yaml:"user_id" mapstructure:"user_id"`
	OrganizationID string `yaml:"organization_id" mapstructure:"organization_id"`
}

// AuthConfig holds OAuth device-flow settings and token cache location.
type AuthConfig struct {
	TenantID         string `yaml:"tenant_id" mapstructure:"tenant_id"`
	ClientID         string `yaml:"client_id" mapstructure:"client_id"`
	Resource         string `yaml:"resource" mapstructure:"resource"`
	CacheFile        string `yaml:"cache_file" mapstructure:"cache_file"`
	LegacyTokenFile  string `yaml:"legacy_token_file" mapstructure:"legacy_token_file"`
	FreshnessMinutes int    `yaml:"freshness_minutes" mapstructure:"freshness_minutes"`
}

// RunnerConfig configures the query dispatcher.
type RunnerConfig struct {
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxThrottleRetries int     `yaml:"max_throttle_retries" mapstructure:"max_throttle_retries"`
	BackoffBaseMS      int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	RatePerSec         float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst              int     `yaml:"burst" mapstructure:"burst"`
}

// ScoringConfig configures the relevance scorer and aggregator.
type ScoringConfig struct {
	TablesFile         string `yaml:"tables_file" mapstructure:"tables_file"`
	RelevanceThreshold int    `yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
}

// OutputConfig configures run artifact locations.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the report server.
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
	v.SetEnvPrefix("SEARCHEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("search.skill", "UnifiedSearch")
	v.SetDefault("search.timeout_secs", 60)
	v.SetDefault("search.query_language", "1033")
	v.SetDefault("auth.cache_file", "search-eval-tokens.json")
	v.SetDefault("auth.legacy_token_file", "token.config")
	v.SetDefault("auth.freshness_minutes", 50)
	v.SetDefault("runner.concurrency", 5)
	v.SetDefault("runner.max_throttle_retries", 3)
	v.SetDefault("runner.backoff_base_ms", 2000)
	v.SetDefault("runner.rate_per_sec", 2.0)
	v.SetDefault("runner.burst", 2)
	v.SetDefault("scoring.relevance_threshold", 2)
	v.SetDefault("output.dir", "results")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "search-eval.db")
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

	return &cfg, nil
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
