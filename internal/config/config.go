package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Trace   TraceConfig   `yaml:"trace" mapstructure:"trace"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FetchConfig configures the document fetcher.
type FetchConfig struct {
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	HostRates      []HostRate    `yaml:"host_rates" mapstructure:"host_rates"`
}

// HostRate sets the starting request rate for one host.
type HostRate struct {
	Host string  `yaml:"host" mapstructure:"host"`
	RPS  float64 `yaml:"rps" mapstructure:"rps"`
}

// HostRateMap returns the configured host rates keyed by host.
func (f FetchConfig) HostRateMap() map[string]float64 {
	m := make(map[string]float64, len(f.HostRates))
	for _, hr := range f.HostRates {
		if hr.Host != "" && hr.RPS > 0 {
			m[strings.ToLower(hr.Host)] = hr.RPS
		}
	}
	return m
}

// SourcesConfig locates the disclosure listings.
type SourcesConfig struct {
	Form4FeedTemplate string `yaml:"form4_feed_template" mapstructure:"form4_feed_template"`
	Form4Pages        int    `yaml:"form4_pages" mapstructure:"form4_pages"`
	Form4PageSize     int    `yaml:"form4_page_size" mapstructure:"form4_page_size"`
	HouseListURL      string `yaml:"house_list_url" mapstructure:"house_list_url"`
	HouseLimit        int    `yaml:"house_limit" mapstructure:"house_limit"`
	SenateBaseURL     string `yaml:"senate_base_url" mapstructure:"senate_base_url"`
	SenateResultsURL  string `yaml:"senate_results_url" mapstructure:"senate_results_url"`
	SenateLimit       int    `yaml:"senate_limit" mapstructure:"senate_limit"`
}

// TraceConfig configures OpenTelemetry tracing.
type TraceConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRADEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "tradewatch/1.0 admin@example.com")
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.initial_backoff", time.Second)
	v.SetDefault("sources.form4_feed_template", "https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&type=4&start=%d&count=%d")
	v.SetDefault("sources.form4_pages", 5)
	v.SetDefault("sources.form4_page_size", 100)
	v.SetDefault("sources.house_list_url", "https://clerk.house.gov/public_disc/financial-ptrs")
	v.SetDefault("sources.house_limit", 10)
	v.SetDefault("sources.senate_base_url", "https://efdsearch.senate.gov")
	v.SetDefault("sources.senate_results_url", "https://efdsearch.senate.gov/search/")
	v.SetDefault("sources.senate_limit", 10)
	v.SetDefault("trace.enabled", false)

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

// Validate checks the settings a command mode depends on. Modes: "store"
// (anything touching the database), "pull", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string
	check := func(ok bool, msg string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(msg, args...))
		}
	}

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres", "sqlite":
		default:
			problems = append(problems, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
		}
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Store.MinConns <= c.Store.MaxConns, "store.min_conns (%d) exceeds store.max_conns (%d)", c.Store.MinConns, c.Store.MaxConns)
	}

	switch mode {
	case "store":
		checkStore()
	case "pull":
		checkStore()
		check(c.Fetch.UserAgent != "", "fetch.user_agent is required")
		check(c.Fetch.TimeoutSecs > 0, "fetch.timeout_secs must be positive")
		check(c.Fetch.MaxRetries >= 1, "fetch.max_retries must be at least 1")
		check(c.Sources.Form4PageSize > 0, "sources.form4_page_size must be positive")
		check(strings.Count(c.Sources.Form4FeedTemplate, "%d") == 2, "sources.form4_feed_template needs start and count placeholders")
	case "serve":
		checkStore()
		check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535, got %d", c.Server.Port)
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
