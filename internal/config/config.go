// Package config loads application configuration from file and
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Google  GoogleConfig  `yaml:"google" mapstructure:"google"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	OSM     OSMConfig     `yaml:"osm" mapstructure:"osm"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Google Geocoding API settings. An empty APIKey
// disables the official provider entirely.
type GoogleConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	Language     string `yaml:"language" mapstructure:"language"`
	MonthlyLimit int    `yaml:"monthly_limit" mapstructure:"monthly_limit"`
	UsageFile    string `yaml:"usage_file" mapstructure:"usage_file"`
}

// ScrapeConfig configures the maps page scraper.
type ScrapeConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AuditDir    string `yaml:"audit_dir" mapstructure:"audit_dir"`
	Language    string `yaml:"language" mapstructure:"language"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OSMConfig configures the Nominatim fallback.
type OSMConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// ExtractConfig bounds the region accepted by the raw array scan
// strategy, as min/max degrees.
type ExtractConfig struct {
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLng float64 `yaml:"min_lng" mapstructure:"min_lng"`
	MaxLng float64 `yaml:"max_lng" mapstructure:"max_lng"`
}

// Region returns the configured bounding box as x=lng, y=lat.
func (e ExtractConfig) Region() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(e.MinLng, e.MinLat, e.MaxLng, e.MaxLat)
}

// StoreConfig configures the resolution history backend. Driver is
// "sqlite", "postgres", or "" to disable history.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("PLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("google.language", "vi")
	v.SetDefault("google.monthly_limit", 1000)
	v.SetDefault("google.usage_file", "data/geocoding_usage.json")
	v.SetDefault("scrape.base_url", "https://www.google.com/maps/dir")
	v.SetDefault("scrape.audit_dir", "scraped_pages")
	v.SetDefault("scrape.language", "vi")
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("osm.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("osm.user_agent", "place-resolver/1.0 (ops@sellsadvisors.com)")
	v.SetDefault("osm.min_interval_ms", 1100)
	v.SetDefault("extract.min_lat", 8.0)
	v.SetDefault("extract.max_lat", 24.0)
	v.SetDefault("extract.min_lng", 102.0)
	v.SetDefault("extract.max_lng", 110.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "resolutions.db")
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

// Validate checks the configuration for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(cond bool, msg string) {
		if cond {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "serve":
		check(c.Server.Port <= 0, "server.port must be > 0")
	case "resolve", "extract":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	check(c.Google.MonthlyLimit < 0, "google.monthly_limit must be >= 0")
	check(c.OSM.UserAgent == "", "osm.user_agent is required")
	check(c.OSM.MinIntervalMs <= 0, "osm.min_interval_ms must be > 0")
	check(c.Extract.MinLat >= c.Extract.MaxLat, "extract.min_lat must be < extract.max_lat")
	check(c.Extract.MinLng >= c.Extract.MaxLng, "extract.min_lng must be < extract.max_lng")

	switch c.Store.Driver {
	case "sqlite":
		check(c.Store.Path == "", "store.path is required for the sqlite driver")
	case "postgres":
		check(c.Store.DatabaseURL == "", "store.database_url is required for the postgres driver")
	case "":
		// history disabled
	default:
		check(true, "store.driver must be sqlite, postgres, or empty")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
