// Package config loads inspection-cli settings from config.yaml, an
// optional .env file and INSPECT_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "INSPECT"

// DefaultExtractLimit is how many listings the results page printout showed
// before the limit became configurable.
const DefaultExtractLimit = 50

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig      `yaml:"source" mapstructure:"source"`
	Query      map[string]string `yaml:"query" mapstructure:"-"`
	Extract    ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Geo        GeoConfig         `yaml:"geo" mapstructure:"geo"`
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures where results pages come from.
type SourceConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	Render      bool   `yaml:"render" mapstructure:"render"`
	ChromeBin   string `yaml:"chrome_bin" mapstructure:"chrome_bin"`
	RawDir      string `yaml:"raw_dir" mapstructure:"raw_dir"`
}

// ExtractConfig configures listing extraction.
type ExtractConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
	Limit   int `yaml:"limit" mapstructure:"limit"`
}

// GeoConfig configures geocoding of extracted records.
type GeoConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	GoogleAPIKey     string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run health alerts raised by the server.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleAfterHours      int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var queryDefaults = map[string]string{
	"Output":                     "W",
	"Business_Name":              "",
	"Business_Address":           "",
	"Longitude":                  "",
	"Latitude":                   "",
	"City":                       "",
	"Zip_Code":                   "",
	"Inspection_Type":            "All",
	"Inspection_Start":           "",
	"Inspection_End":             "",
	"Inspection_Closed_Business": "A",
	"Violation_Points":           "",
	"Violation_Red_Points":       "",
	"Violation_Descr":            "",
	"Fuzzy_Search":               "N",
	"Sort":                       "H",
}

// Load reads configuration from file and environment. Variables from a
// .env file in the working directory are applied first and never override
// variables already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		zap.L().Debug("config: loaded .env file")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.base_url", "http://info.kingcounty.gov")
	v.SetDefault("source.path", "/health/ehs/foodsafety/inspections/Results.aspx")
	v.SetDefault("source.encoding", "utf-8")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.retries", 3)
	v.SetDefault("source.user_agent", "inspection-cli/1.0")
	v.SetDefault("source.render", false)
	v.SetDefault("source.chrome_bin", "")
	v.SetDefault("source.raw_dir", "data/raw")
	v.SetDefault("extract.workers", 0)
	v.SetDefault("extract.limit", DefaultExtractLimit)
	v.SetDefault("geo.enabled", false)
	v.SetDefault("geo.provider", "census")
	v.SetDefault("geo.google_api_key", "")
	v.SetDefault("geo.rate_limit", 10)
	v.SetDefault("geo.concurrency", 4)
	v.SetDefault("geo.timeout_secs", 10)
	v.SetDefault("geo.retry_attempts", 3)
	v.SetDefault("geo.breaker_threshold", 5)
	v.SetDefault("geo.breaker_reset_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "inspections.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.stale_after_hours", 0)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	for k, val := range queryDefaults {
		v.SetDefault("query."+strings.ToLower(k), val)
	}

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
	cfg.Query = queryParams(v)

	return &cfg, nil
}

// queryParams restores the results page's parameter spelling. Viper
// lower-cases keys, the source site does not.
func queryParams(v *viper.Viper) map[string]string {
	out := make(map[string]string, len(queryDefaults))
	for k := range queryDefaults {
		out[k] = v.GetString("query." + strings.ToLower(k))
	}
	return out
}

// Validate checks the settings a command needs.
func (c *Config) Validate(command string) error {
	var errs []string

	if c.Extract.Workers < 0 {
		errs = append(errs, "extract.workers must be >= 0")
	}
	if c.Extract.Limit < 0 {
		errs = append(errs, "extract.limit must be >= 0")
	}

	switch command {
	case "fetch":
		if c.Source.BaseURL == "" {
			errs = append(errs, "source.base_url is required")
		}
	case "scrape":
		if c.Geo.Enabled {
			if c.Geo.Concurrency < 1 || c.Geo.Concurrency > 32 {
				errs = append(errs, "geo.concurrency must be between 1 and 32")
			}
			if c.Geo.TimeoutSecs <= 0 {
				errs = append(errs, "geo.timeout_secs must be > 0")
			}
			switch c.Geo.Provider {
			case "census":
			case "google":
				if c.Geo.GoogleAPIKey == "" {
					errs = append(errs, "geo.google_api_key is required for the google provider")
				}
			default:
				errs = append(errs, "geo.provider must be census or google")
			}
		}
	case "runs":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Monitoring.Enabled {
			if c.Monitoring.LookbackWindowHours <= 0 {
				errs = append(errs, "monitoring.lookback_window_hours must be > 0")
			}
			if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
				errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
			}
		}
	default:
		return eris.Errorf("config: unknown mode %q", command)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
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
