package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kommundata/deso-cli/internal/store"
	"github.com/kommundata/deso-cli/pkg/pxweb"
)

// Config holds the full application configuration.
type Config struct {
	PxWeb    PxWebConfig    `yaml:"pxweb" mapstructure:"pxweb"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PxWebConfig configures the SCB statistics API client.
type PxWebConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Language    string  `yaml:"language" mapstructure:"language"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CatalogPath string  `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// Timeout returns the HTTP client timeout.
func (c PxWebConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ClassifyConfig configures the area type classification.
type ClassifyConfig struct {
	Mode          string  `yaml:"mode" mapstructure:"mode"`
	ReferenceMean float64 `yaml:"reference_mean" mapstructure:"reference_mean"`
	ReferenceStd  float64 `yaml:"reference_std" mapstructure:"reference_std"`
	Language      string  `yaml:"language" mapstructure:"language"`
}

// ExportConfig configures result output.
type ExportConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	PerYear bool   `yaml:"per_year" mapstructure:"per_year"`
	XLSX    bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// GeoConfig configures DeSO boundary loading.
type GeoConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given command mode
// ("analyze", "serve") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.PxWeb.BaseURL == "" {
		problems = append(problems, "pxweb.base_url is required")
	}
	if c.PxWeb.RatePerSec <= 0 {
		problems = append(problems, "pxweb.rate_per_sec must be > 0")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch mode {
	case "analyze":
		switch c.Classify.Mode {
		case "self":
		case "reference":
			if c.Classify.ReferenceStd <= 0 {
				problems = append(problems, "classify.reference_std must be > 0 in reference mode")
			}
		default:
			problems = append(problems, "classify.mode must be self or reference")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DESO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pxweb.base_url", pxweb.DefaultBaseURL)
	v.SetDefault("pxweb.language", "sv")
	v.SetDefault("pxweb.timeout_secs", 60)
	v.SetDefault("pxweb.rate_per_sec", 2)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "deso.db")
	v.SetDefault("classify.mode", "self")
	v.SetDefault("classify.language", "sv")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.per_year", true)
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
