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
	Reframe  ReframeConfig  `yaml:"reframe" mapstructure:"reframe"`
	Identify IdentifyConfig `yaml:"identify" mapstructure:"identify"`
	Sampler  SamplerConfig  `yaml:"sampler" mapstructure:"sampler"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ReframeConfig configures the coordinate transformation client.
type ReframeConfig struct {
	PrimaryURL  string `yaml:"primary_url" mapstructure:"primary_url"`
	FallbackURL string `yaml:"fallback_url" mapstructure:"fallback_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IdentifyConfig configures the cadastre feature lookup client.
type IdentifyConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Layer        string  `yaml:"layer" mapstructure:"layer"`
	TolerancePx  int     `yaml:"tolerance_px" mapstructure:"tolerance_px"`
	BoxRadius    float64 `yaml:"box_radius" mapstructure:"box_radius"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// SamplerConfig configures the polygon sampling loop.
type SamplerConfig struct {
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	MinSamples     int     `yaml:"min_samples" mapstructure:"min_samples"`
	StabilityCV    float64 `yaml:"stability_cv" mapstructure:"stability_cv"`
	BaseResolution int     `yaml:"base_resolution" mapstructure:"base_resolution"`
	MaxResolution  int     `yaml:"max_resolution" mapstructure:"max_resolution"`
}

// CacheConfig configures the sample cache backend.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	Path          string `yaml:"path" mapstructure:"path"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
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

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("reframe.primary_url", "https://geodesy.geo.admin.ch/reframe/wgs84tolv95")
	v.SetDefault("reframe.fallback_url", "https://tc-geodesy.bgdi-dev.swisstopo.cloud/reframe/wgs84tolv95")
	v.SetDefault("reframe.timeout_secs", 15)
	v.SetDefault("identify.base_url", "https://api3.geo.admin.ch/rest/services/api/MapServer/identify")
	v.SetDefault("identify.layer", "ch.bfe.solarenergie-eignung-daecher")
	v.SetDefault("identify.tolerance_px", 5)
	v.SetDefault("identify.box_radius", 100.0)
	v.SetDefault("identify.rate_limit_rps", 20.0)
	v.SetDefault("sampler.workers", 4)
	v.SetDefault("sampler.min_samples", 4)
	v.SetDefault("sampler.stability_cv", 0.05)
	v.SetDefault("sampler.base_resolution", 4)
	v.SetDefault("sampler.max_resolution", 10)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "solar-cache.db")

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

// Validate checks the configuration for a given command mode. Modes that
// never open the cache skip the backend requirements.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "point", "features":
	case "sample", "footprints", "cache":
		problems = append(problems, c.cacheProblems()...)
	case "serve":
		problems = append(problems, c.cacheProblems()...)
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Sampler.Workers < 1 || c.Sampler.Workers > 32 {
		problems = append(problems, "sampler.workers must be between 1 and 32")
	}
	if c.Sampler.MinSamples < 1 {
		problems = append(problems, "sampler.min_samples must be >= 1")
	}
	if c.Sampler.StabilityCV <= 0 || c.Sampler.StabilityCV > 1 {
		problems = append(problems, "sampler.stability_cv must be in (0, 1]")
	}
	if c.Sampler.BaseResolution < 1 || c.Sampler.MaxResolution < c.Sampler.BaseResolution {
		problems = append(problems, "sampler resolutions must satisfy 1 <= base <= max")
	}
	if c.Identify.RateLimitRPS <= 0 {
		problems = append(problems, "identify.rate_limit_rps must be > 0")
	}
	if c.Identify.BoxRadius <= 0 {
		problems = append(problems, "identify.box_radius must be > 0")
	}
	if c.Reframe.TimeoutSecs <= 0 {
		problems = append(problems, "reframe.timeout_secs must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) cacheProblems() []string {
	var problems []string
	switch c.Cache.Driver {
	case "memory":
	case "sqlite":
		if c.Cache.Path == "" {
			problems = append(problems, "cache.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			problems = append(problems, "cache.database_url is required for the postgres driver")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "cache.redis_addr is required for the redis driver")
		}
	default:
		problems = append(problems, "cache.driver must be one of memory, sqlite, postgres, redis")
	}
	return problems
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
