package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OverpassConfig configures the map-data service client and resolver.
type OverpassConfig struct {
	Endpoint                string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	UserAgent               string  `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	Radii                   []int   `yaml:"radii" mapstructure:"radii" validate:"required,min=1,dive,gt=0"`
	QueryTimeoutSecs        int     `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs" validate:"gt=0"`
	RequestTimeoutSecs      int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs" validate:"gt=0"`
	OutputMode              string  `yaml:"output_mode" mapstructure:"output_mode" validate:"oneof=tags geom"`
	TagKey                  string  `yaml:"tag_key" mapstructure:"tag_key" validate:"required"`
	RateLimitRPS            float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps" validate:"gte=0"`
	MaxAttempts             int     `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold" validate:"gte=0"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs" validate:"gte=0"`
}

// EnrichConfig configures the CSV enrichment pipeline.
type EnrichConfig struct {
	DelayMs          int      `yaml:"delay_ms" mapstructure:"delay_ms" validate:"gte=0"`
	LatitudeColumns  []string `yaml:"latitude_columns" mapstructure:"latitude_columns" validate:"required,min=1,dive,required"`
	LongitudeColumns []string `yaml:"longitude_columns" mapstructure:"longitude_columns" validate:"required,min=1,dive,required"`
	ColumnName       string   `yaml:"column_name" mapstructure:"column_name" validate:"required"`
	NotFound         string   `yaml:"not_found" mapstructure:"not_found" validate:"required"`
	OutputSuffix     string   `yaml:"output_suffix" mapstructure:"output_suffix" validate:"required"`
	DeleteInput      bool     `yaml:"delete_input" mapstructure:"delete_input"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from ./config.yaml (or path, when set) and the
// environment. Environment variables use the ROADTYPE_ prefix, e.g.
// ROADTYPE_ENRICH_DELAY_MS=500.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROADTYPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "ADAS-Overpass-Client/1.0")
	v.SetDefault("overpass.radii", []int{20, 50})
	v.SetDefault("overpass.query_timeout_secs", 25)
	v.SetDefault("overpass.request_timeout_secs", 60)
	v.SetDefault("overpass.output_mode", "tags")
	v.SetDefault("overpass.tag_key", "highway")
	v.SetDefault("overpass.rate_limit_rps", 0)
	v.SetDefault("overpass.max_attempts", 1)
	v.SetDefault("overpass.circuit_failure_threshold", 0)
	v.SetDefault("overpass.circuit_reset_secs", 30)
	v.SetDefault("enrich.delay_ms", 200)
	v.SetDefault("enrich.latitude_columns", []string{"latitude", "lat"})
	v.SetDefault("enrich.longitude_columns", []string{"longitude", "lon", "lng"})
	v.SetDefault("enrich.column_name", "RoadType")
	v.SetDefault("enrich.not_found", "NA")
	v.SetDefault("enrich.output_suffix", ".with_roads")
	v.SetDefault("enrich.delete_input", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// A missing config file is fine; an explicit --config path must exist.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
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

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// InitLogger initializes the global zap logger. Both formats write to stderr.
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
