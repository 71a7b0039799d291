package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/semitone-cli/internal/flat"
	"github.com/sells-group/semitone-cli/internal/model"
	"github.com/sells-group/semitone-cli/internal/resilience"
	"github.com/sells-group/semitone-cli/internal/schedule"
	"github.com/sells-group/semitone-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig      `yaml:"store" mapstructure:"store"`
	Log      LogConfig        `yaml:"log" mapstructure:"log"`
	Schema   flat.Schema      `yaml:"schema" mapstructure:"schema"`
	Filter   model.RoomFilter `yaml:"filter" mapstructure:"filter"`
	Schedule schedule.Options `yaml:"schedule" mapstructure:"schedule"`
	Import   ImportConfig     `yaml:"import" mapstructure:"import"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string                 `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string                 `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig       `yaml:"pool" mapstructure:"pool"`
	Retry       resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// ImportConfig configures schedule imports.
type ImportConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, config.yaml and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SEMITONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	schema := flat.DefaultSchema()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "semitone.db")
	v.SetDefault("store.pool.max_conns", 4)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("store.retry.max_attempts", 3)
	v.SetDefault("store.retry.initial_backoff", "200ms")
	v.SetDefault("store.retry.max_backoff", "5s")
	v.SetDefault("store.retry.multiplier", 2.0)
	v.SetDefault("store.retry.jitter_fraction", 0.25)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("schema.level_param", schema.LevelParam)
	v.SetDefault("schema.section_param", schema.SectionParam)
	v.SetDefault("schema.flat_type_param", schema.FlatTypeParam)
	v.SetDefault("schema.flat_param", schema.FlatParam)
	v.SetDefault("schema.zone_id_param", schema.ZoneIDParam)
	v.SetDefault("schema.sub_zone_id_param", schema.SubZoneIDParam)
	v.SetDefault("schema.semitone_suffix", schema.SemitoneSuffix)
	v.SetDefault("schema.key_separator", schema.KeySeparator)
	v.SetDefault("filter.category", model.CategoryRooms)
	v.SetDefault("filter.param", schema.FlatParam)
	v.SetDefault("filter.marker", "Квартира")
	v.SetDefault("schedule.delimiter", "")
	v.SetDefault("schedule.encoding", "")
	v.SetDefault("schedule.sheet", "")
	v.SetDefault("import.max_concurrent_files", 4)

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

// Validate checks the settings a command depends on.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "memory":
	default:
		errs = append(errs, "store.driver must be one of sqlite, postgres, memory")
	}

	if c.Schema.FlatParam == "" {
		errs = append(errs, "schema.flat_param is required")
	}
	if c.Schema.ZoneIDParam == "" {
		errs = append(errs, "schema.zone_id_param is required")
	}
	if c.Schema.SubZoneIDParam == "" {
		errs = append(errs, "schema.sub_zone_id_param is required")
	}
	if c.Store.Retry.MaxAttempts < 1 {
		errs = append(errs, "store.retry.max_attempts must be at least 1")
	}
	if c.Import.MaxConcurrentFiles < 1 {
		errs = append(errs, "import.max_concurrent_files must be at least 1")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
