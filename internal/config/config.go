package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the application configuration loaded by Load.
type Config struct {
	Log struct {
		Level int `mapstructure:"level" validate:"gte=0,lte=6"`
	} `mapstructure:"log"`
	Database struct {
		Dialect string `mapstructure:"dialect" validate:"required,oneof=postgres mysql mariadb sqlite oracle sqlserver"`
		// Driver overrides the database/sql driver picked for the dialect.
		Driver string `mapstructure:"driver" validate:"omitempty,oneof=pgx postgres mysql oracle sqlserver sqlite3"`
		DSN    string `mapstructure:"dsn" validate:"required"`
		Pool   struct {
			Idle     int `mapstructure:"idle" validate:"gte=0"`
			Max      int `mapstructure:"max" validate:"gte=0"`
			Lifetime int `mapstructure:"lifetime" validate:"gte=0"`
		} `mapstructure:"pool"`
		Tx struct {
			Isolation string `mapstructure:"isolation" validate:"omitempty,oneof=default read_uncommitted read_committed repeatable_read serializable"`
			ReadOnly  bool   `mapstructure:"read_only"`
		} `mapstructure:"tx"`
	} `mapstructure:"database"`
}

// Load reads the configuration from file, or from config.yml in the current
// or parent directory when file is empty. Environment variables prefixed with
// TXSCOPE_ override file values, e.g. TXSCOPE_DATABASE_DSN.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", 4)
	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.pool.idle", 2)
	v.SetDefault("database.pool.max", 10)
	v.SetDefault("database.pool.lifetime", 300)
	v.SetDefault("database.tx.isolation", "default")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath("./")
		v.AddConfigPath("./../")
	}

	v.SetEnvPrefix("TXSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	_ = v.BindEnv("database.dsn")
	_ = v.BindEnv("database.driver")

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// TxOptions returns the transaction options configured under database.tx.
func (c *Config) TxOptions() *sql.TxOptions {
	opts := &sql.TxOptions{ReadOnly: c.Database.Tx.ReadOnly}
	switch c.Database.Tx.Isolation {
	case "read_uncommitted":
		opts.Isolation = sql.LevelReadUncommitted
	case "read_committed":
		opts.Isolation = sql.LevelReadCommitted
	case "repeatable_read":
		opts.Isolation = sql.LevelRepeatableRead
	case "serializable":
		opts.Isolation = sql.LevelSerializable
	default:
		opts.Isolation = sql.LevelDefault
	}
	return opts
}
