package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Server struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Report struct {
	PreviewRowLimit int    `mapstructure:"preview_row_limit"`
	DriftPolicy     string `mapstructure:"drift_policy"`
}

type Config struct {
	Server Server `mapstructure:"server"`
	DB     DB     `mapstructure:"db"`
	Report Report `mapstructure:"report"`
}

// Load reads the config file (optional) with WORKLEDGER_* env overrides and
// applies defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "work-ledger.db")
	v.SetDefault("report.preview_row_limit", 50)
	v.SetDefault("report.drift_policy", "warn")

	v.SetEnvPrefix("WORKLEDGER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
