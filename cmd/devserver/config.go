package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the dev server configuration. Values come from flags, IOMMI_*
// environment variables (IOMMI_DB_DRIVER for db.driver) and an optional
// config file, in that order of precedence.
type Config struct {
	Addr         string `mapstructure:"addr"`
	ServerTiming bool   `mapstructure:"server_timing"`
	PageSize     int    `mapstructure:"page_size"`

	DB struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var flagKeys = map[string]string{
	"addr":          "addr",
	"server-timing": "server_timing",
	"page-size":     "page_size",
	"db":            "db.driver",
	"dsn":           "db.dsn",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "optional YAML config file")
	f.String("addr", ":8080", "listen address")
	f.Bool("server-timing", true, "send Server-Timing headers")
	f.Int("page-size", 50, "maximum rows per table")
	f.String("db", "sqlite", "database driver: sqlite or postgres")
	f.String("dsn", "", "database DSN (defaults to an in-memory sqlite database, or DATABASE_URL)")
	f.String("log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")
	f.String("log-format", "text", "log format: text or json")
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	if file, _ := cmd.Flags().GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("IOMMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DB.DSN == "" {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.DB.DSN = url
		} else if cfg.DB.Driver == "sqlite" {
			cfg.DB.DSN = "file::memory:?cache=shared"
		}
	}
	return &cfg, nil
}
