// Package config loads sheetcalc settings from defaults, an optional YAML
// file, SHEETCALC_* environment variables and bound command line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.alis.build/alog"

	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

// EnvPrefix is prepended to every environment variable, e.g. SHEETCALC_LOG_LEVEL
const EnvPrefix = "SHEETCALC"

// keys, also the YAML field names
const (
	KeyPropagation         = "propagation"
	KeyPreserveLiteralCase = "preserve_literal_case"
	KeyLogLevel            = "log_level"
	KeyServerAddr          = "server.addr"
	KeyStorePath           = "store.path"
)

type Config struct {
	Propagation         string       `mapstructure:"propagation"`
	PreserveLiteralCase bool         `mapstructure:"preserve_literal_case"`
	LogLevel            string       `mapstructure:"log_level"`
	Server              ServerConfig `mapstructure:"server"`
	Store               StoreConfig  `mapstructure:"store"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// New returns a viper instance with defaults and environment lookup set up.
// callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPropagation, string(spreadsheet.PropagateDirect))
	v.SetDefault(KeyPreserveLiteralCase, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyServerAddr, ":8080")
	v.SetDefault(KeyStorePath, "sheetcalc.db")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional file at path into v and decodes the result. the
// settings are validated before they are returned.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, spreadsheet.WrapApplicationError(spreadsheet.InvalidArgument, "read config "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, spreadsheet.WrapApplicationError(spreadsheet.InvalidArgument, "decode config", err)
	}
	if _, err := cfg.EngineOptions(); err != nil {
		return nil, err
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EngineOptions maps the settings onto engine options
func (c *Config) EngineOptions() (spreadsheet.Options, error) {
	mode, err := spreadsheet.ParsePropagationMode(c.Propagation)
	if err != nil {
		return spreadsheet.Options{}, err
	}
	return spreadsheet.Options{
		Mode:                mode,
		PreserveLiteralCase: c.PreserveLiteralCase,
	}, nil
}

// Level maps the log_level name onto an alog level
func (c *Config) Level() (alog.LogLevel, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return alog.LevelDebug, nil
	case "", "info":
		return alog.LevelInfo, nil
	case "warn", "warning":
		return alog.LevelWarning, nil
	case "error":
		return alog.LevelError, nil
	default:
		return alog.LevelInfo, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
}
