// Package config loads and writes jremap.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"jremap/internal/classfmt"
	"jremap/internal/mapping"
)

// FileName is the config file searched for when no path is given.
const FileName = "jremap.toml"

// EnvPrefix prefixes environment overrides, e.g. JREMAP_WORKERS=8.
const EnvPrefix = "JREMAP"

var ErrInvalid = errors.New("config: invalid value")

// Config holds the settings shared by all commands.
type Config struct {
	Workers   int    `mapstructure:"workers" toml:"workers"`
	Mode      string `mapstructure:"mode" toml:"mode"`
	LogLevel  string `mapstructure:"log_level" toml:"log_level"`
	CacheSize int    `mapstructure:"cache_size" toml:"cache_size"`
	Mappings  string `mapstructure:"mappings" toml:"mappings,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers:   runtime.GOMAXPROCS(0),
		Mode:      classfmt.ModeBestEffort.String(),
		LogLevel:  "warn",
		CacheSize: mapping.DefaultCacheSize,
	}
}

// Load reads the config at path. With an empty path it looks for
// jremap.toml in dirs (the working directory when dirs is empty) and
// falls back to defaults when none exists. Environment variables override
// file values in both cases.
func Load(path string, dirs ...string) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("workers", def.Workers)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("cache_size", def.CacheSize)
	v.SetDefault("mappings", def.Mappings)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
		v.SetConfigType("toml")
		if len(dirs) == 0 {
			dirs = []string{"."}
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the mode name.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	}
	if _, err := classfmt.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Options converts the config into processing options.
func (c *Config) Options() classfmt.Options {
	mode, err := classfmt.ParseMode(c.Mode)
	if err != nil {
		mode = classfmt.ModeBestEffort
	}
	return classfmt.Options{Mode: mode, Workers: c.Workers}
}

// Save writes c as TOML. An existing file is not overwritten unless force
// is set.
func (c *Config) Save(path string, force bool) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return f.Close()
}
