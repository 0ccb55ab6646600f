// Package config loads the optional bloom configuration file.
package config

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/envelope"
	"xdao.co/bloom/storage/casconfig"
)

// Config is the on-disk configuration.
//
//	indent: 2
//	allow_empty: false
//	log_level: warn
//	store:
//	  write_policy: first
//	  backends:
//	    - name: localfs
//	      config:
//	        localfs-dir: /var/lib/bloom/cas
type Config struct {
	// Indent is the envelope output indentation; 0 writes compact JSON.
	Indent int `yaml:"indent" json:"indent"`
	// AllowEmpty is the default for verify --allow-empty.
	AllowEmpty bool `yaml:"allow_empty" json:"allow_empty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// Store configures the archive. Nil when no store is configured.
	Store *casconfig.Config `yaml:"store,omitempty" json:"store,omitempty"`
}

// MaxIndent bounds Indent.
const MaxIndent = 16

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Indent:   envelope.DefaultIndent,
		LogLevel: "warn",
	}
}

// Load reads path over Default. Keys missing from the file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, bloomerr.Wrap(bloomerr.KindIO, "BLOOM-CFG-001", "read config "+path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, bloomerr.Wrap(bloomerr.KindConfig, "BLOOM-CFG-002", "parse config "+path, err)
	}
	return cfg, cfg.Validate()
}

// LoadOrDefault is Load for a non-empty path and Default otherwise.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c Config) Validate() error {
	if c.Indent < 0 || c.Indent > MaxIndent {
		return bloomerr.New(bloomerr.KindConfig, "BLOOM-CFG-003", "indent must be between 0 and 16")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return bloomerr.New(bloomerr.KindConfig, "BLOOM-CFG-004", "unknown log_level "+c.LogLevel)
	}
	if c.Store != nil {
		if err := c.Store.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Level returns the slog level for LogLevel, warn when unset.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "", "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelWarn, false
}
