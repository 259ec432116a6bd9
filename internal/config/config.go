// Package config loads recall configuration from defaults, a YAML file,
// environment variables and command-line flags, in that order of precedence
// (later sources win).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Remote points at a recalld server. All three fields must be set for sync
// to be enabled; an empty URL means local-only operation.
type Remote struct {
	URL   string `koanf:"url" validate:"omitempty,url"`
	Token string `koanf:"token"`
	User  string `koanf:"user"`
}

// Sync controls the background sync loop.
type Sync struct {
	Auto     bool          `koanf:"auto"`
	Interval time.Duration `koanf:"interval" validate:"min=0"`
}

// Source is a markdown card source to import on startup.
type Source struct {
	Path string `koanf:"path" validate:"required"`
	Deck string `koanf:"deck" validate:"required"`
}

// Config is the full recall client configuration.
type Config struct {
	DBPath   string   `koanf:"db_path" validate:"required"`
	ReposDir string   `koanf:"repos_dir" validate:"required"`
	LogLevel string   `koanf:"log_level" validate:"oneof=debug info warn error"`
	Remote   Remote   `koanf:"remote"`
	Sync     Sync     `koanf:"sync"`
	Sources  []Source `koanf:"sources" validate:"dive"`
}

// Flags registers recall's command-line flags on a fresh FlagSet. Flag names
// mirror koanf keys so posflag can merge them directly.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("recall", pflag.ExitOnError)
	f.String("config", "", "path to config file (default ~/.config/recall/config.yaml)")
	f.String("db_path", "", "path to the SQLite database file")
	f.String("repos_dir", "", "directory for git source checkouts")
	f.String("log_level", "", "log level (debug, info, warn, error)")
	f.String("remote.url", "", "recalld server URL")
	f.String("remote.token", "", "recalld bearer token")
	f.String("remote.user", "", "recalld user id")
	f.Bool("sync.auto", true, "run the background sync loop")
	return f
}

// Load builds the effective configuration. The flag set must already be
// parsed.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "recall", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RECALL_REMOTE_URL becomes remote.url, RECALL_DB_PATH becomes db_path.
	// Only the section separator is a dot; field names keep their underscores.
	if err := k.Load(env.Provider("RECALL_", ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, "RECALL_"))
		for _, section := range []string{"remote", "sync"} {
			if strings.HasPrefix(lower, section+"_") {
				return section + "." + strings.TrimPrefix(lower, section+"_")
			}
		}
		return lower
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "recall.db"
	}
	if cfg.ReposDir == "" {
		cfg.ReposDir = "repos"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
}
