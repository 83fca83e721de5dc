// Package config loads teachbot settings. Precedence, lowest first:
// defaults, YAML file, TEACHBOT_* environment variables, command flags
// (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/teachbot/internal/logging"
	"github.com/rcliao/teachbot/internal/store"
	"github.com/rcliao/teachbot/internal/variant"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TEACHBOT_"

// Config is the complete teachbot configuration.
type Config struct {
	Store store.Config   `yaml:"store"`
	Model ModelConfig    `yaml:"model"`
	Log   logging.Config `yaml:"log"`
}

// ModelConfig picks the variant and where its snapshot lives.
type ModelConfig struct {
	// ID is a registered model id.
	ID string `yaml:"id"`
	// StorageKey overrides the default "teachbot:<id>" key.
	StorageKey string `yaml:"storage_key"`
	// MaxKeep overrides the profile's compaction limit when positive.
	MaxKeep int `yaml:"max_keep"`
	// Profile is a YAML profile file registered alongside the builtins.
	Profile string `yaml:"profile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: store.Config{
			Backend: store.BackendSQLite,
			SQLite:  store.SQLiteConfig{Path: defaultDBPath(), History: 10},
		},
		Model: ModelConfig{ID: variant.HybridID},
		Log:   logging.DefaultConfig(),
	}
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".teachbot", "teachbot.db")
}

// Load reads defaults, then path (if non-empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays TEACHBOT_* variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "STORE"); ok {
		c.Store.Backend = store.Backend(strings.ToLower(strings.TrimSpace(v)))
	}
	str("DB", &c.Store.SQLite.Path)
	num("SQLITE_HISTORY", &c.Store.SQLite.History)
	str("REDIS_ADDR", &c.Store.Redis.Addr)
	str("REDIS_PASSWORD", &c.Store.Redis.Password)
	num("REDIS_DB", &c.Store.Redis.DB)
	str("REDIS_PREFIX", &c.Store.Redis.KeyPrefix)
	str("BADGER_PATH", &c.Store.Badger.Path)
	flag("BADGER_IN_MEMORY", &c.Store.Badger.InMemory)
	flag("BADGER_SYNC_WRITES", &c.Store.Badger.SyncWrites)

	str("MODEL", &c.Model.ID)
	str("STORAGE_KEY", &c.Model.StorageKey)
	num("MAX_KEEP", &c.Model.MaxKeep)
	str("PROFILE", &c.Model.Profile)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case store.BackendSQLite, "":
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
		if c.Store.SQLite.History < 0 {
			errs = append(errs, errors.New("store.sqlite.history must not be negative"))
		}
	case store.BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required"))
		}
		if c.Store.Redis.DB < 0 {
			errs = append(errs, errors.New("store.redis.db must not be negative"))
		}
	case store.BackendBadger:
		if c.Store.Badger.Path == "" && !c.Store.Badger.InMemory {
			errs = append(errs, errors.New("store.badger.path is required unless in_memory is set"))
		}
	case store.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want sqlite, redis, badger or memory", c.Store.Backend))
	}
	if strings.TrimSpace(c.Model.ID) == "" {
		errs = append(errs, errors.New("model.id is required"))
	}
	if c.Model.MaxKeep < 0 {
		errs = append(errs, errors.New("model.max_keep must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json or console", c.Log.Format))
	}
	return errors.Join(errs...)
}
