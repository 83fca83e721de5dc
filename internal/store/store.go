// Package store persists engine snapshots in a key-value store. Every
// backend keeps the latest value per key together with a monotonically
// increasing version and a ULID revision.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// Record is one stored value and its write metadata.
type Record struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"-"`
	Size      int       `json:"size"`
	Revision  string    `json:"revision"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the snapshot storage interface.
type Store interface {
	// Get returns the latest record for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// Put writes value under key and returns the new record.
	Put(ctx context.Context, key string, value []byte) (*Record, error)

	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns the latest record of every key with the given prefix,
	// sorted by key. Values are not populated.
	List(ctx context.Context, prefix string) ([]Record, error)

	// Close releases the backend.
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend Backend      `yaml:"backend"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
	Badger  BadgerConfig `yaml:"badger"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
	// History is how many versions per key are retained; 0 keeps all.
	History int `yaml:"history"`
}

// Open creates the backend named by cfg.Backend.
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLite.Path, cfg.SQLite.History)
	case BackendRedis:
		return NewRedisStore(cfg.Redis)
	case BackendBadger:
		return NewBadgerStore(cfg.Badger, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Backend)
	}
}

func newRevision(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
