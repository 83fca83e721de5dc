package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerConfig configures the BadgerDB backend.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string `yaml:"path"`

	// InMemory runs without touching disk; data is lost on Close.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `yaml:"sync_writes"`
}

// BadgerStore keeps each snapshot as one badger entry holding a JSON
// envelope of the value and its write metadata.
type BadgerStore struct {
	db *badger.DB
}

type badgerEnvelope struct {
	Value     []byte    `json:"value"`
	Revision  string    `json:"revision"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// NewBadgerStore opens a badger database. A nil logger silences badger's
// internal logging.
func NewBadgerStore(cfg BadgerConfig, logger *zap.Logger) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(_ context.Context, key string, value []byte) (*Record, error) {
	now := time.Now().UTC()
	env := badgerEnvelope{
		Value:     value,
		Revision:  newRevision(now),
		UpdatedAt: now,
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		prev, err := readEnvelope(txn, key)
		switch {
		case err == nil:
			env.Version = prev.Version + 1
		case errors.Is(err, badger.ErrKeyNotFound):
			env.Version = 1
		default:
			return err
		}
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return env.record(key), nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (*Record, error) {
	var env badgerEnvelope
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		env, err = readEnvelope(txn, key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return env.record(key), nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	return err
}

func (s *BadgerStore) List(_ context.Context, prefix string) ([]Record, error) {
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   16,
			Prefix:         []byte(prefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var env badgerEnvelope
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &env)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			r := env.record(string(item.KeyCopy(nil)))
			r.Value = nil
			out = append(out, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func readEnvelope(txn *badger.Txn, key string) (badgerEnvelope, error) {
	var env badgerEnvelope
	item, err := txn.Get([]byte(key))
	if err != nil {
		return env, err
	}
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &env)
	})
	return env, err
}

func (e badgerEnvelope) record(key string) *Record {
	return &Record{
		Key:       key,
		Value:     e.Value,
		Size:      len(e.Value),
		Revision:  e.Revision,
		Version:   e.Version,
		UpdatedAt: e.UpdatedAt,
	}
}
