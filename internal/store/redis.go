package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

const defaultRedisPrefix = "teachbot:"

// RedisStore keeps each snapshot in a Redis hash with value, revision,
// version and updated_at fields.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.keyPrefix + key
}

const (
	fieldValue     = "value"
	fieldRevision  = "revision"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
)

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) (*Record, error) {
	now := time.Now().UTC()
	rev := newRevision(now)
	rk := s.redisKey(key)

	var version *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		version = pipe.HIncrBy(ctx, rk, fieldVersion, 1)
		pipe.HSet(ctx, rk,
			fieldValue, value,
			fieldRevision, rev,
			fieldUpdatedAt, now.Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	return &Record{
		Key:       key,
		Value:     value,
		Size:      len(value),
		Revision:  rev,
		Version:   int(version.Val()),
		UpdatedAt: now,
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	r := recordFromHash(key, fields)
	return &r, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.redisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]Record, error) {
	pattern := escapeGlob(s.keyPrefix+prefix) + "*"
	var out []Record
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		rk := iter.Val()
		fields, err := s.client.HGetAll(ctx, rk).Result()
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		r := recordFromHash(strings.TrimPrefix(rk, s.keyPrefix), fields)
		r.Value = nil
		out = append(out, r)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func recordFromHash(key string, fields map[string]string) Record {
	r := Record{
		Key:      key,
		Value:    []byte(fields[fieldValue]),
		Revision: fields[fieldRevision],
	}
	r.Size = len(r.Value)
	r.Version, _ = strconv.Atoi(fields[fieldVersion])
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	return r
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
