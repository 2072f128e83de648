package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds the connection settings of the redis driver.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Prefix is prepended to every record name to form the redis key.
	Prefix string `yaml:"prefix"`
}

// RedisBackend stores each record under its own redis key.
type RedisBackend struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend connects to redis and verifies the connection with a PING.
func NewRedisBackend(ctx context.Context, cfg RedisConfig, log *zap.Logger) (*RedisBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	log.Debug("redis backend ready", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	return &RedisBackend{client: client, prefix: cfg.Prefix, log: log}, nil
}

func (b *RedisBackend) key(name string) string {
	return b.prefix + name
}

func (b *RedisBackend) Load(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}

	payload, err := b.client.Get(ctx, b.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get record %s: %w", name, err)
	}
	return payload, true, nil
}

func (b *RedisBackend) Save(ctx context.Context, name string, payload []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := b.client.Set(ctx, b.key(name), payload, 0).Err(); err != nil {
		return fmt.Errorf("set record %s: %w", name, err)
	}
	return nil
}

func (b *RedisBackend) Remove(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := b.client.Del(ctx, b.key(name)).Err(); err != nil {
		return fmt.Errorf("del record %s: %w", name, err)
	}
	return nil
}

func (b *RedisBackend) List(ctx context.Context) ([]string, error) {
	var names []string

	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		name := strings.TrimPrefix(iter.Val(), b.prefix)
		if ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

func (b *RedisBackend) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
