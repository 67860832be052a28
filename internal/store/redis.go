package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/vytor/ctiprep/internal/logger"
)

// RedisBackend keeps values as plain redis strings.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend parses a redis:// url and returns a backend for it. The
// connection is not checked here; Store.New probes it.
func NewRedisBackend(url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBackend{client: redis.NewClient(opts)}, nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, key, value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *RedisBackend) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := b.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	const batch = 256
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		if err := b.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return err
		}
	}
	logger.FromContext(ctx).WithPrefix("kv_redis").Debug("deleted %d keys under %q", len(keys), prefix)
	return nil
}

func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var _ Backend = (*RedisBackend)(nil)
