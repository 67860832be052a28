package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/vytor/ctiprep/internal/logger"
)

const probeKey = "__probe__"

// Store is the namespaced, JSON-valued durable store shared by every
// repository. It never returns errors to callers: failed reads give the
// caller's default, failed writes report false, and both are logged.
type Store struct {
	backend   Backend
	namespace string
	fallback  bool
}

// New wraps backend under namespace. If a write/read/delete round trip
// against backend fails, the store falls back to an in-memory map for the
// rest of its life.
func New(ctx context.Context, backend Backend, namespace string) *Store {
	log := logger.FromContext(ctx).WithPrefix("store")
	s := &Store{backend: backend, namespace: namespace}

	if err := probe(ctx, backend, namespace+probeKey); err != nil {
		log.Warn("%s backend unavailable, falling back to memory: %v", backend.Name(), err)
		s.backend = NewMemoryBackend()
		s.fallback = true
		return s
	}
	log.Debug("using %s backend with namespace %q", backend.Name(), namespace)
	return s
}

func probe(ctx context.Context, b Backend, key string) error {
	if err := b.Ping(ctx); err != nil {
		return err
	}
	if err := b.Set(ctx, key, []byte("1")); err != nil {
		return err
	}
	if _, err := b.Get(ctx, key); err != nil {
		return err
	}
	return b.Delete(ctx, key)
}

// Degraded reports whether the store is running on the in-memory fallback.
func (s *Store) Degraded() bool { return s.fallback }

// BackendName is the name of the backend in use.
func (s *Store) BackendName() string { return s.backend.Name() }

// Namespace returns the key prefix applied to every key.
func (s *Store) Namespace() string { return s.namespace }

// Get decodes the value under key into dst. It reports false and leaves dst
// untouched when the key is missing, unreadable or not valid JSON for dst.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	raw, err := s.backend.Get(ctx, s.namespace+key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.FromContext(ctx).WithPrefix("store").Warn("get %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.FromContext(ctx).WithPrefix("store").Warn("get %s: stored value is not valid json: %v", key, err)
		return false
	}
	return true
}

// Has reports whether key holds a value.
func (s *Store) Has(ctx context.Context, key string) bool {
	_, err := s.backend.Get(ctx, s.namespace+key)
	return err == nil
}

// Set encodes v as JSON and writes it under key.
func (s *Store) Set(ctx context.Context, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("store").Warn("set %s: cannot encode value: %v", key, err)
		return false
	}
	if err := s.backend.Set(ctx, s.namespace+key, raw); err != nil {
		logger.FromContext(ctx).WithPrefix("store").Warn("set %s failed: %v", key, err)
		return false
	}
	return true
}

// Remove deletes key. Removing a missing key succeeds.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, s.namespace+key); err != nil {
		logger.FromContext(ctx).WithPrefix("store").Warn("remove %s failed: %v", key, err)
		return false
	}
	return true
}

// Keys lists keys under prefix, relative to the namespace.
func (s *Store) Keys(ctx context.Context, prefix string) []string {
	keys, err := s.backend.Keys(ctx, s.namespace+prefix)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("store").Warn("keys %s failed: %v", prefix, err)
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.namespace))
	}
	return out
}

// ClearNamespace removes every key under the store namespace and nothing else.
func (s *Store) ClearNamespace(ctx context.Context) bool {
	if err := s.backend.DeletePrefix(ctx, s.namespace); err != nil {
		logger.FromContext(ctx).WithPrefix("store").Warn("clear namespace %q failed: %v", s.namespace, err)
		return false
	}
	return true
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
