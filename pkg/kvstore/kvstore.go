// Package kvstore is the string key-value persistence used for saved carts.
//
// Drivers:
//   - "memory": process-local map (default, tests)
//   - "file":  one file per key under a root directory
//   - "redis": go-redis
//   - "sql":   a single gorm table (sqlite, postgres, mysql, sqlserver)
//   - "mongo": a single collection
//   - "s3":    one object per key in a bucket
//
// Quick start:
//
//	store, err := kvstore.Open(ctx, config.CartStore())
//	scoped := kvstore.Prefixed(store, "session:"+id+":")
//	_ = scoped.Set(ctx, "cart_demo", payload)
//	raw, ok, err := scoped.Get(ctx, "cart_demo")
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyKey is returned for blank keys.
var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is the driver interface.
type Store interface {
	// Get returns the value under key. ok is false when the key is absent;
	// absence is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by drivers that hold connections.
type Closer interface {
	Close(ctx context.Context) error
}

// Close releases s if it holds resources.
func Close(ctx context.Context, s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// ─── Prefixed ────────────────────────────────────────────────────────────────

type prefixed struct {
	inner  Store
	prefix string
}

// Prefixed namespaces every key of inner with prefix. It is how one browser
// session gets its own "cart_<slug>" keys on a shared backend.
func Prefixed(inner Store, prefix string) Store {
	if prefix == "" {
		return inner
	}
	return &prefixed{inner: inner, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return p.inner.Delete(ctx, p.prefix+key)
}

// ─── Open ────────────────────────────────────────────────────────────────────

// Open builds the named driver from configuration.
func Open(ctx context.Context, driver string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFileFromConfig()
	case "redis":
		return NewRedisFromConfig(ctx)
	case "sql":
		return NewSQLFromConfig()
	case "mongo":
		return NewMongoFromConfig(ctx)
	case "s3":
		return NewS3FromConfig(ctx)
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q (supported: memory, file, redis, sql, mongo, s3)", driver)
	}
}
