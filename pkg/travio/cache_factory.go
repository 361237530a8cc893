package travio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/travio/travio-client/internal/constants"
)

// CacheType names a storage backend in configuration.
type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeSQLite CacheType = "sqlite"
	CacheTypeNATS   CacheType = "nats"

	// CacheTypeNone keeps nothing. Sessions do not survive a restart.
	CacheTypeNone CacheType = "none"
)

var (
	ErrNATSConfigRequired    = errors.New("nats storage needs a bucket configuration")
	ErrSQLiteConfigRequired  = errors.New("sqlite storage needs a database path")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrCacheDisabled         = errors.New("storage disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key missing from every storage tier")
)

// CacheConfig selects and configures the backend that holds credentials and
// looked-up records. Only the section matching Type is read.
type CacheConfig struct {
	Type CacheType

	Memory *MemoryCacheConfig
	SQLite *SQLiteCacheConfig
	NATS   *NATSKVConfig

	// Options falls back to DefaultCacheOptions when nil.
	Options *CacheOptions
}

type MemoryCacheConfig struct {
	MaxSize int

	// CleanupInterval drives a background sweep of expired entries. Zero
	// leaves expiry to reads.
	CleanupInterval time.Duration
}

// DefaultCacheConfig keeps everything in process memory.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Memory:  &MemoryCacheConfig{MaxSize: constants.DefaultCacheSize},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig opens the backend named by config.Type. An empty type
// means memory.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case "", CacheTypeMemory:
		return NewMemoryCacheFromConfig(ctx, config.Memory), nil
	case CacheTypeNone:
		return NewNoOpCache(), nil
	case CacheTypeSQLite:
		if config.SQLite == nil {
			return nil, ErrSQLiteConfigRequired
		}

		return NewSQLiteCache(ctx, config.SQLite)
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
}

// NewMemoryCacheFromConfig builds a MemoryCache. The sweep goroutine, if any,
// exits when ctx is done.
func NewMemoryCacheFromConfig(ctx context.Context, config *MemoryCacheConfig) *MemoryCache {
	size, every := constants.DefaultCacheSize, time.Duration(0)
	if config != nil {
		size, every = config.MaxSize, config.CleanupInterval
	}

	cache := NewMemoryCache(size)
	if every > 0 {
		go sweep(ctx, cache, every)
	}

	return cache
}

func sweep(ctx context.Context, cache *MemoryCache, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Cleanup()
		}
	}
}

// NoOpCache accepts writes and forgets them.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache { return &NoOpCache{} }

func (*NoOpCache) Get(context.Context, string) (*CacheEntry, error) { return nil, ErrCacheDisabled }

func (*NoOpCache) Set(context.Context, string, *CacheEntry) error { return nil }

func (*NoOpCache) Delete(context.Context, string) error { return nil }

func (*NoOpCache) Clear(context.Context) error { return nil }

func (*NoOpCache) Has(context.Context, string) bool { return false }

// CacheChain stacks backends fastest first, typically memory over SQLite or
// NATS. A hit in a lower tier is copied into the tiers above it.
type CacheChain struct {
	tiers []Cache
}

func NewCacheChain(tiers ...Cache) *CacheChain {
	return &CacheChain{tiers: tiers}
}

func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for depth, tier := range c.tiers {
		entry, err := tier.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, upper := range c.tiers[:depth] {
			_ = upper.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set writes through to every tier. Failures are joined; the other tiers
// are still written.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(tier Cache) error { return tier.Set(ctx, key, entry) })
}

func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(tier Cache) error { return tier.Delete(ctx, key) })
}

func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(tier Cache) error { return tier.Clear(ctx) })
}

func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, tier := range c.tiers {
		if tier.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close releases the tiers that hold files or connections.
func (c *CacheChain) Close() error {
	return c.each(CloseCache)
}

func (c *CacheChain) each(fn func(Cache) error) error {
	var errs []error

	for _, tier := range c.tiers {
		if err := fn(tier); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// CloseCache closes cache if it implements io.Closer and is a no-op otherwise.
func CloseCache(cache Cache) error {
	if closer, ok := cache.(interface{ Close() error }); ok {
		return closer.Close()
	}

	return nil
}
