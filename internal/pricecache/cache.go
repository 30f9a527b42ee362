// Package pricecache keeps resolved pricing on the client side. Cached data is
// served only while it is younger than the TTL and the server still reports
// the version it was fetched at.
package pricecache

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smmwallet/backend/internal/models"
)

const DefaultTTL = 12 * time.Hour

// Key identifies one cached view: a scope and the subset of catalog keys the
// caller asked for. An empty KeySet means the whole scope.
type Key struct {
	Scope  string
	KeySet string
}

// NewKey builds a Key with a canonical key set so that the same keys in any
// order share one entry.
func NewKey(scope string, keys ...string) Key {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return Key{Scope: scope, KeySet: strings.Join(sorted, ",")}
}

func (k Key) keys() []string {
	if k.KeySet == "" {
		return nil
	}
	return strings.Split(k.KeySet, ",")
}

// Entry is what a Store keeps per Key.
type Entry struct {
	Policies  map[string]models.EffectivePolicy `json:"policies"`
	Version   int64                             `json:"version"`
	FetchedAt time.Time                         `json:"fetched_at"`
}

// Valid reports whether e may be served at now given the freshly probed
// server version.
func (e Entry) Valid(now time.Time, ttl time.Duration, probed int64) bool {
	return e.fresh(now, ttl) && e.Version == probed
}

func (e Entry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Source is the pricing API the cache reads through.
type Source interface {
	PricingVersion(ctx context.Context, scope string) (int64, error)
	Pricing(ctx context.Context, scope string) (*models.PricingBulk, error)
}

// Store persists entries. Load reports ok=false for a missing entry.
type Store interface {
	Load(ctx context.Context, key Key) (entry Entry, ok bool, err error)
	Save(ctx context.Context, key Key, entry Entry) error
	Delete(ctx context.Context, key Key) error
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

type Cache struct {
	source Source
	store  Store
	ttl    time.Duration
	now    func() time.Time

	// serializes refetches per key so concurrent readers share one fetch
	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

func New(source Source, store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		source: source,
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		locks:  make(map[Key]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the effective policies for key. Every read probes the server
// version; the full map is only refetched when the entry is stale or the
// version moved.
func (c *Cache) Get(ctx context.Context, key Key) (map[string]models.EffectivePolicy, error) {
	l := c.lockFor(key)
	l.Lock()
	defer l.Unlock()

	entry, ok, err := c.store.Load(ctx, key)
	if err != nil {
		log.Printf("[PRICECACHE] load %s/%s failed: %v", key.Scope, key.KeySet, err)
		ok = false
	}

	now := c.now()
	probed, err := c.source.PricingVersion(ctx, key.Scope)
	if err != nil {
		if ok && entry.fresh(now, c.ttl) {
			log.Printf("[PRICECACHE] version probe for %s failed, serving cached v%d: %v", key.Scope, entry.Version, err)
			return entry.Policies, nil
		}
		return nil, fmt.Errorf("probe pricing version: %w", err)
	}

	if ok && entry.Valid(now, c.ttl, probed) {
		return entry.Policies, nil
	}

	bulk, err := c.source.Pricing(ctx, key.Scope)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing: %w", err)
	}

	fresh := Entry{
		Policies:  filter(bulk.Policies, key.keys()),
		Version:   bulk.Version,
		FetchedAt: now,
	}
	if err := c.store.Save(ctx, key, fresh); err != nil {
		log.Printf("[PRICECACHE] save %s/%s failed: %v", key.Scope, key.KeySet, err)
	}
	return fresh.Policies, nil
}

// Invalidate drops the entry so the next Get refetches.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	return c.store.Delete(ctx, key)
}

func (c *Cache) lockFor(key Key) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func filter(all map[string]models.EffectivePolicy, keys []string) map[string]models.EffectivePolicy {
	if len(keys) == 0 {
		return all
	}
	out := make(map[string]models.EffectivePolicy, len(keys))
	for _, k := range keys {
		if p, ok := all[k]; ok {
			out[k] = p
		}
	}
	return out
}
