// Package memcache is the in-process cache used when no Redis is configured.
package memcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"venue_hotel/internal/adapters/observability"
)

// Cache stores JSON-encoded values so reads never alias the caller's data.
type Cache struct{ c *gocache.Cache }

func New(cleanup time.Duration) *Cache {
	return &Cache{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(v.([]byte), dst)
}

func (m *Cache) Set(_ context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := gocache.NoExpiration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	m.c.Set(key, b, ttl)
	observability.ObserveCache("memory", "set")
	return nil
}

func (m *Cache) Del(_ context.Context, key string) error {
	m.c.Delete(key)
	observability.ObserveCache("memory", "del")
	return nil
}

func (m *Cache) DelPrefix(_ context.Context, prefix string) error {
	for k := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			m.c.Delete(k)
		}
	}
	observability.ObserveCache("memory", "del")
	return nil
}
