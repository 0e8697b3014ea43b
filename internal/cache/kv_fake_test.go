package cache

import (
	"context"
	"sync"
	"time"
)

// memKV 内存 KVStore；now 可替换以推进时间
type memKV struct {
	mu      sync.Mutex
	now     func() time.Time
	values  map[string]string
	expires map[string]time.Time
	ttls    map[string]time.Duration
}

func newFakeKVStore() *memKV {
	return &memKV{
		now:     time.Now,
		values:  map[string]string{},
		expires: map[string]time.Time{},
		ttls:    map[string]time.Duration{},
	}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.expires[key]; ok && !m.now().Before(exp) {
		m.deleteLocked(key)
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.ttls[key] = ttl
	delete(m.expires, key)
	if ttl > 0 {
		m.expires[key] = m.now().Add(ttl)
	}
	return nil
}

func (m *memKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.deleteLocked(k)
	}
	return nil
}

func (m *memKV) ttl(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *memKV) deleteLocked(key string) {
	delete(m.values, key)
	delete(m.expires, key)
	delete(m.ttls, key)
}
