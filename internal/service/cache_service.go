package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/goroutine"
)

// CacheService is an in-memory TTL cache.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	data      any
	expiresAt time.Time
}

// NewCacheService starts a cache whose expired entries are swept every
// cleanupEvery. Call Close to stop the sweeper.
func NewCacheService(cleanupEvery time.Duration) *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	if cleanupEvery > 0 {
		goroutine.SafeGo(func() { cs.cleanup(cleanupEvery) })
	}
	return cs
}

func (cs *CacheService) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (cs *CacheService) Set(key string, value any, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateByPrefix removes all keys with the given prefix.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

func (cs *CacheService) Close() {
	cs.once.Do(func() { close(cs.done) })
}

func (cs *CacheService) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-cs.done:
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := cs.now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

const userCachePrefix = "user:"

func UserCacheKey(userID uuid.UUID) string {
	return userCachePrefix + userID.String()
}
