package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheService wraps an in-memory TTL store. It backs the opportunistic
// sync trigger's per-user cooldowns and the short-lived registry listing
// cache; nothing in it survives a restart, which is fine for both uses.
type CacheService struct {
	store *cache.Cache
}

var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpirationSeconds, cleanUpIntervalSeconds int) *CacheService {
	store := cache.New(
		time.Duration(defaultExpirationSeconds)*time.Second,
		time.Duration(cleanUpIntervalSeconds)*time.Second,
	)
	return &CacheService{store: store}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	cs.store.Set(key, value, duration)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.store.Get(key)
}

func (cs *CacheService) Delete(key string) {
	cs.store.Delete(key)
}

// GetOrSet returns the cached value for key, invoking loader and caching
// its result on a miss. Loader errors are returned uncached, so a failed
// load is retried on the next call.
func (cs *CacheService) GetOrSet(
	key string,
	duration time.Duration,
	loader func() (any, error)) (interface{}, error) {
	if val, found := cs.store.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	cs.store.Set(key, val, duration)
	return val, nil
}

// Close exists to satisfy CacheInterface; the in-memory store has
// nothing to release.
func (cs *CacheService) Close() error {
	return nil
}
