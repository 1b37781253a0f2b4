package common

import "time"

// CacheInterface abstracts the TTL cache used for cooldowns and listing
// caches, so tests can substitute their own clock-free implementation.
type CacheInterface interface {
	Set(key string, value interface{}, duration time.Duration)
	Get(key string) (interface{}, bool)
	Delete(key string)
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)
	Close() error
}
