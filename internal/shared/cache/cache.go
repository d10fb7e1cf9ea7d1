package cache

import (
	"time"
)

//go:generate mockgen -package cache -source cache.go -destination cache_mock.go

// Cache stores JSON-encoded values. Get leaves dest untouched and returns
// no error on a miss.
type Cache interface {
	Get(key string, dest interface{}) error
	Set(key string, expireTimeout time.Duration, value interface{}) error
	Delete(key string) error
}
