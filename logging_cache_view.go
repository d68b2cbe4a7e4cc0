package slabcached

import (
	"github.com/skipor/slabcached/cache"
	"github.com/skipor/slabcached/log"
)

// LoggingCacheView wraps a Cache and reports every operation outcome at
// debug level. It adds no locking, so it can wrap the shared cache without
// changing its concurrency.
type LoggingCacheView struct {
	cache cache.Cache
	log   log.Logger
}

var _ cache.Cache = (*LoggingCacheView)(nil)

func NewLoggingCacheView(c cache.Cache, l log.Logger) *LoggingCacheView {
	return &LoggingCacheView{cache: c, log: l}
}

func (v *LoggingCacheView) Get(key []byte) (cache.Value, bool) {
	val, ok := v.cache.Get(key)
	if ok {
		v.log.Debugf("Cache hit. Key %q, %v data bytes.", key, val.Bytes)
	} else {
		v.log.Debugf("Cache miss. Key %q.", key)
	}
	return val, ok
}

func (v *LoggingCacheView) Set(key []byte, val cache.Value) bool {
	stored := v.cache.Set(key, val)
	if stored {
		v.log.Debugf("Cache store. Key %q, %v data bytes.", key, val.Bytes)
	} else {
		v.log.Debugf("Cache store refused. Key %q, %v data bytes.", key, val.Bytes)
	}
	return stored
}
