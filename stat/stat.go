// Package stat contains server and cache counters on top of
// github.com/rcrowley/go-metrics.
package stat

import (
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/skipor/slabcached/log"
)

// CacheStats count cache operation outcomes.
type CacheStats struct {
	Hits      metrics.Counter
	Misses    metrics.Counter
	Evictions metrics.Counter
	Rejects   metrics.Counter
}

// ServerStats count connection lifecycle events.
type ServerStats struct {
	Accepted    metrics.Counter
	ActiveConns metrics.Counter
}

type Registry struct {
	metrics.Registry
	Cache  CacheStats
	Server ServerStats
}

func NewRegistry() *Registry {
	r := metrics.NewRegistry()
	return &Registry{
		Registry: r,
		Cache: CacheStats{
			Hits:      metrics.NewRegisteredCounter("cache.hits", r),
			Misses:    metrics.NewRegisteredCounter("cache.misses", r),
			Evictions: metrics.NewRegisteredCounter("cache.evictions", r),
			Rejects:   metrics.NewRegisteredCounter("cache.rejects", r),
		},
		Server: ServerStats{
			Accepted:    metrics.NewRegisteredCounter("server.conns.accepted", r),
			ActiveConns: metrics.NewRegisteredCounter("server.conns.active", r),
		},
	}
}

// LogPeriodically dumps all counters at debug level every interval until
// stop is closed.
func (r *Registry) LogPeriodically(l log.Logger, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Each(func(name string, m interface{}) {
				if c, ok := m.(metrics.Counter); ok {
					l.Debugf("%s: %v", name, c.Count())
				}
			})
		}
	}
}
