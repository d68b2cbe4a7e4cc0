package cache

import (
	"context"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"github.com/skipor/slabcached/log"
	"github.com/skipor/slabcached/slab"
	"github.com/skipor/slabcached/stat"
)

// Slot size classes: powers of two from 16 B up to 4 MiB, consecutive sizes
// differ by a factor of 4. Ten slabs in total.
const (
	MinSlotShift  = 4
	MaxSlotShift  = 22
	SlotShiftStep = 2

	// MaxValueSize is the largest serialized value a Router accepts.
	MaxValueSize = 1 << MaxSlotShift

	NumSlabs = (MaxSlotShift-MinSlotShift)/SlotShiftStep + 1
)

// SlotSizes returns the slot size of every slab, ascending.
func SlotSizes() (sizes []int) {
	for shift := MinSlotShift; shift <= MaxSlotShift; shift += SlotShiftStep {
		sizes = append(sizes, 1<<shift)
	}
	return
}

// Router owns one SlabCache per slot size. A set is routed to the smallest
// slab whose slots fit the serialized value. A get carries no size hint, so
// it is broadcast to all slabs on a bounded executor; first hit wins and the
// remaining lookups are cancelled cooperatively.
//
// A set never migrates a key between slabs: setting an existing key with a
// value of a different size class installs the new value in its own slab and
// leaves the stale copy in the old one. A later get returns exactly one of
// the copies, which one is unspecified.
type Router struct {
	slabs []*SlabCache
	exec  *ants.Pool
	log   log.Logger
	stats stat.CacheStats
}

var _ Cache = (*Router)(nil)

func NewRouter(pool *slab.PagePool, l log.Logger, reg *stat.Registry) (*Router, error) {
	if reg == nil {
		reg = stat.NewRegistry()
	}
	exec, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	r := &Router{
		exec:  exec,
		log:   l,
		stats: reg.Cache,
	}
	for _, size := range SlotSizes() {
		r.slabs = append(r.slabs, NewSlabCache(size, pool, l, reg.Cache))
	}
	return r, nil
}

// Close releases the broadcast executor. Pages stay owned by their slabs.
func (r *Router) Close() {
	r.exec.Release()
}

func (r *Router) Set(key []byte, v Value) bool {
	sc := r.slabFor(v.SerializedSize())
	if sc == nil {
		r.log.Debugf("set %q refused: serialized size %v exceeds max slab", key, v.SerializedSize())
		r.stats.Rejects.Inc(1)
		return false
	}
	ok := sc.Set(key, v)
	if !ok {
		r.stats.Rejects.Inc(1)
	}
	return ok
}

// slabFor returns the SlabCache with the smallest slot size that fits
// serialized size, or nil when the value is too large for every slab.
func (r *Router) slabFor(size int) *SlabCache {
	for _, sc := range r.slabs {
		if size <= sc.SlotSize() {
			return sc
		}
	}
	return nil
}

type lookupResult struct {
	v  Value
	ok bool
}

// Get broadcasts the lookup to every slab in parallel and returns the first
// hit. Lookups not yet started when the hit arrives observe the cancelled
// context and return immediately; a lookup that already holds a slot mutex
// completes normally.
func (r *Router) Get(key []byte) (Value, bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan lookupResult, len(r.slabs))
	for _, sc := range r.slabs {
		sc := sc
		err := r.exec.Submit(func() {
			select {
			case <-ctx.Done():
				results <- lookupResult{}
				return
			default:
			}
			v, ok := sc.Get(key)
			results <- lookupResult{v, ok}
		})
		if err != nil {
			// Executor released during shutdown; count as miss.
			results <- lookupResult{}
		}
	}

	for range r.slabs {
		res := <-results
		if res.ok {
			r.stats.Hits.Inc(1)
			return res.v, true
		}
	}
	r.stats.Misses.Inc(1)
	return Value{}, false
}

// Len returns the total number of cached keys across slabs.
func (r *Router) Len() (n int) {
	for _, sc := range r.slabs {
		n += sc.Len()
	}
	return
}
