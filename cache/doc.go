// Package cache provides the slab paged LRU cache for the memcached protocol.
//
// Values are serialized in place into fixed size slots carved from pages
// (see package slab). Each slot size has its own SlabCache: a key to slot
// map paired with an LRU list, both guarded by a single map lock. Slot bytes
// are guarded by per slot mutexes so serialization happens outside the map
// lock. The Router picks a SlabCache for a set by serialized size and fans
// a get out across all SlabCaches, first hit wins.
//
// Lock order: map lock, then slot mutex. The map lock is released before
// slot I/O. A slot obtained for writing is never reachable from the map, so
// reacquiring the map lock with that slot held cannot deadlock.
package cache
