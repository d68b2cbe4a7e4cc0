// Package slab contains the paged memory layer of the cache.
//
// A PagePool owns a fixed budget of equal sized pages. Slabs request pages
// on demand and carve them into fixed size slots. Pages handed to a slab are
// never returned to the pool; there is no inter-slab rebalancing.
package slab
