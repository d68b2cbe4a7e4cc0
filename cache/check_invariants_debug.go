//go:build debug
// +build debug

// Gomega should not be dependency in non-debug build.

package cache

import (
	"errors"
	"log"

	"github.com/facebookgo/stackerr"
	. "github.com/onsi/gomega"
)

var _ = func() (_ struct{}) {
	RegisterFailHandler(GomegaFailHandler)
	return
}()

func GomegaFailHandler(message string, callerSkip ...int) {
	skip := callerSkip[0] + 1
	log.Fatal("FATAL: invariants are broken:", stackerr.WrapSkip(errors.New(message), skip))
}

// checkInvariants requires the map lock be held.
func (c *SlabCache) checkInvariants() {
	Expect(c.lru.fakeHead.prev).To(BeNil())
	Expect(c.lru.fakeTail.next).To(BeNil())
	var entries int
	for e := c.lru.fakeHead.next; e != c.lru.fakeTail; e = e.next {
		entries++
		Expect(e.prev.next).To(BeIdenticalTo(e))
		te, ok := c.table[e.key]
		Expect(ok).To(BeTrue(), e.key, "no table ref to entry")
		Expect(te).To(BeIdenticalTo(e), "table refs to another entry")
		Expect(e.slot.Slab()).To(BeIdenticalTo(c.slab), "slot from foreign slab")
	}
	Expect(entries).To(Equal(len(c.table)), "table and LRU list sizes differ")
	Expect(entries).To(Equal(c.lru.len()))
}
