package cache

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/skipor/slabcached/log"
	"github.com/skipor/slabcached/slab"
	"github.com/skipor/slabcached/stat"
)

var _ = Describe("slot sizes", func() {
	It("are ascending powers of two dividing the page size", func() {
		sizes := SlotSizes()
		Expect(sizes).To(HaveLen(NumSlabs))
		Expect(sizes[0]).To(Equal(1 << MinSlotShift))
		Expect(sizes[len(sizes)-1]).To(Equal(MaxValueSize))
		for i, size := range sizes {
			Expect(slab.PageSize % size).To(BeZero())
			if i > 0 {
				Expect(size).To(Equal(sizes[i-1] << SlotShiftStep))
			}
		}
	})
})

var _ = Describe("Router", func() {
	var (
		reg *stat.Registry
		r   *Router
	)
	BeforeEach(func() {
		// Two pages: the stale copy test fills slots in two slabs.
		pool, err := slab.NewPagePool(2 * slab.PageSize)
		Expect(err).To(BeNil())
		reg = stat.NewRegistry()
		r, err = NewRouter(pool, log.NewNop(), reg)
		Expect(err).To(BeNil())
	})
	AfterEach(func() {
		r.Close()
	})

	It("routes to the smallest fitting slab", func() {
		for _, size := range SlotSizes() {
			Expect(r.slabFor(size).SlotSize()).To(Equal(size))
			Expect(r.slabFor(size - 1).SlotSize()).To(Equal(size))
		}
		Expect(r.slabFor(1<<MinSlotShift + 1).SlotSize()).To(Equal(1 << (MinSlotShift + SlotShiftStep)))
		Expect(r.slabFor(MaxValueSize + 1)).To(BeNil())
	})

	It("stores and loads", func() {
		v := NewValue(7, []byte("payload"))
		Expect(r.Set([]byte("k"), v)).To(BeTrue())
		got, ok := r.Get([]byte("k"))
		Expect(ok).To(BeTrue())
		Expect(got.Equal(v)).To(BeTrue())
		Expect(reg.Cache.Hits.Count()).To(Equal(int64(1)))
	})

	It("counts misses", func() {
		_, ok := r.Get([]byte("nothing"))
		Expect(ok).To(BeFalse())
		Expect(reg.Cache.Misses.Count()).To(Equal(int64(1)))
	})

	It("rejects values larger than the largest slot", func() {
		big := make([]byte, MaxValueSize)
		Expect(r.Set([]byte("k"), NewValue(0, big))).To(BeFalse())
		Expect(reg.Cache.Rejects.Count()).To(Equal(int64(1)))
	})

	It("keeps stale copies when a key changes size class", func() {
		small := NewValue(1, []byte("s"))
		large := NewValue(2, make([]byte, 1000))
		Expect(r.Set([]byte("k"), small)).To(BeTrue())
		Expect(r.Set([]byte("k"), large)).To(BeTrue())
		Expect(r.Len()).To(Equal(2))
		got, ok := r.Get([]byte("k"))
		Expect(ok).To(BeTrue())
		Expect(got.Equal(small) || got.Equal(large)).To(BeTrue(), "got %#v", got)
	})
})
