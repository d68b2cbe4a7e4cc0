package cache

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("lru list", func() {
	var l *lruList
	var entries map[string]*entry
	BeforeEach(func() {
		l = newLRUList()
		entries = map[string]*entry{}
	})
	Push := func(key string) {
		e := &entry{key: key}
		entries[key] = e
		l.pushBack(e)
	}

	It("is born empty", func() {
		Expect(l.empty()).To(BeTrue())
		Expect(l.len()).To(BeZero())
		Expect(l.popFront()).To(BeNil())
	})

	It("pops in push order", func() {
		Push("a")
		Push("b")
		Push("c")
		Expect(l.keys()).To(Equal([]string{"a", "b", "c"}))
		Expect(l.popFront().key).To(Equal("a"))
		Expect(l.popFront().key).To(Equal("b"))
		Expect(l.popFront().key).To(Equal("c"))
		Expect(l.empty()).To(BeTrue())
	})

	It("promotes on moveToBack", func() {
		Push("a")
		Push("b")
		Push("c")
		l.moveToBack(entries["a"])
		Expect(l.keys()).To(Equal([]string{"b", "c", "a"}))
		Expect(l.popFront().key).To(Equal("b"))
	})

	It("promoting the most recently used is a no-op", func() {
		Push("a")
		Push("b")
		l.moveToBack(entries["b"])
		Expect(l.keys()).To(Equal([]string{"a", "b"}))
	})

	It("removes from the middle", func() {
		Push("a")
		Push("b")
		Push("c")
		l.remove(entries["b"])
		Expect(l.len()).To(Equal(2))
		Expect(l.keys()).To(Equal([]string{"a", "c"}))
	})

	It("tracks length", func() {
		Push("a")
		Expect(l.len()).To(Equal(1))
		Push("b")
		Expect(l.len()).To(Equal(2))
		l.popFront()
		Expect(l.len()).To(Equal(1))
	})
})
