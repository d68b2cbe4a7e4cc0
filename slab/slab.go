package slab

import (
	"fmt"
	"sync"
)

// Slot names a fixed length region [offset, offset+slotSize) inside a page.
// The slot mutex guards the bytes of that region. A slot carries no key.
type Slot struct {
	mu     sync.Mutex
	slab   *Slab
	page   *Page
	offset int
}

// Lock order: map lock, then slot mutex. A slot still reachable from a map
// must not be held while acquiring that map lock.
func (s *Slot) Lock()   { s.mu.Lock() }
func (s *Slot) Unlock() { s.mu.Unlock() }

// Bytes returns the slot window. Callers must hold the slot mutex.
func (s *Slot) Bytes() []byte {
	return s.page.data[s.offset : s.offset+s.slab.slotSize]
}

func (s *Slot) Slab() *Slab { return s.slab }

// Slab carves pages from a PagePool into slots of one fixed size.
// Once the pool reports empty the slab never asks again.
type Slab struct {
	mu            sync.Mutex
	slotSize      int
	pool          *PagePool
	free          []*Slot
	pages         []*Page
	poolExhausted bool
}

func NewSlab(slotSize int, pool *PagePool) *Slab {
	if slotSize <= 0 || PageSize%slotSize != 0 {
		panic(fmt.Sprintf("page size %d is not a multiple of slot size %d", PageSize, slotSize))
	}
	return &Slab{
		slotSize: slotSize,
		pool:     pool,
	}
}

func (s *Slab) SlotSize() int { return s.slotSize }

// GetSlot returns a free slot. On empty freelist it asks the pool for a page
// and splits it. Returns false when both freelist and pool are drained;
// callers then recycle via their own eviction.
func (s *Slab) GetSlot() (*Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.free) == 0 && !s.poolExhausted {
		page, ok := s.pool.Acquire()
		if ok {
			s.pages = append(s.pages, page)
			s.split(page)
		} else {
			s.poolExhausted = true
		}
	}
	if len(s.free) == 0 {
		return nil, false
	}
	slot := s.free[0]
	s.free = s.free[1:]
	return slot, true
}

// PutSlot makes the slot immediately available for GetSlot again.
func (s *Slab) PutSlot(slot *Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.free = append(s.free, slot)
}

func (s *Slab) split(page *Page) {
	slotsPerPage := PageSize / s.slotSize
	for i := 0; i < slotsPerPage; i++ {
		s.free = append(s.free, &Slot{
			slab:   s,
			page:   page,
			offset: i * s.slotSize,
		})
	}
}

func (s *Slab) FreeSlots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.free)
}

func (s *Slab) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}
