package cache

import (
	"fmt"

	"github.com/skipor/slabcached/internal/tag"
	"github.com/skipor/slabcached/slab"
)

// Invariants for lruList methods, checked in debug builds:
// * {fakeHead, all owned entries, fakeTail} are a correct doubly linked list.
// * every entry between the fakes is referenced by exactly one table cell.
// * fakeHead.next is the least recently used entry; new and promoted
//   entries attach before fakeTail.
type lruList struct {
	length int

	// Fake entries. Real entries are between them.
	// nil <- fakeHead <-> e_0 <-> ... <-> e_(n-1) <-> fakeTail -> nil
	// Such structure prevents nil checks in code.
	fakeHead *entry
	fakeTail *entry
}

// For debug output.
const fakeHeadKey = " !HEAD! "
const fakeTailKey = " !TAIL! "

type entry struct {
	key  string
	slot *slab.Slot
	prev *entry
	next *entry
}

func newLRUList() *lruList {
	l := &lruList{}
	l.fakeHead, l.fakeTail = &entry{key: fakeHeadKey}, &entry{key: fakeTailKey}
	link(l.fakeHead, l.fakeTail)
	return l
}

func link(a, b *entry) { a.next, b.prev = b, a }

// pushBack attaches e as most recently used.
func (l *lruList) pushBack(e *entry) {
	link(l.fakeTail.prev, e)
	link(e, l.fakeTail)
	l.length++
}

func (l *lruList) remove(e *entry) {
	link(e.prev, e.next)
	l.length--
	if tag.Debug {
		e.prev = nil
		e.next = nil
	}
}

// moveToBack promotes e to most recently used.
func (l *lruList) moveToBack(e *entry) {
	link(e.prev, e.next)
	link(l.fakeTail.prev, e)
	link(e, l.fakeTail)
}

// popFront detaches and returns the least recently used entry,
// or nil when the list is empty.
func (l *lruList) popFront() (e *entry) {
	if l.empty() {
		return nil
	}
	e = l.fakeHead.next
	l.remove(e)
	return e
}

func (l *lruList) empty() bool { return l.fakeHead.next == l.fakeTail }
func (l *lruList) len() int    { return l.length }

// keys returns keys ordered oldest first. For tests and debug checks.
func (l *lruList) keys() (keys []string) {
	for e := l.fakeHead.next; e != l.fakeTail; e = e.next {
		keys = append(keys, e.key)
	}
	return
}

func (e *entry) GoString() string {
	key := func(e *entry) interface{} {
		if e == nil {
			return nil
		}
		return e.key
	}
	return fmt.Sprintf("{key:%q, slot:%p, prev:%v, next:%v}", e.key, e.slot, key(e.prev), key(e.next))
}
