package slab

import (
	"sync"

	"github.com/pkg/errors"
)

// PageSize is fixed for all pages: 16 MiB.
const PageSize = 16 << 20

// Page is a permanent contiguous byte region. After PagePool hands a page
// to a slab, the page belongs to that slab until process exit.
type Page struct {
	data []byte
}

func newPage() *Page {
	return &Page{data: make([]byte, PageSize)}
}

func (p *Page) Data() []byte { return p.data }

var ErrTooSmallBudget = errors.New("cache budget is less than one page")

// PagePool owns floor(maxBytes/PageSize) pages and hands each out once.
type PagePool struct {
	mu    sync.Mutex
	pages []*Page
}

func NewPagePool(maxBytes int64) (*PagePool, error) {
	if maxBytes < PageSize {
		return nil, errors.Wrapf(ErrTooSmallBudget, "max bytes %d, page size %d", maxBytes, PageSize)
	}
	count := int(maxBytes / PageSize)
	pages := make([]*Page, count)
	for i := range pages {
		pages[i] = newPage()
	}
	return &PagePool{pages: pages}, nil
}

// Acquire returns a free page, or false when the pool is drained.
func (p *PagePool) Acquire() (*Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 {
		return nil, false
	}
	page := p.pages[0]
	p.pages = p.pages[1:]
	return page, true
}

func (p *PagePool) FreePages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}
