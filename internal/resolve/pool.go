package resolve

import (
	"sort"
)

// PoolEntry is one raster image pulled straight out of the PDF, located by
// its 0-based page and its position on that page.
type PoolEntry struct {
	ID    string
	Page  int
	Index int
	Path  string
}

// Pool is the per-document queue of extracted PDF images. Every entry handed
// out by Take is removed, so no entry backs two identifiers. A Pool belongs to
// one document's resolution and must not be shared.
type Pool struct {
	entries []PoolEntry
}

// NewPool orders entries by page, then by position on the page.
func NewPool(entries []PoolEntry) *Pool {
	p := &Pool{entries: append([]PoolEntry(nil), entries...)}
	sort.SliceStable(p.entries, func(i, j int) bool {
		a, b := p.entries[i], p.entries[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Index < b.Index
	})
	return p
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Take removes and returns the first available entry. Coordinates are not
// considered.
func (p *Pool) Take() (PoolEntry, bool) {
	if p.Len() == 0 {
		return PoolEntry{}, false
	}
	e := p.entries[0]
	p.entries = p.entries[1:]
	return e, true
}
