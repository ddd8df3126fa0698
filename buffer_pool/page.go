// Package buffer_pool caches disk pages in a fixed set of frames with LRU
// replacement and pin accounting.
package buffer_pool

import (
	"xminidb/basic"
	"xminidb/latch"
)

// Page is one buffer frame: the cached bytes of a disk page plus the frame
// metadata. The embedded latch protects the bytes; the pool's mutex protects
// the metadata.
type Page struct {
	latch.Latch

	id       basic.PageID
	data     []byte
	pinCount int32
	isDirty  bool
}

func newPage(pageSize int) *Page {
	return &Page{
		id:   basic.InvalidPageID,
		data: make([]byte, pageSize),
	}
}

// GetPageId returns the logical id of the cached page, or InvalidPageID for a
// free frame.
func (p *Page) GetPageId() basic.PageID {
	return p.id
}

// GetData returns the frame's bytes. Callers bracket access with the page
// latch.
func (p *Page) GetData() []byte {
	return p.data
}

// GetPinCount returns the number of outstanding fetches.
func (p *Page) GetPinCount() int32 {
	return p.pinCount
}

// IsDirty reports whether the frame holds unwritten modifications.
func (p *Page) IsDirty() bool {
	return p.isDirty
}

func (p *Page) resetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
}
