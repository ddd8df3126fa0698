package index

import (
	"xminidb/basic"
	"xminidb/buffer_pool"
)

// IndexIterator walks the leaf chain in ascending key order. A live iterator
// owns a pin on its current leaf and releases it when it moves to the next
// leaf and on Close; End sentinels hold no pin. Two iterators are equal when
// they name the same (leaf, index) position.
type IndexIterator struct {
	tree   *BPlusTree
	page   *buffer_pool.Page
	pageId basic.PageID
	index  uint32
}

// Begin positions an iterator at the smallest key.
func (t *BPlusTree) Begin() *IndexIterator {
	leafPage := t.findLeafPage(nil, searchLeftMost)
	if leafPage == nil {
		return &IndexIterator{tree: t, pageId: basic.InvalidPageID}
	}
	return &IndexIterator{tree: t, page: leafPage, pageId: leafPage.GetPageId()}
}

// BeginFrom positions an iterator at key, or at the smallest key greater
// than it when key is absent.
func (t *BPlusTree) BeginFrom(key GenericKey) *IndexIterator {
	leafPage := t.findLeafPage(key, searchKey)
	if leafPage == nil {
		return &IndexIterator{tree: t, pageId: basic.InvalidPageID}
	}
	leaf := t.leafView(leafPage)
	it := &IndexIterator{
		tree:   t,
		page:   leafPage,
		pageId: leafPage.GetPageId(),
		index:  leaf.KeyIndex(key, t.comparator),
	}
	it.skipExhaustedLeaf()
	return it
}

// End returns the position one past the last entry of the rightmost leaf.
// The sentinel holds no pin.
func (t *BPlusTree) End() *IndexIterator {
	leafPage := t.findLeafPage(nil, searchRightMost)
	if leafPage == nil {
		return &IndexIterator{tree: t, pageId: basic.InvalidPageID}
	}
	size := t.leafView(leafPage).GetSize()
	pageId := leafPage.GetPageId()
	t.bufferPool.UnpinPage(pageId, false)
	return &IndexIterator{tree: t, pageId: pageId, index: size}
}

// IsEnd reports whether the iterator has no current entry.
func (it *IndexIterator) IsEnd() bool {
	if it.pageId == basic.InvalidPageID {
		return true
	}
	if it.page == nil {
		return true
	}
	leaf := it.tree.leafView(it.page)
	return it.index >= leaf.GetSize() && leaf.GetNextPageId() == basic.InvalidPageID
}

// Equal reports whether two iterators name the same position.
func (it *IndexIterator) Equal(other *IndexIterator) bool {
	return it.pageId == other.pageId && it.index == other.index
}

// Key returns the key at the current position. The iterator must not be at
// End.
func (it *IndexIterator) Key() GenericKey {
	return copyKey(it.tree.leafView(it.page).KeyAt(it.index))
}

// Value returns the RowId at the current position. The iterator must not be
// at End.
func (it *IndexIterator) Value() basic.RowId {
	return it.tree.leafView(it.page).ValueAt(it.index)
}

// Next advances to the following entry, crossing into the next leaf when the
// current one is exhausted. Returns false once the iterator reaches End.
func (it *IndexIterator) Next() bool {
	if it.IsEnd() {
		return false
	}
	it.index++
	it.skipExhaustedLeaf()
	return !it.IsEnd()
}

// skipExhaustedLeaf hops to the next leaf when the index sits one past the
// current leaf's entries and a successor exists, exchanging the pin.
func (it *IndexIterator) skipExhaustedLeaf() {
	if it.page == nil {
		return
	}
	leaf := it.tree.leafView(it.page)
	if it.index < leaf.GetSize() {
		return
	}
	nextPageId := leaf.GetNextPageId()
	if nextPageId == basic.InvalidPageID {
		return
	}
	nextPage := it.tree.bufferPool.FetchPage(nextPageId)
	it.tree.bufferPool.UnpinPage(it.pageId, false)
	if nextPage == nil {
		it.page = nil
		it.pageId = basic.InvalidPageID
		return
	}
	it.page = nextPage
	it.pageId = nextPageId
	it.index = 0
}

// Close releases the iterator's pin. Safe to call more than once and on End
// sentinels.
func (it *IndexIterator) Close() {
	if it.page != nil {
		it.tree.bufferPool.UnpinPage(it.pageId, false)
		it.page = nil
	}
}
