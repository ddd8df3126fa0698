package index

import (
	"xminidb/basic"
	"xminidb/buffer_pool"
	"xminidb/logger"
	"xminidb/storage/pages"
)

// leaf search modes
const (
	searchKey = iota
	searchLeftMost
	searchRightMost
)

// BPlusTree is one disk-resident index: a tree of internal pages over a
// chain of leaf pages, all reached through the buffer pool. The tree itself
// only holds the root page id; every root change is recorded in the index
// roots page so a restart can rediscover the tree.
type BPlusTree struct {
	indexId         basic.IndexID
	bufferPool      *buffer_pool.BufferPool
	comparator      pages.KeyComparator
	keySize         int
	leafMaxSize     uint32
	internalMaxSize uint32
	rootPageId      basic.PageID
}

// NewBPlusTree builds the handle for index indexId. Zero max sizes derive the
// node capacities from the page size. An existing root is picked up from the
// index roots page.
func NewBPlusTree(indexId basic.IndexID, bp *buffer_pool.BufferPool, comparator pages.KeyComparator,
	keySize int, leafMaxSize, internalMaxSize uint32) *BPlusTree {
	pageSize := bp.DiskManager().PageSize()
	if leafMaxSize == 0 {
		leafMaxSize = uint32((pageSize - 24) / (keySize + 8))
	}
	if internalMaxSize == 0 {
		internalMaxSize = uint32((pageSize - 20) / (keySize + 4))
	}

	tree := &BPlusTree{
		indexId:         indexId,
		bufferPool:      bp,
		comparator:      comparator,
		keySize:         keySize,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		rootPageId:      basic.InvalidPageID,
	}

	if roots, err := bp.DiskManager().ReadIndexRootsPage(); err == nil {
		if rootId, ok := roots.GetRootId(indexId); ok {
			tree.rootPageId = rootId
		}
	}
	return tree
}

func (t *BPlusTree) leafView(page *buffer_pool.Page) *pages.BPTreeLeafPage {
	return pages.LeafPageFrom(page.GetData(), t.keySize)
}

func (t *BPlusTree) internalView(page *buffer_pool.Page) *pages.BPTreeInternalPage {
	return pages.InternalPageFrom(page.GetData(), t.keySize)
}

func (t *BPlusTree) leafMinSize() uint32 {
	return (t.leafMaxSize + 1) / 2
}

// internalMinSize counts the sentinel entry, hence the +1.
func (t *BPlusTree) internalMinSize() uint32 {
	return (t.internalMaxSize+1)/2 + 1
}

// IsEmpty reports whether the tree has no root.
func (t *BPlusTree) IsEmpty() bool {
	return t.rootPageId == basic.InvalidPageID
}

// GetRootPageId returns the current root page id.
func (t *BPlusTree) GetRootPageId() basic.PageID {
	return t.rootPageId
}

// findLeafPage descends from the root to the leaf selected by mode and
// returns it pinned. Returns nil on an empty tree.
func (t *BPlusTree) findLeafPage(key []byte, mode int) *buffer_pool.Page {
	if t.IsEmpty() {
		return nil
	}
	page := t.bufferPool.FetchPage(t.rootPageId)
	if page == nil {
		return nil
	}
	node := pages.BPTreePageFrom(page.GetData())
	for !node.IsLeafPage() {
		internal := t.internalView(page)
		var childId basic.PageID
		switch mode {
		case searchLeftMost:
			childId = internal.ValueAt(0)
		case searchRightMost:
			childId = internal.ValueAt(internal.GetSize() - 1)
		default:
			childId = internal.Lookup(key, t.comparator)
		}
		childPage := t.bufferPool.FetchPage(childId)
		t.bufferPool.UnpinPage(page.GetPageId(), false)
		if childPage == nil {
			return nil
		}
		page = childPage
		node = pages.BPTreePageFrom(page.GetData())
	}
	return page
}

// GetValue looks the key up and returns its RowId.
func (t *BPlusTree) GetValue(key GenericKey) (basic.RowId, bool) {
	leafPage := t.findLeafPage(key, searchKey)
	if leafPage == nil {
		return basic.InvalidRowId, false
	}
	value, ok := t.leafView(leafPage).Lookup(key, t.comparator)
	t.bufferPool.UnpinPage(leafPage.GetPageId(), false)
	return value, ok
}

// Insert adds (key, value). Keys are unique: inserting a present key returns
// false and changes nothing.
func (t *BPlusTree) Insert(key GenericKey, value basic.RowId) bool {
	if t.IsEmpty() {
		return t.startNewTree(key, value)
	}
	return t.insertIntoLeaf(key, value)
}

// startNewTree allocates the first leaf as the root and records the root in
// the index roots page (insert-record form).
func (t *BPlusTree) startNewTree(key GenericKey, value basic.RowId) bool {
	page := t.bufferPool.NewPage()
	if page == nil {
		logger.Errorf("b+ tree %d: no page available to start a new tree", t.indexId)
		return false
	}
	leaf := t.leafView(page)
	leaf.Init(page.GetPageId(), basic.InvalidPageID, t.leafMaxSize)
	leaf.Insert(key, value, t.comparator)
	t.rootPageId = page.GetPageId()
	t.updateRootPageId(true)
	t.bufferPool.UnpinPage(page.GetPageId(), true)
	return true
}

// insertIntoLeaf descends to the target leaf, splitting it when full.
func (t *BPlusTree) insertIntoLeaf(key GenericKey, value basic.RowId) bool {
	leafPage := t.findLeafPage(key, searchKey)
	if leafPage == nil {
		return false
	}
	leaf := t.leafView(leafPage)
	if _, found := leaf.Lookup(key, t.comparator); found {
		t.bufferPool.UnpinPage(leafPage.GetPageId(), false)
		return false
	}

	if leaf.GetSize() < t.leafMaxSize {
		leaf.Insert(key, value, t.comparator)
		t.bufferPool.UnpinPage(leafPage.GetPageId(), true)
		return true
	}

	// split: the sibling takes the upper half and follows the original in
	// the leaf chain
	newLeafPage := t.bufferPool.NewPage()
	if newLeafPage == nil {
		t.bufferPool.UnpinPage(leafPage.GetPageId(), false)
		logger.Errorf("b+ tree %d: no page available for a leaf split", t.indexId)
		return false
	}
	newLeaf := t.leafView(newLeafPage)
	newLeaf.Init(newLeafPage.GetPageId(), leaf.GetParentPageId(), t.leafMaxSize)
	leaf.MoveHalfTo(newLeaf)

	if t.comparator(key, newLeaf.KeyAt(0)) < 0 {
		leaf.Insert(key, value, t.comparator)
	} else {
		newLeaf.Insert(key, value, t.comparator)
	}

	newLeaf.SetNextPageId(leaf.GetNextPageId())
	leaf.SetNextPageId(newLeafPage.GetPageId())

	sepKey := copyKey(newLeaf.KeyAt(0))
	t.insertIntoParent(&leaf.BPTreePage, sepKey, &newLeaf.BPTreePage)

	t.bufferPool.UnpinPage(leafPage.GetPageId(), true)
	t.bufferPool.UnpinPage(newLeafPage.GetPageId(), true)
	return true
}

// insertIntoParent links a freshly split pair (left, sepKey, right) one level
// up, growing a new root or splitting the parent as needed. The caller keeps
// left and right pinned.
func (t *BPlusTree) insertIntoParent(left *pages.BPTreePage, sepKey GenericKey, right *pages.BPTreePage) {
	if left.IsRootPage() {
		rootPage := t.bufferPool.NewPage()
		if rootPage == nil {
			logger.Errorf("b+ tree %d: no page available for a new root", t.indexId)
			return
		}
		root := t.internalView(rootPage)
		root.Init(rootPage.GetPageId(), basic.InvalidPageID, t.internalMaxSize)
		root.PopulateNewRoot(left.GetPageId(), sepKey, right.GetPageId())
		left.SetParentPageId(rootPage.GetPageId())
		right.SetParentPageId(rootPage.GetPageId())
		t.rootPageId = rootPage.GetPageId()
		t.updateRootPageId(false)
		t.bufferPool.UnpinPage(rootPage.GetPageId(), true)
		return
	}

	parentPage := t.bufferPool.FetchPage(left.GetParentPageId())
	if parentPage == nil {
		logger.Errorf("b+ tree %d: parent page %d not fetchable", t.indexId, left.GetParentPageId())
		return
	}
	parent := t.internalView(parentPage)

	if parent.GetSize() < t.internalMaxSize {
		parent.InsertNodeAfter(left.GetPageId(), sepKey, right.GetPageId())
		right.SetParentPageId(parent.GetPageId())
		t.bufferPool.UnpinPage(parentPage.GetPageId(), true)
		return
	}

	// the parent is full: build a temporary oversized node holding the
	// parent's entries plus the new pair, split it, reinstall the lower half
	// into the parent and push the split key further up
	entrySize := t.keySize + 4
	tempData := make([]byte, len(parentPage.GetData())+entrySize)
	copy(tempData, parentPage.GetData())
	temp := pages.InternalPageFrom(tempData, t.keySize)
	temp.InsertNodeAfter(left.GetPageId(), sepKey, right.GetPageId())
	right.SetParentPageId(parent.GetPageId())

	newInternalPage := t.bufferPool.NewPage()
	if newInternalPage == nil {
		t.bufferPool.UnpinPage(parentPage.GetPageId(), false)
		logger.Errorf("b+ tree %d: no page available for an internal split", t.indexId)
		return
	}
	newInternal := t.internalView(newInternalPage)
	newInternal.Init(newInternalPage.GetPageId(), parent.GetParentPageId(), t.internalMaxSize)
	temp.MoveHalfTo(newInternal, t.bufferPool)

	// reinstall the temp's lower half over the parent's entries
	keptSize := temp.GetSize()
	parent.SetSize(keptSize)
	for i := uint32(0); i < keptSize; i++ {
		parent.SetKeyAt(i, temp.KeyAt(i))
		parent.SetValueAt(i, temp.ValueAt(i))
	}

	sepUp := copyKey(newInternal.KeyAt(0))
	t.insertIntoParent(&parent.BPTreePage, sepUp, &newInternal.BPTreePage)

	t.bufferPool.UnpinPage(parentPage.GetPageId(), true)
	t.bufferPool.UnpinPage(newInternalPage.GetPageId(), true)
}

// Remove deletes key from the tree, rebalancing the leaf when it falls below
// its minimum fill. Removing an absent key is a no-op.
func (t *BPlusTree) Remove(key GenericKey) {
	if t.IsEmpty() {
		return
	}
	leafPage := t.findLeafPage(key, searchKey)
	if leafPage == nil {
		return
	}
	leaf := t.leafView(leafPage)
	oldSize := leaf.GetSize()
	newSize := leaf.RemoveAndDeleteRecord(key, t.comparator)
	if newSize == oldSize {
		t.bufferPool.UnpinPage(leafPage.GetPageId(), false)
		return
	}
	if leaf.IsRootPage() {
		t.adjustRoot(leafPage)
		return
	}
	if newSize < t.leafMinSize() {
		t.coalesceOrRedistribute(leafPage)
		return
	}
	t.bufferPool.UnpinPage(leafPage.GetPageId(), true)
}

// coalesceOrRedistribute rebalances an undersized non-root node against a
// sibling: redistribute when the pair holds more than one node's worth of
// entries, merge into the lower-keyed node otherwise. Consumes nodePage's
// pin.
func (t *BPlusTree) coalesceOrRedistribute(nodePage *buffer_pool.Page) {
	node := pages.BPTreePageFrom(nodePage.GetData())
	if node.IsRootPage() {
		t.adjustRoot(nodePage)
		return
	}

	parentPage := t.bufferPool.FetchPage(node.GetParentPageId())
	if parentPage == nil {
		t.bufferPool.UnpinPage(nodePage.GetPageId(), true)
		return
	}
	parent := t.internalView(parentPage)
	index := parent.ValueIndex(node.GetPageId())

	// the leftmost child borrows from its right neighbour, everyone else
	// from the left; keyIndex names the separator between the pair
	var siblingId basic.PageID
	var keyIndex uint32
	if index == 0 {
		siblingId = parent.ValueAt(1)
		keyIndex = 1
	} else {
		siblingId = parent.ValueAt(index - 1)
		keyIndex = index
	}
	siblingPage := t.bufferPool.FetchPage(siblingId)
	if siblingPage == nil {
		t.bufferPool.UnpinPage(nodePage.GetPageId(), true)
		t.bufferPool.UnpinPage(parentPage.GetPageId(), false)
		return
	}
	sibling := pages.BPTreePageFrom(siblingPage.GetData())

	if sibling.GetSize()+node.GetSize() > node.GetMaxSize() {
		t.redistribute(siblingPage, nodePage, parent, index)
		t.bufferPool.UnpinPage(siblingPage.GetPageId(), true)
		t.bufferPool.UnpinPage(nodePage.GetPageId(), true)
		t.bufferPool.UnpinPage(parentPage.GetPageId(), true)
		return
	}

	// coalesce into the lower-keyed node and drop the higher-keyed one
	var lowPage, highPage *buffer_pool.Page
	if index == 0 {
		lowPage, highPage = nodePage, siblingPage
	} else {
		lowPage, highPage = siblingPage, nodePage
	}
	middleKey := copyKey(parent.KeyAt(keyIndex))
	if node.IsLeafPage() {
		t.leafView(highPage).MoveAllTo(t.leafView(lowPage))
	} else {
		t.internalView(highPage).MoveAllTo(t.internalView(lowPage), middleKey, t.bufferPool)
	}
	parent.Remove(keyIndex)

	highId := highPage.GetPageId()
	t.bufferPool.UnpinPage(lowPage.GetPageId(), true)
	t.bufferPool.UnpinPage(highId, true)
	t.bufferPool.DeletePage(highId)

	if parent.IsRootPage() {
		t.adjustRoot(parentPage)
		return
	}
	if parent.GetSize() < t.internalMinSize() {
		t.coalesceOrRedistribute(parentPage)
		return
	}
	t.bufferPool.UnpinPage(parentPage.GetPageId(), true)
}

// redistribute moves one entry from sibling into node and refreshes the
// separator in the parent. index is node's position under the parent.
func (t *BPlusTree) redistribute(siblingPage, nodePage *buffer_pool.Page, parent *pages.BPTreeInternalPage, index uint32) {
	if pages.BPTreePageFrom(nodePage.GetData()).IsLeafPage() {
		sibling := t.leafView(siblingPage)
		node := t.leafView(nodePage)
		if index == 0 {
			sibling.MoveFirstToEndOf(node)
			parent.SetKeyAt(1, sibling.KeyAt(0))
		} else {
			sibling.MoveLastToFrontOf(node)
			parent.SetKeyAt(index, node.KeyAt(0))
		}
		return
	}

	sibling := t.internalView(siblingPage)
	node := t.internalView(nodePage)
	if index == 0 {
		middleKey := copyKey(parent.KeyAt(1))
		sibling.MoveFirstToEndOf(node, middleKey, t.bufferPool)
		parent.SetKeyAt(1, sibling.KeyAt(0))
	} else {
		movedKey := copyKey(sibling.KeyAt(sibling.GetSize() - 1))
		middleKey := copyKey(parent.KeyAt(index))
		sibling.MoveLastToFrontOf(node, middleKey, t.bufferPool)
		parent.SetKeyAt(index, movedKey)
	}
}

// adjustRoot handles the two root collapse cases: an emptied leaf root ends
// the tree, an internal root with a single child promotes it. Consumes
// rootPage's pin; reports whether the old root was discarded.
func (t *BPlusTree) adjustRoot(rootPage *buffer_pool.Page) bool {
	node := pages.BPTreePageFrom(rootPage.GetData())

	if node.IsLeafPage() {
		if node.GetSize() == 0 {
			oldRootId := rootPage.GetPageId()
			t.rootPageId = basic.InvalidPageID
			t.updateRootPageId(false)
			t.bufferPool.UnpinPage(oldRootId, true)
			t.bufferPool.DeletePage(oldRootId)
			return true
		}
		t.bufferPool.UnpinPage(rootPage.GetPageId(), true)
		return false
	}

	if node.GetSize() == 1 {
		childId := t.internalView(rootPage).ValueAt(0)
		oldRootId := rootPage.GetPageId()
		t.rootPageId = childId
		t.updateRootPageId(false)
		if childPage := t.bufferPool.FetchPage(childId); childPage != nil {
			pages.BPTreePageFrom(childPage.GetData()).SetParentPageId(basic.InvalidPageID)
			t.bufferPool.UnpinPage(childId, true)
		}
		t.bufferPool.UnpinPage(oldRootId, true)
		t.bufferPool.DeletePage(oldRootId)
		return true
	}

	t.bufferPool.UnpinPage(rootPage.GetPageId(), true)
	return false
}

// Destroy deallocates every page of the tree and records the now-invalid
// root.
func (t *BPlusTree) Destroy() {
	if t.IsEmpty() {
		return
	}
	t.destroySubtree(t.rootPageId)
	t.rootPageId = basic.InvalidPageID
	t.updateRootPageId(false)
}

func (t *BPlusTree) destroySubtree(pageId basic.PageID) {
	page := t.bufferPool.FetchPage(pageId)
	if page == nil {
		return
	}
	node := pages.BPTreePageFrom(page.GetData())
	var children []basic.PageID
	if !node.IsLeafPage() {
		internal := t.internalView(page)
		for i := uint32(0); i < internal.GetSize(); i++ {
			children = append(children, internal.ValueAt(i))
		}
	}
	t.bufferPool.UnpinPage(pageId, false)
	for _, child := range children {
		t.destroySubtree(child)
	}
	t.bufferPool.DeletePage(pageId)
}

// updateRootPageId records the current root in the index roots page:
// insert-record form when the index is first established, update-record form
// afterwards.
func (t *BPlusTree) updateRootPageId(insertRecord bool) {
	dm := t.bufferPool.DiskManager()
	roots, err := dm.ReadIndexRootsPage()
	if err != nil {
		logger.Errorf("b+ tree %d: read index roots page: %v", t.indexId, err)
		return
	}
	if insertRecord {
		if !roots.Insert(t.indexId, t.rootPageId) {
			roots.Update(t.indexId, t.rootPageId)
		}
	} else {
		if !roots.Update(t.indexId, t.rootPageId) {
			roots.Insert(t.indexId, t.rootPageId)
		}
	}
	dm.WriteIndexRootsPage(roots)
}
