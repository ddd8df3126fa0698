package pages

import (
	"xminidb/basic"
	"xminidb/util"
)

const internalValueSize = 4

// BPTreeInternalPage holds size (key, child page id) pairs starting right
// after the common header. By convention the key of entry 0 is an unused
// sentinel: only its child pointer matters. For every i in [1, size) the key
// at i is <= the first key of the subtree rooted at child i.
type BPTreeInternalPage struct {
	BPTreePage
	keySize int
}

// InternalPageFrom wraps page bytes as an internal node with fixed-width keys
// of keySize bytes. The slice may be larger than one disk page: the tree
// builds a temporary oversized node this way while splitting a full parent.
func InternalPageFrom(data []byte, keySize int) *BPTreeInternalPage {
	return &BPTreeInternalPage{BPTreePage: BPTreePage{data: data}, keySize: keySize}
}

// Init formats the node as an empty internal page holding only the sentinel
// entry.
func (ip *BPTreeInternalPage) Init(pageId basic.PageID, parentId basic.PageID, maxSize uint32) {
	ip.setPageType(BPTreeInternalPageType)
	ip.setPageId(pageId)
	ip.SetParentPageId(parentId)
	ip.SetSize(1)
	ip.setMaxSize(maxSize)
}

func (ip *BPTreeInternalPage) entrySize() int {
	return ip.keySize + internalValueSize
}

func (ip *BPTreeInternalPage) entryOffset(index uint32) int {
	return bptHeaderSize + int(index)*ip.entrySize()
}

func (ip *BPTreeInternalPage) KeyAt(index uint32) []byte {
	off := ip.entryOffset(index)
	return ip.data[off : off+ip.keySize]
}

func (ip *BPTreeInternalPage) SetKeyAt(index uint32, key []byte) {
	copy(ip.KeyAt(index), key)
}

func (ip *BPTreeInternalPage) ValueAt(index uint32) basic.PageID {
	off := ip.entryOffset(index) + ip.keySize
	return basic.PageID(util.ReadB4Byte2Int32(ip.data[off:]))
}

func (ip *BPTreeInternalPage) SetValueAt(index uint32, child basic.PageID) {
	util.WriteB4At(ip.data, ip.entryOffset(index)+ip.keySize, int32(child))
}

// ValueIndex returns the position of child in the pointer array, or size if
// absent.
func (ip *BPTreeInternalPage) ValueIndex(child basic.PageID) uint32 {
	i := uint32(0)
	for ; i < ip.GetSize(); i++ {
		if ip.ValueAt(i) == child {
			break
		}
	}
	return i
}

// Lookup returns the child whose subtree may contain key: the child of the
// greatest key <= key, with entry 0 covering everything below the first real
// key.
func (ip *BPTreeInternalPage) Lookup(key []byte, cmp KeyComparator) basic.PageID {
	size := ip.GetSize()
	if size < 2 || cmp(key, ip.KeyAt(1)) < 0 {
		return ip.ValueAt(0)
	}
	if cmp(key, ip.KeyAt(size-1)) >= 0 {
		return ip.ValueAt(size - 1)
	}
	// 二分查找: greatest index with key_at(index) <= key
	low, high := uint32(1), size-1
	for low+1 < high {
		mid := (low + high) / 2
		c := cmp(key, ip.KeyAt(mid))
		if c < 0 {
			high = mid
		} else if c > 0 {
			low = mid
		} else {
			return ip.ValueAt(mid)
		}
	}
	return ip.ValueAt(low)
}

// PopulateNewRoot installs (left, sepKey, right) when the tree grows a level.
func (ip *BPTreeInternalPage) PopulateNewRoot(left basic.PageID, sepKey []byte, right basic.PageID) {
	ip.SetValueAt(0, left)
	ip.SetKeyAt(1, sepKey)
	ip.SetValueAt(1, right)
	ip.SetSize(2)
}

// InsertNodeAfter writes (newKey, newChild) immediately after the entry whose
// child is oldChild, shifting later entries right. Returns the new size.
func (ip *BPTreeInternalPage) InsertNodeAfter(oldChild basic.PageID, newKey []byte, newChild basic.PageID) uint32 {
	pos := ip.ValueIndex(oldChild)
	size := ip.GetSize()
	copy(ip.data[ip.entryOffset(pos+2):ip.entryOffset(size+1)],
		ip.data[ip.entryOffset(pos+1):ip.entryOffset(size)])
	ip.SetKeyAt(pos+1, newKey)
	ip.SetValueAt(pos+1, newChild)
	ip.SetSize(size + 1)
	return size + 1
}

// Remove deletes the entry at index and compacts the array.
func (ip *BPTreeInternalPage) Remove(index uint32) {
	size := ip.GetSize()
	copy(ip.data[ip.entryOffset(index):ip.entryOffset(size-1)],
		ip.data[ip.entryOffset(index+1):ip.entryOffset(size)])
	ip.SetSize(size - 1)
}

// adopt rewrites the parent pointer of one child to this node.
func (ip *BPTreeInternalPage) adopt(child basic.PageID, ps PageSource) {
	data, ok := ps.FetchPageBytes(child)
	if !ok {
		return
	}
	BPTreePageFrom(data).SetParentPageId(ip.GetPageId())
	ps.UnpinPage(child, true)
}

// MoveHalfTo moves the upper half of the entries to recipient, which must be
// freshly initialised. The moved children are re-parented through ps. The key
// of recipient's entry 0 keeps the moved key bytes: the caller pushes it up
// as the separator.
func (ip *BPTreeInternalPage) MoveHalfTo(recipient *BPTreeInternalPage, ps PageSource) {
	size := ip.GetSize()
	half := (size + 1) / 2
	start := size - half

	copy(recipient.data[recipient.entryOffset(0):recipient.entryOffset(half)],
		ip.data[ip.entryOffset(start):ip.entryOffset(size)])
	recipient.SetSize(half)
	ip.SetSize(start)

	for i := uint32(0); i < half; i++ {
		recipient.adopt(recipient.ValueAt(i), ps)
	}
}

// MoveAllTo appends every entry to recipient, stamping middleKey (the
// separator from the parent) over the sentinel first. Children are
// re-parented. The caller removes the parent entry and frees this page.
func (ip *BPTreeInternalPage) MoveAllTo(recipient *BPTreeInternalPage, middleKey []byte, ps PageSource) {
	size := ip.GetSize()
	rSize := recipient.GetSize()
	ip.SetKeyAt(0, middleKey)

	copy(recipient.data[recipient.entryOffset(rSize):recipient.entryOffset(rSize+size)],
		ip.data[ip.entryOffset(0):ip.entryOffset(size)])
	recipient.SetSize(rSize + size)
	ip.SetSize(0)

	for i := rSize; i < rSize+size; i++ {
		recipient.adopt(recipient.ValueAt(i), ps)
	}
}

// MoveFirstToEndOf appends this node's first child to the end of recipient
// under middleKey (the current separator) and drops the local entry. The new
// first key of this node becomes the separator the caller writes back into
// the parent.
func (ip *BPTreeInternalPage) MoveFirstToEndOf(recipient *BPTreeInternalPage, middleKey []byte, ps PageSource) {
	child := ip.ValueAt(0)
	rSize := recipient.GetSize()
	recipient.SetKeyAt(rSize, middleKey)
	recipient.SetValueAt(rSize, child)
	recipient.SetSize(rSize + 1)
	recipient.adopt(child, ps)

	ip.Remove(0)
}

// MoveLastToFrontOf prepends this node's last child to recipient. The entry
// previously at recipient's front keeps its child but gains middleKey (the
// current separator); the moved key is the separator the caller writes back
// into the parent.
func (ip *BPTreeInternalPage) MoveLastToFrontOf(recipient *BPTreeInternalPage, middleKey []byte, ps PageSource) {
	size := ip.GetSize()
	movedChild := ip.ValueAt(size - 1)

	rSize := recipient.GetSize()
	copy(recipient.data[recipient.entryOffset(1):recipient.entryOffset(rSize+1)],
		recipient.data[recipient.entryOffset(0):recipient.entryOffset(rSize)])
	recipient.SetKeyAt(1, middleKey)
	recipient.SetValueAt(0, movedChild)
	recipient.SetSize(rSize + 1)
	recipient.adopt(movedChild, ps)

	ip.SetSize(size - 1)
}
