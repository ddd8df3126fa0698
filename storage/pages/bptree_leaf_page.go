package pages

import (
	"xminidb/basic"
	"xminidb/util"
)

const (
	bptLeafNextOffset     = 20
	bptLeafHeaderSize     = 24
	leafValueSize         = 8
	leafValuePageIdOffset = 0
	leafValueSlotOffset   = 4
)

// BPTreeLeafPage holds size (key, RowId) pairs in ascending key order plus
// the next-leaf pointer forming the leaf chain. Keys are unique.
type BPTreeLeafPage struct {
	BPTreePage
	keySize int
}

func LeafPageFrom(data []byte, keySize int) *BPTreeLeafPage {
	return &BPTreeLeafPage{BPTreePage: BPTreePage{data: data}, keySize: keySize}
}

// Init formats the node as an empty leaf with no successor.
func (lp *BPTreeLeafPage) Init(pageId basic.PageID, parentId basic.PageID, maxSize uint32) {
	lp.setPageType(BPTreeLeafPageType)
	lp.setPageId(pageId)
	lp.SetParentPageId(parentId)
	lp.SetSize(0)
	lp.setMaxSize(maxSize)
	lp.SetNextPageId(basic.InvalidPageID)
}

func (lp *BPTreeLeafPage) GetNextPageId() basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(lp.data[bptLeafNextOffset:]))
}

func (lp *BPTreeLeafPage) SetNextPageId(nextId basic.PageID) {
	util.WriteB4At(lp.data, bptLeafNextOffset, int32(nextId))
}

func (lp *BPTreeLeafPage) entrySize() int {
	return lp.keySize + leafValueSize
}

func (lp *BPTreeLeafPage) entryOffset(index uint32) int {
	return bptLeafHeaderSize + int(index)*lp.entrySize()
}

func (lp *BPTreeLeafPage) KeyAt(index uint32) []byte {
	off := lp.entryOffset(index)
	return lp.data[off : off+lp.keySize]
}

func (lp *BPTreeLeafPage) ValueAt(index uint32) basic.RowId {
	off := lp.entryOffset(index) + lp.keySize
	return basic.NewRowId(
		basic.PageID(util.ReadB4Byte2Int32(lp.data[off+leafValuePageIdOffset:])),
		util.ReadUB4Byte2UInt32(lp.data[off+leafValueSlotOffset:]))
}

func (lp *BPTreeLeafPage) setEntryAt(index uint32, key []byte, value basic.RowId) {
	off := lp.entryOffset(index)
	copy(lp.data[off:off+lp.keySize], key)
	util.WriteB4At(lp.data, off+lp.keySize+leafValuePageIdOffset, int32(value.GetPageId()))
	util.WriteUB4At(lp.data, off+lp.keySize+leafValueSlotOffset, value.GetSlotNum())
}

// GetItem returns the key and value at index.
func (lp *BPTreeLeafPage) GetItem(index uint32) ([]byte, basic.RowId) {
	return lp.KeyAt(index), lp.ValueAt(index)
}

// KeyIndex returns the smallest index whose key is >= key, or size when every
// key is smaller.
func (lp *BPTreeLeafPage) KeyIndex(key []byte, cmp KeyComparator) uint32 {
	low, high := uint32(0), lp.GetSize()
	for low < high {
		mid := (low + high) / 2
		if cmp(lp.KeyAt(mid), key) < 0 {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low
}

// Insert places (key, value) at its ordered position and returns the new
// size. The tree rejects duplicates one level up; this call assumes the key
// is absent.
func (lp *BPTreeLeafPage) Insert(key []byte, value basic.RowId, cmp KeyComparator) uint32 {
	pos := lp.KeyIndex(key, cmp)
	size := lp.GetSize()
	copy(lp.data[lp.entryOffset(pos+1):lp.entryOffset(size+1)],
		lp.data[lp.entryOffset(pos):lp.entryOffset(size)])
	lp.setEntryAt(pos, key, value)
	lp.SetSize(size + 1)
	return size + 1
}

// Lookup finds key and returns its value.
func (lp *BPTreeLeafPage) Lookup(key []byte, cmp KeyComparator) (basic.RowId, bool) {
	pos := lp.KeyIndex(key, cmp)
	if pos < lp.GetSize() && cmp(lp.KeyAt(pos), key) == 0 {
		return lp.ValueAt(pos), true
	}
	return basic.InvalidRowId, false
}

// RemoveAndDeleteRecord deletes key if present and returns the resulting
// size; callers compare against the prior size to detect the hit.
func (lp *BPTreeLeafPage) RemoveAndDeleteRecord(key []byte, cmp KeyComparator) uint32 {
	size := lp.GetSize()
	pos := lp.KeyIndex(key, cmp)
	if pos >= size || cmp(lp.KeyAt(pos), key) != 0 {
		return size
	}
	copy(lp.data[lp.entryOffset(pos):lp.entryOffset(size-1)],
		lp.data[lp.entryOffset(pos+1):lp.entryOffset(size)])
	lp.SetSize(size - 1)
	return size - 1
}

// MoveHalfTo moves the upper half of the entries to recipient, which must be
// freshly initialised.
func (lp *BPTreeLeafPage) MoveHalfTo(recipient *BPTreeLeafPage) {
	size := lp.GetSize()
	half := size / 2
	start := size - half

	copy(recipient.data[recipient.entryOffset(0):recipient.entryOffset(half)],
		lp.data[lp.entryOffset(start):lp.entryOffset(size)])
	recipient.SetSize(half)
	lp.SetSize(start)
}

// MoveAllTo appends every entry to recipient and hands over the next-leaf
// pointer so the chain stays connected. The caller frees this page.
func (lp *BPTreeLeafPage) MoveAllTo(recipient *BPTreeLeafPage) {
	size := lp.GetSize()
	rSize := recipient.GetSize()
	copy(recipient.data[recipient.entryOffset(rSize):recipient.entryOffset(rSize+size)],
		lp.data[lp.entryOffset(0):lp.entryOffset(size)])
	recipient.SetSize(rSize + size)
	recipient.SetNextPageId(lp.GetNextPageId())
	lp.SetSize(0)
}

// MoveFirstToEndOf appends this leaf's first entry to recipient and drops it
// locally.
func (lp *BPTreeLeafPage) MoveFirstToEndOf(recipient *BPTreeLeafPage) {
	size := lp.GetSize()
	rSize := recipient.GetSize()
	copy(recipient.data[recipient.entryOffset(rSize):recipient.entryOffset(rSize+1)],
		lp.data[lp.entryOffset(0):lp.entryOffset(1)])
	recipient.SetSize(rSize + 1)
	copy(lp.data[lp.entryOffset(0):lp.entryOffset(size-1)],
		lp.data[lp.entryOffset(1):lp.entryOffset(size)])
	lp.SetSize(size - 1)
}

// MoveLastToFrontOf prepends this leaf's last entry to recipient.
func (lp *BPTreeLeafPage) MoveLastToFrontOf(recipient *BPTreeLeafPage) {
	size := lp.GetSize()
	rSize := recipient.GetSize()
	copy(recipient.data[recipient.entryOffset(1):recipient.entryOffset(rSize+1)],
		recipient.data[recipient.entryOffset(0):recipient.entryOffset(rSize)])
	copy(recipient.data[recipient.entryOffset(0):recipient.entryOffset(1)],
		lp.data[lp.entryOffset(size-1):lp.entryOffset(size)])
	recipient.SetSize(rSize + 1)
	lp.SetSize(size - 1)
}
