package pages

import (
	"xminidb/basic"
	"xminidb/util"
)

// Index roots page layout (physical page 1): checksum, live entry count, then
// (index id, root page id) pairs sorted by index id. Only live entries are
// serialised; the count is authoritative, there is no sentinel terminator.
const (
	rootsChecksumOffset = 0
	rootsCountOffset    = 8
	rootsArrayOffset    = 12
	rootsEntrySize      = 8
)

// IndexRootsPage is the persistent map from index id to root page id.
type IndexRootsPage struct {
	data []byte
}

func IndexRootsPageFrom(data []byte) *IndexRootsPage {
	return &IndexRootsPage{data: data}
}

// Data returns the backing page bytes.
func (rp *IndexRootsPage) Data() []byte {
	return rp.data
}

// MaxSize returns how many (index id, root) pairs fit on the page.
func (rp *IndexRootsPage) MaxSize() uint32 {
	return uint32((len(rp.data) - rootsArrayOffset) / rootsEntrySize)
}

// Count returns the number of live entries.
func (rp *IndexRootsPage) Count() uint32 {
	return util.ReadUB4Byte2UInt32(rp.data[rootsCountOffset:])
}

func (rp *IndexRootsPage) setCount(n uint32) {
	util.WriteUB4At(rp.data, rootsCountOffset, n)
}

func (rp *IndexRootsPage) entryOffset(i uint32) int {
	return rootsArrayOffset + int(i)*rootsEntrySize
}

func (rp *IndexRootsPage) indexIdAt(i uint32) basic.IndexID {
	return basic.IndexID(util.ReadUB4Byte2UInt32(rp.data[rp.entryOffset(i):]))
}

func (rp *IndexRootsPage) rootIdAt(i uint32) basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(rp.data[rp.entryOffset(i)+4:]))
}

func (rp *IndexRootsPage) writeEntry(i uint32, indexId basic.IndexID, rootId basic.PageID) {
	util.WriteUB4At(rp.data, rp.entryOffset(i), uint32(indexId))
	util.WriteB4At(rp.data, rp.entryOffset(i)+4, int32(rootId))
}

// lowerBound returns the smallest position whose index id is >= indexId.
func (rp *IndexRootsPage) lowerBound(indexId basic.IndexID) uint32 {
	low, high := uint32(0), rp.Count()
	for low < high {
		mid := (low + high) / 2
		if rp.indexIdAt(mid) < indexId {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low
}

// GetRootId looks up the root page id recorded for indexId.
func (rp *IndexRootsPage) GetRootId(indexId basic.IndexID) (basic.PageID, bool) {
	pos := rp.lowerBound(indexId)
	if pos < rp.Count() && rp.indexIdAt(pos) == indexId {
		return rp.rootIdAt(pos), true
	}
	return basic.InvalidPageID, false
}

// Insert records a new index. Returns false if the index is already present
// or the page is full.
func (rp *IndexRootsPage) Insert(indexId basic.IndexID, rootId basic.PageID) bool {
	count := rp.Count()
	if count >= rp.MaxSize() {
		return false
	}
	pos := rp.lowerBound(indexId)
	if pos < count && rp.indexIdAt(pos) == indexId {
		return false
	}
	copy(rp.data[rp.entryOffset(pos+1):rp.entryOffset(count+1)],
		rp.data[rp.entryOffset(pos):rp.entryOffset(count)])
	rp.writeEntry(pos, indexId, rootId)
	rp.setCount(count + 1)
	return true
}

// Update rewrites the root of an existing index. Returns false if absent.
func (rp *IndexRootsPage) Update(indexId basic.IndexID, rootId basic.PageID) bool {
	pos := rp.lowerBound(indexId)
	if pos < rp.Count() && rp.indexIdAt(pos) == indexId {
		rp.writeEntry(pos, indexId, rootId)
		return true
	}
	return false
}

// Delete removes an index from the map. Returns false if absent.
func (rp *IndexRootsPage) Delete(indexId basic.IndexID) bool {
	count := rp.Count()
	pos := rp.lowerBound(indexId)
	if pos >= count || rp.indexIdAt(pos) != indexId {
		return false
	}
	copy(rp.data[rp.entryOffset(pos):rp.entryOffset(count-1)],
		rp.data[rp.entryOffset(pos+1):rp.entryOffset(count)])
	rp.setCount(count - 1)
	return true
}

// UpdateChecksum recomputes the payload checksum before write-back.
func (rp *IndexRootsPage) UpdateChecksum() {
	util.WriteUB8At(rp.data, rootsChecksumOffset, util.HashCode(rp.data[rootsCountOffset:]))
}

// VerifyChecksum reports whether the stored checksum matches the payload. An
// all-zero page (fresh file) verifies as valid.
func (rp *IndexRootsPage) VerifyChecksum() bool {
	stored := util.ReadUB8Byte2UInt64(rp.data[rootsChecksumOffset:])
	if stored == 0 && rp.Count() == 0 {
		return true
	}
	return stored == util.HashCode(rp.data[rootsCountOffset:])
}
