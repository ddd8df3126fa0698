package pages

import (
	"xminidb/basic"
	"xminidb/util"
)

// Table page layout: a 24-byte header, a slot directory growing upward from
// the header, and tuple bytes packed at the tail with the free space pointer
// descending as tuples are inserted.
//
//	0   page id
//	4   lsn (reserved for the log manager)
//	8   prev page id
//	12  next page id
//	16  free space pointer
//	20  tuple count
//	24  slot directory: (offset u32, size u32) per tuple
//
// A slot size of 0 marks a tombstone. The high bit of the size carries the
// delete-in-progress mark used by two-phase delete.
const (
	tablePageIdOffset      = 0
	tablePageLSNOffset     = 4
	tablePagePrevOffset    = 8
	tablePageNextOffset    = 12
	tablePageFreePtrOffset = 16
	tablePageCountOffset   = 20
	tablePageHeaderSize    = 24

	tableSlotSize = 8

	// TupleDeleteMask 删除标记位
	TupleDeleteMask = uint32(1) << 31

	// TablePageOverhead is the worst-case per-tuple page overhead (header
	// share plus one slot) used by the heap's oversized-row rejection.
	TablePageOverhead = tablePageHeaderSize + tableSlotSize
)

// TablePage is a slotted-page view over one data page.
type TablePage struct {
	data []byte
}

func TablePageFrom(data []byte) *TablePage {
	return &TablePage{data: data}
}

// Init formats the page as an empty table page linked after prevId.
func (tp *TablePage) Init(selfId basic.PageID, prevId basic.PageID, logMgr *basic.LogManager, txn *basic.Transaction) {
	util.WriteB4At(tp.data, tablePageIdOffset, int32(selfId))
	util.WriteUB4At(tp.data, tablePageLSNOffset, 0)
	util.WriteB4At(tp.data, tablePagePrevOffset, int32(prevId))
	util.WriteB4At(tp.data, tablePageNextOffset, int32(basic.InvalidPageID))
	util.WriteUB4At(tp.data, tablePageFreePtrOffset, uint32(len(tp.data)))
	util.WriteUB4At(tp.data, tablePageCountOffset, 0)
}

func (tp *TablePage) GetTablePageId() basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(tp.data[tablePageIdOffset:]))
}

func (tp *TablePage) GetPrevPageId() basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(tp.data[tablePagePrevOffset:]))
}

func (tp *TablePage) SetPrevPageId(prevId basic.PageID) {
	util.WriteB4At(tp.data, tablePagePrevOffset, int32(prevId))
}

func (tp *TablePage) GetNextPageId() basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(tp.data[tablePageNextOffset:]))
}

func (tp *TablePage) SetNextPageId(nextId basic.PageID) {
	util.WriteB4At(tp.data, tablePageNextOffset, int32(nextId))
}

func (tp *TablePage) GetFreeSpacePointer() uint32 {
	return util.ReadUB4Byte2UInt32(tp.data[tablePageFreePtrOffset:])
}

func (tp *TablePage) setFreeSpacePointer(ptr uint32) {
	util.WriteUB4At(tp.data, tablePageFreePtrOffset, ptr)
}

// GetTupleCount returns the number of slots, tombstones included.
func (tp *TablePage) GetTupleCount() uint32 {
	return util.ReadUB4Byte2UInt32(tp.data[tablePageCountOffset:])
}

func (tp *TablePage) setTupleCount(n uint32) {
	util.WriteUB4At(tp.data, tablePageCountOffset, n)
}

func (tp *TablePage) slotOffset(slot uint32) int {
	return tablePageHeaderSize + int(slot)*tableSlotSize
}

func (tp *TablePage) tupleOffsetAt(slot uint32) uint32 {
	return util.ReadUB4Byte2UInt32(tp.data[tp.slotOffset(slot):])
}

func (tp *TablePage) setTupleOffsetAt(slot uint32, offset uint32) {
	util.WriteUB4At(tp.data, tp.slotOffset(slot), offset)
}

// tupleSizeAt returns the raw size word including the delete mark.
func (tp *TablePage) tupleSizeAt(slot uint32) uint32 {
	return util.ReadUB4Byte2UInt32(tp.data[tp.slotOffset(slot)+4:])
}

func (tp *TablePage) setTupleSizeAt(slot uint32, size uint32) {
	util.WriteUB4At(tp.data, tp.slotOffset(slot)+4, size)
}

// getFreeSpaceRemaining is the gap between the slot directory and the tuple
// area.
func (tp *TablePage) getFreeSpaceRemaining() uint32 {
	return tp.GetFreeSpacePointer() - uint32(tp.slotOffset(tp.GetTupleCount()))
}

func isDeleted(rawSize uint32) bool {
	return rawSize&TupleDeleteMask != 0 || rawSize == 0
}

// InsertTuple appends the serialised tuple and a fresh slot referencing it.
// Returns the slot number, or false when the page cannot take the tuple.
func (tp *TablePage) InsertTuple(tuple []byte, txn *basic.Transaction, lockMgr *basic.LockManager, logMgr *basic.LogManager) (uint32, bool) {
	if len(tuple) == 0 {
		return 0, false
	}
	if tp.getFreeSpaceRemaining() < uint32(len(tuple))+tableSlotSize {
		return 0, false
	}

	newFreePtr := tp.GetFreeSpacePointer() - uint32(len(tuple))
	copy(tp.data[newFreePtr:], tuple)
	tp.setFreeSpacePointer(newFreePtr)

	slot := tp.GetTupleCount()
	tp.setTupleOffsetAt(slot, newFreePtr)
	tp.setTupleSizeAt(slot, uint32(len(tuple)))
	tp.setTupleCount(slot + 1)
	return slot, true
}

// MarkDelete sets the delete-in-progress mark on the tuple's slot. The tuple
// bytes stay in place until ApplyDelete.
func (tp *TablePage) MarkDelete(rid basic.RowId, txn *basic.Transaction, lockMgr *basic.LockManager, logMgr *basic.LogManager) bool {
	slot := rid.GetSlotNum()
	if slot >= tp.GetTupleCount() {
		return false
	}
	rawSize := tp.tupleSizeAt(slot)
	if rawSize&^TupleDeleteMask == 0 {
		return false
	}
	tp.setTupleSizeAt(slot, rawSize|TupleDeleteMask)
	return true
}

// ApplyDelete physically removes the tuple, compacting the tuple area and
// fixing up every slot whose bytes lay before the removed tuple.
func (tp *TablePage) ApplyDelete(rid basic.RowId, txn *basic.Transaction, logMgr *basic.LogManager) {
	slot := rid.GetSlotNum()
	if slot >= tp.GetTupleCount() {
		return
	}
	size := tp.tupleSizeAt(slot) &^ TupleDeleteMask
	if size == 0 {
		return
	}
	offset := tp.tupleOffsetAt(slot)
	freePtr := tp.GetFreeSpacePointer()

	copy(tp.data[freePtr+size:offset+size], tp.data[freePtr:offset])
	tp.setFreeSpacePointer(freePtr + size)
	tp.setTupleOffsetAt(slot, 0)
	tp.setTupleSizeAt(slot, 0)

	for i := uint32(0); i < tp.GetTupleCount(); i++ {
		if i == slot {
			continue
		}
		if tp.tupleSizeAt(i)&^TupleDeleteMask == 0 {
			continue
		}
		if iOffset := tp.tupleOffsetAt(i); iOffset < offset {
			tp.setTupleOffsetAt(i, iOffset+size)
		}
	}
}

// RollbackDelete clears the delete-in-progress mark.
func (tp *TablePage) RollbackDelete(rid basic.RowId, txn *basic.Transaction, logMgr *basic.LogManager) {
	slot := rid.GetSlotNum()
	if slot >= tp.GetTupleCount() {
		return
	}
	tp.setTupleSizeAt(slot, tp.tupleSizeAt(slot)&^TupleDeleteMask)
}

// UpdateTuple rewrites the tuple in place, shifting subsequent tuples when the
// size changes. Returns the previous tuple bytes. Fails when the slot is dead
// or the page cannot absorb the growth; the caller then falls back to
// delete-and-reinsert.
func (tp *TablePage) UpdateTuple(newTuple []byte, rid basic.RowId, txn *basic.Transaction, lockMgr *basic.LockManager, logMgr *basic.LogManager) ([]byte, bool) {
	slot := rid.GetSlotNum()
	if slot >= tp.GetTupleCount() || len(newTuple) == 0 {
		return nil, false
	}
	rawSize := tp.tupleSizeAt(slot)
	if isDeleted(rawSize) {
		return nil, false
	}
	oldSize := rawSize
	newSize := uint32(len(newTuple))
	if newSize > oldSize && tp.getFreeSpaceRemaining() < newSize-oldSize {
		return nil, false
	}

	offset := tp.tupleOffsetAt(slot)
	oldTuple := make([]byte, oldSize)
	copy(oldTuple, tp.data[offset:offset+oldSize])

	freePtr := tp.GetFreeSpacePointer()
	newFreePtr := freePtr + oldSize - newSize
	copy(tp.data[newFreePtr:offset+oldSize-newSize], tp.data[freePtr:offset])
	newOffset := offset + oldSize - newSize
	copy(tp.data[newOffset:newOffset+newSize], newTuple)
	tp.setFreeSpacePointer(newFreePtr)
	tp.setTupleOffsetAt(slot, newOffset)
	tp.setTupleSizeAt(slot, newSize)

	for i := uint32(0); i < tp.GetTupleCount(); i++ {
		if i == slot {
			continue
		}
		if tp.tupleSizeAt(i)&^TupleDeleteMask == 0 {
			continue
		}
		if iOffset := tp.tupleOffsetAt(i); iOffset < offset {
			tp.setTupleOffsetAt(i, iOffset+oldSize-newSize)
		}
	}
	return oldTuple, true
}

// GetTuple returns a copy of the tuple bytes. Deleted and out-of-range slots
// report false.
func (tp *TablePage) GetTuple(rid basic.RowId, txn *basic.Transaction, lockMgr *basic.LockManager) ([]byte, bool) {
	slot := rid.GetSlotNum()
	if slot >= tp.GetTupleCount() {
		return nil, false
	}
	rawSize := tp.tupleSizeAt(slot)
	if isDeleted(rawSize) {
		return nil, false
	}
	offset := tp.tupleOffsetAt(slot)
	tuple := make([]byte, rawSize)
	copy(tuple, tp.data[offset:offset+rawSize])
	return tuple, true
}

// GetFirstTupleRid returns the RowId of the first live tuple on the page.
func (tp *TablePage) GetFirstTupleRid() (basic.RowId, bool) {
	for slot := uint32(0); slot < tp.GetTupleCount(); slot++ {
		if !isDeleted(tp.tupleSizeAt(slot)) {
			return basic.NewRowId(tp.GetTablePageId(), slot), true
		}
	}
	return basic.InvalidRowId, false
}

// GetNextTupleRid returns the RowId of the first live tuple after cur.
func (tp *TablePage) GetNextTupleRid(cur basic.RowId) (basic.RowId, bool) {
	for slot := cur.GetSlotNum() + 1; slot < tp.GetTupleCount(); slot++ {
		if !isDeleted(tp.tupleSizeAt(slot)) {
			return basic.NewRowId(tp.GetTablePageId(), slot), true
		}
	}
	return basic.InvalidRowId, false
}
