package table

import (
	"xminidb/basic"
	"xminidb/record"
	"xminidb/storage/pages"
)

// TableIterator walks the live tuples of a heap in page order, slot order
// within a page. The current row is loaded lazily into an owned buffer, so
// the iterator holds no pin between calls.
type TableIterator struct {
	heap   *TableHeap
	row    *record.Row
	txn    *basic.Transaction
	loaded bool
}

func newTableIterator(heap *TableHeap, rid basic.RowId, txn *basic.Transaction) *TableIterator {
	return &TableIterator{
		heap: heap,
		row:  record.NewRowWithRowId(rid),
		txn:  txn,
	}
}

// IsEnd reports whether the iterator is past the last live tuple.
func (it *TableIterator) IsEnd() bool {
	return !it.row.GetRowId().IsValid()
}

// GetRowId returns the position of the iterator.
func (it *TableIterator) GetRowId() basic.RowId {
	return it.row.GetRowId()
}

// GetRow returns the row at the current position, loading it on first use.
// Returns nil at End.
func (it *TableIterator) GetRow() *record.Row {
	if it.IsEnd() {
		return nil
	}
	if !it.loaded {
		if !it.heap.GetTuple(it.row, it.txn) {
			return nil
		}
		it.loaded = true
	}
	return it.row
}

// Equal reports whether two iterators sit on the same position.
func (it *TableIterator) Equal(other *TableIterator) bool {
	return it.row.GetRowId() == other.row.GetRowId()
}

// Next advances to the next live tuple, moving to following pages as needed
// and skipping empty ones. Returns false once the iterator reaches End.
func (it *TableIterator) Next() bool {
	if it.IsEnd() {
		return false
	}
	cur := it.row.GetRowId()
	bp := it.heap.bufferPool

	curPage := bp.FetchPage(cur.GetPageId())
	if curPage == nil {
		it.row = record.NewRowWithRowId(basic.InvalidRowId)
		return false
	}
	curPage.RLock()

	view := pages.TablePageFrom(curPage.GetData())
	next, found := view.GetNextTupleRid(cur)
	for !found {
		nextPageId := view.GetNextPageId()
		if nextPageId == basic.InvalidPageID {
			break
		}
		nextPage := bp.FetchPage(nextPageId)
		curPage.RUnlock()
		bp.UnpinPage(curPage.GetPageId(), false)
		if nextPage == nil {
			it.row = record.NewRowWithRowId(basic.InvalidRowId)
			return false
		}
		curPage = nextPage
		curPage.RLock()
		view = pages.TablePageFrom(curPage.GetData())
		next, found = view.GetFirstTupleRid()
	}
	curPage.RUnlock()
	bp.UnpinPage(curPage.GetPageId(), false)

	if !found {
		next = basic.InvalidRowId
	}
	it.row = record.NewRowWithRowId(next)
	it.loaded = false
	return found
}
