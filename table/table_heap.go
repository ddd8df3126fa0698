// Package table implements the table heap: one relation stored as a doubly
// linked list of slotted table pages, with a table-wide iterator over the
// live tuples.
package table

import (
	"xminidb/basic"
	"xminidb/buffer_pool"
	"xminidb/logger"
	"xminidb/record"
	"xminidb/storage/pages"
)

// TableHeap is one relation: a linked list of table pages starting at
// firstPageId. All page access goes through the buffer pool under the page
// latch.
type TableHeap struct {
	bufferPool  *buffer_pool.BufferPool
	firstPageId basic.PageID
	schema      *record.Schema
	lockManager *basic.LockManager
	logManager  *basic.LogManager
}

// NewTableHeap creates an empty relation with a fresh first page.
func NewTableHeap(bp *buffer_pool.BufferPool, schema *record.Schema, lockMgr *basic.LockManager, logMgr *basic.LogManager) *TableHeap {
	page := bp.NewPage()
	if page == nil {
		return nil
	}
	page.Lock()
	pages.TablePageFrom(page.GetData()).Init(page.GetPageId(), basic.InvalidPageID, logMgr, nil)
	page.Unlock()
	firstPageId := page.GetPageId()
	bp.UnpinPage(firstPageId, true)

	return &TableHeap{
		bufferPool:  bp,
		firstPageId: firstPageId,
		schema:      schema,
		lockManager: lockMgr,
		logManager:  logMgr,
	}
}

// OpenTableHeap attaches to an existing relation rooted at firstPageId.
func OpenTableHeap(bp *buffer_pool.BufferPool, firstPageId basic.PageID, schema *record.Schema, lockMgr *basic.LockManager, logMgr *basic.LogManager) *TableHeap {
	return &TableHeap{
		bufferPool:  bp,
		firstPageId: firstPageId,
		schema:      schema,
		lockManager: lockMgr,
		logManager:  logMgr,
	}
}

func (th *TableHeap) GetFirstPageId() basic.PageID {
	return th.firstPageId
}

func (th *TableHeap) GetSchema() *record.Schema {
	return th.schema
}

// InsertTuple stores the row, walking the page chain until a page accepts it
// and appending a new page when none does. On success the row carries the
// RowId it was stored under.
func (th *TableHeap) InsertTuple(row *record.Row, txn *basic.Transaction) bool {
	tuple := row.SerializeTo(th.schema)
	if tuple == nil || len(tuple)+pages.TablePageOverhead > th.bufferPool.DiskManager().PageSize() {
		return false
	}

	curPage := th.bufferPool.FetchPage(th.firstPageId)
	if curPage == nil {
		logger.Warnf("table heap: first page %d not fetchable", th.firstPageId)
		return false
	}
	curPage.Lock()

	for {
		curView := pages.TablePageFrom(curPage.GetData())
		if slot, ok := curView.InsertTuple(tuple, txn, th.lockManager, th.logManager); ok {
			row.SetRowId(basic.NewRowId(curView.GetTablePageId(), slot))
			curPage.Unlock()
			th.bufferPool.UnpinPage(curPage.GetPageId(), true)
			return true
		}

		nextPageId := curView.GetNextPageId()
		if nextPageId != basic.InvalidPageID {
			curPage.Unlock()
			th.bufferPool.UnpinPage(curPage.GetPageId(), false)
			curPage = th.bufferPool.FetchPage(nextPageId)
			if curPage == nil {
				return false
			}
			curPage.Lock()
			continue
		}

		newPage := th.bufferPool.NewPage()
		if newPage == nil {
			curPage.Unlock()
			th.bufferPool.UnpinPage(curPage.GetPageId(), false)
			return false
		}
		newPage.Lock()
		curView.SetNextPageId(newPage.GetPageId())
		pages.TablePageFrom(newPage.GetData()).Init(newPage.GetPageId(), curPage.GetPageId(), th.logManager, txn)
		curPage.Unlock()
		th.bufferPool.UnpinPage(curPage.GetPageId(), true)
		curPage = newPage
	}
}

// MarkDelete sets the delete-in-progress mark on the tuple at rid.
func (th *TableHeap) MarkDelete(rid basic.RowId, txn *basic.Transaction) bool {
	page := th.bufferPool.FetchPage(rid.GetPageId())
	if page == nil {
		return false
	}
	page.Lock()
	ok := pages.TablePageFrom(page.GetData()).MarkDelete(rid, txn, th.lockManager, th.logManager)
	page.Unlock()
	th.bufferPool.UnpinPage(rid.GetPageId(), ok)
	return ok
}

// ApplyDelete physically removes the tuple at rid.
func (th *TableHeap) ApplyDelete(rid basic.RowId, txn *basic.Transaction) {
	page := th.bufferPool.FetchPage(rid.GetPageId())
	if page == nil {
		logger.Warnf("table heap: ApplyDelete cannot find the page containing %v", rid)
		return
	}
	page.Lock()
	pages.TablePageFrom(page.GetData()).ApplyDelete(rid, txn, th.logManager)
	page.Unlock()
	th.bufferPool.UnpinPage(rid.GetPageId(), true)
}

// RollbackDelete clears the delete-in-progress mark at rid.
func (th *TableHeap) RollbackDelete(rid basic.RowId, txn *basic.Transaction) {
	page := th.bufferPool.FetchPage(rid.GetPageId())
	if page == nil {
		return
	}
	page.Lock()
	pages.TablePageFrom(page.GetData()).RollbackDelete(rid, txn, th.logManager)
	page.Unlock()
	th.bufferPool.UnpinPage(rid.GetPageId(), true)
}

// UpdateTuple rewrites the tuple at rid in place. Returns false when the new
// form does not fit, leaving the old tuple intact so the caller can delete
// and reinsert.
func (th *TableHeap) UpdateTuple(row *record.Row, rid basic.RowId, txn *basic.Transaction) bool {
	newTuple := row.SerializeTo(th.schema)
	if newTuple == nil {
		return false
	}
	page := th.bufferPool.FetchPage(rid.GetPageId())
	if page == nil {
		logger.Warnf("table heap: UpdateTuple cannot find the page containing %v", rid)
		return false
	}
	page.Lock()
	_, ok := pages.TablePageFrom(page.GetData()).UpdateTuple(newTuple, rid, txn, th.lockManager, th.logManager)
	page.Unlock()
	th.bufferPool.UnpinPage(rid.GetPageId(), ok)
	if ok {
		row.SetRowId(rid)
	}
	return ok
}

// GetTuple loads the tuple named by the row's RowId into the row.
func (th *TableHeap) GetTuple(row *record.Row, txn *basic.Transaction) bool {
	rid := row.GetRowId()
	page := th.bufferPool.FetchPage(rid.GetPageId())
	if page == nil {
		return false
	}
	page.RLock()
	tuple, ok := pages.TablePageFrom(page.GetData()).GetTuple(rid, txn, th.lockManager)
	page.RUnlock()
	th.bufferPool.UnpinPage(rid.GetPageId(), false)
	if ok {
		row.DeserializeFrom(tuple, th.schema)
	}
	return ok
}

// Free deletes every page of the relation through the buffer pool.
func (th *TableHeap) Free() {
	pageId := th.firstPageId
	for pageId != basic.InvalidPageID {
		page := th.bufferPool.FetchPage(pageId)
		if page == nil {
			return
		}
		page.RLock()
		nextPageId := pages.TablePageFrom(page.GetData()).GetNextPageId()
		page.RUnlock()
		th.bufferPool.UnpinPage(pageId, false)
		th.bufferPool.DeletePage(pageId)
		pageId = nextPageId
	}
	th.firstPageId = basic.InvalidPageID
}

// Begin positions an iterator at the first live tuple of the relation.
func (th *TableHeap) Begin(txn *basic.Transaction) *TableIterator {
	rid := basic.InvalidRowId
	pageId := th.firstPageId
	for pageId != basic.InvalidPageID {
		page := th.bufferPool.FetchPage(pageId)
		if page == nil {
			break
		}
		page.RLock()
		view := pages.TablePageFrom(page.GetData())
		first, found := view.GetFirstTupleRid()
		nextPageId := view.GetNextPageId()
		page.RUnlock()
		th.bufferPool.UnpinPage(pageId, false)
		if found {
			rid = first
			break
		}
		pageId = nextPageId
	}
	return newTableIterator(th, rid, txn)
}

// End is the iterator every exhausted iterator equals.
func (th *TableHeap) End() *TableIterator {
	return newTableIterator(th, basic.InvalidRowId, nil)
}
