package buffer_pool

import (
	"sync"
	"sync/atomic"

	"xminidb/basic"
	"xminidb/logger"
	"xminidb/storage/disk"
)

// BufferPool owns a fixed array of frames, the page table mapping resident
// logical ids to frames, a free-frame list and the LRU replacer. One mutex
// covers all of that metadata; page contents are protected by the per-frame
// latch.
type BufferPool struct {
	mu          sync.Mutex
	poolSize    int
	diskManager *disk.DiskManager
	pages       []*Page
	pageTable   map[basic.PageID]basic.FrameID
	freeList    []basic.FrameID
	replacer    *LRUReplacer

	hitCount  uint64
	missCount uint64
}

func NewBufferPool(poolSize int, diskManager *disk.DiskManager) *BufferPool {
	bp := &BufferPool{
		poolSize:    poolSize,
		diskManager: diskManager,
		pages:       make([]*Page, poolSize),
		pageTable:   make(map[basic.PageID]basic.FrameID),
		freeList:    make([]basic.FrameID, 0, poolSize),
		replacer:    NewLRUReplacer(poolSize),
	}
	for i := 0; i < poolSize; i++ {
		bp.pages[i] = newPage(diskManager.PageSize())
		bp.freeList = append(bp.freeList, basic.FrameID(i))
	}
	return bp
}

// DiskManager returns the disk manager the pool writes through.
func (bp *BufferPool) DiskManager() *disk.DiskManager {
	return bp.diskManager
}

// PoolSize returns the number of frames.
func (bp *BufferPool) PoolSize() int {
	return bp.poolSize
}

// getVictimFrame takes a frame from the free list, or evicts one through the
// replacer. Dirty victims are written back; the victim's page-table mapping
// is removed. Returns false when every frame is pinned.
func (bp *BufferPool) getVictimFrame() (basic.FrameID, bool) {
	if len(bp.freeList) > 0 {
		frame := bp.freeList[0]
		bp.freeList = bp.freeList[1:]
		return frame, true
	}

	frame, ok := bp.replacer.Victim()
	if !ok {
		return basic.InvalidFrameID, false
	}
	victim := bp.pages[frame]
	if victim.isDirty {
		bp.diskManager.WritePage(victim.id, victim.data)
	}
	delete(bp.pageTable, victim.id)
	return frame, true
}

// FetchPage pins the page in a frame, reading it from disk on a miss.
// Returns nil when no frame can be freed.
func (bp *BufferPool) FetchPage(pageId basic.PageID) *Page {
	if pageId < 0 {
		return nil
	}
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frame, ok := bp.pageTable[pageId]; ok {
		page := bp.pages[frame]
		page.pinCount++
		bp.replacer.Pin(frame)
		atomic.AddUint64(&bp.hitCount, 1)
		return page
	}
	atomic.AddUint64(&bp.missCount, 1)

	frame, ok := bp.getVictimFrame()
	if !ok {
		logger.Warnf("buffer pool exhausted fetching page %d: all %d frames pinned", pageId, bp.poolSize)
		return nil
	}
	page := bp.pages[frame]
	bp.pageTable[pageId] = frame
	page.id = pageId
	page.pinCount = 1
	page.isDirty = false
	if err := bp.diskManager.ReadPage(pageId, page.data); err != nil {
		logger.Errorf("read page %d: %v", pageId, err)
	}
	return page
}

// NewPage allocates a fresh logical page, pins it in a zeroed frame and
// returns it. Returns nil when no frame can be freed or the disk manager has
// no allocatable page.
func (bp *BufferPool) NewPage() *Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frame, ok := bp.getVictimFrame()
	if !ok {
		logger.Warnf("buffer pool exhausted allocating a new page: all %d frames pinned", bp.poolSize)
		return nil
	}

	pageId := bp.diskManager.AllocatePage()
	if pageId == basic.InvalidPageID {
		bp.freeList = append(bp.freeList, frame)
		return nil
	}

	page := bp.pages[frame]
	bp.pageTable[pageId] = frame
	page.id = pageId
	page.pinCount = 1
	page.isDirty = false
	page.resetMemory()
	return page
}

// UnpinPage drops one pin. With dirty set the frame becomes dirty (sticky
// until written back). Returns false for non-resident pages and for unpins of
// an already unpinned frame.
func (bp *BufferPool) UnpinPage(pageId basic.PageID, dirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frame, ok := bp.pageTable[pageId]
	if !ok {
		return false
	}
	page := bp.pages[frame]
	if page.pinCount <= 0 {
		return false
	}
	if dirty {
		page.isDirty = true
	}
	page.pinCount--
	if page.pinCount == 0 {
		bp.replacer.Unpin(frame)
	}
	return true
}

// DeletePage drops the page from the pool and deallocates it on disk.
// Returns false while the page is pinned; a non-resident page reports true.
func (bp *BufferPool) DeletePage(pageId basic.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frame, ok := bp.pageTable[pageId]
	if !ok {
		return true
	}
	page := bp.pages[frame]
	if page.pinCount > 0 {
		return false
	}
	delete(bp.pageTable, pageId)
	bp.replacer.Pin(frame)
	page.id = basic.InvalidPageID
	page.isDirty = false
	page.resetMemory()
	bp.freeList = append(bp.freeList, frame)
	bp.diskManager.DeAllocatePage(pageId)
	return true
}

// FlushPage writes the page to disk if resident; reports whether the write
// happened.
func (bp *BufferPool) FlushPage(pageId basic.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frame, ok := bp.pageTable[pageId]
	if !ok {
		return false
	}
	page := bp.pages[frame]
	bp.diskManager.WritePage(pageId, page.data)
	page.isDirty = false
	return true
}

// FlushAll writes every resident page back to disk.
func (bp *BufferPool) FlushAll() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageId, frame := range bp.pageTable {
		page := bp.pages[frame]
		bp.diskManager.WritePage(pageId, page.data)
		page.isDirty = false
	}
}

// FetchPageBytes pins the page and hands out its bytes. It is the
// pages.PageSource face of the pool used by B+ tree node moves.
func (bp *BufferPool) FetchPageBytes(pageId basic.PageID) ([]byte, bool) {
	page := bp.FetchPage(pageId)
	if page == nil {
		return nil, false
	}
	return page.GetData(), true
}

// GetHitRatio returns the fraction of fetches served from the pool.
func (bp *BufferPool) GetHitRatio() float64 {
	hits := atomic.LoadUint64(&bp.hitCount)
	misses := atomic.LoadUint64(&bp.missCount)
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// CheckAllUnpinned reports whether every frame has pin count zero. Debug aid
// for pin-discipline tests.
func (bp *BufferPool) CheckAllUnpinned() bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	res := true
	for _, page := range bp.pages {
		if page.pinCount != 0 {
			res = false
			logger.Errorf("page %d pin count: %d", page.id, page.pinCount)
		}
	}
	return res
}
