package disk

import (
	"sync"

	"github.com/juju/errors"

	"xminidb/basic"
	"xminidb/logger"
	"xminidb/storage/pages"
)

// Physical layout: page 0 is the disk meta page, page 1 the index roots page,
// and extents follow from page 2. Each extent is one bitmap page and up to
// BitmapCapacity data pages:
//
//	bitmap of extent E:      2 + E*(CAP+1)
//	data page n of extent E: 3 + E*(CAP+1) + n
//
// Logical ids are dense inside extents: logical L -> extent L/CAP, offset
// L%CAP. mapPageId and its inverses round-trip this mapping exactly.
const (
	diskMetaPhysicalId   = 0
	indexRootsPhysicalId = 1
	firstExtentPhysical  = 2
)

// DiskManager allocates and frees logical page ids, translates them to
// physical positions and performs the page I/O.
type DiskManager struct {
	mu       sync.Mutex
	file     *BlockFile
	pageSize int
	checksum bool
	capacity uint32
	meta     *pages.DiskMetaPage
}

// NewDiskManager opens (creating if absent) the database file and loads the
// meta page shadow. A meta page that fails its checksum is logged and treated
// as a fresh database.
func NewDiskManager(filePath string, pageSize int, checksum bool) (*DiskManager, error) {
	file := NewBlockFile(filePath, pageSize)
	if err := file.Open(); err != nil {
		return nil, errors.Trace(err)
	}

	dm := &DiskManager{
		file:     file,
		pageSize: pageSize,
		checksum: checksum,
		capacity: pages.BitmapCapacity(pageSize),
	}

	metaBuf := make([]byte, pageSize)
	if err := file.ReadPage(diskMetaPhysicalId, metaBuf); err != nil {
		file.Close()
		return nil, errors.Trace(err)
	}
	dm.meta = pages.DiskMetaPageFrom(metaBuf)
	if checksum && !dm.meta.VerifyChecksum() {
		logger.Errorf("disk meta page checksum mismatch in %s, starting with an empty meta page", filePath)
		for i := range metaBuf {
			metaBuf[i] = 0
		}
	}
	return dm, nil
}

// Close flushes the meta page and closes the file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.writeMetaLocked()
	if err := dm.file.Sync(); err != nil {
		logger.Errorf("sync database file: %v", err)
	}
	return dm.file.Close()
}

// PageSize returns the page size the file was opened with.
func (dm *DiskManager) PageSize() int {
	return dm.pageSize
}

// GetFileSize returns the database file size in bytes.
func (dm *DiskManager) GetFileSize() int64 {
	return dm.file.Size()
}

// GetMetaPage returns the in-memory meta page shadow.
func (dm *DiskManager) GetMetaPage() *pages.DiskMetaPage {
	return dm.meta
}

// mapPageId translates a logical page id to its physical position.
func (dm *DiskManager) mapPageId(logical basic.PageID) int64 {
	extent := int64(uint32(logical) / dm.capacity)
	offset := int64(uint32(logical) % dm.capacity)
	return int64(firstExtentPhysical) + extent*int64(dm.capacity+1) + 1 + offset
}

// bitmapPhysicalId returns the physical position of an extent's bitmap page.
func (dm *DiskManager) bitmapPhysicalId(extent uint32) int64 {
	return int64(firstExtentPhysical) + int64(extent)*int64(dm.capacity+1)
}

// extentOf and offsetOf invert mapPageId for data pages.
func (dm *DiskManager) extentOf(physical int64) uint32 {
	return uint32((physical - firstExtentPhysical) / int64(dm.capacity+1))
}

func (dm *DiskManager) offsetOf(physical int64) uint32 {
	return uint32((physical-firstExtentPhysical)%int64(dm.capacity+1)) - 1
}

// ReadPage reads a logical page into buf. Negative ids are rejected.
func (dm *DiskManager) ReadPage(logical basic.PageID, buf []byte) error {
	if logical < 0 {
		return errors.Errorf("read of invalid page id %d", logical)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.ReadPage(dm.mapPageId(logical), buf)
}

// WritePage writes a logical page. Negative ids are rejected; I/O errors are
// logged and the call returns normally — the engine offers no durability
// guarantee beyond the buffer pool's flush path.
func (dm *DiskManager) WritePage(logical basic.PageID, data []byte) error {
	if logical < 0 {
		return errors.Errorf("write of invalid page id %d", logical)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.file.WritePage(dm.mapPageId(logical), data); err != nil {
		logger.Errorf("I/O error while writing page %d: %v", logical, err)
	}
	return nil
}

// AllocatePage hands out the lowest free logical page id, extending the file
// with a new extent when every existing one is full. Returns InvalidPageID
// when the meta page cannot track another extent.
func (dm *DiskManager) AllocatePage() basic.PageID {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	numExtents := dm.meta.GetExtentNums()
	bitmapBuf := make([]byte, dm.pageSize)
	for extent := uint32(0); extent <= numExtents; extent++ {
		if extent >= dm.meta.MaxExtents() {
			break
		}
		if extent < numExtents && dm.meta.GetExtentUsedPage(extent) == dm.capacity {
			continue
		}
		if err := dm.file.ReadPage(dm.bitmapPhysicalId(extent), bitmapBuf); err != nil {
			logger.Errorf("read bitmap page of extent %d: %v", extent, err)
			return basic.InvalidPageID
		}
		bitmap := pages.BitmapPageFrom(bitmapBuf)
		offset, ok := bitmap.AllocatePage()
		if !ok {
			continue
		}
		if err := dm.file.WritePage(dm.bitmapPhysicalId(extent), bitmapBuf); err != nil {
			logger.Errorf("write bitmap page of extent %d: %v", extent, err)
		}
		if extent >= numExtents {
			dm.meta.SetExtentNums(extent + 1)
		}
		dm.meta.SetExtentUsedPage(extent, dm.meta.GetExtentUsedPage(extent)+1)
		dm.meta.SetAllocatedPages(dm.meta.GetAllocatedPages() + 1)
		dm.writeMetaLocked()
		return basic.PageID(offset + dm.capacity*extent)
	}
	return basic.InvalidPageID
}

// DeAllocatePage clears the allocation bit of a logical page. Callers must
// only deallocate allocated ids.
func (dm *DiskManager) DeAllocatePage(logical basic.PageID) {
	if logical < 0 {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	physical := dm.mapPageId(logical)
	extent := dm.extentOf(physical)
	offset := dm.offsetOf(physical)

	bitmapBuf := make([]byte, dm.pageSize)
	if err := dm.file.ReadPage(dm.bitmapPhysicalId(extent), bitmapBuf); err != nil {
		logger.Errorf("read bitmap page of extent %d: %v", extent, err)
		return
	}
	bitmap := pages.BitmapPageFrom(bitmapBuf)
	if !bitmap.DeAllocatePage(offset) {
		logger.Warnf("deallocate of free page %d", logical)
		return
	}
	if err := dm.file.WritePage(dm.bitmapPhysicalId(extent), bitmapBuf); err != nil {
		logger.Errorf("write bitmap page of extent %d: %v", extent, err)
	}
	dm.meta.SetExtentUsedPage(extent, dm.meta.GetExtentUsedPage(extent)-1)
	dm.meta.SetAllocatedPages(dm.meta.GetAllocatedPages() - 1)
	dm.writeMetaLocked()
}

// IsPageFree inspects the allocation bit of a logical page.
func (dm *DiskManager) IsPageFree(logical basic.PageID) bool {
	if logical < 0 {
		return false
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	physical := dm.mapPageId(logical)
	extent := dm.extentOf(physical)
	offset := dm.offsetOf(physical)

	bitmapBuf := make([]byte, dm.pageSize)
	if err := dm.file.ReadPage(dm.bitmapPhysicalId(extent), bitmapBuf); err != nil {
		logger.Errorf("read bitmap page of extent %d: %v", extent, err)
		return false
	}
	return pages.BitmapPageFrom(bitmapBuf).IsPageFree(offset)
}

// ReadIndexRootsPage loads physical page 1. A checksum mismatch is logged and
// yields an empty roots page.
func (dm *DiskManager) ReadIndexRootsPage() (*pages.IndexRootsPage, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := make([]byte, dm.pageSize)
	if err := dm.file.ReadPage(indexRootsPhysicalId, buf); err != nil {
		return nil, errors.Trace(err)
	}
	roots := pages.IndexRootsPageFrom(buf)
	if dm.checksum && !roots.VerifyChecksum() {
		logger.Errorf("index roots page checksum mismatch, starting with an empty roots page")
		for i := range buf {
			buf[i] = 0
		}
	}
	return roots, nil
}

// WriteIndexRootsPage stores physical page 1.
func (dm *DiskManager) WriteIndexRootsPage(roots *pages.IndexRootsPage) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.checksum {
		roots.UpdateChecksum()
	}
	if err := dm.file.WritePage(indexRootsPhysicalId, roots.Data()); err != nil {
		logger.Errorf("I/O error while writing index roots page: %v", err)
	}
}

func (dm *DiskManager) writeMetaLocked() {
	if dm.checksum {
		dm.meta.UpdateChecksum()
	}
	if err := dm.file.WritePage(diskMetaPhysicalId, dm.meta.Data()); err != nil {
		logger.Errorf("I/O error while writing disk meta page: %v", err)
	}
}
