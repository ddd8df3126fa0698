package basic

import "fmt"

// PageID is the logical id of a page as seen by everything above the disk
// manager. Value 0 is a regular data page; the disk meta page and the index
// roots page live at fixed physical positions and have no logical id.
type PageID int32

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID int32

// IndexID identifies one B+ tree inside the shared index roots page.
type IndexID uint32

const (
	// InvalidPageID 无效页号
	InvalidPageID PageID = -1
	// InvalidFrameID 无效帧号
	InvalidFrameID FrameID = -1
)

// Metadata magics recognised by the catalog layer when it validates stored
// metadata blocks. The storage core only defines them.
const (
	CatalogMetadataMagic uint32 = 0x89ABCDEF
	TableMetadataMagic   uint32 = 0x344C5845
	IndexMetadataMagic   uint32 = 0x11223344
)

// RowId names one tuple: the page that stores it and the slot inside the page.
type RowId struct {
	PageId  PageID
	SlotNum uint32
}

// InvalidRowId is the RowId used by heap End() iterators.
var InvalidRowId = RowId{PageId: InvalidPageID, SlotNum: 0}

func NewRowId(pageId PageID, slotNum uint32) RowId {
	return RowId{PageId: pageId, SlotNum: slotNum}
}

func (r RowId) GetPageId() PageID {
	return r.PageId
}

func (r RowId) GetSlotNum() uint32 {
	return r.SlotNum
}

func (r RowId) IsValid() bool {
	return r.PageId != InvalidPageID
}

func (r RowId) String() string {
	return fmt.Sprintf("RowId{page=%d, slot=%d}", r.PageId, r.SlotNum)
}
