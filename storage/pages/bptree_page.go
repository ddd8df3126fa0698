package pages

import (
	"xminidb/basic"
	"xminidb/util"
)

// B+ tree node pages share a 20-byte header:
//
//	0   page type (1 internal, 2 leaf)
//	4   current size (entry count)
//	8   max size
//	12  parent page id
//	16  this page id
//
// Leaf pages add a next-leaf pointer at 20; internal entries start at 20,
// leaf entries at 24. Entries are fixed width: a keySize-byte key followed by
// the value (child page id for internal nodes, RowId for leaves).
const (
	bptPageTypeOffset = 0
	bptSizeOffset     = 4
	bptMaxSizeOffset  = 8
	bptParentOffset   = 12
	bptPageIdOffset   = 16
	bptHeaderSize     = 20
)

// B+ tree page type tags.
const (
	BPTreeInternalPageType uint32 = 1
	BPTreeLeafPageType     uint32 = 2
)

// KeyComparator orders two fixed-width serialised keys. The strategy is
// chosen at tree construction time.
type KeyComparator func(a, b []byte) int

// PageSource is the slice of the buffer pool the node helpers need when bulk
// moves rewrite the moved children's parent pointers.
type PageSource interface {
	// FetchPageBytes pins the page and returns its bytes.
	FetchPageBytes(pageId basic.PageID) ([]byte, bool)
	// UnpinPage drops one pin, marking the page dirty if requested.
	UnpinPage(pageId basic.PageID, dirty bool) bool
}

// BPTreePage is the header view shared by internal and leaf nodes.
type BPTreePage struct {
	data []byte
}

func BPTreePageFrom(data []byte) *BPTreePage {
	return &BPTreePage{data: data}
}

func (p *BPTreePage) Data() []byte {
	return p.data
}

func (p *BPTreePage) GetPageType() uint32 {
	return util.ReadUB4Byte2UInt32(p.data[bptPageTypeOffset:])
}

func (p *BPTreePage) setPageType(t uint32) {
	util.WriteUB4At(p.data, bptPageTypeOffset, t)
}

func (p *BPTreePage) IsLeafPage() bool {
	return p.GetPageType() == BPTreeLeafPageType
}

func (p *BPTreePage) GetSize() uint32 {
	return util.ReadUB4Byte2UInt32(p.data[bptSizeOffset:])
}

func (p *BPTreePage) SetSize(n uint32) {
	util.WriteUB4At(p.data, bptSizeOffset, n)
}

func (p *BPTreePage) IncreaseSize(delta int32) {
	p.SetSize(uint32(int32(p.GetSize()) + delta))
}

func (p *BPTreePage) GetMaxSize() uint32 {
	return util.ReadUB4Byte2UInt32(p.data[bptMaxSizeOffset:])
}

func (p *BPTreePage) setMaxSize(n uint32) {
	util.WriteUB4At(p.data, bptMaxSizeOffset, n)
}

func (p *BPTreePage) GetParentPageId() basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(p.data[bptParentOffset:]))
}

func (p *BPTreePage) SetParentPageId(parentId basic.PageID) {
	util.WriteB4At(p.data, bptParentOffset, int32(parentId))
}

func (p *BPTreePage) GetPageId() basic.PageID {
	return basic.PageID(util.ReadB4Byte2Int32(p.data[bptPageIdOffset:]))
}

func (p *BPTreePage) setPageId(pageId basic.PageID) {
	util.WriteB4At(p.data, bptPageIdOffset, int32(pageId))
}

func (p *BPTreePage) IsRootPage() bool {
	return p.GetParentPageId() == basic.InvalidPageID
}
