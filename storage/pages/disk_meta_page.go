package pages

import (
	"xminidb/util"
)

// Disk meta page layout (physical page 0): an xxhash checksum over the
// payload, the total allocated page count, the number of extents, then one
// 32-bit used-page counter per extent.
const (
	metaChecksumOffset    = 0
	metaAllocatedOffset   = 8
	metaNumExtentsOffset  = 12
	metaExtentArrayOffset = 16
)

// DiskMetaPage is the in-memory shadow of physical page 0.
type DiskMetaPage struct {
	data []byte
}

func DiskMetaPageFrom(data []byte) *DiskMetaPage {
	return &DiskMetaPage{data: data}
}

// Data returns the backing page bytes.
func (mp *DiskMetaPage) Data() []byte {
	return mp.data
}

// MaxExtents returns how many extent counters fit on the meta page.
func (mp *DiskMetaPage) MaxExtents() uint32 {
	return uint32((len(mp.data) - metaExtentArrayOffset) / 4)
}

// GetAllocatedPages returns the total number of allocated data pages.
func (mp *DiskMetaPage) GetAllocatedPages() uint32 {
	return util.ReadUB4Byte2UInt32(mp.data[metaAllocatedOffset:])
}

func (mp *DiskMetaPage) SetAllocatedPages(n uint32) {
	util.WriteUB4At(mp.data, metaAllocatedOffset, n)
}

// GetExtentNums returns the number of extents in use.
func (mp *DiskMetaPage) GetExtentNums() uint32 {
	return util.ReadUB4Byte2UInt32(mp.data[metaNumExtentsOffset:])
}

func (mp *DiskMetaPage) SetExtentNums(n uint32) {
	util.WriteUB4At(mp.data, metaNumExtentsOffset, n)
}

// GetExtentUsedPage returns the used-page counter of one extent. Extents
// beyond the current extent count report 0.
func (mp *DiskMetaPage) GetExtentUsedPage(extentId uint32) uint32 {
	if extentId >= mp.GetExtentNums() {
		return 0
	}
	return util.ReadUB4Byte2UInt32(mp.data[metaExtentArrayOffset+4*extentId:])
}

func (mp *DiskMetaPage) SetExtentUsedPage(extentId uint32, used uint32) {
	util.WriteUB4At(mp.data, metaExtentArrayOffset+int(4*extentId), used)
}

// UpdateChecksum recomputes the payload checksum. Called before the meta page
// is written back.
func (mp *DiskMetaPage) UpdateChecksum() {
	util.WriteUB8At(mp.data, metaChecksumOffset, util.HashCode(mp.data[metaAllocatedOffset:]))
}

// VerifyChecksum reports whether the stored checksum matches the payload. A
// page of all zeroes (fresh file) verifies as valid.
func (mp *DiskMetaPage) VerifyChecksum() bool {
	stored := util.ReadUB8Byte2UInt64(mp.data[metaChecksumOffset:])
	if stored == 0 && mp.GetAllocatedPages() == 0 && mp.GetExtentNums() == 0 {
		return true
	}
	return stored == util.HashCode(mp.data[metaAllocatedOffset:])
}
