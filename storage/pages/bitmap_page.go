// Package pages implements the byte-backed on-disk page structures: the
// allocation bitmap, the disk meta page, the index roots page, the slotted
// table page and the B+ tree node pages. Every structure is a view over one
// page-sized byte slice; layout constants derive from the slice length so the
// same code serves 512 B test pages and 4 KB production pages.
package pages

import (
	"xminidb/util"
)

// Bitmap page layout: 8 bytes of header (pages allocated in the extent and a
// next-free hint), then the bit array. Bit order is MSB-first: bit 0 of byte 0
// is the first data page of the extent.
const (
	bitmapPageAllocatedOffset = 0
	bitmapNextFreeHintOffset  = 4
	bitmapHeaderSize          = 8
)

// BitmapCapacity is the number of data pages one bitmap page tracks, i.e. the
// capacity of an extent.
func BitmapCapacity(pageSize int) uint32 {
	return uint32(8 * (pageSize - bitmapHeaderSize))
}

// BitmapPage is a view over one page worth of allocation bits.
type BitmapPage struct {
	data []byte
}

func BitmapPageFrom(data []byte) *BitmapPage {
	return &BitmapPage{data: data}
}

// MaxSupportedSize returns the number of pages this bitmap can record.
func (bp *BitmapPage) MaxSupportedSize() uint32 {
	return BitmapCapacity(len(bp.data))
}

// PageAllocated returns the number of allocated pages in the extent.
func (bp *BitmapPage) PageAllocated() uint32 {
	return util.ReadUB4Byte2UInt32(bp.data[bitmapPageAllocatedOffset:])
}

func (bp *BitmapPage) setPageAllocated(n uint32) {
	util.WriteUB4At(bp.data, bitmapPageAllocatedOffset, n)
}

// NextFreeHint returns the recorded hint of the next free offset. The hint is
// advisory: AllocatePage always returns the lowest free offset.
func (bp *BitmapPage) NextFreeHint() uint32 {
	return util.ReadUB4Byte2UInt32(bp.data[bitmapNextFreeHintOffset:])
}

func (bp *BitmapPage) setNextFreeHint(n uint32) {
	util.WriteUB4At(bp.data, bitmapNextFreeHintOffset, n)
}

// AllocatePage sets the lowest free bit and returns its offset. Returns false
// when every page of the extent is in use.
func (bp *BitmapPage) AllocatePage() (uint32, bool) {
	bits := bp.data[bitmapHeaderSize:]
	for byteIndex := 0; byteIndex < len(bits); byteIndex++ {
		if bits[byteIndex] == 0xFF {
			continue
		}
		for bitIndex := uint32(0); bitIndex < 8; bitIndex++ {
			if !util.IsByteBitSet(bits[byteIndex], bitIndex) {
				bits[byteIndex] = util.SetByteBit(bits[byteIndex], bitIndex)
				offset := uint32(byteIndex)*8 + bitIndex
				bp.setPageAllocated(bp.PageAllocated() + 1)
				bp.setNextFreeHint(offset + 1)
				return offset, true
			}
		}
	}
	return 0, false
}

// DeAllocatePage clears the bit at offset. Returns true only if the bit was
// set.
func (bp *BitmapPage) DeAllocatePage(offset uint32) bool {
	if bp.IsPageFree(offset) {
		return false
	}
	byteIndex := offset / 8
	bitIndex := offset % 8
	bits := bp.data[bitmapHeaderSize:]
	bits[byteIndex] = util.UnsetByteBit(bits[byteIndex], bitIndex)
	bp.setPageAllocated(bp.PageAllocated() - 1)
	if offset < bp.NextFreeHint() {
		bp.setNextFreeHint(offset)
	}
	return true
}

// IsPageFree reports whether the bit at offset is clear. Offsets beyond the
// bitmap's capacity report false.
func (bp *BitmapPage) IsPageFree(offset uint32) bool {
	if offset >= bp.MaxSupportedSize() {
		return false
	}
	byteIndex := offset / 8
	bitIndex := offset % 8
	return !util.IsByteBitSet(bp.data[bitmapHeaderSize+byteIndex], bitIndex)
}
