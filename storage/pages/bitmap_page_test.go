package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapPageFillsAndClears(t *testing.T) {
	const pageSize = 32
	bp := BitmapPageFrom(make([]byte, pageSize))
	assert.Equal(t, uint32(192), bp.MaxSupportedSize())

	for i := uint32(0); i < 192; i++ {
		offset, ok := bp.AllocatePage()
		assert.True(t, ok)
		assert.Equal(t, i, offset)
	}
	assert.Equal(t, uint32(192), bp.PageAllocated())

	_, ok := bp.AllocatePage()
	assert.False(t, ok)

	assert.True(t, bp.DeAllocatePage(100))
	assert.True(t, bp.IsPageFree(100))
	assert.Equal(t, uint32(191), bp.PageAllocated())

	offset, ok := bp.AllocatePage()
	assert.True(t, ok)
	assert.Equal(t, uint32(100), offset)
}

func TestBitmapPageDeallocateFreeBit(t *testing.T) {
	bp := BitmapPageFrom(make([]byte, 64))

	assert.False(t, bp.DeAllocatePage(3))

	offset, ok := bp.AllocatePage()
	assert.True(t, ok)
	assert.True(t, bp.DeAllocatePage(offset))
	assert.False(t, bp.DeAllocatePage(offset))
}

func TestBitmapPageOutOfRange(t *testing.T) {
	bp := BitmapPageFrom(make([]byte, 32))

	assert.False(t, bp.IsPageFree(bp.MaxSupportedSize()))
	assert.False(t, bp.IsPageFree(bp.MaxSupportedSize()+17))
}

func TestBitmapPageLowestFirst(t *testing.T) {
	bp := BitmapPageFrom(make([]byte, 32))

	for i := 0; i < 10; i++ {
		bp.AllocatePage()
	}
	assert.True(t, bp.DeAllocatePage(2))
	assert.True(t, bp.DeAllocatePage(7))

	offset, ok := bp.AllocatePage()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), offset)
	offset, ok = bp.AllocatePage()
	assert.True(t, ok)
	assert.Equal(t, uint32(7), offset)
}
