package disk

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xminidb/basic"
)

const testPageSize = 512

func newTestDiskManager(t *testing.T) *DiskManager {
	t.Helper()
	dm, err := NewDiskManager(filepath.Join(t.TempDir(), "test.db"), testPageSize, true)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return dm
}

func TestDiskManagerAllocateSequential(t *testing.T) {
	dm := newTestDiskManager(t)

	for i := 0; i < 64; i++ {
		assert.Equal(t, basic.PageID(i), dm.AllocatePage())
	}
	assert.Equal(t, uint32(64), dm.GetMetaPage().GetAllocatedPages())
	assert.Equal(t, uint32(1), dm.GetMetaPage().GetExtentNums())
}

func TestDiskManagerReadWriteRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)

	pageId := dm.AllocatePage()
	data := bytes.Repeat([]byte{0xAB}, testPageSize)
	require.NoError(t, dm.WritePage(pageId, data))

	buf := make([]byte, testPageSize)
	require.NoError(t, dm.ReadPage(pageId, buf))
	assert.Equal(t, data, buf)
}

func TestDiskManagerReadPastEOFIsZeroFilled(t *testing.T) {
	dm := newTestDiskManager(t)

	pageId := dm.AllocatePage()
	buf := bytes.Repeat([]byte{0xFF}, testPageSize)
	require.NoError(t, dm.ReadPage(pageId, buf))
	assert.Equal(t, make([]byte, testPageSize), buf)
}

func TestDiskManagerRejectsNegativeIds(t *testing.T) {
	dm := newTestDiskManager(t)

	buf := make([]byte, testPageSize)
	assert.Error(t, dm.ReadPage(basic.InvalidPageID, buf))
	assert.Error(t, dm.WritePage(basic.InvalidPageID, buf))
	assert.False(t, dm.IsPageFree(basic.InvalidPageID))
}

func TestDiskManagerAllocationRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)

	allocated := make(map[basic.PageID]bool)
	for i := 0; i < 32; i++ {
		pageId := dm.AllocatePage()
		require.NotEqual(t, basic.InvalidPageID, pageId)
		assert.False(t, allocated[pageId], "allocated ids must be pairwise distinct")
		allocated[pageId] = true
	}
	for pageId := range allocated {
		assert.False(t, dm.IsPageFree(pageId))
	}

	dm.DeAllocatePage(10)
	dm.DeAllocatePage(20)
	assert.True(t, dm.IsPageFree(10))
	assert.True(t, dm.IsPageFree(20))
	assert.Equal(t, uint32(30), dm.GetMetaPage().GetAllocatedPages())

	// the lowest freed id is handed out again first
	assert.Equal(t, basic.PageID(10), dm.AllocatePage())
	assert.Equal(t, basic.PageID(20), dm.AllocatePage())
	assert.Equal(t, basic.PageID(32), dm.AllocatePage())
}

func TestDiskManagerMappingRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)
	capacity := dm.capacity

	for _, logical := range []basic.PageID{0, 1, basic.PageID(capacity - 1), basic.PageID(capacity), basic.PageID(2*capacity + 5)} {
		physical := dm.mapPageId(logical)
		extent := dm.extentOf(physical)
		offset := dm.offsetOf(physical)
		assert.Equal(t, uint32(logical)/capacity, extent)
		assert.Equal(t, uint32(logical)%capacity, offset)
		assert.Equal(t, physical, dm.mapPageId(basic.PageID(extent*capacity+offset)))
	}

	// data pages never land on reserved or bitmap positions
	assert.Equal(t, int64(3), dm.mapPageId(0))
	assert.Equal(t, dm.bitmapPhysicalId(0)+1, dm.mapPageId(0))
	assert.Equal(t, dm.bitmapPhysicalId(1)+1, dm.mapPageId(basic.PageID(capacity)))
}

func TestDiskManagerSecondExtent(t *testing.T) {
	dm, err := NewDiskManager(filepath.Join(t.TempDir(), "ext.db"), 32, true)
	require.NoError(t, err)
	defer dm.Close()
	capacity := dm.capacity
	assert.Equal(t, uint32(192), capacity)

	for i := uint32(0); i < capacity; i++ {
		require.Equal(t, basic.PageID(i), dm.AllocatePage())
	}
	assert.Equal(t, uint32(1), dm.GetMetaPage().GetExtentNums())

	// the next allocation opens extent 1
	assert.Equal(t, basic.PageID(capacity), dm.AllocatePage())
	assert.Equal(t, uint32(2), dm.GetMetaPage().GetExtentNums())
	assert.False(t, dm.IsPageFree(basic.PageID(capacity)))

	dm.DeAllocatePage(basic.PageID(capacity))
	assert.True(t, dm.IsPageFree(basic.PageID(capacity)))
	assert.Equal(t, uint32(0), dm.GetMetaPage().GetExtentUsedPage(1))
}

func TestDiskManagerPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	dm, err := NewDiskManager(path, testPageSize, true)
	require.NoError(t, err)
	var ids []basic.PageID
	for i := 0; i < 8; i++ {
		ids = append(ids, dm.AllocatePage())
	}
	data := bytes.Repeat([]byte{0x5A}, testPageSize)
	require.NoError(t, dm.WritePage(ids[3], data))
	require.NoError(t, dm.Close())

	dm, err = NewDiskManager(path, testPageSize, true)
	require.NoError(t, err)
	defer dm.Close()

	assert.Equal(t, uint32(8), dm.GetMetaPage().GetAllocatedPages())
	for _, pageId := range ids {
		assert.False(t, dm.IsPageFree(pageId))
	}
	assert.Equal(t, basic.PageID(8), dm.AllocatePage())

	buf := make([]byte, testPageSize)
	require.NoError(t, dm.ReadPage(ids[3], buf))
	assert.Equal(t, data, buf)
}

func TestDiskManagerIndexRootsPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roots.db")
	dm, err := NewDiskManager(path, testPageSize, true)
	require.NoError(t, err)

	roots, err := dm.ReadIndexRootsPage()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), roots.Count())
	assert.True(t, roots.Insert(1, 42))
	dm.WriteIndexRootsPage(roots)
	require.NoError(t, dm.Close())

	dm, err = NewDiskManager(path, testPageSize, true)
	require.NoError(t, err)
	defer dm.Close()
	roots, err = dm.ReadIndexRootsPage()
	require.NoError(t, err)
	rootId, ok := roots.GetRootId(1)
	assert.True(t, ok)
	assert.Equal(t, basic.PageID(42), rootId)
}
