package buffer_pool

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xminidb/basic"
	"xminidb/storage/disk"
)

const testPageSize = 512

func newTestPool(t *testing.T, poolSize int) *BufferPool {
	t.Helper()
	dm, err := disk.NewDiskManager(filepath.Join(t.TempDir(), "pool.db"), testPageSize, true)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return NewBufferPool(poolSize, dm)
}

func TestBufferPoolNewPageAndFetch(t *testing.T) {
	bp := newTestPool(t, 8)

	page := bp.NewPage()
	require.NotNil(t, page)
	pageId := page.GetPageId()
	assert.Equal(t, int32(1), page.GetPinCount())
	assert.Equal(t, make([]byte, testPageSize), page.GetData())

	copy(page.GetData(), "hello, page")
	assert.True(t, bp.UnpinPage(pageId, true))

	again := bp.FetchPage(pageId)
	require.NotNil(t, again)
	assert.Equal(t, pageId, again.GetPageId())
	assert.True(t, bytes.HasPrefix(again.GetData(), []byte("hello, page")))
	assert.True(t, bp.UnpinPage(pageId, false))
}

func TestBufferPoolLRUEviction(t *testing.T) {
	bp := newTestPool(t, 3)

	pageA := bp.NewPage()
	require.NotNil(t, pageA)
	pageB := bp.NewPage()
	require.NotNil(t, pageB)
	pageC := bp.NewPage()
	require.NotNil(t, pageC)
	idA, idB, idC := pageA.GetPageId(), pageB.GetPageId(), pageC.GetPageId()

	copy(pageB.GetData(), "page B payload")
	require.True(t, bp.UnpinPage(idA, true))
	require.True(t, bp.UnpinPage(idB, true))
	require.True(t, bp.UnpinPage(idC, true))

	// touching A makes B the least recently unpinned
	require.NotNil(t, bp.FetchPage(idA))

	pageD := bp.NewPage()
	require.NotNil(t, pageD)
	idD := pageD.GetPageId()

	// B was evicted: its dirty bytes must be on disk
	buf := make([]byte, testPageSize)
	require.NoError(t, bp.DiskManager().ReadPage(idB, buf))
	assert.True(t, bytes.HasPrefix(buf, []byte("page B payload")))

	// A, C and D are resident; fetching B needs an evictable frame
	bp.UnpinPage(idA, false)
	bp.UnpinPage(idD, false)
	pageB = bp.FetchPage(idB)
	require.NotNil(t, pageB)
	assert.True(t, bytes.HasPrefix(pageB.GetData(), []byte("page B payload")))
	bp.UnpinPage(idB, false)
	bp.UnpinPage(idC, false)
}

func TestBufferPoolExhaustion(t *testing.T) {
	bp := newTestPool(t, 3)

	var ids []basic.PageID
	for i := 0; i < 3; i++ {
		page := bp.NewPage()
		require.NotNil(t, page)
		ids = append(ids, page.GetPageId())
	}

	// every frame pinned: no new page and no fetch of a non-resident page
	assert.Nil(t, bp.NewPage())
	assert.Nil(t, bp.FetchPage(ids[0]+100))

	// a fetch of a resident page still works
	page := bp.FetchPage(ids[1])
	require.NotNil(t, page)
	assert.Equal(t, int32(2), page.GetPinCount())
	bp.UnpinPage(ids[1], false)

	bp.UnpinPage(ids[0], false)
	assert.NotNil(t, bp.NewPage())
}

func TestBufferPoolUnpinContract(t *testing.T) {
	bp := newTestPool(t, 4)

	page := bp.NewPage()
	require.NotNil(t, page)
	pageId := page.GetPageId()

	assert.False(t, bp.UnpinPage(pageId+7, false), "unknown page")
	assert.True(t, bp.UnpinPage(pageId, false))
	assert.False(t, bp.UnpinPage(pageId, false), "double unpin is inert")
}

func TestBufferPoolDirtyStickyAcrossUnpins(t *testing.T) {
	bp := newTestPool(t, 4)

	page := bp.NewPage()
	require.NotNil(t, page)
	pageId := page.GetPageId()
	bp.FetchPage(pageId)

	assert.True(t, bp.UnpinPage(pageId, true))
	// the clean unpin must not wash out the dirty flag
	assert.True(t, bp.UnpinPage(pageId, false))
	assert.True(t, page.IsDirty())
}

func TestBufferPoolCleanEvictionDoesNotWrite(t *testing.T) {
	bp := newTestPool(t, 1)

	page := bp.NewPage()
	require.NotNil(t, page)
	pageId := page.GetPageId()
	copy(page.GetData(), "never persisted")
	require.True(t, bp.UnpinPage(pageId, false))

	// evict the clean page by claiming the only frame
	require.NotNil(t, bp.NewPage())

	buf := make([]byte, testPageSize)
	require.NoError(t, bp.DiskManager().ReadPage(pageId, buf))
	assert.Equal(t, make([]byte, testPageSize), buf)
}

func TestBufferPoolFlushPage(t *testing.T) {
	bp := newTestPool(t, 4)

	page := bp.NewPage()
	require.NotNil(t, page)
	pageId := page.GetPageId()
	copy(page.GetData(), "flushed bytes")

	assert.True(t, bp.FlushPage(pageId))
	assert.False(t, page.IsDirty())

	buf := make([]byte, testPageSize)
	require.NoError(t, bp.DiskManager().ReadPage(pageId, buf))
	assert.True(t, bytes.HasPrefix(buf, []byte("flushed bytes")))

	assert.False(t, bp.FlushPage(pageId+50), "non-resident page")
	bp.UnpinPage(pageId, false)
}

func TestBufferPoolDeletePage(t *testing.T) {
	bp := newTestPool(t, 4)

	page := bp.NewPage()
	require.NotNil(t, page)
	pageId := page.GetPageId()

	assert.False(t, bp.DeletePage(pageId), "pinned page cannot be deleted")
	require.True(t, bp.UnpinPage(pageId, false))
	assert.True(t, bp.DeletePage(pageId))
	assert.True(t, bp.DiskManager().IsPageFree(pageId))

	assert.True(t, bp.DeletePage(pageId+99), "non-resident page reports true")
}

func TestBufferPoolPinConservation(t *testing.T) {
	bp := newTestPool(t, 4)

	var ids []basic.PageID
	for i := 0; i < 4; i++ {
		page := bp.NewPage()
		require.NotNil(t, page)
		ids = append(ids, page.GetPageId())
	}
	assert.False(t, bp.CheckAllUnpinned())

	for _, pageId := range ids {
		bp.UnpinPage(pageId, false)
	}
	assert.True(t, bp.CheckAllUnpinned())

	// the replacer now holds exactly the pin-count-zero residents
	for range ids {
		page := bp.NewPage()
		require.NotNil(t, page, "all four frames must be evictable")
		bp.UnpinPage(page.GetPageId(), false)
	}
}
