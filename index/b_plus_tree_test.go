package index

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xminidb/basic"
	"xminidb/buffer_pool"
	"xminidb/storage/disk"
	"xminidb/storage/pages"
)

const (
	testPageSize = 256
	testKeySize  = KeySize8
)

func newTestTree(t *testing.T, leafMax, internalMax uint32) (*BPlusTree, *buffer_pool.BufferPool) {
	t.Helper()
	dm, err := disk.NewDiskManager(filepath.Join(t.TempDir(), "index.db"), testPageSize, true)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	bp := buffer_pool.NewBufferPool(64, dm)
	tree := NewBPlusTree(1, bp, GenericComparator(), testKeySize, leafMax, internalMax)
	return tree, bp
}

func insertInt(t *testing.T, tree *BPlusTree, v int64) {
	t.Helper()
	require.True(t, tree.Insert(Int64Key(v, testKeySize), basic.NewRowId(basic.PageID(v), uint32(v))))
}

func decodeInt64(key GenericKey) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(key[i])
	}
	return int64(u ^ (1 << 63))
}

// scanAll walks Begin..End and returns the decoded keys.
func scanAll(tree *BPlusTree) []int64 {
	var keys []int64
	it := tree.Begin()
	for ; !it.IsEnd(); it.Next() {
		keys = append(keys, decodeInt64(it.Key()))
	}
	it.Close()
	return keys
}

func TestBPlusTreeEmpty(t *testing.T) {
	tree, _ := newTestTree(t, 3, 3)

	assert.True(t, tree.IsEmpty())
	_, ok := tree.GetValue(Int64Key(1, testKeySize))
	assert.False(t, ok)
	tree.Remove(Int64Key(1, testKeySize))
	assert.Nil(t, scanAll(tree))
}

func TestBPlusTreeInsertAndGet(t *testing.T) {
	tree, bp := newTestTree(t, 3, 3)

	insertInt(t, tree, 10)
	assert.False(t, tree.IsEmpty())

	value, ok := tree.GetValue(Int64Key(10, testKeySize))
	require.True(t, ok)
	assert.Equal(t, basic.NewRowId(10, 10), value)

	// duplicate keys are rejected
	assert.False(t, tree.Insert(Int64Key(10, testKeySize), basic.NewRowId(99, 99)))
	value, _ = tree.GetValue(Int64Key(10, testKeySize))
	assert.Equal(t, basic.NewRowId(10, 10), value)

	assert.True(t, bp.CheckAllUnpinned())
}

func TestBPlusTreeLeafSplit(t *testing.T) {
	tree, bp := newTestTree(t, 3, 3)

	for _, v := range []int64{10, 20, 30, 40} {
		insertInt(t, tree, v)
	}

	// the root is now internal with exactly two non-empty leaves
	rootPage := bp.FetchPage(tree.GetRootPageId())
	require.NotNil(t, rootPage)
	root := pages.InternalPageFrom(rootPage.GetData(), testKeySize)
	assert.False(t, root.IsLeafPage())
	assert.Equal(t, uint32(2), root.GetSize())

	for i := uint32(0); i < 2; i++ {
		childPage := bp.FetchPage(root.ValueAt(i))
		require.NotNil(t, childPage)
		child := pages.LeafPageFrom(childPage.GetData(), testKeySize)
		assert.True(t, child.IsLeafPage())
		assert.Greater(t, child.GetSize(), uint32(0))
		assert.Equal(t, rootPage.GetPageId(), child.GetParentPageId())
		bp.UnpinPage(childPage.GetPageId(), false)
	}
	bp.UnpinPage(rootPage.GetPageId(), false)

	assert.Equal(t, []int64{10, 20, 30, 40}, scanAll(tree))
	assert.True(t, bp.CheckAllUnpinned())
}

func TestBPlusTreeMergeCollapsesRoot(t *testing.T) {
	tree, bp := newTestTree(t, 3, 3)

	for _, v := range []int64{10, 20, 30, 40} {
		insertInt(t, tree, v)
	}
	tree.Remove(Int64Key(30, testKeySize))
	tree.Remove(Int64Key(40, testKeySize))

	// the right leaf coalesced into the left and the root collapsed
	rootPage := bp.FetchPage(tree.GetRootPageId())
	require.NotNil(t, rootPage)
	root := pages.LeafPageFrom(rootPage.GetData(), testKeySize)
	assert.True(t, root.IsLeafPage())
	assert.Equal(t, uint32(2), root.GetSize())
	assert.True(t, root.IsRootPage())
	bp.UnpinPage(rootPage.GetPageId(), false)

	assert.Equal(t, []int64{10, 20}, scanAll(tree))
	_, ok := tree.GetValue(Int64Key(30, testKeySize))
	assert.False(t, ok)
	assert.True(t, bp.CheckAllUnpinned())
}

func TestBPlusTreeRemoveToEmpty(t *testing.T) {
	tree, bp := newTestTree(t, 3, 3)

	for v := int64(1); v <= 8; v++ {
		insertInt(t, tree, v)
	}
	for v := int64(1); v <= 8; v++ {
		tree.Remove(Int64Key(v, testKeySize))
	}

	assert.True(t, tree.IsEmpty())
	assert.Equal(t, basic.InvalidPageID, tree.GetRootPageId())
	assert.Nil(t, scanAll(tree))
	assert.True(t, bp.CheckAllUnpinned())
}

func TestBPlusTreeRangeScan(t *testing.T) {
	tree, bp := newTestTree(t, 0, 0)

	for v := int64(1); v <= 100; v++ {
		insertInt(t, tree, v)
	}

	it := tree.BeginFrom(Int64Key(50, testKeySize))
	assert.Equal(t, int64(50), decodeInt64(it.Key()))
	for i := 0; i < 10; i++ {
		require.True(t, it.Next())
	}
	assert.Equal(t, int64(60), decodeInt64(it.Key()))
	it.Close()

	// an iterator at the last key advances onto End
	last := tree.BeginFrom(Int64Key(100, testKeySize))
	assert.Equal(t, int64(100), decodeInt64(last.Key()))
	assert.False(t, last.Next())
	end := tree.End()
	assert.True(t, last.Equal(end))
	last.Close()
	end.Close()

	// BeginFrom an absent key lands on its successor
	tree.Remove(Int64Key(75, testKeySize))
	it = tree.BeginFrom(Int64Key(75, testKeySize))
	assert.Equal(t, int64(76), decodeInt64(it.Key()))
	it.Close()

	assert.True(t, bp.CheckAllUnpinned())
}

func TestBPlusTreeOrderedFullScan(t *testing.T) {
	tree, bp := newTestTree(t, 0, 0)

	// a coprime stride visits 1..200 in scrambled order
	const n = 200
	for i := int64(0); i < n; i++ {
		insertInt(t, tree, (i*97+13)%n+1)
	}

	keys := scanAll(tree)
	require.Len(t, keys, n)
	for i, key := range keys {
		assert.Equal(t, int64(i+1), key)
	}
	assert.True(t, bp.CheckAllUnpinned())
}

// checkSubtree asserts parent pointers and key bounds and returns every key
// of the subtree in order.
func checkSubtree(t *testing.T, tree *BPlusTree, bp *buffer_pool.BufferPool, pageId, expectedParent basic.PageID) []int64 {
	page := bp.FetchPage(pageId)
	require.NotNil(t, page)
	defer bp.UnpinPage(pageId, false)

	node := pages.BPTreePageFrom(page.GetData())
	assert.Equal(t, expectedParent, node.GetParentPageId(), "parent pointer of page %d", pageId)

	if node.IsLeafPage() {
		leaf := pages.LeafPageFrom(page.GetData(), testKeySize)
		var keys []int64
		for i := uint32(0); i < leaf.GetSize(); i++ {
			keys = append(keys, decodeInt64(GenericKey(leaf.KeyAt(i))))
		}
		assert.True(t, sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i] < keys[j] }))
		return keys
	}

	internal := pages.InternalPageFrom(page.GetData(), testKeySize)
	var keys []int64
	for i := uint32(0); i < internal.GetSize(); i++ {
		childKeys := checkSubtree(t, tree, bp, internal.ValueAt(i), pageId)
		require.NotEmpty(t, childKeys)
		if i > 0 {
			sep := decodeInt64(GenericKey(internal.KeyAt(i)))
			assert.LessOrEqual(t, sep, childKeys[0], "separator %d of page %d", i, pageId)
			assert.Less(t, keys[len(keys)-1], childKeys[0])
		}
		keys = append(keys, childKeys...)
	}
	return keys
}

func TestBPlusTreeMixedWorkloadStructure(t *testing.T) {
	tree, bp := newTestTree(t, 4, 4)

	const n = 200
	inserted := make(map[int64]bool)
	for i := int64(0); i < n; i++ {
		v := (i*97+13)%n + 1
		insertInt(t, tree, v)
		inserted[v] = true
	}

	// remove every other key, in the same scrambled order
	for i := int64(0); i < n; i++ {
		v := (i*97+13)%n + 1
		if v%2 == 1 {
			tree.Remove(Int64Key(v, testKeySize))
			delete(inserted, v)
		}
	}

	var want []int64
	for v := range inserted {
		want = append(want, v)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, scanAll(tree))

	for v := int64(1); v <= n; v++ {
		value, ok := tree.GetValue(Int64Key(v, testKeySize))
		if inserted[v] {
			require.True(t, ok, "key %d must be present", v)
			assert.Equal(t, basic.NewRowId(basic.PageID(v), uint32(v)), value)
		} else {
			assert.False(t, ok, "key %d must be absent", v)
		}
	}

	allKeys := checkSubtree(t, tree, bp, tree.GetRootPageId(), basic.InvalidPageID)
	assert.Equal(t, want, allKeys)
	assert.True(t, bp.CheckAllUnpinned())
}

func TestBPlusTreeRootRecoveredFromIndexRoots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recover.db")
	dm, err := disk.NewDiskManager(path, testPageSize, true)
	require.NoError(t, err)
	bp := buffer_pool.NewBufferPool(64, dm)

	tree := NewBPlusTree(5, bp, GenericComparator(), testKeySize, 3, 3)
	for v := int64(1); v <= 20; v++ {
		insertInt(t, tree, v)
	}
	bp.FlushAll()
	require.NoError(t, dm.Close())

	dm, err = disk.NewDiskManager(path, testPageSize, true)
	require.NoError(t, err)
	defer dm.Close()
	bp = buffer_pool.NewBufferPool(64, dm)

	reopened := NewBPlusTree(5, bp, GenericComparator(), testKeySize, 3, 3)
	assert.False(t, reopened.IsEmpty())
	assert.Equal(t, tree.GetRootPageId(), reopened.GetRootPageId())
	for v := int64(1); v <= 20; v++ {
		value, ok := reopened.GetValue(Int64Key(v, testKeySize))
		require.True(t, ok)
		assert.Equal(t, basic.NewRowId(basic.PageID(v), uint32(v)), value)
	}
}

func TestBPlusTreeDestroy(t *testing.T) {
	tree, bp := newTestTree(t, 3, 3)

	for v := int64(1); v <= 30; v++ {
		insertInt(t, tree, v)
	}
	rootId := tree.GetRootPageId()

	tree.Destroy()
	assert.True(t, tree.IsEmpty())
	assert.True(t, bp.DiskManager().IsPageFree(rootId))
	assert.True(t, bp.CheckAllUnpinned())

	// the tree can be rebuilt after a destroy
	insertInt(t, tree, 7)
	value, ok := tree.GetValue(Int64Key(7, testKeySize))
	require.True(t, ok)
	assert.Equal(t, basic.NewRowId(7, 7), value)
}
