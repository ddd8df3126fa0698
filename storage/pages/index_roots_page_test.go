package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xminidb/basic"
)

func TestIndexRootsPageInsertAndGet(t *testing.T) {
	rp := IndexRootsPageFrom(make([]byte, 512))

	assert.True(t, rp.Insert(3, 30))
	assert.True(t, rp.Insert(1, 10))
	assert.True(t, rp.Insert(2, 20))
	assert.Equal(t, uint32(3), rp.Count())

	// duplicate insert rejected
	assert.False(t, rp.Insert(2, 99))

	for id, want := range map[basic.IndexID]basic.PageID{1: 10, 2: 20, 3: 30} {
		root, ok := rp.GetRootId(id)
		assert.True(t, ok)
		assert.Equal(t, want, root)
	}

	_, ok := rp.GetRootId(7)
	assert.False(t, ok)
}

func TestIndexRootsPageUpdateAndDelete(t *testing.T) {
	rp := IndexRootsPageFrom(make([]byte, 512))

	assert.False(t, rp.Update(1, 10))
	assert.True(t, rp.Insert(1, 10))
	assert.True(t, rp.Update(1, 42))
	root, ok := rp.GetRootId(1)
	assert.True(t, ok)
	assert.Equal(t, basic.PageID(42), root)

	assert.True(t, rp.Insert(2, 20))
	assert.True(t, rp.Delete(1))
	assert.False(t, rp.Delete(1))
	_, ok = rp.GetRootId(1)
	assert.False(t, ok)
	root, ok = rp.GetRootId(2)
	assert.True(t, ok)
	assert.Equal(t, basic.PageID(20), root)
	assert.Equal(t, uint32(1), rp.Count())
}

func TestIndexRootsPageFull(t *testing.T) {
	rp := IndexRootsPageFrom(make([]byte, 64))
	max := rp.MaxSize()

	for i := uint32(0); i < max; i++ {
		assert.True(t, rp.Insert(basic.IndexID(i), basic.PageID(i)))
	}
	assert.False(t, rp.Insert(basic.IndexID(max), 0))
}

func TestIndexRootsPageChecksum(t *testing.T) {
	data := make([]byte, 512)
	rp := IndexRootsPageFrom(data)
	assert.True(t, rp.VerifyChecksum())

	rp.Insert(1, 10)
	rp.UpdateChecksum()
	assert.True(t, rp.VerifyChecksum())

	// corrupt one payload byte
	data[len(data)-1] ^= 0xFF
	assert.False(t, rp.VerifyChecksum())
}
