package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xminidb/basic"
	"xminidb/conf"
	"xminidb/index"
	"xminidb/record"
	"xminidb/table"
)

func testCfg(t *testing.T) *conf.Cfg {
	t.Helper()
	cfg := conf.NewCfg()
	cfg.DataDir = t.TempDir()
	cfg.PageSize = 512
	cfg.BufferPoolSize = 64
	return cfg
}

func TestEngineOpenClose(t *testing.T) {
	cfg := testCfg(t)

	se, err := Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, 512, se.DiskManager().PageSize())
	assert.Equal(t, 64, se.BufferPool().PoolSize())
	require.NoError(t, se.Close())
}

func TestEngineHeapAndIndexSurviveReopen(t *testing.T) {
	cfg := testCfg(t)

	se, err := Open(cfg)
	require.NoError(t, err)

	schema := record.NewSchema([]*record.Column{
		record.NewColumn("id", record.TypeInt, 0, false, true),
		record.NewCharColumn("name", 8, 1, false, false),
	})
	heap := table.NewTableHeap(se.BufferPool(), schema, se.LockManager(), se.LogManager())
	require.NotNil(t, heap)
	firstPageId := heap.GetFirstPageId()

	tree := index.NewBPlusTree(1, se.BufferPool(), index.GenericComparator(), index.KeySize8, 0, 0)

	var rids []basic.RowId
	for i := int32(1); i <= 50; i++ {
		row := record.NewRow(record.NewIntField(i), record.NewCharField("r"))
		require.True(t, heap.InsertTuple(row, nil))
		rids = append(rids, row.GetRowId())
		require.True(t, tree.Insert(index.Int64Key(int64(i), index.KeySize8), row.GetRowId()))
	}
	require.NoError(t, se.Close())

	se, err = Open(cfg)
	require.NoError(t, err)
	defer se.Close()

	heap = table.OpenTableHeap(se.BufferPool(), firstPageId, schema, se.LockManager(), se.LogManager())
	tree = index.NewBPlusTree(1, se.BufferPool(), index.GenericComparator(), index.KeySize8, 0, 0)
	require.False(t, tree.IsEmpty())

	for i := int32(1); i <= 50; i++ {
		rid, ok := tree.GetValue(index.Int64Key(int64(i), index.KeySize8))
		require.True(t, ok)
		assert.Equal(t, rids[i-1], rid)

		row := record.NewRowWithRowId(rid)
		require.True(t, heap.GetTuple(row, nil))
		assert.Equal(t, i, row.GetField(0).GetInt())
	}
}
