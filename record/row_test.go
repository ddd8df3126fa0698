package record

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xminidb/basic"
)

func testSchema() *Schema {
	return NewSchema([]*Column{
		NewColumn("id", TypeInt, 0, false, true),
		NewCharColumn("name", 16, 1, false, false),
		NewColumn("score", TypeFloat, 2, true, false),
		NewColumn("balance", TypeDecimal, 3, true, false),
	})
}

func TestSchemaColumnIndex(t *testing.T) {
	schema := testSchema()

	index, res := schema.GetColumnIndex("score")
	assert.Equal(t, basic.DBSuccess, res)
	assert.Equal(t, uint32(2), index)

	_, res = schema.GetColumnIndex("missing")
	assert.Equal(t, basic.DBColumnNameNotExist, res)

	assert.Equal(t, uint32(4), schema.GetColumnCount())
	assert.Nil(t, schema.GetColumn(9))
}

func TestRowSerializeRoundTrip(t *testing.T) {
	schema := testSchema()
	row := NewRow(
		NewIntField(42),
		NewCharField("alice"),
		NewFloatField(3.25),
		NewDecimalField(decimal.RequireFromString("199.99")),
	)

	buf := row.SerializeTo(schema)
	require.NotNil(t, buf)
	assert.Equal(t, row.GetSerializedSize(schema), uint32(len(buf)))

	decoded := NewRowWithRowId(basic.NewRowId(3, 1))
	consumed := decoded.DeserializeFrom(buf, schema)
	assert.Equal(t, uint32(len(buf)), consumed)

	require.Equal(t, uint32(4), decoded.GetFieldCount())
	assert.Equal(t, int32(42), decoded.GetField(0).GetInt())
	assert.Equal(t, "alice", decoded.GetField(1).GetString())
	assert.Equal(t, float32(3.25), decoded.GetField(2).GetFloat())
	assert.True(t, decoded.GetField(3).GetDecimal().Equal(decimal.RequireFromString("199.99")))
	assert.Equal(t, basic.NewRowId(3, 1), decoded.GetRowId())
}

func TestRowNullFields(t *testing.T) {
	schema := testSchema()
	row := NewRow(
		NewIntField(7),
		NewCharField("bob"),
		NewNullField(TypeFloat),
		NewNullField(TypeDecimal),
	)

	buf := row.SerializeTo(schema)
	decoded := NewRow()
	decoded.DeserializeFrom(buf, schema)

	assert.False(t, decoded.GetField(0).IsNull())
	assert.True(t, decoded.GetField(2).IsNull())
	assert.Equal(t, TypeFloat, decoded.GetField(2).GetTypeId())
	assert.True(t, decoded.GetField(3).IsNull())
	assert.Equal(t, TypeDecimal, decoded.GetField(3).GetTypeId())
}

func TestRowSerializedByteEquality(t *testing.T) {
	schema := testSchema()
	rowA := NewRow(NewIntField(1), NewCharField("x"), NewFloatField(1.5), NewDecimalField(decimal.New(5, -1)))
	rowB := NewRow(NewIntField(1), NewCharField("x"), NewFloatField(1.5), NewDecimalField(decimal.New(5, -1)))

	assert.Equal(t, rowA.SerializeTo(schema), rowB.SerializeTo(schema))
}

func TestFieldSerializedSizes(t *testing.T) {
	assert.Equal(t, uint32(4), NewIntField(9).GetSerializedSize())
	assert.Equal(t, uint32(4), NewFloatField(9).GetSerializedSize())
	assert.Equal(t, uint32(4+5), NewVarcharField("hello").GetSerializedSize())
	assert.Equal(t, uint32(0), NewNullField(TypeInt).GetSerializedSize())
}

func TestRowTooManyFields(t *testing.T) {
	fields := make([]*Field, 33)
	for i := range fields {
		fields[i] = NewIntField(int32(i))
	}
	row := NewRow(fields...)
	assert.Nil(t, row.SerializeTo(nil))
}
