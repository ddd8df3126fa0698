package record

import (
	"xminidb/basic"
	"xminidb/util"
)

// Serialised row format: field count (u32), null bitset (u32, bit i set when
// field i is NULL), then per field the type tag (u32) and its payload. A row
// therefore holds at most 32 fields. The RowId is not serialised: a stored
// row is addressed by the slot holding it.
const rowMaxFields = 32

// Row is a sequence of fields whose layout follows the caller-provided
// schema. A stored row embeds the RowId it was inserted under.
type Row struct {
	rid    basic.RowId
	fields []*Field
}

func NewRow(fields ...*Field) *Row {
	return &Row{rid: basic.InvalidRowId, fields: fields}
}

// NewRowWithRowId builds an empty row positioned at rid, ready to be filled
// by GetTuple or an iterator.
func NewRowWithRowId(rid basic.RowId) *Row {
	return &Row{rid: rid}
}

func (r *Row) GetRowId() basic.RowId {
	return r.rid
}

func (r *Row) SetRowId(rid basic.RowId) {
	r.rid = rid
}

func (r *Row) GetFields() []*Field {
	return r.fields
}

func (r *Row) GetField(index uint32) *Field {
	if index >= uint32(len(r.fields)) {
		return nil
	}
	return r.fields[index]
}

func (r *Row) GetFieldCount() uint32 {
	return uint32(len(r.fields))
}

// SerializeTo renders the row into its stored byte form.
func (r *Row) SerializeTo(schema *Schema) []byte {
	fieldCount := r.GetFieldCount()
	if fieldCount > rowMaxFields {
		return nil
	}

	var nullBitset uint32
	for i, field := range r.fields {
		if field.IsNull() {
			nullBitset |= 1 << uint(i)
		}
	}

	buf := make([]byte, 0, r.GetSerializedSize(schema))
	buf = util.WriteUB4(buf, fieldCount)
	buf = util.WriteUB4(buf, nullBitset)
	for _, field := range r.fields {
		buf = util.WriteUB4(buf, uint32(field.GetTypeId()))
		buf = field.SerializeTo(buf)
	}
	return buf
}

// GetSerializedSize returns the length SerializeTo will produce.
func (r *Row) GetSerializedSize(schema *Schema) uint32 {
	size := uint32(8)
	for _, field := range r.fields {
		size += 4 + field.GetSerializedSize()
	}
	return size
}

// DeserializeFrom replaces the row's fields with the ones decoded from buf
// and returns the bytes consumed.
func (r *Row) DeserializeFrom(buf []byte, schema *Schema) uint32 {
	fieldCount := util.ReadUB4Byte2UInt32(buf)
	nullBitset := util.ReadUB4Byte2UInt32(buf[4:])
	pos := uint32(8)

	r.fields = make([]*Field, 0, fieldCount)
	for i := uint32(0); i < fieldCount; i++ {
		typeId := TypeID(util.ReadUB4Byte2UInt32(buf[pos:]))
		pos += 4
		isNull := nullBitset&(1<<uint(i)) != 0
		field, consumed := deserializeField(buf[pos:], typeId, isNull)
		pos += consumed
		r.fields = append(r.fields, field)
	}
	return pos
}
