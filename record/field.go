package record

import (
	"math"

	"github.com/shopspring/decimal"

	"xminidb/util"
)

// Field is one typed value inside a row. String-shaped types serialise as a
// length-prefixed byte run; INT and FLOAT are fixed four bytes; DECIMAL is
// stored in its exact text form and re-parsed on load.
type Field struct {
	typeId   TypeID
	isNull   bool
	intVal   int32
	floatVal float32
	strVal   string
	decVal   decimal.Decimal
}

func NewIntField(v int32) *Field {
	return &Field{typeId: TypeInt, intVal: v}
}

func NewFloatField(v float32) *Field {
	return &Field{typeId: TypeFloat, floatVal: v}
}

func NewCharField(v string) *Field {
	return &Field{typeId: TypeChar, strVal: v}
}

func NewVarcharField(v string) *Field {
	return &Field{typeId: TypeVarchar, strVal: v}
}

func NewDecimalField(v decimal.Decimal) *Field {
	return &Field{typeId: TypeDecimal, decVal: v}
}

// NewNullField builds the typed NULL of typeId.
func NewNullField(typeId TypeID) *Field {
	return &Field{typeId: typeId, isNull: true}
}

func (f *Field) GetTypeId() TypeID {
	return f.typeId
}

func (f *Field) IsNull() bool {
	return f.isNull
}

func (f *Field) GetInt() int32 {
	return f.intVal
}

func (f *Field) GetFloat() float32 {
	return f.floatVal
}

func (f *Field) GetString() string {
	return f.strVal
}

func (f *Field) GetDecimal() decimal.Decimal {
	return f.decVal
}

// SerializeTo appends the field payload to buf. NULL fields contribute no
// payload: the row's null bitset carries them.
func (f *Field) SerializeTo(buf []byte) []byte {
	if f.isNull {
		return buf
	}
	switch f.typeId {
	case TypeInt:
		return util.WriteUB4(buf, uint32(f.intVal))
	case TypeFloat:
		return util.WriteUB4(buf, math.Float32bits(f.floatVal))
	case TypeChar, TypeVarchar:
		buf = util.WriteUB4(buf, uint32(len(f.strVal)))
		return append(buf, f.strVal...)
	case TypeDecimal:
		text := f.decVal.String()
		buf = util.WriteUB4(buf, uint32(len(text)))
		return append(buf, text...)
	default:
		return buf
	}
}

// GetSerializedSize returns the payload size SerializeTo will append.
func (f *Field) GetSerializedSize() uint32 {
	if f.isNull {
		return 0
	}
	switch f.typeId {
	case TypeInt, TypeFloat:
		return 4
	case TypeChar, TypeVarchar:
		return 4 + uint32(len(f.strVal))
	case TypeDecimal:
		return 4 + uint32(len(f.decVal.String()))
	default:
		return 0
	}
}

// deserializeField reads one payload of typeId from buf and returns the field
// and the bytes consumed.
func deserializeField(buf []byte, typeId TypeID, isNull bool) (*Field, uint32) {
	if isNull {
		return NewNullField(typeId), 0
	}
	switch typeId {
	case TypeInt:
		return NewIntField(int32(util.ReadUB4Byte2UInt32(buf))), 4
	case TypeFloat:
		return NewFloatField(math.Float32frombits(util.ReadUB4Byte2UInt32(buf))), 4
	case TypeChar, TypeVarchar:
		length := util.ReadUB4Byte2UInt32(buf)
		value := string(buf[4 : 4+length])
		if typeId == TypeChar {
			return NewCharField(value), 4 + length
		}
		return NewVarcharField(value), 4 + length
	case TypeDecimal:
		length := util.ReadUB4Byte2UInt32(buf)
		value, err := decimal.NewFromString(string(buf[4 : 4+length]))
		if err != nil {
			return NewNullField(TypeDecimal), 4 + length
		}
		return NewDecimalField(value), 4 + length
	default:
		return NewNullField(typeId), 0
	}
}
