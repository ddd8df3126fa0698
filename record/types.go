// Package record defines the row and field value layer the table heap stores:
// typed fields, schemas describing column layout, and the serialised row
// format (field count, null bitset, then tagged field payloads).
package record

// TypeID tags the type of a column and of a serialised field.
type TypeID uint32

const (
	TypeInvalid TypeID = iota
	TypeInt
	TypeFloat
	TypeChar
	TypeVarchar
	TypeDecimal
)

// String returns the string representation of TypeID
func (t TypeID) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeChar:
		return "CHAR"
	case TypeVarchar:
		return "VARCHAR"
	case TypeDecimal:
		return "DECIMAL"
	default:
		return "INVALID"
	}
}
