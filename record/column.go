package record

import (
	"xminidb/basic"
)

// Column describes one attribute of a schema.
type Column struct {
	name       string
	columnType TypeID
	length     uint32
	index      uint32
	nullable   bool
	unique     bool
}

func NewColumn(name string, columnType TypeID, index uint32, nullable, unique bool) *Column {
	return &Column{
		name:       name,
		columnType: columnType,
		index:      index,
		nullable:   nullable,
		unique:     unique,
	}
}

// NewCharColumn builds a CHAR(length) column.
func NewCharColumn(name string, length uint32, index uint32, nullable, unique bool) *Column {
	col := NewColumn(name, TypeChar, index, nullable, unique)
	col.length = length
	return col
}

func (c *Column) GetName() string {
	return c.name
}

func (c *Column) GetType() TypeID {
	return c.columnType
}

func (c *Column) GetLength() uint32 {
	return c.length
}

func (c *Column) GetIndex() uint32 {
	return c.index
}

func (c *Column) IsNullable() bool {
	return c.nullable
}

func (c *Column) IsUnique() bool {
	return c.unique
}

// Schema is the ordered column list a table's rows follow.
type Schema struct {
	columns []*Column
}

func NewSchema(columns []*Column) *Schema {
	return &Schema{columns: columns}
}

func (s *Schema) GetColumns() []*Column {
	return s.columns
}

func (s *Schema) GetColumn(index uint32) *Column {
	if index >= uint32(len(s.columns)) {
		return nil
	}
	return s.columns[index]
}

func (s *Schema) GetColumnCount() uint32 {
	return uint32(len(s.columns))
}

// GetColumnIndex resolves a column by name.
func (s *Schema) GetColumnIndex(name string) (uint32, basic.DBResult) {
	for i, col := range s.columns {
		if col.GetName() == name {
			return uint32(i), basic.DBSuccess
		}
	}
	return 0, basic.DBColumnNameNotExist
}
