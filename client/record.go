package client

import (
	"fmt"
	"strings"

	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// RecordDefinition maps column names to positions. Lookups ignore case.
type RecordDefinition struct {
	columns []string
	index   map[string]int
}

// NewRecordDefinition returns a definition with the given columns.
func NewRecordDefinition(columns ...string) *RecordDefinition {
	d := &RecordDefinition{index: make(map[string]int, len(columns))}
	d.Add(columns...)
	return d
}

// Columns returns the column names in position order.
func (d *RecordDefinition) Columns() []string { return d.columns }

// Len returns the number of columns.
func (d *RecordDefinition) Len() int { return len(d.columns) }

// Add appends columns not already defined.
func (d *RecordDefinition) Add(columns ...string) *RecordDefinition {
	for _, col := range columns {
		key := strings.ToLower(col)
		if _, ok := d.index[key]; ok {
			continue
		}
		d.index[key] = len(d.columns)
		d.columns = append(d.columns, col)
	}
	return d
}

// Position returns the position of column.
func (d *RecordDefinition) Position(column string) (int, bool) {
	i, ok := d.index[strings.ToLower(column)]
	return i, ok
}

// Name returns the column at position i, or "".
func (d *RecordDefinition) Name(i int) string {
	if i < 0 || i >= len(d.columns) {
		return ""
	}
	return d.columns[i]
}

// SetColumn renames the column at position i.
func (d *RecordDefinition) SetColumn(i int, column string) *RecordDefinition {
	if i < 0 || i >= len(d.columns) {
		return d
	}
	delete(d.index, strings.ToLower(d.columns[i]))
	d.columns[i] = column
	d.index[strings.ToLower(column)] = i
	return d
}

// Record is a row of values addressed by position or column name.
type Record struct {
	def    *RecordDefinition
	values []interface{}
}

// NewRecord returns a record over def. A nil def starts empty.
func NewRecord(def *RecordDefinition, values ...interface{}) *Record {
	if def == nil {
		def = NewRecordDefinition()
	}
	return &Record{def: def, values: append([]interface{}(nil), values...)}
}

// Definition returns the record's definition.
func (r *Record) Definition() *RecordDefinition { return r.def }

// Columns returns the column names.
func (r *Record) Columns() []string { return r.def.Columns() }

// Values returns the values in position order.
func (r *Record) Values() []interface{} { return r.values }

// Get returns the value of column; unknown columns and unset positions
// are nil.
func (r *Record) Get(column string) interface{} {
	i, ok := r.def.Position(column)
	if !ok {
		return nil
	}
	return r.GetAt(i)
}

// GetAt returns the value at position i.
func (r *Record) GetAt(i int) interface{} {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Set assigns column. An unknown column is appended to the definition and
// missing values before it are padded with nil.
func (r *Record) Set(column string, value interface{}) *Record {
	i, ok := r.def.Position(column)
	if !ok {
		r.def.Add(column)
		i, _ = r.def.Position(column)
	}
	return r.SetAt(i, value)
}

// SetAt assigns position i, padding with nil as needed.
func (r *Record) SetAt(i int, value interface{}) *Record {
	if i < 0 {
		return r
	}
	for len(r.values) <= i {
		r.values = append(r.values, nil)
	}
	r.values[i] = value
	return r
}

// ColumnValues pairs every defined column with its value, for insert
// values and update set-lists.
func (r *Record) ColumnValues() []protocol.ColumnValue {
	pairs := make([]protocol.ColumnValue, 0, r.def.Len())
	for i, col := range r.def.Columns() {
		pairs = append(pairs, protocol.ColumnValue{Column: col, Value: mapper.Normalize(r.GetAt(i))})
	}
	return pairs
}

func (r *Record) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = fmt.Sprintf("'%v'", v)
	}
	return strings.Join(parts, ",")
}
