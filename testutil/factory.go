package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Option modifies one generated row.
type Option func(map[string]interface{})

// RowFactory generates rows for a fixed column list.
type RowFactory struct {
	columns  []string
	defaults map[string]interface{}
}

// NewRowFactory creates a factory for columns. Defaults may be plain
// values or generators (func() int64, func() string, func() time.Time).
func NewRowFactory(columns []string, defaults map[string]interface{}) *RowFactory {
	return &RowFactory{columns: columns, defaults: defaults}
}

// Columns returns the factory's columns.
func (f *RowFactory) Columns() []string { return f.columns }

// Build creates one positional row.
func (f *RowFactory) Build(options ...Option) []interface{} {
	data := make(map[string]interface{}, len(f.defaults))
	for k, v := range f.defaults {
		data[k] = v
	}
	for _, opt := range options {
		opt(data)
	}

	row := make([]interface{}, len(f.columns))
	for i, col := range f.columns {
		switch fn := data[col].(type) {
		case func() int64:
			row[i] = fn()
		case func() string:
			row[i] = fn()
		case func() time.Time:
			row[i] = fn()
		default:
			row[i] = fn
		}
	}
	return row
}

// BuildList creates count rows.
func (f *RowFactory) BuildList(count int, options ...Option) [][]interface{} {
	rows := make([][]interface{}, count)
	for i := range rows {
		rows[i] = f.Build(options...)
	}
	return rows
}

// WithField sets a specific field value.
func WithField(name string, value interface{}) Option {
	return func(data map[string]interface{}) {
		data[name] = value
	}
}

var idSequence uint64

// SequenceID generates unique ids.
func SequenceID() int64 {
	return int64(atomic.AddUint64(&idSequence, 1))
}

// SequenceName generates unique names.
func SequenceName() string {
	return fmt.Sprintf("employee%d", atomic.AddUint64(&idSequence, 1))
}

// EmployeeColumns is the column list of the employee fixture.
var EmployeeColumns = []string{"id", "first_name", "hired", "salary"}

// EmployeeDescribe is the describe reply of the employee fixture.
func EmployeeDescribe() Reply {
	return Described("id", []string{"id"},
		Col("id", "NUMBER"),
		Col("first_name", "VARCHAR2"),
		Col("hired", "DATE"),
		Col("salary", "NUMBER"),
	)
}

// NewEmployeeFactory creates rows matching EmployeeColumns. The hired
// column is a canonical timestamp string, as the server sends it.
func NewEmployeeFactory() *RowFactory {
	return NewRowFactory(EmployeeColumns, map[string]interface{}{
		"id":         SequenceID,
		"first_name": SequenceName,
		"hired":      "2023-01-02T03:04:05.000Z",
		"salary":     1000,
	})
}
