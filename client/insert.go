package client

import (
	"context"

	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Insert adds one record to a table.
type Insert struct {
	statement
	record *Record
}

// NewInsert returns an insert of record into table.
func NewInsert(table *Table, record *Record) (*Insert, error) {
	if table == nil {
		return nil, newUsageError(nil, messages.TableIsNull, "Insert")
	}
	if record == nil {
		return nil, newUsageError(table.session.catalog, messages.RecordIsNull, "Insert")
	}
	return newInsert(table, record), nil
}

func newInsert(table *Table, record *Record) *Insert {
	return &Insert{statement: newStatement(table), record: record}
}

// UseSavePoint requests statement level rollback on failure.
func (i *Insert) UseSavePoint(flag bool) *Insert {
	i.savepoint = protocol.Bool(flag)
	return i
}

// SetReturnColumns names the columns returned from the inserted row,
// typically generated keys.
func (i *Insert) SetReturnColumns(columns ...string) *Insert {
	i.returning = columns
	return i
}

// Execute sends the insert. A rejected insert returns false with no error.
func (i *Insert) Execute(ctx context.Context) (bool, error) {
	if i.record == nil {
		return false, newUsageError(i.table.session.catalog, messages.RecordIsNull, "Insert")
	}
	i.reset()

	ok, err := i.describe(ctx)
	if err != nil || !ok {
		return false, err
	}

	call := i.call(protocol.InvokeInsert)
	call.Insert = &protocol.InsertArgs{
		Values:    i.record.ColumnValues(),
		Returning: i.returning,
		Savepoint: i.savepoint,
	}

	resp, err := i.table.session.Invoke(ctx, &protocol.TableRequest{Table: call})
	if err != nil {
		return false, err
	}
	if err := i.interpret(protocol.InvokeInsert, resp); err != nil {
		return false, err
	}
	return !i.failed, nil
}
