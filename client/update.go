package client

import (
	"context"

	"github.com/dan-strohschein/jsonwebdb-driver/filter"
	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Update sets the values of a record on the rows matching its filters.
type Update struct {
	statement
	record  *Record
	filters *filter.Group
}

// NewUpdate returns an update of table setting the values in record.
func NewUpdate(table *Table, record *Record, filters ...filter.Predicate) (*Update, error) {
	if table == nil {
		return nil, newUsageError(nil, messages.TableIsNull, "Update")
	}
	if record == nil {
		return nil, newUsageError(table.session.catalog, messages.RecordIsNull, "Update")
	}
	return newUpdate(table, record, filters...), nil
}

func newUpdate(table *Table, record *Record, filters ...filter.Predicate) *Update {
	return &Update{
		statement: newStatement(table),
		record:    record,
		filters:   filter.Normalize(filters...),
	}
}

// Filters returns the statement's filter group, or nil.
func (u *Update) Filters() *filter.Group { return u.filters }

// UseSavePoint requests statement level rollback on failure.
func (u *Update) UseSavePoint(flag bool) *Update {
	u.savepoint = protocol.Bool(flag)
	return u
}

// SetReturnColumns names the columns returned from the updated rows.
func (u *Update) SetReturnColumns(columns ...string) *Update {
	u.returning = columns
	return u
}

// SetAssertions sets expected column values; the update fails if the
// current row does not match them.
func (u *Update) SetAssertions(assertions ...protocol.NameValue) *Update {
	u.setAssertions(assertions)
	return u
}

// Bind assigns positional values to the filters.
func (u *Update) Bind(values ...interface{}) *Update {
	if u.filters != nil {
		u.filters.Bind(values...)
	}
	return u
}

// Execute sends the update. Values, if any, are bound to the filters first.
func (u *Update) Execute(ctx context.Context, values ...interface{}) (bool, error) {
	if u.record == nil {
		return false, newUsageError(u.table.session.catalog, messages.RecordIsNull, "Update")
	}
	u.reset()

	ok, err := u.describe(ctx)
	if err != nil || !ok {
		return false, err
	}

	if len(values) > 0 {
		u.Bind(values...)
	}

	call := u.call(protocol.InvokeUpdate)
	call.Update = &protocol.UpdateArgs{
		Set:        u.record.ColumnValues(),
		Filters:    u.filters.Parse(),
		Returning:  u.returning,
		Savepoint:  u.savepoint,
		Assertions: u.assertions,
	}

	resp, err := u.table.session.Invoke(ctx, &protocol.TableRequest{Table: call})
	if err != nil {
		return false, err
	}
	if err := u.interpret(protocol.InvokeUpdate, resp); err != nil {
		return false, err
	}
	return !u.failed, nil
}
