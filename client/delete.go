package client

import (
	"context"

	"github.com/dan-strohschein/jsonwebdb-driver/filter"
	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Delete removes the rows matching its filters. Without filters it
// removes every row the source exposes.
type Delete struct {
	statement
	filters *filter.Group
}

// NewDelete returns a delete from table.
func NewDelete(table *Table, filters ...filter.Predicate) (*Delete, error) {
	if table == nil {
		return nil, newUsageError(nil, messages.TableIsNull, "Delete")
	}
	return newDelete(table, filters...), nil
}

func newDelete(table *Table, filters ...filter.Predicate) *Delete {
	return &Delete{statement: newStatement(table), filters: filter.Normalize(filters...)}
}

// Filters returns the statement's filter group, or nil.
func (d *Delete) Filters() *filter.Group { return d.filters }

// UseSavePoint requests statement level rollback on failure.
func (d *Delete) UseSavePoint(flag bool) *Delete {
	d.savepoint = protocol.Bool(flag)
	return d
}

// SetReturnColumns names the columns returned from the deleted rows.
func (d *Delete) SetReturnColumns(columns ...string) *Delete {
	d.returning = columns
	return d
}

// SetAssertions sets expected column values checked before deleting.
func (d *Delete) SetAssertions(assertions ...protocol.NameValue) *Delete {
	d.setAssertions(assertions)
	return d
}

// Bind assigns positional values to the filters.
func (d *Delete) Bind(values ...interface{}) *Delete {
	if d.filters != nil {
		d.filters.Bind(values...)
	}
	return d
}

// Execute sends the delete. Values, if any, are bound to the filters first.
func (d *Delete) Execute(ctx context.Context, values ...interface{}) (bool, error) {
	d.reset()

	ok, err := d.describe(ctx)
	if err != nil || !ok {
		return false, err
	}

	if len(values) > 0 {
		d.Bind(values...)
	}

	call := d.call(protocol.InvokeDelete)
	call.Delete = &protocol.DeleteArgs{
		Filters:    d.filters.Parse(),
		Returning:  d.returning,
		Savepoint:  d.savepoint,
		Assertions: d.assertions,
	}

	resp, err := d.table.session.Invoke(ctx, &protocol.TableRequest{Table: call})
	if err != nil {
		return false, err
	}
	if err := d.interpret(protocol.InvokeDelete, resp); err != nil {
		return false, err
	}
	return !d.failed, nil
}
