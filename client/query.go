package client

import (
	"context"

	"github.com/dan-strohschein/jsonwebdb-driver/filter"
	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Query is a select statement.
type Query struct {
	statement
	columns    []string
	filters    *filter.Group
	order      string
	arrayFetch int
	lock       bool
	nowait     bool
	close      bool
}

// NewQuery returns a select of columns from table. No columns means "*".
func NewQuery(table *Table, columns []string, filters ...filter.Predicate) (*Query, error) {
	if table == nil {
		return nil, newUsageError(nil, messages.TableIsNull, "Query")
	}
	return newQuery(table, columns, filters...), nil
}

func newQuery(table *Table, columns []string, filters ...filter.Predicate) *Query {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &Query{
		statement:  newStatement(table),
		columns:    columns,
		filters:    filter.Normalize(filters...),
		arrayFetch: table.arrayFetch,
	}
}

// Filters returns the query's filter group, or nil.
func (q *Query) Filters() *filter.Group { return q.filters }

// SetOrder overrides the table's default order, which is otherwise read
// when the query executes.
func (q *Query) SetOrder(order string) *Query {
	q.order = order
	return q
}

// SetArrayFetch sets the page size.
func (q *Query) SetArrayFetch(rows int) *Query {
	q.arrayFetch = rows
	return q
}

// UseSavePoint requests statement level rollback on failure.
func (q *Query) UseSavePoint(flag bool) *Query {
	q.savepoint = protocol.Bool(flag)
	return q
}

// SetAssertions sets expected column values checked against locked rows.
func (q *Query) SetAssertions(assertions ...protocol.NameValue) *Query {
	q.setAssertions(assertions)
	return q
}

// SetLockRows locks the selected rows. With nowait the server fails
// instead of waiting for rows locked by others.
func (q *Query) SetLockRows(lock, nowait bool) *Query {
	q.lock = lock
	q.nowait = nowait
	return q
}

// SetCloseCursor asks the server to return the first page only and keep
// no cursor.
func (q *Query) SetCloseCursor(close bool) *Query {
	q.close = close
	return q
}

// Bind assigns positional values to the query's filters.
func (q *Query) Bind(values ...interface{}) *Query {
	if q.filters != nil {
		q.filters.Bind(values...)
	}
	return q
}

// Execute runs the query and returns a cursor over the result. Values, if
// any, are bound to the filters first. A rejected query returns a nil
// cursor with no error; see Failed.
func (q *Query) Execute(ctx context.Context, values ...interface{}) (*Cursor, error) {
	q.reset()

	ok, err := q.describe(ctx)
	if err != nil || !ok {
		return nil, err
	}

	if len(values) > 0 {
		q.Bind(values...)
	}

	resp, err := q.table.session.Invoke(ctx, q.request())
	if err != nil {
		return nil, err
	}

	q.failed = !resp.Success
	q.message = resp.Message
	if resp.Assertions != nil {
		q.assertion.parse(resp.Assertions)
	}
	if !resp.Success {
		return nil, nil
	}

	rows, err := resp.RowData()
	if err != nil {
		return nil, newProtocolError(protocol.InvokeSelect, err)
	}

	columns := resp.Columns
	if len(columns) == 0 {
		columns = q.columns
	}

	return newCursor(q.table.session, q.table.ColumnDefinitions(), columns, rows, resp.More, resp.Cursor, q.arrayFetch), nil
}

func (q *Query) request() *protocol.TableRequest {
	order := q.order
	if order == "" {
		order = q.table.Order()
	}

	call := q.call(protocol.InvokeSelect)
	args := &protocol.SelectArgs{
		Heading:    true,
		Columns:    q.columns,
		PageSize:   q.arrayFetch,
		Order:      order,
		Filters:    q.filters.Parse(),
		Savepoint:  q.savepoint,
		Assertions: q.assertions,
	}
	if q.close {
		args.Cursor = protocol.Bool(false)
	}
	if q.lock {
		if q.nowait {
			args.ForUpdateNoWait = true
		} else {
			args.ForUpdate = true
		}
	}
	call.Select = args
	return &protocol.TableRequest{Table: call}
}

// BasicRequest returns the query's source, columns and filters without
// paging or locking options. It is the form embedded by subquery filters.
func (q *Query) BasicRequest(withSession bool) interface{} {
	call := protocol.TableCall{
		Invoke: protocol.InvokeSelect,
		Source: q.table.source,
		Select: &protocol.SelectArgs{
			Columns: q.columns,
			Filters: q.filters.Parse(),
		},
	}
	if withSession {
		call.Session = q.table.session.SessionID()
	}
	return &protocol.TableRequest{Table: call}
}
