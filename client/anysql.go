package client

import (
	"context"

	"github.com/dan-strohschein/jsonwebdb-driver/filter"
	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// AnySQL runs select, insert, update and delete against a custom statement
// registered on the server. It skips describe, so no column types are
// known and returned dates are left as strings.
type AnySQL struct {
	session    *Session
	source     string
	bindValues []protocol.NameValue
	savepoint  *bool
	returning  []string

	failed   bool
	message  string
	affected int
	returned *Cursor
}

// NewAnySQL returns an executor for the custom statement source.
func NewAnySQL(session *Session, source string, bindValues ...protocol.NameValue) (*AnySQL, error) {
	if session == nil {
		return nil, newUsageError(nil, messages.SessionIsNull, "AnySQL")
	}
	if source == "" {
		return nil, newUsageError(session.catalog, messages.SourceIsNull, "AnySQL")
	}
	return &AnySQL{session: session, source: source, bindValues: bindValues}, nil
}

// Failed reports whether the last statement was rejected.
func (a *AnySQL) Failed() bool { return a.failed }

// ErrorMessage returns the server message of the rejection.
func (a *AnySQL) ErrorMessage() string { return a.message }

// Affected returns the number of rows the last write changed.
func (a *AnySQL) Affected() int { return a.affected }

// ReturnValues returns the rows produced by the return columns, or nil.
func (a *AnySQL) ReturnValues() *Cursor { return a.returned }

// UseSavePoint requests statement level rollback on failure.
func (a *AnySQL) UseSavePoint(flag bool) *AnySQL {
	a.savepoint = protocol.Bool(flag)
	return a
}

// SetReturnColumns names the columns returned from written rows.
func (a *AnySQL) SetReturnColumns(columns ...string) *AnySQL {
	a.returning = columns
	return a
}

// Select runs the statement and returns a cursor over the first page.
func (a *AnySQL) Select(ctx context.Context, columns ...string) (*Cursor, error) {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	call := a.call(protocol.InvokeSelect)
	call.Select = &protocol.SelectArgs{
		Heading:   true,
		Columns:   columns,
		PageSize:  a.session.opts.DefaultArrayFetch,
		Savepoint: a.savepoint,
	}

	resp, err := a.invoke(ctx, call)
	if err != nil || !resp.Success {
		return nil, err
	}

	rows, err := resp.RowData()
	if err != nil {
		return nil, newProtocolError(protocol.InvokeSelect, err)
	}
	if len(resp.Columns) > 0 {
		columns = resp.Columns
	}
	return newCursor(a.session, nil, columns, rows, resp.More, resp.Cursor, a.session.opts.DefaultArrayFetch), nil
}

// Insert writes record through the statement.
func (a *AnySQL) Insert(ctx context.Context, record *Record) (bool, error) {
	if record == nil {
		return false, newUsageError(a.session.catalog, messages.RecordIsNull, "AnySQL")
	}
	call := a.call(protocol.InvokeInsert)
	call.Insert = &protocol.InsertArgs{
		Values:    record.ColumnValues(),
		Returning: a.returning,
		Savepoint: a.savepoint,
	}
	return a.write(ctx, call)
}

// Update sets the values in record on the rows matching filters.
func (a *AnySQL) Update(ctx context.Context, record *Record, filters ...filter.Predicate) (bool, error) {
	if record == nil {
		return false, newUsageError(a.session.catalog, messages.RecordIsNull, "AnySQL")
	}
	call := a.call(protocol.InvokeUpdate)
	call.Update = &protocol.UpdateArgs{
		Set:       record.ColumnValues(),
		Filters:   filter.Normalize(filters...).Parse(),
		Returning: a.returning,
		Savepoint: a.savepoint,
	}
	return a.write(ctx, call)
}

// Delete removes the rows matching filters.
func (a *AnySQL) Delete(ctx context.Context, filters ...filter.Predicate) (bool, error) {
	call := a.call(protocol.InvokeDelete)
	call.Delete = &protocol.DeleteArgs{
		Filters:   filter.Normalize(filters...).Parse(),
		Returning: a.returning,
		Savepoint: a.savepoint,
	}
	return a.write(ctx, call)
}

func (a *AnySQL) call(invoke string) protocol.TableCall {
	return protocol.TableCall{
		Invoke:     invoke,
		Source:     a.source,
		Session:    a.session.SessionID(),
		BindValues: a.bindValues,
	}
}

func (a *AnySQL) invoke(ctx context.Context, call protocol.TableCall) (*protocol.Response, error) {
	a.failed = false
	a.message = ""
	a.affected = 0
	a.returned = nil

	resp, err := a.session.Invoke(ctx, &protocol.SQLRequest{SQL: call})
	if err != nil {
		return nil, err
	}
	a.failed = !resp.Success
	a.message = resp.Message
	return resp, nil
}

func (a *AnySQL) write(ctx context.Context, call protocol.TableCall) (bool, error) {
	resp, err := a.invoke(ctx, call)
	if err != nil {
		return false, err
	}
	if !resp.Success {
		return false, nil
	}

	a.affected = resp.Affected
	if len(a.returning) > 0 {
		rows, err := resp.RowData()
		if err != nil {
			return false, newProtocolError(call.Invoke, err)
		}
		a.returned = newCursor(a.session, nil, a.returning, rows, false, "", 0)
	}
	return true, nil
}
