package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Cursor iterates a result set that the server hands out page by page.
// Next fetches the following page when the buffer runs out and the server
// reported more rows.
//
// A Cursor has no internal locking; calls on one cursor must not overlap.
type Cursor struct {
	session  *Session
	columns  []string
	index    map[string]int
	temporal []bool
	rows     [][]interface{}
	pos      int
	more     bool
	id       string
	pageSize int
	closed   bool
	failed   bool
	message  string
}

// NewCursor wraps a page of rows. When more is true, id names the server
// side cursor used to fetch the following pages.
func NewCursor(session *Session, columns []string, rows [][]interface{}, more bool, id string) *Cursor {
	return newCursor(session, nil, columns, rows, more, id, 0)
}

func newCursor(session *Session, defs map[string]*ColumnDefinition, columns []string, rows [][]interface{}, more bool, id string, pageSize int) *Cursor {
	c := &Cursor{
		session:  session,
		columns:  make([]string, len(columns)),
		index:    make(map[string]int, len(columns)),
		temporal: make([]bool, len(columns)),
		rows:     rows,
		pos:      -1,
		more:     more,
		id:       id,
		pageSize: pageSize,
	}

	for i, col := range columns {
		name := strings.ToLower(col)
		c.columns[i] = name
		c.index[name] = i
		if def, ok := defs[name]; ok {
			c.temporal[i] = def.IsTemporal()
		}
	}
	return c
}

// Columns returns the lowercased column names.
func (c *Cursor) Columns() []string { return c.columns }

// Position returns the index of the current row in the buffer; -1 before
// the first Next.
func (c *Cursor) Position() int { return c.pos }

// More reports whether the server holds further pages.
func (c *Cursor) More() bool { return c.more }

// ID returns the server side cursor id.
func (c *Cursor) ID() string { return c.id }

// Buffered returns the number of rows not yet returned by Next.
func (c *Cursor) Buffered() int {
	if n := len(c.rows) - c.pos - 1; n > 0 {
		return n
	}
	return 0
}

// Failed reports whether a fetch or close was rejected.
func (c *Cursor) Failed() bool { return c.failed }

// ErrorMessage returns the server message of the rejection.
func (c *Cursor) ErrorMessage() string { return c.message }

// SetPageSize sets the page size requested by later fetches.
func (c *Cursor) SetPageSize(rows int) *Cursor {
	c.pageSize = rows
	return c
}

// Next advances to the next row, fetching pages as needed. Pages that come
// back empty while the server still reports more rows are skipped. Once
// Next has returned false it keeps returning false.
func (c *Cursor) Next(ctx context.Context) (bool, error) {
	for {
		if c.pos < len(c.rows) {
			c.pos++
		}
		if c.pos < len(c.rows) {
			c.coerce(c.rows[c.pos])
			return true, nil
		}
		if !c.more || c.closed {
			return false, nil
		}

		ok, err := c.fetch(ctx, false)
		if err != nil || !ok {
			return false, err
		}
	}
}

// Prefetch fetches pages until at least n rows are buffered ahead of the
// current position or the server has no more rows. It does not move the
// position and returns the number of buffered rows.
func (c *Cursor) Prefetch(ctx context.Context, n int) (int, error) {
	for c.Buffered() < n && c.more && !c.closed {
		ok, err := c.fetch(ctx, true)
		if err != nil {
			return c.Buffered(), err
		}
		if !ok {
			break
		}
	}
	return c.Buffered(), nil
}

// fetch requests the next page. It either replaces the buffer and rewinds
// the position, or appends to the buffer. Appending to a buffer that Next
// already ran past replaces it instead.
func (c *Cursor) fetch(ctx context.Context, appendRows bool) (bool, error) {
	req := &protocol.CursorRequest{
		Cursor: protocol.CursorCall{
			Invoke:  protocol.InvokeFetch,
			Session: c.session.SessionID(),
			Cursor:  c.id,
		},
	}
	if c.pageSize > 0 {
		req.Cursor.Fetch = &protocol.FetchArgs{PageSize: c.pageSize}
	}

	resp, err := c.session.Invoke(ctx, req)
	if err != nil {
		return false, err
	}

	if !resp.Success {
		c.failed = true
		c.message = resp.Message
		c.more = false
		return false, nil
	}

	rows, err := resp.RowData()
	if err != nil {
		return false, newProtocolError(protocol.InvokeFetch, err)
	}

	c.more = resp.More
	if resp.Cursor != "" {
		c.id = resp.Cursor
	}

	// A position past the buffer has nothing left to keep.
	if appendRows && c.pos < len(c.rows) {
		c.rows = append(c.rows, rows...)
	} else {
		c.rows = rows
		c.pos = -1
	}
	return true, nil
}

// Close releases the server side cursor if it still has rows, and drops
// the buffer. Closing again returns true without a round trip.
func (c *Cursor) Close(ctx context.Context) (bool, error) {
	if c.closed {
		return true, nil
	}

	success := true
	if c.more && c.id != "" {
		resp, err := c.session.Invoke(ctx, &protocol.CursorRequest{
			Cursor: protocol.CursorCall{
				Invoke:  protocol.InvokeClose,
				Session: c.session.SessionID(),
				Cursor:  c.id,
			},
		})
		if err != nil {
			return false, err
		}
		if !resp.Success {
			c.failed = true
			c.message = resp.Message
			success = false
		}
	}

	c.closed = true
	c.more = false
	c.rows = nil
	c.pos = -1
	return success, nil
}

func (c *Cursor) coerce(row []interface{}) {
	for i, temporal := range c.temporal {
		if temporal && i < len(row) {
			row[i] = mapper.CoerceTemporal(row[i])
		}
	}
}

// Fetch returns the current row, or nil when positioned outside the buffer.
func (c *Cursor) Fetch() []interface{} {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

// Record returns the current row as a Record.
func (c *Cursor) Record() *Record {
	row := c.Fetch()
	if row == nil {
		return nil
	}
	return NewRecord(NewRecordDefinition(c.columns...), row...)
}

// Get returns the value of column in the current row.
func (c *Cursor) Get(column string) (interface{}, error) {
	row := c.Fetch()
	if row == nil {
		return nil, fmt.Errorf("cursor is not positioned on a row")
	}
	i, ok := c.index[strings.ToLower(column)]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	if i >= len(row) {
		return nil, nil
	}
	return row[i], nil
}

// GetString returns column as a string; null is "".
func (c *Cursor) GetString(column string) (string, error) {
	v, err := c.Get(column)
	if err != nil {
		return "", err
	}
	return mapper.ToString(v), nil
}

// GetNumber returns column as a number.
func (c *Cursor) GetNumber(column string) (float64, error) {
	v, err := c.Get(column)
	if err != nil {
		return 0, err
	}
	return mapper.ToNumber(v)
}

// GetBool returns column as a bool; strings other than "true" are false.
func (c *Cursor) GetBool(column string) (bool, error) {
	v, err := c.Get(column)
	if err != nil {
		return false, err
	}
	return mapper.ToBool(v)
}

// GetDate returns column as a time.
func (c *Cursor) GetDate(column string) (time.Time, error) {
	v, err := c.Get(column)
	if err != nil {
		return time.Time{}, err
	}
	return mapper.ToTime(v)
}

// GetAt returns the value at column index i of the current row.
func (c *Cursor) GetAt(i int) (interface{}, error) {
	row := c.Fetch()
	if row == nil {
		return nil, fmt.Errorf("cursor is not positioned on a row")
	}
	if i < 0 || i >= len(c.columns) {
		return nil, fmt.Errorf("column index %d out of range [0, %d)", i, len(c.columns))
	}
	if i >= len(row) {
		return nil, nil
	}
	return row[i], nil
}

func (c *Cursor) GetStringAt(i int) (string, error) {
	v, err := c.GetAt(i)
	if err != nil {
		return "", err
	}
	return mapper.ToString(v), nil
}

func (c *Cursor) GetNumberAt(i int) (float64, error) {
	v, err := c.GetAt(i)
	if err != nil {
		return 0, err
	}
	return mapper.ToNumber(v)
}

func (c *Cursor) GetBoolAt(i int) (bool, error) {
	v, err := c.GetAt(i)
	if err != nil {
		return false, err
	}
	return mapper.ToBool(v)
}

func (c *Cursor) GetDateAt(i int) (time.Time, error) {
	v, err := c.GetAt(i)
	if err != nil {
		return time.Time{}, err
	}
	return mapper.ToTime(v)
}
