package client

import (
	"context"

	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Param builds a named value for bind values, procedure parameters and
// assertions. Dates are sent as canonical timestamps.
func Param(name string, value interface{}) protocol.NameValue {
	return protocol.NameValue{Name: name, Value: mapper.Normalize(value)}
}

// statement is the state shared by the table statements.
type statement struct {
	table      *Table
	savepoint  *bool
	returning  []string
	assertions []protocol.ColumnValue

	failed    bool
	message   string
	affected  int
	assertion *Assertion
	returned  *Cursor
}

func newStatement(table *Table) statement {
	return statement{table: table, assertion: newAssertion()}
}

// Failed reports whether the statement, or the describe it depends on,
// was rejected.
func (s *statement) Failed() bool { return s.failed }

// ErrorMessage returns the server message of the rejection.
func (s *statement) ErrorMessage() string { return s.message }

// AssertionStatus returns the outcome of the optimistic locking checks.
func (s *statement) AssertionStatus() *Assertion { return s.assertion }

// Affected returns the number of rows the statement changed.
func (s *statement) Affected() int { return s.affected }

// ReturnValues returns the rows produced by the return columns, or nil.
func (s *statement) ReturnValues() *Cursor { return s.returned }

func (s *statement) setAssertions(assertions []protocol.NameValue) {
	s.assertions = s.assertions[:0]
	for _, a := range assertions {
		s.assertions = append(s.assertions, protocol.ColumnValue{Column: a.Name, Value: mapper.Normalize(a.Value)})
	}
}

func (s *statement) reset() {
	s.failed = false
	s.message = ""
	s.affected = 0
	s.returned = nil
	s.assertion = newAssertion()
}

// describe adopts a rejected describe as the statement's own failure.
func (s *statement) describe(ctx context.Context) (bool, error) {
	ok, err := s.table.Describe(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		s.failed = true
		s.message = s.table.ErrorMessage()
	}
	return ok, nil
}

func (s *statement) call(invoke string) protocol.TableCall {
	return protocol.TableCall{
		Invoke:     invoke,
		Source:     s.table.source,
		Session:    s.table.session.SessionID(),
		BindValues: s.table.BindValues(),
	}
}

// interpret records the outcome of a write and builds the returning cursor.
func (s *statement) interpret(invoke string, resp *protocol.Response) error {
	s.failed = !resp.Success
	s.message = resp.Message
	if resp.Assertions != nil {
		s.assertion.parse(resp.Assertions)
	}
	if !resp.Success {
		return nil
	}

	s.affected = resp.Affected
	if len(s.returning) == 0 {
		return nil
	}

	rows, err := resp.RowData()
	if err != nil {
		return newProtocolError(invoke, err)
	}
	s.returned = newCursor(s.table.session, s.table.ColumnDefinitions(), s.returning, rows, false, "", 0)
	return nil
}
