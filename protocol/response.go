package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Response is the decoded response document. Every operation answers with
// success and an optional message; the remaining fields are populated by
// the operations that produce them.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// connect()
	Session string `json:"session,omitempty"`
	Timeout int    `json:"timeout,omitempty"`

	// describe
	Order      string   `json:"order,omitempty"`
	PrimaryKey []string `json:"primary-key,omitempty"`

	// select, fetch, describe and returning clauses. Rows holds arrays of
	// values, except for describe where it holds column objects.
	Columns  []string        `json:"columns,omitempty"`
	Cursor   string          `json:"cursor,omitempty"`
	More     bool            `json:"more,omitempty"`
	Rows     json.RawMessage `json:"rows,omitempty"`
	Affected int             `json:"affected,omitempty"`

	// optimistic locking
	Assertions *AssertionResult `json:"assertions,omitempty"`

	// execute
	Values  []ParameterValue `json:"values,omitempty"`
	Returns string           `json:"returns,omitempty"`
}

// ColumnInfo describes one column in a describe response.
type ColumnInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	SQLType   int    `json:"sqltype"`
	Precision []int  `json:"precision,omitempty"`
}

// ParameterValue is an output parameter of a procedure call.
type ParameterValue struct {
	ColumnInfo
	Value interface{} `json:"value"`
}

// AssertionResult reports optimistic locking checks on a statement.
type AssertionResult struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Record     string            `json:"record,omitempty"`
	Violations []ViolationResult `json:"violations,omitempty"`
}

// ViolationResult is one mismatching column.
type ViolationResult struct {
	Column   string      `json:"column"`
	Expected interface{} `json:"expected"`
	Actual   interface{} `json:"actual"`
}

// RowData decodes Rows as a list of positional rows.
func (r *Response) RowData() ([][]interface{}, error) {
	if len(r.Rows) == 0 || string(r.Rows) == "null" {
		return nil, nil
	}

	var rows [][]interface{}
	if err := json.Unmarshal(r.Rows, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// ColumnInfos decodes Rows as the column list of a describe response.
func (r *Response) ColumnInfos() ([]ColumnInfo, error) {
	if len(r.Rows) == 0 || string(r.Rows) == "null" {
		return nil, nil
	}

	var columns []ColumnInfo
	if err := json.Unmarshal(r.Rows, &columns); err != nil {
		return nil, fmt.Errorf("decode column definitions: %w", err)
	}
	return columns, nil
}
