package testutil

import (
	json "github.com/goccy/go-json"
)

// Reply is a response document.
type Reply map[string]interface{}

// Bytes encodes the reply.
func (r Reply) Bytes() []byte {
	data, _ := json.Marshal(r)
	return data
}

// String encodes the reply.
func (r Reply) String() string {
	return string(r.Bytes())
}

// With returns a copy of the reply with key set.
func (r Reply) With(key string, value interface{}) Reply {
	out := make(Reply, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[key] = value
	return out
}

// Success is {"success":true}.
func Success() Reply {
	return Reply{"success": true}
}

// Rejected is {"success":false,"message":message}.
func Rejected(message string) Reply {
	return Reply{"success": false, "message": message}
}

// Connected is the reply to connect().
func Connected(sessionID string, timeout int) Reply {
	return Reply{"success": true, "session": sessionID, "timeout": timeout}
}

// Column is one entry of a describe reply.
type Column struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	SQLType   int    `json:"sqltype"`
	Precision []int  `json:"precision,omitempty"`
}

// Col builds a column without precision.
func Col(name, typ string) Column {
	return Column{Name: name, Type: typ}
}

// Described is the reply to describe.
func Described(order string, primaryKey []string, columns ...Column) Reply {
	r := Reply{"success": true, "rows": columns}
	if order != "" {
		r["order"] = order
	}
	if primaryKey != nil {
		r["primary-key"] = primaryKey
	}
	return r
}

// Page is the reply to select or fetch.
func Page(columns []string, rows [][]interface{}, more bool, cursor string) Reply {
	if rows == nil {
		rows = [][]interface{}{}
	}
	r := Reply{"success": true, "rows": rows, "more": more}
	if columns != nil {
		r["columns"] = columns
	}
	if cursor != "" {
		r["cursor"] = cursor
	}
	return r
}

// Affected is the reply to a write.
func Affected(n int) Reply {
	return Reply{"success": true, "affected": n}
}

// AssertionFailed is a rejected write carrying a failed assertion with one
// violation.
func AssertionFailed(message, column string, expected, actual interface{}) Reply {
	return Reply{
		"success": false,
		"message": message,
		"assertions": map[string]interface{}{
			"success": false,
			"message": message,
			"violations": []map[string]interface{}{
				{"column": column, "expected": expected, "actual": actual},
			},
		},
	}
}
