package protocol

// Invoke names used on the wire.
const (
	InvokeConnect    = "connect()"
	InvokeDisconnect = "disconnect()"
	InvokeKeepAlive  = "keepalive()"
	InvokeProperties = "properties()"

	InvokeDescribe = "describe"
	InvokeSelect   = "select"
	InvokeInsert   = "insert"
	InvokeUpdate   = "update"
	InvokeDelete   = "delete"
	InvokeExecute  = "execute"
	InvokeFetch    = "fetch"
	InvokeClose    = "close"
)

// NameValue is a named argument: VPD context, client info, bind values and
// procedure parameters all travel in this shape.
type NameValue struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// ColumnValue pairs a column with a value (insert values, update set-list,
// assertions).
type ColumnValue struct {
	Column string      `json:"column"`
	Value  interface{} `json:"value"`
}

// SessionRequest is the envelope for the Session target.
type SessionRequest struct {
	Session SessionCall `json:"Session"`
}

// SessionCall carries connect, disconnect, keepalive and properties calls.
type SessionCall struct {
	Session    string          `json:"session,omitempty"`
	Invoke     string          `json:"invoke"`
	Connect    *ConnectArgs    `json:"connect(),omitempty"`
	Properties *PropertiesArgs `json:"properties(),omitempty"`
}

// ConnectArgs is the payload of connect().
type ConnectArgs struct {
	Username   string      `json:"username,omitempty"`
	Password   string      `json:"password,omitempty"`
	Stateful   bool        `json:"stateful"`
	VPD        []NameValue `json:"vpd,omitempty"`
	ClientInfo []NameValue `json:"client-info,omitempty"`
}

// PropertiesArgs is the payload of properties().
type PropertiesArgs struct {
	VPD        []NameValue `json:"vpd,omitempty"`
	ClientInfo []NameValue `json:"client-info,omitempty"`
}

// TableRequest is the envelope for the Table target.
type TableRequest struct {
	Table TableCall `json:"Table"`
}

// SQLRequest is the envelope for custom statements. It shares the Table
// call shape.
type SQLRequest struct {
	SQL TableCall `json:"Sql"`
}

// TableCall carries describe, select, insert, update and delete. Exactly one
// operation payload is set, matching Invoke.
type TableCall struct {
	Invoke     string      `json:"invoke"`
	Source     string      `json:"source"`
	Session    string      `json:"session,omitempty"`
	BindValues []NameValue `json:"bindvalues,omitempty"`
	Select     *SelectArgs `json:"select(),omitempty"`
	Insert     *InsertArgs `json:"insert(),omitempty"`
	Update     *UpdateArgs `json:"update(),omitempty"`
	Delete     *DeleteArgs `json:"delete(),omitempty"`
}

// SelectArgs is the payload of select(). At most one of ForUpdate and
// ForUpdateNoWait is set.
type SelectArgs struct {
	Heading         bool          `json:"heading,omitempty"`
	Columns         []string      `json:"columns"`
	PageSize        int           `json:"page-size,omitempty"`
	Order           string        `json:"order,omitempty"`
	Filters         []interface{} `json:"filters,omitempty"`
	Cursor          *bool         `json:"cursor,omitempty"`
	ForUpdate       bool          `json:"for-update,omitempty"`
	ForUpdateNoWait bool          `json:"for-update-nowait,omitempty"`
	Savepoint       *bool         `json:"savepoint,omitempty"`
	Assertions      []ColumnValue `json:"assertions,omitempty"`
}

// InsertArgs is the payload of insert().
type InsertArgs struct {
	Values    []ColumnValue `json:"values"`
	Returning []string      `json:"returning,omitempty"`
	Savepoint *bool         `json:"savepoint,omitempty"`
}

// UpdateArgs is the payload of update().
type UpdateArgs struct {
	Set        []ColumnValue `json:"set"`
	Filters    []interface{} `json:"filters,omitempty"`
	Returning  []string      `json:"returning,omitempty"`
	Savepoint  *bool         `json:"savepoint,omitempty"`
	Assertions []ColumnValue `json:"assertions,omitempty"`
}

// DeleteArgs is the payload of delete().
type DeleteArgs struct {
	Filters    []interface{} `json:"filters,omitempty"`
	Returning  []string      `json:"returning,omitempty"`
	Savepoint  *bool         `json:"savepoint,omitempty"`
	Assertions []ColumnValue `json:"assertions,omitempty"`
}

// CursorRequest is the envelope for the Cursor target.
type CursorRequest struct {
	Cursor CursorCall `json:"Cursor"`
}

// CursorCall carries fetch and close.
type CursorCall struct {
	Invoke  string     `json:"invoke"`
	Session string     `json:"session,omitempty"`
	Cursor  string     `json:"cursor"`
	Fetch   *FetchArgs `json:"fetch(),omitempty"`
}

// FetchArgs is the optional payload of fetch.
type FetchArgs struct {
	PageSize int `json:"page-size,omitempty"`
}

// CallRequest is the envelope for stored procedure and function calls.
type CallRequest struct {
	Call CallInvoke `json:"Call"`
}

// CallInvoke carries execute.
type CallInvoke struct {
	Invoke  string      `json:"invoke"`
	Source  string      `json:"source"`
	Session string      `json:"session,omitempty"`
	Execute ExecuteArgs `json:"execute()"`
}

// ExecuteArgs is the payload of execute().
type ExecuteArgs struct {
	BindValues []NameValue `json:"bindvalues,omitempty"`
	Savepoint  *bool       `json:"savepoint,omitempty"`
}

// Target returns the top-level key and invoke name of a request document.
// Unknown documents report empty strings.
func Target(request interface{}) (target, invoke, source string) {
	switch r := request.(type) {
	case *SessionRequest:
		return "Session", r.Session.Invoke, ""
	case *TableRequest:
		return "Table", r.Table.Invoke, r.Table.Source
	case *SQLRequest:
		return "Sql", r.SQL.Invoke, r.SQL.Source
	case *CursorRequest:
		return "Cursor", r.Cursor.Invoke, ""
	case *CallRequest:
		return "Call", r.Call.Invoke, r.Call.Source
	default:
		return "", "", ""
	}
}

// Bool returns a pointer to b, for optional flags.
func Bool(b bool) *bool {
	return &b
}
