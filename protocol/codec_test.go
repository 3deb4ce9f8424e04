package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestCodecEncode(t *testing.T) {
	codec := NewCodec()

	tests := []struct {
		name     string
		request  interface{}
		expected string
	}{
		{
			name: "connect with defaults",
			request: &SessionRequest{Session: SessionCall{
				Invoke:  InvokeConnect,
				Connect: &ConnectArgs{},
			}},
			expected: `{"Session":{"invoke":"connect()","connect()":{"stateful":false}}}`,
		},
		{
			name: "connect with credentials and vpd",
			request: &SessionRequest{Session: SessionCall{
				Invoke: InvokeConnect,
				Connect: &ConnectArgs{
					Username: "scott",
					Password: "tiger",
					Stateful: true,
					VPD:      []NameValue{{Name: "dept", Value: 10}},
				},
			}},
			expected: `{"Session":{"invoke":"connect()","connect()":{"username":"scott","password":"tiger","stateful":true,"vpd":[{"name":"dept","value":10}]}}}`,
		},
		{
			name: "keepalive",
			request: &SessionRequest{Session: SessionCall{
				Session: "s1",
				Invoke:  InvokeKeepAlive,
			}},
			expected: `{"Session":{"session":"s1","invoke":"keepalive()"}}`,
		},
		{
			name: "describe",
			request: &TableRequest{Table: TableCall{
				Invoke:  InvokeDescribe,
				Source:  "emp",
				Session: "s1",
			}},
			expected: `{"Table":{"invoke":"describe","source":"emp","session":"s1"}}`,
		},
		{
			name: "select without lock",
			request: &TableRequest{Table: TableCall{
				Invoke:  InvokeSelect,
				Source:  "emp",
				Session: "s1",
				Select: &SelectArgs{
					Heading:  true,
					Columns:  []string{"*"},
					PageSize: 16,
					Order:    "empno",
				},
			}},
			expected: `{"Table":{"invoke":"select","source":"emp","session":"s1","select()":{"heading":true,"columns":["*"],"page-size":16,"order":"empno"}}}`,
		},
		{
			name: "select for update nowait",
			request: &TableRequest{Table: TableCall{
				Invoke:  InvokeSelect,
				Source:  "emp",
				Session: "s1",
				Select: &SelectArgs{
					Columns:         []string{"ename"},
					ForUpdateNoWait: true,
					Savepoint:       Bool(false),
				},
			}},
			expected: `{"Table":{"invoke":"select","source":"emp","session":"s1","select()":{"columns":["ename"],"for-update-nowait":true,"savepoint":false}}}`,
		},
		{
			name: "cursor fetch",
			request: &CursorRequest{Cursor: CursorCall{
				Invoke:  InvokeFetch,
				Session: "s1",
				Cursor:  "c7",
				Fetch:   &FetchArgs{PageSize: 32},
			}},
			expected: `{"Cursor":{"invoke":"fetch","session":"s1","cursor":"c7","fetch()":{"page-size":32}}}`,
		},
		{
			name: "procedure call",
			request: &CallRequest{Call: CallInvoke{
				Invoke:  InvokeExecute,
				Source:  "raise_salary",
				Session: "s1",
				Execute: ExecuteArgs{BindValues: []NameValue{{Name: "pct", Value: 5}}},
			}},
			expected: `{"Call":{"invoke":"execute","source":"raise_salary","session":"s1","execute()":{"bindvalues":[{"name":"pct","value":5}]}}}`,
		},
		{
			name: "comparison operators are not escaped",
			request: &TableRequest{Table: TableCall{
				Invoke: InvokeDelete,
				Source: "emp",
				Delete: &DeleteArgs{Filters: []interface{}{map[string]interface{}{"filter": "<=", "column": "sal", "value": 100}}},
			}},
			expected: `{"Table":{"invoke":"delete","source":"emp","delete()":{"filters":[{"column":"sal","filter":"<=","value":100}]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := codec.Encode(tt.request)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("Encode() =\n%s\nwant\n%s", string(result), tt.expected)
			}
		})
	}
}

func TestCodecEncodeNil(t *testing.T) {
	codec := NewCodec()

	if _, err := codec.Encode(nil); err == nil {
		t.Error("expected error encoding nil request")
	}
}

func TestCodecDecode(t *testing.T) {
	codec := NewCodec()

	t.Run("select page", func(t *testing.T) {
		resp, err := codec.Decode([]byte(`{"success":true,"columns":["EMPNO","ENAME"],"cursor":"c1","more":true,"rows":[[7369,"SMITH"],[7499,"ALLEN"]]}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}

		if !resp.Success || !resp.More || resp.Cursor != "c1" {
			t.Errorf("unexpected status fields: %+v", resp)
		}

		rows, err := resp.RowData()
		if err != nil {
			t.Fatalf("RowData() error = %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[1][1] != "ALLEN" {
			t.Errorf("expected ALLEN, got %v", rows[1][1])
		}
	})

	t.Run("describe", func(t *testing.T) {
		resp, err := codec.Decode([]byte(`{"success":true,"order":"empno","primary-key":["empno"],"rows":[{"name":"EMPNO","type":"NUMBER","sqltype":2,"precision":[4,0]},{"name":"HIREDATE","type":"DATE","sqltype":93}]}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}

		columns, err := resp.ColumnInfos()
		if err != nil {
			t.Fatalf("ColumnInfos() error = %v", err)
		}
		if len(columns) != 2 {
			t.Fatalf("expected 2 columns, got %d", len(columns))
		}
		if columns[0].Precision[0] != 4 || columns[1].SQLType != 93 {
			t.Errorf("unexpected column info: %+v", columns)
		}
		if resp.PrimaryKey[0] != "empno" {
			t.Errorf("expected primary key empno, got %v", resp.PrimaryKey)
		}
	})

	t.Run("assertions and failure", func(t *testing.T) {
		resp, err := codec.Decode([]byte(`{"success":false,"message":"row changed","assertions":{"success":false,"violations":[{"column":"sal","expected":100,"actual":200}]}}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}

		if resp.Success {
			t.Error("expected success=false")
		}
		if resp.Assertions == nil || len(resp.Assertions.Violations) != 1 {
			t.Fatalf("expected one violation, got %+v", resp.Assertions)
		}
		if resp.Assertions.Violations[0].Column != "sal" {
			t.Errorf("expected violation on sal, got %s", resp.Assertions.Violations[0].Column)
		}
	})

	t.Run("procedure values", func(t *testing.T) {
		resp, err := codec.Decode([]byte(`{"success":true,"returns":"result","values":[{"name":"result","type":"DATE","sqltype":91,"value":"2023-05-01T00:00:00.000Z"}]}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}

		if len(resp.Values) != 1 || resp.Values[0].Name != "result" || resp.Values[0].Type != "DATE" {
			t.Errorf("unexpected values: %+v", resp.Values)
		}
	})

	t.Run("empty rows", func(t *testing.T) {
		resp, err := codec.Decode([]byte(`{"success":true,"more":false}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}

		rows, err := resp.RowData()
		if err != nil || rows != nil {
			t.Errorf("expected no rows, got %v (%v)", rows, err)
		}
	})
}

func TestCodecDecodeErrors(t *testing.T) {
	codec := NewCodec()

	if _, err := codec.Decode(nil); err == nil {
		t.Error("expected error for empty data")
	}

	if _, err := codec.Decode([]byte("<html>gateway</html>")); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrorCodeAuthFailed, false},
		{500, ErrorCodeHTTPStatus, false},
		{503, ErrorCodeServerUnavailable, true},
		{504, ErrorCodeTimeout, true},
	}

	for _, tt := range tests {
		err := StatusError(tt.status, "")
		if err.Code != tt.code {
			t.Errorf("status %d: expected code %d, got %d", tt.status, tt.code, err.Code)
		}
		if err.IsRetryable != tt.retryable {
			t.Errorf("status %d: expected retryable=%v", tt.status, tt.retryable)
		}
		if !strings.Contains(err.Error(), "status") {
			t.Errorf("expected status in message, got %s", err.Error())
		}

		var te *TransportError
		if !errors.As(error(err), &te) {
			t.Error("expected errors.As to match *TransportError")
		}
	}
}

func TestTarget(t *testing.T) {
	target, invoke, source := Target(&TableRequest{Table: TableCall{Invoke: InvokeSelect, Source: "emp"}})
	if target != "Table" || invoke != "select" || source != "emp" {
		t.Errorf("unexpected target %s/%s/%s", target, invoke, source)
	}

	target, _, _ = Target("not a request")
	if target != "" {
		t.Errorf("expected empty target, got %s", target)
	}
}
