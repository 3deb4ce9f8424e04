package testutil_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dan-strohschein/jsonwebdb-driver/testutil"
)

func TestMockServerMatchesTargetAndSource(t *testing.T) {
	srv := testutil.NewMockServer()
	srv.ExpectDescribe("emp", testutil.EmployeeDescribe())
	srv.ExpectDescribe("dept", testutil.Rejected("no such table"))

	data, err := srv.Handle("", []byte(`{"Table":{"invoke":"describe","source":"DEPT"}}`))
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, string(data), "no such table")

	data, err = srv.Handle("", []byte(`{"Table":{"invoke":"describe","source":"emp"}}`))
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, string(data), `"primary-key"`)

	srv.VerifyExpectations(t)

	if n := srv.GetCallCount("Table", "describe"); n != 2 {
		t.Errorf("expected 2 describe calls, got %d", n)
	}
}

func TestMockServerUnexpected(t *testing.T) {
	srv := testutil.NewMockServer()

	data, err := srv.Handle("", []byte(`{"Cursor":{"invoke":"fetch","cursor":"c1"}}`))
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, string(data), `"success":false`)

	srv.Strict()
	_, err = srv.Handle("", []byte(`{"Cursor":{"invoke":"fetch","cursor":"c1"}}`))
	testutil.RequireError(t, err)
}

func TestMockServerTimesAndErrors(t *testing.T) {
	srv := testutil.NewMockServer()
	boom := errors.New("boom")
	srv.Expect("Session", "keepalive()").Twice()
	srv.Expect("Session", "disconnect()").WillReturnError(boom)

	for i := 0; i < 2; i++ {
		if _, err := srv.Handle("", []byte(`{"Session":{"invoke":"keepalive()","session":"s"}}`)); err != nil {
			t.Fatalf("keepalive %d: %v", i, err)
		}
	}
	if _, err := srv.Handle("", []byte(`{"Session":{"invoke":"disconnect()","session":"s"}}`)); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	srv.VerifyExpectations(t)

	call, ok := srv.LastCall("Session", "disconnect()")
	if !ok || call.Session != "s" {
		t.Errorf("unexpected last call %+v", call)
	}
}

func TestMockServerHTTP(t *testing.T) {
	srv := testutil.NewMockServer()
	srv.ExpectConnect("s-1", 60)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(`{"Session":{"invoke":"connect()","connect()":{"stateful":false}}}`))
	testutil.RequireNoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	call, _ := srv.LastCall("Session", "connect()")
	if call.Payload() == nil {
		t.Error("expected connect() payload")
	}
}

func TestEmployeeFactory(t *testing.T) {
	f := testutil.NewEmployeeFactory()
	rows := f.BuildList(3, testutil.WithField("salary", 2000))

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] == rows[1][0] {
		t.Error("expected unique ids")
	}
	for _, row := range rows {
		if len(row) != len(testutil.EmployeeColumns) {
			t.Fatalf("row width %d", len(row))
		}
		if row[3] != 2000 {
			t.Errorf("salary = %v, want 2000", row[3])
		}
	}
}
