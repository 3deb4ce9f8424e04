package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/client"
	"github.com/dan-strohschein/jsonwebdb-driver/filter"
	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

func handlePing(args []string) error {
	fs, conn := newFlagSet("ping")
	verbose := fs.Bool("verbose", false, "Dump session debug info")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := conn.context()
	defer cancel()

	start := time.Now()
	s, release, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	printSuccess(fmt.Sprintf("connected to %s in %dms (session timeout %ds)",
		s.URL(), time.Since(start).Milliseconds(), s.Timeout()))
	if *verbose {
		fmt.Fprintln(stdout, s.DumpDebugInfoJSON())
	}
	return nil
}

func handleDescribe(args []string) error {
	fs, conn := newFlagSet("describe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: jsonwebdb describe [options] <source>")
	}
	source := fs.Arg(0)

	ctx, cancel := conn.context()
	defer cancel()

	s, release, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	table, err := s.Table(source)
	if err != nil {
		return err
	}
	ok, err := table.Describe(ctx)
	if err != nil {
		return fmt.Errorf("describe: %s", conn.format(err))
	}
	if !ok {
		return fmt.Errorf("describe rejected: %s", table.ErrorMessage())
	}

	def, ok := s.Cache().Get(source)
	if !ok {
		return fmt.Errorf("no definition cached for %s", source)
	}
	printHeader(source)
	if order := table.Order(); order != "" {
		printInfo("order: " + order)
	}
	if pk := table.PrimaryKey(); len(pk) > 0 {
		printInfo("primary key: " + strings.Join(pk, ", "))
	}

	rows := make([][]string, 0, len(def.Columns))
	for _, col := range def.Columns {
		precision := make([]string, len(col.Precision))
		for i, p := range col.Precision {
			precision[i] = strconv.Itoa(p)
		}
		rows = append(rows, []string{col.Name, col.Type, strings.Join(precision, ",")})
	}
	printTable([]string{"COLUMN", "TYPE", "PRECISION"}, rows)
	return nil
}

// whereFlags collects repeated -where column=value options.
type whereFlags []filter.Predicate

func (w *whereFlags) String() string { return fmt.Sprintf("%d filters", len(*w)) }

func (w *whereFlags) Set(v string) error {
	column, value, ok := strings.Cut(v, "=")
	if !ok || column == "" {
		return fmt.Errorf("expected column=value, got %q", v)
	}
	if value == "null" {
		*w = append(*w, filter.IsNull(column))
		return nil
	}
	*w = append(*w, filter.Equals(column, parseValue(value)))
	return nil
}

func handleQuery(args []string) error {
	fs, conn := newFlagSet("query")
	columns := fs.String("columns", "*", "Comma separated columns")
	order := fs.String("order", "", "Order by clause, defaults to the table order")
	limit := fs.Int("limit", 20, "Rows to print, 0 for all")
	page := fs.Int("page", 0, "Rows per page, defaults to the driver setting")
	var where whereFlags
	fs.Var(&where, "where", "Filter column=value, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: jsonwebdb query [options] <source>")
	}

	ctx, cancel := conn.context()
	defer cancel()

	s, release, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	table, err := s.Table(fs.Arg(0))
	if err != nil {
		return err
	}

	q := table.Query(splitList(*columns), where...)
	if *order != "" {
		q.SetOrder(*order)
	}
	if *page > 0 {
		q.SetArrayFetch(*page)
	}

	cursor, err := q.Execute(ctx)
	if err != nil {
		return fmt.Errorf("query: %s", conn.format(err))
	}
	if cursor == nil {
		return fmt.Errorf("query rejected: %s", q.ErrorMessage())
	}
	return printCursor(ctx, cursor, *limit, conn)
}

func handleSQL(args []string) error {
	fs, conn := newFlagSet("sql")
	limit := fs.Int("limit", 20, "Rows to print, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: jsonwebdb sql [options] <statement>")
	}

	ctx, cancel := conn.context()
	defer cancel()

	s, release, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	stmt, err := client.NewAnySQL(s, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	cursor, err := stmt.Select(ctx)
	if err != nil {
		return fmt.Errorf("sql: %s", conn.format(err))
	}
	if cursor == nil {
		return fmt.Errorf("sql rejected: %s", stmt.ErrorMessage())
	}
	return printCursor(ctx, cursor, *limit, conn)
}

func handleCall(args []string) error {
	fs, conn := newFlagSet("call")
	savepoint := fs.Bool("savepoint", false, "Roll back the call on failure")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: jsonwebdb call [options] <procedure> [name=value ...]")
	}

	params := make([]protocol.NameValue, 0, fs.NArg()-1)
	for _, arg := range fs.Args()[1:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return fmt.Errorf("expected name=value, got %q", arg)
		}
		params = append(params, client.Param(name, parseValue(value)))
	}

	ctx, cancel := conn.context()
	defer cancel()

	s, release, err := conn.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	proc, err := client.NewProcedure(s, fs.Arg(0))
	if err != nil {
		return err
	}
	if *savepoint {
		proc.UseSavePoint(true)
	}

	ok, err := proc.Execute(ctx, params...)
	if err != nil {
		return fmt.Errorf("call: %s", conn.format(err))
	}
	if !ok {
		return fmt.Errorf("call rejected: %s", proc.ErrorMessage())
	}

	printSuccess(fmt.Sprintf("%s executed", proc.Source()))
	rows := make([][]string, 0, len(proc.Names()))
	for _, name := range proc.Names() {
		label := name
		if name == proc.ReturnValue() {
			label += " (return)"
		}
		rows = append(rows, []string{label, mapper.ToString(proc.Value(name))})
	}
	if len(rows) > 0 {
		printTable([]string{"PARAMETER", "VALUE"}, rows)
	}
	return nil
}

// printCursor prints up to limit rows and closes the cursor.
func printCursor(ctx context.Context, cursor *client.Cursor, limit int, conn *connFlags) error {
	var rows [][]string
	for limit <= 0 || len(rows) < limit {
		ok, err := cursor.Next(ctx)
		if err != nil {
			return fmt.Errorf("fetch: %s", conn.format(err))
		}
		if !ok {
			break
		}
		row := cursor.Fetch()
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		rows = append(rows, cells)
	}
	if cursor.Failed() {
		return fmt.Errorf("fetch rejected: %s", cursor.ErrorMessage())
	}

	truncated := cursor.More() || cursor.Buffered() > 0
	if _, err := cursor.Close(ctx); err != nil {
		printWarning(fmt.Sprintf("close cursor: %s", conn.format(err)))
	}

	headers := make([]string, len(cursor.Columns()))
	for i, c := range cursor.Columns() {
		headers[i] = strings.ToUpper(c)
	}
	printTable(headers, rows)

	summary := fmt.Sprintf("%d rows", len(rows))
	if truncated {
		summary += colorDim(" (more available)")
	}
	fmt.Fprintln(stdout, summary)
	return nil
}

func formatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return colorDim("null")
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return mapper.ToString(v)
	}
}

// parseValue turns a command line literal into a number or bool where it
// parses as one, and keeps it a string otherwise.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return strings.Trim(s, `'"`)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
