// Package filter compiles predicate trees into the JsonWebDB filter array.
//
// Leaf conditions are Filters, built with the constructors in this package.
// Groups combine Filters and nested Groups with "and"/"or" connectors and
// compile to an ordered array whose first element carries no connector:
//
//	g := filter.Normalize(filter.Equals("a", 1)).Or(filter.Equals("b", 2))
//	g.Parse() // [{filter:"=",column:"a",value:1}, {or:{filter:"=",column:"b",value:2}}]
//
// Bind assigns positional values to the leaf filters that take an argument,
// in flattened left-to-right order.
package filter

import (
	"reflect"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
)

// Filter kinds as they appear on the wire.
const (
	KindEquals     = "="
	KindNotEquals  = "!="
	KindLike       = "like"
	KindNotLike    = "not like"
	KindGreater    = ">"
	KindGreaterEq  = ">="
	KindLess       = "<"
	KindLessEq     = "<="
	KindBetween    = "between"
	KindNotBetween = "not between"
	KindIn         = "in"
	KindNotIn      = "not in"
	KindIsNull     = "is null"
	KindIsNotNull  = "is not null"
	KindExists     = "exists"
	KindNotExists  = "not exists"
	KindCustom     = "custom"
)

// arity describes the argument slot of a filter kind
type arity int

const (
	noArg arity = iota
	singleArg
	multiArg
)

// Predicate is a Filter or a Group.
type Predicate interface {
	compile() interface{}
	collect(dst []*Filter) []*Filter
}

// SubQuery is a statement that can be embedded as a sub-select.
// BasicRequest returns the statement's request document; subqueries are
// embedded without a session id.
type SubQuery interface {
	BasicRequest(withSession bool) interface{}
}

// Arg is a named argument of a custom filter.
type Arg struct {
	Name  string
	Value interface{}
}

// Filter is a single condition.
type Filter struct {
	kind     string
	column   string
	columns  []string
	value    interface{}
	values   []interface{}
	custom   []Arg
	subquery SubQuery
	arity    arity
	bound    bool
}

func single(kind, column string, value interface{}) *Filter {
	return &Filter{kind: kind, column: column, value: value, arity: singleArg, bound: value != nil}
}

func multi(kind, column string, values []interface{}) *Filter {
	return &Filter{kind: kind, column: column, values: values, arity: multiArg, bound: values != nil}
}

// Equals matches column = value
func Equals(column string, value interface{}) *Filter {
	return single(KindEquals, column, value)
}

// NotEquals matches column != value
func NotEquals(column string, value interface{}) *Filter {
	return single(KindNotEquals, column, value)
}

// Like matches column like pattern
func Like(column string, pattern interface{}) *Filter {
	return single(KindLike, column, pattern)
}

// NotLike matches column not like pattern
func NotLike(column string, pattern interface{}) *Filter {
	return single(KindNotLike, column, pattern)
}

// GreaterThan matches column > value, or >= when orEqual is set
func GreaterThan(column string, value interface{}, orEqual bool) *Filter {
	if orEqual {
		return single(KindGreaterEq, column, value)
	}
	return single(KindGreater, column, value)
}

// LessThan matches column < value, or <= when orEqual is set
func LessThan(column string, value interface{}, orEqual bool) *Filter {
	if orEqual {
		return single(KindLessEq, column, value)
	}
	return single(KindLess, column, value)
}

// Between matches from <= column <= to
func Between(column string, from, to interface{}) *Filter {
	return multi(KindBetween, column, []interface{}{from, to})
}

// NotBetween is the negation of Between
func NotBetween(column string, from, to interface{}) *Filter {
	return multi(KindNotBetween, column, []interface{}{from, to})
}

// In matches column against a list of values
func In(column string, values ...interface{}) *Filter {
	return multi(KindIn, column, values)
}

// NotIn is the negation of In
func NotIn(column string, values ...interface{}) *Filter {
	return multi(KindNotIn, column, values)
}

// IsNull matches null columns. It takes no bind value.
func IsNull(column string) *Filter {
	return &Filter{kind: KindIsNull, column: column, arity: noArg}
}

// IsNotNull matches non-null columns. It takes no bind value.
func IsNotNull(column string) *Filter {
	return &Filter{kind: KindIsNotNull, column: column, arity: noArg}
}

// InQuery matches the column tuple against the rows of a subquery
func InQuery(columns []string, q SubQuery) *Filter {
	return &Filter{kind: KindIn, columns: columns, subquery: q}
}

// NotInQuery is the negation of InQuery
func NotInQuery(columns []string, q SubQuery) *Filter {
	return &Filter{kind: KindNotIn, columns: columns, subquery: q}
}

// Exists matches when the subquery returns at least one row
func Exists(q SubQuery) *Filter {
	return &Filter{kind: KindExists, subquery: q}
}

// NotExists matches when the subquery returns no rows
func NotExists(q SubQuery) *Filter {
	return &Filter{kind: KindNotExists, subquery: q}
}

// Custom is a server-defined filter addressed by name. Custom filters do
// not take positional bind values.
func Custom(name string, args ...Arg) *Filter {
	return &Filter{kind: KindCustom, column: name, custom: args}
}

// Kind returns the wire kind, e.g. "=" or "not in"
func (f *Filter) Kind() string { return f.kind }

// Column returns the filtered column, or the name of a custom filter
func (f *Filter) Column() string { return f.column }

// Columns returns the column tuple of a subquery filter
func (f *Filter) Columns() []string { return f.columns }

// Value returns the argument of a single-argument filter
func (f *Filter) Value() interface{} { return f.value }

// Values returns the arguments of a multi-argument filter
func (f *Filter) Values() []interface{} { return f.values }

// Bound reports whether an argument has been supplied
func (f *Filter) Bound() bool { return f.bound }

// SubQuery returns the embedded statement, if any
func (f *Filter) SubQuery() SubQuery { return f.subquery }

// Args reports whether the filter consumes a positional bind value.
func (f *Filter) Args() bool {
	return f.subquery == nil && f.arity != noArg
}

// Bind assigns the filter's argument. Multi-argument filters accept a
// slice; any other value becomes a one-element list. Bind is a no-op on
// filters whose Args is false.
func (f *Filter) Bind(value interface{}) {
	switch {
	case !f.Args():
		return
	case f.arity == singleArg:
		f.value = value
	default:
		f.values = toList(value)
	}
	f.bound = true
}

// Parse compiles the filter to its wire form.
func (f *Filter) Parse() map[string]interface{} {
	if f.kind == KindCustom {
		parsed := map[string]interface{}{"custom": f.column}
		for _, a := range f.custom {
			parsed[a.Name] = wireValue(a.Value)
		}
		return parsed
	}

	parsed := map[string]interface{}{"filter": f.kind}
	if len(f.columns) > 0 {
		parsed["columns"] = f.columns
	} else if f.column != "" {
		parsed["column"] = f.column
	}

	if f.subquery != nil {
		parsed["subquery"] = f.subquery.BasicRequest(false)
		return parsed
	}

	switch f.arity {
	case singleArg:
		parsed["value"] = wireValue(f.value)
	case multiArg:
		values := make([]interface{}, len(f.values))
		for i, v := range f.values {
			values[i] = wireValue(v)
		}
		parsed["values"] = values
	}
	return parsed
}

func (f *Filter) compile() interface{} { return f.Parse() }

func (f *Filter) collect(dst []*Filter) []*Filter { return append(dst, f) }

// wireValue converts dates to the canonical timestamp string
func wireValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return mapper.FormatTimestamp(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return mapper.FormatTimestamp(*t)
	}
	return v
}

func toList(value interface{}) []interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []interface{}{value}
	}
	list := make([]interface{}, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list
}
