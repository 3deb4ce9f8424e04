package client

import (
	"context"
	"strings"
	"sync"

	"github.com/dan-strohschein/jsonwebdb-driver/filter"
	"github.com/dan-strohschein/jsonwebdb-driver/mapper"
	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// ColumnDefinition is a column as reported by describe.
type ColumnDefinition struct {
	Name      string
	Type      string
	SQLType   int
	Precision []int
}

// IsTemporal reports whether the column holds dates or timestamps.
func (c *ColumnDefinition) IsTemporal() bool {
	return mapper.IsTemporalType(c.Type)
}

// TableDefinition is the cached result of describing a source.
type TableDefinition struct {
	Order      string
	PrimaryKey []string
	Columns    []ColumnDefinition
}

// Column returns the named column, ignoring case.
func (d *TableDefinition) Column(name string) (*ColumnDefinition, bool) {
	for i := range d.Columns {
		if strings.EqualFold(d.Columns[i].Name, name) {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

func definitionFromResponse(resp *protocol.Response) (*TableDefinition, error) {
	infos, err := resp.ColumnInfos()
	if err != nil {
		return nil, err
	}

	def := &TableDefinition{
		Order:      resp.Order,
		PrimaryKey: resp.PrimaryKey,
		Columns:    make([]ColumnDefinition, 0, len(infos)),
	}
	for _, info := range infos {
		def.Columns = append(def.Columns, ColumnDefinition{
			Name:      info.Name,
			Type:      info.Type,
			SQLType:   info.SQLType,
			Precision: info.Precision,
		})
	}
	return def, nil
}

// rejection carries a success:false response through the definition
// cache without being cached.
type rejection struct {
	message string
}

func (r *rejection) Error() string { return r.message }

// Table is a source (table, view or custom statement) on a session.
type Table struct {
	session    *Session
	source     string
	arrayFetch int

	mu         sync.Mutex
	order      string
	primaryKey []string
	columns    map[string]*ColumnDefinition
	bindValues []protocol.NameValue
	described  bool
	failed     bool
	message    string
}

// NewTable returns a Table for source. It fails with a *UsageError when
// session is nil or source is empty.
func NewTable(session *Session, source string) (*Table, error) {
	if session == nil {
		return nil, newUsageError(nil, messages.SessionIsNull, "Table")
	}
	if source == "" {
		return nil, newUsageError(session.catalog, messages.SourceIsNull, "Table")
	}
	return &Table{
		session:    session,
		source:     source,
		arrayFetch: session.opts.DefaultArrayFetch,
		columns:    make(map[string]*ColumnDefinition),
	}, nil
}

// Source returns the source name.
func (t *Table) Source() string { return t.source }

// Session returns the owning session.
func (t *Table) Session() *Session { return t.session }

// Failed reports whether the last describe or query was rejected.
func (t *Table) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// ErrorMessage returns the server message of the last rejected call.
func (t *Table) ErrorMessage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Order returns the default order, from SetOrder or describe.
func (t *Table) Order() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order
}

// SetOrder sets the default order used by new queries.
func (t *Table) SetOrder(order string) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = order
	return t
}

// PrimaryKey returns the primary key columns.
func (t *Table) PrimaryKey() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primaryKey
}

// SetPrimaryKey overrides the primary key reported by describe.
func (t *Table) SetPrimaryKey(columns ...string) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.primaryKey = columns
	return t
}

// SetArrayFetch sets the page size used by ExecuteQuery.
func (t *Table) SetArrayFetch(rows int) *Table {
	t.arrayFetch = rows
	return t
}

// SetBindValues sets bind values sent with every statement on this table.
// Custom sources use them to parameterize the underlying statement.
func (t *Table) SetBindValues(values ...protocol.NameValue) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindValues = values
	return t
}

// AddBindValue appends one table-level bind value.
func (t *Table) AddBindValue(name string, value interface{}) *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindValues = append(t.bindValues, protocol.NameValue{Name: name, Value: mapper.Normalize(value)})
	return t
}

// BindValues returns the table-level bind values.
func (t *Table) BindValues() []protocol.NameValue {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bindValues
}

// Column returns the definition of a described column, ignoring case.
func (t *Table) Column(name string) (*ColumnDefinition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	def, ok := t.columns[strings.ToLower(name)]
	return def, ok
}

// ColumnDefinitions returns a copy of the described columns keyed by
// lowercased name.
func (t *Table) ColumnDefinitions() map[string]*ColumnDefinition {
	t.mu.Lock()
	defer t.mu.Unlock()
	defs := make(map[string]*ColumnDefinition, len(t.columns))
	for k, v := range t.columns {
		defs[k] = v
	}
	return defs
}

// Describe makes sure the source's definition is cached and adopted by the
// table. The first describe of a source costs one round trip; later calls,
// from any table sharing the cache, are served from the cache.
//
// A rejected describe returns false with no error and marks the table
// failed. Once the cache entry is invalidated or purged the next Describe
// fetches and adopts the definition again.
func (t *Table) Describe(ctx context.Context) (bool, error) {
	t.mu.Lock()
	described := t.described
	t.mu.Unlock()
	if described {
		if _, ok := t.session.cache.Get(t.source); ok {
			return true, nil
		}
	}

	def, err := t.session.cache.Load(ctx, t.source, t.fetchDefinition)
	if err != nil {
		if r, ok := err.(*rejection); ok {
			t.mu.Lock()
			t.failed = true
			t.message = r.message
			t.mu.Unlock()
			return false, nil
		}
		return false, err
	}

	t.adopt(def)
	return true, nil
}

func (t *Table) fetchDefinition(ctx context.Context) (*TableDefinition, error) {
	resp, err := t.session.Invoke(ctx, &protocol.TableRequest{
		Table: protocol.TableCall{
			Invoke:  protocol.InvokeDescribe,
			Source:  t.source,
			Session: t.session.SessionID(),
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &rejection{message: resp.Message}
	}

	def, err := definitionFromResponse(resp)
	if err != nil {
		return nil, newProtocolError(protocol.InvokeDescribe, err)
	}
	return def, nil
}

// adopt takes order and primary key from def unless already set.
func (t *Table) adopt(def *TableDefinition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.order == "" {
		t.order = def.Order
	}
	if t.primaryKey == nil {
		t.primaryKey = def.PrimaryKey
	}
	for i := range def.Columns {
		col := def.Columns[i]
		t.columns[strings.ToLower(col.Name)] = &col
	}
	t.described = true
	t.failed = false
	t.message = ""
}

// Query returns a select statement on this table. No columns means "*".
func (t *Table) Query(columns []string, filters ...filter.Predicate) *Query {
	return newQuery(t, columns, filters...)
}

// Insert returns an insert statement for record.
func (t *Table) Insert(record *Record) *Insert {
	return newInsert(t, record)
}

// Update returns an update statement setting the values in record.
func (t *Table) Update(record *Record, filters ...filter.Predicate) *Update {
	return newUpdate(t, record, filters...)
}

// Delete returns a delete statement.
func (t *Table) Delete(filters ...filter.Predicate) *Delete {
	return newDelete(t, filters...)
}

// ExecuteQuery selects columns from the whole source. With closeCursor set
// the server returns the first page only and keeps no cursor.
func (t *Table) ExecuteQuery(ctx context.Context, columns []string, closeCursor bool) (*Cursor, error) {
	q := newQuery(t, columns).SetArrayFetch(t.arrayFetch).SetCloseCursor(closeCursor)
	cursor, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.failed = q.Failed()
	t.message = q.ErrorMessage()
	t.mu.Unlock()
	return cursor, nil
}
