package filter

// Connectors joining group entries.
const (
	And = "and"
	Or  = "or"
)

type entry struct {
	connector string
	predicate Predicate
}

// Group is an ordered list of predicates joined by connectors.
// The connector of the first entry is never emitted.
type Group struct {
	entries []entry
}

// NewGroup returns an empty group
func NewGroup() *Group {
	return &Group{}
}

// Normalize folds its input into one group. It returns nil for no input
// and the group itself when given a single *Group; otherwise every
// predicate is added with "and". Nil predicates are skipped.
func Normalize(preds ...Predicate) *Group {
	var nonNil []Predicate
	for _, p := range preds {
		if p == nil || isNilGroup(p) || isNilFilter(p) {
			continue
		}
		nonNil = append(nonNil, p)
	}

	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		if g, ok := nonNil[0].(*Group); ok {
			return g
		}
	}

	g := NewGroup()
	for _, p := range nonNil {
		g.Add(p)
	}
	return g
}

func isNilGroup(p Predicate) bool {
	g, ok := p.(*Group)
	return ok && g == nil
}

func isNilFilter(p Predicate) bool {
	f, ok := p.(*Filter)
	return ok && f == nil
}

// Add appends p with connector "and"
func (g *Group) Add(p Predicate) *Group {
	g.entries = append(g.entries, entry{connector: And, predicate: p})
	return g
}

// Or appends p with connector "or"
func (g *Group) Or(p Predicate) *Group {
	g.entries = append(g.entries, entry{connector: Or, predicate: p})
	return g
}

// Len returns the number of direct entries
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Parse compiles the group. An empty group compiles to nil.
func (g *Group) Parse() []interface{} {
	if g == nil || len(g.entries) == 0 {
		return nil
	}

	parsed := make([]interface{}, 0, len(g.entries))
	for i, e := range g.entries {
		compiled := e.predicate.compile()
		if i == 0 {
			parsed = append(parsed, compiled)
			continue
		}
		parsed = append(parsed, map[string]interface{}{e.connector: compiled})
	}
	return parsed
}

// Filters returns the leaf filters in left-to-right order, descending
// into nested groups. Subqueries are not descended into.
func (g *Group) Filters() []*Filter {
	if g == nil {
		return nil
	}
	return g.collect(nil)
}

// Bind assigns values positionally to the filters whose Args is true,
// in Filters order. Missing values leave trailing filters untouched and
// extra values are ignored.
func (g *Group) Bind(values ...interface{}) *Group {
	next := 0
	for _, f := range g.Filters() {
		if next >= len(values) {
			break
		}
		if !f.Args() {
			continue
		}
		f.Bind(values[next])
		next++
	}
	return g
}

// Args reports whether any leaf filter takes a bind value
func (g *Group) Args() bool {
	for _, f := range g.Filters() {
		if f.Args() {
			return true
		}
	}
	return false
}

func (g *Group) compile() interface{} {
	parsed := g.Parse()
	if parsed == nil {
		return []interface{}{}
	}
	return parsed
}

func (g *Group) collect(dst []*Filter) []*Filter {
	for _, e := range g.entries {
		dst = e.predicate.collect(dst)
	}
	return dst
}
