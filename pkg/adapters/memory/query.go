package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/livelist/pkg/core"
)

// Direction is the sort direction of an OrderBy clause.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Operator is a Where comparison.
type Operator string

const (
	Equal          Operator = "=="
	NotEqual       Operator = "!="
	Less           Operator = "<"
	LessOrEqual    Operator = "<="
	Greater        Operator = ">"
	GreaterOrEqual Operator = ">="
)

// ParseOperator validates an operator string.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

type filter struct {
	field string
	op    Operator
	value any
}

type order struct {
	field string
	dir   Direction
}

// cursor is the document a query starts after. Its sort values are read
// against the clauses in effect when the query runs.
type cursor struct {
	fields core.Fields
	id     string
}

// Query is an immutable query over one collection of a Store.
// Builder methods return modified copies.
type Query struct {
	store      *Store
	collection string
	filters    []filter
	orders     []order
	limit      int
	after      *cursor
}

// Collection returns the name of the queried collection.
func (q Query) Collection() string {
	return q.collection
}

// Where adds a filter clause.
func (q Query) Where(field string, op Operator, value any) Query {
	q.filters = append(append([]filter(nil), q.filters...), filter{field: field, op: op, value: value})
	return q
}

// OrderBy adds a sort clause. Ties are always broken by document ID.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.orders = append(append([]order(nil), q.orders...), order{field: field, dir: dir})
	return q
}

// Limit bounds the number of results. Zero or less means unbounded.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// StartAfter implements core.Query.
func (q Query) StartAfter(doc core.Document) core.Query {
	return q.After(doc)
}

// After is StartAfter returning the concrete type.
func (q Query) After(doc core.Document) Query {
	q.after = &cursor{id: doc.ID, fields: doc.Fields.Clone()}
	return q
}

func (q Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "collection(%q)", q.collection)
	for _, f := range q.filters {
		fmt.Fprintf(&b, ".where(%s %s %v)", f.field, f.op, f.value)
	}
	for _, o := range q.orders {
		dir := "asc"
		if o.dir == Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, ".orderBy(%s %s)", o.field, dir)
	}
	if q.after != nil {
		fmt.Fprintf(&b, ".startAfter(%s)", q.after.id)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, ".limit(%d)", q.limit)
	}
	return b.String()
}

// matches reports whether a document satisfies every filter.
func (q Query) matches(doc core.Document) bool {
	for _, f := range q.filters {
		v, ok := doc.Fields[f.field]
		if !ok {
			return false
		}
		c := compareValues(v, f.value)
		switch f.op {
		case Equal:
			if c != 0 {
				return false
			}
		case NotEqual:
			if c == 0 {
				return false
			}
		case Less:
			if c >= 0 {
				return false
			}
		case LessOrEqual:
			if c > 0 {
				return false
			}
		case Greater:
			if c <= 0 {
				return false
			}
		case GreaterOrEqual:
			if c < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compare orders two documents by the query's sort clauses, then by ID.
func (q Query) compare(a, b core.Document) int {
	for _, o := range q.orders {
		c := compareValues(a.Fields[o.field], b.Fields[o.field])
		if o.dir == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(a.ID, b.ID)
}

// afterCursor reports whether doc sorts strictly after the cursor.
func (q Query) afterCursor(doc core.Document) bool {
	if q.after == nil {
		return true
	}
	for _, o := range q.orders {
		c := compareValues(doc.Fields[o.field], q.after.fields[o.field])
		if o.dir == Desc {
			c = -c
		}
		if c != 0 {
			return c > 0
		}
	}
	return strings.Compare(doc.ID, q.after.id) > 0
}

// evaluate runs the query over docs.
func (q Query) evaluate(docs []core.Document) []core.Document {
	result := make([]core.Document, 0, len(docs))
	for _, d := range docs {
		if q.matches(d) && q.afterCursor(d) {
			result = append(result, d)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return q.compare(result[i], result[j]) < 0
	})
	if q.limit > 0 && len(result) > q.limit {
		result = result[:q.limit]
	}
	return result
}
