package backend

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Op is a filter operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
	OpIs  Op = "is"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

// Order sorts by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a select: filters, ordering, limit and single-row fetch.
type Query struct {
	Columns []string
	Filters []Filter
	Orders  []Order
	Limit   int
	Single  bool
}

// Eq adds an equality filter.
func (q Query) Eq(column string, value interface{}) Query {
	return q.Where(column, OpEq, value)
}

// Where adds an arbitrary filter.
func (q Query) Where(column string, op Op, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: op, Value: value})
	return q
}

// In adds a membership filter.
func (q Query) In(column string, values []string) Query {
	return q.Where(column, OpIn, values)
}

// OrderBy appends a sort column.
func (q Query) OrderBy(column string, ascending bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Column: column, Descending: !ascending})
	return q
}

// WithLimit caps the number of rows.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// SingleRow expects exactly one row; none yields ErrNoRows.
func (q Query) SingleRow() Query {
	q.Single = true
	q.Limit = 1
	return q
}

// Eq builds an equality filter for updates.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Validate rejects identifiers that are not plain snake_case names.
func (q Query) Validate() error {
	for _, c := range q.Columns {
		if err := validIdentifier(c); err != nil {
			return err
		}
	}
	if err := validateFilters(q.Filters); err != nil {
		return err
	}
	for _, o := range q.Orders {
		if err := validIdentifier(o.Column); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("backend: negative limit %d", q.Limit)
	}
	return nil
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if err := validIdentifier(f.Column); err != nil {
			return err
		}
		switch f.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIs:
		case OpIn:
			if _, ok := f.Value.([]string); !ok {
				return fmt.Errorf("backend: %s in-filter needs []string", f.Column)
			}
		default:
			return fmt.Errorf("backend: unsupported operator %q", f.Op)
		}
	}
	return nil
}

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("backend: invalid identifier %q", name)
	}
	return nil
}

// formatValue renders a filter value the way the REST provider expects it.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return "null"
		}
		return val.UTC().Format(time.RFC3339Nano)
	case []string:
		quoted := make([]string, len(val))
		for i, s := range val {
			quoted[i] = quoteListItem(s)
		}
		return "(" + strings.Join(quoted, ",") + ")"
	default:
		return fmt.Sprint(val)
	}
}

func quoteListItem(s string) string {
	if strings.ContainsAny(s, ",()\" ") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
