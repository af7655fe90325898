package postgrest

import (
	"net/url"
	"strconv"
	"strings"
)

type param struct {
	key   string
	value string
}

// Query addresses rows of one table. Filters are rendered in the order they
// were added.
type Query struct {
	table  string
	params []param
}

// From starts a query on table.
func From(table string) *Query {
	return &Query{table: table}
}

// Table returns the table the query targets.
func (q *Query) Table() string {
	return q.table
}

// Select restricts the returned columns.
func (q *Query) Select(columns ...string) *Query {
	escaped := make([]string, len(columns))
	for i, c := range columns {
		escaped[i] = url.QueryEscape(c)
	}
	q.params = append(q.params, param{"select", strings.Join(escaped, ",")})
	return q
}

// Eq adds column=eq.value.
func (q *Query) Eq(column, value string) *Query {
	return q.filter(column, "eq", value)
}

// Gte adds column=gte.value.
func (q *Query) Gte(column, value string) *Query {
	return q.filter(column, "gte", value)
}

// Lte adds column=lte.value.
func (q *Query) Lte(column, value string) *Query {
	return q.filter(column, "lte", value)
}

// IsNull adds column=is.null.
func (q *Query) IsNull(column string) *Query {
	q.params = append(q.params, param{url.QueryEscape(column), "is.null"})
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params = append(q.params, param{"order", url.QueryEscape(column) + "." + dir})
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.params = append(q.params, param{"limit", strconv.Itoa(n)})
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	q.params = append(q.params, param{"offset", strconv.Itoa(n)})
	return q
}

func (q *Query) filter(column, op, value string) *Query {
	q.params = append(q.params, param{url.QueryEscape(column), op + "." + url.QueryEscape(value)})
	return q
}

// String renders the request path relative to /rest/v1, e.g.
// "cash_wallets?user_id=eq.u1&deleted_at=is.null".
func (q *Query) String() string {
	if len(q.params) == 0 {
		return q.table
	}
	var b strings.Builder
	b.WriteString(q.table)
	for i, p := range q.params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}
