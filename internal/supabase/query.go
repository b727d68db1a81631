package supabase

import (
	"net/url"
	"strconv"
	"strings"
)

// query はPostgRESTのクエリパラメータを組み立てる。
type query struct {
	v url.Values
}

func newQuery() *query {
	return &query{v: url.Values{}}
}

func (q *query) selectCols(cols string) *query {
	q.v.Set("select", cols)
	return q
}

func (q *query) eq(col, val string) *query {
	q.v.Add(col, "eq."+val)
	return q
}

// in は col IN (vals...) 。値はダブルクオートで囲む。
func (q *query) in(col string, vals []string) *query {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
	}
	q.v.Add(col, "in.("+strings.Join(quoted, ",")+")")
	return q
}

func (q *query) order(col string, ascending bool) *query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.v.Set("order", col+"."+dir)
	return q
}

func (q *query) limit(n int) *query {
	q.v.Set("limit", strconv.Itoa(n))
	return q
}

func (q *query) values() url.Values {
	return q.v
}
