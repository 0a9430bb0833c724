package repository

import "github.com/doug-martin/goqu/v9"

// QueryBuilder collects optional list filters and renders them as a goqu
// expression, renaming keys through aliases when the query uses joins.
type QueryBuilder interface {
	AddCondition(key string, value interface{})
	BuildConditions(aliases map[string]string) goqu.Ex
}
