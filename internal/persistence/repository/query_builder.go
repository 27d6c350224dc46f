package repository

import "strings"

type QueryBuilder struct {
	Conditions []string
	Args       []any
}

func (qb *QueryBuilder) Add(condition string, args ...any) {
	qb.Conditions = append(qb.Conditions, condition)
	qb.Args = append(qb.Args, args...)
}

// AddIf appends the condition only when value is non-empty.
func (qb *QueryBuilder) AddIf(value string, condition string) {
	if value == "" {
		return
	}
	qb.Add(condition, value)
}

func (qb *QueryBuilder) Build() (string, []any) {
	if len(qb.Conditions) == 0 {
		return "", nil
	}
	return strings.Join(qb.Conditions, " AND "), qb.Args
}
