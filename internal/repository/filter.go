package repository

import (
	"fmt"
	"strings"
)

// dialect holds the SQL differences between the backends.
type dialect struct {
	placeholder func(n int) string
	like        string
	tagClause   func(ph string) string
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	like:        "ILIKE",
	tagClause:   func(ph string) string { return ph + " = ANY(tags)" },
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	like:        "LIKE",
	tagClause: func(ph string) string {
		return "EXISTS (SELECT 1 FROM json_each(datasets.tags) WHERE json_each.value = " + ph + ")"
	},
}

// where renders the WHERE clause for p and its arguments.
func (d dialect) where(p ListParams) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return d.placeholder(len(args))
	}

	if s := strings.TrimSpace(p.Search); s != "" {
		pattern := "%" + s + "%"
		conds = append(conds, fmt.Sprintf("(title %s %s OR description %s %s)", d.like, next(pattern), d.like, next(pattern)))
	}
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			conds = append(conds, d.tagClause(next(tag)))
		}
	}
	if p.MinPrice != nil {
		conds = append(conds, "price >= "+next(*p.MinPrice))
	}
	if p.MaxPrice != nil {
		conds = append(conds, "price <= "+next(*p.MaxPrice))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderBy renders ORDER BY for p. p must be normalized.
func orderBy(p ListParams) string {
	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", sortColumns[p.SortBy], dir, dir)
}
