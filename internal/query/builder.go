package query

import (
	"strings"

	"github.com/mesh-intelligence/yorm/internal/schema"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

func names(cols []*schema.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// insertSQL builds an INSERT over cols. With returning set, the generated
// key is selected back with RETURNING.
func (e *Engine) insertSQL(t *schema.Table, cols []*schema.Column, returning bool) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.Name)
	switch {
	case len(cols) > 0:
		b.WriteString(" (")
		b.WriteString(strings.Join(names(cols), ", "))
		b.WriteString(") VALUES (")
		b.WriteString(placeholders(len(cols)))
		b.WriteString(")")
	case e.driver == types.DriverMySQL:
		b.WriteString(" () VALUES ()")
	default:
		b.WriteString(" DEFAULT VALUES")
	}
	if returning {
		b.WriteString(" RETURNING ")
		b.WriteString(types.PrimaryKeyColumn)
	}
	return b.String()
}

func selectSQL(t *schema.Table) string {
	return "SELECT " + strings.Join(t.ColumnNames(), ", ") + " FROM " + t.Name
}

func updateSQL(t *schema.Table, cols []*schema.Column) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c.Name + " = ?"
	}
	return "UPDATE " + t.Name + " SET " + strings.Join(sets, ", ") +
		" WHERE " + types.PrimaryKeyColumn + " = ?"
}

func deleteSQL(t *schema.Table) string {
	return "DELETE FROM " + t.Name + " WHERE " + types.PrimaryKeyColumn + " = ?"
}

func whereEq(cols []string) string {
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = c + " = ?"
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
