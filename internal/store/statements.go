package store

import (
	"fmt"
	"strings"

	"github.com/roach88/dagclosure/internal/model"
)

// statements holds SQL rendered once from the configured column names.
type statements struct {
	cols model.Columns

	selectCols string
	orderBy    string
	getByID    string
	insert     string
	update     string
	delete     string
}

func buildStatements(c model.Columns) statements {
	t := quote(c.Table)
	id := quote(model.IDColumn)
	selectCols := strings.Join([]string{
		id,
		quote(c.AncestorType), quote(c.AncestorID),
		quote(c.DescendantType), quote(c.DescendantID),
		quote(c.Direct), quote(c.Count),
	}, ", ")

	return statements{
		cols:       c,
		selectCols: selectCols,
		orderBy: fmt.Sprintf(
			"ORDER BY %s COLLATE BINARY ASC, %s COLLATE BINARY ASC, %s COLLATE BINARY ASC, %s COLLATE BINARY ASC",
			quote(c.AncestorType), quote(c.AncestorID), quote(c.DescendantType), quote(c.DescendantID),
		),
		getByID: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", selectCols, t, id),
		insert: fmt.Sprintf(
			"INSERT INTO %s (%s, %s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?, ?)",
			t, quote(c.AncestorType), quote(c.AncestorID),
			quote(c.DescendantType), quote(c.DescendantID),
			quote(c.Direct), quote(c.Count),
		),
		// Identity columns are immutable, so only direct and count are set.
		update: fmt.Sprintf(
			"UPDATE %s SET %s = ?, %s = ? WHERE %s = ?",
			t, quote(c.Direct), quote(c.Count), id,
		),
		delete: fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t, id),
	}
}

// selectWhere renders a filtered SELECT for q.
func (s *statements) selectWhere(q model.Query, limit int) (string, []any) {
	c := s.cols
	var conds []string
	var args []any

	if q.Ancestor != nil {
		conds = append(conds, quote(c.AncestorType)+" = ?", quote(c.AncestorID)+" = ?")
		args = append(args, q.Ancestor.Type, q.Ancestor.ID)
	}
	if q.Descendant != nil {
		conds = append(conds, quote(c.DescendantType)+" = ?", quote(c.DescendantID)+" = ?")
		args = append(args, q.Descendant.Type, q.Descendant.ID)
	}
	if q.AncestorType != "" {
		conds = append(conds, quote(c.AncestorType)+" = ?")
		args = append(args, q.AncestorType)
	}
	if q.DescendantType != "" {
		conds = append(conds, quote(c.DescendantType)+" = ?")
		args = append(args, q.DescendantType)
	}
	switch q.Direct {
	case model.DirectOnly:
		conds = append(conds, quote(c.Direct)+" = 1")
	case model.IndirectOnly:
		conds = append(conds, quote(c.Direct)+" = 0")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", s.selectCols, quote(c.Table))
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ")
	b.WriteString(s.orderBy)
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String(), args
}
