package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dagclosure/internal/model"
)

// sqliteTx implements Tx over a database/sql transaction.
type sqliteTx struct {
	tx  *sql.Tx
	sql *statements
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (model.Link, error) {
	var l model.Link
	var direct int
	err := row.Scan(
		&l.ID,
		&l.Ancestor.Type, &l.Ancestor.ID,
		&l.Descendant.Type, &l.Descendant.ID,
		&direct, &l.Count,
	)
	if err != nil {
		return model.Link{}, err
	}
	l.Direct = direct != 0
	return l, nil
}

// FindOne returns the first link matching q, or nil if none does.
func (t *sqliteTx) FindOne(ctx context.Context, q model.Query) (*model.Link, error) {
	query, args := t.sql.selectWhere(q, 1)
	l, err := scanLink(t.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}
	return &l, nil
}

// Find returns all links matching q in deterministic order.
func (t *sqliteTx) Find(ctx context.Context, q model.Query) ([]model.Link, error) {
	query, args := t.sql.selectWhere(q, 0)
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}

	return links, nil
}

// Get retrieves a link by ID. Returns nil if not found.
func (t *sqliteTx) Get(ctx context.Context, id int64) (*model.Link, error) {
	l, err := scanLink(t.tx.QueryRowContext(ctx, t.sql.getByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link %d: %w", id, err)
	}
	return &l, nil
}

// Insert stores a new link and returns it with its assigned ID.
func (t *sqliteTx) Insert(ctx context.Context, l model.Link) (model.Link, error) {
	result, err := t.tx.ExecContext(ctx, t.sql.insert,
		l.Ancestor.Type, l.Ancestor.ID,
		l.Descendant.Type, l.Descendant.ID,
		boolInt(l.Direct), l.Count,
	)
	if isUniqueViolation(err) {
		return model.Link{}, fmt.Errorf("insert link %s -> %s: %w", l.Ancestor, l.Descendant, ErrDuplicate)
	}
	if err != nil {
		return model.Link{}, fmt.Errorf("insert link %s -> %s: %w", l.Ancestor, l.Descendant, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Link{}, fmt.Errorf("insert link: last insert id: %w", err)
	}
	l.ID = id
	return l, nil
}

// Update writes the direct flag and count of an existing link.
func (t *sqliteTx) Update(ctx context.Context, l model.Link) error {
	result, err := t.tx.ExecContext(ctx, t.sql.update, boolInt(l.Direct), l.Count, l.ID)
	if err != nil {
		return fmt.Errorf("update link %d: %w", l.ID, err)
	}
	return requireRow(result, "update", l.ID)
}

// Delete removes a link by ID.
func (t *sqliteTx) Delete(ctx context.Context, l model.Link) error {
	result, err := t.tx.ExecContext(ctx, t.sql.delete, l.ID)
	if err != nil {
		return fmt.Errorf("delete link %d: %w", l.ID, err)
	}
	return requireRow(result, "delete", l.ID)
}

func requireRow(result sql.Result, op string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s link %d: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s link %d: %w", op, id, ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
