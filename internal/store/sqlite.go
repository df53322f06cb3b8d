package store

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/dagclosure/internal/model"
)

//go:embed schema.sql.tmpl
var schemaTemplate string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added descendant lookup index
const currentSchemaVersion = 1

// SQLite stores closure links in a single SQLite table.
type SQLite struct {
	db   *sql.DB
	cols model.Columns
	sql  statements
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithColumns sets the table and column names. Empty names fall back to
// model.DefaultColumns.
func WithColumns(c model.Columns) Option {
	return func(s *SQLite) {
		s.cols = c.WithDefaults()
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// Use ":memory:" for a private in-memory database. The connection pool is
// limited to one connection, which also keeps an in-memory database alive
// for the lifetime of the store.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*SQLite, error) {
	s := &SQLite{cols: model.DefaultColumns()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cols.Validate(); err != nil {
		return nil, fmt.Errorf("invalid columns: %w", err)
	}

	db, err := sql.Open("sqlite3", withTxLock(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db, s.cols); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.db = db
	s.sql = buildStatements(s.cols)
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Columns returns the resolved table and column names.
func (s *SQLite) Columns() model.Columns {
	return s.cols
}

// Update runs fn inside a read-write transaction.
func (s *SQLite) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&sqliteTx{tx: tx, sql: &s.sql}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *SQLite) View(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{tx: tx, sql: &s.sql})
}

// withTxLock makes every BEGIN take the write lock immediately.
func withTxLock(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate"
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the link table if it doesn't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB, cols model.Columns) error {
	schema, err := renderSchema(cols)
	if err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db, cols); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func renderSchema(cols model.Columns) (string, error) {
	tmpl, err := template.New("schema").Funcs(template.FuncMap{"q": quote}).Parse(schemaTemplate)
	if err != nil {
		return "", fmt.Errorf("parse schema template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cols); err != nil {
		return "", fmt.Errorf("render schema: %w", err)
	}
	return buf.String(), nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB, cols model.Columns) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db, cols); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the index used to gather every link ending at a node.
// Rewiring runs that lookup once per pass.
func migrateToV1(db *sql.DB, cols model.Columns) error {
	_, err := db.Exec(fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s(%s, %s)`,
		quote("idx_"+cols.Table+"_descendant"),
		quote(cols.Table),
		quote(cols.DescendantType),
		quote(cols.DescendantID),
	))
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
