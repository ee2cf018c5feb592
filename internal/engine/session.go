// Package engine provides the interpreter's in-process tabular engine: an
// in-memory SQLite database holding one materialized table per graph node.
//
// A Session is scoped to a single interpreter run. It is created fresh per
// request and closed when the run finishes; nothing is shared across
// requests, so node aliases can never leak between unrelated graphs.
package engine

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pipeweld/pipeweld/internal/tabular"
)

// Session wraps one in-memory SQLite connection used to evaluate graph
// nodes. Not safe for concurrent use; each run owns its session.
type Session struct {
	db  *sql.DB
	seq int
}

// NewSession opens a fresh in-memory database.
func NewSession() (*Session, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}

	// A :memory: database exists per connection; more than one connection
	// in the pool would silently split the tables across databases.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to in-memory database: %w", err)
	}
	return &Session{db: db}, nil
}

// Close releases the session's database.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Materialize stores a table under a fresh alias and returns the alias for
// use in later Eval queries. A table with no columns cannot be represented
// in SQL and returns an error; callers treat that as the empty-input case.
func (s *Session) Materialize(t tabular.Table) (string, error) {
	if t.IsEmpty() {
		return "", fmt.Errorf("cannot materialize a table with no columns")
	}

	s.seq++
	alias := fmt.Sprintf("t%d", s.seq)

	cols := make([]string, len(t.Columns))
	dtypes := t.DTypes()
	for i, c := range t.Columns {
		cols[i] = QuoteIdent(c) + " " + sqliteAffinity(dtypes[i])
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", alias, strings.Join(cols, ", "))
	if _, err := s.db.Exec(create); err != nil {
		return "", fmt.Errorf("create table %s: %w", alias, err)
	}

	if len(t.Rows) == 0 {
		return alias, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin insert into %s: %w", alias, err)
	}
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(t.Columns)), ",") + ")"
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES %s", alias, placeholders))
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("prepare insert into %s: %w", alias, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for j := range args {
			if j < len(row) {
				args[j] = row[j]
			} else {
				args[j] = nil
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("insert into %s: %w", alias, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit insert into %s: %w", alias, err)
	}
	return alias, nil
}

// Eval runs a query and scans the result into a Table. Cell values come
// back as nil, int64, float64, or string.
func (s *Session) Eval(query string) (tabular.Table, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return tabular.Table{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return tabular.Table{}, fmt.Errorf("result columns: %w", err)
	}

	out := tabular.Table{Columns: cols}
	holders := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range holders {
		ptrs[i] = &holders[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return tabular.Table{}, fmt.Errorf("scan row: %w", err)
		}
		row := make([]any, len(cols))
		for i, v := range holders {
			row[i] = normalizeCell(v)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return tabular.Table{}, err
	}
	return out, nil
}

// Count returns the row count of an aliased table.
func (s *Session) Count(alias string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM " + alias).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", alias, err)
	}
	return n, nil
}

// QuoteIdent double-quotes an identifier for SQLite, doubling embedded
// quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteAffinity(dtype string) string {
	switch dtype {
	case "int64":
		return "INTEGER"
	case "float64":
		return "REAL"
	default:
		return "TEXT"
	}
}

func normalizeCell(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}
