package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotConnected is returned when a statement is dispatched before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Query and Begin implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Query executes a statement and materializes its result.
// Driver errors are returned unwrapped so callers can inspect them.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*Result, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	return run(ctx, b.DB, sqlStr, args)
}

// Begin starts a database/sql transaction.
func (b *BaseSQLAdapter) Begin(ctx context.Context) (Tx, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	b.logger().Debug("transaction started")
	return &SQLTx{Tx: tx}, nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// SQLTx adapts *sql.Tx to the Tx interface.
type SQLTx struct {
	Tx *sql.Tx
}

// Query executes a statement inside the transaction.
func (t *SQLTx) Query(ctx context.Context, sqlStr string, args ...any) (*Result, error) {
	return run(ctx, t.Tx, sqlStr, args)
}

// Commit commits the transaction.
func (t *SQLTx) Commit(_ context.Context) error {
	return t.Tx.Commit()
}

// Rollback aborts the transaction.
func (t *SQLTx) Rollback(_ context.Context) error {
	return t.Tx.Rollback()
}

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// run dispatches sqlStr on c. Statements that cannot return rows go through
// ExecContext so RowCount reports affected rows.
func run(ctx context.Context, c conn, sqlStr string, args []any) (*Result, error) {
	command := CommandOf(sqlStr)
	if !ReturnsRows(sqlStr) {
		res, err := c.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &Result{Rows: []map[string]any{}, RowCount: affected, Command: command}, nil
	}

	rows, err := c.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}
	result.Command = command
	return result, nil
}

// ScanRows materializes rows into a Result.
func ScanRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: []map[string]any{}}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = int64(len(result.Rows))
	return result, nil
}

// rowKeywords lists leading verbs whose statements produce a result set.
var rowKeywords = map[string]struct{}{
	"SELECT": {}, "WITH": {}, "VALUES": {}, "SHOW": {}, "PRAGMA": {},
	"EXPLAIN": {}, "TABLE": {}, "DESCRIBE": {}, "SUMMARIZE": {}, "FROM": {},
}

// ReturnsRows reports whether sqlStr is expected to produce a result set:
// a row-returning leading verb or a RETURNING clause.
func ReturnsRows(sqlStr string) bool {
	if _, ok := rowKeywords[CommandOf(sqlStr)]; ok {
		return true
	}
	return strings.Contains(strings.ToUpper(sqlStr), "RETURNING")
}

// CommandOf returns the upper-cased leading keyword of sqlStr, skipping
// whitespace, opening parentheses and SQL comments.
func CommandOf(sqlStr string) string {
	s := sqlStr
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		}
		break
	}
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
	})
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}
