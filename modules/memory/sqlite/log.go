package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ytclab/ytcbot/internal/memory"

	_ "modernc.org/sqlite" // SQLite driver registration
)

var _ memory.Log = (*Log)(nil)

// Log is a memory.Log stored in one SQLite database. Each scope's turns
// are rows keyed by (scope, seq) with seq increasing per append.
type Log struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at cfg.Path and migrates
// it. The caller must Close the returned Log.
func Open(ctx context.Context, cfg Config) (*Log, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// One connection so PRAGMAs apply to every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range cfg.pragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Log{db: db, path: cfg.Path}, nil
}

// Path returns the database file.
func (l *Log) Path() string { return l.path }

// Ping checks the database connection.
func (l *Log) Ping(ctx context.Context) error { return l.db.PingContext(ctx) }

// Close releases the database.
func (l *Log) Close() error { return l.db.Close() }

// Append implements memory.Log.
func (l *Log) Append(ctx context.Context, scope string, turn memory.Turn, max int) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: sqlite begin: %w", memory.ErrStorageWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE scope = ?", scope,
	).Scan(&next); err != nil {
		return fmt.Errorf("%w: sqlite next seq: %w", memory.ErrStorageWrite, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (scope, seq, author, input, reference, reply, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scope, next, turn.Author, turn.Input, turn.Reference, turn.Reply, turn.Timestamp,
	); err != nil {
		return fmt.Errorf("%w: sqlite insert: %w", memory.ErrStorageWrite, err)
	}

	if max > 0 {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM turns WHERE scope = ? AND seq <= ?", scope, next-int64(max),
		); err != nil {
			return fmt.Errorf("%w: sqlite trim: %w", memory.ErrStorageWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite commit: %w", memory.ErrStorageWrite, err)
	}
	return nil
}

// Recent implements memory.Log.
func (l *Log) Recent(ctx context.Context, scope string, n int) ([]memory.Turn, error) {
	limit := n
	if limit <= 0 {
		limit = -1
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT author, input, reference, reply, timestamp FROM (
			SELECT seq, author, input, reference, reply, timestamp
			FROM turns WHERE scope = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		scope, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite query: %w", memory.ErrStorageRead, err)
	}
	defer func() { _ = rows.Close() }()

	var turns []memory.Turn
	for rows.Next() {
		var t memory.Turn
		if err := rows.Scan(&t.Author, &t.Input, &t.Reference, &t.Reply, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: sqlite scan: %w", memory.ErrStorageRead, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite rows: %w", memory.ErrStorageRead, err)
	}
	return turns, nil
}

// Delete implements memory.Log.
func (l *Log) Delete(ctx context.Context, scope string) (bool, error) {
	res, err := l.db.ExecContext(ctx, "DELETE FROM turns WHERE scope = ?", scope)
	if err != nil {
		return false, fmt.Errorf("%w: sqlite delete: %w", memory.ErrStorageWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: sqlite delete: %w", memory.ErrStorageWrite, err)
	}
	return n > 0, nil
}

// Inspect implements memory.Log.
func (l *Log) Inspect(ctx context.Context, scope string) (memory.LogInfo, error) {
	info := memory.LogInfo{
		Backend:   "sqlite",
		Location:  l.path + "#turns/" + scope,
		Container: l.path,
	}

	if err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM turns WHERE scope = ?", scope,
	).Scan(&info.Turns); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("%w: sqlite count: %w", memory.ErrStorageRead, err)
	}
	info.Exists = info.Turns > 0

	rows, err := l.db.QueryContext(ctx, "SELECT DISTINCT scope FROM turns ORDER BY scope")
	if err != nil {
		return info, fmt.Errorf("%w: sqlite scopes: %w", memory.ErrStorageRead, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return info, fmt.Errorf("%w: sqlite scopes: %w", memory.ErrStorageRead, err)
		}
		info.Scopes = append(info.Scopes, s)
	}
	return info, rows.Err()
}
