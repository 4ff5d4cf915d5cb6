package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ytclab/ytcbot/internal/memory"
)

var _ memory.Log = (*Log)(nil)

// Log is a memory.Log stored in one PostgreSQL table. Appends for a
// scope take a transaction-scoped advisory lock so several bot
// processes can share the database.
type Log struct {
	pool  *pgxpool.Pool
	table string // sanitized identifier
	name  string
	host  string
}

// Open connects to cfg.DSN and creates the table when missing.
func Open(ctx context.Context, cfg Config) (*Log, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	l := &Log{
		pool:  pool,
		table: pgx.Identifier{cfg.Table}.Sanitize(),
		name:  cfg.Table,
		host:  poolCfg.ConnConfig.Host,
	}
	if err := l.migrate(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + l.table + ` (
			scope     TEXT    NOT NULL,
			seq       BIGINT  NOT NULL,
			author    TEXT    NOT NULL DEFAULT '',
			input     TEXT    NOT NULL DEFAULT '',
			reference TEXT    NOT NULL DEFAULT '',
			reply     TEXT    NOT NULL DEFAULT '',
			timestamp TEXT    NOT NULL DEFAULT '',
			PRIMARY KEY (scope, seq)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks the pool.
func (l *Log) Ping(ctx context.Context) error { return l.pool.Ping(ctx) }

// Close releases the pool.
func (l *Log) Close() { l.pool.Close() }

// Append implements memory.Log.
func (l *Log) Append(ctx context.Context, scope string, turn memory.Turn, max int) error {
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", scope); err != nil {
			return fmt.Errorf("lock: %w", err)
		}

		var next int64
		if err := tx.QueryRow(ctx,
			"SELECT COALESCE(MAX(seq), 0) + 1 FROM "+l.table+" WHERE scope = $1", scope,
		).Scan(&next); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO "+l.table+" (scope, seq, author, input, reference, reply, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			scope, next, turn.Author, turn.Input, turn.Reference, turn.Reply, turn.Timestamp,
		); err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		if max > 0 {
			if _, err := tx.Exec(ctx,
				"DELETE FROM "+l.table+" WHERE scope = $1 AND seq <= $2", scope, next-int64(max),
			); err != nil {
				return fmt.Errorf("trim: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: postgres append: %w", memory.ErrStorageWrite, err)
	}
	return nil
}

// Recent implements memory.Log.
func (l *Log) Recent(ctx context.Context, scope string, n int) ([]memory.Turn, error) {
	var limit any
	if n > 0 {
		limit = int64(n)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT author, input, reference, reply, timestamp FROM (
			SELECT seq, author, input, reference, reply, timestamp
			FROM `+l.table+` WHERE scope = $1 ORDER BY seq DESC LIMIT $2
		) AS recent ORDER BY seq ASC`,
		scope, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres query: %w", memory.ErrStorageRead, err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Turn, error) {
		var t memory.Turn
		err := row.Scan(&t.Author, &t.Input, &t.Reference, &t.Reply, &t.Timestamp)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: postgres scan: %w", memory.ErrStorageRead, err)
	}
	if len(turns) == 0 {
		return nil, nil
	}
	return turns, nil
}

// Delete implements memory.Log.
func (l *Log) Delete(ctx context.Context, scope string) (bool, error) {
	tag, err := l.pool.Exec(ctx, "DELETE FROM "+l.table+" WHERE scope = $1", scope)
	if err != nil {
		return false, fmt.Errorf("%w: postgres delete: %w", memory.ErrStorageWrite, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Inspect implements memory.Log.
func (l *Log) Inspect(ctx context.Context, scope string) (memory.LogInfo, error) {
	info := memory.LogInfo{
		Backend:   "postgres",
		Location:  fmt.Sprintf("%s/%s?scope=%s", l.host, l.name, scope),
		Container: l.host + "/" + l.name,
	}

	if err := l.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM "+l.table+" WHERE scope = $1", scope,
	).Scan(&info.Turns); err != nil {
		return info, fmt.Errorf("%w: postgres count: %w", memory.ErrStorageRead, err)
	}
	info.Exists = info.Turns > 0

	rows, err := l.pool.Query(ctx, "SELECT DISTINCT scope FROM "+l.table+" ORDER BY scope")
	if err != nil {
		return info, fmt.Errorf("%w: postgres scopes: %w", memory.ErrStorageRead, err)
	}
	scopes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return info, fmt.Errorf("%w: postgres scopes: %w", memory.ErrStorageRead, err)
	}
	info.Scopes = scopes
	return info, nil
}
