package store

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookcatalog/internal/apperr"
)

// DB is the gateway to the relational store. It executes parameterized
// statements against a shared pgx pool (the concurrency-safe choice; a pool
// of size one degenerates to the single reused connection). Driver failures
// are logged with the statement redacted and surface to callers only as a
// generic apperr.DatabaseError.
type DB struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDB(pool *pgxpool.Pool, log *slog.Logger) *DB {
	return &DB{pool: pool, log: log}
}

// Query runs a parameterized read and returns rows as column-name to value
// maps, in result order.
func (db *DB) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.fail("query", sql, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, db.fail("query", sql, err)
	}
	db.log.Debug("query executed", "sql", redactSQL(sql), "row_count", len(out))
	return out, nil
}

// Exec runs a parameterized write and returns the affected-row count.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, db.fail("exec", sql, err)
	}
	db.log.Debug("statement executed", "sql", redactSQL(sql), "rows_affected", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// InsertReturningID runs an INSERT carrying a RETURNING id clause and hands
// back the generated key. Postgres has no connection-level last-insert-id, so
// id assignment rides on the statement itself.
func (db *DB) InsertReturningID(ctx context.Context, sql string, args ...any) (int64, error) {
	var id int64
	if err := db.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, db.fail("insert", sql, err)
	}
	db.log.Debug("insert executed", "sql", redactSQL(sql), "id", id)
	return id, nil
}

// Begin opens an explicit transaction. Commit and Rollback live on the
// returned pgx.Tx; there is no automatic retry.
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, db.fail("begin", "", err)
	}
	return tx, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) fail(op, sql string, err error) error {
	db.log.Error("database error", "op", op, "sql", redactSQL(sql), "error", err)
	return &apperr.DatabaseError{Op: op}
}

var sqlLiteral = regexp.MustCompile(`'[^']*'`)

// redactSQL replaces string literals so logged statements never leak values.
func redactSQL(sql string) string {
	return sqlLiteral.ReplaceAllString(sql, "'***'")
}
