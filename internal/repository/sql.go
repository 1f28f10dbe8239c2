package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/cardscan/internal/common"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(db.Dialect)
}

func (db *DB) exec(ctx context.Context, q entsql.Querier) (stdsql.Result, error) {
	query, args := q.Query()
	return db.SQL.ExecContext(ctx, query, args...)
}

func (db *DB) query(ctx context.Context, q entsql.Querier) (*stdsql.Rows, error) {
	query, args := q.Query()
	return db.SQL.QueryContext(ctx, query, args...)
}

func (db *DB) queryRow(ctx context.Context, q entsql.Querier) *stdsql.Row {
	query, args := q.Query()
	return db.SQL.QueryRowContext(ctx, query, args...)
}

func (db *DB) count(ctx context.Context, table string, where *entsql.Predicate) (int, error) {
	sel := db.builder().Select(entsql.Count("*")).From(entsql.Table(table))
	if where != nil {
		sel = sel.Where(where)
	}
	var n int
	if err := db.queryRow(ctx, sel).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// scanTimes reads a single timestamp column.
func scanTimes(ctx context.Context, db *DB, sel *entsql.Selector) ([]time.Time, error) {
	rows, err := db.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func notFound(what string, err error) error {
	if errors.Is(err, stdsql.ErrNoRows) {
		return common.NewAppError("NOT_FOUND", what+" not found", common.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc reports "constraint failed: UNIQUE constraint failed: users.email (2067)"
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
