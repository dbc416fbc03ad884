// Package store implements PostgreSQL persistence for modules, categories
// and contents. Stores wrap a *sql.DB and build their SQL with squirrel.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"guidebook/internal/ordering"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("store: conflict")
)

// psql builds statements with PostgreSQL $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface{ Scan(...any) error }

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapError converts driver errors into store sentinels. Context errors and
// everything unrecognised pass through wrapped.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// likePattern wraps q for a substring ILIKE match with wildcards escaped.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// exists runs a SELECT EXISTS over the given builder.
func exists(ctx context.Context, db execer, b sq.SelectBuilder) (bool, error) {
	inner, args, err := b.ToSql()
	if err != nil {
		return false, err
	}
	var found bool
	err = db.QueryRowContext(ctx, "SELECT EXISTS ("+inner+")", args...).Scan(&found)
	return found, err
}

// count runs a SELECT COUNT(*) over table filtered by where.
func count(ctx context.Context, db execer, table string, where sq.Sqlizer) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(table).Where(where).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// nextOrderIndex returns max(order_index)+1 for the group, or 0 if empty.
func nextOrderIndex(ctx context.Context, db execer, table string, group sq.Sqlizer) (int, error) {
	query, args, err := psql.Select("MAX(order_index)").From(table).Where(group).ToSql()
	if err != nil {
		return 0, err
	}
	var maxOrder sql.NullInt64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&maxOrder); err != nil {
		return 0, err
	}
	return ordering.Next(int(maxOrder.Int64), maxOrder.Valid), nil
}

// moveInGroup swaps row id with its neighbour inside the sibling group
// selected by group, then renumbers the group densely. Everything runs in
// one transaction with the group's rows locked.
func moveInGroup(ctx context.Context, db *sql.DB, table string, group sq.Sqlizer, id int64, dir ordering.Direction) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := psql.Select("id", "order_index").
		From(table).
		Where(group).
		OrderBy("order_index ASC", "id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("lock %s group: %w", table, err)
	}
	var current []ordering.Item
	for rows.Next() {
		var it ordering.Item
		if err := rows.Scan(&it.ID, &it.OrderIndex); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s order: %w", table, err)
		}
		current = append(current, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s order: %w", table, err)
	}

	order, err := ordering.Move(ordering.IDs(current), id, dir)
	if err != nil {
		return err
	}

	for _, it := range ordering.Assign(current, order) {
		query, args, err := psql.Update(table).
			Set("order_index", it.OrderIndex).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": it.ID}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("reorder %s %d: %w", table, it.ID, err)
		}
	}

	return tx.Commit()
}
