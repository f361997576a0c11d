package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"arriendos/internal/core/apperror"
)

// Builder is the squirrel statement builder with PostgreSQL placeholders.
var Builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// InsertStruct builds an INSERT of every db-tagged field of v.
func InsertStruct[T any](table string, v *T) squirrel.InsertBuilder {
	return Builder.Insert(table).Columns(Columns[T]()...).Values(Values(v)...)
}

// GetOne runs q and scans a single row. A missing row becomes NOT_FOUND for entity/key.
func GetOne[T any](ctx context.Context, db Querier, q squirrel.Sqlizer, entity string, key any) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s select: %w", entity, err)
	}
	dst := new(T)
	if err := pgxscan.Get(ctx, db, dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(entity, key)
		}
		return nil, apperror.NewDatabase(fmt.Errorf("select %s: %w", entity, err))
	}
	return dst, nil
}

// SelectAll runs q and scans every row.
func SelectAll[T any](ctx context.Context, db Querier, q squirrel.Sqlizer) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var dst []*T
	if err := pgxscan.Select(ctx, db, &dst, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select: %w", err))
	}
	return dst, nil
}

// Exec runs q and returns the number of affected rows. Driver errors are returned
// unwrapped so callers can inspect SQLSTATE codes.
func Exec(ctx context.Context, db Querier, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExecOne is Exec for statements that must touch exactly one row; zero rows is
// NOT_FOUND for entity/key.
func ExecOne(ctx context.Context, db Querier, q squirrel.Sqlizer, entity string, key any) error {
	n, err := Exec(ctx, db, q)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("write %s: %w", entity, err))
	}
	if n == 0 {
		return apperror.NewNotFound(entity, key)
	}
	return nil
}
