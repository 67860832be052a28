package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/ctiprep/internal/logger"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// SQLiteBackend stores values in the kv table created by the db migrations.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sqlBuilder.Select("value").From("kv").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, err
	}

	var value string
	err = b.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("kv_sqlite").Error("failed to read key %s: %v", key, err)
		return nil, err
	}
	return []byte(value), nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := sqlBuilder.Insert("kv").
		Columns("key", "value", "updated_at").
		Values(key, string(value), time.Now().Unix()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).WithPrefix("kv_sqlite").Error("failed to write key %s: %v", key, err)
		return err
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	query, args, err := sqlBuilder.Delete("kv").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, query, args...)
	return err
}

// prefixPred matches keys by exact prefix. LIKE would treat % and _ in the
// prefix as wildcards.
func prefixPred(prefix string) squirrel.Sqlizer {
	return squirrel.Expr("substr(key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
}

func (b *SQLiteBackend) DeletePrefix(ctx context.Context, prefix string) error {
	query, args, err := sqlBuilder.Delete("kv").Where(prefixPred(prefix)).ToSql()
	if err != nil {
		return err
	}
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	logger.FromContext(ctx).WithPrefix("kv_sqlite").Debug("deleted %d keys under %q", n, prefix)
	return nil
}

func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := sqlBuilder.Select("key").From("kv").Where(prefixPred(prefix)).OrderBy("key").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

var _ Backend = (*SQLiteBackend)(nil)
