package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// PostgresStore is the secondary channel: rows in user_state never expire.
type PostgresStore struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

// NewPostgresStore wraps an open database. The user_state table is created by
// the store package migrations.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db),
	}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.qb.Select("value").
		From("user_state").
		Where(sq.Eq{"key": key}).
		QueryRowContext(ctx).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user_state %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.qb.Insert("user_state").
		Columns("key", "value").
		Values(key, string(value)).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert user_state %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.qb.Delete("user_state").Where(sq.Eq{"key": key}).ExecContext(ctx); err != nil {
		return fmt.Errorf("delete user_state %s: %w", key, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
