package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore keeps the token in the client_storage table created by
// persistence.RunMigrations.
func NewPostgresStore(pool *pgxpool.Pool, key string) Store {
	if key == "" {
		key = DefaultKey
	}
	return &postgresStore{pool: pool, key: key}
}

func (s *postgresStore) Save(ctx context.Context, token string) error {
	const query = `
        INSERT INTO client_storage (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, s.key, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context) (string, bool, error) {
	const query = `SELECT value FROM client_storage WHERE key=$1`

	var token string
	if err := s.pool.QueryRow(ctx, query, s.key).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load token: %w", err)
	}
	return token, true, nil
}

func (s *postgresStore) Remove(ctx context.Context) error {
	const query = `DELETE FROM client_storage WHERE key=$1`

	if _, err := s.pool.Exec(ctx, query, s.key); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
