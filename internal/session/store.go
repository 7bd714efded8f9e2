package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for refresh-token sessions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new session store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// List returns all persisted refresh tokens. Used to warm the registry's
// in-memory set at startup.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT refresh_token FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// Insert persists a refresh token with its expiry.
func (s *Store) Insert(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (refresh_token, expires_at) VALUES ($1, $2)
		 ON CONFLICT (refresh_token) DO NOTHING`,
		token, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Delete removes a refresh token. Deleting an absent token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, token)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions that expired before the given time and
// returns the deleted tokens.
func (s *Store) DeleteExpired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM sessions WHERE expires_at < $1 RETURNING refresh_token`, before)
	if err != nil {
		return nil, fmt.Errorf("deleting expired sessions: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scanning expired session row: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
