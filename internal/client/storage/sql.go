package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sessionKey is the global key of the single credential row.
const sessionKey = "session"

// SQLTokenStore keeps the session token in the credentials table, for
// installations where several terminals share one login.
type SQLTokenStore struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLTokenStore creates a store over db. The credentials table must
// exist; see db.InitPostgres.
func NewSQLTokenStore(db *sql.DB) *SQLTokenStore {
	return &SQLTokenStore{DB: db}
}

// Load returns the stored token, or "" when the row is absent.
func (s *SQLTokenStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.DB.QueryRowContext(ctx,
		`SELECT token FROM credentials WHERE key = $1`,
		sessionKey,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// Save upserts the token row.
func (s *SQLTokenStore) Save(ctx context.Context, token string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO credentials (key, token) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET token = EXCLUDED.token
	`, sessionKey, token)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear deletes the token row.
func (s *SQLTokenStore) Clear(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM credentials WHERE key = $1`, sessionKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
