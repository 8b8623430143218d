package db

import (
	"context"
	"fmt"
	"time"
)

// CreateSession stores a session for userID. Only the token's hash is kept.
func (s *Store) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (token_hash, user_id, expires_at, created_at) VALUES (token_hash(?), ?, ?, ?)`,
		token, userID, expiresAt.Unix(), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// SessionUser returns the account owning an unexpired session.
func (s *Store) SessionUser(ctx context.Context, token string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = token_hash(?) AND s.expires_at > ?`,
		token, s.now().Unix(),
	))
}

// DeleteSession removes a session (logout).
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = token_hash(?)`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how many.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return res.RowsAffected()
}
