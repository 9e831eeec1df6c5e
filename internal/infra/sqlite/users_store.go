package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// ============================================================
// UserStore implementation
// ============================================================

const userColumns = `id, email, name, password_hash, failed_attempts, locked_until, last_login_at, created_at`

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateUser")
	defer span.End()

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "email already registered"}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user created", zap.String("user_id", u.ID))
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetUserByEmail")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetUserByID")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.RecordLoginFailure")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = ?, locked_until = ? WHERE id = ?`,
		attempts, nullTime(lockedUntil), id)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

func (s *Store) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.RecordLoginSuccess")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, locked_until = NULL, last_login_at = ? WHERE id = ?`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	return nil
}

// --- Refresh tokens ---

func (s *Store) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.StoreRefreshToken")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, tokenHash, formatTime(expiresAt), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns nil, nil when the hash is unknown.
func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetRefreshToken")
	defer span.End()

	var (
		rt        domain.RefreshToken
		expiresAt string
		revoked   int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked FROM refresh_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &expiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if rt.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	rt.Revoked = revoked != 0
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "SQLite.RevokeRefreshToken")
	defer span.End()

	if _, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.RevokeAllRefreshTokens")
	defer span.End()

	if _, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0`, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// scanUser returns nil, nil when the row does not exist.
func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u           domain.User
		lockedUntil sql.NullString
		lastLogin   sql.NullString
		createdAt   string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.FailedAttempts, &lockedUntil, &lastLogin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if u.LockedUntil, err = parseNullTime(lockedUntil); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
