package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kbase/internal/models"
)

const userColumns = "id, username, email, password_hash, disabled, created_at, updated_at"

// CreateUser inserts one user row. Username and email must be unique.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(user.PasswordHash) == "" {
		return fmt.Errorf("password hash is required")
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	if strings.TrimSpace(user.ID) == "" {
		generated, err := GenerateUserID(func(id string) (bool, error) {
			return s.userIDExists(ctx, id)
		})
		if err != nil {
			return err
		}
		user.ID = generated
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.PasswordHash, boolToInt(user.Disabled),
		dbFormatTime(user.CreatedAt), dbFormatTime(user.UpdatedAt))
	return err
}

// GetUserByID returns one user by id, nil when absent.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	return scanUser(row)
}

// GetUserByUsername returns one user by username, nil when absent.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, username)
	return scanUser(row)
}

// ListUsers returns all users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// SetUserDisabled toggles one user's disabled flag.
func (s *Store) SetUserDisabled(ctx context.Context, id string, disabled bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET disabled = ?, updated_at = ? WHERE id = ?
	`, boolToInt(disabled), dbFormatTime(time.Now().UTC()), strings.TrimSpace(id))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateSession records one opaque session token hash with a TTL.
func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(tokenHash) == "" {
		return fmt.Errorf("token hash is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, tokenHash, userID, dbFormatTime(now), dbFormatTime(expiresAt))
	return err
}

// GetUserBySessionTokenHash resolves a live session to its user.
// Expired, revoked, and unknown sessions all resolve to nil.
func (s *Store) GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.disabled, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
		  AND s.revoked_at IS NULL
		  AND s.expires_at > ?
		  AND u.disabled = 0
		LIMIT 1
	`, tokenHash, dbFormatTime(now))
	return scanUser(row)
}

// RevokeSessionByTokenHash marks one session revoked. Unknown hashes are a no-op.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL
	`, dbFormatTime(now), strings.TrimSpace(tokenHash))
	return err
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, dbFormatTime(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) userIDExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*models.User, error) {
	user := models.User{}
	var disabled int
	var createdAt, updatedAt string

	err := scanner.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &disabled, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	user.Disabled = disabled != 0

	if user.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
