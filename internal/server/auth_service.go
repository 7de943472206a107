package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "kbase/internal/auth"
	"kbase/internal/models"
	"kbase/internal/store"
)

const sessionCookieName = "kbase_session"

var (
	defaultSessionTTL     = 24 * time.Hour
	errInvalidCredentials = errors.New("invalid credentials")
)

// AuthService encapsulates registration, login, and session resolution.
type AuthService struct {
	store      store.AuthStore
	sessionTTL time.Duration
}

type loginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs an AuthService over the given store.
func NewAuthService(authStore store.AuthStore) *AuthService {
	if authStore == nil {
		return nil
	}
	return &AuthService{store: authStore, sessionTTL: defaultSessionTTL}
}

// Register creates one user account with a hashed password.
func (a *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if a == nil || a.store == nil {
		return nil, internalError(fmt.Errorf("auth service is not configured"))
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequest(err)
	}
	normalizedEmail, err := internalauth.NormalizeEmail(email)
	if err != nil {
		return nil, badRequest(err)
	}
	hash, err := internalauth.HashPassword(password)
	if err != nil {
		return nil, badRequest(err)
	}

	user := &models.User{
		Username:     normalized,
		Email:        normalizedEmail,
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if isUniqueConstraint(err) {
			return nil, conflictCode(fmt.Errorf("username or email already registered"), ErrCodeConflict)
		}
		return nil, storeFailure(err)
	}
	return user, nil
}

// Login verifies credentials and opens one session.
func (a *AuthService) Login(ctx context.Context, username, password string, now time.Time) (*loginResult, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("password is required")
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Disabled || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(a.sessionTTL)
	if err := a.store.CreateSession(ctx, user.ID, hashSessionToken(token), expiresAt, now); err != nil {
		return nil, err
	}

	return &loginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// AuthenticateSessionToken resolves a live session token to its user,
// nil when the token is unknown, expired, or revoked.
func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, hashSessionToken(token), now)
}

// RevokeSessionToken ends one session. Unknown tokens are a no-op.
func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.store == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

func generateSessionToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
