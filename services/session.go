// ABOUTME: Session manager for the token-cookie BFF pattern
// ABOUTME: Login, refresh, logout and account reads over pluggable credential stores

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/markalston/artfolio-web/cache"
	"github.com/markalston/artfolio-web/models"
)

// AuthAPI is the subset of the backend the session manager needs.
type AuthAPI interface {
	Register(ctx context.Context, req models.RegisterRequest) error
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	AccountDetails(ctx context.Context, token string) (*models.User, error)
	UpdateAccount(ctx context.Context, token string, upd models.AccountUpdate) (*models.User, error)
}

// Session is the authenticated-user view derived from stored credentials.
// A nil User means anonymous, even when Username is still set.
type Session struct {
	Username string
	User     *models.User
}

// Authenticated reports whether s carries a profile.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

// SessionManager owns the credential lifecycle. It keeps no per-client state
// beyond an optional profile cache keyed by access token.
type SessionManager struct {
	api        AuthAPI
	profiles   *cache.Cache
	profileTTL time.Duration
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithProfileCache caches account details per access token for ttl.
func WithProfileCache(c *cache.Cache, ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.profiles = c
		m.profileTTL = ttl
	}
}

func NewSessionManager(api AuthAPI, opts ...SessionOption) *SessionManager {
	m := &SessionManager{api: api}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates an account. It stores nothing; the caller logs in afterwards.
func (m *SessionManager) Register(ctx context.Context, username, email, password string) error {
	return m.api.Register(ctx, models.RegisterRequest{Username: username, Email: email, Password: password})
}

// Login exchanges credentials for tokens, persists them, then fetches the profile.
// A failed profile fetch does not fail the login; the session is returned without a User.
func (m *SessionManager) Login(ctx context.Context, st Stores, email, password string) (*Session, error) {
	tok, err := m.api.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, &Error{Kind: KindFetchFailed, Message: "Login failed", Err: fmt.Errorf("token response missing access or refresh token")}
	}

	if err := st.Secrets.SetSecret(ctx, AccessTokenKey, tok.AccessToken, AccessTokenMaxAge); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	if err := st.Secrets.SetSecret(ctx, RefreshTokenKey, tok.RefreshToken, RefreshTokenMaxAge); err != nil {
		// An access token is never kept without its refresh token.
		if derr := st.Secrets.DeleteSecrets(ctx, AccessTokenKey); derr != nil {
			slog.Warn("Failed to roll back access token", "error", derr)
		}
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	sess := &Session{Username: tok.Username}
	user, err := m.fetchAccount(ctx, tok.AccessToken)
	if err != nil {
		slog.Warn("Account details fetch after login failed", "error", err)
	} else {
		sess.User = user
		if sess.Username == "" {
			sess.Username = user.Username
		}
	}
	if sess.Username != "" {
		st.Prefs.SetPreference(UsernameKey, sess.Username, UsernameMaxAge)
	}

	slog.Info("User logged in", "username", sess.Username)
	return sess, nil
}

// Logout clears every persisted credential. It always succeeds; store
// failures are logged.
func (m *SessionManager) Logout(ctx context.Context, st Stores) {
	if m.profiles != nil {
		if token, ok, _ := st.Secrets.Secret(ctx, AccessTokenKey); ok {
			m.profiles.Clear(profileKey(token))
		}
	}
	if err := st.Secrets.DeleteSecrets(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		slog.Warn("Failed to clear stored tokens", "error", err)
	}
	st.Prefs.DeletePreferences(UsernameKey)
}

// Refresh mints a new access token from the stored refresh token. The refresh
// token is only overwritten when the backend rotates it. Without a stored
// refresh token it returns ErrNoRefreshToken and writes nothing.
func (m *SessionManager) Refresh(ctx context.Context, st Stores) error {
	refreshToken, ok, err := st.Secrets.Secret(ctx, RefreshTokenKey)
	if err != nil {
		return &Error{Kind: KindRefreshFailed, Message: "Refresh failed", Err: err}
	}
	if !ok || refreshToken == "" {
		return ErrNoRefreshToken
	}

	tok, err := m.api.Refresh(ctx, refreshToken)
	if err != nil {
		return rekind(err, KindRefreshFailed, "Refresh failed")
	}
	if tok.AccessToken == "" {
		return &Error{Kind: KindRefreshFailed, Message: "Refresh failed", Err: fmt.Errorf("refresh response missing access token")}
	}

	if err := st.Secrets.SetSecret(ctx, AccessTokenKey, tok.AccessToken, AccessTokenMaxAge); err != nil {
		return &Error{Kind: KindRefreshFailed, Message: "Refresh failed", Err: err}
	}
	if tok.RefreshToken != "" {
		if err := st.Secrets.SetSecret(ctx, RefreshTokenKey, tok.RefreshToken, RefreshTokenMaxAge); err != nil {
			return &Error{Kind: KindRefreshFailed, Message: "Refresh failed", Err: err}
		}
	}
	slog.Debug("Access token refreshed", "rotated", tok.RefreshToken != "")
	return nil
}

// AccessToken returns the stored access token or ErrNotAuthenticated.
func (m *SessionManager) AccessToken(ctx context.Context, st Stores) (string, error) {
	token, ok, err := st.Secrets.Secret(ctx, AccessTokenKey)
	if err != nil {
		return "", &Error{Kind: KindNotAuthenticated, Message: "Not authenticated", Err: err}
	}
	if !ok || token == "" {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// AccountDetails fetches the profile for the stored access token. It never
// refreshes and retries; a rejected token is a FetchFailed.
func (m *SessionManager) AccountDetails(ctx context.Context, st Stores) (*models.User, error) {
	token, err := m.AccessToken(ctx, st)
	if err != nil {
		return nil, err
	}
	return m.fetchAccount(ctx, token)
}

func (m *SessionManager) fetchAccount(ctx context.Context, token string) (*models.User, error) {
	user, err := m.api.AccountDetails(ctx, token)
	if err != nil {
		if m.profiles != nil {
			m.profiles.Clear(profileKey(token))
		}
		return nil, rekind(err, KindFetchFailed, "Failed to fetch account details")
	}
	m.remember(token, user)
	return user, nil
}

// UpdateProfile PATCHes the changed fields and returns the server's
// representation, which replaces any cached profile.
func (m *SessionManager) UpdateProfile(ctx context.Context, st Stores, upd models.AccountUpdate) (*models.User, error) {
	token, err := m.AccessToken(ctx, st)
	if err != nil {
		return nil, err
	}
	user, err := m.api.UpdateAccount(ctx, token, upd)
	if err != nil {
		return nil, err
	}
	m.remember(token, user)
	return user, nil
}

// Current derives the session for st. A missing token or failed profile
// fetch yields an anonymous session; it never returns nil.
func (m *SessionManager) Current(ctx context.Context, st Stores) *Session {
	username, _ := st.Prefs.Preference(UsernameKey)
	token, err := m.AccessToken(ctx, st)
	if err != nil {
		return &Session{Username: username}
	}

	if m.profiles != nil {
		if v, ok := m.profiles.Get(profileKey(token)); ok {
			if u, ok := v.(models.User); ok {
				return &Session{Username: u.Username, User: &u}
			}
		}
	}

	user, err := m.fetchAccount(ctx, token)
	if err != nil {
		slog.Debug("Session demoted to anonymous", "error", err)
		return &Session{Username: username}
	}
	return &Session{Username: user.Username, User: user}
}

func (m *SessionManager) remember(token string, user *models.User) {
	if m.profiles == nil || user == nil {
		return
	}
	m.profiles.SetWithTTL(profileKey(token), *user, m.profileTTL)
}

// profileKey hashes the token so raw credentials never sit in the cache index.
func profileKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "account:" + hex.EncodeToString(sum[:])
}
