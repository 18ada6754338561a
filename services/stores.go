// ABOUTME: Storage capabilities for credentials and client-readable preferences
// ABOUTME: Secrets never reach client code; preferences may be read by it

package services

import (
	"context"
	"time"
)

// Persisted credential slots.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UsernameKey     = "username"
)

// Lifetimes of the persisted slots.
const (
	AccessTokenMaxAge  = 30 * time.Minute
	RefreshTokenMaxAge = 7 * 24 * time.Hour
	UsernameMaxAge     = 7 * 24 * time.Hour
)

// SecretStore holds values only the server side may read (tokens).
type SecretStore interface {
	Secret(ctx context.Context, name string) (string, bool, error)
	SetSecret(ctx context.Context, name, value string, maxAge time.Duration) error
	DeleteSecrets(ctx context.Context, names ...string) error
}

// PreferenceStore holds values presentational code may read directly (username).
type PreferenceStore interface {
	Preference(name string) (string, bool)
	SetPreference(name, value string, maxAge time.Duration)
	DeletePreferences(names ...string)
}

// Stores is the storage for one client: a browser, or a CLI profile.
type Stores struct {
	Secrets SecretStore
	Prefs   PreferenceStore
}
