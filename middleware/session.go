// ABOUTME: Session resolution and authentication gate for page and API routes
// ABOUTME: Builds the per-request credential stores once and derives the current session

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	sessionKey contextKey = "session"
	storesKey  contextKey = "stores"
)

// SessionConfig holds what the session middleware needs.
type SessionConfig struct {
	Manager  *services.SessionManager
	Provider store.Provider
}

// Session resolves the browser's credential stores and current session and
// puts both into the request context. It never rejects a request; a request
// without valid credentials simply carries an anonymous session.
func Session(cfg SessionConfig) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			stores := cfg.Provider(w, r)
			sess := cfg.Manager.Current(r.Context(), stores)

			if sess.Authenticated() {
				slog.Debug("Session resolved", "path", r.URL.Path, "user", sess.Username)
			}

			ctx := context.WithValue(r.Context(), storesKey, stores)
			ctx = context.WithValue(ctx, sessionKey, sess)
			next(w, r.WithContext(ctx))
		}
	}
}

// GetSession returns the session resolved for r, or an anonymous one.
func GetSession(r *http.Request) *services.Session {
	if sess, ok := r.Context().Value(sessionKey).(*services.Session); ok && sess != nil {
		return sess
	}
	return &services.Session{}
}

// GetStores returns the credential stores resolved for r. ok is false when
// the session middleware did not run.
func GetStores(r *http.Request) (services.Stores, bool) {
	st, ok := r.Context().Value(storesKey).(services.Stores)
	return st, ok
}

// RequireAuth rejects anonymous requests. API paths get a JSON 401; pages
// are redirected to the login form with a return path.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r).Authenticated() {
			next(w, r)
			return
		}

		if wantsJSON(r) {
			slog.Debug("Auth rejected: no session", "path", r.URL.Path)
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}
