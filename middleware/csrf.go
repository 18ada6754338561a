// ABOUTME: CSRF protection middleware using double-submit cookie pattern
// ABOUTME: Validates X-CSRF-Token header or csrf_token form field against artfolio_csrf cookie

package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
)

const (
	// CSRFCookieName holds the double-submit token. Page scripts read it.
	CSRFCookieName = "artfolio_csrf"
	// CSRFHeaderName is how scripts echo the token back.
	CSRFHeaderName = "X-CSRF-Token"
	// CSRFFormField is how HTML forms echo the token back.
	CSRFFormField = "csrf_token"

	csrfKey contextKey = "csrfToken"

	// base64url encoding of 32 bytes produces 44 characters (with padding)
	csrfTokenLength = 44
)

// CSRF returns middleware that issues a token cookie to every visitor and
// validates it on state-changing requests. The token is also placed in the
// request context so templates can embed it in forms.
//
// Unlike a bearer-token API, every unsafe request here is cookie
// authenticated, including the login and signup forms, so nothing is exempt.
func CSRF(secure bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(CSRFCookieName); err == nil && len(c.Value) == csrfTokenLength {
				token = c.Value
			}

			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				if token == "" {
					token = generateCSRFToken()
					http.SetCookie(w, &http.Cookie{
						Name:     CSRFCookieName,
						Value:    token,
						Path:     "/",
						Secure:   secure,
						SameSite: http.SameSiteLaxMode,
					})
				}
				next(w, r.WithContext(context.WithValue(r.Context(), csrfKey, token)))
				return
			}

			if token == "" {
				slog.Debug("CSRF rejected: missing cookie", "path", r.URL.Path)
				rejectCSRF(w, r)
				return
			}

			submitted := r.Header.Get(CSRFHeaderName)
			if submitted == "" {
				submitted = r.FormValue(CSRFFormField)
			}
			if len(submitted) != csrfTokenLength {
				slog.Debug("CSRF rejected: missing or malformed token", "path", r.URL.Path)
				rejectCSRF(w, r)
				return
			}

			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				slog.Debug("CSRF rejected: token mismatch", "path", r.URL.Path)
				rejectCSRF(w, r)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), csrfKey, token)))
		}
	}
}

// CSRFToken returns the token for embedding in forms, or "".
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfKey).(string)
	return token
}

func rejectCSRF(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) || r.Header.Get(CSRFHeaderName) != "" {
		writeJSONError(w, "CSRF token missing or invalid", http.StatusForbidden)
		return
	}
	http.Error(w, "Your form expired. Go back, reload the page and try again.", http.StatusForbidden)
}

func generateCSRFToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
