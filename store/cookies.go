// ABOUTME: Per-request cookie storage for credentials and preferences
// ABOUTME: Secrets become httpOnly cookies; preferences stay readable by page scripts

package store

import (
	"context"
	"net/http"
	"time"
)

// CookieJar reads cookies from one request and writes them to its response.
// Writes made earlier in the request are visible to later reads, so a
// refresh followed by an account fetch sees the new access token.
type CookieJar struct {
	w       http.ResponseWriter
	r       *http.Request
	secure  bool
	pending map[string]*http.Cookie
}

// NewCookieJar binds a jar to one request/response pair.
func NewCookieJar(w http.ResponseWriter, r *http.Request, secure bool) *CookieJar {
	return &CookieJar{
		w:       w,
		r:       r,
		secure:  secure,
		pending: make(map[string]*http.Cookie),
	}
}

func (j *CookieJar) get(name string) (string, bool) {
	if c, ok := j.pending[name]; ok {
		if c.MaxAge < 0 || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
	c, err := j.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (j *CookieJar) set(name, value string, maxAge time.Duration, httpOnly bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: httpOnly,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge <= 0 {
		c.Value = ""
		c.MaxAge = -1
	}
	j.pending[name] = c
	http.SetCookie(j.w, c)
}

// Secret returns an httpOnly credential cookie.
func (j *CookieJar) Secret(_ context.Context, name string) (string, bool, error) {
	v, ok := j.get(name)
	return v, ok, nil
}

// SetSecret writes an httpOnly credential cookie on path "/".
func (j *CookieJar) SetSecret(_ context.Context, name, value string, maxAge time.Duration) error {
	j.set(name, value, maxAge, true)
	return nil
}

// DeleteSecrets expires the named credential cookies.
func (j *CookieJar) DeleteSecrets(_ context.Context, names ...string) error {
	for _, name := range names {
		j.set(name, "", 0, true)
	}
	return nil
}

// Preference returns a script-readable cookie.
func (j *CookieJar) Preference(name string) (string, bool) {
	return j.get(name)
}

// SetPreference writes a cookie without HttpOnly.
func (j *CookieJar) SetPreference(name, value string, maxAge time.Duration) {
	j.set(name, value, maxAge, false)
}

// DeletePreferences expires the named script-readable cookies.
func (j *CookieJar) DeletePreferences(names ...string) {
	for _, name := range names {
		j.set(name, "", 0, false)
	}
}
