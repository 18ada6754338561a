// ABOUTME: Encrypted, signed cookie secret store built on gorilla/sessions
// ABOUTME: Keeps all credentials in one opaque cookie with per-secret expiry

package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// SealedCookieName is the cookie that carries the sealed secrets.
const SealedCookieName = "artfolio_secrets"

// sealedMaxAge is the lifetime of the sealed cookie itself. Individual
// secrets carry their own shorter expiry inside it.
const sealedMaxAge = 7 * 24 * time.Hour

// NewSealedCookieStore derives signing and encryption keys from secret.
func NewSealedCookieStore(secret string, secure bool) *sessions.CookieStore {
	hashKey := sha256.Sum256([]byte("artfolio-hash:" + secret))
	blockKey := sha256.Sum256([]byte("artfolio-block:" + secret))

	cs := sessions.NewCookieStore(hashKey[:], blockKey[:])
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sealedMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

// Sealed is a SecretStore for one request backed by a gorilla session.
// gorilla/sessions caches the session per request, so writes are visible
// to later reads in the same request.
type Sealed struct {
	w  http.ResponseWriter
	r  *http.Request
	cs sessions.Store
}

func NewSealed(w http.ResponseWriter, r *http.Request, cs sessions.Store) *Sealed {
	return &Sealed{w: w, r: r, cs: cs}
}

// session returns the request's sealed session. A cookie that fails to
// decode (rotated secret, tampering) yields a fresh empty session.
func (s *Sealed) session() *sessions.Session {
	sess, err := s.cs.Get(s.r, SealedCookieName)
	if err != nil && sess == nil {
		sess = sessions.NewSession(s.cs, SealedCookieName)
		sess.Options = &sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
	}
	return sess
}

func expiryKey(name string) string {
	return name + ":exp"
}

func (s *Sealed) Secret(_ context.Context, name string) (string, bool, error) {
	sess := s.session()
	value, ok := sess.Values[name].(string)
	if !ok || value == "" {
		return "", false, nil
	}
	if exp, ok := sess.Values[expiryKey(name)].(int64); ok && time.Now().Unix() >= exp {
		return "", false, nil
	}
	return value, true, nil
}

func (s *Sealed) SetSecret(_ context.Context, name, value string, maxAge time.Duration) error {
	sess := s.session()
	if maxAge <= 0 || value == "" {
		delete(sess.Values, name)
		delete(sess.Values, expiryKey(name))
	} else {
		sess.Values[name] = value
		sess.Values[expiryKey(name)] = time.Now().Add(maxAge).Unix()
	}
	return s.save(sess)
}

func (s *Sealed) DeleteSecrets(_ context.Context, names ...string) error {
	sess := s.session()
	for _, name := range names {
		delete(sess.Values, name)
		delete(sess.Values, expiryKey(name))
	}
	return s.save(sess)
}

func (s *Sealed) save(sess *sessions.Session) error {
	opts := *sess.Options
	opts.MaxAge = int(sealedMaxAge / time.Second)
	if len(sess.Values) == 0 {
		opts.MaxAge = -1
	}
	sess.Options = &opts
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("failed to save sealed secrets: %w", err)
	}
	return nil
}
