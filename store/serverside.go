// ABOUTME: Server-side secret store keyed by an opaque session-id cookie
// ABOUTME: Tokens live in memory (cache) or Redis; the browser only holds the id

package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/markalston/artfolio-web/cache"
	"github.com/redis/go-redis/v9"
)

// SessionIDCookieName carries the opaque id of a server-side secret set.
const SessionIDCookieName = "artfolio_sid"

const sessionIDMaxAge = 7 * 24 * time.Hour

// Backend stores secrets for a session id.
type Backend interface {
	Get(ctx context.Context, sid, name string) (string, bool, error)
	Set(ctx context.Context, sid, name, value string, ttl time.Duration) error
	Delete(ctx context.Context, sid string, names ...string) error
}

func backendKey(sid, name string) string {
	return "secret:" + sid + ":" + name
}

// MemoryBackend keeps secrets in a process-local TTL cache.
type MemoryBackend struct {
	cache *cache.Cache
}

func NewMemoryBackend(c *cache.Cache) *MemoryBackend {
	return &MemoryBackend{cache: c}
}

func (m *MemoryBackend) Get(_ context.Context, sid, name string) (string, bool, error) {
	v, ok := m.cache.Get(backendKey(sid, name))
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, sid, name, value string, ttl time.Duration) error {
	m.cache.SetWithTTL(backendKey(sid, name), value, ttl)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, sid string, names ...string) error {
	for _, name := range names {
		m.cache.Clear(backendKey(sid, name))
	}
	return nil
}

// RedisBackend keeps secrets in Redis with per-key expiry, so several web
// client instances can share sessions.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "artfolio:"}
}

// ConnectRedis opens a client and checks it answers within five seconds.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (b *RedisBackend) Get(ctx context.Context, sid, name string) (string, bool, error) {
	v, err := b.client.Get(ctx, b.prefix+backendKey(sid, name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, sid, name, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.prefix+backendKey(sid, name), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, sid string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = b.prefix + backendKey(sid, name)
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ServerSide is a SecretStore for one request. The session id cookie is
// created on the first write.
type ServerSide struct {
	w       http.ResponseWriter
	r       *http.Request
	backend Backend
	secure  bool
	sid     string
}

func NewServerSide(w http.ResponseWriter, r *http.Request, backend Backend, secure bool) *ServerSide {
	s := &ServerSide{w: w, r: r, backend: backend, secure: secure}
	if c, err := r.Cookie(SessionIDCookieName); err == nil {
		s.sid = c.Value
	}
	return s
}

func (s *ServerSide) Secret(ctx context.Context, name string) (string, bool, error) {
	if s.sid == "" {
		return "", false, nil
	}
	return s.backend.Get(ctx, s.sid, name)
}

func (s *ServerSide) SetSecret(ctx context.Context, name, value string, maxAge time.Duration) error {
	if s.sid == "" {
		sid, err := generateSessionID()
		if err != nil {
			return err
		}
		s.sid = sid
	}
	// Refresh the id cookie on every write so it outlives the newest secret.
	http.SetCookie(s.w, &http.Cookie{
		Name:     SessionIDCookieName,
		Value:    s.sid,
		Path:     "/",
		MaxAge:   int(sessionIDMaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s.backend.Set(ctx, s.sid, name, value, maxAge)
}

func (s *ServerSide) DeleteSecrets(ctx context.Context, names ...string) error {
	if s.sid == "" {
		return nil
	}
	return s.backend.Delete(ctx, s.sid, names...)
}

// generateSessionID returns 32 random bytes, base64url encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
