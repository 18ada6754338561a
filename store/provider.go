// ABOUTME: Builds the per-request credential stores for the configured backend
// ABOUTME: The username preference always stays a plain cookie

package store

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markalston/artfolio-web/cache"
	"github.com/markalston/artfolio-web/config"
	"github.com/markalston/artfolio-web/services"
)

// Provider returns the stores for one browser request.
type Provider func(w http.ResponseWriter, r *http.Request) services.Stores

// CookieProvider keeps each token in its own httpOnly cookie.
func CookieProvider(secure bool) Provider {
	return func(w http.ResponseWriter, r *http.Request) services.Stores {
		jar := NewCookieJar(w, r, secure)
		return services.Stores{Secrets: jar, Prefs: jar}
	}
}

// SealedProvider keeps tokens inside one encrypted cookie.
func SealedProvider(cs sessions.Store, secure bool) Provider {
	return func(w http.ResponseWriter, r *http.Request) services.Stores {
		return services.Stores{
			Secrets: NewSealed(w, r, cs),
			Prefs:   NewCookieJar(w, r, secure),
		}
	}
}

// ServerSideProvider keeps tokens in backend behind a session-id cookie.
func ServerSideProvider(backend Backend, secure bool) Provider {
	return func(w http.ResponseWriter, r *http.Request) services.Stores {
		return services.Stores{
			Secrets: NewServerSide(w, r, backend, secure),
			Prefs:   NewCookieJar(w, r, secure),
		}
	}
}

// Open builds the provider cfg.SessionStore selects. The memory store keeps
// its entries in c. The returned func releases any connection Open made.
func Open(cfg *config.Config, c *cache.Cache) (Provider, func(), error) {
	noop := func() {}
	switch cfg.SessionStore {
	case config.StoreSealed:
		cs := NewSealedCookieStore(cfg.SessionSecret, cfg.CookieSecure)
		return SealedProvider(cs, cfg.CookieSecure), noop, nil
	case config.StoreMemory:
		return ServerSideProvider(NewMemoryBackend(c), cfg.CookieSecure), noop, nil
	case config.StoreRedis:
		client, err := ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		}
		return ServerSideProvider(NewRedisBackend(client), cfg.CookieSecure), closeFn, nil
	default:
		return CookieProvider(cfg.CookieSecure), noop, nil
	}
}
