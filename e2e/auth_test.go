// ABOUTME: End-to-end tests for the browser session lifecycle
// ABOUTME: Signup, login, upload, refresh and logout through every credential store

package e2e

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/markalston/artfolio-web/config"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
)

// storeKinds lists the credential stores to run against. Redis joins when
// REDIS_ADDR points at a server.
func storeKinds() []string {
	kinds := []string{config.StoreCookie, config.StoreSealed, config.StoreMemory}
	if os.Getenv("REDIS_ADDR") != "" {
		kinds = append(kinds, config.StoreRedis)
	}
	return kinds
}

func TestSessionLifecycle_E2E(t *testing.T) {
	for _, kind := range storeKinds() {
		t.Run(kind, func(t *testing.T) {
			s := newStack(t, map[string]string{"SESSION_STORE": kind})

			// Signup logs straight in.
			resp, body := s.post(t, "/signup", url.Values{
				"username": {"mira"},
				"email":    {"mira@example.com"},
				"password": {"secret1"},
			})
			if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/profile" {
				t.Fatalf("signup = %d %q: %s", resp.StatusCode, resp.Header.Get("Location"), body)
			}

			// Tokens never reach the browser outside the plain cookie store.
			if kind != config.StoreCookie && s.cookie(services.AccessTokenKey) != "" {
				t.Errorf("%s store leaked the access token into a cookie", kind)
			}

			_, body = s.get(t, "/account")
			if !strings.Contains(body, "mira@example.com") {
				t.Fatal("account page does not show the signed-in user")
			}

			// Upload and find it at the head of the feed.
			resp, body = s.upload(t, "/upload", map[string]string{"title": "Dusk", "description": "Orange sky"},
				"dusk.png", "image/png", []byte("\x89PNG"))
			if resp.StatusCode != http.StatusSeeOther {
				t.Fatalf("upload = %d: %s", resp.StatusCode, body)
			}
			_, body = s.get(t, "/explore")
			if !strings.Contains(body, "Dusk") {
				t.Error("uploaded artwork missing from the feed")
			}
			if q := s.backend.LastQuery("/artworks"); q.Get("skip") != "0" || q.Get("limit") != "20" {
				t.Errorf("feed query = %v, want skip=0 limit=20", q)
			}

			// Silent refresh keeps the session.
			if body := s.refresh(t); !strings.Contains(body, `"refreshed":true`) {
				t.Errorf("refresh = %s", body)
			}
			if _, body = s.get(t, "/api/v1/session"); !strings.Contains(body, `"authenticated":true`) {
				t.Errorf("session after refresh = %s", body)
			}

			// Logout clears everything.
			s.post(t, "/logout", nil)
			if _, body = s.get(t, "/api/v1/session"); !strings.Contains(body, `"authenticated":false`) {
				t.Errorf("session after logout = %s", body)
			}
			if body := s.refresh(t); !strings.Contains(body, `"reason":"no_refresh_token"`) {
				t.Errorf("refresh after logout = %s", body)
			}
		})
	}
}

func TestRejectedAccountFetch_RecoversAfterRefresh_E2E(t *testing.T) {
	s := newStack(t, map[string]string{"SESSION_STORE": config.StoreSealed})
	s.backend.AddUser("mira", "mira@example.com", "secret1")
	s.login(t, "mira@example.com", "secret1")

	// /account always asks the backend, so a rejected token shows up there
	// even while the navigation profile is still cached.
	s.backend.FailNext("/account-details", 1, http.StatusUnauthorized)
	resp, _ := s.get(t, "/account")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("account with rejected token = %d, want 502", resp.StatusCode)
	}

	if body := s.refresh(t); !strings.Contains(body, `"refreshed":true`) {
		t.Fatalf("refresh = %s", body)
	}
	resp, body := s.get(t, "/account")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "mira@example.com") {
		t.Errorf("account after refresh = %d", resp.StatusCode)
	}
}

func TestRevokedAccessToken_E2E(t *testing.T) {
	s := newStack(t, map[string]string{"SESSION_STORE": config.StoreCookie, "CACHE_TTL": "1"})
	s.backend.AddUser("mira", "mira@example.com", "secret1")
	s.login(t, "mira@example.com", "secret1")

	s.backend.Revoke(s.cookie(services.AccessTokenKey))
	// Let the cached profile for the revoked token lapse.
	time.Sleep(1100 * time.Millisecond)

	resp, _ := s.get(t, "/upload")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("upload form with revoked token = %d, want redirect to login", resp.StatusCode)
	}

	if body := s.refresh(t); !strings.Contains(body, `"refreshed":true`) {
		t.Fatalf("refresh = %s", body)
	}
	if resp, _ := s.get(t, "/upload"); resp.StatusCode != http.StatusOK {
		t.Errorf("upload form after refresh = %d, want 200", resp.StatusCode)
	}
}

func TestSessionCookieAttributes_E2E(t *testing.T) {
	s := newStack(t, map[string]string{"SESSION_STORE": config.StoreMemory})
	s.backend.AddUser("mira", "mira@example.com", "secret1")

	form := url.Values{"email": {"mira@example.com"}, "password": {"secret1"}, "csrf_token": {s.csrfToken(t)}}
	req, _ := http.NewRequest(http.MethodPost, s.web.URL+"/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ := s.send(t, req)

	var sid *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == store.SessionIDCookieName {
			sid = c
		}
	}
	if sid == nil {
		t.Fatal("no session id cookie set on login")
	}
	if !sid.HttpOnly || sid.SameSite != http.SameSiteLaxMode || sid.Path != "/" {
		t.Errorf("session cookie = %+v, want HttpOnly Lax on /", sid)
	}
}
