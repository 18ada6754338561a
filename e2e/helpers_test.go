// ABOUTME: Test helpers for e2e tests
// ABOUTME: Builds the full web client from environment configuration against the fake backend

package e2e

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/markalston/artfolio-web/cache"
	"github.com/markalston/artfolio-web/config"
	"github.com/markalston/artfolio-web/handlers"
	"github.com/markalston/artfolio-web/middleware"
	"github.com/markalston/artfolio-web/mockapi"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
	"github.com/markalston/artfolio-web/views"
)

const testSecret = "e2e-secret-0123456789abcdef012345"

// withTestEnv points configuration at apiURL plus any extra variables.
// t.Setenv restores the originals when the test ends.
//
// Example:
//
//	withTestEnv(t, api.URL, map[string]string{
//	    "SESSION_STORE": "sealed",
//	})
func withTestEnv(t *testing.T, apiURL string, extra map[string]string) {
	t.Helper()

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_BASE_URL", apiURL+mockapi.Prefix)
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("SENTRY_DSN", "")

	for key, value := range extra {
		t.Setenv(key, value)
	}
}

// stack is a running web client, its fake backend and a browser.
type stack struct {
	backend *mockapi.Backend
	web     *httptest.Server
	browser *http.Client
	cfg     *config.Config
}

// newStack wires the web client the way main does, from the environment.
func newStack(t *testing.T, extra map[string]string, opts ...mockapi.Option) *stack {
	t.Helper()
	b := mockapi.New(opts...)
	api := httptest.NewServer(b)
	t.Cleanup(api.Close)

	withTestEnv(t, api.URL, extra)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}

	c := cache.New(time.Duration(cfg.CacheTTL) * time.Second)
	t.Cleanup(c.Stop)
	provider, closeStore, err := store.Open(cfg, c)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(closeStore)

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("views.New failed: %v", err)
	}
	client := services.NewAPIClient(cfg.APIBaseURL, time.Duration(cfg.APITimeout)*time.Second)
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	sessions := services.NewSessionManager(client, services.WithProfileCache(c, ttl))
	gallery := services.NewGallery(client, c, ttl)

	h := handlers.NewHandler(cfg, sessions, gallery, renderer)
	web := httptest.NewServer(h.Router(handlers.RouterConfig{Provider: provider}))
	t.Cleanup(web.Close)

	return &stack{backend: b, web: web, browser: newBrowser(), cfg: cfg}
}

func newBrowser() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *stack) send(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := s.browser.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (s *stack) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, s.web.URL+path, nil)
	return s.send(t, req)
}

func (s *stack) cookies() []*http.Cookie {
	u, _ := url.Parse(s.web.URL)
	return s.browser.Jar.Cookies(u)
}

func (s *stack) cookie(name string) string {
	for _, c := range s.cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrfToken loads a page if needed so the browser holds a CSRF cookie.
func (s *stack) csrfToken(t *testing.T) string {
	t.Helper()
	if tok := s.cookie(middleware.CSRFCookieName); tok != "" {
		return tok
	}
	s.get(t, "/")
	return s.cookie(middleware.CSRFCookieName)
}

func (s *stack) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, s.csrfToken(t))
	req, _ := http.NewRequest(http.MethodPost, s.web.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.send(t, req)
}

func (s *stack) upload(t *testing.T, path string, fields map[string]string, filename, contentType string, data []byte) (*http.Response, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField(middleware.CSRFFormField, s.csrfToken(t))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
		hdr.Set("Content-Type", contentType)
		part, _ := mw.CreatePart(hdr)
		part.Write(data)
	}
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, s.web.URL+path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(t, req)
}

func (s *stack) login(t *testing.T, email, password string) {
	t.Helper()
	resp, body := s.post(t, "/login", url.Values{"email": {email}, "password": {password}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d: %s", resp.StatusCode, body)
	}
}

func (s *stack) refresh(t *testing.T) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, s.web.URL+"/auth/refresh", nil)
	req.Header.Set(middleware.CSRFHeaderName, s.csrfToken(t))
	req.Header.Set("Accept", "application/json")
	_, body := s.send(t, req)
	return body
}
