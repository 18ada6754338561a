// ABOUTME: Tests for the session manager against the fake backend
// ABOUTME: Verifies login persistence, refresh rotation rules, logout and session derivation

package services_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/markalston/artfolio-web/cache"
	"github.com/markalston/artfolio-web/mockapi"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
)

func newBackend(t *testing.T, opts ...mockapi.Option) (*mockapi.Backend, *httptest.Server, *services.APIClient) {
	t.Helper()
	b := mockapi.New(opts...)
	b.AddUser("mira", "mira@example.com", "secret1")
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv, services.NewAPIClient(srv.URL+mockapi.Prefix, 5*time.Second)
}

func memoryStores() (*store.Memory, services.Stores) {
	m := store.NewMemory()
	return m, services.Stores{Secrets: m, Prefs: m}
}

func secret(t *testing.T, st services.Stores, name string) string {
	t.Helper()
	v, _, err := st.Secrets.Secret(context.Background(), name)
	if err != nil {
		t.Fatalf("Secret(%s) failed: %v", name, err)
	}
	return v
}

func TestSessionManager_LoginThenAccountDetails(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	sess, err := mgr.Login(ctx, st, "mira@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !sess.Authenticated() || sess.Username != "mira" {
		t.Errorf("session = %+v, want authenticated mira", sess)
	}

	user, err := mgr.AccountDetails(ctx, st)
	if err != nil {
		t.Fatalf("AccountDetails failed: %v", err)
	}
	if user.Username != sess.Username {
		t.Errorf("AccountDetails username = %q, want %q", user.Username, sess.Username)
	}
	if name, _ := st.Prefs.Preference(services.UsernameKey); name != "mira" {
		t.Errorf("username preference = %q, want mira", name)
	}
}

func TestSessionManager_LoginCookieLifetimes(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)

	rec := httptest.NewRecorder()
	jar := store.NewCookieJar(rec, httptest.NewRequest(http.MethodPost, "/login", nil), true)
	if _, err := mgr.Login(context.Background(), services.Stores{Secrets: jar, Prefs: jar}, "mira@example.com", "secret1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	want := map[string]struct {
		maxAge   int
		httpOnly bool
	}{
		services.AccessTokenKey:  {1800, true},
		services.RefreshTokenKey: {604800, true},
		services.UsernameKey:     {604800, false},
	}
	got := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		got[c.Name] = c
	}
	for name, w := range want {
		c, ok := got[name]
		if !ok {
			t.Errorf("cookie %s not set", name)
			continue
		}
		if c.MaxAge != w.maxAge || c.HttpOnly != w.httpOnly || c.Path != "/" || !c.Secure {
			t.Errorf("cookie %s = MaxAge %d HttpOnly %v Path %q Secure %v; want %d %v / true",
				name, c.MaxAge, c.HttpOnly, c.Path, c.Secure, w.maxAge, w.httpOnly)
		}
	}
}

func TestSessionManager_LoginInvalidCredentials(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	mem, st := memoryStores()

	_, err := mgr.Login(context.Background(), st, "mira@example.com", "wrong")
	if !errors.Is(err, services.ErrValidationFailed) {
		t.Fatalf("err = %v, want validation failure", err)
	}
	if got := services.UserMessage(err); got != "Incorrect email or password" {
		t.Errorf("UserMessage = %q, want backend detail", got)
	}
	if mem.Writes() != 0 {
		t.Errorf("Writes = %d, want 0", mem.Writes())
	}
}

func TestSessionManager_LoginBackendDown(t *testing.T) {
	_, srv, api := newBackend(t)
	srv.Close()
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()

	_, err := mgr.Login(context.Background(), st, "mira@example.com", "secret1")
	if !errors.Is(err, services.ErrConnectionFailed) {
		t.Fatalf("err = %v, want connection failure", err)
	}
	if got := services.UserMessage(err); got != "Failed to connect to the server" {
		t.Errorf("UserMessage = %q", got)
	}
}

// refusingStore fails every write of one secret.
type refusingStore struct {
	*store.Memory
	refuse string
}

func (s refusingStore) SetSecret(ctx context.Context, name, value string, maxAge time.Duration) error {
	if name == s.refuse {
		return errors.New("disk full")
	}
	return s.Memory.SetSecret(ctx, name, value, maxAge)
}

func TestSessionManager_LoginRollsBackAccessToken(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	mem := store.NewMemory()
	st := services.Stores{Secrets: refusingStore{Memory: mem, refuse: services.RefreshTokenKey}, Prefs: mem}

	if _, err := mgr.Login(context.Background(), st, "mira@example.com", "secret1"); err == nil {
		t.Fatal("Login succeeded without storing the refresh token")
	}
	if got := secret(t, st, services.AccessTokenKey); got != "" {
		t.Errorf("access token %q kept without a refresh token", got)
	}
	if name, _ := mem.Preference(services.UsernameKey); name != "" {
		t.Errorf("username preference = %q, want none", name)
	}
}

func TestSessionManager_RefreshWithoutToken(t *testing.T) {
	b, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	mem, st := memoryStores()
	mem.SetSecret(context.Background(), services.AccessTokenKey, "still-here", time.Minute)
	before := mem.Writes()

	err := mgr.Refresh(context.Background(), st)
	if !errors.Is(err, services.ErrNoRefreshToken) {
		t.Fatalf("err = %v, want ErrNoRefreshToken", err)
	}
	if mem.Writes() != before {
		t.Errorf("Writes = %d, want %d (no storage write)", mem.Writes(), before)
	}
	if b.Calls("/auth/refresh") != 0 {
		t.Error("backend refresh endpoint was called without a token")
	}
	if secret(t, st, services.AccessTokenKey) != "still-here" {
		t.Error("access token changed")
	}
}

func TestSessionManager_RefreshWithoutRotation(t *testing.T) {
	_, _, api := newBackend(t, mockapi.WithoutRotation())
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	if _, err := mgr.Login(ctx, st, "mira@example.com", "secret1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	oldAccess := secret(t, st, services.AccessTokenKey)
	oldRefresh := secret(t, st, services.RefreshTokenKey)

	if err := mgr.Refresh(ctx, st); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := secret(t, st, services.RefreshTokenKey); got != oldRefresh {
		t.Error("refresh token changed although backend did not rotate it")
	}
	if got := secret(t, st, services.AccessTokenKey); got == oldAccess || got == "" {
		t.Error("access token not updated")
	}
}

func TestSessionManager_RefreshWithRotation(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	mgr.Login(ctx, st, "mira@example.com", "secret1")
	oldRefresh := secret(t, st, services.RefreshTokenKey)

	if err := mgr.Refresh(ctx, st); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := secret(t, st, services.RefreshTokenKey); got == oldRefresh {
		t.Error("rotated refresh token not stored")
	}

	// The old refresh token was revoked by rotation; the new one works.
	if err := mgr.Refresh(ctx, st); err != nil {
		t.Errorf("second Refresh failed: %v", err)
	}
}

func TestSessionManager_RefreshRejected(t *testing.T) {
	b, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	mgr.Login(ctx, st, "mira@example.com", "secret1")
	access := secret(t, st, services.AccessTokenKey)
	b.FailNext("/auth/refresh", 1, http.StatusUnauthorized)

	err := mgr.Refresh(ctx, st)
	if !errors.Is(err, services.ErrRefreshFailed) {
		t.Fatalf("err = %v, want ErrRefreshFailed", err)
	}
	if services.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("StatusOf = %d, want 401", services.StatusOf(err))
	}
	if secret(t, st, services.AccessTokenKey) != access {
		t.Error("stale access token must be retained after a failed refresh")
	}
	if sess := mgr.Current(ctx, st); !sess.Authenticated() {
		t.Error("failed refresh must not demote the session")
	}
}

func TestSessionManager_RefreshTransportFailure(t *testing.T) {
	b, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	mgr.Login(ctx, st, "mira@example.com", "secret1")
	b.DropNext("/auth/refresh", 1)

	err := mgr.Refresh(ctx, st)
	if !errors.Is(err, services.ErrConnectionFailed) {
		t.Errorf("err = %v, want connection failure", err)
	}
}

func TestSessionManager_AccountDetailsWithoutToken(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()

	_, err := mgr.AccountDetails(context.Background(), st)
	if !errors.Is(err, services.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestSessionManager_AccountDetailsDoesNotRefresh(t *testing.T) {
	b, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	mgr.Login(ctx, st, "mira@example.com", "secret1")
	b.Revoke(secret(t, st, services.AccessTokenKey))
	b.ResetCalls()

	_, err := mgr.AccountDetails(ctx, st)
	if !errors.Is(err, services.ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if services.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("StatusOf = %d, want 401", services.StatusOf(err))
	}
	if b.Calls("/auth/refresh") != 0 {
		t.Error("AccountDetails must not refresh and retry")
	}

	sess := mgr.Current(ctx, st)
	if sess.Authenticated() {
		t.Error("failed profile fetch must demote the session")
	}
	if sess.Username != "mira" {
		t.Errorf("Username = %q, want the stored preference", sess.Username)
	}
}

func TestSessionManager_LogoutOffline(t *testing.T) {
	_, srv, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()

	mgr.Login(ctx, st, "mira@example.com", "secret1")
	srv.Close()
	mgr.Logout(ctx, st)

	for _, name := range []string{services.AccessTokenKey, services.RefreshTokenKey} {
		if _, ok, _ := st.Secrets.Secret(ctx, name); ok {
			t.Errorf("%s still stored after logout", name)
		}
	}
	if _, ok := st.Prefs.Preference(services.UsernameKey); ok {
		t.Error("username still stored after logout")
	}
	if mgr.Current(ctx, st).Authenticated() {
		t.Error("session authenticated after logout")
	}
}

func TestSessionManager_UpdateProfile(t *testing.T) {
	b, _, api := newBackend(t)
	c := cache.New(time.Minute)
	defer c.Stop()
	mgr := services.NewSessionManager(api, services.WithProfileCache(c, time.Minute))
	_, st := memoryStores()
	ctx := context.Background()

	mgr.Login(ctx, st, "mira@example.com", "secret1")
	name := "Mira Sol"
	user, err := mgr.UpdateProfile(ctx, st, models.AccountUpdate{
		FullName: &name,
		ProfileImage: &models.FileUpload{
			Filename:    "me.png",
			ContentType: "image/png",
			Body:        strings.NewReader("\x89PNG fake"),
		},
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if user.FullName != "Mira Sol" || user.ProfileImage == "" {
		t.Errorf("user = %+v, want name and image", user)
	}

	b.ResetCalls()
	sess := mgr.Current(ctx, st)
	if sess.User == nil || sess.User.FullName != "Mira Sol" {
		t.Errorf("cached profile = %+v, want updated copy", sess.User)
	}
	if b.Calls("/account-details") != 0 {
		t.Error("Current should use the cached profile")
	}
}

func TestSessionManager_UpdateProfileErrors(t *testing.T) {
	b, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()
	ctx := context.Background()
	mgr.Login(ctx, st, "mira@example.com", "secret1")

	long := strings.Repeat("x", 101)
	_, err := mgr.UpdateProfile(ctx, st, models.AccountUpdate{FullName: &long})
	if got := services.UserMessage(err); got != "String should have at most 100 characters" {
		t.Errorf("UserMessage = %q, want server detail verbatim", got)
	}

	b.DropNext("/account-details", 1)
	bio := "hi"
	_, err = mgr.UpdateProfile(ctx, st, models.AccountUpdate{Bio: &bio})
	if got := services.UserMessage(err); got != "Connection failed" {
		t.Errorf("UserMessage = %q, want Connection failed", got)
	}
}

func TestSessionManager_Register(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	ctx := context.Background()

	if err := mgr.Register(ctx, "jon", "jon@example.com", "secret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := mgr.Register(ctx, "jon2", "jon@example.com", "secret1")
	if got := services.UserMessage(err); got != "Email already registered" {
		t.Errorf("UserMessage = %q", got)
	}

	_, st := memoryStores()
	if _, err := mgr.Login(ctx, st, "jon@example.com", "secret1"); err != nil {
		t.Errorf("Login after Register failed: %v", err)
	}
}

func TestSessionManager_CurrentAnonymous(t *testing.T) {
	_, _, api := newBackend(t)
	mgr := services.NewSessionManager(api)
	_, st := memoryStores()

	sess := mgr.Current(context.Background(), st)
	if sess == nil || sess.Authenticated() {
		t.Errorf("Current = %+v, want non-nil anonymous", sess)
	}
}
