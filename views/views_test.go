// ABOUTME: Tests for embedded template parsing and rendering
// ABOUTME: Checks escaping, conditional scripts and the load-more fragment

package views

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestNew_ParsesAllPages(t *testing.T) {
	r := newRenderer(t)
	for _, name := range []string{"home", "explore", "search", "artists", "artwork", "artwork_edit", "upload", "profile", "account", "login", "signup", "error"} {
		if _, ok := r.pages[name]; !ok {
			t.Errorf("page %q not parsed", name)
		}
	}
}

func TestPage_UnknownPage(t *testing.T) {
	r := newRenderer(t)
	if err := r.Page(io.Discard, "nope", &Page{}); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestPage_AnonymousLayout(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	err := r.Page(&buf, "login", &Page{
		Title:     "Log in",
		Session:   &services.Session{},
		CSRFToken: "tok123",
		Form:      map[string]string{"email": `"><script>x</script>`},
		Fields:    services.FieldErrors{"password": "Password is required"},
	})
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Log in · ArtFolio", `name="csrf_token" value="tok123"`, "Password is required", `href="/signup"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<script>x</script>") {
		t.Error("form value was not escaped")
	}
	if strings.Contains(out, "refresh.js") {
		t.Error("refresh script included with RefreshInterval 0")
	}
}

func TestPage_AuthenticatedLayout(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	err := r.Page(&buf, "home", &Page{
		Session:         &services.Session{Username: "mira", User: &models.User{Username: "mira", FullName: "Mira Sol"}},
		RefreshInterval: 1200,
		Data: map[string]any{
			"Artworks": []models.Artwork{{ID: "a1", Title: "Dusk", Owner: models.UserPublic{Username: "mira"}}},
			"Artists":  []models.UserPublic{{Username: "mira"}},
		},
	})
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{`href="/profile/mira"`, `action="/logout"`, `data-interval="1200"`, `href="/art/a1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, `href="/login"`) {
		t.Error("login link shown to an authenticated user")
	}
}

func TestPage_ExploreStates(t *testing.T) {
	r := newRenderer(t)
	render := func(hasMore bool) string {
		var buf bytes.Buffer
		err := r.Page(&buf, "explore", &Page{
			Session: &services.Session{},
			Data: map[string]any{
				"Query": "", "Items": []models.Artwork{{ID: "a1"}}, "HasMore": hasMore, "Limit": 20, "Offset": 0, "Next": 1,
			},
		})
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		return buf.String()
	}

	more := render(true)
	if !strings.Contains(more, `data-has-more="true"`) || !strings.Contains(more, "feed.js") {
		t.Error("explore with more pages lacks the load-more wiring")
	}
	if !strings.Contains(more, `id="feed-end" hidden`) {
		t.Error("end notice visible while more pages exist")
	}

	done := render(false)
	if strings.Contains(done, `id="feed-end" hidden`) {
		t.Error("end notice hidden on a finished feed")
	}
}

func TestPartial_Cards(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	items := []models.Artwork{
		{ID: "a1", Title: "Dusk", Owner: models.UserPublic{Username: "mira", FullName: "Mira Sol"}},
		{ID: "a2", Title: "Noon", Owner: models.UserPublic{Username: "jon"}},
	}
	if err := r.Partial(&buf, "cards", items); err != nil {
		t.Fatalf("Partial failed: %v", err)
	}
	out := buf.String()

	if n := strings.Count(out, `class="card"`); n != 2 {
		t.Errorf("cards = %d, want 2", n)
	}
	if !strings.Contains(out, "Mira Sol") || !strings.Contains(out, ">jon<") {
		t.Errorf("owner display names missing: %s", out)
	}
	if strings.Contains(out, "<html") {
		t.Error("partial rendered the layout")
	}
}

func TestStatic_ServesScripts(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/static/", Static()))
	defer srv.Close()

	for _, name := range []string{"app.css", "refresh.js", "feed.js"} {
		resp, err := http.Get(srv.URL + "/static/" + name)
		if err != nil {
			t.Fatalf("GET %s failed: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", name, resp.StatusCode)
		}
	}
}
