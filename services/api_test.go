// ABOUTME: Tests for the backend REST client
// ABOUTME: Verifies request shapes, multipart fields and error message mapping

package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/markalston/artfolio-web/models"
)

func TestAPIClient_ListArtworksQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/artworks" {
			t.Errorf("path = %s, want /api/v1/artworks", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"id":"a1","title":"Dusk"}]`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL+"/api/v1/", time.Second)
	items, err := c.ListArtworks(context.Background(), 40, 20)
	if err != nil {
		t.Fatalf("ListArtworks failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Dusk" {
		t.Errorf("items = %+v", items)
	}
	if gotQuery != "limit=20&skip=40" {
		t.Errorf("query = %q, want limit=20&skip=40", gotQuery)
	}
}

func TestAPIClient_BearerHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(models.User{Username: "mira"})
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	if _, err := c.AccountDetails(context.Background(), "tok-123"); err != nil {
		t.Fatalf("AccountDetails failed: %v", err)
	}
	if auth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", auth)
	}
}

func TestAPIClient_RefreshBody(t *testing.T) {
	var body models.RefreshRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"access_token":"new","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	tok, err := c.Refresh(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if body.RefreshToken != "refresh-1" {
		t.Errorf("sent refresh_token = %q", body.RefreshToken)
	}
	if tok.AccessToken != "new" || tok.RefreshToken != "" {
		t.Errorf("token = %+v", tok)
	}
}

func TestAPIClient_CreateArtworkMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm failed: %v", err)
			return
		}
		if r.FormValue("title") != "Dusk" || r.FormValue("description") != "Orange sky" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part missing: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "pixels" || hdr.Filename != "dusk.png" || hdr.Header.Get("Content-Type") != "image/png" {
			t.Errorf("image part = %q %q %q", data, hdr.Filename, hdr.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"id":"a1","title":"Dusk"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	a, err := c.CreateArtwork(context.Background(), "tok", models.ArtworkCreate{
		Title:       "Dusk",
		Description: "Orange sky",
		Image:       models.FileUpload{Filename: "dusk.png", ContentType: "image/png", Body: strings.NewReader("pixels")},
	})
	if err != nil {
		t.Fatalf("CreateArtwork failed: %v", err)
	}
	if a.ID != "a1" {
		t.Errorf("ID = %q", a.ID)
	}
}

func TestAPIClient_UpdateAccountOmitsNilFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["full_name"]; ok {
			t.Error("full_name sent although nil")
		}
		if got := r.MultipartForm.Value["bio"]; len(got) != 1 || got[0] != "" {
			t.Errorf("bio = %v, want explicit empty", got)
		}
		w.Write([]byte(`{"username":"mira"}`))
	}))
	defer srv.Close()

	bio := ""
	c := NewAPIClient(srv.URL, time.Second)
	if _, err := c.UpdateAccount(context.Background(), "tok", models.AccountUpdate{Bio: &bio}); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
}

func TestAPIClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		call     func(*APIClient) error
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name:   "string detail",
			status: http.StatusBadRequest,
			body:   `{"detail":"Email already registered"}`,
			call: func(c *APIClient) error {
				return c.Register(context.Background(), models.RegisterRequest{})
			},
			wantKind: KindValidationFailed,
			wantMsg:  "Email already registered",
		},
		{
			name:   "list detail",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`,
			call: func(c *APIClient) error {
				return c.Register(context.Background(), models.RegisterRequest{})
			},
			wantKind: KindValidationFailed,
			wantMsg:  "field required; too short",
		},
		{
			name:   "no detail falls back",
			status: http.StatusBadRequest,
			body:   `oops`,
			call: func(c *APIClient) error {
				_, err := c.Login(context.Background(), models.LoginRequest{})
				return err
			},
			wantKind: KindFetchFailed,
			wantMsg:  "Login failed",
		},
		{
			name:   "server error ignores detail",
			status: http.StatusInternalServerError,
			body:   `{"detail":"stack trace"}`,
			call: func(c *APIClient) error {
				_, err := c.ListArtworks(context.Background(), 0, 20)
				return err
			},
			wantKind: KindFetchFailed,
			wantMsg:  "Failed to fetch artworks",
		},
		{
			name:   "artwork not found",
			status: http.StatusNotFound,
			body:   `{"detail":"Not Found"}`,
			call: func(c *APIClient) error {
				_, err := c.Artwork(context.Background(), "a1")
				return err
			},
			wantKind: KindFetchFailed,
			wantMsg:  "Artwork not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := tt.call(NewAPIClient(srv.URL, time.Second))
			if KindOf(err) != tt.wantKind {
				t.Errorf("KindOf = %q, want %q (err %v)", KindOf(err), tt.wantKind, err)
			}
			if got := UserMessage(err); got != tt.wantMsg {
				t.Errorf("UserMessage = %q, want %q", got, tt.wantMsg)
			}
			if StatusOf(err) != tt.status {
				t.Errorf("StatusOf = %d, want %d", StatusOf(err), tt.status)
			}
		})
	}
}

func TestAPIClient_ConnectionMessages(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewAPIClient(srv.URL, time.Second)
	ctx := context.Background()

	_, loginErr := c.Login(ctx, models.LoginRequest{})
	_, accountErr := c.AccountDetails(ctx, "tok")
	_, listErr := c.ListArtworks(ctx, 0, 20)

	for _, tc := range []struct {
		err  error
		want string
	}{
		{loginErr, "Failed to connect to the server"},
		{accountErr, "Connection failed"},
		{listErr, "Connection error"},
	} {
		if !errors.Is(tc.err, ErrConnectionFailed) {
			t.Errorf("err = %v, want connection failure", tc.err)
		}
		if got := UserMessage(tc.err); got != tc.want {
			t.Errorf("UserMessage = %q, want %q", got, tc.want)
		}
	}
	if IsBackendReachable(listErr) {
		t.Error("IsBackendReachable = true for a transport error")
	}
}

func TestAPIClient_RejectsUnsafePathSegments(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()
	c := NewAPIClient(srv.URL, time.Second)
	ctx := context.Background()

	if _, err := c.Artwork(ctx, "../account-details"); UserMessage(err) != "Artwork not found" {
		t.Errorf("Artwork(traversal) err = %v", err)
	}
	if _, err := c.UserProfile(ctx, "a/b"); UserMessage(err) != "User not found" {
		t.Errorf("UserProfile(slash) err = %v", err)
	}
	if err := c.DeleteArtwork(ctx, "tok", "a?b"); err == nil {
		t.Error("DeleteArtwork accepted an unsafe id")
	}
	if called {
		t.Error("unsafe path reached the backend")
	}
}

func TestAPIClient_UsersSearchPath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	c.Users(context.Background(), "")
	c.Users(context.Background(), "mi ra")

	want := []string{"/users", "/users/search?q=mi+ra"}
	for i, p := range want {
		if i >= len(paths) || paths[i] != p {
			t.Errorf("paths = %v, want %v", paths, want)
			break
		}
	}
}
