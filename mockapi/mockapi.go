// ABOUTME: In-memory implementation of the ArtFolio backend REST API
// ABOUTME: Used by tests and local development, with fault injection for edge cases

package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/markalston/artfolio-web/models"
	"golang.org/x/crypto/bcrypt"
)

// Prefix is the path every backend route lives under.
const Prefix = "/api/v1"

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	maxUpload         = 10 << 20
)

type account struct {
	user         models.User
	passwordHash []byte
}

type image struct {
	contentType string
	data        []byte
}

type artwork struct {
	models.Artwork
	seq int
}

// Backend is a fake backend. It implements http.Handler; mount it on an
// httptest.Server and point clients at URL+Prefix.
type Backend struct {
	mu         sync.Mutex
	accounts   map[string]*account // by username
	byEmail    map[string]string   // email -> username
	artworks   map[string]*artwork
	images     map[string]image
	revoked    map[string]bool // token ids
	seq        int
	rotate     bool
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	calls   map[string]int
	queries map[string]url.Values
	faults  map[string]*fault
	blocks  map[string]chan struct{}

	router *mux.Router
}

// Option configures a Backend.
type Option func(*Backend)

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(b *Backend) { b.accessTTL = d }
}

// WithRefreshTTL sets the lifetime of issued refresh tokens.
func WithRefreshTTL(d time.Duration) Option {
	return func(b *Backend) { b.refreshTTL = d }
}

// WithoutRotation makes /auth/refresh omit refresh_token from its response.
func WithoutRotation() Option {
	return func(b *Backend) { b.rotate = false }
}

func New(opts ...Option) *Backend {
	b := &Backend{
		accounts:   make(map[string]*account),
		byEmail:    make(map[string]string),
		artworks:   make(map[string]*artwork),
		images:     make(map[string]image),
		revoked:    make(map[string]bool),
		rotate:     true,
		signKey:    []byte(uuid.NewString()),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		calls:      make(map[string]int),
		queries:    make(map[string]url.Values),
		faults:     make(map[string]*fault),
		blocks:     make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.router = b.routes()
	return b
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix(Prefix).Subrouter()

	api.HandleFunc("/auth/register", b.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", b.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", b.handleRefresh).Methods(http.MethodPost)

	api.HandleFunc("/account-details", b.handleAccountDetails).Methods(http.MethodGet)
	api.HandleFunc("/account-details", b.handleUpdateAccount).Methods(http.MethodPatch)

	api.HandleFunc("/artworks", b.handleListArtworks).Methods(http.MethodGet)
	api.HandleFunc("/artworks", b.handleCreateArtwork).Methods(http.MethodPost)
	api.HandleFunc("/artworks/search", b.handleSearchArtworks).Methods(http.MethodGet)
	api.HandleFunc("/artworks/{id}", b.handleGetArtwork).Methods(http.MethodGet)
	api.HandleFunc("/artworks/{id}", b.handleUpdateArtwork).Methods(http.MethodPatch)
	api.HandleFunc("/artworks/{id}", b.handleDeleteArtwork).Methods(http.MethodDelete)

	api.HandleFunc("/users", b.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/search", b.handleSearchUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}", b.handleUserProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/artworks", b.handleUserArtworks).Methods(http.MethodGet)

	r.HandleFunc("/media/{id}", b.handleMedia).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	return r
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, Prefix)

	b.mu.Lock()
	b.calls[path]++
	b.queries[path] = r.URL.Query()
	f := b.faults[path]
	var status int
	var drop, hit bool
	if f != nil && f.remaining > 0 {
		f.remaining--
		status, drop, hit = f.status, f.drop, true
		if f.remaining == 0 {
			delete(b.faults, path)
		}
	}
	block := b.blocks[path]
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}

	if hit {
		if drop {
			dropConnection(w)
			return
		}
		writeDetail(w, status, http.StatusText(status))
		return
	}

	b.router.ServeHTTP(w, r)
}

// AddUser registers an account directly, bypassing /auth/register.
func (b *Backend) AddUser(username, email, password string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("mockapi: hash password: %v", err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		IsActive: true,
	}
	b.accounts[username] = &account{user: u, passwordHash: hash}
	b.byEmail[strings.ToLower(email)] = username
	return u
}

// SeedArtworks creates n artworks owned by username. The last one created is the newest.
func (b *Backend) SeedArtworks(username string, n int) []models.Artwork {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.accounts[username]
	if !ok {
		panic("mockapi: seed artworks for unknown user " + username)
	}
	acct.user.IsArtist = true

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Artwork, 0, n)
	for i := 0; i < n; i++ {
		b.seq++
		a := &artwork{
			Artwork: models.Artwork{
				ID:          uuid.NewString(),
				Title:       fmt.Sprintf("Artwork %d", b.seq),
				Description: fmt.Sprintf("Seeded artwork number %d", b.seq),
				ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%d/600/800", b.seq),
				Owner:       acct.user.Public(),
				CreatedAt:   base.Add(time.Duration(b.seq) * time.Minute),
			},
			seq: b.seq,
		}
		b.artworks[a.ID] = a
		out = append(out, a.Artwork)
	}
	return out
}

// IssueTokens mints a token pair for username without a login call.
func (b *Backend) IssueTokens(username string) models.TokenResponse {
	access, _ := b.sign(username, tokenAccess, b.accessTTL)
	refresh, _ := b.sign(username, tokenRefresh, b.refreshTTL)
	return models.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", Username: username}
}

// Revoke invalidates a previously issued token.
func (b *Backend) Revoke(token string) {
	c, err := b.parse(token, "")
	if err != nil {
		return
	}
	b.mu.Lock()
	b.revoked[c.ID] = true
	b.mu.Unlock()
}

// SetRotation turns refresh-token rotation on or off.
func (b *Backend) SetRotation(on bool) {
	b.mu.Lock()
	b.rotate = on
	b.mu.Unlock()
}

// ArtworkCount returns how many artworks exist.
func (b *Backend) ArtworkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.artworks)
}

// sortedArtworks returns matching artworks newest first. Caller holds b.mu.
func (b *Backend) sortedArtworks(keep func(*artwork) bool) []models.Artwork {
	list := make([]*artwork, 0, len(b.artworks))
	for _, a := range b.artworks {
		if keep == nil || keep(a) {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq > list[j].seq })
	out := make([]models.Artwork, len(list))
	for i, a := range list {
		out[i] = b.view(a)
	}
	return out
}

func paginate(items []models.Artwork, q url.Values) []models.Artwork {
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []models.Artwork{}
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation mirrors a FastAPI 422 body.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{
			{"loc": []string{"body", field}, "msg": msg, "type": "value_error"},
		},
	})
}

// dropConnection answers with an unparseable status line and hangs up.
// A bare close would let net/http silently replay the request on a fresh
// connection; a malformed response is never retried.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	conn, buf, err := hj.Hijack()
	if err != nil {
		return
	}
	_, _ = buf.WriteString("garbage\r\n\r\n")
	_ = buf.Flush()
	_ = conn.Close()
}

func mediaURL(r *http.Request, id string) string {
	return fmt.Sprintf("http://%s/media/%s", r.Host, id)
}

func (b *Backend) handleMedia(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	img, ok := b.images[mux.Vars(r)["id"]]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", img.contentType)
	_, _ = w.Write(img.data)
}

// readImage pulls an uploaded file part into memory and stores it.
func (b *Backend) readImage(r *http.Request, field string) (string, bool, error) {
	file, hdr, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", false, err
	}
	id := uuid.NewString()
	ct := hdr.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return "", false, fmt.Errorf("file must be an image")
	}

	b.mu.Lock()
	b.images[id] = image{contentType: ct, data: data}
	b.mu.Unlock()
	return mediaURL(r, id), true, nil
}
