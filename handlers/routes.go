// ABOUTME: Declarative route table and router assembly
// ABOUTME: Each route names its rate limit tier and whether it needs a signed-in user

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/markalston/artfolio-web/middleware"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
	"github.com/markalston/artfolio-web/views"
)

// Rate limit tiers.
const (
	TierAuth    = "auth"    // credential submissions, keyed by client IP
	TierWrite   = "write"   // uploads and edits, keyed by user
	TierDefault = "default" // everything else, keyed by session
	TierNone    = "none"    // health and static assets
)

// Body limits. Uploads carry one image plus a few form fields.
const (
	maxFormBody   = 1 << 20
	maxUploadBody = services.MaxImageSize + 1<<20
)

// Route defines an endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // mux path template (e.g., "/art/{id}")
	Handler http.HandlerFunc // Handler function
	Tier    string           // rate limit tier
	Auth    bool             // requires an authenticated session
	Upload  bool             // accepts an image upload
}

// Routes returns every page, form and JSON route.
func (h *Handler) Routes() []Route {
	return []Route{
		// Public pages
		{Method: http.MethodGet, Path: "/", Handler: h.Home, Tier: TierDefault},
		{Method: http.MethodGet, Path: "/explore", Handler: h.Explore, Tier: TierDefault},
		{Method: http.MethodGet, Path: "/explore/more", Handler: h.ExploreMore, Tier: TierDefault},
		{Method: http.MethodGet, Path: "/search", Handler: h.Search, Tier: TierDefault},
		{Method: http.MethodGet, Path: "/artists", Handler: h.Artists, Tier: TierDefault},
		{Method: http.MethodGet, Path: "/art/{id}", Handler: h.Artwork, Tier: TierDefault},
		{Method: http.MethodGet, Path: "/profile/{username}", Handler: h.Profile, Tier: TierDefault},

		// Auth
		{Method: http.MethodGet, Path: "/login", Handler: h.LoginForm, Tier: TierDefault},
		{Method: http.MethodPost, Path: "/login", Handler: h.Login, Tier: TierAuth},
		{Method: http.MethodGet, Path: "/signup", Handler: h.SignupForm, Tier: TierDefault},
		{Method: http.MethodPost, Path: "/signup", Handler: h.Signup, Tier: TierAuth},
		{Method: http.MethodPost, Path: "/logout", Handler: h.Logout, Tier: TierDefault},
		{Method: http.MethodPost, Path: "/auth/refresh", Handler: h.Refresh, Tier: TierDefault},

		// Signed-in pages
		{Method: http.MethodGet, Path: "/profile", Handler: h.MyProfile, Tier: TierDefault, Auth: true},
		{Method: http.MethodGet, Path: "/account", Handler: h.Account, Tier: TierDefault, Auth: true},
		{Method: http.MethodPost, Path: "/account", Handler: h.UpdateAccount, Tier: TierWrite, Auth: true, Upload: true},
		{Method: http.MethodGet, Path: "/upload", Handler: h.UploadForm, Tier: TierDefault, Auth: true},
		{Method: http.MethodPost, Path: "/upload", Handler: h.Upload, Tier: TierWrite, Auth: true, Upload: true},
		{Method: http.MethodGet, Path: "/art/{id}/edit", Handler: h.EditForm, Tier: TierDefault, Auth: true},
		{Method: http.MethodPost, Path: "/art/{id}/edit", Handler: h.Edit, Tier: TierWrite, Auth: true, Upload: true},
		{Method: http.MethodPost, Path: "/art/{id}/delete", Handler: h.Delete, Tier: TierWrite, Auth: true},

		// JSON
		{Method: http.MethodGet, Path: "/api/v1/health", Handler: h.Health, Tier: TierNone},
		{Method: http.MethodGet, Path: "/api/v1/session", Handler: h.SessionInfo, Tier: TierDefault},
	}
}

// RouterConfig carries what the router needs beyond the handler itself.
type RouterConfig struct {
	// Provider resolves per-request credential stores.
	Provider store.Provider
	// Window is the rate limit window. Zero means one minute.
	Window time.Duration
}

// Router builds the HTTP handler serving every route plus static assets.
// Middleware runs outermost first: panic recovery, request logging, CORS
// (JSON routes only), body limit, CSRF, session resolution, rate limiting,
// then the sign-in requirement.
func (h *Handler) Router(rc RouterConfig) http.Handler {
	window := rc.Window
	if window <= 0 {
		window = time.Minute
	}

	limits := map[string]func(http.HandlerFunc) http.HandlerFunc{}
	for _, tier := range []string{TierAuth, TierWrite, TierDefault, TierNone} {
		limits[tier] = middleware.RateLimit(nil, nil)
	}
	secure := false
	var origins []string
	if h.cfg != nil {
		secure = h.cfg.CookieSecure
		origins = h.cfg.CORSAllowedOrigins
		if h.cfg.RateLimitEnabled {
			limits[TierAuth] = middleware.RateLimit(middleware.NewRateLimiter(h.cfg.RateLimitAuth, window), middleware.ClientIP)
			limits[TierWrite] = middleware.RateLimit(middleware.NewRateLimiter(h.cfg.RateLimitWrite, window), middleware.UserOrIP)
			limits[TierDefault] = middleware.RateLimit(middleware.NewRateLimiter(h.cfg.RateLimitDefault, window), middleware.SessionKey)
		}
	}

	session := middleware.Session(middleware.SessionConfig{Manager: h.sessions, Provider: rc.Provider})
	csrf := middleware.CSRF(secure)
	cors := middleware.CORS(origins)

	r := mux.NewRouter()
	for _, route := range h.Routes() {
		chain := []func(http.HandlerFunc) http.HandlerFunc{middleware.Recover, middleware.LogRequest}
		methods := []string{route.Method}
		if strings.HasPrefix(route.Path, "/api/") {
			chain = append(chain, cors)
			methods = append(methods, http.MethodOptions)
		}
		limit := int64(maxFormBody)
		if route.Upload {
			limit = maxUploadBody
		}
		chain = append(chain, middleware.MaxBody(limit), csrf, session, limits[route.Tier])
		if route.Auth {
			chain = append(chain, middleware.RequireAuth)
		}
		r.HandleFunc(route.Path, middleware.Chain(route.Handler, chain...)).Methods(methods...)
	}

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", views.Static()))
	r.NotFoundHandler = middleware.Chain(h.NotFound, middleware.Recover, middleware.LogRequest, csrf, session)
	return r
}

// NotFound renders the 404 page for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	h.notFound(w, r, "Page not found")
}
