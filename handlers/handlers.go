// ABOUTME: HTTP handlers for the ArtFolio web client
// ABOUTME: Shared dependencies, page rendering, flash messages and error responses

package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markalston/artfolio-web/config"
	"github.com/markalston/artfolio-web/middleware"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/views"
)

// flashKey is the preference slot carrying a one-shot message across a redirect.
const (
	flashKey    = "flash"
	flashMaxAge = time.Minute
)

type Handler struct {
	cfg      *config.Config
	sessions *services.SessionManager
	gallery  *services.Gallery
	views    *views.Renderer
}

func NewHandler(cfg *config.Config, sessions *services.SessionManager, gallery *services.Gallery, v *views.Renderer) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		gallery:  gallery,
		views:    v,
	}
}

// stores returns the credential stores the session middleware resolved.
// Routes are always wrapped by it, so a miss is a wiring bug.
func (h *Handler) stores(r *http.Request) services.Stores {
	st, ok := middleware.GetStores(r)
	if !ok {
		panic("handlers: session middleware not installed")
	}
	return st
}

// page builds the common page data and consumes any pending flash message.
func (h *Handler) page(r *http.Request, title string) *views.Page {
	p := &views.Page{
		Title:     title,
		Session:   middleware.GetSession(r),
		CSRFToken: middleware.CSRFToken(r),
	}
	if h.cfg != nil {
		p.RefreshInterval = h.cfg.RefreshInterval
	}
	if st, ok := middleware.GetStores(r); ok {
		if raw, ok := st.Prefs.Preference(flashKey); ok {
			if msg, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
				p.Flash = string(msg)
			}
			st.Prefs.DeletePreferences(flashKey)
		}
	}
	return p
}

// render writes a full page. Templates execute into a buffer first so a
// template failure still produces a clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, p *views.Page) {
	var buf bytes.Buffer
	if err := h.views.Page(&buf, name, p); err != nil {
		slog.Error("Template render failed", "page", name, "error", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// redirect sends the browser to target with an optional flash message.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target, flash string) {
	if flash != "" {
		if st, ok := middleware.GetStores(r); ok {
			st.Prefs.SetPreference(flashKey, base64.RawURLEncoding.EncodeToString([]byte(flash)), flashMaxAge)
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// errorPage is the data behind the error template.
type errorPage struct {
	Status  int
	Message string
	Offline bool
}

// fail renders a backend failure as a page. 404s keep their status; anything
// else is a bad gateway from the browser's point of view.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if services.StatusOf(err) == http.StatusNotFound {
		status = http.StatusNotFound
	}
	if status != http.StatusNotFound {
		slog.Warn("Backend request failed", "path", r.URL.Path, "error", err)
	}

	p := h.page(r, http.StatusText(status))
	p.Data = errorPage{
		Status:  status,
		Message: services.UserMessage(err),
		Offline: !services.IsBackendReachable(err),
	}
	h.render(w, status, "error", p)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, message string) {
	p := h.page(r, "Not found")
	p.Data = errorPage{Status: http.StatusNotFound, Message: message}
	h.render(w, http.StatusNotFound, "error", p)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request, message string) {
	p := h.page(r, "Forbidden")
	p.Data = errorPage{Status: http.StatusForbidden, Message: message}
	h.render(w, http.StatusForbidden, "error", p)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// safeNext keeps post-login redirects on this site.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return next
}
