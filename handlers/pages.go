// ABOUTME: Public gallery pages: home, explore feed, search, artists, artworks and profiles
// ABOUTME: The explore feed is seeded server-side; /explore/more serves further batches as HTML

package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/markalston/artfolio-web/feed"
	"github.com/markalston/artfolio-web/middleware"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
)

// maxPageLimit bounds the limit a client may ask /explore/more for.
const maxPageLimit = 100

// feedPage is the data behind explore and artwork search.
type feedPage struct {
	Query   string
	Items   []models.Artwork
	HasMore bool
	Limit   int
	Offset  int // skip of the first seeded item
	Next    int
}

type searchPage struct {
	Query    string
	Type     string
	Artworks []models.Artwork
	Users    []models.UserPublic
	HasMore  bool
	Limit    int
}

type artistsPage struct {
	Query   string
	Artists []models.UserPublic
}

type artworkPage struct {
	Artwork models.Artwork
	CanEdit bool
}

type profilePage struct {
	User     models.UserPublic
	Artworks []models.Artwork
	IsOwner  bool
}

// firstPage loads one batch starting at skip through a feed loader, so the
// end-of-feed rule is the same one the browser script applies.
func (h *Handler) firstPage(ctx context.Context, query string, skip int) (*feedPage, error) {
	loader := feed.New(func(ctx context.Context, offset, limit int) ([]models.Artwork, error) {
		return h.gallery.Artworks(ctx, query, skip+offset, limit)
	})

	if res := loader.LoadMore(ctx); res.Status == feed.StatusError {
		return nil, res.Err
	}
	st := loader.State()
	return &feedPage{
		Query:   query,
		Items:   st.Items,
		HasMore: st.HasMore,
		Limit:   feed.Limit,
		Offset:  skip,
		Next:    skip + len(st.Items),
	}, nil
}

// Home shows recent artworks and the artist directory.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	home, err := h.gallery.Home(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p := h.page(r, "")
	p.Data = home
	h.render(w, http.StatusOK, "home", p)
}

// Explore seeds the feed with the first batch; the page script loads the rest.
// A skip parameter serves script-less browsers.
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		skip = 0
	}

	data, err := h.firstPage(r.Context(), q, skip)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p := h.page(r, "Explore")
	p.Data = data
	h.render(w, http.StatusOK, "explore", p)
}

// ExploreMore returns one batch of artwork cards as an HTML fragment. The
// X-Feed-Count header carries how many artworks the fragment holds; a count
// below the requested limit means the feed has ended.
func (h *Handler) ExploreMore(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	skip, err := strconv.Atoi(query.Get("skip"))
	if err != nil || skip < 0 {
		http.Error(w, "skip must be a non-negative integer", http.StatusBadRequest)
		return
	}
	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil || limit < 1 {
		limit = feed.Limit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, err := h.gallery.Artworks(r.Context(), strings.TrimSpace(query.Get("q")), skip, limit)
	if err != nil {
		slog.Warn("Feed batch failed", "skip", skip, "error", err)
		http.Error(w, services.UserMessage(err), http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := h.views.Partial(&buf, "cards", items); err != nil {
		slog.Error("Template render failed", "partial", "cards", "error", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Feed-Count", strconv.Itoa(len(items)))
	w.Write(buf.Bytes())
}

// Search finds artworks (paged like explore) or artists.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	kind := r.URL.Query().Get("type")
	if kind != "users" {
		kind = "artworks"
	}

	data := searchPage{Query: q, Type: kind, Limit: feed.Limit}
	if q != "" {
		if kind == "users" {
			users, err := h.gallery.Artists(r.Context(), q)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			data.Users = users
		} else {
			fp, err := h.firstPage(r.Context(), q, 0)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			data.Artworks = fp.Items
			data.HasMore = fp.HasMore
		}
	}

	p := h.page(r, "Search")
	p.Data = data
	h.render(w, http.StatusOK, "search", p)
}

// Artists lists artists, filtered by q.
func (h *Handler) Artists(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	artists, err := h.gallery.Artists(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p := h.page(r, "Artists")
	p.Data = artistsPage{Query: q, Artists: artists}
	h.render(w, http.StatusOK, "artists", p)
}

// Artwork shows one artwork; its owner also gets edit and delete controls.
func (h *Handler) Artwork(w http.ResponseWriter, r *http.Request) {
	a, err := h.gallery.Artwork(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess := middleware.GetSession(r)
	p := h.page(r, a.Title)
	p.Data = artworkPage{
		Artwork: *a,
		CanEdit: sess.Authenticated() && a.OwnedBy(sess.User.Username),
	}
	h.render(w, http.StatusOK, "artwork", p)
}

// MyProfile sends the signed-in user to their public page.
func (h *Handler) MyProfile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	if !sess.Authenticated() {
		http.Redirect(w, r, "/login?next=%2Fprofile", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/profile/"+sess.User.Username, http.StatusSeeOther)
}

// Profile shows an artist's portfolio.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	portfolio, err := h.gallery.Portfolio(r.Context(), username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess := middleware.GetSession(r)
	p := h.page(r, portfolio.User.DisplayName())
	p.Data = profilePage{
		User:     portfolio.User,
		Artworks: portfolio.Artworks,
		IsOwner:  sess.Authenticated() && sess.User.Username == portfolio.User.Username,
	}
	h.render(w, http.StatusOK, "profile", p)
}
