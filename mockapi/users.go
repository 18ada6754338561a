// ABOUTME: Public user endpoints of the fake backend
// ABOUTME: Artist listing, search, profile lookup and per-user artworks

package mockapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/markalston/artfolio-web/models"
)

func (b *Backend) publicUsers(keep func(models.User) bool) []models.UserPublic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.UserPublic, 0, len(b.accounts))
	for _, acct := range b.accounts {
		if keep == nil || keep(acct.user) {
			out = append(out, acct.user.Public())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.publicUsers(nil))
}

func (b *Backend) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	writeJSON(w, http.StatusOK, b.publicUsers(func(u models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.FullName), q)
	}))
}

func (b *Backend) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	acct, ok := b.accounts[mux.Vars(r)["username"]]
	var u models.UserPublic
	if ok {
		u = acct.user.Public()
	}
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleUserArtworks(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.sortedArtworks(func(a *artwork) bool { return a.Owner.ID == userID })
	writeJSON(w, http.StatusOK, list)
}
