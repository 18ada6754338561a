// ABOUTME: Artwork and account endpoints of the fake backend
// ABOUTME: Paginated listing, search, multipart create/update and owner-checked delete

package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/markalston/artfolio-web/models"
)

// view returns a with its owner's current public profile. Caller holds b.mu.
func (b *Backend) view(a *artwork) models.Artwork {
	out := a.Artwork
	if acct, ok := b.accounts[a.Owner.Username]; ok {
		out.Owner = acct.user.Public()
	}
	return out
}

func (b *Backend) handleListArtworks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	all := b.sortedArtworks(nil)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, paginate(all, r.URL.Query()))
}

func (b *Backend) handleSearchArtworks(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	b.mu.Lock()
	matches := b.sortedArtworks(func(a *artwork) bool {
		return strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.Description), q)
	})
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, paginate(matches, r.URL.Query()))
}

func (b *Backend) handleGetArtwork(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	a, ok := b.artworks[mux.Vars(r)["id"]]
	var out models.Artwork
	if ok {
		out = b.view(a)
	}
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Artwork not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateArtwork(w http.ResponseWriter, r *http.Request) {
	username, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeValidation(w, "title", "Field required")
		return
	}
	imageURL, found, err := b.readImage(r, "image")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if !found {
		writeValidation(w, "image", "Field required")
		return
	}

	b.mu.Lock()
	acct := b.accounts[username]
	acct.user.IsArtist = true
	b.seq++
	a := &artwork{
		Artwork: models.Artwork{
			ID:          uuid.NewString(),
			Title:       title,
			Description: r.FormValue("description"),
			ImageURL:    imageURL,
			Owner:       acct.user.Public(),
			CreatedAt:   time.Now().UTC().Truncate(time.Second),
		},
		seq: b.seq,
	}
	b.artworks[a.ID] = a
	out := b.view(a)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

// ownedArtwork loads the artwork in the route and checks username owns it.
func (b *Backend) ownedArtwork(w http.ResponseWriter, r *http.Request, username string) (*artwork, bool) {
	b.mu.Lock()
	a, ok := b.artworks[mux.Vars(r)["id"]]
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Artwork not found")
		return nil, false
	}
	if a.Owner.Username != username {
		writeDetail(w, http.StatusForbidden, "Not authorized to modify this artwork")
		return nil, false
	}
	return a, true
}

func (b *Backend) handleUpdateArtwork(w http.ResponseWriter, r *http.Request) {
	username, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	a, ok := b.ownedArtwork(w, r, username)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	imageURL, found, err := b.readImage(r, "image")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	if title, ok := r.MultipartForm.Value["title"]; ok && strings.TrimSpace(title[0]) != "" {
		a.Title = strings.TrimSpace(title[0])
	}
	if desc, ok := r.MultipartForm.Value["description"]; ok {
		a.Description = desc[0]
	}
	if found {
		a.ImageURL = imageURL
	}
	out := b.view(a)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleDeleteArtwork(w http.ResponseWriter, r *http.Request) {
	username, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	a, ok := b.ownedArtwork(w, r, username)
	if !ok {
		return
	}
	b.mu.Lock()
	delete(b.artworks, a.ID)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleAccountDetails(w http.ResponseWriter, r *http.Request) {
	username, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	u := b.accounts[username].user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	imageURL, found, err := b.readImage(r, "profile_image")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if name, ok := r.MultipartForm.Value["full_name"]; ok && len(name[0]) > 100 {
		writeValidation(w, "full_name", "String should have at most 100 characters")
		return
	}

	b.mu.Lock()
	acct := b.accounts[username]
	if name, ok := r.MultipartForm.Value["full_name"]; ok {
		acct.user.FullName = name[0]
	}
	if bio, ok := r.MultipartForm.Value["bio"]; ok {
		acct.user.Bio = bio[0]
	}
	if found {
		acct.user.ProfileImage = imageURL
	}
	u := acct.user
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, u)
}
