// ABOUTME: Artwork write handlers: upload, edit and delete
// ABOUTME: Owner checks happen here; the backend enforces them again on its side

package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/markalston/artfolio-web/middleware"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
)

// artworkForm is the data behind the edit page.
type artworkForm struct {
	ID string
}

// formImage returns the uploaded file in field, or nil when none was sent.
// The returned close func is always safe to call.
func formImage(r *http.Request, field string) (*models.FileUpload, func(), services.FieldErrors) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, services.FieldErrors{field: "Could not read the uploaded file"}
	}
	if hdr.Size == 0 {
		f.Close()
		return nil, noop, nil
	}

	contentType := hdr.Header.Get("Content-Type")
	if errs := services.ValidateImage(field, contentType, hdr.Size); len(errs) > 0 {
		f.Close()
		return nil, noop, errs
	}
	return &models.FileUpload{
		Filename:    hdr.Filename,
		ContentType: contentType,
		Size:        hdr.Size,
		Body:        f,
	}, func() { f.Close() }, nil
}

func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

// rejectBody answers a form that could not be parsed, usually because it
// went over the body limit.
func (h *Handler) rejectBody(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		http.Error(w, "Upload too large. Images must be 5MB or smaller.", http.StatusRequestEntityTooLarge)
		return
	}
	slog.Info("Malformed form submission", "path", r.URL.Path, "error", err)
	http.Error(w, "Malformed form submission", http.StatusBadRequest)
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.rejectBody(w, r, err)
		return false
	}
	return true
}

// UploadForm shows the empty upload form.
func (h *Handler) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "upload", h.page(r, "Upload artwork"))
}

// Upload creates an artwork from the multipart form.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipart(r)

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	image, closeImage, imageErrs := formImage(r, "image")
	defer closeImage()

	fields := services.ValidateArtworkForm(title, description, image == nil && len(imageErrs) == 0, false)
	for k, v := range imageErrs {
		fields[k] = v
	}

	p := h.page(r, "Upload artwork")
	p.Form = map[string]string{"title": title, "description": description}
	if len(fields) > 0 {
		p.Fields = fields
		h.render(w, http.StatusUnprocessableEntity, "upload", p)
		return
	}

	token, err := h.sessions.AccessToken(r.Context(), h.stores(r))
	if err != nil {
		http.Redirect(w, r, "/login?next=/upload", http.StatusSeeOther)
		return
	}

	a, err := h.gallery.Create(r.Context(), token, models.ArtworkCreate{
		Title:       title,
		Description: description,
		Image:       *image,
	})
	if err != nil {
		slog.Info("Artwork upload failed", "error", err)
		p.Error = services.UserMessage(err)
		h.render(w, loginFailureStatus(err), "upload", p)
		return
	}
	h.redirect(w, r, "/art/"+a.ID, "Artwork uploaded.")
}

// ownedArtwork loads the artwork in the route and checks the signed-in user
// owns it. It writes the response itself when the answer is no.
func (h *Handler) ownedArtwork(w http.ResponseWriter, r *http.Request) (*models.Artwork, bool) {
	id := mux.Vars(r)["id"]
	a, err := h.gallery.Artwork(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if sess := middleware.GetSession(r); !sess.Authenticated() || !a.OwnedBy(sess.Username) {
		h.forbidden(w, r, "You can only change your own artworks.")
		return nil, false
	}
	return a, true
}

// EditForm shows the edit form prefilled with the artwork.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArtwork(w, r)
	if !ok {
		return
	}
	p := h.page(r, "Edit "+a.Title)
	p.Data = artworkForm{ID: a.ID}
	p.Form = map[string]string{"title": a.Title, "description": a.Description}
	h.render(w, http.StatusOK, "artwork_edit", p)
}

// Edit saves the edit form. Title and description are required; a new
// image is optional.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArtwork(w, r)
	if !ok {
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipart(r)

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	image, closeImage, imageErrs := formImage(r, "image")
	defer closeImage()

	fields := services.ValidateArtworkForm(title, description, false, true)
	for k, v := range imageErrs {
		fields[k] = v
	}

	p := h.page(r, "Edit "+a.Title)
	p.Data = artworkForm{ID: a.ID}
	p.Form = map[string]string{"title": title, "description": description}
	if len(fields) > 0 {
		p.Fields = fields
		h.render(w, http.StatusUnprocessableEntity, "artwork_edit", p)
		return
	}

	token, err := h.sessions.AccessToken(r.Context(), h.stores(r))
	if err != nil {
		http.Redirect(w, r, "/login?next=/art/"+a.ID+"/edit", http.StatusSeeOther)
		return
	}

	if _, err := h.gallery.Update(r.Context(), token, a.ID, models.ArtworkUpdate{
		Title:       title,
		Description: description,
		Image:       image,
	}); err != nil {
		slog.Info("Artwork update failed", "id", a.ID, "error", err)
		p.Error = services.UserMessage(err)
		h.render(w, loginFailureStatus(err), "artwork_edit", p)
		return
	}
	h.redirect(w, r, "/art/"+a.ID, "Artwork updated.")
}

// Delete removes an owned artwork and returns to the owner's profile.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArtwork(w, r)
	if !ok {
		return
	}
	token, err := h.sessions.AccessToken(r.Context(), h.stores(r))
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := h.gallery.Delete(r.Context(), token, a.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/profile/"+a.Owner.Username, "Artwork deleted.")
}
