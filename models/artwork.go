// ABOUTME: Artwork models for the gallery endpoints
// ABOUTME: Defines the summary shape and the create/update multipart payloads

package models

import "time"

// Artwork is an artwork summary as listed by /artworks and /users/{id}/artworks
type Artwork struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url"`
	Owner       UserPublic `json:"owner"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OwnedBy reports whether username owns the artwork.
func (a Artwork) OwnedBy(username string) bool {
	return username != "" && a.Owner.Username == username
}

// ArtworkCreate is the multipart payload for POST /artworks
type ArtworkCreate struct {
	Title       string
	Description string
	Image       FileUpload
}

// ArtworkUpdate is the multipart payload for PATCH /artworks/{id}.
// A nil Image keeps the current image.
type ArtworkUpdate struct {
	Title       string
	Description string
	Image       *FileUpload
}
