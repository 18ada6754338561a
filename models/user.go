// ABOUTME: User models for account details and public profiles
// ABOUTME: User is the private self view; UserPublic is what other visitors see

package models

import "io"

// User is the authenticated account returned by /account-details.
// Email is only ever visible to its owner.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FullName     string `json:"full_name,omitempty"`
	Bio          string `json:"bio,omitempty"`
	IsActive     bool   `json:"is_active"`
	IsArtist     bool   `json:"is_artist"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Public returns the subset of u shown to other users.
func (u User) Public() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Bio:          u.Bio,
		IsArtist:     u.IsArtist,
		ProfileImage: u.ProfileImage,
	}
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// UserPublic is a profile as returned by /users endpoints and artwork owners
type UserPublic struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name,omitempty"`
	Bio          string `json:"bio,omitempty"`
	IsArtist     bool   `json:"is_artist"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u UserPublic) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// FileUpload is an image attached to a multipart request.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AccountUpdate carries the profile fields to PATCH. Nil fields are not sent.
type AccountUpdate struct {
	FullName     *string
	Bio          *string
	ProfileImage *FileUpload
}

// Empty reports whether the update would send nothing.
func (u AccountUpdate) Empty() bool {
	return u.FullName == nil && u.Bio == nil && u.ProfileImage == nil
}
