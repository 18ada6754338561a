// ABOUTME: Input validation for path segments and form submissions
// ABOUTME: Prevents URL injection via artwork ids and usernames, checks signup and upload forms

package services

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// MaxImageSize bounds uploaded artwork and profile images.
const MaxImageSize = 5 << 20

// AllowedImageTypes lists the content types accepted for uploads.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// idPattern matches backend resource ids (uuids or short slugs)
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// usernamePattern matches usernames accepted by the backend
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// sanitizeForLog removes control characters from strings to prevent log injection
// when including user input in error messages
func sanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// ValidateID validates an artwork or user id before it is placed in a URL path.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid id format: %s", sanitizeForLog(id))
	}
	return nil
}

// ValidateUsername validates a username before it is placed in a URL path.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("invalid username format: %s", sanitizeForLog(username))
	}
	return nil
}

// FieldErrors maps form field names to a message. Empty means valid.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, k := range []string{"username", "email", "password", "title", "description", "image", "full_name", "bio", "profile_image"} {
		if msg, ok := f[k]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// Err returns f as an error, or nil if there are no field errors.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// ValidateSignup checks the registration form.
func ValidateSignup(username, email, password string) FieldErrors {
	errs := FieldErrors{}
	if len(strings.TrimSpace(username)) < 3 {
		errs["username"] = "Username must be at least 3 characters"
	} else if ValidateUsername(username) != nil {
		errs["username"] = "Username may only contain letters, numbers, dots, dashes and underscores"
	}
	if !validEmail(email) {
		errs["email"] = "Please enter a valid email address"
	}
	if len(password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs
}

// ValidateLogin checks the login form.
func ValidateLogin(email, password string) FieldErrors {
	errs := FieldErrors{}
	if !validEmail(email) {
		errs["email"] = "Please enter a valid email address"
	}
	if password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

// ValidateImage checks an image's declared type and size. field names the form field.
func ValidateImage(field, contentType string, size int64) FieldErrors {
	errs := FieldErrors{}
	if !AllowedImageTypes[strings.ToLower(contentType)] {
		errs[field] = "Please upload a JPEG, PNG, GIF or WebP image"
	} else if size > MaxImageSize {
		errs[field] = "Image must be 5MB or smaller"
	}
	return errs
}

// ValidateArtworkForm checks the upload and edit forms. missingImage is set on create
// when no file was attached; edits keep the current image.
func ValidateArtworkForm(title, description string, missingImage, requireDescription bool) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(title) == "" {
		errs["title"] = "Title is required"
	} else if len(title) > 200 {
		errs["title"] = "Title must be 200 characters or fewer"
	}
	if requireDescription && strings.TrimSpace(description) == "" {
		errs["description"] = "Description is required"
	}
	if missingImage {
		errs["image"] = "Please select an image to upload"
	}
	return errs
}
