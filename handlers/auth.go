// ABOUTME: Auth handlers implementing the token-cookie BFF pattern
// ABOUTME: Login, signup, logout, silent refresh, account editing and the session endpoint

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/markalston/artfolio-web/middleware"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
)

// maxFormMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const maxFormMemory = 8 << 20

// LoginForm shows the login form, or skips it for a signed-in user.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"), "")
	if middleware.GetSession(r).Authenticated() {
		http.Redirect(w, r, safeNext(next, "/profile"), http.StatusSeeOther)
		return
	}
	p := h.page(r, "Log in")
	p.Form = map[string]string{"next": next}
	h.render(w, http.StatusOK, "login", p)
}

// Login authenticates against the backend and stores the tokens.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	next := safeNext(r.PostFormValue("next"), "")

	p := h.page(r, "Log in")
	p.Form = map[string]string{"email": email, "next": next}

	if errs := services.ValidateLogin(email, password); len(errs) > 0 {
		p.Fields = errs
		h.render(w, http.StatusUnprocessableEntity, "login", p)
		return
	}

	if _, err := h.sessions.Login(r.Context(), h.stores(r), email, password); err != nil {
		slog.Info("Login failed", "error", err)
		p.Error = services.UserMessage(err)
		h.render(w, loginFailureStatus(err), "login", p)
		return
	}

	h.redirect(w, r, safeNext(next, "/profile"), "Login successful! Welcome back.")
}

// loginFailureStatus keeps backend rejections as 4xx and transport trouble as 502.
func loginFailureStatus(err error) int {
	if !services.IsBackendReachable(err) {
		return http.StatusBadGateway
	}
	if status := services.StatusOf(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

// SignupForm shows the registration form.
func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetSession(r).Authenticated() {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "signup", h.page(r, "Sign up"))
}

// Signup registers an account and then logs straight into it.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	p := h.page(r, "Sign up")
	p.Form = map[string]string{"username": username, "email": email}

	if errs := services.ValidateSignup(username, email, password); len(errs) > 0 {
		p.Fields = errs
		h.render(w, http.StatusUnprocessableEntity, "signup", p)
		return
	}

	if err := h.sessions.Register(r.Context(), username, email, password); err != nil {
		slog.Info("Signup failed", "error", err)
		p.Error = services.UserMessage(err)
		h.render(w, loginFailureStatus(err), "signup", p)
		return
	}

	if _, err := h.sessions.Login(r.Context(), h.stores(r), email, password); err != nil {
		slog.Warn("Login after signup failed", "error", err)
		h.redirect(w, r, "/login", "Account created. Please log in.")
		return
	}
	h.redirect(w, r, "/profile", "Account created! You've been logged in.")
}

// Logout clears the stored credentials. It never fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context(), h.stores(r))
	h.redirect(w, r, "/", "You have been logged out.")
}

// Refresh is the silent refresh the page script calls on load and on a
// timer. It always answers 200 with whether a new access token was stored.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Refresh(r.Context(), h.stores(r))
	if err == nil {
		h.writeJSON(w, http.StatusOK, models.RefreshResponse{Refreshed: true})
		return
	}

	if !errors.Is(err, services.ErrNoRefreshToken) {
		slog.Warn("Token refresh failed", "error", err)
	}
	h.writeJSON(w, http.StatusOK, models.RefreshResponse{
		Refreshed: false,
		Reason:    string(services.KindOf(err)),
	})
}

// SessionInfo reports the current authentication state as JSON.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r)
	h.writeJSON(w, http.StatusOK, models.SessionResponse{
		Authenticated: sess.Authenticated(),
		Username:      sess.Username,
		User:          sess.User,
	})
}

// Account shows the signed-in user's details with the profile form.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.AccountDetails(r.Context(), h.stores(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p := h.page(r, "Account")
	p.Data = user
	p.Form = map[string]string{"full_name": user.FullName, "bio": user.Bio}
	h.render(w, http.StatusOK, "account", p)
}

// UpdateAccount saves the profile form: name, bio and an optional image.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipart(r)

	fullName := strings.TrimSpace(r.FormValue("full_name"))
	bio := strings.TrimSpace(r.FormValue("bio"))
	upd := models.AccountUpdate{FullName: &fullName, Bio: &bio}

	fields := services.FieldErrors{}
	if len(fullName) > 100 {
		fields["full_name"] = "Full name must be 100 characters or fewer"
	}
	if len(bio) > 500 {
		fields["bio"] = "Bio must be 500 characters or fewer"
	}
	file, closeFile, errs := formImage(r, "profile_image")
	defer closeFile()
	for k, v := range errs {
		fields[k] = v
	}
	upd.ProfileImage = file

	sess := middleware.GetSession(r)
	if len(fields) > 0 {
		h.renderAccountForm(w, r, http.StatusUnprocessableEntity, fullName, bio, fields, "")
		return
	}

	user, err := h.sessions.UpdateProfile(r.Context(), h.stores(r), upd)
	if err != nil {
		slog.Info("Profile update failed", "error", err)
		h.renderAccountForm(w, r, loginFailureStatus(err), fullName, bio, nil, services.UserMessage(err))
		return
	}

	h.gallery.ForgetProfile(user.Username)
	if sess.Username != "" && sess.Username != user.Username {
		h.gallery.ForgetProfile(sess.Username)
	}
	h.redirect(w, r, "/account", "Profile updated.")
}

func (h *Handler) renderAccountForm(w http.ResponseWriter, r *http.Request, status int, fullName, bio string, fields services.FieldErrors, message string) {
	p := h.page(r, "Account")
	if sess := middleware.GetSession(r); sess.Authenticated() {
		p.Data = sess.User
	} else {
		p.Data = &models.User{}
	}
	p.Form = map[string]string{"full_name": fullName, "bio": bio}
	p.Fields = fields
	p.Error = message
	h.render(w, status, "account", p)
}
