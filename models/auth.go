// ABOUTME: Auth request/response models shared with the backend REST API
// ABOUTME: Defines login, register and refresh contracts and the BFF session responses

package models

// LoginRequest represents credentials for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a new account for POST /auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
// An empty RefreshToken on a refresh response means the backend did not rotate it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Username     string `json:"username,omitempty"`
}

// LoginResponse represents the result of a login attempt on the JSON surface
type LoginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SessionResponse represents the current user's authentication state
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	User          *User  `json:"user,omitempty"`
}

// RefreshResponse reports whether a silent refresh rotated the access token
type RefreshResponse struct {
	Refreshed bool   `json:"refreshed"`
	Reason    string `json:"reason,omitempty"`
}
