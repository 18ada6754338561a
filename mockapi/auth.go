// ABOUTME: Register, login and refresh endpoints of the fake backend
// ABOUTME: Mints HS256 JWT access and refresh tokens with golang-jwt

package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markalston/artfolio-web/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func (b *Backend) sign(username, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.signKey)
}

// parse verifies a token. typ, when set, must match the token's type.
func (b *Backend) parse(token, typ string) (*tokenClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return b.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if typ != "" && claims.Type != typ {
		return nil, errors.New("wrong token type")
	}

	b.mu.Lock()
	revoked := b.revoked[claims.ID]
	b.mu.Unlock()
	if revoked {
		return nil, errors.New("token revoked")
	}
	return &claims, nil
}

// authenticate resolves the bearer token on r to an account username.
func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}
	claims, err := b.parse(token, tokenAccess)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}

	b.mu.Lock()
	_, exists := b.accounts[claims.Subject]
	b.mu.Unlock()
	if !exists {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}
	return claims.Subject, true
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Password) < 6 {
		writeValidation(w, "password", "String should have at least 6 characters")
		return
	}
	if len(req.Username) < 3 {
		writeValidation(w, "username", "String should have at least 3 characters")
		return
	}

	b.mu.Lock()
	_, emailTaken := b.byEmail[strings.ToLower(req.Email)]
	_, nameTaken := b.accounts[req.Username]
	b.mu.Unlock()
	if emailTaken {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if nameTaken {
		writeDetail(w, http.StatusBadRequest, "Username already taken")
		return
	}

	u := b.AddUser(req.Username, req.Email, req.Password)
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	var acct *account
	if username, ok := b.byEmail[strings.ToLower(req.Email)]; ok {
		if a, ok := b.accounts[username]; ok {
			cp := *a
			acct = &cp
		}
	}
	b.mu.Unlock()

	if acct == nil || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !acct.user.IsActive {
		writeDetail(w, http.StatusForbidden, "Account is deactivated")
		return
	}

	writeJSON(w, http.StatusOK, b.IssueTokens(acct.user.Username))
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	claims, err := b.parse(req.RefreshToken, tokenRefresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, err := b.sign(claims.Subject, tokenAccess, b.accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	resp := models.TokenResponse{AccessToken: access, TokenType: "bearer", Username: claims.Subject}

	b.mu.Lock()
	rotate := b.rotate
	if rotate {
		b.revoked[claims.ID] = true
	}
	b.mu.Unlock()
	if rotate {
		resp.RefreshToken, _ = b.sign(claims.Subject, tokenRefresh, b.refreshTTL)
	}

	writeJSON(w, http.StatusOK, resp)
}
