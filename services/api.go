// ABOUTME: HTTP client for the ArtFolio backend REST API
// ABOUTME: JSON and streamed multipart requests with typed error mapping

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markalston/artfolio-web/models"
)

// DefaultAPIBaseURL is used when no base URL is configured.
const DefaultAPIBaseURL = "http://localhost:8000/api/v1"

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// APIClient talks to the backend. It holds no credentials; authenticated
// calls take the access token explicitly.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// messages names the user-facing text for each failure of one call.
type messages struct {
	connection string // transport failure
	failed     string // non-OK status without a usable detail
	notFound   string // 404, if the call distinguishes it
}

var (
	authMessages    = messages{connection: "Failed to connect to the server"}
	accountMessages = messages{connection: "Connection failed"}
	catalogMessages = messages{connection: "Connection error"}
)

func (m messages) with(failed, notFound string) messages {
	m.failed = failed
	m.notFound = notFound
	return m
}

// Register creates an account. The backend response body is not needed.
func (c *APIClient) Register(ctx context.Context, req models.RegisterRequest) error {
	return c.sendJSON(ctx, http.MethodPost, "/auth/register", "", req, nil, authMessages.with("Registration failed", ""))
}

// Login exchanges credentials for a token pair.
func (c *APIClient) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	var out models.TokenResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", "", req, &out, authMessages.with("Login failed", "")); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token. The response's
// refresh token is empty unless the backend rotated it.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	var out models.TokenResponse
	body := models.RefreshRequest{RefreshToken: refreshToken}
	msgs := messages{connection: "Failed to refresh token", failed: "Refresh failed"}
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/refresh", "", body, &out, msgs); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccountDetails fetches the account that owns token.
func (c *APIClient) AccountDetails(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := c.getJSON(ctx, "/account-details", token, &out, accountMessages.with("Failed to fetch account details", "")); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAccount PATCHes the non-nil fields of upd as multipart.
func (c *APIClient) UpdateAccount(ctx context.Context, token string, upd models.AccountUpdate) (*models.User, error) {
	var fields []formField
	if upd.FullName != nil {
		fields = append(fields, formField{name: "full_name", value: *upd.FullName})
	}
	if upd.Bio != nil {
		fields = append(fields, formField{name: "bio", value: *upd.Bio})
	}
	if upd.ProfileImage != nil {
		fields = append(fields, formField{name: "profile_image", file: upd.ProfileImage})
	}

	var out models.User
	if err := c.sendMultipart(ctx, http.MethodPatch, "/account-details", token, fields, &out, accountMessages.with("Failed to update account", "")); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListArtworks returns one page of the public catalog, newest first.
func (c *APIClient) ListArtworks(ctx context.Context, skip, limit int) ([]models.Artwork, error) {
	q := pageQuery(skip, limit)
	var out []models.Artwork
	if err := c.getJSON(ctx, "/artworks?"+q.Encode(), "", &out, catalogMessages.with("Failed to fetch artworks", "")); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchArtworks returns one page of artworks matching query.
func (c *APIClient) SearchArtworks(ctx context.Context, query string, skip, limit int) ([]models.Artwork, error) {
	q := pageQuery(skip, limit)
	q.Set("q", query)
	var out []models.Artwork
	if err := c.getJSON(ctx, "/artworks/search?"+q.Encode(), "", &out, catalogMessages.with("Failed to fetch artworks", "")); err != nil {
		return nil, err
	}
	return out, nil
}

// Artwork fetches one artwork.
func (c *APIClient) Artwork(ctx context.Context, id string) (*models.Artwork, error) {
	path, err := artworkPath(id)
	if err != nil {
		return nil, err
	}
	var out models.Artwork
	if err := c.getJSON(ctx, path, "", &out, catalogMessages.with("Failed to fetch artwork", "Artwork not found")); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateArtwork uploads a new artwork owned by token's account.
func (c *APIClient) CreateArtwork(ctx context.Context, token string, in models.ArtworkCreate) (*models.Artwork, error) {
	fields := []formField{
		{name: "title", value: in.Title},
		{name: "description", value: in.Description},
		{name: "image", file: &in.Image},
	}
	var out models.Artwork
	if err := c.sendMultipart(ctx, http.MethodPost, "/artworks", token, fields, &out, catalogMessages.with("Failed to create artwork", "")); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateArtwork PATCHes an artwork. A nil image keeps the current one.
func (c *APIClient) UpdateArtwork(ctx context.Context, token, id string, in models.ArtworkUpdate) (*models.Artwork, error) {
	path, err := artworkPath(id)
	if err != nil {
		return nil, err
	}
	fields := []formField{
		{name: "title", value: in.Title},
		{name: "description", value: in.Description},
	}
	if in.Image != nil {
		fields = append(fields, formField{name: "image", file: in.Image})
	}
	var out models.Artwork
	if err := c.sendMultipart(ctx, http.MethodPatch, path, token, fields, &out, catalogMessages.with("Failed to update artwork", "Artwork not found")); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteArtwork removes an artwork owned by token's account.
func (c *APIClient) DeleteArtwork(ctx context.Context, token, id string) error {
	path, err := artworkPath(id)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, path, token, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil, catalogMessages.with("Failed to delete artwork", "Artwork not found"))
}

// Users lists artists, or searches them when query is set.
func (c *APIClient) Users(ctx context.Context, query string) ([]models.UserPublic, error) {
	path := "/users"
	if query != "" {
		path = "/users/search?" + url.Values{"q": {query}}.Encode()
	}
	var out []models.UserPublic
	if err := c.getJSON(ctx, path, "", &out, catalogMessages.with("Failed to fetch users", "")); err != nil {
		return nil, err
	}
	return out, nil
}

// UserProfile fetches a public profile by username.
func (c *APIClient) UserProfile(ctx context.Context, username string) (*models.UserPublic, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, &Error{Kind: KindFetchFailed, Message: "User not found", Status: http.StatusNotFound, Err: err}
	}
	var out models.UserPublic
	path := "/users/" + url.PathEscape(username)
	if err := c.getJSON(ctx, path, "", &out, catalogMessages.with("Failed to fetch profile", "User not found")); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserArtworks lists the artworks owned by userID.
func (c *APIClient) UserArtworks(ctx context.Context, userID string) ([]models.Artwork, error) {
	if err := ValidateID(userID); err != nil {
		return nil, &Error{Kind: KindFetchFailed, Message: "Failed to fetch user artworks", Err: err}
	}
	var out []models.Artwork
	path := "/users/" + url.PathEscape(userID) + "/artworks"
	if err := c.getJSON(ctx, path, "", &out, catalogMessages.with("Failed to fetch user artworks", "")); err != nil {
		return nil, err
	}
	return out, nil
}

func artworkPath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", &Error{Kind: KindFetchFailed, Message: "Artwork not found", Status: http.StatusNotFound, Err: err}
	}
	return "/artworks/" + url.PathEscape(id), nil
}

func pageQuery(skip, limit int) url.Values {
	if skip < 0 {
		skip = 0
	}
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func (c *APIClient) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *APIClient) getJSON(ctx context.Context, path, token string, out any, msgs messages) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	return c.do(req, out, msgs)
}

func (c *APIClient) sendJSON(ctx context.Context, method, path, token string, in, out any, msgs messages) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, token, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, msgs)
}

// formField is one multipart part: a plain value, or a file when file is set.
type formField struct {
	name  string
	value string
	file  *models.FileUpload
}

// sendMultipart streams fields through a pipe so image bodies are never buffered whole.
func (c *APIClient) sendMultipart(ctx context.Context, method, path, token string, fields []formField, out any, msgs messages) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		for _, f := range fields {
			if f.file == nil {
				if err := writer.WriteField(f.name, f.value); err != nil {
					_ = pw.CloseWithError(fmt.Errorf("write %s field: %w", f.name, err))
					return
				}
				continue
			}
			if err := writeFilePart(writer, f.name, f.file); err != nil {
				_ = pw.CloseWithError(err)
				return
			}
		}
		if err := writer.Close(); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("close multipart writer: %w", err))
			return
		}
		_ = pw.Close()
	}()

	req, err := c.newRequest(ctx, method, path, token, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out, msgs)
}

func writeFilePart(w *multipart.Writer, name string, f *models.FileUpload) error {
	if f.Body == nil {
		return fmt.Errorf("write %s part: no file body", name)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, f.Filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", name, err)
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return fmt.Errorf("write %s part: %w", name, err)
	}
	return nil
}

// do sends req and decodes a 2xx JSON body into out (skipped when out is nil).
// Failures come back as *Error.
func (c *APIClient) do(req *http.Request, out any, msgs messages) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindConnectionFailed, Message: msgs.connection, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, body, msgs)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindFetchFailed, Message: msgs.failed, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func statusError(status int, body []byte, msgs messages) error {
	cause := fmt.Errorf("backend returned status %d", status)
	if status == http.StatusNotFound && msgs.notFound != "" {
		return &Error{Kind: KindFetchFailed, Message: msgs.notFound, Status: status, Err: cause}
	}
	if detail := parseDetail(body); detail != "" && status >= 400 && status < 500 {
		return &Error{Kind: KindValidationFailed, Message: detail, Status: status, Err: cause}
	}
	return &Error{Kind: KindFetchFailed, Message: msgs.failed, Status: status, Err: cause}
}

// parseDetail extracts the backend's "detail" field, which is either a string
// or a list of {"msg": ...} validation entries.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if it.Msg != "" {
			msgs = append(msgs, it.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}

// IsBackendReachable reports whether err came from a backend that answered.
func IsBackendReachable(err error) bool {
	return err == nil || !errors.Is(err, ErrConnectionFailed)
}
