// ABOUTME: ArtFolio client for terminal use
// ABOUTME: Wraps the backend API and session manager over credentials kept in a local file

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/markalston/artfolio-web/feed"
	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
)

// DefaultTimeout bounds every backend request made by the CLI.
const DefaultTimeout = 30 * time.Second

// sniffLen is how much of a file content type detection looks at.
const sniffLen = 512

// Client is the CLI's view of one ArtFolio account on one backend.
type Client struct {
	api      *services.APIClient
	sessions *services.SessionManager
	creds    *store.File
	stores   services.Stores
}

// New talks to baseURL and keeps credentials under configDir.
func New(baseURL, configDir string) (*Client, error) {
	creds, err := store.NewFile(configDir)
	if err != nil {
		return nil, err
	}
	api := services.NewAPIClient(baseURL, DefaultTimeout)
	return &Client{
		api:      api,
		sessions: services.NewSessionManager(api),
		creds:    creds,
		stores:   services.Stores{Secrets: creds, Prefs: creds},
	}, nil
}

// BaseURL returns the backend the client talks to.
func (c *Client) BaseURL() string {
	return c.api.BaseURL()
}

// CredentialsPath returns where tokens are stored.
func (c *Client) CredentialsPath() string {
	return c.creds.Path()
}

// Login signs in and stores the tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*services.Session, error) {
	if errs := services.ValidateLogin(email, password); len(errs) > 0 {
		return nil, errs
	}
	return c.sessions.Login(ctx, c.stores, email, password)
}

// Signup registers an account and then signs in with it.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*services.Session, error) {
	if errs := services.ValidateSignup(username, email, password); len(errs) > 0 {
		return nil, errs
	}
	if err := c.sessions.Register(ctx, username, email, password); err != nil {
		return nil, err
	}
	return c.sessions.Login(ctx, c.stores, email, password)
}

// Logout forgets the stored credentials. The backend is not contacted.
func (c *Client) Logout(ctx context.Context) {
	c.sessions.Logout(ctx, c.stores)
}

// Refresh mints a new access token from the stored refresh token.
func (c *Client) Refresh(ctx context.Context) error {
	return c.sessions.Refresh(ctx, c.stores)
}

// LoggedIn reports whether a refresh token is stored, which is what keeps
// a CLI session alive between runs.
func (c *Client) LoggedIn(ctx context.Context) bool {
	_, ok, err := c.stores.Secrets.Secret(ctx, services.RefreshTokenKey)
	return err == nil && ok
}

// Refresher keeps the stored access token fresh while a long-running
// command is open.
func (c *Client) Refresher(interval time.Duration) *services.Refresher {
	return services.SessionRefresher(c.sessions, c.stores, interval)
}

// token returns a usable access token. An access token that has aged out of
// the store is replaced once from the refresh token; a token the backend
// rejects is not.
func (c *Client) token(ctx context.Context) (string, error) {
	token, err := c.sessions.AccessToken(ctx, c.stores)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, services.ErrNotAuthenticated) {
		return "", err
	}
	if err := c.Refresh(ctx); err != nil {
		if errors.Is(err, services.ErrNoRefreshToken) {
			return "", services.ErrNotAuthenticated
		}
		return "", err
	}
	return c.sessions.AccessToken(ctx, c.stores)
}

// Identity is what whoami reports.
type Identity struct {
	User      *models.User
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// Whoami fetches the signed-in profile and reads the access token's expiry.
func (c *Client) Whoami(ctx context.Context) (*Identity, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	user, err := c.sessions.AccountDetails(ctx, c.stores)
	if err != nil {
		return nil, err
	}
	id := &Identity{User: user}
	if claims, err := services.ParseTokenClaims(token); err == nil {
		id.ExpiresAt = claims.ExpiresAt
		id.ExpiresIn = claims.ExpiresIn(time.Now())
	}
	return id, nil
}

// Search returns one page of artworks whose title or description matches query.
func (c *Client) Search(ctx context.Context, query string, skip, limit int) ([]models.Artwork, error) {
	if query == "" {
		return c.api.ListArtworks(ctx, skip, limit)
	}
	return c.api.SearchArtworks(ctx, query, skip, limit)
}

// Feed returns a loader over the catalog, or over search results for query.
func (c *Client) Feed(query string) *feed.Loader {
	return feed.NewSearch(c.api, query)
}

// Upload posts the image at path as a new artwork owned by the signed-in user.
func (c *Client) Upload(ctx context.Context, path, title, description string) (*models.Artwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	contentType, err := detectContentType(f)
	if err != nil {
		return nil, err
	}

	errs := services.ValidateArtworkForm(title, description, false, false)
	for field, msg := range services.ValidateImage("image", contentType, info.Size()) {
		errs[field] = msg
	}
	if len(errs) > 0 {
		return nil, errs
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.CreateArtwork(ctx, token, models.ArtworkCreate{
		Title:       title,
		Description: description,
		Image: models.FileUpload{
			Filename:    filepath.Base(path),
			ContentType: contentType,
			Size:        info.Size(),
			Body:        f,
		},
	})
}

// detectContentType sniffs the file's type and rewinds it.
func detectContentType(f io.ReadSeeker) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}
