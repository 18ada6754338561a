// ABOUTME: Public gallery reads with short-lived caching and owner writes
// ABOUTME: Home page data is fetched concurrently; writes invalidate affected entries

package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/markalston/artfolio-web/cache"
	"github.com/markalston/artfolio-web/models"
	"golang.org/x/sync/errgroup"
)

// HomeArtworks is how many recent artworks the home page shows.
const HomeArtworks = 8

// CatalogAPI is the subset of the backend the gallery needs.
type CatalogAPI interface {
	ListArtworks(ctx context.Context, skip, limit int) ([]models.Artwork, error)
	SearchArtworks(ctx context.Context, query string, skip, limit int) ([]models.Artwork, error)
	Artwork(ctx context.Context, id string) (*models.Artwork, error)
	CreateArtwork(ctx context.Context, token string, in models.ArtworkCreate) (*models.Artwork, error)
	UpdateArtwork(ctx context.Context, token, id string, in models.ArtworkUpdate) (*models.Artwork, error)
	DeleteArtwork(ctx context.Context, token, id string) error
	Users(ctx context.Context, query string) ([]models.UserPublic, error)
	UserProfile(ctx context.Context, username string) (*models.UserPublic, error)
	UserArtworks(ctx context.Context, userID string) ([]models.Artwork, error)
}

// Home is the data behind the landing page.
type Home struct {
	Artworks []models.Artwork
	Artists  []models.UserPublic
}

// Portfolio is one artist's public page.
type Portfolio struct {
	User     models.UserPublic
	Artworks []models.Artwork
}

// Gallery serves catalog reads. Single artworks and profiles are cached for
// ttl; artwork lists are always fetched fresh.
type Gallery struct {
	api   CatalogAPI
	cache *cache.Cache
	ttl   time.Duration
}

// NewGallery caches public reads in c for ttl. A nil cache disables caching.
func NewGallery(api CatalogAPI, c *cache.Cache, ttl time.Duration) *Gallery {
	return &Gallery{api: api, cache: c, ttl: ttl}
}

func (g *Gallery) cached(key string) (any, bool) {
	if g.cache == nil {
		return nil, false
	}
	return g.cache.Get(key)
}

func (g *Gallery) remember(key string, v any) {
	if g.cache != nil {
		g.cache.SetWithTTL(key, v, g.ttl)
	}
}

func (g *Gallery) forget(keys ...string) {
	if g.cache == nil {
		return
	}
	for _, k := range keys {
		g.cache.Clear(k)
	}
}

// Home fetches recent artworks and the artist list in parallel.
func (g *Gallery) Home(ctx context.Context) (*Home, error) {
	var home Home
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		artworks, err := g.api.ListArtworks(ctx, 0, HomeArtworks)
		if err != nil {
			return err
		}
		home.Artworks = artworks
		return nil
	})
	eg.Go(func() error {
		artists, err := g.Artists(ctx, "")
		if err != nil {
			return err
		}
		home.Artists = artists
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &home, nil
}

// Artworks returns one page of the catalog, or of search results when query is set.
func (g *Gallery) Artworks(ctx context.Context, query string, skip, limit int) ([]models.Artwork, error) {
	if query != "" {
		return g.api.SearchArtworks(ctx, query, skip, limit)
	}
	return g.api.ListArtworks(ctx, skip, limit)
}

// Artwork fetches one artwork.
func (g *Gallery) Artwork(ctx context.Context, id string) (*models.Artwork, error) {
	key := "artwork:" + id
	if v, ok := g.cached(key); ok {
		a := v.(models.Artwork)
		return &a, nil
	}
	a, err := g.api.Artwork(ctx, id)
	if err != nil {
		return nil, err
	}
	g.remember(key, *a)
	return a, nil
}

// Artists lists users, filtered by query when set.
func (g *Gallery) Artists(ctx context.Context, query string) ([]models.UserPublic, error) {
	key := "users:" + query
	if v, ok := g.cached(key); ok {
		return v.([]models.UserPublic), nil
	}
	users, err := g.api.Users(ctx, query)
	if err != nil {
		return nil, err
	}
	g.remember(key, users)
	return users, nil
}

// Profile fetches a public profile.
func (g *Gallery) Profile(ctx context.Context, username string) (*models.UserPublic, error) {
	key := "profile:" + username
	if v, ok := g.cached(key); ok {
		u := v.(models.UserPublic)
		return &u, nil
	}
	u, err := g.api.UserProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	g.remember(key, *u)
	return u, nil
}

// Portfolio fetches a profile and then that user's artworks.
func (g *Gallery) Portfolio(ctx context.Context, username string) (*Portfolio, error) {
	u, err := g.Profile(ctx, username)
	if err != nil {
		return nil, err
	}
	artworks, err := g.api.UserArtworks(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Portfolio{User: *u, Artworks: artworks}, nil
}

// Create uploads an artwork. The owner may have just become an artist, so
// the user listings and their profile are dropped from the cache.
func (g *Gallery) Create(ctx context.Context, token string, in models.ArtworkCreate) (*models.Artwork, error) {
	a, err := g.api.CreateArtwork(ctx, token, in)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.ClearPrefix("users:")
	}
	g.forget("profile:" + a.Owner.Username)
	slog.Info("Artwork created", "id", a.ID, "owner", a.Owner.Username)
	return a, nil
}

// Update edits an artwork and replaces its cached copy.
func (g *Gallery) Update(ctx context.Context, token, id string, in models.ArtworkUpdate) (*models.Artwork, error) {
	a, err := g.api.UpdateArtwork(ctx, token, id, in)
	if err != nil {
		return nil, err
	}
	g.forget("artwork:" + id)
	g.remember("artwork:"+id, *a)
	return a, nil
}

// Delete removes an artwork.
func (g *Gallery) Delete(ctx context.Context, token, id string) error {
	if err := g.api.DeleteArtwork(ctx, token, id); err != nil {
		return err
	}
	g.forget("artwork:" + id)
	slog.Info("Artwork deleted", "id", id)
	return nil
}

// ForgetProfile drops a cached public profile, e.g. after its owner edits it.
func (g *Gallery) ForgetProfile(username string) {
	g.forget("profile:" + username)
	if g.cache != nil {
		g.cache.ClearPrefix("users:")
	}
}
