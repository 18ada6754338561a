// ABOUTME: Fetchers for the public artwork catalog and artwork search
// ABOUTME: Adapt the backend client to the loader's skip/limit contract

package feed

import (
	"context"

	"github.com/markalston/artfolio-web/models"
)

// Catalog is the part of the backend client the feed reads from.
type Catalog interface {
	ListArtworks(ctx context.Context, skip, limit int) ([]models.Artwork, error)
	SearchArtworks(ctx context.Context, query string, skip, limit int) ([]models.Artwork, error)
}

// ArtworksFetcher pages through all artworks, newest first.
func ArtworksFetcher(c Catalog) Fetcher {
	return c.ListArtworks
}

// SearchFetcher pages through artworks matching query.
func SearchFetcher(c Catalog, query string) Fetcher {
	return func(ctx context.Context, skip, limit int) ([]models.Artwork, error) {
		return c.SearchArtworks(ctx, query, skip, limit)
	}
}

// NewArtworks returns a loader over the whole catalog.
func NewArtworks(c Catalog, opts ...Option) *Loader {
	return New(ArtworksFetcher(c), opts...)
}

// NewSearch returns a loader over search results. An empty query lists everything.
func NewSearch(c Catalog, query string, opts ...Option) *Loader {
	if query == "" {
		return NewArtworks(c, opts...)
	}
	return New(SearchFetcher(c, query), opts...)
}
