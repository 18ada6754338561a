// ABOUTME: Incremental skip/limit loader for the artwork feed
// ABOUTME: One fetch in flight at a time; end of data and errors are distinct outcomes

package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/markalston/artfolio-web/models"
)

// Limit is the page size requested by LoadMore.
const Limit = 20

// Fetcher returns up to limit items starting at skip.
type Fetcher func(ctx context.Context, skip, limit int) ([]models.Artwork, error)

// Status is the outcome of one LoadMore or Retry call.
type Status int

const (
	// StatusSkipped means no request was made: one was in flight, the feed
	// has ended, it is in the error state, or the result arrived after Initialize.
	StatusSkipped Status = iota
	// StatusLoaded means a full page was appended and more may follow.
	StatusLoaded
	// StatusEnd means the collection is exhausted. It is reported once.
	StatusEnd
	// StatusError means the request failed. Only Retry continues from here.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusEnd:
		return "end"
	case StatusError:
		return "error"
	default:
		return "skipped"
	}
}

// Result reports what a LoadMore or Retry did.
type Result struct {
	Status Status
	Added  int   // items appended by this call
	Skip   int   // skip value sent, when a request was made
	Err    error // set with StatusError
}

// State is a snapshot of the loader.
type State struct {
	Items   []models.Artwork
	HasMore bool
	IsError bool
	Loading bool
}

// Loader accumulates pages from a Fetcher. The next skip is always the
// number of items already held, never page*limit.
type Loader struct {
	fetch Fetcher
	limit int

	mu         sync.Mutex
	items      []models.Artwork
	hasMore    bool
	isError    bool
	loading    bool
	failedSkip int
	generation uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithLimit overrides the page size.
func WithLimit(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

// New returns an empty loader that will fetch from the start.
func New(fetch Fetcher, opts ...Option) *Loader {
	l := &Loader{fetch: fetch, limit: Limit, hasMore: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize discards all state and starts over from seed. A fetch still in
// flight from before is ignored when it completes, and until then it keeps
// the in-flight guard up, so at most one request runs per loader.
func (l *Loader) Initialize(seed []models.Artwork) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]models.Artwork(nil), seed...)
	l.hasMore = true
	l.isError = false
	l.failedSkip = 0
	l.generation++
}

// LoadMore fetches the next page unless a fetch is in flight, the feed has
// ended, or the last fetch failed.
func (l *Loader) LoadMore(ctx context.Context) Result {
	l.mu.Lock()
	if l.loading || !l.hasMore || l.isError {
		l.mu.Unlock()
		return Result{Status: StatusSkipped}
	}
	skip := len(l.items)
	return l.run(ctx, skip)
}

// Retry clears the error state and re-issues the request that failed, with
// the same skip and limit. Items already loaded are kept. Outside the error
// state it does nothing.
func (l *Loader) Retry(ctx context.Context) Result {
	l.mu.Lock()
	if l.loading || !l.isError {
		l.mu.Unlock()
		return Result{Status: StatusSkipped}
	}
	l.isError = false
	l.hasMore = true
	return l.run(ctx, l.failedSkip)
}

// run issues one fetch. It is entered with l.mu held and returns with it released.
func (l *Loader) run(ctx context.Context, skip int) Result {
	l.loading = true
	gen := l.generation
	limit := l.limit
	l.mu.Unlock()

	page, err := l.fetch(ctx, skip, limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if gen != l.generation {
		slog.Debug("Dropping stale feed page", "skip", skip)
		return Result{Status: StatusSkipped, Skip: skip}
	}

	if err != nil {
		l.hasMore = false
		l.isError = true
		l.failedSkip = skip
		slog.Warn("Feed page failed", "skip", skip, "limit", limit, "error", err)
		return Result{Status: StatusError, Skip: skip, Err: err}
	}

	l.items = append(l.items, page...)
	if len(page) < limit {
		l.hasMore = false
		return Result{Status: StatusEnd, Added: len(page), Skip: skip}
	}
	return Result{Status: StatusLoaded, Added: len(page), Skip: skip}
}

// State returns a copy of the loader's state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Items:   append([]models.Artwork(nil), l.items...),
		HasMore: l.hasMore,
		IsError: l.isError,
		Loading: l.loading,
	}
}

// Len returns how many items are loaded.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
