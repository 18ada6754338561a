// ABOUTME: Fault injection and request accounting for the fake backend
// ABOUTME: Fail, drop or hold requests by path and count what clients sent

package mockapi

import "net/url"

type fault struct {
	remaining int
	status    int
	drop      bool
}

// FailNext answers the next n requests to path with status. path is relative
// to Prefix and excludes the query, e.g. "/artworks".
func (b *Backend) FailNext(path string, n, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[path] = &fault{remaining: n, status: status}
}

// DropNext closes the connection without a response for the next n requests
// to path, which clients see as a transport error.
func (b *Backend) DropNext(path string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[path] = &fault{remaining: n, drop: true}
}

// Block holds every request to path until release is called. Requests are
// counted before they block.
func (b *Backend) Block(path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.blocks[path] = ch
	b.mu.Unlock()

	var released bool
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(b.blocks, path)
		close(ch)
	}
}

// Calls returns how many requests reached path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// LastQuery returns the query of the most recent request to path.
func (b *Backend) LastQuery(path string) url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[path]
}

// ResetCalls clears request accounting.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = make(map[string]int)
	b.queries = make(map[string]url.Values)
}
