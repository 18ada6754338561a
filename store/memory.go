// ABOUTME: In-process credential storage implementing both capabilities
// ABOUTME: Test double for the browser and file stores; counts writes for assertions

package store

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// Memory holds secrets and preferences in maps. The zero value is not
// usable; call NewMemory.
type Memory struct {
	mu      sync.Mutex
	secrets map[string]memEntry
	prefs   map[string]memEntry
	writes  int
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		secrets: make(map[string]memEntry),
		prefs:   make(map[string]memEntry),
		now:     time.Now,
	}
}

// Writes returns how many set or delete operations have been applied.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Advance moves the store's clock forward, expiring entries as it goes.
func (m *Memory) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.now
	m.now = func() time.Time { return prev().Add(d) }
}

func (m *Memory) lookup(table map[string]memEntry, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := table[name]
	if !ok || !m.now().Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (m *Memory) store(table map[string]memEntry, name, value string, maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if maxAge <= 0 {
		delete(table, name)
		return
	}
	table[name] = memEntry{value: value, expiresAt: m.now().Add(maxAge)}
}

func (m *Memory) remove(table map[string]memEntry, names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, name := range names {
		delete(table, name)
	}
}

func (m *Memory) Secret(_ context.Context, name string) (string, bool, error) {
	v, ok := m.lookup(m.secrets, name)
	return v, ok, nil
}

func (m *Memory) SetSecret(_ context.Context, name, value string, maxAge time.Duration) error {
	m.store(m.secrets, name, value, maxAge)
	return nil
}

func (m *Memory) DeleteSecrets(_ context.Context, names ...string) error {
	m.remove(m.secrets, names)
	return nil
}

func (m *Memory) Preference(name string) (string, bool) {
	return m.lookup(m.prefs, name)
}

func (m *Memory) SetPreference(name, value string, maxAge time.Duration) {
	m.store(m.prefs, name, value, maxAge)
}

func (m *Memory) DeletePreferences(names ...string) {
	m.remove(m.prefs, names)
}
