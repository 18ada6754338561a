// ABOUTME: JSON file credential storage for the terminal client
// ABOUTME: One document under the config dir with per-key expiry, private to the user

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CredentialsFile is the file name used inside the config dir.
const CredentialsFile = "credentials.json"

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

type fileDoc struct {
	Secrets     map[string]fileEntry `json:"secrets"`
	Preferences map[string]fileEntry `json:"preferences"`
}

// File persists credentials between CLI runs. Every operation re-reads the
// file so concurrent processes see each other's last write.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile stores credentials at dir/credentials.json. dir is created 0700.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}
	return &File{path: filepath.Join(dir, CredentialsFile)}, nil
}

// DefaultDir returns $XDG_CONFIG_HOME/artfolio, falling back to the OS config dir.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "artfolio"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(base, "artfolio"), nil
}

// Path returns the credentials file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) load() (*fileDoc, error) {
	doc := &fileDoc{
		Secrets:     make(map[string]fileEntry),
		Preferences: make(map[string]fileEntry),
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse credentials %s: %w", f.path, err)
	}
	if doc.Secrets == nil {
		doc.Secrets = make(map[string]fileEntry)
	}
	if doc.Preferences == nil {
		doc.Preferences = make(map[string]fileEntry)
	}
	return doc, nil
}

func (f *File) save(doc *fileDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}

func (f *File) read(secret bool, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	table := doc.Preferences
	if secret {
		table = doc.Secrets
	}
	e, ok := table[name]
	if !ok || !time.Now().Before(e.ExpiresAt) {
		return "", false, nil
	}
	return e.Value, true, nil
}

func (f *File) update(secret bool, fn func(map[string]fileEntry)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	if secret {
		fn(doc.Secrets)
	} else {
		fn(doc.Preferences)
	}
	return f.save(doc)
}

func (f *File) Secret(_ context.Context, name string) (string, bool, error) {
	return f.read(true, name)
}

func (f *File) SetSecret(_ context.Context, name, value string, maxAge time.Duration) error {
	return f.update(true, func(t map[string]fileEntry) {
		t[name] = fileEntry{Value: value, ExpiresAt: time.Now().Add(maxAge)}
	})
}

func (f *File) DeleteSecrets(_ context.Context, names ...string) error {
	return f.update(true, func(t map[string]fileEntry) {
		for _, name := range names {
			delete(t, name)
		}
	})
}

// Preference reads a non-secret value. Read failures count as absent.
func (f *File) Preference(name string) (string, bool) {
	v, ok, err := f.read(false, name)
	if err != nil {
		slog.Warn("Failed to read preference", "name", name, "error", err)
		return "", false
	}
	return v, ok
}

func (f *File) SetPreference(name, value string, maxAge time.Duration) {
	err := f.update(false, func(t map[string]fileEntry) {
		t[name] = fileEntry{Value: value, ExpiresAt: time.Now().Add(maxAge)}
	})
	if err != nil {
		slog.Warn("Failed to write preference", "name", name, "error", err)
	}
}

func (f *File) DeletePreferences(names ...string) {
	err := f.update(false, func(t map[string]fileEntry) {
		for _, name := range names {
			delete(t, name)
		}
	})
	if err != nil {
		slog.Warn("Failed to delete preferences", "error", err)
	}
}
