// Package registry persists the mapping from source URL to context id that
// lets webhook pushes find the context they should re-sync.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cortexhq/cortex/internal/apperr"
)

// Registry is a flat JSON file of URL → context id entries. All access goes
// through one in-process mutex; writes are read-modify-write, last write
// for a URL wins.
type Registry struct {
	mu   sync.Mutex
	path string
}

// New creates a Registry backed by the file at path. The file is created
// lazily on first save.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Save persists url → contextID, merging with existing entries.
func (r *Registry) Save(url, contextID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}
	entries[url] = contextID

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating registry directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}

// Lookup resolves url to a context id. Besides the exact URL it tries the
// ".git"-suffixed and -stripped forms, since webhook payloads and clone
// URLs disagree on the suffix. Returns a not-found error when no form is
// mapped.
func (r *Registry) Lookup(url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return "", err
	}
	for _, candidate := range candidates(url) {
		if id, ok := entries[candidate]; ok {
			return id, nil
		}
	}
	return "", apperr.Newf(apperr.KindNotFound, "no context registered for %s", url)
}

// Entries returns a copy of the full mapping.
func (r *Registry) Entries() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func candidates(url string) []string {
	url = strings.TrimRight(url, "/")
	if strings.HasSuffix(url, ".git") {
		return []string{url, strings.TrimSuffix(url, ".git")}
	}
	return []string{url, url + ".git"}
}

// read loads the file. A missing file is an empty registry; a corrupt file
// is an error, not silently dropped state.
func (r *Registry) read() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", r.path, err)
	}
	return entries, nil
}
