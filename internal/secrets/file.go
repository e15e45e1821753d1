package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileConfig configures the file-based provider.
type FileConfig struct {
	// Path to the JSON secrets file (default: ~/.cortex/secrets.json).
	Path string
}

// FileProvider stores secrets in a JSON file with 0600 permissions.
// Intended for local development, not production.
type FileProvider struct {
	path string

	mu      sync.RWMutex
	secrets map[string]string
}

// NewFileProvider creates a file-based provider, loading the file if
// it exists.
func NewFileProvider(cfg *FileConfig) (*FileProvider, error) {
	path := ""
	if cfg != nil {
		path = cfg.Path
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".cortex", "secrets.json")
	}

	p := &FileProvider{path: path, secrets: make(map[string]string)}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) load() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets file: %w", err)
	}
	if err := json.Unmarshal(data, &p.secrets); err != nil {
		return fmt.Errorf("parse secrets file: %w", err)
	}
	return nil
}

func (p *FileProvider) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	data, err := json.MarshalIndent(p.secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}

func (p *FileProvider) Get(ctx context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.secrets[key]
	if !ok {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return val, nil
}

func (p *FileProvider) Set(ctx context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[key] = value
	return p.save()
}

func (p *FileProvider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.secrets, key)
	return p.save()
}
