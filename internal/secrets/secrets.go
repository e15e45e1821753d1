// Package secrets provides unified secrets management with multiple
// backends. Deployments keep API keys and webhook secrets out of the
// config file; the manager resolves them from Vault, a local file, or
// the environment.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Keys for the secrets Cortex needs.
const (
	KeyLLMAPIKey     = "llm_api_key"
	KeyWebhookSecret = "webhook_secret"
)

// Provider is the interface for secret backends.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// Config selects and configures the backend.
type Config struct {
	// Provider is "env", "vault", or "file".
	Provider string
	// EnvPrefix for environment variable names (default: "CORTEX_").
	EnvPrefix string
	Vault     *VaultConfig
	File      *FileConfig
}

// DefaultConfig returns the env-based configuration.
func DefaultConfig() *Config {
	return &Config{Provider: "env", EnvPrefix: "CORTEX_"}
}

// Manager resolves secrets from a primary backend with the environment
// as fallback. Resolved values are cached for the process lifetime.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager builds a manager for the configured backend.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var primary Provider
	var err error
	switch cfg.Provider {
	case "vault":
		primary, err = NewVaultProvider(cfg.Vault)
	case "file":
		primary, err = NewFileProvider(cfg.File)
	case "env", "":
		primary = NewEnvProvider(cfg.EnvPrefix)
	default:
		err = fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &Manager{
		primary:  primary,
		fallback: NewEnvProvider(cfg.EnvPrefix),
		cache:    make(map[string]string),
	}, nil
}

// Get resolves a secret, trying the primary backend then the
// environment.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if val, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return val, nil
	}
	m.mu.RUnlock()

	for _, p := range []Provider{m.primary, m.fallback} {
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

// GetOrDefault resolves a secret or returns defaultVal.
func (m *Manager) GetOrDefault(ctx context.Context, key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// Set stores a secret in the primary backend.
func (m *Manager) Set(ctx context.Context, key, value string) error {
	if err := m.primary.Set(ctx, key, value); err != nil {
		return err
	}
	m.mu.Lock()
	m.cache[key] = value
	m.mu.Unlock()
	return nil
}

// Delete removes a secret from the primary backend.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.primary.Delete(ctx, key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()
	return nil
}

// EnvProvider reads secrets from environment variables. The key
// "llm_api_key" resolves to $CORTEX_LLM_API_KEY, then $LLM_API_KEY.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "CORTEX_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	upper := strings.ToUpper(key)
	if val := os.Getenv(p.prefix + upper); val != "" {
		return val, nil
	}
	if val := os.Getenv(upper); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("env var not found: %s%s", p.prefix, upper)
}

func (p *EnvProvider) Set(ctx context.Context, key, value string) error {
	return os.Setenv(p.prefix+strings.ToUpper(key), value)
}

func (p *EnvProvider) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(p.prefix + strings.ToUpper(key))
}
