package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// VaultConfig configures the HashiCorp Vault provider. All fields fall
// back to the usual VAULT_* environment variables.
type VaultConfig struct {
	Address string
	Token   string
	// Mount is the KV v2 mount point (default: "secret").
	Mount string
	// Path under the mount holding Cortex secrets (default: "cortex").
	Path string
}

// VaultProvider reads and writes a single KV v2 entry holding all
// Cortex secrets as fields.
type VaultProvider struct {
	address string
	token   string
	mount   string
	path    string
	client  *http.Client
}

// NewVaultProvider creates a Vault-backed provider.
func NewVaultProvider(cfg *VaultConfig) (*VaultProvider, error) {
	if cfg == nil {
		cfg = &VaultConfig{}
	}
	address := cfg.Address
	if address == "" {
		address = os.Getenv("VAULT_ADDR")
	}
	token := cfg.Token
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}
	if address == "" || token == "" {
		return nil, fmt.Errorf("vault provider requires address and token")
	}
	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	path := cfg.Path
	if path == "" {
		path = "cortex"
	}
	return &VaultProvider{
		address: strings.TrimRight(address, "/"),
		token:   token,
		mount:   mount,
		path:    path,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (p *VaultProvider) Name() string { return "vault" }

func (p *VaultProvider) url() string {
	return fmt.Sprintf("%s/v1/%s/data/%s", p.address, p.mount, p.path)
}

// readData fetches the KV v2 entry. A missing entry returns an empty
// map so writes can start from scratch.
func (p *VaultProvider) readData(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("build vault request: %w", err)
	}
	req.Header.Set("X-Vault-Token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return map[string]string{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vault returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Data struct {
			Data map[string]string `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse vault response: %w", err)
	}
	if payload.Data.Data == nil {
		return map[string]string{}, nil
	}
	return payload.Data.Data, nil
}

func (p *VaultProvider) writeData(ctx context.Context, data map[string]string) error {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return fmt.Errorf("marshal vault payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build vault request: %w", err)
	}
	req.Header.Set("X-Vault-Token", p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("vault request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vault returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func (p *VaultProvider) Get(ctx context.Context, key string) (string, error) {
	data, err := p.readData(ctx)
	if err != nil {
		return "", err
	}
	val, ok := data[key]
	if !ok || val == "" {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return val, nil
}

func (p *VaultProvider) Set(ctx context.Context, key, value string) error {
	data, err := p.readData(ctx)
	if err != nil {
		return err
	}
	data[key] = value
	return p.writeData(ctx, data)
}

func (p *VaultProvider) Delete(ctx context.Context, key string) error {
	data, err := p.readData(ctx)
	if err != nil {
		return err
	}
	delete(data, key)
	return p.writeData(ctx, data)
}
