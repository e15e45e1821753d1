package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("CORTEX_LLM_API_KEY", "sk-prefixed")
	t.Setenv("WEBHOOK_SECRET", "hook-unprefixed")

	p := NewEnvProvider("CORTEX_")
	ctx := context.Background()

	got, err := p.Get(ctx, KeyLLMAPIKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-prefixed" {
		t.Errorf("got %q, want sk-prefixed", got)
	}

	// Falls back to the unprefixed variable.
	got, err = p.Get(ctx, KeyWebhookSecret)
	if err != nil {
		t.Fatalf("Get fallback: %v", err)
	}
	if got != "hook-unprefixed" {
		t.Errorf("got %q, want hook-unprefixed", got)
	}

	if _, err := p.Get(ctx, "missing_key"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestFileProviderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	ctx := context.Background()

	if err := p.Set(ctx, KeyLLMAPIKey, "sk-file"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	// A fresh provider sees the persisted value.
	p2, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := p2.Get(ctx, KeyLLMAPIKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-file" {
		t.Errorf("got %q, want sk-file", got)
	}

	if err := p2.Delete(ctx, KeyLLMAPIKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := p2.Get(ctx, KeyLLMAPIKey); err == nil {
		t.Error("expected error after delete")
	}
}

func TestVaultProvider(t *testing.T) {
	store := map[string]string{KeyWebhookSecret: "hook-vault"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/cortex" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"data": store},
			})
		case http.MethodPost:
			var payload struct {
				Data map[string]string `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			store = payload.Data
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	p, err := NewVaultProvider(&VaultConfig{Address: srv.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("NewVaultProvider: %v", err)
	}
	ctx := context.Background()

	got, err := p.Get(ctx, KeyWebhookSecret)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hook-vault" {
		t.Errorf("got %q, want hook-vault", got)
	}

	if err := p.Set(ctx, KeyLLMAPIKey, "sk-vault"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if store[KeyLLMAPIKey] != "sk-vault" {
		t.Errorf("store missing written key: %v", store)
	}
	// Set preserves existing fields.
	if store[KeyWebhookSecret] != "hook-vault" {
		t.Errorf("existing field lost: %v", store)
	}

	if err := p.Delete(ctx, KeyWebhookSecret); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store[KeyWebhookSecret]; ok {
		t.Error("deleted key still present")
	}
}

func TestManagerFallsBackToEnv(t *testing.T) {
	t.Setenv("CORTEX_LLM_API_KEY", "sk-env")

	// File backend is empty; the env fallback should resolve the key.
	path := filepath.Join(t.TempDir(), "secrets.json")
	m, err := NewManager(&Config{Provider: "file", File: &FileConfig{Path: path}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	got, err := m.Get(ctx, KeyLLMAPIKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-env" {
		t.Errorf("got %q, want sk-env", got)
	}

	// Cached after the first resolve.
	os.Unsetenv("CORTEX_LLM_API_KEY")
	got, err = m.Get(ctx, KeyLLMAPIKey)
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if got != "sk-env" {
		t.Errorf("cached got %q, want sk-env", got)
	}
}

func TestManagerGetOrDefault(t *testing.T) {
	m, err := NewManager(DefaultConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := m.GetOrDefault(context.Background(), "nope", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestManagerUnknownProvider(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "kms"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
