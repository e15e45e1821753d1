package config

import (
	"context"

	"github.com/cortexhq/cortex/internal/secrets"
)

// ResolveSecrets fills sensitive fields left empty in the config from
// the configured secrets backend. Call before Validate.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	mgr, err := secrets.NewManager(c.secretsConfig())
	if err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = mgr.GetOrDefault(ctx, secrets.KeyLLMAPIKey, "")
	}
	if c.Server.WebhookSecret == "" {
		c.Server.WebhookSecret = mgr.GetOrDefault(ctx, secrets.KeyWebhookSecret, "")
	}
	return nil
}

func (c *Config) secretsConfig() *secrets.Config {
	return &secrets.Config{
		Provider:  c.Secrets.Provider,
		EnvPrefix: "CORTEX_",
		Vault: &secrets.VaultConfig{
			Address: c.Secrets.VaultAddress,
			Token:   c.Secrets.VaultToken,
			Mount:   c.Secrets.VaultMount,
			Path:    c.Secrets.VaultPath,
		},
		File: &secrets.FileConfig{Path: c.Secrets.FilePath},
	}
}
