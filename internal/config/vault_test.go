package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		want      int64
		expectErr bool
	}{
		{"int64", int64(42), 42, false},
		{"float64", float64(7), 7, false},
		{"json number string", "13", 13, false},
		{"garbage string", "v2", 0, true},
		{"unsupported type", []string{"1"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersionValue(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKV2(t *testing.T) {
	good := &api.Secret{Data: map[string]any{
		"data":     map[string]any{"api_key": "g-123"},
		"metadata": map[string]any{"version": float64(3)},
	}}
	secret, err := parseKV2(good, "secret/data/gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	key, err := secret.String("api_key")
	require.NoError(t, err)
	assert.Equal(t, "g-123", key)

	_, err = secret.String("missing")
	assert.Error(t, err)

	_, err = parseKV2(&api.Secret{Data: map[string]any{"api_key": "x"}}, "secret/v1")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = parseKV2(&api.Secret{Data: map[string]any{"data": map[string]any{}}}, "secret/v1")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestApplyGeminiKeyKeepsExplicitOperationKeys(t *testing.T) {
	cfg := &Config{}
	cfg.AI.Chat.APIKey = "chat-only-key"

	applyGeminiKeyToConfig(cfg, "vault-key")

	assert.Equal(t, "vault-key", cfg.AI.APIKey)
	assert.Equal(t, "chat-only-key", cfg.AI.Chat.APIKey)
	assert.Equal(t, "vault-key", cfg.AI.CoverLetter.APIKey)
	assert.Equal(t, "vault-key", cfg.AI.Domain.APIKey)
}

func TestApplySecrets(t *testing.T) {
	store := map[string]*VaultSecret{
		"kv/keys":   {Data: map[string]any{"keys": "alpha, beta ,,gamma"}},
		"kv/gemini": {Data: map[string]any{"api_key": "g-key"}},
		"kv/tls":    {Data: map[string]any{"cert": "CERT-PEM", "key": "KEY-PEM"}},
	}
	read := func(path string) (*VaultSecret, error) {
		if s, ok := store[path]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
		APIKeys: "kv/keys", GeminiKey: "kv/gemini", TLSCerts: "kv/tls",
	}}}
	require.NoError(t, applySecrets(read, cfg, nil))

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, cfg.Server.APIKeys)
	assert.Equal(t, "g-key", cfg.AI.APIKey)
	assert.Equal(t, "CERT-PEM", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY-PEM", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)

	cfg.Vault.Secrets.GeminiKey = "kv/absent"
	err := applySecrets(read, cfg, nil)
	assert.ErrorContains(t, err, "failed to load Gemini API key")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false, Secrets: VaultSecrets{GeminiKey: "kv/gemini"}}}
	assert.NoError(t, ApplyVaultSecrets(cfg, nil))
	assert.Empty(t, cfg.AI.APIKey)
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token \n"), 0o600))
	blankFile := filepath.Join(dir, "blank")
	require.NoError(t, os.WriteFile(blankFile, []byte(" \n"), 0o600))

	tests := []struct {
		name    string
		cfg     VaultConfig
		want    string
		errPart string
	}{
		{"inline token wins", VaultConfig{Token: "inline", TokenFile: tokenFile}, "inline", ""},
		{"token file trimmed", VaultConfig{TokenFile: tokenFile}, "file-token", ""},
		{"missing file", VaultConfig{TokenFile: filepath.Join(dir, "nope")}, "", "failed to read vault token file"},
		{"blank file", VaultConfig{TokenFile: blankFile}, "", "vault token is required"},
		{"nothing", VaultConfig{}, "", "vault token is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveVaultToken(tt.cfg)
			if tt.errPart != "" {
				assert.ErrorContains(t, err, tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
