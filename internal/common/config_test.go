package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "Preprod", cfg.Masumi.Network)
	assert.Equal(t, "20000", cfg.Pricing.RiskAmount)
	assert.Equal(t, "10000000", cfg.Pricing.ResearchAmount)
	assert.Equal(t, "lovelace", cfg.Pricing.Unit)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.DefaultProvider)
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	require.NoError(t, ValidateExpirySchedule(cfg.Monitor.ExpirySchedule))
}

func TestLoadFromFilesLayering(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000

[masumi]
network = "Mainnet"
`), 0644))

	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	// Later files override earlier ones; untouched values keep defaults
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "Mainnet", cfg.Masumi.Network)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/aestimo.toml")
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AESTIMO_SERVER_PORT", "7777")
	t.Setenv("PAYMENT_API_KEY", "legacy-key")
	t.Setenv("AGENT_IDENTIFIER", "agent_from_env")
	t.Setenv("AESTIMO_LLM_PROVIDER", "gemini")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "legacy-key", cfg.Masumi.APIKey)
	assert.Equal(t, "agent_from_env", cfg.Masumi.AgentIdentifier)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
}

func TestEnvOverridesPrefixWins(t *testing.T) {
	t.Setenv("AESTIMO_MASUMI_API_KEY", "prefixed-key")
	t.Setenv("PAYMENT_API_KEY", "legacy-key")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.Masumi.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 8088, "0.0.0.0")
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8088, cfg.Server.Port, "zero values must not override")
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	key, err := ResolveAPIKey("anthropic_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "env-key", key, "environment must win over config fallback")

	key, err = ResolveAPIKey("gemini_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)

	_, err = ResolveAPIKey("gemini_api_key", "")
	require.Error(t, err)
}

func TestPollIntervalFallback(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Monitor.PollInterval = "not-a-duration"
	assert.Equal(t, 10*time.Second, cfg.PollInterval())

	cfg.Monitor.PollInterval = "2s"
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
}

func TestValidateExpirySchedule(t *testing.T) {
	assert.NoError(t, ValidateExpirySchedule("*/5 * * * *"))
	assert.NoError(t, ValidateExpirySchedule(""), "empty schedule disables the sweep")
	assert.Error(t, ValidateExpirySchedule("every five minutes"))
}

func TestIsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.IsProduction())

	cfg.Environment = "Production"
	assert.True(t, cfg.IsProduction())

	cfg.Environment = "prod"
	assert.True(t, cfg.IsProduction())
}
