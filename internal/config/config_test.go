package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
server:
  port: "8080"
runtime:
  base_url: "http://localhost:11434"
conductor:
  default_complex_model: "gemma2:9b"
  models:
    - name: "LLaMA3.1:8B"
      strength: general
      baseline_latency_ms: 1850
    - name: "gemma2:9b"
      strength: reasoning
      baseline_latency_ms: 15630
`

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:11434", cfg.Runtime.BaseURL)
	require.Len(t, cfg.Conductor.Models, 2)
	// Model names are normalized to lowercase.
	assert.Equal(t, "llama3.1:8b", cfg.Conductor.Models[0].Name)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "only .yaml and .yml")
}

func TestLoadFromFileRejectsTraversal(t *testing.T) {
	_, err := LoadFromFile("../../../etc/config.yaml")
	assert.ErrorContains(t, err, "path traversal")
}

func TestEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_AGENT_PORT", "9090")

	content := `
server:
  port: "${TEST_AGENT_PORT:-8080}"
  log_level: "${TEST_AGENT_MISSING:-debug}"
runtime:
  base_url: "${TEST_AGENT_BASE_URL}"
conductor:
  models:
    - name: "llama3.1:8b"
      strength: general
      baseline_latency_ms: 1850
`
	cfg, err := LoadFromFile(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	// Unset variable with no default substitutes to empty.
	assert.Empty(t, cfg.Runtime.BaseURL)
}

func TestValidateMissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.MissingFields, "server.port")
	assert.Contains(t, vErr.MissingFields, "runtime.base_url")
	assert.Contains(t, vErr.MissingFields, "conductor.models")
}

func TestValidateCatalogEntries(t *testing.T) {
	cfg := &Config{
		Server:  models.ServerConfig{Port: "8080"},
		Runtime: models.RuntimeConfig{BaseURL: "http://localhost:11434"},
		Conductor: models.ConductorConfig{
			Models: []models.ModelEntry{
				{Name: "llama3.1:8b", Strength: models.StrengthGeneral},
			},
		},
	}

	err := cfg.Validate()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeConfiguration, appErr.Type)
	assert.ErrorContains(t, err, "baseline_latency_ms")
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{Server: models.ServerConfig{Environment: "production"}}
	assert.True(t, cfg.IsProduction())

	cfg.Server.Environment = "development"
	assert.False(t, cfg.IsProduction())
}
