package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("CHECKPOINT_BACKEND", "")
	t.Setenv("DEFAULT_NICHE", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.CheckpointBackend)
	assert.Equal(t, "Solar Installers", cfg.DefaultNiche)
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen_addr: \":9090\"\ncheckpoint_backend: sqlite\ndefault_niche: HVAC Contractors\n",
	), 0o600))

	t.Setenv("CHECKPOINT_BACKEND", "redis")
	t.Setenv("DISPATCH_LEADS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "redis", cfg.CheckpointBackend)
	assert.Equal(t, "HVAC Contractors", cfg.DefaultNiche)
	assert.True(t, cfg.DispatchLeads)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHECKPOINT_BACKEND", "")
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.OpenAIAPIKey = "sk-test"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg.DatabaseURL = "postgres://localhost/beastmode"
	require.NoError(t, cfg.Validate())

	cfg.CheckpointBackend = "tape"
	assert.Error(t, cfg.Validate())
}
