package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "claude", cfg.Provider.Name)
	assert.False(t, cfg.Provider.Enabled)
	assert.Equal(t, 30, cfg.Provider.TimeoutSecs)
	assert.Equal(t, 50, cfg.Planning.MaxSteps)
	assert.Equal(t, 0.1, cfg.Planning.MinConfidenceFloor)
	assert.Equal(t, 2, cfg.Planning.FailureThreshold)
	assert.Equal(t, ".remedy-plan", cfg.Paths.Output)
}

func TestLoad(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "remedy.yaml")
		data := []byte(`
provider:
  name: openai
  model: gpt-4
  enabled: true
planning:
  max-steps: 10
`)
		require.NoError(t, os.WriteFile(path, data, 0644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "openai", cfg.Provider.Name)
		assert.Equal(t, "gpt-4", cfg.Provider.Model)
		assert.True(t, cfg.Provider.Enabled)
		assert.Equal(t, 10, cfg.Planning.MaxSteps)
		// Unset values keep their defaults
		assert.Equal(t, 0.1, cfg.Planning.MinConfidenceFloor)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
