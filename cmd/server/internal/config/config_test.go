package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/meetassist/cmd/server/internal/simhash"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MEETASSIST_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Server.Env)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 4, cfg.Limiter.MaxConcurrent)
	assert.Equal(t, 0, cfg.Dedup.SimhashDistance)
	assert.Same(t, cfg, GlobalConfig)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetassist.yaml")
	content := `
server:
  port: "9100"
inference:
  nlp_url: "http://nlp.internal:9000"
  timeout: 12s
limiter:
  max_concurrent: 8
dedup:
  simhash_distance: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("MEETASSIST_CONFIG", path)
	t.Setenv("INFERENCE_MAX_CONCURRENT", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "http://nlp.internal:9000", cfg.Inference.NLPURL)
	assert.Equal(t, 12*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 3, cfg.Dedup.SimhashDistance)
	// env overrides file
	assert.Equal(t, 2, cfg.Limiter.MaxConcurrent)
	// untouched defaults survive the overlay
	assert.Equal(t, "http://localhost:8082", cfg.Inference.WhisperURL)
}

func TestLoadConfigInvalidEnv(t *testing.T) {
	t.Setenv("MEETASSIST_CONFIG", "")

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("INFERENCE_TIMEOUT", "soon")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("bad int", func(t *testing.T) {
		t.Setenv("ASSISTANT_CONTEXT_SEGMENTS", "many")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("MEETASSIST_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = "99999" }, true},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"bad env", func(c *Config) { c.Server.Env = "qa" }, true},
		{"missing nlp", func(c *Config) { c.Inference.NLPURL = "" }, true},
		{"zero timeout", func(c *Config) { c.Inference.Timeout = 0 }, true},
		{"zero threshold", func(c *Config) { c.Inference.FailThreshold = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Limiter.MaxConcurrent = 0 }, true},
		{"distance too large", func(c *Config) { c.Dedup.SimhashDistance = 65 }, true},
		{"no context", func(c *Config) { c.Assistant.ContextSegments = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrintConfig(t *testing.T) {
	out := Default().PrintConfig()
	assert.Contains(t, out, "Server Port: 8000")
	assert.Contains(t, out, "File: <not set>")
}

func TestLoadConfigNearDuplicates(t *testing.T) {
	t.Setenv("MEETASSIST_CONFIG", "")

	t.Run("enabled without distance uses default", func(t *testing.T) {
		t.Setenv("ACTION_ITEM_NEAR_DUPLICATES", "true")
		t.Setenv("ACTION_ITEM_SIMHASH_DISTANCE", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.True(t, cfg.Dedup.NearDuplicates)
		assert.Equal(t, simhash.DefaultDistance, cfg.Dedup.SimhashDistance)
	})

	t.Run("explicit distance wins", func(t *testing.T) {
		t.Setenv("ACTION_ITEM_NEAR_DUPLICATES", "true")
		t.Setenv("ACTION_ITEM_SIMHASH_DISTANCE", "4")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Dedup.SimhashDistance)
	})

	t.Run("invalid flag", func(t *testing.T) {
		t.Setenv("ACTION_ITEM_NEAR_DUPLICATES", "maybe")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "ACTION_ITEM_NEAR_DUPLICATES")
	})
}
