package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchart/pkg/flowchart/config"
)

func TestConfig_Accessors(t *testing.T) {
	cfg := config.New(map[string]any{
		"name":    "demo",
		"steps":   250,
		"ratio":   0.5,
		"whole":   3.0,
		"enabled": true,
		"flag":    "false",
		"timeout": "1m30s",
		"seconds": 2,
		"port":    "5432",
		"log": map[string]any{
			"level": "debug",
			"nested": map[string]any{
				"depth": int64(3),
			},
		},
		"dotted.key": "literal",
	})

	assert.Equal(t, "demo", cfg.String("name", "x"))
	assert.Equal(t, "250", cfg.String("steps", "x"))
	assert.Equal(t, "x", cfg.String("missing", "x"))

	assert.Equal(t, 250, cfg.Int("steps", 0))
	assert.Equal(t, 3, cfg.Int("whole", 0))
	assert.Equal(t, 7, cfg.Int("ratio", 7), "fractional float keeps default")
	assert.Equal(t, 5432, cfg.Int("port", 0))
	assert.Equal(t, 9, cfg.Int("name", 9))

	assert.Equal(t, 0.5, cfg.Float("ratio", 0))
	assert.Equal(t, 250.0, cfg.Float("steps", 0))

	assert.True(t, cfg.Bool("enabled", false))
	assert.False(t, cfg.Bool("flag", true))
	assert.True(t, cfg.Bool("name", true))

	assert.Equal(t, 90*time.Second, cfg.Duration("timeout", 0))
	assert.Equal(t, 2*time.Second, cfg.Duration("seconds", 0))
	assert.Equal(t, time.Minute, cfg.Duration("name", time.Minute))

	assert.Equal(t, "debug", cfg.String("log.level", ""))
	assert.Equal(t, 3, cfg.Int("log.nested.depth", 0))
	assert.Equal(t, "literal", cfg.String("dotted.key", ""))
	assert.True(t, cfg.Has("log.nested"))
	assert.False(t, cfg.Has("log.missing"))
	assert.False(t, cfg.Has("name.sub"))
}

func TestConfig_Sub(t *testing.T) {
	cfg := config.New(map[string]any{
		"checkpoint": map[string]any{"codec": "json"},
		"scalar":     1,
	})

	assert.Equal(t, "json", cfg.Sub("checkpoint").String("codec", ""))
	assert.Empty(t, cfg.Sub("scalar").Raw())
	assert.Empty(t, cfg.Sub("missing").Raw())
	assert.NotNil(t, config.New(nil).Raw())
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("max_steps: 20\nlog:\n  level: warn\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Int("max_steps", 0))
	assert.Equal(t, "warn", cfg.String("log.level", ""))

	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"max_steps": 30, "checkpoint": {"store": "sqlite"}}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Int("max_steps", 0))
	assert.Equal(t, "sqlite", cfg.String("checkpoint.store", ""))

	_, err = config.FromFile(filepath.Join(dir, "settings.toml"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("a: [unclosed"), 0o600))
	_, err = config.FromFile(badPath)
	assert.Error(t, err)
}
