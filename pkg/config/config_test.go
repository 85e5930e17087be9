package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNested struct {
	Delay time.Duration `env:"TEST_DELAY" yaml:"delay" default:"2s"`
}

type testConfig struct {
	Name    string   `env:"TEST_NAME" yaml:"name" default:"gateway"`
	Port    int      `env:"TEST_PORT" yaml:"port" default:"3001"`
	Debug   bool     `env:"TEST_DEBUG" yaml:"debug" default:"false"`
	Origins []string `env:"TEST_ORIGINS" yaml:"origins" default:"http://localhost:3000"`
	Nested  testNested
}

type requiredConfig struct {
	Token string `env:"TEST_TOKEN" yaml:"token" required:"true"`
}

type validatedConfig struct {
	Port int `env:"TEST_VPORT" yaml:"port" default:"70000"`
}

func (c validatedConfig) Validate() error {
	if c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

func TestDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, GetConfigFromEnvVars(&cfg))

	assert.Equal(t, "gateway", cfg.Name)
	assert.Equal(t, 3001, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins)
	assert.Equal(t, 2*time.Second, cfg.Nested.Delay)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PORT", "8080")
	t.Setenv("TEST_DELAY", "500ms")
	t.Setenv("TEST_ORIGINS", "https://a.example, https://b.example")

	var cfg testConfig
	require.NoError(t, GetConfigFromEnvVars(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Nested.Delay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins)
}

func TestRequiredMissing(t *testing.T) {
	var cfg requiredConfig
	err := GetConfigFromEnvVars(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_TOKEN")
}

func TestValidatorRuns(t *testing.T) {
	var cfg validatedConfig
	err := GetConfigFromEnvVars(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port out of range")
}

func TestYAMLFileWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nport: 9000\n"), 0o600))

	t.Setenv("TEST_PORT", "9001")

	var cfg testConfig
	require.NoError(t, GetConfig(&cfg, path, false))

	assert.Equal(t, "from-file", cfg.Name)
	// Env wins over file
	assert.Equal(t, 9001, cfg.Port)
}

func TestMissingFileFallsBackWhenAllowed(t *testing.T) {
	var cfg testConfig
	require.NoError(t, GetConfig(&cfg, "/nonexistent/config.yaml", true))
	assert.Equal(t, "gateway", cfg.Name)

	var cfg2 testConfig
	assert.Error(t, GetConfig(&cfg2, "/nonexistent/config.yaml", false))
}
