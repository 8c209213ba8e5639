package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 60.0, cfg.Selection.TargetDuration)
	require.True(t, cfg.Selection.Captions)
	require.Equal(t, 5*time.Minute, cfg.Annotate.Timeout)
	require.Equal(t, 1080, cfg.Render.Width)
	require.Equal(t, 1920, cfg.Render.Height)
	require.False(t, cfg.Source.AllowDirectHTTP)
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
selection:
  target_duration: 30
  captions: false
annotate:
  provider: local
  timeout: 90s
render:
  format: mkv
source:
  allow_direct_http: true
jobs:
  store: sqlite
  sqlite_path: /tmp/clipkart.db
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 30.0, cfg.Selection.TargetDuration)
	require.False(t, cfg.Selection.Captions)
	require.Equal(t, ProviderLocal, cfg.Annotate.Provider)
	require.Equal(t, 90*time.Second, cfg.Annotate.Timeout)
	require.Equal(t, "mkv", cfg.Render.Format)
	require.Equal(t, StoreSQLite, cfg.Jobs.Store)
	require.True(t, cfg.Source.AllowDirectHTTP)
	// untouched sections keep their defaults
	require.Equal(t, "medium", cfg.FFmpeg.Preset)
	require.Equal(t, 1080, cfg.Render.Width)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().Render, cfg.Render)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("CLIPKART_ADDR=0.0.0.0:9000\n"), 0644))
	t.Setenv("CLIPKART_PROVIDER", "none")
	t.Setenv("CLIPKART_TARGET", "45")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	t.Cleanup(func() { os.Unsetenv("CLIPKART_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	require.Equal(t, ProviderNone, cfg.Annotate.Provider)
	require.Equal(t, 45.0, cfg.Selection.TargetDuration)
	require.Equal(t, "/secrets/sa.json", cfg.Annotate.CredentialsFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero target", func(c *Config) { c.Selection.TargetDuration = 0 }},
		{"unknown provider", func(c *Config) { c.Annotate.Provider = "aws" }},
		{"zero timeout", func(c *Config) { c.Annotate.Timeout = 0 }},
		{"unknown format", func(c *Config) { c.Render.Format = "avi" }},
		{"bad size", func(c *Config) { c.Render.Height = 0 }},
		{"unknown store", func(c *Config) { c.Jobs.Store = "redis" }},
		{"sqlite without path", func(c *Config) { c.Jobs.Store = StoreSQLite; c.Jobs.SQLitePath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := Default()
	cfg.Selection.TargetDuration = 42
	cfg.Annotate.Timeout = 2 * time.Minute

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestContext(t *testing.T) {
	cfg := Default()
	cfg.OutputDir = "/custom"

	ctx := WithConfig(context.Background(), cfg)
	require.Same(t, cfg, FromContext(ctx))
	require.Equal(t, "./output", FromContext(context.Background()).OutputDir)
}
