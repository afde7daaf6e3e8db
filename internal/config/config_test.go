package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 64, cfg.Fonts.CacheSize)
	require.Equal(t, "jpeg", cfg.Export.Format)
	require.Equal(t, 90, cfg.Export.Quality)
	require.Equal(t, "original", cfg.Export.Naming)
	require.Equal(t, 450, cfg.Preview.Width)
	require.Equal(t, 350, cfg.Preview.Height)
	require.NotEmpty(t, cfg.Templates.Dir)
	require.False(t, cfg.IsDev())
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WM_ENV", "dev")
	t.Setenv("WM_EXPORT_QUALITY", "75")
	t.Setenv("WM_FONT_DIRS", "/a,/b")
	t.Setenv("WM_TEMPLATES_DIR", dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.IsDev())
	require.Equal(t, 75, cfg.Export.Quality)
	require.Equal(t, []string{"/a", "/b"}, cfg.Fonts.Dirs)
	require.Equal(t, dir, cfg.Templates.Dir)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
export:
  format: png
  naming: suffix
preview:
  width: 800
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "png", cfg.Export.Format)
	require.Equal(t, "suffix", cfg.Export.Naming)
	require.Equal(t, 800, cfg.Preview.Width)
	require.Equal(t, 350, cfg.Preview.Height)
}

func TestLoadRejectsBadQuality(t *testing.T) {
	t.Setenv("WM_EXPORT_QUALITY", "101")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WM_PREVIEW_HEIGHT=123\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("WM_PREVIEW_HEIGHT") })

	cfg, err := Load("", path)
	require.NoError(t, err)
	require.Equal(t, 123, cfg.Preview.Height)
}

func TestDescribe(t *testing.T) {
	desc, err := Describe()
	require.NoError(t, err)
	require.Contains(t, desc, "WM_EXPORT_QUALITY")
}
