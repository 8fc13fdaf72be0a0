package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "novelpress.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  title: "Mogura Novel"
  origin: "https://novel.example.com"
  twitter: "@mogura"
content: stories
output: dist
data: state
build:
  render_concurrency: 4
watch:
  debounce_ms: 500
  metrics_addr: ":9188"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Mogura Novel", cfg.Site.Title)
	require.Equal(t, "https://novel.example.com", cfg.Site.Origin)
	require.Equal(t, "stories", cfg.Content)
	require.Equal(t, "dist", cfg.Output)
	require.Equal(t, "state", cfg.Data)
	require.Equal(t, 4, cfg.Build.RenderConcurrency)
	require.Equal(t, 500, cfg.Watch.DebounceMS)
	require.Equal(t, ":9188", cfg.Watch.MetricsAddr)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  title: T\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "private", cfg.Content)
	require.Equal(t, "public", cfg.Output)
	require.Equal(t, "data", cfg.Data)
	require.Equal(t, "ja", cfg.Site.Lang)
	require.Equal(t, 2000, cfg.Watch.DebounceMS)
	require.Empty(t, cfg.Watch.MetricsAddr)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("SITE_TITLE", "From Env")
	path := writeConfig(t, "site:\n  title: ${SITE_TITLE}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "From Env", cfg.Site.Title)
}

func TestLoad_MissingFile_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestLoad_InvalidYAML_Errors(t *testing.T) {
	path := writeConfig(t, "site: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novelpress.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Site.Title)

	// Second init without force refuses to overwrite.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}
