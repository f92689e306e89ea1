package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.Engine.LoadExternalGraphs)
	require.True(t, cfg.Engine.DefaultGraphIsUnion)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Store.Path)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  path: /var/lib/rdflib
engine:
  load_external_graphs: false
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/rdflib", cfg.Store.Path)
	require.False(t, cfg.Engine.LoadExternalGraphs)
	// Keys absent from the file keep their defaults.
	require.True(t, cfg.Engine.DefaultGraphIsUnion)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
