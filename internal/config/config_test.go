package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config search location at empty temp directories
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	chdirForTest(t, dir)
	return dir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	dir := isolate(t)
	cfg := DefaultConfig()

	assert.Equal(t, MesherGmsh, cfg.Mesher)
	assert.Equal(t, 5*time.Minute, cfg.Gmsh.Timeout)
	assert.Empty(t, cfg.Gmsh.Path)
	assert.Equal(t, filepath.Join(dir, "data", "feaprep", "runs.db"), cfg.Catalog.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 0, cfg.Sweep.Parallelism)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	isolate(t)
	cfg, path, err := Load(New())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, MesherGmsh, cfg.Mesher)
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, ConfigName+".yaml"), `
mesher: structured
gmsh:
  path: /opt/gmsh/bin/gmsh
  timeout: 30s
log:
  level: debug
sweep:
  parallelism: 4
`)

	cfg, path, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigName+".yaml"), path)
	assert.Equal(t, MesherStructured, cfg.Mesher)
	assert.Equal(t, "/opt/gmsh/bin/gmsh", cfg.Gmsh.Path)
	assert.Equal(t, 30*time.Second, cfg.Gmsh.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Sweep.Parallelism)
	// unset keys keep their defaults
	assert.Equal(t, filepath.Join(dir, "data", "feaprep", "runs.db"), cfg.Catalog.Path)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, ConfigName+".yaml"), "mesher: structured\n")
	t.Setenv("FEAPREP_MESHER", "gmsh")
	t.Setenv("FEAPREP_GMSH_TIMEOUT", "90s")

	cfg, _, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, MesherGmsh, cfg.Mesher)
	assert.Equal(t, 90*time.Second, cfg.Gmsh.Timeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, ConfigName+".yaml"), `
mesher: netgen
gmsh:
  timeout: 0s
log:
  level: loud
sweep:
  parallelism: -1
`)

	_, _, err := Load(New())
	require.Error(t, err)
	for _, field := range []string{"mesher", "gmsh.timeout", "log.level", "sweep.parallelism"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	writeConfig(t, path, "mesher: [\n")

	_, got, err := LoadFromPath(New(), path)
	assert.Error(t, err)
	assert.Equal(t, path, got)
}

func TestLoadSearchPriority(t *testing.T) {
	dir := isolate(t)
	_, path, err := Load(New())
	require.NoError(t, err)
	assert.Empty(t, path)

	loadMesher := func() (string, string) {
		cfg, path, err := Load(New())
		require.NoError(t, err)
		return cfg.Mesher, path
	}

	home := filepath.Join(dir, "home", ".config", ConfigName+".yaml")
	writeConfig(t, home, "mesher: structured\n")
	mesher, path := loadMesher()
	assert.Equal(t, home, path)
	assert.Equal(t, MesherStructured, mesher)

	xdg := filepath.Join(dir, "xdg", ConfigName+".yaml")
	writeConfig(t, xdg, "mesher: gmsh\n")
	mesher, path = loadMesher()
	assert.Equal(t, xdg, path)
	assert.Equal(t, MesherGmsh, mesher)

	local := filepath.Join(dir, ConfigName+".json")
	writeConfig(t, local, `{"mesher": "structured"}`)
	mesher, path = loadMesher()
	assert.Equal(t, local, path)
	assert.Equal(t, MesherStructured, mesher)

	explicit := filepath.Join(dir, "explicit.yaml")
	writeConfig(t, explicit, "mesher: gmsh\n")
	t.Setenv(EnvConfigPath, explicit)
	mesher, path = loadMesher()
	assert.Equal(t, explicit, path)
	assert.Equal(t, MesherGmsh, mesher)

	// a missing explicit file falls through to the search
	t.Setenv(EnvConfigPath, filepath.Join(dir, "missing.yaml"))
	_, path = loadMesher()
	assert.Equal(t, local, path)
}

func TestSearchPaths(t *testing.T) {
	dir := isolate(t)
	assert.Equal(t, []string{".", filepath.Join(dir, "xdg"), filepath.Join(dir, "home", ".config"), "/etc"}, SearchPaths())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, []string{".", filepath.Join(dir, "home", ".config"), "/etc"}, SearchPaths())
	assert.Equal(t, filepath.Join(dir, "home", ".local", "share", ConfigName, CatalogFileName), DefaultCatalogPath())
}

func TestSaveAndReload(t *testing.T) {
	dir := isolate(t)
	cfg := DefaultConfig()
	cfg.Mesher = MesherStructured
	cfg.Gmsh.Timeout = 2 * time.Minute
	cfg.Sweep.Parallelism = 3

	path := filepath.Join(dir, "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, got, err := LoadFromPath(New(), path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, cfg, loaded)
}

func TestSummary(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Catalog.Disabled = true
	summary := cfg.Summary()
	assert.Contains(t, summary, "Mesher: gmsh")
	assert.Contains(t, summary, "gmsh: auto")
	assert.Contains(t, summary, "Catalog: disabled")
}
