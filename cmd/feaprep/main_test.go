package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feaprep/internal/domain"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errors.New("boom"), exitFailure},
		{&domain.ValidationError{}, exitValidation},
		{fmt.Errorf("wrapped: %w", &domain.GenerationError{Reason: "x"}), exitGeneration},
		{fmt.Errorf("mesh generation: %w", &domain.ExternalToolError{Tool: "gmsh"}), exitTool},
		{&domain.ConversionError{}, exitConversion},
		{&reportedError{summary: "1 of 1", first: &domain.ValidationError{}}, exitValidation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, exitCode(tt.err), tt.err.Error())
	}
}

func TestSplitSpec(t *testing.T) {
	label, values, err := splitSpec("right=0,-1000", 2)
	require.NoError(t, err)
	assert.Equal(t, "right", label)
	assert.Equal(t, []float64{0, -1000}, values)

	_, _, err = splitSpec("right", 2)
	assert.Error(t, err)
	_, _, err = splitSpec("core=0,1,2", 4)
	assert.Error(t, err)
	_, _, err = splitSpec("top=a,b", 2)
	assert.Error(t, err)
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, "beam", defaultOutputDir("models/beam.yaml"))
	assert.Equal(t, "plate.v2", defaultOutputDir("plate.v2.hcl"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cfgPath = ""
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewThenConvert(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FEAPREP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("HOME", dir)
	chdirForTest(t, dir)

	doc := filepath.Join(dir, "beam.yaml")
	out, err := execute(t, "new", "rectangle", doc,
		"--name", "beam", "--length", "4", "--height", "1", "--mesh-size", "0.25",
		"--fix", "left", "--load", "right=0,-1000")
	require.NoError(t, err)
	assert.Contains(t, out, `wrote rectangle model "beam"`)

	out, err = execute(t, "validate", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (rectangle")

	out, err = execute(t, "script", doc, "--groups")
	require.NoError(t, err)
	assert.Contains(t, out, "100\t1D\tboundary\tbc_left")

	outDir := filepath.Join(dir, "out")
	out, err = execute(t, "convert", doc, "-o", outDir, "--mesher", "structured")
	require.NoError(t, err)
	assert.Contains(t, out, "beam: 85 nodes, 128 elements, 1 materials, 5 loads (structured)")

	loads, err := os.ReadFile(filepath.Join(outDir, "loads.txt"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(loads)), "\n"), 5)

	out, err = execute(t, "history", "beam")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.FileExists(t, filepath.Join(dir, "data", "feaprep", "runs.db"))
}

func TestValidateReportsViolations(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FEAPREP_CONFIG", "")
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	chdirForTest(t, dir)

	doc := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(`model_name: bad
geometry:
  type: plate_with_hole
  length: 1
  height: 1
  hole_x: 0.5
  hole_y: 0.5
  hole_radius: 0.6
mesh:
  size: 0.1
material:
  E: 1000000
  nu: 0.3
boundary_conditions:
  - name: fixed
    location: left
    physical_id: 100
    constraints: {x: fixed, y: fixed}
`), 0o644))

	out, err := execute(t, "validate", doc)
	require.Error(t, err)
	assert.Contains(t, out, "geometry.hole_radius")
	assert.Equal(t, exitValidation, exitCode(err))
}

func TestWatchRejectsSharedOutputDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FEAPREP_CONFIG", "")
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	chdirForTest(t, dir)

	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, sub, "model.yaml"), []byte("model_name: m\n"), 0o644))
	}

	_, err := execute(t, "watch", filepath.Join("a", "model.yaml"), filepath.Join("b", "model.yaml"), "-o", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "both publish to")
	assert.NoFileExists(t, filepath.Join(dir, "data", "feaprep", "runs.db"))
}
