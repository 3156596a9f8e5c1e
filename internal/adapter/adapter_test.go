package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feaprep/internal/domain"
	"feaprep/internal/geometry"
	"feaprep/internal/msh"
	"feaprep/internal/schema"
)

func buildScript(t *testing.T, geom schema.GeometryDoc, element string, bcLocation string) *geometry.Script {
	t.Helper()
	doc := &schema.Document{
		ModelName: "model",
		Geometry:  geom,
		Mesh:      schema.MeshDoc{Size: 0.5, ElementType: element},
		Material:  &schema.MaterialDoc{E: 1e6, Nu: 0.3},
		BoundaryConditions: []schema.BoundaryConditionDoc{{
			Name: "support", Location: bcLocation, PhysicalID: 100,
			Constraints: schema.ConstraintsDoc{X: "fixed", Y: "fixed"},
		}},
		Loads: []schema.LoadDoc{{
			Name: "push", Location: "right", PhysicalID: 200, Force: schema.ForceDoc{X: -1},
		}},
	}
	spec, err := schema.Validate(doc)
	require.NoError(t, err)
	script, err := geometry.Build(spec)
	require.NoError(t, err)
	return script
}

func countTypes(mesh *domain.RawMesh) map[domain.ElementType]int {
	counts := make(map[domain.ElementType]int)
	for _, el := range mesh.Elements {
		counts[el.Type]++
	}
	return counts
}

func TestStructuredRectangle(t *testing.T) {
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 2, Height: 1}, "", "left")

	out, err := NewStructuredMesher().Generate(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "structured", out.Tool)

	assert.Len(t, out.Mesh.Nodes, 5*3)
	counts := countTypes(out.Mesh)
	assert.Equal(t, 4*2*2, counts[domain.ElemTriangle])
	assert.Equal(t, 2+2, counts[domain.ElemLine])

	tags := out.Mesh.PhysicalTags()
	assert.True(t, tags[1])
	assert.True(t, tags[100])
	assert.True(t, tags[200])

	parsed, err := msh.Read(strings.NewReader(string(out.MSH)))
	require.NoError(t, err)
	assert.Equal(t, out.Mesh, parsed)
}

func TestStructuredQuadAndQuadratic(t *testing.T) {
	geom := schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}

	out, err := NewStructuredMesher().Generate(context.Background(), buildScript(t, geom, "quad", "left"))
	require.NoError(t, err)
	counts := countTypes(out.Mesh)
	assert.Equal(t, 4, counts[domain.ElemQuad])
	assert.Len(t, out.Mesh.Nodes, 9)

	out, err = NewStructuredMesher().Generate(context.Background(), buildScript(t, geom, "triangle6", "left"))
	require.NoError(t, err)
	counts = countTypes(out.Mesh)
	assert.Equal(t, 8, counts[domain.ElemTriangle6])
	assert.Equal(t, 4, counts[domain.ElemLine3])
	assert.Len(t, out.Mesh.Nodes, 25)
}

func TestStructuredLShapeSkipsNotch(t *testing.T) {
	script := buildScript(t, schema.GeometryDoc{Type: "lshape", Width: 2, Height: 2, FlangeWidth: 1, FlangeHeight: 1}, "quad", "bottom")

	out, err := NewStructuredMesher().Generate(context.Background(), script)
	require.NoError(t, err)

	// 4x4 cells over the bounding box, minus the 2x2 notch
	assert.Equal(t, 12, countTypes(out.Mesh)[domain.ElemQuad])
	for _, el := range out.Mesh.Elements {
		if el.Type != domain.ElemQuad {
			continue
		}
		for _, tag := range el.Nodes {
			n := out.Mesh.Nodes[tag-1]
			assert.False(t, n.X > 1 && n.Y < 1, "node %v lies in the notch", n)
		}
	}

	// both right-facing edges carry the load group
	right := 0
	for _, el := range out.Mesh.Elements {
		if el.PhysicalTag == 200 {
			right++
		}
	}
	assert.Equal(t, 4, right)
}

func TestStructuredRejectsArcs(t *testing.T) {
	script := buildScript(t, schema.GeometryDoc{Type: "plate_with_hole", Length: 2, Height: 1, HoleX: 1, HoleY: 0.5, HoleRadius: 0.2}, "", "left")

	_, err := NewStructuredMesher().Generate(context.Background(), script)
	var toolErr *domain.ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "structured", toolErr.Tool)
}

func TestStructuredHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}, "", "left")
	_, err := NewStructuredMesher().Generate(ctx, script)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewStructuredMesher()))
	require.NoError(t, r.Register(NewGmshAdapter()))
	assert.Error(t, r.Register(NewStructuredMesher()))

	assert.Equal(t, []string{"gmsh", "structured"}, r.Names())
	g, err := r.Get("structured")
	require.NoError(t, err)
	assert.Equal(t, "structured", g.Name())

	_, err = r.Get("netgen")
	assert.Error(t, err)
}

const cannedMSH = `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
3
1 0 0 0
2 1 0 0
3 0 1 0
$EndNodes
$Elements
1
1 2 2 1 1 1 2 3
$EndElements
`

// fakeGmsh writes an executable shell script standing in for gmsh
func fakeGmsh(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "gmsh")
	script := "#!/bin/sh\nif [ \"$1\" = \"--version\" ]; then echo 4.11.1; exit 0; fi\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestGmshAdapterGenerate(t *testing.T) {
	bin := fakeGmsh(t, "cat > \"$4\" <<'EOF'\n"+cannedMSH+"EOF\n")
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}, "", "left")

	g := NewGmshAdapter(WithBinary(bin), WithWorkDir(t.TempDir()))
	out, err := g.Generate(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "gmsh 4.11.1", out.Tool)
	assert.Len(t, out.Mesh.Nodes, 3)
	assert.Equal(t, cannedMSH, string(out.MSH))
}

func TestGmshAdapterExitCode(t *testing.T) {
	bin := fakeGmsh(t, "echo 'Error: bad geometry' >&2\nexit 3\n")
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}, "", "left")

	_, err := NewGmshAdapter(WithBinary(bin)).Generate(context.Background(), script)
	var toolErr *domain.ExternalToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Contains(t, toolErr.Output, "bad geometry")
}

func TestGmshAdapterNoOutput(t *testing.T) {
	bin := fakeGmsh(t, "exit 0\n")
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}, "", "left")

	_, err := NewGmshAdapter(WithBinary(bin)).Generate(context.Background(), script)
	var toolErr *domain.ExternalToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Contains(t, toolErr.Error(), "no mesh produced")
}

func TestGmshAdapterTimeout(t *testing.T) {
	bin := fakeGmsh(t, "sleep 30\n")
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}, "", "left")

	start := time.Now()
	_, err := NewGmshAdapter(WithBinary(bin), WithTimeout(200*time.Millisecond)).Generate(context.Background(), script)
	var toolErr *domain.ExternalToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestGmshAdapterMissingBinary(t *testing.T) {
	script := buildScript(t, schema.GeometryDoc{Type: "rectangle", Length: 1, Height: 1}, "", "left")
	_, err := NewGmshAdapter(WithBinary(filepath.Join(t.TempDir(), "nope"))).Generate(context.Background(), script)
	var toolErr *domain.ExternalToolError
	assert.True(t, errors.As(err, &toolErr))
}

func TestWaitToolPrefersFinishedExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	done <- nil
	killed := false
	cancelled, err := waitTool(ctx, done, func() { killed = true })
	assert.False(t, cancelled)
	assert.NoError(t, err)
	assert.False(t, killed)
}

func TestWaitToolKillsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	killed := errors.New("signal: killed")
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	cancelled, err := waitTool(ctx, done, func() { done <- killed })
	assert.True(t, cancelled)
	assert.Equal(t, killed, err)
}

func TestProbeGmsh(t *testing.T) {
	bin := fakeGmsh(t, "exit 0\n")
	probe, err := ProbeGmsh(context.Background(), bin)
	require.NoError(t, err)
	assert.Equal(t, bin, probe.Path)
	assert.Equal(t, "4.11.1", probe.Version)
}
