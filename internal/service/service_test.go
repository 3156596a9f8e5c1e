package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feaprep/internal/adapter"
	"feaprep/internal/codec"
	"feaprep/internal/domain"
	"feaprep/internal/geometry"
	"feaprep/internal/log"
	"feaprep/internal/output"
	"feaprep/internal/repository/sqlite"
	"feaprep/internal/schema"
	"feaprep/internal/templates"
)

func init() {
	log.Discard()
}

// driftingMesher shifts one node further on every call so repeated runs of
// an unchanged model produce different tables
type driftingMesher struct {
	mu    sync.Mutex
	calls int
	inner *adapter.StructuredMesher
}

func (d *driftingMesher) Name() string { return "drifting" }

func (d *driftingMesher) Generate(ctx context.Context, script *geometry.Script) (*adapter.Output, error) {
	out, err := d.inner.Generate(ctx, script)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.calls++
	shift := float64(d.calls) * 1e-3
	d.mu.Unlock()
	last := len(out.Mesh.Nodes) - 1
	out.Mesh.Nodes[last].X += shift
	out.Tool = "drifting"
	return out, nil
}

type fixture struct {
	svc     *ConversionService
	catalog *sqlite.Repository
	events  chan Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := adapter.NewRegistry()
	require.NoError(t, registry.Register(adapter.NewStructuredMesher()))
	require.NoError(t, registry.Register(&driftingMesher{inner: adapter.NewStructuredMesher()}))

	catalog, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	bus := NewEventBus()
	events := make(chan Event, 256)
	bus.Subscribe(events)

	return &fixture{
		svc:     NewConversionService(registry, catalog, bus, "structured"),
		catalog: catalog,
		events:  events,
	}
}

func (f *fixture) drain() []EventType {
	var types []EventType
	for {
		select {
		case e := <-f.events:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func cantilever() *schema.Document {
	return templates.NewRectangle("Cantilever Beam", 4, 1).
		WithMesh(0.25, domain.ElementTriangle, 0).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		AddLoad(domain.LocationRight, 0, -1000).
		Document()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestConvertPublishesArtifacts(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(t.TempDir(), "out")

	res, err := f.svc.Convert(context.Background(), Request{Document: cantilever(), OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "Cantilever Beam", res.Model)
	assert.Equal(t, "structured", res.Tool)
	assert.Equal(t, domain.Summary{Nodes: 85, Elements: 128, Materials: 1, Loads: 5}, res.Summary)
	assert.False(t, res.Drift)
	assert.Nil(t, res.Previous)
	require.NotNil(t, res.Manifest)
	assert.Len(t, res.Manifest.Files, 6)

	for _, name := range []string{"cantilever_beam.geo", "cantilever_beam.msh", "nodes.txt", "eles.txt", "mater.txt", "loads.txt", output.ManifestFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Len(t, readLines(t, filepath.Join(dir, "nodes.txt")), 85)
	loads := readLines(t, filepath.Join(dir, "loads.txt"))
	require.Len(t, loads, 5)
	for _, line := range loads {
		fields := strings.Fields(line)
		require.Len(t, fields, 3)
		assert.Equal(t, "0.000000", fields[1])
		assert.Equal(t, "-200.000000", fields[2])
	}

	manifest, err := output.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, manifest.RunID)
	assert.Equal(t, res.Fingerprint, manifest.Fingerprint)

	run, err := f.catalog.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, run.Status)
	assert.Equal(t, res.Digest, run.Digest)
	assert.Equal(t, res.Summary, run.Summary)
}

func TestConvertEvents(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Convert(context.Background(), Request{Document: cantilever(), OutputDir: filepath.Join(t.TempDir(), "out")})
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventRunStarted, EventValidated, EventScriptBuilt,
		EventMeshGenerated, EventConverted, EventPublished,
	}, f.drain())
}

func TestConvertFingerprintFailureEmitsRunFailed(t *testing.T) {
	f := newFixture(t)
	f.svc.fingerprint = func(*schema.Document, *geometry.Script) (string, error) {
		return "", errors.New("failed to normalize document")
	}

	_, err := f.svc.Convert(context.Background(), Request{Document: cantilever()})
	require.Error(t, err)
	assert.Equal(t, []EventType{
		EventRunStarted, EventValidated, EventScriptBuilt, EventRunFailed,
	}, f.drain())
}

func TestConvertWithoutOutputDir(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Convert(context.Background(), Request{Document: cantilever()})
	require.NoError(t, err)
	assert.Nil(t, res.Manifest)
	assert.NotContains(t, f.drain(), EventPublished)
}

func TestConvertFromFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "beam.yaml")
	require.NoError(t, codec.SaveFile(path, cantilever()))

	fromFile, err := f.svc.Convert(context.Background(), Request{Path: path})
	require.NoError(t, err)
	fromDoc, err := f.svc.Convert(context.Background(), Request{Document: cantilever()})
	require.NoError(t, err)

	assert.Equal(t, fromDoc.Fingerprint, fromFile.Fingerprint)
	assert.Equal(t, fromDoc.Digest, fromFile.Digest)
}

func TestRepeatedConversionIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Convert(ctx, Request{Document: cantilever(), OutputDir: filepath.Join(t.TempDir(), "a")})
	require.NoError(t, err)
	second, err := f.svc.Convert(ctx, Request{Document: cantilever(), OutputDir: filepath.Join(t.TempDir(), "b")})
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Digest, second.Digest)
	require.NotNil(t, second.Previous)
	assert.Equal(t, first.RunID, second.Previous.ID)
	assert.False(t, second.Drift)
}

func TestRepublishSameDirectory(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := f.svc.Convert(context.Background(), Request{Document: cantilever(), OutputDir: dir})
	require.NoError(t, err)
	res, err := f.svc.Convert(context.Background(), Request{Document: cantilever(), OutputDir: dir})
	require.NoError(t, err)

	manifest, err := output.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, manifest.RunID)
}

func TestDriftDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Convert(ctx, Request{Document: cantilever(), Mesher: "drifting"})
	require.NoError(t, err)
	assert.False(t, first.Drift)
	f.drain()

	second, err := f.svc.Convert(ctx, Request{Document: cantilever(), Mesher: "drifting"})
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.NotEqual(t, first.Digest, second.Digest)
	assert.True(t, second.Drift)
	assert.Contains(t, f.drain(), EventDriftDetected)
}

func TestValidationFailureIsNotCatalogued(t *testing.T) {
	f := newFixture(t)
	doc := templates.NewRectangle("bad", 1, 1).Document()
	dir := filepath.Join(t.TempDir(), "out")

	_, err := f.svc.Convert(context.Background(), Request{Document: doc, OutputDir: dir})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NoDirExists(t, dir)

	runs, err := f.svc.History(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Equal(t, []EventType{EventRunStarted, EventRunFailed}, f.drain())
}

func TestGenerationFailureIsCatalogued(t *testing.T) {
	f := newFixture(t)
	doc := templates.NewPlateWithHole("plate", 2, 1, 1, 0.5, 0.2).
		WithMesh(0.1, domain.ElementTriangle, 0).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		Document()
	dir := filepath.Join(t.TempDir(), "out")

	_, err := f.svc.Convert(context.Background(), Request{Document: doc, OutputDir: dir})
	var toolErr *domain.ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "structured", toolErr.Tool)
	assert.NoDirExists(t, dir)

	runs, err := f.svc.History(context.Background(), "plate", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "curved boundaries")
}

func TestUnknownMesher(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Convert(context.Background(), Request{Document: cantilever(), Mesher: "netgen"})
	assert.ErrorContains(t, err, "generator netgen not found")
}

func TestPublishRefusesForeignDirectory(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	_, err := f.svc.Convert(context.Background(), Request{Document: cantilever(), OutputDir: dir})
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "nodes.txt"))

	runs, err := f.svc.History(context.Background(), "Cantilever Beam", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailed, runs[0].Status)
}

func TestScript(t *testing.T) {
	f := newFixture(t)
	script, err := f.svc.Script(Request{Document: cantilever()})
	require.NoError(t, err)
	assert.Contains(t, script.Render(), `Physical Curve("bc_left", 100)`)
}

func TestHistoryWithoutCatalog(t *testing.T) {
	registry := adapter.NewRegistry()
	require.NoError(t, registry.Register(adapter.NewStructuredMesher()))
	svc := NewConversionService(registry, nil, nil, "structured")

	res, err := svc.Convert(context.Background(), Request{Document: cantilever()})
	require.NoError(t, err)
	assert.Nil(t, res.Previous)

	_, err = svc.History(context.Background(), "", 10)
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()

	var reqs []Request
	for i, size := range []float64{0.5, 0.25, 0.125} {
		doc := cantilever()
		doc.Mesh.Size = size
		reqs = append(reqs, Request{Document: doc, OutputDir: filepath.Join(root, fmt.Sprintf("size_%d", i))})
	}

	results, err := f.svc.Sweep(context.Background(), reqs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, reqs[i].OutputDir, r.Result.OutputDir)
		assert.FileExists(t, filepath.Join(reqs[i].OutputDir, "nodes.txt"))
	}
	assert.Less(t, results[0].Result.Summary.Nodes, results[2].Result.Summary.Nodes)
	assert.Contains(t, f.drain(), EventSweepCompleted)
}

func TestSweepRejectsSharedOutput(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(t.TempDir(), "out")
	reqs := []Request{
		{Document: cantilever(), OutputDir: dir},
		{Document: cantilever(), OutputDir: dir + string(filepath.Separator)},
	}

	_, err := f.svc.Sweep(context.Background(), reqs, 2)
	assert.ErrorContains(t, err, "both publish to")
	assert.NoDirExists(t, dir)
}

func TestSweepKeepsGoingAfterFailure(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	reqs := []Request{
		{Document: cantilever(), OutputDir: filepath.Join(root, "good")},
		{Document: templates.NewRectangle("bad", 1, 1).Document(), OutputDir: filepath.Join(root, "bad")},
		{Document: cantilever(), OutputDir: filepath.Join(root, "also_good"), Mesher: "structured"},
	}

	results, err := f.svc.Sweep(context.Background(), reqs, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 conversions failed")
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.DirExists(t, filepath.Join(root, "good"))
	assert.DirExists(t, filepath.Join(root, "also_good"))
	assert.NoDirExists(t, filepath.Join(root, "bad"))
}

func TestSweepCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := f.svc.Sweep(ctx, []Request{{Document: cantilever()}}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestEventBusUnsubscribeBeforeClose(t *testing.T) {
	bus := NewEventBus()
	kept := make(chan Event, 1)
	closed := make(chan Event, 1)
	bus.Subscribe(kept)
	bus.Subscribe(closed)

	bus.Unsubscribe(closed)
	close(closed)

	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: EventRunStarted})
	})
	assert.Equal(t, EventRunStarted, (<-kept).Type)
}
