package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feaprep/internal/adapter"
	"feaprep/internal/codec"
	"feaprep/internal/convert"
	"feaprep/internal/domain"
	"feaprep/internal/geometry"
	"feaprep/internal/log"
	"feaprep/internal/msh"
	"feaprep/internal/output"
	"feaprep/internal/repository"
	"feaprep/internal/schema"
)

// Request describes one conversion
type Request struct {
	// Path is the model document; ignored when Document is set
	Path     string
	Document *schema.Document
	// OutputDir receives the published artifacts; empty publishes nothing
	OutputDir string
	// Mesher names the generator; empty uses the service default
	Mesher string
}

func (r Request) source() string {
	if r.Document != nil {
		return "document " + r.Document.ModelName
	}
	return r.Path
}

// Result is the outcome of a successful conversion
type Result struct {
	RunID       string
	Model       string
	Fingerprint string
	Tool        string
	Digest      string
	OutputDir   string
	Script      *geometry.Script
	Tables      *domain.Tables
	Summary     domain.Summary
	Manifest    *output.Manifest
	// Previous is the last successful run with the same fingerprint and tool
	Previous *domain.Run
	// Drift is set when Previous produced different tables
	Drift bool
}

// ConversionService runs model documents through the preprocessing pipeline
type ConversionService struct {
	generators  *adapter.Registry
	catalog     repository.Catalog
	publisher   *output.Publisher
	eventBus    *EventBus
	mesher      string
	newID       func() string
	now         func() time.Time
	fingerprint func(*schema.Document, *geometry.Script) (string, error)
}

// NewConversionService creates a new conversion service. A nil catalog
// disables run history and drift detection.
func NewConversionService(generators *adapter.Registry, catalog repository.Catalog, eventBus *EventBus, defaultMesher string) *ConversionService {
	return &ConversionService{
		generators:  generators,
		catalog:     catalog,
		publisher:   output.NewPublisher(),
		eventBus:    eventBus,
		mesher:      defaultMesher,
		newID:       uuid.NewString,
		now:         time.Now,
		fingerprint: Fingerprint,
	}
}

// Load reads and validates the document of a request
func (s *ConversionService) Load(req Request) (*schema.Document, *schema.ModelSpec, error) {
	doc := req.Document
	if doc == nil {
		if req.Path == "" {
			return nil, nil, errors.New("request has neither a document nor a path")
		}
		var err error
		if doc, err = codec.LoadFile(req.Path); err != nil {
			return nil, nil, err
		}
	}
	spec, err := schema.Validate(doc)
	if err != nil {
		return doc, nil, err
	}
	return doc, spec, nil
}

// Script validates the document of a request and builds its geometry script
func (s *ConversionService) Script(req Request) (*geometry.Script, error) {
	_, spec, err := s.Load(req)
	if err != nil {
		return nil, err
	}
	return geometry.Build(spec)
}

// Fingerprint identifies a model and its meshing inputs
func Fingerprint(doc *schema.Document, script *geometry.Script) (string, error) {
	var buf bytes.Buffer
	if err := codec.NewYAMLCodec().Export(doc, &buf); err != nil {
		return "", fmt.Errorf("failed to normalize document: %w", err)
	}
	return output.Fingerprint(map[string][]byte{
		"document": buf.Bytes(),
		"script":   []byte(script.Render()),
	}), nil
}

// Convert runs one request through every stage. Artifacts are published only
// when every stage succeeded.
func (s *ConversionService) Convert(ctx context.Context, req Request) (*Result, error) {
	runID := s.newID()
	s.emit(EventRunStarted, runID, "", req.source())

	doc, spec, err := s.Load(req)
	if err != nil {
		s.emit(EventRunFailed, runID, modelName(doc), err.Error())
		return nil, err
	}
	model := spec.Name()
	s.emit(EventValidated, runID, model, fmt.Sprintf("%d physical groups", len(spec.PhysicalIDs())))

	script, err := geometry.Build(spec)
	if err != nil {
		s.emit(EventRunFailed, runID, model, err.Error())
		return nil, err
	}
	s.emit(EventScriptBuilt, runID, model, fmt.Sprintf("%d curves, %d surfaces", len(script.Curves), len(script.Surfaces)))

	fingerprint, err := s.fingerprint(doc, script)
	if err != nil {
		s.emit(EventRunFailed, runID, model, err.Error())
		return nil, err
	}

	mesher := req.Mesher
	if mesher == "" {
		mesher = s.mesher
	}
	run := &domain.Run{
		ID:          runID,
		Model:       model,
		Fingerprint: fingerprint,
		Tool:        mesher,
		OutputDir:   req.OutputDir,
	}

	gen, err := s.generators.Get(mesher)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	log.Infof("[%s] meshing %s with %s (%s)", shortID(runID), model, mesher, script.Mesh)
	out, err := gen.Generate(ctx, script)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("mesh generation: %w", err))
	}
	run.Tool = out.Tool
	s.emit(EventMeshGenerated, runID, model, msh.Stats(out.Mesh))

	tables, err := convert.Convert(out.Mesh, script.Groups, spec)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	run.Summary = tables.Summary()
	s.emit(EventConverted, runID, model, fmt.Sprintf("%d nodes, %d elements, %d loads",
		run.Summary.Nodes, run.Summary.Elements, run.Summary.Loads))

	files := convert.Encode(tables)
	parts := make(map[string][]byte, len(files))
	for _, f := range files {
		parts[f.Name] = f.Data
	}
	run.Digest = output.Fingerprint(parts)

	result := &Result{
		RunID:       runID,
		Model:       model,
		Fingerprint: fingerprint,
		Tool:        run.Tool,
		Digest:      run.Digest,
		OutputDir:   req.OutputDir,
		Script:      script,
		Tables:      tables,
		Summary:     run.Summary,
	}
	s.checkDrift(ctx, result)

	if req.OutputDir != "" {
		base := output.Basename(model)
		artifacts := []output.Artifact{
			{Name: base + ".geo", Data: []byte(script.Render())},
			{Name: base + ".msh", Data: out.MSH},
		}
		for _, f := range files {
			artifacts = append(artifacts, output.Artifact{Name: f.Name, Data: f.Data})
		}
		manifest, err := s.publisher.Publish(req.OutputDir, output.Manifest{
			Model:       model,
			RunID:       runID,
			Fingerprint: fingerprint,
			Tool:        run.Tool,
		}, artifacts)
		if err != nil {
			return nil, s.fail(ctx, run, fmt.Errorf("publish: %w", err))
		}
		result.Manifest = manifest
		s.emit(EventPublished, runID, model, req.OutputDir)
	}

	run.Status = domain.RunSucceeded
	s.record(ctx, run)
	log.Infof("[%s] %s converted: %d nodes, %d elements, %d materials, %d loads",
		shortID(runID), model, run.Summary.Nodes, run.Summary.Elements, run.Summary.Materials, run.Summary.Loads)
	return result, nil
}

// checkDrift compares the result with the last successful run of the same
// fingerprint and tool
func (s *ConversionService) checkDrift(ctx context.Context, result *Result) {
	if s.catalog == nil {
		return
	}
	prev, err := s.catalog.LastSuccessful(ctx, result.Fingerprint, result.Tool)
	if err != nil {
		log.Warningf("[%s] drift check skipped: %v", shortID(result.RunID), err)
		return
	}
	if prev == nil {
		return
	}
	result.Previous = prev
	if prev.Digest != result.Digest {
		result.Drift = true
		detail := fmt.Sprintf("tables differ from run %s (%s)", prev.ID, prev.CreatedAt.Format(time.RFC3339))
		log.Warningf("[%s] %s: %s", shortID(result.RunID), result.Model, detail)
		s.emit(EventDriftDetected, result.RunID, result.Model, detail)
	}
}

func (s *ConversionService) fail(ctx context.Context, run *domain.Run, err error) error {
	run.Status = domain.RunFailed
	run.Error = err.Error()
	s.record(ctx, run)
	s.emit(EventRunFailed, run.ID, run.Model, err.Error())
	return err
}

func (s *ConversionService) record(ctx context.Context, run *domain.Run) {
	if s.catalog == nil {
		return
	}
	run.CreatedAt = s.now()
	// a cancelled run is still recorded
	if err := s.catalog.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warningf("[%s] failed to record run: %v", shortID(run.ID), err)
	}
}

// History lists catalogued runs newest first
func (s *ConversionService) History(ctx context.Context, model string, limit int) ([]domain.Run, error) {
	if s.catalog == nil {
		return nil, errors.New("run catalog is disabled")
	}
	return s.catalog.ListRuns(ctx, model, limit)
}

func (s *ConversionService) emit(t EventType, runID, model, detail string) {
	s.eventBus.Publish(Event{
		Type:    t,
		Payload: StageEvent{RunID: runID, Model: model, Detail: detail},
	})
}

func modelName(doc *schema.Document) string {
	if doc == nil {
		return ""
	}
	return doc.ModelName
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
