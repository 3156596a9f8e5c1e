// Package templates builds model documents for the common geometry families
// through a chainable API. A template only assembles a document; Build runs
// it through schema.Validate like any document read from disk.
package templates

import (
	"errors"
	"fmt"
	"strings"

	"feaprep/internal/codec"
	"feaprep/internal/domain"
	"feaprep/internal/schema"
)

const (
	// DefaultE is the Young's modulus used until WithMaterial is called
	DefaultE = 1e6
	// DefaultNu is the Poisson ratio used until WithMaterial is called
	DefaultNu = 0.3
	// DefaultMeshSize is the characteristic element size of most templates
	DefaultMeshSize = 0.1
	// DefaultHoleMeshSize is the finer default of the plate with hole
	DefaultHoleMeshSize = 0.001

	firstLayerID = 1
	firstBCID    = 100
	firstLoadID  = 200
)

// Template accumulates a model document. Methods return the receiver so calls
// can be chained; the first misuse is remembered and reported by Build.
type Template struct {
	family    domain.Family
	doc       schema.Document
	nextLayer int
	nextBC    int
	nextLoad  int
	err       error
}

func newTemplate(family domain.Family, name string, geometry schema.GeometryDoc, meshSize float64) *Template {
	t := &Template{
		family:    family,
		nextLayer: firstLayerID,
		nextBC:    firstBCID,
		nextLoad:  firstLoadID,
	}
	t.doc = schema.Document{
		ModelName: name,
		Geometry:  geometry,
		Mesh: schema.MeshDoc{
			Size:        meshSize,
			ElementType: string(domain.ElementTriangle),
		},
	}
	if family != domain.FamilyLayeredRectangle {
		t.doc.Material = &schema.MaterialDoc{E: DefaultE, Nu: DefaultNu}
	}
	return t
}

// NewRectangle starts a single-material rectangular plate
func NewRectangle(name string, length, height float64) *Template {
	return newTemplate(domain.FamilyRectangle, name, schema.GeometryDoc{
		Type:   string(domain.FamilyRectangle),
		Length: length,
		Height: height,
	}, DefaultMeshSize)
}

// NewLayered starts a rectangle whose materials are given by AddLayer
func NewLayered(name string, length, height float64) *Template {
	return newTemplate(domain.FamilyLayeredRectangle, name, schema.GeometryDoc{
		Type:   string(domain.FamilyRectangle),
		Length: length,
		Height: height,
	}, DefaultMeshSize)
}

// NewLShape starts an L-shaped section
func NewLShape(name string, width, height, flangeWidth, flangeHeight float64) *Template {
	return newTemplate(domain.FamilyLShape, name, schema.GeometryDoc{
		Type:         string(domain.FamilyLShape),
		Width:        width,
		Height:       height,
		FlangeWidth:  flangeWidth,
		FlangeHeight: flangeHeight,
	}, DefaultMeshSize)
}

// NewPlateWithHole starts a plate with a circular hole
func NewPlateWithHole(name string, length, height, holeX, holeY, holeRadius float64) *Template {
	return newTemplate(domain.FamilyPlateWithHole, name, schema.GeometryDoc{
		Type:       string(domain.FamilyPlateWithHole),
		Length:     length,
		Height:     height,
		HoleX:      holeX,
		HoleY:      holeY,
		HoleRadius: holeRadius,
	}, DefaultHoleMeshSize)
}

// Params carries the dimensions accepted by New. Only the fields of the
// requested family are read.
type Params struct {
	Name         string
	Length       float64
	Height       float64
	Width        float64
	FlangeWidth  float64
	FlangeHeight float64
	HoleX        float64
	HoleY        float64
	HoleRadius   float64
}

// New creates a template by family name. "layered_plate" is accepted as an
// alias of layered_rectangle.
func New(family string, p Params) (*Template, error) {
	name := p.Name
	switch domain.Family(family) {
	case domain.FamilyRectangle:
		return NewRectangle(orDefault(name, "rectangular_plate"), p.Length, p.Height), nil
	case domain.FamilyLayeredRectangle, "layered_plate":
		return NewLayered(orDefault(name, "layered_plate"), p.Length, p.Height), nil
	case domain.FamilyLShape:
		return NewLShape(orDefault(name, "lshape_beam"), p.Width, p.Height, p.FlangeWidth, p.FlangeHeight), nil
	case domain.FamilyPlateWithHole:
		return NewPlateWithHole(orDefault(name, "plate_with_hole"), p.Length, p.Height, p.HoleX, p.HoleY, p.HoleRadius), nil
	}
	return nil, fmt.Errorf("unknown geometry type %q (available: %s)", family, strings.Join(Families(), ", "))
}

// Families lists the names accepted by New
func Families() []string {
	return []string{
		string(domain.FamilyRectangle),
		"layered_plate",
		string(domain.FamilyLShape),
		string(domain.FamilyPlateWithHole),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (t *Template) fail(format string, args ...interface{}) *Template {
	if t.err == nil {
		t.err = fmt.Errorf(format, args...)
	}
	return t
}

// Family returns the geometry family the template produces
func (t *Template) Family() domain.Family {
	return t.family
}

// WithMaterial sets the single material. Layered templates take their
// materials from AddLayer instead.
func (t *Template) WithMaterial(e, nu float64) *Template {
	if t.family == domain.FamilyLayeredRectangle {
		return t.fail("layered template %q takes materials per layer", t.doc.ModelName)
	}
	t.doc.Material.E = e
	t.doc.Material.Nu = nu
	return t
}

// WithThickness sets the out-of-plane thickness of the single material
func (t *Template) WithThickness(thickness float64) *Template {
	if t.family == domain.FamilyLayeredRectangle {
		return t.fail("layered template %q takes materials per layer", t.doc.ModelName)
	}
	t.doc.Material.Thickness = thickness
	return t
}

// WithMesh sets the mesh parameters. An algorithm of 0 leaves the choice to
// the mesh generator.
func (t *Template) WithMesh(size float64, element domain.ElementFamily, algorithm int) *Template {
	t.doc.Mesh = schema.MeshDoc{
		Size:        size,
		ElementType: string(element),
		Algorithm:   algorithm,
	}
	return t
}

// WithDescription sets the model description
func (t *Template) WithDescription(description string) *Template {
	t.doc.Description = description
	return t
}

// AddLayer appends a material band spanning [yMin, yMax]
func (t *Template) AddLayer(name string, yMin, yMax, e, nu float64) *Template {
	if t.family != domain.FamilyLayeredRectangle {
		return t.fail("template %q of family %s has no layers", t.doc.ModelName, t.family)
	}
	t.doc.Layers = append(t.doc.Layers, schema.LayerDoc{
		Name:       name,
		Region:     []float64{yMin, yMax},
		PhysicalID: t.nextLayer,
		Material:   schema.MaterialDoc{E: e, Nu: nu},
	})
	t.nextLayer++
	return t
}

type entry struct {
	name         string
	distribution domain.Distribution
}

// Option customizes a boundary condition or load
type Option func(*entry)

// Named overrides the generated name
func Named(name string) Option {
	return func(e *entry) {
		e.name = name
	}
}

// Distributed selects how a load is split onto nodes. It has no effect on
// boundary conditions.
func Distributed(d domain.Distribution) Option {
	return func(e *entry) {
		e.distribution = d
	}
}

func applyOptions(defaultName string, opts []Option) entry {
	e := entry{name: defaultName, distribution: domain.DistributionUniform}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AddBC constrains the edge at loc
func (t *Template) AddBC(loc domain.Location, x, y domain.Constraint, opts ...Option) *Template {
	e := applyOptions("bc_"+string(loc), opts)
	t.doc.BoundaryConditions = append(t.doc.BoundaryConditions, schema.BoundaryConditionDoc{
		Name:        e.name,
		Location:    string(loc),
		PhysicalID:  t.nextBC,
		Constraints: schema.ConstraintsDoc{X: string(x), Y: string(y)},
	})
	t.nextBC++
	return t
}

// AddLoad applies the total force (fx, fy) to the edge at loc
func (t *Template) AddLoad(loc domain.Location, fx, fy float64, opts ...Option) *Template {
	e := applyOptions("load_"+string(loc), opts)
	t.doc.Loads = append(t.doc.Loads, schema.LoadDoc{
		Name:         e.name,
		Location:     string(loc),
		PhysicalID:   t.nextLoad,
		Force:        schema.ForceDoc{X: fx, Y: fy},
		Distribution: string(e.distribution),
	})
	t.nextLoad++
	return t
}

// Document returns a copy of the assembled document
func (t *Template) Document() *schema.Document {
	doc := t.doc
	if t.doc.Material != nil {
		m := *t.doc.Material
		doc.Material = &m
	}
	doc.Layers = make([]schema.LayerDoc, len(t.doc.Layers))
	for i, l := range t.doc.Layers {
		l.Region = append([]float64(nil), l.Region...)
		doc.Layers[i] = l
	}
	doc.BoundaryConditions = append([]schema.BoundaryConditionDoc(nil), t.doc.BoundaryConditions...)
	doc.Loads = append([]schema.LoadDoc(nil), t.doc.Loads...)
	if len(doc.Layers) == 0 {
		doc.Layers = nil
	}
	return &doc
}

// Build validates the document and returns the frozen model
func (t *Template) Build() (*schema.ModelSpec, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.family == domain.FamilyLayeredRectangle && len(t.doc.Layers) == 0 {
		return nil, errors.New("at least one layer must be added")
	}
	return schema.Validate(t.Document())
}

// Save validates the document and writes it as YAML to path
func (t *Template) Save(path string) error {
	if _, err := t.Build(); err != nil {
		return err
	}
	return codec.SaveFile(path, t.Document())
}
