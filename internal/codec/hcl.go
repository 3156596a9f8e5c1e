package codec

import (
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"feaprep/internal/schema"
)

// HCLCodec parses HCL model documents. A document looks like:
//
//	model_name = "cantilever"
//	geometry "rectangle" {
//	  length = 4
//	  height = 1
//	}
//	mesh { size = 0.5 }
//	material {
//	  E  = 1e6
//	  nu = 0.3
//	}
//	boundary_condition "fixed_left" {
//	  location    = "left"
//	  physical_id = 100
//	  x           = "fixed"
//	  y           = "fixed"
//	}
//	load "tip" {
//	  location    = "right"
//	  physical_id = 200
//	  force       = [0, -1000]
//	}
type HCLCodec struct {
	filename string
}

// NewHCLCodec creates a new HCL codec; filename is used in diagnostics
func NewHCLCodec(filename string) *HCLCodec {
	if filename == "" {
		filename = "model.hcl"
	}
	return &HCLCodec{filename: filename}
}

// Format returns the codec format identifier
func (c *HCLCodec) Format() string {
	return "hcl"
}

// hclDocument is the top-level structure of an HCL model file for decoding
type hclDocument struct {
	ModelName          string       `hcl:"model_name"`
	Description        string       `hcl:"description,optional"`
	Geometry           hclGeometry  `hcl:"geometry,block"`
	Mesh               hclMesh      `hcl:"mesh,block"`
	Material           *hclMaterial `hcl:"material,block"`
	Layers             []hclLayer   `hcl:"layer,block"`
	BoundaryConditions []hclBC      `hcl:"boundary_condition,block"`
	Loads              []hclLoad    `hcl:"load,block"`
}

type hclGeometry struct {
	Type         string  `hcl:"type,label"`
	Length       float64 `hcl:"length,optional"`
	Height       float64 `hcl:"height,optional"`
	Width        float64 `hcl:"width,optional"`
	FlangeWidth  float64 `hcl:"flange_width,optional"`
	FlangeHeight float64 `hcl:"flange_height,optional"`
	HoleX        float64 `hcl:"hole_x,optional"`
	HoleY        float64 `hcl:"hole_y,optional"`
	HoleRadius   float64 `hcl:"hole_radius,optional"`
}

type hclMesh struct {
	Size        float64 `hcl:"size"`
	ElementType string  `hcl:"element_type,optional"`
	Algorithm   int     `hcl:"algorithm,optional"`
}

type hclMaterial struct {
	E          float64 `hcl:"E"`
	Nu         float64 `hcl:"nu"`
	Thickness  float64 `hcl:"thickness,optional"`
	PhysicalID int     `hcl:"physical_id,optional"`
}

type hclLayer struct {
	Name       string      `hcl:"name,label"`
	Region     []float64   `hcl:"region"`
	PhysicalID int         `hcl:"physical_id"`
	Material   hclMaterial `hcl:"material,block"`
}

type hclBC struct {
	Name       string `hcl:"name,label"`
	Location   string `hcl:"location"`
	PhysicalID int    `hcl:"physical_id"`
	X          string `hcl:"x,optional"`
	Y          string `hcl:"y,optional"`
}

type hclLoad struct {
	Name         string    `hcl:"name,label"`
	Location     string    `hcl:"location"`
	PhysicalID   int       `hcl:"physical_id"`
	Force        []float64 `hcl:"force"`
	Distribution string    `hcl:"distribution,optional"`
}

// Parse decodes an HCL document
func (c *HCLCodec) Parse(r io.Reader) (*schema.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HCL: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, c.filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	var hd hclDocument
	diags = gohcl.DecodeBody(file.Body, nil, &hd)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	return hd.document()
}

func (m hclMaterial) document() schema.MaterialDoc {
	return schema.MaterialDoc{E: m.E, Nu: m.Nu, Thickness: m.Thickness, PhysicalID: m.PhysicalID}
}

func (hd *hclDocument) document() (*schema.Document, error) {
	doc := &schema.Document{
		ModelName:   hd.ModelName,
		Description: hd.Description,
		Geometry: schema.GeometryDoc{
			Type:         hd.Geometry.Type,
			Length:       hd.Geometry.Length,
			Height:       hd.Geometry.Height,
			Width:        hd.Geometry.Width,
			FlangeWidth:  hd.Geometry.FlangeWidth,
			FlangeHeight: hd.Geometry.FlangeHeight,
			HoleX:        hd.Geometry.HoleX,
			HoleY:        hd.Geometry.HoleY,
			HoleRadius:   hd.Geometry.HoleRadius,
		},
		Mesh: schema.MeshDoc{
			Size:        hd.Mesh.Size,
			ElementType: hd.Mesh.ElementType,
			Algorithm:   hd.Mesh.Algorithm,
		},
	}
	if hd.Material != nil {
		m := hd.Material.document()
		doc.Material = &m
	}
	for _, l := range hd.Layers {
		doc.Layers = append(doc.Layers, schema.LayerDoc{
			Name:       l.Name,
			Region:     l.Region,
			PhysicalID: l.PhysicalID,
			Material:   l.Material.document(),
		})
	}
	for _, bc := range hd.BoundaryConditions {
		doc.BoundaryConditions = append(doc.BoundaryConditions, schema.BoundaryConditionDoc{
			Name:        bc.Name,
			Location:    bc.Location,
			PhysicalID:  bc.PhysicalID,
			Constraints: schema.ConstraintsDoc{X: bc.X, Y: bc.Y},
		})
	}
	for _, l := range hd.Loads {
		if len(l.Force) != 2 {
			return nil, fmt.Errorf("load %q: force must be [x, y], got %d components", l.Name, len(l.Force))
		}
		doc.Loads = append(doc.Loads, schema.LoadDoc{
			Name:         l.Name,
			Location:     l.Location,
			PhysicalID:   l.PhysicalID,
			Force:        schema.ForceDoc{X: l.Force[0], Y: l.Force[1]},
			Distribution: l.Distribution,
		})
	}
	return doc, nil
}
