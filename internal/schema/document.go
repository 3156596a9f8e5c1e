// Package schema turns a declarative model document into a validated,
// immutable ModelSpec. Validation is pure and reports every violated field at
// once so a document can be fixed in a single pass.
package schema

// Document is the loosely typed model description as authored by a user.
// Family-specific geometry fields are optional here and checked per family.
type Document struct {
	ModelName          string                 `yaml:"model_name" json:"model_name,omitempty" validate:"required,singleline"`
	Description        string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Geometry           GeometryDoc            `yaml:"geometry" json:"geometry,omitempty"`
	Mesh               MeshDoc                `yaml:"mesh" json:"mesh,omitempty"`
	Material           *MaterialDoc           `yaml:"material,omitempty" json:"material,omitempty"`
	Layers             []LayerDoc             `yaml:"layers,omitempty" json:"layers,omitempty" validate:"dive"`
	BoundaryConditions []BoundaryConditionDoc `yaml:"boundary_conditions" json:"boundary_conditions,omitempty" validate:"dive"`
	Loads              []LoadDoc              `yaml:"loads,omitempty" json:"loads,omitempty" validate:"dive"`
}

// GeometryDoc carries the family tag and the union of family dimensions
type GeometryDoc struct {
	Type         string  `yaml:"type" json:"type,omitempty" validate:"required,oneof=rectangle layered_rectangle lshape plate_with_hole"`
	Length       float64 `yaml:"length,omitempty" json:"length,omitempty" validate:"omitempty,gt=0"`
	Height       float64 `yaml:"height,omitempty" json:"height,omitempty" validate:"omitempty,gt=0"`
	Width        float64 `yaml:"width,omitempty" json:"width,omitempty" validate:"omitempty,gt=0"`
	FlangeWidth  float64 `yaml:"flange_width,omitempty" json:"flange_width,omitempty" validate:"omitempty,gt=0"`
	FlangeHeight float64 `yaml:"flange_height,omitempty" json:"flange_height,omitempty" validate:"omitempty,gt=0"`
	HoleX        float64 `yaml:"hole_x,omitempty" json:"hole_x,omitempty"`
	HoleY        float64 `yaml:"hole_y,omitempty" json:"hole_y,omitempty"`
	HoleRadius   float64 `yaml:"hole_radius,omitempty" json:"hole_radius,omitempty" validate:"omitempty,gt=0"`
}

// MeshDoc holds mesh generation parameters
type MeshDoc struct {
	Size        float64 `yaml:"size" json:"size,omitempty" validate:"gt=0"`
	ElementType string  `yaml:"element_type,omitempty" json:"element_type,omitempty" validate:"omitempty,oneof=triangle triangle6 quad"`
	Algorithm   int     `yaml:"algorithm,omitempty" json:"algorithm,omitempty" validate:"oneof=0 1 2 3 5 6 7 8 9 11"`
}

// MaterialDoc holds linear elastic properties
type MaterialDoc struct {
	E          float64 `yaml:"E" json:"E,omitempty" validate:"gt=0"`
	Nu         float64 `yaml:"nu" json:"nu,omitempty" validate:"gte=0,lt=0.5"`
	Thickness  float64 `yaml:"thickness,omitempty" json:"thickness,omitempty" validate:"gte=0"`
	PhysicalID int     `yaml:"physical_id,omitempty" json:"physical_id,omitempty" validate:"gte=0"`
}

// LayerDoc is one horizontal band of a layered rectangle
type LayerDoc struct {
	Name       string      `yaml:"name" json:"name,omitempty" validate:"required,groupname"`
	Region     []float64   `yaml:"region" json:"region,omitempty" validate:"len=2"`
	PhysicalID int         `yaml:"physical_id" json:"physical_id,omitempty" validate:"gte=1"`
	Material   MaterialDoc `yaml:"material" json:"material,omitempty"`
}

// ConstraintsDoc holds per-axis constraint tags
type ConstraintsDoc struct {
	X string `yaml:"x,omitempty" json:"x,omitempty" validate:"omitempty,oneof=fixed free"`
	Y string `yaml:"y,omitempty" json:"y,omitempty" validate:"omitempty,oneof=fixed free"`
}

// BoundaryConditionDoc constrains one edge location
type BoundaryConditionDoc struct {
	Name        string         `yaml:"name" json:"name,omitempty" validate:"required,groupname"`
	Location    string         `yaml:"location" json:"location,omitempty" validate:"required,oneof=left right top bottom hole"`
	PhysicalID  int            `yaml:"physical_id" json:"physical_id,omitempty" validate:"gte=1"`
	Constraints ConstraintsDoc `yaml:"constraints" json:"constraints,omitempty"`
}

// ForceDoc is the total force applied to an edge
type ForceDoc struct {
	X float64 `yaml:"x" json:"x,omitempty"`
	Y float64 `yaml:"y" json:"y,omitempty"`
}

// LoadDoc applies a force to one edge location
type LoadDoc struct {
	Name         string   `yaml:"name" json:"name,omitempty" validate:"required,groupname"`
	Location     string   `yaml:"location" json:"location,omitempty" validate:"required,oneof=left right top bottom hole"`
	PhysicalID   int      `yaml:"physical_id" json:"physical_id,omitempty" validate:"gte=1"`
	Force        ForceDoc `yaml:"force" json:"force,omitempty"`
	Distribution string   `yaml:"distribution,omitempty" json:"distribution,omitempty" validate:"omitempty,oneof=uniform length_weighted"`
}
