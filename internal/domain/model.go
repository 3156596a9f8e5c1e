package domain

import "fmt"

// Family identifies a geometry variant
type Family string

const (
	FamilyRectangle        Family = "rectangle"
	FamilyLayeredRectangle Family = "layered_rectangle"
	FamilyLShape           Family = "lshape"
	FamilyPlateWithHole    Family = "plate_with_hole"
)

// Valid reports whether f is one of the supported families
func (f Family) Valid() bool {
	switch f {
	case FamilyRectangle, FamilyLayeredRectangle, FamilyLShape, FamilyPlateWithHole:
		return true
	}
	return false
}

// Geometry is the closed set of supported geometry variants
type Geometry interface {
	Family() Family
	// Bounds returns the bounding box extent; the lower-left corner is always the origin
	Bounds() (width, height float64)
	isGeometry()
}

// Rectangle is a plain rectangular plate
type Rectangle struct {
	Length float64
	Height float64
}

func (Rectangle) Family() Family               { return FamilyRectangle }
func (r Rectangle) Bounds() (float64, float64) { return r.Length, r.Height }
func (Rectangle) isGeometry()                  {}

// LayeredRectangle is a rectangle split into horizontal material layers.
// The layers themselves are carried by the model spec.
type LayeredRectangle struct {
	Length float64
	Height float64
}

func (LayeredRectangle) Family() Family               { return FamilyLayeredRectangle }
func (r LayeredRectangle) Bounds() (float64, float64) { return r.Length, r.Height }
func (LayeredRectangle) isGeometry()                  {}

// LShape is an L-shaped section. The vertical flange runs along x = 0 with width
// FlangeWidth, the horizontal flange runs along the top with height FlangeHeight.
type LShape struct {
	Width        float64
	Height       float64
	FlangeWidth  float64
	FlangeHeight float64
}

func (LShape) Family() Family               { return FamilyLShape }
func (l LShape) Bounds() (float64, float64) { return l.Width, l.Height }
func (LShape) isGeometry()                  {}

// PlateWithHole is a rectangular plate with one circular hole
type PlateWithHole struct {
	Length     float64
	Height     float64
	HoleX      float64
	HoleY      float64
	HoleRadius float64
}

func (PlateWithHole) Family() Family               { return FamilyPlateWithHole }
func (p PlateWithHole) Bounds() (float64, float64) { return p.Length, p.Height }
func (PlateWithHole) isGeometry()                  {}

// Material holds linear elastic properties
type Material struct {
	E         float64
	Nu        float64
	Thickness float64 // 0 when not declared
}

// Layer is a horizontal band of a layered rectangle
type Layer struct {
	Name       string
	YMin       float64
	YMax       float64
	PhysicalID int
	Material   Material
}

// Location names a boundary edge of the geometry
type Location string

const (
	LocationLeft   Location = "left"
	LocationRight  Location = "right"
	LocationTop    Location = "top"
	LocationBottom Location = "bottom"
	LocationHole   Location = "hole"
)

// Locations lists every symbolic location in a stable order
var Locations = []Location{LocationLeft, LocationRight, LocationTop, LocationBottom, LocationHole}

// Valid reports whether l is a known location
func (l Location) Valid() bool {
	for _, known := range Locations {
		if l == known {
			return true
		}
	}
	return false
}

// Constraint is the per-axis state of a degree of freedom
type Constraint string

const (
	Free  Constraint = "free"
	Fixed Constraint = "fixed"
)

// Flag returns the solver encoding of the constraint (-1 fixed, 0 free)
func (c Constraint) Flag() int {
	if c == Fixed {
		return -1
	}
	return 0
}

// BoundaryCondition constrains the nodes of one edge location
type BoundaryCondition struct {
	Name       string
	Location   Location
	PhysicalID int
	X          Constraint
	Y          Constraint
}

// Force is a 2D force vector
type Force struct {
	X float64
	Y float64
}

// Distribution selects how an edge load is split onto nodes
type Distribution string

const (
	// DistributionUniform splits the total force equally over every node touched by the group
	DistributionUniform Distribution = "uniform"
	// DistributionLengthWeighted splits the total force by tributary edge length
	DistributionLengthWeighted Distribution = "length_weighted"
)

// Valid reports whether d is a known distribution policy
func (d Distribution) Valid() bool {
	return d == DistributionUniform || d == DistributionLengthWeighted
}

// Load applies a total force to one edge location
type Load struct {
	Name         string
	Location     Location
	PhysicalID   int
	Force        Force
	Distribution Distribution
}

// ElementFamily is the requested area element kind
type ElementFamily string

const (
	ElementTriangle  ElementFamily = "triangle"
	ElementTriangle6 ElementFamily = "triangle6"
	ElementQuad      ElementFamily = "quad"
)

// Valid reports whether e is a supported element family
func (e ElementFamily) Valid() bool {
	return e == ElementTriangle || e == ElementTriangle6 || e == ElementQuad
}

// MeshParams controls discretization density and element kind
type MeshParams struct {
	Size          float64
	ElementFamily ElementFamily
	Algorithm     int // 0 lets the generator choose
}

func (m MeshParams) String() string {
	return fmt.Sprintf("size=%g element=%s algorithm=%d", m.Size, m.ElementFamily, m.Algorithm)
}
