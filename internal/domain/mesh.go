package domain

// ElementType is a raw mesh element kind
type ElementType string

const (
	ElemPoint     ElementType = "point"
	ElemLine      ElementType = "line"
	ElemLine3     ElementType = "line3"
	ElemTriangle  ElementType = "triangle"
	ElemTriangle6 ElementType = "triangle6"
	ElemQuad      ElementType = "quad"
)

// Dim returns the topological dimension of the element type, -1 if unknown
func (t ElementType) Dim() int {
	switch t {
	case ElemPoint:
		return 0
	case ElemLine, ElemLine3:
		return 1
	case ElemTriangle, ElemTriangle6, ElemQuad:
		return 2
	}
	return -1
}

// NodeCount returns the number of nodes of the element type, 0 if unknown
func (t ElementType) NodeCount() int {
	switch t {
	case ElemPoint:
		return 1
	case ElemLine:
		return 2
	case ElemLine3, ElemTriangle:
		return 3
	case ElemQuad:
		return 4
	case ElemTriangle6:
		return 6
	}
	return 0
}

// SolverType returns the solver element type tag (quad=1, triangle6=2, triangle=3)
func (t ElementType) SolverType() (int, bool) {
	switch t {
	case ElemQuad:
		return 1, true
	case ElemTriangle6:
		return 2, true
	case ElemTriangle:
		return 3, true
	}
	return 0, false
}

// RawNode is one node of the generator output, keyed by the generator's tag
type RawNode struct {
	Tag int
	X   float64
	Y   float64
}

// RawElement is one element record of the generator output. Boundary edges are
// elements of dimension 1 carrying the physical id of the curve they discretize.
type RawElement struct {
	Tag         int
	Type        ElementType
	PhysicalTag int
	EntityTag   int
	Nodes       []int
}

// RawMesh is the transient discretization produced by the mesh generator
type RawMesh struct {
	Nodes    []RawNode
	Elements []RawElement
}

// PhysicalTags returns the set of physical tags carried by any element
func (m *RawMesh) PhysicalTags() map[int]bool {
	tags := make(map[int]bool)
	for _, el := range m.Elements {
		tags[el.PhysicalTag] = true
	}
	return tags
}
