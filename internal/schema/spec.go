package schema

import (
	"sort"

	"feaprep/internal/domain"
)

// DefaultMaterialID is the physical id of the single-material region when the
// document does not set one
const DefaultMaterialID = 1

// Region is one material-carrying surface of the model
type Region struct {
	PhysicalID int
	Name       string
	Material   domain.Material
	// YMin and YMax bound the band for layered geometries; both are zero otherwise
	YMin float64
	YMax float64
}

// ModelSpec is a validated, immutable model description. The only way to obtain
// one is Validate, so every ModelSpec reaching the geometry builder has passed
// every rule.
type ModelSpec struct {
	name        string
	description string
	geometry    domain.Geometry
	regions     []Region
	bcs         []domain.BoundaryCondition
	loads       []domain.Load
	mesh        domain.MeshParams
}

// Name returns the model name
func (s *ModelSpec) Name() string { return s.name }

// Description returns the optional model description
func (s *ModelSpec) Description() string { return s.description }

// Geometry returns the geometry variant
func (s *ModelSpec) Geometry() domain.Geometry { return s.geometry }

// Mesh returns the mesh parameters
func (s *ModelSpec) Mesh() domain.MeshParams { return s.mesh }

// Layered reports whether the model has more than one material band
func (s *ModelSpec) Layered() bool {
	return s.geometry.Family() == domain.FamilyLayeredRectangle
}

// Regions returns the material regions; layered regions are ordered bottom to top
func (s *ModelSpec) Regions() []Region {
	return append([]Region(nil), s.regions...)
}

// BoundaryConditions returns the boundary conditions in declaration order
func (s *ModelSpec) BoundaryConditions() []domain.BoundaryCondition {
	return append([]domain.BoundaryCondition(nil), s.bcs...)
}

// Loads returns the loads in declaration order
func (s *ModelSpec) Loads() []domain.Load {
	return append([]domain.Load(nil), s.loads...)
}

// PhysicalIDs returns every physical id of the model in ascending order
func (s *ModelSpec) PhysicalIDs() []int {
	var ids []int
	for _, r := range s.regions {
		ids = append(ids, r.PhysicalID)
	}
	for _, bc := range s.bcs {
		ids = append(ids, bc.PhysicalID)
	}
	for _, l := range s.loads {
		ids = append(ids, l.PhysicalID)
	}
	sort.Ints(ids)
	return ids
}
