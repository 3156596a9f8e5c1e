package templates

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feaprep/internal/codec"
	"feaprep/internal/domain"
)

func cantilever() *Template {
	return NewRectangle("cantilever", 4, 1).
		WithMaterial(2e5, 0.25).
		WithMesh(0.25, domain.ElementTriangle, 0).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		AddLoad(domain.LocationRight, 0, -1000)
}

func TestRectangleDefaults(t *testing.T) {
	doc := NewRectangle("plate", 2, 1).Document()

	require.NotNil(t, doc.Material)
	assert.Equal(t, DefaultE, doc.Material.E)
	assert.Equal(t, DefaultNu, doc.Material.Nu)
	assert.Equal(t, DefaultMeshSize, doc.Mesh.Size)
	assert.Equal(t, "triangle", doc.Mesh.ElementType)
	assert.Equal(t, "rectangle", doc.Geometry.Type)
	assert.Nil(t, doc.Layers)
}

func TestPlateWithHoleDefaultMeshSize(t *testing.T) {
	doc := NewPlateWithHole("plate", 1, 1, 0.5, 0.5, 0.1).Document()
	assert.Equal(t, DefaultHoleMeshSize, doc.Mesh.Size)
}

func TestIDsPerKind(t *testing.T) {
	tpl := NewRectangle("plate", 2, 1).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Free).
		AddBC(domain.LocationBottom, domain.Free, domain.Fixed).
		AddLoad(domain.LocationRight, 10, 0).
		AddLoad(domain.LocationTop, 0, -5, Named("pressure"), Distributed(domain.DistributionLengthWeighted))

	doc := tpl.Document()
	require.Len(t, doc.BoundaryConditions, 2)
	require.Len(t, doc.Loads, 2)
	assert.Equal(t, 100, doc.BoundaryConditions[0].PhysicalID)
	assert.Equal(t, 101, doc.BoundaryConditions[1].PhysicalID)
	assert.Equal(t, "bc_left", doc.BoundaryConditions[0].Name)
	assert.Equal(t, 200, doc.Loads[0].PhysicalID)
	assert.Equal(t, 201, doc.Loads[1].PhysicalID)
	assert.Equal(t, "load_right", doc.Loads[0].Name)
	assert.Equal(t, "uniform", doc.Loads[0].Distribution)
	assert.Equal(t, "pressure", doc.Loads[1].Name)
	assert.Equal(t, "length_weighted", doc.Loads[1].Distribution)

	spec, err := tpl.Build()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 100, 101, 200, 201}, spec.PhysicalIDs())
}

func TestCantileverBuild(t *testing.T) {
	spec, err := cantilever().Build()
	require.NoError(t, err)

	assert.Equal(t, "cantilever", spec.Name())
	assert.Equal(t, domain.Rectangle{Length: 4, Height: 1}, spec.Geometry())
	regions := spec.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, 2e5, regions[0].Material.E)
	loads := spec.Loads()
	require.Len(t, loads, 1)
	assert.Equal(t, domain.Force{X: 0, Y: -1000}, loads[0].Force)
}

func TestLayeredBuild(t *testing.T) {
	spec, err := NewLayered("sandwich", 10, 1).
		AddLayer("bottom", 0, 0.3, 2e5, 0.3).
		AddLayer("core", 0.3, 0.7, 1e3, 0.2).
		AddLayer("top", 0.7, 1, 2e5, 0.3).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		Build()
	require.NoError(t, err)

	assert.Equal(t, domain.FamilyLayeredRectangle, spec.Geometry().Family())
	regions := spec.Regions()
	require.Len(t, regions, 3)
	assert.Equal(t, 1, regions[0].PhysicalID)
	assert.Equal(t, 3, regions[2].PhysicalID)
	assert.Equal(t, "core", regions[1].Name)
}

func TestLayeredRequiresLayers(t *testing.T) {
	_, err := NewLayered("empty", 1, 1).AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).Build()
	assert.Error(t, err)
}

func TestLayeredGapReported(t *testing.T) {
	_, err := NewLayered("gap", 1, 1).
		AddLayer("a", 0, 0.4, 1e6, 0.3).
		AddLayer("b", 0.5, 1, 1e6, 0.3).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		Build()

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("layers[1].region"))
}

func TestMisuseIsReportedByBuild(t *testing.T) {
	_, err := NewLayered("layered", 1, 1).WithMaterial(1, 0.1).Build()
	assert.ErrorContains(t, err, "per layer")

	_, err = NewRectangle("plain", 1, 1).AddLayer("a", 0, 1, 1, 0.1).Build()
	assert.ErrorContains(t, err, "has no layers")
}

func TestHoleRadiusRejectedAtBuild(t *testing.T) {
	_, err := NewPlateWithHole("plate", 1, 1, 0.5, 0.5, 0.6).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		Build()

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("geometry.hole_radius"))
}

func TestLShapeAndHoleLocations(t *testing.T) {
	_, err := NewLShape("angle", 2, 2, 0.5, 0.5).
		AddBC(domain.LocationBottom, domain.Fixed, domain.Fixed).
		AddLoad(domain.LocationRight, 1, 0).
		Build()
	require.NoError(t, err)

	_, err = NewLShape("angle", 2, 2, 0.5, 0.5).
		AddBC(domain.LocationHole, domain.Fixed, domain.Fixed).
		Build()
	assert.Error(t, err)

	_, err = NewPlateWithHole("plate", 2, 1, 1, 0.5, 0.2).
		AddBC(domain.LocationLeft, domain.Fixed, domain.Fixed).
		AddLoad(domain.LocationHole, 0, -1).
		Build()
	assert.NoError(t, err)
}

func TestDocumentIsCopy(t *testing.T) {
	tpl := cantilever()
	doc := tpl.Document()
	doc.Material.E = 1
	doc.BoundaryConditions[0].Name = "changed"

	again := tpl.Document()
	assert.Equal(t, 2e5, again.Material.E)
	assert.Equal(t, "bc_left", again.BoundaryConditions[0].Name)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cantilever.yaml")
	tpl := cantilever().WithDescription("tip loaded beam")
	require.NoError(t, tpl.Save(path))

	doc, err := codec.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tpl.Document(), doc)
}

func TestSaveRefusesInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	err := NewRectangle("bad", 1, 1).Save(path)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		family string
		params Params
		want   domain.Family
		name   string
	}{
		{"rectangle", Params{Length: 1, Height: 1}, domain.FamilyRectangle, "rectangular_plate"},
		{"layered_plate", Params{Length: 1, Height: 1}, domain.FamilyLayeredRectangle, "layered_plate"},
		{"layered_rectangle", Params{Name: "x", Length: 1, Height: 1}, domain.FamilyLayeredRectangle, "x"},
		{"lshape", Params{Width: 2, Height: 2, FlangeWidth: 1, FlangeHeight: 1}, domain.FamilyLShape, "lshape_beam"},
		{"plate_with_hole", Params{Length: 1, Height: 1, HoleX: 0.5, HoleY: 0.5, HoleRadius: 0.1}, domain.FamilyPlateWithHole, "plate_with_hole"},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			tpl, err := New(tt.family, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tpl.Family())
			assert.Equal(t, tt.name, tpl.Document().ModelName)
		})
	}

	_, err := New("circle", Params{})
	assert.ErrorContains(t, err, "unknown geometry type")
}
