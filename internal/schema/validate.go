package schema

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/go-playground/validator.v9"

	"feaprep/internal/domain"
)

var (
	validatorOnce  sync.Once
	fieldValidator *validator.Validate
)

// structValidator returns the shared tag validator. Field names are reported
// with their document (yaml) names so violations point at what the user wrote.
func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("groupname", isGroupName)
		_ = v.RegisterValidation("singleline", isSingleLine)
		fieldValidator = v
	})
	return fieldValidator
}

// isGroupName accepts printable ASCII without quotes or backslashes, the
// characters a gmsh string literal can carry unchanged
func isGroupName(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return false
		}
	}
	return true
}

// isSingleLine rejects control characters, line breaks included
func isSingleLine(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
}

// Validate checks every rule of a document and freezes it into a ModelSpec.
// On failure the returned error is a *domain.ValidationError listing every
// offending field.
func Validate(doc *Document) (*ModelSpec, error) {
	verr := &domain.ValidationError{}
	if doc == nil {
		verr.Add("document", "required", "document is empty")
		return nil, verr
	}

	checkFields(doc, verr)

	family := resolveFamily(doc, verr)
	geometry := checkGeometry(doc, family, verr)
	regions := checkMaterials(doc, family, geometry, verr)
	bcs := checkBoundaryConditions(doc, family, verr)
	loads := checkLoads(doc, family, verr)
	checkPhysicalIDs(doc, family, verr)

	if err := verr.Err(); err != nil {
		return nil, err
	}

	elementFamily := domain.ElementFamily(doc.Mesh.ElementType)
	if elementFamily == "" {
		elementFamily = domain.ElementTriangle
	}

	return &ModelSpec{
		name:        doc.ModelName,
		description: doc.Description,
		geometry:    geometry,
		regions:     regions,
		bcs:         bcs,
		loads:       loads,
		mesh: domain.MeshParams{
			Size:          doc.Mesh.Size,
			ElementFamily: elementFamily,
			Algorithm:     doc.Mesh.Algorithm,
		},
	}, nil
}

// checkFields runs the struct tag rules
func checkFields(doc *Document, verr *domain.ValidationError) {
	err := structValidator().Struct(doc)
	if err == nil {
		return
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.Add("document", "invalid", "%v", err)
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), fe.Tag(), "%s", ruleMessage(fe))
	}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s (got %v)", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("must be less than %s (got %v)", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s (got %v)", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s] (got %v)", fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("must have exactly %s entries", fe.Param())
	case "groupname":
		return fmt.Sprintf("must be printable ASCII without quotes or backslashes (got %q)", fe.Value())
	case "singleline":
		return fmt.Sprintf("must not contain line breaks or control characters (got %q)", fe.Value())
	}
	return fmt.Sprintf("failed rule %q", fe.Tag())
}

// resolveFamily maps the document type tag onto a family. A rectangle with
// layers is a layered rectangle.
func resolveFamily(doc *Document, verr *domain.ValidationError) domain.Family {
	family := domain.Family(doc.Geometry.Type)
	if family == domain.FamilyRectangle && len(doc.Layers) > 0 {
		family = domain.FamilyLayeredRectangle
	}
	if !family.Valid() {
		return ""
	}

	switch {
	case doc.Material != nil && len(doc.Layers) > 0:
		verr.Add("material", "exclusive", "specify either material or layers, not both")
	case family == domain.FamilyLayeredRectangle && len(doc.Layers) == 0:
		verr.Add("layers", "required", "a layered rectangle needs at least one layer")
	case family != domain.FamilyLayeredRectangle && len(doc.Layers) > 0:
		verr.Add("layers", "unsupported", "layers are only supported on rectangles, not %s", family)
	case family != domain.FamilyLayeredRectangle && doc.Material == nil:
		verr.Add("material", "required", "must specify either material or layers")
	}
	return family
}

func requirePositive(verr *domain.ValidationError, field string, v float64) bool {
	if v == 0 {
		verr.Add(field, "required", "is required")
		return false
	}
	return v > 0
}

func checkGeometry(doc *Document, family domain.Family, verr *domain.ValidationError) domain.Geometry {
	g := doc.Geometry
	switch family {
	case domain.FamilyRectangle:
		requirePositive(verr, "geometry.length", g.Length)
		requirePositive(verr, "geometry.height", g.Height)
		return domain.Rectangle{Length: g.Length, Height: g.Height}

	case domain.FamilyLayeredRectangle:
		requirePositive(verr, "geometry.length", g.Length)
		requirePositive(verr, "geometry.height", g.Height)
		return domain.LayeredRectangle{Length: g.Length, Height: g.Height}

	case domain.FamilyLShape:
		okW := requirePositive(verr, "geometry.width", g.Width)
		okH := requirePositive(verr, "geometry.height", g.Height)
		okFW := requirePositive(verr, "geometry.flange_width", g.FlangeWidth)
		okFH := requirePositive(verr, "geometry.flange_height", g.FlangeHeight)
		if okW && okFW && g.FlangeWidth > g.Width {
			verr.Add("geometry.flange_width", "lte_field", "must be <= width (%g > %g)", g.FlangeWidth, g.Width)
		}
		if okH && okFH && g.FlangeHeight > g.Height {
			verr.Add("geometry.flange_height", "lte_field", "must be <= height (%g > %g)", g.FlangeHeight, g.Height)
		}
		return domain.LShape{Width: g.Width, Height: g.Height, FlangeWidth: g.FlangeWidth, FlangeHeight: g.FlangeHeight}

	case domain.FamilyPlateWithHole:
		okL := requirePositive(verr, "geometry.length", g.Length)
		okH := requirePositive(verr, "geometry.height", g.Height)
		okR := requirePositive(verr, "geometry.hole_radius", g.HoleRadius)
		if okL && okH && okR {
			limit := math.Min(g.Length, g.Height) / 2
			if g.HoleRadius >= limit {
				verr.Add("geometry.hole_radius", "lt_field",
					"must be less than half the smaller plate dimension (%g >= %g)", g.HoleRadius, limit)
			}
			if g.HoleX-g.HoleRadius <= 0 || g.HoleX+g.HoleRadius >= g.Length {
				verr.Add("geometry.hole_x", "contained",
					"hole [%g, %g] must lie strictly inside [0, %g]", g.HoleX-g.HoleRadius, g.HoleX+g.HoleRadius, g.Length)
			}
			if g.HoleY-g.HoleRadius <= 0 || g.HoleY+g.HoleRadius >= g.Height {
				verr.Add("geometry.hole_y", "contained",
					"hole [%g, %g] must lie strictly inside [0, %g]", g.HoleY-g.HoleRadius, g.HoleY+g.HoleRadius, g.Height)
			}
		}
		return domain.PlateWithHole{Length: g.Length, Height: g.Height, HoleX: g.HoleX, HoleY: g.HoleY, HoleRadius: g.HoleRadius}
	}
	return nil
}

func toMaterial(m MaterialDoc) domain.Material {
	return domain.Material{E: m.E, Nu: m.Nu, Thickness: m.Thickness}
}

// checkMaterials builds the material regions. Layer spans must partition
// [0, height] exactly; shared interfaces are snapped to a single coordinate so
// adjacent layers meet at the identical y.
func checkMaterials(doc *Document, family domain.Family, geometry domain.Geometry, verr *domain.ValidationError) []Region {
	if family != domain.FamilyLayeredRectangle {
		if doc.Material == nil {
			return nil
		}
		id := doc.Material.PhysicalID
		if id == 0 {
			id = DefaultMaterialID
		}
		return []Region{{PhysicalID: id, Name: "material", Material: toMaterial(*doc.Material)}}
	}
	if len(doc.Layers) == 0 || geometry == nil {
		return nil
	}

	type indexed struct {
		idx   int
		layer LayerDoc
	}
	var valid []indexed
	for i, l := range doc.Layers {
		if len(l.Region) != 2 {
			continue // reported by the tag rules
		}
		if l.Region[0] >= l.Region[1] {
			verr.Add(fmt.Sprintf("layers[%d].region", i), "ordered",
				"region[0] must be < region[1] (got [%g, %g])", l.Region[0], l.Region[1])
			continue
		}
		valid = append(valid, indexed{idx: i, layer: l})
	}
	if len(valid) != len(doc.Layers) {
		return nil
	}
	sort.SliceStable(valid, func(a, b int) bool {
		return valid[a].layer.Region[0] < valid[b].layer.Region[0]
	})

	_, height := geometry.Bounds()
	eps := 1e-9 * math.Max(1, height)
	regions := make([]Region, 0, len(valid))

	first := valid[0]
	if math.Abs(first.layer.Region[0]) > eps {
		verr.Add(fmt.Sprintf("layers[%d].region", first.idx), "covers",
			"lowest layer must start at 0 (starts at %g)", first.layer.Region[0])
	}
	last := valid[len(valid)-1]
	if math.Abs(last.layer.Region[1]-height) > eps {
		verr.Add(fmt.Sprintf("layers[%d].region", last.idx), "covers",
			"highest layer must end at height %g (ends at %g)", height, last.layer.Region[1])
	}

	yMin := 0.0
	for i, v := range valid {
		lo, hi := v.layer.Region[0], v.layer.Region[1]
		if i > 0 {
			prev := valid[i-1]
			prevHi := prev.layer.Region[1]
			field := fmt.Sprintf("layers[%d].region", v.idx)
			switch {
			case lo < prevHi-eps:
				verr.Add(field, "no_overlap", "layer %q overlaps layer %q ([%g, %g] vs [%g, %g])",
					v.layer.Name, prev.layer.Name, lo, hi, prev.layer.Region[0], prevHi)
			case lo > prevHi+eps:
				verr.Add(field, "no_gap", "gap between layer %q (ends %g) and layer %q (starts %g)",
					prev.layer.Name, prevHi, v.layer.Name, lo)
			}
		}
		if i == len(valid)-1 {
			hi = height
		}
		regions = append(regions, Region{
			PhysicalID: v.layer.PhysicalID,
			Name:       v.layer.Name,
			Material:   toMaterial(v.layer.Material),
			YMin:       yMin,
			YMax:       hi,
		})
		yMin = hi
	}
	return regions
}

func checkLocation(verr *domain.ValidationError, field string, family domain.Family, loc string) domain.Location {
	l := domain.Location(loc)
	if l == domain.LocationHole && family != "" && family != domain.FamilyPlateWithHole {
		verr.Add(field, "location", "location %q is only available on %s", loc, domain.FamilyPlateWithHole)
	}
	return l
}

func constraintOf(s string) domain.Constraint {
	if s == string(domain.Fixed) {
		return domain.Fixed
	}
	return domain.Free
}

func checkBoundaryConditions(doc *Document, family domain.Family, verr *domain.ValidationError) []domain.BoundaryCondition {
	if len(doc.BoundaryConditions) == 0 {
		verr.Add("boundary_conditions", "required", "at least one boundary condition is required")
	}
	bcs := make([]domain.BoundaryCondition, 0, len(doc.BoundaryConditions))
	for i, bc := range doc.BoundaryConditions {
		bcs = append(bcs, domain.BoundaryCondition{
			Name:       bc.Name,
			Location:   checkLocation(verr, fmt.Sprintf("boundary_conditions[%d].location", i), family, bc.Location),
			PhysicalID: bc.PhysicalID,
			X:          constraintOf(bc.Constraints.X),
			Y:          constraintOf(bc.Constraints.Y),
		})
	}
	return bcs
}

func checkLoads(doc *Document, family domain.Family, verr *domain.ValidationError) []domain.Load {
	loads := make([]domain.Load, 0, len(doc.Loads))
	for i, l := range doc.Loads {
		dist := domain.Distribution(l.Distribution)
		if dist == "" {
			dist = domain.DistributionUniform
		}
		loads = append(loads, domain.Load{
			Name:         l.Name,
			Location:     checkLocation(verr, fmt.Sprintf("loads[%d].location", i), family, l.Location),
			PhysicalID:   l.PhysicalID,
			Force:        domain.Force{X: l.Force.X, Y: l.Force.Y},
			Distribution: dist,
		})
	}
	return loads
}

// checkPhysicalIDs enforces one shared id namespace across materials, layers,
// boundary conditions and loads
func checkPhysicalIDs(doc *Document, family domain.Family, verr *domain.ValidationError) {
	owners := make(map[int]string)
	claim := func(field string, id int) {
		if id < 1 {
			return
		}
		if owner, taken := owners[id]; taken {
			verr.Add(field, "unique", "physical_id %d is already used by %s", id, owner)
			return
		}
		owners[id] = field
	}

	if doc.Material != nil && family != domain.FamilyLayeredRectangle {
		id := doc.Material.PhysicalID
		if id == 0 {
			id = DefaultMaterialID
		}
		claim("material.physical_id", id)
	}
	for i, l := range doc.Layers {
		claim(fmt.Sprintf("layers[%d].physical_id", i), l.PhysicalID)
	}
	for i, bc := range doc.BoundaryConditions {
		claim(fmt.Sprintf("boundary_conditions[%d].physical_id", i), bc.PhysicalID)
	}
	for i, l := range doc.Loads {
		claim(fmt.Sprintf("loads[%d].physical_id", i), l.PhysicalID)
	}
}
