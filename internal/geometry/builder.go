// Package geometry builds the parametric geometry script of a model: points,
// curves, loops and surfaces with consistent tags, plus the physical groups
// that carry material, boundary and load ids through mesh generation.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"feaprep/internal/domain"
	"feaprep/internal/log"
	"feaprep/internal/schema"
)

// builder accumulates one script. It owns the allocator so tags from
// different builds never interact.
type builder struct {
	alloc  *Allocator
	spec   *schema.ModelSpec
	script *Script
	// surfaces holds the surface tag of each model region, by region index
	surfaces []int
}

// Build generates the geometry script for a validated model
func Build(spec *schema.ModelSpec) (*Script, error) {
	if spec == nil {
		return nil, &domain.GenerationError{Reason: "model spec is nil"}
	}

	b := &builder{
		alloc:  NewAllocator(),
		spec:   spec,
		script: newScript(),
	}
	b.script.Name = spec.Name()
	b.script.Description = spec.Description()
	b.script.Family = spec.Geometry().Family()
	b.script.Mesh = spec.Mesh()

	switch g := spec.Geometry().(type) {
	case domain.Rectangle:
		b.bands(g.Length, []float64{0, g.Height})
	case domain.LayeredRectangle:
		regions := spec.Regions()
		ys := make([]float64, 0, len(regions)+1)
		ys = append(ys, regions[0].YMin)
		for _, r := range regions {
			ys = append(ys, r.YMax)
		}
		b.bands(g.Length, ys)
	case domain.LShape:
		b.lshape(g)
	case domain.PlateWithHole:
		b.plateWithHole(g)
	default:
		return nil, &domain.GenerationError{Reason: fmt.Sprintf("unsupported geometry %T", g)}
	}

	if err := b.checkCurves(); err != nil {
		return nil, err
	}
	if err := b.physicalGroups(); err != nil {
		return nil, err
	}

	log.Debugf("geometry %q: %d points, %d curves, %d surfaces, %d groups",
		spec.Name(), len(b.script.Points), len(b.script.Curves), len(b.script.Surfaces), b.script.Groups.Len())
	return b.script, nil
}

func (b *builder) point(x, y float64) int {
	tag := b.alloc.Point()
	b.script.points[tag] = len(b.script.Points)
	b.script.Points = append(b.script.Points, Point{Tag: tag, Pos: r2.Vec{X: x, Y: y}})
	return tag
}

func (b *builder) line(from, to int) int {
	tag := b.alloc.Curve()
	b.script.curves[tag] = len(b.script.Curves)
	b.script.Curves = append(b.script.Curves, Curve{Tag: tag, Kind: LineCurve, Start: from, End: to})
	return tag
}

func (b *builder) arc(from, center, to int) int {
	tag := b.alloc.Curve()
	b.script.curves[tag] = len(b.script.Curves)
	b.script.Curves = append(b.script.Curves, Curve{Tag: tag, Kind: ArcCurve, Start: from, End: to, Center: center})
	return tag
}

func (b *builder) loop(curves ...int) int {
	tag := b.alloc.Loop()
	b.script.loops[tag] = len(b.script.Loops)
	b.script.Loops = append(b.script.Loops, Loop{Tag: tag, Curves: curves})
	return tag
}

func (b *builder) surface(loops ...int) int {
	tag := b.alloc.Surface()
	b.script.Surfaces = append(b.script.Surfaces, Surface{Tag: tag, Loops: loops})
	b.surfaces = append(b.surfaces, tag)
	return tag
}

func (b *builder) locate(loc domain.Location, curves ...int) {
	b.script.Locations[loc] = append(b.script.Locations[loc], curves...)
}

// bands builds a rectangle split at the given ascending y coordinates. Each
// interior interface is a single line shared by the band below (as its top,
// traversed backwards) and the band above (as its bottom).
func (b *builder) bands(length float64, ys []float64) {
	left := make([]int, len(ys))
	right := make([]int, len(ys))
	for i, y := range ys {
		left[i] = b.point(0, y)
		right[i] = b.point(length, y)
	}

	horizontal := make([]int, len(ys))
	horizontal[0] = b.line(left[0], right[0])
	for k := 0; k < len(ys)-1; k++ {
		rightSide := b.line(right[k], right[k+1])
		horizontal[k+1] = b.line(left[k+1], right[k+1])
		leftSide := b.line(left[k+1], left[k])

		b.surface(b.loop(horizontal[k], rightSide, -horizontal[k+1], leftSide))
		b.locate(domain.LocationRight, rightSide)
		b.locate(domain.LocationLeft, leftSide)
	}
	b.locate(domain.LocationBottom, horizontal[0])
	b.locate(domain.LocationTop, horizontal[len(ys)-1])
}

// lshape builds the six-sided section. Both right-facing vertical edges map to
// the right location; the inner horizontal edge belongs to no location.
func (b *builder) lshape(g domain.LShape) {
	inner := g.Height - g.FlangeHeight
	p1 := b.point(0, 0)
	p2 := b.point(g.FlangeWidth, 0)
	p3 := b.point(g.FlangeWidth, inner)
	p4 := b.point(g.Width, inner)
	p5 := b.point(g.Width, g.Height)
	p6 := b.point(0, g.Height)

	l1 := b.line(p1, p2)
	l2 := b.line(p2, p3)
	l3 := b.line(p3, p4)
	l4 := b.line(p4, p5)
	l5 := b.line(p5, p6)
	l6 := b.line(p6, p1)

	b.surface(b.loop(l1, l2, l3, l4, l5, l6))
	b.locate(domain.LocationBottom, l1)
	b.locate(domain.LocationRight, l2, l4)
	b.locate(domain.LocationTop, l5)
	b.locate(domain.LocationLeft, l6)
}

// plateWithHole builds the outer rectangle and a hole made of four quarter
// arcs, giving one surface with two loops
func (b *builder) plateWithHole(g domain.PlateWithHole) {
	p1 := b.point(0, 0)
	p2 := b.point(g.Length, 0)
	p3 := b.point(g.Length, g.Height)
	p4 := b.point(0, g.Height)
	center := b.point(g.HoleX, g.HoleY)
	east := b.point(g.HoleX+g.HoleRadius, g.HoleY)
	north := b.point(g.HoleX, g.HoleY+g.HoleRadius)
	west := b.point(g.HoleX-g.HoleRadius, g.HoleY)
	south := b.point(g.HoleX, g.HoleY-g.HoleRadius)

	bottom := b.line(p1, p2)
	right := b.line(p2, p3)
	top := b.line(p3, p4)
	left := b.line(p4, p1)

	a1 := b.arc(east, center, north)
	a2 := b.arc(north, center, west)
	a3 := b.arc(west, center, south)
	a4 := b.arc(south, center, east)

	outer := b.loop(bottom, right, top, left)
	hole := b.loop(a1, a2, a3, a4)
	b.surface(outer, hole)

	b.locate(domain.LocationBottom, bottom)
	b.locate(domain.LocationRight, right)
	b.locate(domain.LocationTop, top)
	b.locate(domain.LocationLeft, left)
	b.locate(domain.LocationHole, a1, a2, a3, a4)
}

// checkCurves rejects zero-length curves, which gmsh cannot mesh
func (b *builder) checkCurves() error {
	w, h := b.spec.Geometry().Bounds()
	eps := 1e-12 * math.Max(1, math.Max(w, h))
	for _, c := range b.script.Curves {
		if b.script.CurveLength(c) > eps {
			continue
		}
		var loc domain.Location
		for _, l := range domain.Locations {
			for _, tag := range b.script.Locations[l] {
				if tag == c.Tag {
					loc = l
				}
			}
		}
		return &domain.GenerationError{
			Location: loc,
			Reason:   fmt.Sprintf("curve %d has zero length", c.Tag),
		}
	}
	return nil
}

func (b *builder) addGroup(g domain.PhysicalGroup, loc domain.Location) error {
	if !b.alloc.ClaimPhysical(g.ID) || !b.script.Groups.Add(g) {
		return &domain.GenerationError{Location: loc, PhysicalID: g.ID, Reason: "physical id is already in use"}
	}
	return nil
}

// physicalGroups declares one group per material region and one per boundary
// condition and load. An edge group holds every curve at its location.
func (b *builder) physicalGroups() error {
	regions := b.spec.Regions()
	if len(regions) != len(b.surfaces) {
		return &domain.GenerationError{
			Reason: fmt.Sprintf("%d material regions for %d surfaces", len(regions), len(b.surfaces)),
		}
	}
	for i, r := range regions {
		err := b.addGroup(domain.PhysicalGroup{
			ID:       r.PhysicalID,
			Kind:     domain.GroupMaterial,
			Name:     r.Name,
			Entities: []int{b.surfaces[i]},
		}, "")
		if err != nil {
			return err
		}
	}

	edge := func(kind domain.GroupKind, name string, loc domain.Location, id int) error {
		curves := b.script.Locations[loc]
		if len(curves) == 0 {
			return &domain.GenerationError{
				Location:   loc,
				PhysicalID: id,
				Reason:     fmt.Sprintf("location resolves to no curve on %s", b.script.Family),
			}
		}
		return b.addGroup(domain.PhysicalGroup{ID: id, Kind: kind, Name: name, Entities: curves}, loc)
	}
	for _, bc := range b.spec.BoundaryConditions() {
		if err := edge(domain.GroupBoundary, bc.Name, bc.Location, bc.PhysicalID); err != nil {
			return err
		}
	}
	for _, l := range b.spec.Loads() {
		if err := edge(domain.GroupLoad, l.Name, l.Location, l.PhysicalID); err != nil {
			return err
		}
	}
	return nil
}
