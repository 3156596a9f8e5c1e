package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"feaprep/internal/domain"
	"feaprep/internal/geometry"
	"feaprep/internal/msh"
)

const structuredTool = "structured"

// StructuredMesher meshes axis-aligned scripts on a tensor-product grid. Grid
// lines pass through every geometry point, so each straight curve is a run of
// grid edges and each cell lies entirely inside one surface or outside all.
type StructuredMesher struct{}

// NewStructuredMesher creates a new in-process mesher
func NewStructuredMesher() *StructuredMesher {
	return &StructuredMesher{}
}

// Name returns the generator identifier
func (m *StructuredMesher) Name() string {
	return structuredTool
}

// lattice is the grid of candidate node positions. With second-order
// elements every cell edge gets a mid-edge lattice line.
type lattice struct {
	xs, ys []float64
	xi, yi map[float64]int
	order  int
}

func (l *lattice) index(ix, iy int) int {
	return iy*len(l.xs) + ix
}

// Generate discretizes the script
func (m *StructuredMesher) Generate(ctx context.Context, script *geometry.Script) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if script.HasArcs() {
		return nil, &domain.ExternalToolError{
			Tool: structuredTool,
			Err:  errors.New("curved boundaries are not supported; use gmsh"),
		}
	}
	if script.Mesh.Size <= 0 {
		return nil, &domain.ExternalToolError{Tool: structuredTool, Err: errors.New("mesh size must be positive")}
	}

	order := 1
	if script.Mesh.ElementFamily == domain.ElementTriangle6 {
		order = 2
	}

	var px, py []float64
	for _, p := range script.Points {
		px = append(px, p.Pos.X)
		py = append(py, p.Pos.Y)
	}
	lat := &lattice{
		xs:    subdivide(px, script.Mesh.Size, order),
		ys:    subdivide(py, script.Mesh.Size, order),
		order: order,
	}
	lat.xi = indexOf(lat.xs)
	lat.yi = indexOf(lat.ys)

	materials, err := surfaceMaterials(script)
	if err != nil {
		return nil, err
	}

	b := &meshBuilder{lat: lat, tags: make(map[int]int)}
	if err := b.edges(script); err != nil {
		return nil, err
	}
	b.cells(script.Mesh.ElementFamily, materials)

	mesh := b.finish()

	var buf bytes.Buffer
	if err := msh.Write(&buf, mesh, script.Groups); err != nil {
		return nil, err
	}
	return &Output{Mesh: mesh, MSH: buf.Bytes(), Tool: structuredTool}, nil
}

// subdivide returns the sorted grid coordinates: every distinct breakpoint,
// intervals split so no cell exceeds size, plus mid-edge lines for order 2
func subdivide(breaks []float64, size float64, order int) []float64 {
	sorted := append([]float64(nil), breaks...)
	sort.Float64s(sorted)
	var unique []float64
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}

	coarse := []float64{unique[0]}
	for i := 1; i < len(unique); i++ {
		a, b := unique[i-1], unique[i]
		n := int(math.Max(1, math.Ceil((b-a)/size-1e-9)))
		for k := 1; k < n; k++ {
			coarse = append(coarse, a+(b-a)*float64(k)/float64(n))
		}
		coarse = append(coarse, b)
	}
	if order == 1 {
		return coarse
	}

	fine := make([]float64, 0, 2*len(coarse)-1)
	for i, v := range coarse {
		if i > 0 {
			fine = append(fine, (coarse[i-1]+v)/2)
		}
		fine = append(fine, v)
	}
	return fine
}

func indexOf(values []float64) map[float64]int {
	idx := make(map[float64]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}

// region is a surface outline with the material group meshed into it
type region struct {
	surface  int
	material int
	outline  []r2.Vec
}

func surfaceMaterials(script *geometry.Script) ([]region, error) {
	owner := make(map[int]int)
	for _, g := range script.Groups.OfKind(domain.GroupMaterial) {
		for _, s := range g.Entities {
			if _, taken := owner[s]; !taken {
				owner[s] = g.ID
			}
		}
	}

	var regions []region
	for _, s := range script.Surfaces {
		if len(s.Loops) != 1 {
			return nil, &domain.ExternalToolError{
				Tool: structuredTool,
				Err:  fmt.Errorf("surface %d has holes", s.Tag),
			}
		}
		outline, err := script.LoopPolygon(s.Loops[0])
		if err != nil {
			return nil, &domain.ExternalToolError{Tool: structuredTool, Err: err}
		}
		id, ok := owner[s.Tag]
		if !ok {
			continue
		}
		regions = append(regions, region{surface: s.Tag, material: id, outline: outline})
	}
	return regions, nil
}

// contains is the even-odd ray casting test; p never lies on an edge because
// cell centres are off every grid line
func contains(poly []r2.Vec, p r2.Vec) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

type pendingElement struct {
	typ      domain.ElementType
	physical int
	entity   int
	lattice  []int
}

type meshBuilder struct {
	lat      *lattice
	elements []pendingElement
	// tags maps used lattice indices to node tags, filled by finish
	tags map[int]int
}

// edges emits one edge element per grid edge of every curve, once for each
// boundary or load group holding that curve
func (b *meshBuilder) edges(script *geometry.Script) error {
	lineType := domain.ElemLine
	if b.lat.order == 2 {
		lineType = domain.ElemLine3
	}

	for _, g := range script.Groups.All() {
		if g.Kind == domain.GroupMaterial {
			continue
		}
		for _, tag := range g.Entities {
			c, ok := script.Curve(tag)
			if !ok {
				return &domain.ExternalToolError{Tool: structuredTool, Err: fmt.Errorf("group %d references unknown curve %d", g.ID, tag)}
			}
			run, err := b.curveRun(script, c)
			if err != nil {
				return err
			}
			for k := 0; k+b.lat.order < len(run); k += b.lat.order {
				nodes := []int{run[k], run[k+b.lat.order]}
				if b.lat.order == 2 {
					nodes = append(nodes, run[k+1])
				}
				b.elements = append(b.elements, pendingElement{typ: lineType, physical: g.ID, entity: c.Tag, lattice: nodes})
			}
		}
	}
	return nil
}

// curveRun returns the lattice indices along a straight axis-aligned curve in
// its own direction
func (b *meshBuilder) curveRun(script *geometry.Script, c geometry.Curve) ([]int, error) {
	start, _ := script.Point(c.Start)
	end, _ := script.Point(c.End)
	lat := b.lat

	var run []int
	switch {
	case start.Pos.Y == end.Pos.Y:
		iy := lat.yi[start.Pos.Y]
		from, to := lat.xi[start.Pos.X], lat.xi[end.Pos.X]
		step := 1
		if to < from {
			step = -1
		}
		for ix := from; ; ix += step {
			run = append(run, lat.index(ix, iy))
			if ix == to {
				break
			}
		}
	case start.Pos.X == end.Pos.X:
		ix := lat.xi[start.Pos.X]
		from, to := lat.yi[start.Pos.Y], lat.yi[end.Pos.Y]
		step := 1
		if to < from {
			step = -1
		}
		for iy := from; ; iy += step {
			run = append(run, lat.index(ix, iy))
			if iy == to {
				break
			}
		}
	default:
		return nil, &domain.ExternalToolError{
			Tool: structuredTool,
			Err:  fmt.Errorf("curve %d is not axis-aligned", c.Tag),
		}
	}
	return run, nil
}

// cells emits the area elements of every grid cell inside a material region
func (b *meshBuilder) cells(family domain.ElementFamily, regions []region) {
	lat := b.lat
	o := lat.order
	for j := 0; j+o < len(lat.ys); j += o {
		for i := 0; i+o < len(lat.xs); i += o {
			centre := r2.Vec{X: (lat.xs[i] + lat.xs[i+o]) / 2, Y: (lat.ys[j] + lat.ys[j+o]) / 2}
			var owner *region
			for k := range regions {
				if contains(regions[k].outline, centre) {
					owner = &regions[k]
					break
				}
			}
			if owner == nil {
				continue
			}

			at := func(di, dj int) int { return lat.index(i+di, j+dj) }
			add := func(t domain.ElementType, nodes ...int) {
				b.elements = append(b.elements, pendingElement{typ: t, physical: owner.material, entity: owner.surface, lattice: nodes})
			}
			switch family {
			case domain.ElementQuad:
				add(domain.ElemQuad, at(0, 0), at(1, 0), at(1, 1), at(0, 1))
			case domain.ElementTriangle6:
				add(domain.ElemTriangle6, at(0, 0), at(2, 0), at(2, 2), at(1, 0), at(2, 1), at(1, 1))
				add(domain.ElemTriangle6, at(0, 0), at(2, 2), at(0, 2), at(1, 1), at(1, 2), at(0, 1))
			default:
				add(domain.ElemTriangle, at(0, 0), at(1, 0), at(1, 1))
				add(domain.ElemTriangle, at(0, 0), at(1, 1), at(0, 1))
			}
		}
	}
}

// finish numbers the used lattice points in grid order and resolves the
// pending elements to node tags
func (b *meshBuilder) finish() *domain.RawMesh {
	used := make(map[int]bool)
	for _, el := range b.elements {
		for _, n := range el.lattice {
			used[n] = true
		}
	}
	indices := make([]int, 0, len(used))
	for n := range used {
		indices = append(indices, n)
	}
	sort.Ints(indices)

	mesh := &domain.RawMesh{Nodes: make([]domain.RawNode, 0, len(indices))}
	nx := len(b.lat.xs)
	for i, n := range indices {
		tag := i + 1
		b.tags[n] = tag
		mesh.Nodes = append(mesh.Nodes, domain.RawNode{Tag: tag, X: b.lat.xs[n%nx], Y: b.lat.ys[n/nx]})
	}

	mesh.Elements = make([]domain.RawElement, 0, len(b.elements))
	for i, el := range b.elements {
		nodes := make([]int, len(el.lattice))
		for k, n := range el.lattice {
			nodes[k] = b.tags[n]
		}
		mesh.Elements = append(mesh.Elements, domain.RawElement{
			Tag:         i + 1,
			Type:        el.typ,
			PhysicalTag: el.physical,
			EntityTag:   el.entity,
			Nodes:       nodes,
		})
	}
	return mesh
}
