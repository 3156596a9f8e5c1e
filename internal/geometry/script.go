package geometry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"feaprep/internal/domain"
)

// CurveKind distinguishes straight lines from circle arcs
type CurveKind int

const (
	LineCurve CurveKind = iota
	ArcCurve
)

// Point is a tagged geometric point
type Point struct {
	Tag int
	Pos r2.Vec
}

// Curve is a tagged line or circle arc. Arcs are always less than half a
// circle and are drawn from Start around Center to End.
type Curve struct {
	Tag    int
	Kind   CurveKind
	Start  int
	End    int
	Center int
}

// Loop is a closed chain of curves; a negative entry traverses that curve
// from End to Start
type Loop struct {
	Tag    int
	Curves []int
}

// Surface is a plane surface bounded by an outer loop and optional hole loops
type Surface struct {
	Tag   int
	Loops []int
}

// Script is a complete geometry description with physical groups and mesh
// options, ready to be rendered to the gmsh .geo format
type Script struct {
	Name        string
	Description string
	Family      domain.Family
	Mesh        domain.MeshParams

	Points   []Point
	Curves   []Curve
	Loops    []Loop
	Surfaces []Surface

	// Groups holds every physical group; material groups contain surface
	// tags, boundary and load groups contain curve tags
	Groups *domain.GroupTable
	// Locations maps each symbolic edge location to the curves lying on it
	Locations map[domain.Location][]int

	points map[int]int
	curves map[int]int
	loops  map[int]int
}

func newScript() *Script {
	return &Script{
		Groups:    domain.NewGroupTable(),
		Locations: make(map[domain.Location][]int),
		points:    make(map[int]int),
		curves:    make(map[int]int),
		loops:     make(map[int]int),
	}
}

// Point looks up a point by tag
func (s *Script) Point(tag int) (Point, bool) {
	i, ok := s.points[tag]
	if !ok {
		return Point{}, false
	}
	return s.Points[i], true
}

// Curve looks up a curve by tag
func (s *Script) Curve(tag int) (Curve, bool) {
	i, ok := s.curves[tag]
	if !ok {
		return Curve{}, false
	}
	return s.Curves[i], true
}

// Loop looks up a curve loop by tag
func (s *Script) Loop(tag int) (Loop, bool) {
	i, ok := s.loops[tag]
	if !ok {
		return Loop{}, false
	}
	return s.Loops[i], true
}

// CurveLength returns the length of a curve
func (s *Script) CurveLength(c Curve) float64 {
	a, _ := s.Point(c.Start)
	b, _ := s.Point(c.End)
	if c.Kind == LineCurve {
		return r2.Norm(r2.Sub(b.Pos, a.Pos))
	}
	center, _ := s.Point(c.Center)
	ra := r2.Sub(a.Pos, center.Pos)
	rb := r2.Sub(b.Pos, center.Pos)
	angle := math.Abs(math.Atan2(ra.X*rb.Y-ra.Y*rb.X, ra.X*rb.X+ra.Y*rb.Y))
	return r2.Norm(ra) * angle
}

// LoopPolygon returns the corner points of a loop made only of lines, in
// traversal order
func (s *Script) LoopPolygon(tag int) ([]r2.Vec, error) {
	loop, ok := s.Loop(tag)
	if !ok {
		return nil, fmt.Errorf("unknown curve loop %d", tag)
	}
	poly := make([]r2.Vec, 0, len(loop.Curves))
	for _, signed := range loop.Curves {
		c, ok := s.Curve(absInt(signed))
		if !ok {
			return nil, fmt.Errorf("curve loop %d references unknown curve %d", tag, signed)
		}
		if c.Kind != LineCurve {
			return nil, fmt.Errorf("curve loop %d contains arc %d", tag, c.Tag)
		}
		from := c.Start
		if signed < 0 {
			from = c.End
		}
		p, _ := s.Point(from)
		poly = append(poly, p.Pos)
	}
	return poly, nil
}

// HasArcs reports whether any curve is a circle arc
func (s *Script) HasArcs() bool {
	for _, c := range s.Curves {
		if c.Kind == ArcCurve {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// quoteName wraps a group name in a gmsh string literal. Names are checked
// during validation to hold no quotes, backslashes or line breaks.
func quoteName(name string) string {
	return `"` + name + `"`
}

// Render produces the .geo text. Output depends only on the script content.
func (s *Script) Render() string {
	var sb strings.Builder
	size := formatFloat(s.Mesh.Size)

	fmt.Fprintf(&sb, "// Model: %s\n", s.Name)
	if s.Description != "" {
		for _, line := range strings.Split(s.Description, "\n") {
			fmt.Fprintf(&sb, "// %s\n", line)
		}
	}
	fmt.Fprintf(&sb, "// Geometry: %s\n", s.Family)
	fmt.Fprintf(&sb, "// Mesh: %s\n\n", s.Mesh)

	sb.WriteString("// Points\n")
	for _, p := range s.Points {
		fmt.Fprintf(&sb, "Point(%d) = {%s, %s, 0, %s};\n", p.Tag, formatFloat(p.Pos.X), formatFloat(p.Pos.Y), size)
	}

	sb.WriteString("\n// Curves\n")
	for _, c := range s.Curves {
		switch c.Kind {
		case LineCurve:
			fmt.Fprintf(&sb, "Line(%d) = {%d, %d};\n", c.Tag, c.Start, c.End)
		case ArcCurve:
			fmt.Fprintf(&sb, "Circle(%d) = {%d, %d, %d};\n", c.Tag, c.Start, c.Center, c.End)
		}
	}

	sb.WriteString("\n// Surfaces\n")
	for _, l := range s.Loops {
		fmt.Fprintf(&sb, "Curve Loop(%d) = {%s};\n", l.Tag, joinInts(l.Curves))
	}
	for _, sf := range s.Surfaces {
		fmt.Fprintf(&sb, "Plane Surface(%d) = {%s};\n", sf.Tag, joinInts(sf.Loops))
	}

	sections := []struct {
		kind    domain.GroupKind
		title   string
		keyword string
	}{
		{domain.GroupMaterial, "Materials", "Physical Surface"},
		{domain.GroupBoundary, "Boundary conditions", "Physical Curve"},
		{domain.GroupLoad, "Loads", "Physical Curve"},
	}
	for _, sec := range sections {
		groups := s.Groups.OfKind(sec.kind)
		if len(groups) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n// %s\n", sec.title)
		for _, g := range groups {
			entities := append([]int(nil), g.Entities...)
			sort.Ints(entities)
			fmt.Fprintf(&sb, "%s(%s, %d) = {%s}; // %s\n", sec.keyword, quoteName(g.Name), g.ID, joinInts(entities), g.Kind)
		}
	}

	sb.WriteString("\n// Mesh options\n")
	if s.Mesh.Algorithm != 0 {
		fmt.Fprintf(&sb, "Mesh.Algorithm = %d;\n", s.Mesh.Algorithm)
	}
	switch s.Mesh.ElementFamily {
	case domain.ElementQuad:
		sb.WriteString("Mesh.RecombineAll = 1;\n")
	case domain.ElementTriangle6:
		sb.WriteString("Mesh.ElementOrder = 2;\n")
	}
	sb.WriteString("Mesh.MshFileVersion = 2.2;\n")

	return sb.String()
}
