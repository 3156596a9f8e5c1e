// Package msh reads and writes the gmsh MSH 2.2 ASCII mesh format. Only the
// sections needed for 2D models are interpreted: $MeshFormat, $Nodes and
// $Elements. Other sections are skipped.
package msh

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"feaprep/internal/domain"
)

// gmsh element type codes
var typeCodes = map[int]domain.ElementType{
	1:  domain.ElemLine,
	2:  domain.ElemTriangle,
	3:  domain.ElemQuad,
	8:  domain.ElemLine3,
	9:  domain.ElemTriangle6,
	15: domain.ElemPoint,
}

func codeOf(t domain.ElementType) (int, bool) {
	for code, et := range typeCodes {
		if et == t {
			return code, true
		}
	}
	return 0, false
}

// UnknownType is the element type assigned to gmsh codes this package does
// not model; conversion rejects them with the code attached
func UnknownType(code int) domain.ElementType {
	return domain.ElementType("gmsh-" + strconv.Itoa(code))
}

// reader tracks line numbers for error messages
type reader struct {
	scanner *bufio.Scanner
	line    int
}

func (r *reader) next() (string, bool) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("msh line %d: %s", r.line, fmt.Sprintf(format, args...))
}

func (r *reader) count() (int, error) {
	text, ok := r.next()
	if !ok {
		return 0, r.errorf("unexpected end of file")
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, r.errorf("invalid record count %q", text)
	}
	return n, nil
}

func (r *reader) expect(marker string) error {
	text, ok := r.next()
	if !ok {
		return r.errorf("unexpected end of file, want %s", marker)
	}
	if text != marker {
		return r.errorf("got %q, want %s", text, marker)
	}
	return nil
}

// Read parses an MSH 2.2 ASCII stream
func Read(in io.Reader) (*domain.RawMesh, error) {
	r := &reader{scanner: bufio.NewScanner(in)}
	r.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	mesh := &domain.RawMesh{}
	sawFormat, sawNodes, sawElements := false, false, false

	for {
		text, ok := r.next()
		if !ok {
			break
		}
		if !strings.HasPrefix(text, "$") {
			return nil, r.errorf("unexpected content %q outside a section", text)
		}
		section := text[1:]

		var err error
		switch section {
		case "MeshFormat":
			err = r.readFormat()
			sawFormat = true
		case "Nodes":
			mesh.Nodes, err = r.readNodes()
			sawNodes = true
		case "Elements":
			mesh.Elements, err = r.readElements()
			sawElements = true
		default:
			err = r.skip(section)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mesh: %w", err)
	}

	switch {
	case !sawFormat:
		return nil, fmt.Errorf("msh: missing $MeshFormat section")
	case !sawNodes:
		return nil, fmt.Errorf("msh: missing $Nodes section")
	case !sawElements:
		return nil, fmt.Errorf("msh: missing $Elements section")
	}
	return mesh, nil
}

func (r *reader) readFormat() error {
	text, ok := r.next()
	if !ok {
		return r.errorf("unexpected end of file in $MeshFormat")
	}
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return r.errorf("malformed format line %q", text)
	}
	if !strings.HasPrefix(fields[0], "2.") {
		return r.errorf("unsupported MSH version %s, want 2.2", fields[0])
	}
	if fields[1] != "0" {
		return r.errorf("binary MSH files are not supported")
	}
	return r.expect("$EndMeshFormat")
}

func (r *reader) readNodes() ([]domain.RawNode, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	nodes := make([]domain.RawNode, 0, n)
	for i := 0; i < n; i++ {
		text, ok := r.next()
		if !ok {
			return nil, r.errorf("unexpected end of file in $Nodes")
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, r.errorf("malformed node %q", text)
		}
		tag, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, r.errorf("invalid node tag %q", fields[0])
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return nil, r.errorf("invalid coordinates in %q", text)
		}
		nodes = append(nodes, domain.RawNode{Tag: tag, X: x, Y: y})
	}
	return nodes, r.expect("$EndNodes")
}

func (r *reader) readElements() ([]domain.RawElement, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	elements := make([]domain.RawElement, 0, n)
	for i := 0; i < n; i++ {
		text, ok := r.next()
		if !ok {
			return nil, r.errorf("unexpected end of file in $Elements")
		}
		fields := strings.Fields(text)
		ints := make([]int, len(fields))
		for j, f := range fields {
			if ints[j], err = strconv.Atoi(f); err != nil {
				return nil, r.errorf("invalid integer %q in element record", f)
			}
		}
		if len(ints) < 3 || len(ints) < 3+ints[2] {
			return nil, r.errorf("malformed element %q", text)
		}

		el := domain.RawElement{Tag: ints[0]}
		code, ntags := ints[1], ints[2]
		if t, known := typeCodes[code]; known {
			el.Type = t
		} else {
			el.Type = UnknownType(code)
		}
		if ntags > 0 {
			el.PhysicalTag = ints[3]
		}
		if ntags > 1 {
			el.EntityTag = ints[4]
		}
		el.Nodes = ints[3+ntags:]
		if want := el.Type.NodeCount(); want > 0 && len(el.Nodes) != want {
			return nil, r.errorf("element %d: %s needs %d nodes, got %d", el.Tag, el.Type, want, len(el.Nodes))
		}
		elements = append(elements, el)
	}
	return elements, r.expect("$EndElements")
}

func (r *reader) skip(section string) error {
	end := "$End" + section
	for {
		text, ok := r.next()
		if !ok {
			return r.errorf("unterminated section $%s", section)
		}
		if text == end {
			return nil
		}
	}
}

// Write renders mesh in MSH 2.2 ASCII. When groups is non-nil a
// $PhysicalNames section is written for them.
func Write(out io.Writer, mesh *domain.RawMesh, groups *domain.GroupTable) error {
	w := bufio.NewWriter(out)

	fmt.Fprint(w, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")

	if groups != nil && groups.Len() > 0 {
		ids := groups.IDs()
		fmt.Fprintf(w, "$PhysicalNames\n%d\n", len(ids))
		for _, id := range ids {
			g, _ := groups.Get(id)
			fmt.Fprintf(w, "%d %d %q\n", g.Kind.Dim(), g.ID, g.Name)
		}
		fmt.Fprint(w, "$EndPhysicalNames\n")
	}

	fmt.Fprintf(w, "$Nodes\n%d\n", len(mesh.Nodes))
	for _, n := range mesh.Nodes {
		fmt.Fprintf(w, "%d %s %s 0\n", n.Tag, formatCoord(n.X), formatCoord(n.Y))
	}
	fmt.Fprint(w, "$EndNodes\n")

	fmt.Fprintf(w, "$Elements\n%d\n", len(mesh.Elements))
	for _, el := range mesh.Elements {
		code, ok := codeOf(el.Type)
		if !ok {
			return fmt.Errorf("msh: element %d has unsupported type %s", el.Tag, el.Type)
		}
		fields := []string{strconv.Itoa(el.Tag), strconv.Itoa(code), "2", strconv.Itoa(el.PhysicalTag), strconv.Itoa(el.EntityTag)}
		for _, n := range el.Nodes {
			fields = append(fields, strconv.Itoa(n))
		}
		fmt.Fprintln(w, strings.Join(fields, " "))
	}
	fmt.Fprint(w, "$EndElements\n")

	return w.Flush()
}

func formatCoord(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Stats summarises element counts per type, for logging
func Stats(mesh *domain.RawMesh) string {
	counts := make(map[domain.ElementType]int)
	for _, el := range mesh.Elements {
		counts[el.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types)+1)
	parts = append(parts, fmt.Sprintf("%d nodes", len(mesh.Nodes)))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%d %s", counts[domain.ElementType(t)], t))
	}
	return strings.Join(parts, ", ")
}
