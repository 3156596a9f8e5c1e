// Package convert turns a raw mesh and the physical groups it was generated
// from into the four solver tables: nodes, elements, materials and loads.
package convert

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"feaprep/internal/domain"
	"feaprep/internal/log"
	"feaprep/internal/schema"
)

// mergeConstraint combines two constraint states on one axis; fixed wins so
// a node shared by several groups keeps every restraint
func mergeConstraint(a, b domain.Constraint) domain.Constraint {
	if a == domain.Fixed || b == domain.Fixed {
		return domain.Fixed
	}
	return domain.Free
}

// converter carries the state of one conversion
type converter struct {
	raw    *domain.RawMesh
	groups *domain.GroupTable
	spec   *schema.ModelSpec

	issues []domain.ConversionIssue
	// ids maps raw node tags to contiguous node ids
	ids map[int]int
	// edges holds the edge elements of each boundary and load group, in raw order
	edges map[int][]domain.RawElement
}

func (c *converter) issue(i domain.ConversionIssue) {
	c.issues = append(c.issues, i)
}

// Convert builds the solver tables. Every inconsistency between the mesh and
// the groups is collected into a single *domain.ConversionError.
func Convert(raw *domain.RawMesh, groups *domain.GroupTable, spec *schema.ModelSpec) (*domain.Tables, error) {
	if raw == nil || groups == nil || spec == nil {
		return nil, fmt.Errorf("convert: mesh, groups and spec are required")
	}
	c := &converter{
		raw:    raw,
		groups: groups,
		spec:   spec,
		ids:    make(map[int]int),
		edges:  make(map[int][]domain.RawElement),
	}

	c.checkGroups()
	areas := c.classify()
	tables := &domain.Tables{}
	tables.Nodes = c.nodes()
	tables.Materials = c.materials()
	if len(c.issues) > 0 {
		return nil, &domain.ConversionError{Issues: c.issues}
	}

	tables.Elements = c.elements(areas, tables.Materials)
	c.constrain(tables.Nodes)
	tables.Loads = c.loads(tables.Nodes)
	if len(c.issues) > 0 {
		return nil, &domain.ConversionError{Issues: c.issues}
	}

	s := tables.Summary()
	log.Debugf("converted %q: %d nodes, %d elements, %d materials, %d loads",
		spec.Name(), s.Nodes, s.Elements, s.Materials, s.Loads)
	return tables, nil
}

// checkGroups reports declared groups that no raw element carries
func (c *converter) checkGroups() {
	present := c.raw.PhysicalTags()
	for _, id := range c.groups.IDs() {
		if !present[id] {
			c.issue(domain.ConversionIssue{GroupID: id, Reason: "declared physical group has no elements in the mesh"})
		}
	}
}

// classify sorts raw elements into area elements and group edges, reporting
// records that fit neither or whose node count does not match their type.
// Point elements are ignored.
func (c *converter) classify() []domain.RawElement {
	var areas []domain.RawElement
	for _, el := range c.raw.Elements {
		dim := el.Type.Dim()
		if dim == 0 {
			continue
		}
		if dim < 0 {
			c.issue(domain.ConversionIssue{GroupID: el.PhysicalTag, ElementTag: el.Tag, Reason: fmt.Sprintf("unsupported element type %s", el.Type)})
			continue
		}
		if want := el.Type.NodeCount(); len(el.Nodes) != want {
			c.issue(domain.ConversionIssue{
				GroupID:    el.PhysicalTag,
				ElementTag: el.Tag,
				Reason:     fmt.Sprintf("element has %d nodes, %s needs %d", len(el.Nodes), el.Type, want),
			})
			continue
		}
		g, ok := c.groups.Get(el.PhysicalTag)
		if !ok {
			c.issue(domain.ConversionIssue{GroupID: el.PhysicalTag, ElementTag: el.Tag, Reason: "element carries an undeclared physical tag"})
			continue
		}
		if g.Kind.Dim() != dim {
			c.issue(domain.ConversionIssue{
				GroupID:    g.ID,
				ElementTag: el.Tag,
				Reason:     fmt.Sprintf("%s element in %s group", el.Type, g.Kind),
			})
			continue
		}
		if dim == 2 {
			areas = append(areas, el)
		} else {
			c.edges[g.ID] = append(c.edges[g.ID], el)
		}
	}
	return areas
}

// nodes renumbers the nodes referenced by any kept element, in raw order
func (c *converter) nodes() []domain.Node {
	known := make(map[int]bool, len(c.raw.Nodes))
	for _, n := range c.raw.Nodes {
		if known[n.Tag] {
			c.issue(domain.ConversionIssue{NodeTag: n.Tag, Reason: "duplicate node tag"})
		}
		known[n.Tag] = true
	}

	referenced := make(map[int]bool)
	for _, el := range c.raw.Elements {
		if el.Type.Dim() <= 0 {
			continue
		}
		for _, tag := range el.Nodes {
			if !known[tag] {
				c.issue(domain.ConversionIssue{ElementTag: el.Tag, NodeTag: tag, Reason: "element references a node missing from the node block"})
				continue
			}
			referenced[tag] = true
		}
	}

	nodes := make([]domain.Node, 0, len(referenced))
	for _, n := range c.raw.Nodes {
		if !referenced[n.Tag] {
			continue
		}
		if _, seen := c.ids[n.Tag]; seen {
			continue
		}
		id := len(nodes)
		c.ids[n.Tag] = id
		nodes = append(nodes, domain.Node{ID: id, X: n.X, Y: n.Y, BCX: domain.Free, BCY: domain.Free})
	}
	if dropped := len(c.raw.Nodes) - len(nodes); dropped > 0 {
		log.Debugf("dropped %d nodes not referenced by any element", dropped)
	}
	return nodes
}

// materials lists the regions ordered by physical id
func (c *converter) materials() []domain.MaterialRow {
	regions := c.spec.Regions()
	sort.Slice(regions, func(i, j int) bool { return regions[i].PhysicalID < regions[j].PhysicalID })

	rows := make([]domain.MaterialRow, 0, len(regions))
	for i, r := range regions {
		if g, ok := c.groups.Get(r.PhysicalID); !ok || g.Kind != domain.GroupMaterial {
			c.issue(domain.ConversionIssue{GroupID: r.PhysicalID, Reason: "material region has no material group"})
		}
		rows = append(rows, domain.MaterialRow{ID: i, PhysicalID: r.PhysicalID, Name: r.Name, Material: r.Material})
	}
	return rows
}

func (c *converter) elements(areas []domain.RawElement, materials []domain.MaterialRow) []domain.Element {
	index := make(map[int]int, len(materials))
	for _, m := range materials {
		index[m.PhysicalID] = m.ID
	}

	elements := make([]domain.Element, 0, len(areas))
	for _, el := range areas {
		solverType, ok := el.Type.SolverType()
		if !ok {
			c.issue(domain.ConversionIssue{ElementTag: el.Tag, Reason: fmt.Sprintf("unsupported element type %s", el.Type)})
			continue
		}
		mat, ok := index[el.PhysicalTag]
		if !ok {
			c.issue(domain.ConversionIssue{GroupID: el.PhysicalTag, ElementTag: el.Tag, Reason: "material group has no material row"})
			continue
		}
		nodes := make([]int, len(el.Nodes))
		for i, tag := range el.Nodes {
			nodes[i] = c.ids[tag]
		}
		elements = append(elements, domain.Element{
			ID:         len(elements),
			Type:       solverType,
			MaterialID: mat,
			Nodes:      nodes,
		})
	}
	return elements
}

// constrain applies every boundary condition to the nodes of its edges
func (c *converter) constrain(nodes []domain.Node) {
	for _, bc := range c.spec.BoundaryConditions() {
		for _, el := range c.edges[bc.PhysicalID] {
			for _, tag := range el.Nodes {
				n := &nodes[c.ids[tag]]
				n.BCX = mergeConstraint(n.BCX, bc.X)
				n.BCY = mergeConstraint(n.BCY, bc.Y)
			}
		}
	}
}

// loads distributes every load over the nodes of its edges. Each load adds
// one record per node; records of different loads on one node are kept apart.
func (c *converter) loads(nodes []domain.Node) []domain.NodalLoad {
	var records []domain.NodalLoad
	for _, load := range c.spec.Loads() {
		edges := c.edges[load.PhysicalID]
		if len(edges) == 0 {
			continue
		}

		var weights map[int]float64
		switch load.Distribution {
		case domain.DistributionLengthWeighted:
			weights = c.lengthWeights(edges, nodes)
		default:
			weights = uniformWeights(edges, c.ids)
		}
		if weights == nil {
			c.issue(domain.ConversionIssue{GroupID: load.PhysicalID, Reason: "load edges have zero total length"})
			continue
		}

		ids := make([]int, 0, len(weights))
		for id := range weights {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			w := weights[id]
			records = append(records, domain.NodalLoad{NodeID: id, FX: load.Force.X * w, FY: load.Force.Y * w})
		}
	}
	return records
}

// uniformWeights splits the total equally over the distinct edge nodes
func uniformWeights(edges []domain.RawElement, ids map[int]int) map[int]float64 {
	unique := make(map[int]bool)
	for _, el := range edges {
		for _, tag := range el.Nodes {
			unique[ids[tag]] = true
		}
	}
	weights := make(map[int]float64, len(unique))
	for id := range unique {
		weights[id] = 1 / float64(len(unique))
	}
	return weights
}

// lengthWeights gives each edge a share proportional to its length, split
// over its nodes with the consistent weights of a constant traction:
// 1/2, 1/2 for a line and 1/6, 1/6, 2/3 (ends, middle) for a line3
func (c *converter) lengthWeights(edges []domain.RawElement, nodes []domain.Node) map[int]float64 {
	lengths := make([]float64, len(edges))
	for i, el := range edges {
		a := nodes[c.ids[el.Nodes[0]]]
		b := nodes[c.ids[el.Nodes[1]]]
		lengths[i] = r2.Norm(r2.Sub(r2.Vec{X: b.X, Y: b.Y}, r2.Vec{X: a.X, Y: a.Y}))
	}
	total := floats.Sum(lengths)
	if total <= 0 {
		return nil
	}

	weights := make(map[int]float64)
	for i, el := range edges {
		share := lengths[i] / total
		switch el.Type {
		case domain.ElemLine3:
			weights[c.ids[el.Nodes[0]]] += share / 6
			weights[c.ids[el.Nodes[1]]] += share / 6
			weights[c.ids[el.Nodes[2]]] += share * 2 / 3
		default:
			weights[c.ids[el.Nodes[0]]] += share / 2
			weights[c.ids[el.Nodes[1]]] += share / 2
		}
	}
	return weights
}
