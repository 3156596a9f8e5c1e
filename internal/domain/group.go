package domain

import "sort"

// GroupKind classifies a physical group
type GroupKind string

const (
	GroupMaterial GroupKind = "material"
	GroupBoundary GroupKind = "boundary"
	GroupLoad     GroupKind = "load"
)

// Dim returns the topological dimension of the entities a group of this kind holds
func (k GroupKind) Dim() int {
	if k == GroupMaterial {
		return 2
	}
	return 1
}

// PhysicalGroup is a named, ided set of geometric entities
type PhysicalGroup struct {
	ID       int
	Kind     GroupKind
	Name     string
	Entities []int
}

// GroupTable holds the physical groups of one geometry script, indexed by id
type GroupTable struct {
	groups map[int]PhysicalGroup
	order  []int
}

// NewGroupTable creates an empty group table
func NewGroupTable() *GroupTable {
	return &GroupTable{groups: make(map[int]PhysicalGroup)}
}

// Add registers a group. It reports false when the id is already taken.
func (t *GroupTable) Add(g PhysicalGroup) bool {
	if _, exists := t.groups[g.ID]; exists {
		return false
	}
	g.Entities = append([]int(nil), g.Entities...)
	t.groups[g.ID] = g
	t.order = append(t.order, g.ID)
	return true
}

// Get returns the group with the given id
func (t *GroupTable) Get(id int) (PhysicalGroup, bool) {
	g, ok := t.groups[id]
	return g, ok
}

// Len returns the number of groups
func (t *GroupTable) Len() int {
	return len(t.order)
}

// All returns the groups in insertion order
func (t *GroupTable) All() []PhysicalGroup {
	out := make([]PhysicalGroup, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.groups[id])
	}
	return out
}

// OfKind returns the groups of one kind in insertion order
func (t *GroupTable) OfKind(kind GroupKind) []PhysicalGroup {
	var out []PhysicalGroup
	for _, id := range t.order {
		if g := t.groups[id]; g.Kind == kind {
			out = append(out, g)
		}
	}
	return out
}

// IDs returns every group id in ascending order
func (t *GroupTable) IDs() []int {
	ids := append([]int(nil), t.order...)
	sort.Ints(ids)
	return ids
}
