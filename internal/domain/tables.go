package domain

// Node is a renumbered node with per-axis constraint state
type Node struct {
	ID  int
	X   float64
	Y   float64
	BCX Constraint
	BCY Constraint
}

// Element is a structural (area) element of the normalized model
type Element struct {
	ID         int
	Type       int // solver element type tag
	MaterialID int
	Nodes      []int
}

// MaterialRow is one row of the material table
type MaterialRow struct {
	ID         int // contiguous material index
	PhysicalID int
	Name       string
	Material   Material
}

// NodalLoad is a force contribution on one node. Several records may target the
// same node; the solver sums them.
type NodalLoad struct {
	NodeID int
	FX     float64
	FY     float64
}

// Tables is the terminal artifact of the pipeline
type Tables struct {
	Nodes     []Node
	Elements  []Element
	Materials []MaterialRow
	Loads     []NodalLoad
}

// Summary holds table sizes for logging and the run catalog
type Summary struct {
	Nodes     int `json:"nodes"`
	Elements  int `json:"elements"`
	Materials int `json:"materials"`
	Loads     int `json:"loads"`
}

// Summary returns the table sizes
func (t *Tables) Summary() Summary {
	return Summary{
		Nodes:     len(t.Nodes),
		Elements:  len(t.Elements),
		Materials: len(t.Materials),
		Loads:     len(t.Loads),
	}
}
