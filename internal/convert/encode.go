package convert

import (
	"bytes"
	"fmt"

	"feaprep/internal/domain"
)

// Table file names expected by the solver
const (
	NodesFile     = "nodes.txt"
	ElementsFile  = "eles.txt"
	MaterialsFile = "mater.txt"
	LoadsFile     = "loads.txt"
)

// defaultThickness is written for materials without a declared thickness
// when another material declares one
const defaultThickness = 1.0

// File is one rendered table
type File struct {
	Name string
	Data []byte
}

// Encode renders the tables in the solver's whitespace-separated text format.
// Formatting is fixed so identical tables always encode to identical bytes.
func Encode(t *domain.Tables) []File {
	return []File{
		{Name: NodesFile, Data: encodeNodes(t.Nodes)},
		{Name: ElementsFile, Data: encodeElements(t.Elements)},
		{Name: MaterialsFile, Data: encodeMaterials(t.Materials)},
		{Name: LoadsFile, Data: encodeLoads(t.Loads)},
	}
}

func encodeNodes(nodes []domain.Node) []byte {
	var buf bytes.Buffer
	for _, n := range nodes {
		fmt.Fprintf(&buf, "%d %.6f %.6f %d %d\n", n.ID, n.X, n.Y, n.BCX.Flag(), n.BCY.Flag())
	}
	return buf.Bytes()
}

func encodeElements(elements []domain.Element) []byte {
	var buf bytes.Buffer
	for _, el := range elements {
		fmt.Fprintf(&buf, "%d %d %d", el.ID, el.Type, el.MaterialID)
		for _, n := range el.Nodes {
			fmt.Fprintf(&buf, " %d", n)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// encodeMaterials writes E and nu per row, with a thickness column only when
// at least one material declares a thickness
func encodeMaterials(rows []domain.MaterialRow) []byte {
	withThickness := false
	for _, r := range rows {
		if r.Material.Thickness > 0 {
			withThickness = true
		}
	}

	var buf bytes.Buffer
	for _, r := range rows {
		fmt.Fprintf(&buf, "%.6e %.6e", r.Material.E, r.Material.Nu)
		if withThickness {
			t := r.Material.Thickness
			if t <= 0 {
				t = defaultThickness
			}
			fmt.Fprintf(&buf, " %.6e", t)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func encodeLoads(loads []domain.NodalLoad) []byte {
	var buf bytes.Buffer
	for _, l := range loads {
		fmt.Fprintf(&buf, "%d %.6f %.6f\n", l.NodeID, cleanZero(l.FX), cleanZero(l.FY))
	}
	return buf.Bytes()
}

// cleanZero folds negative zero so it prints as 0.000000
func cleanZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
