package geometry

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"feaprep/internal/domain"
)

// DeclaredGroup is a physical group as written in a geometry script. Kind is
// empty for a curve group without a kind marker.
type DeclaredGroup struct {
	ID       int
	Dim      int
	Kind     domain.GroupKind
	Name     string
	Entities []int
}

var physicalPattern = regexp.MustCompile(`^\s*Physical\s+(Surface|Curve|Line)\s*\(\s*"([^"]*)"\s*,\s*(\d+)\s*\)\s*=\s*\{([^}]*)\}\s*;\s*(?://\s*(\w+))?`)

// ParsePhysicalGroups reads the physical group declarations of a .geo script
// in declaration order. Both Curve and the older Line keyword are accepted.
// Surface groups are materials; curve groups take their kind from the
// trailing "// boundary" or "// load" marker written by Render.
func ParsePhysicalGroups(text string) ([]DeclaredGroup, error) {
	var groups []DeclaredGroup
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		m := physicalPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}

		id, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid physical id %q", lineNo, m[3])
		}
		g := DeclaredGroup{ID: id, Dim: 1, Name: m[2]}
		switch kind := domain.GroupKind(m[5]); {
		case m[1] == "Surface":
			g.Dim = 2
			g.Kind = domain.GroupMaterial
		case kind == domain.GroupBoundary || kind == domain.GroupLoad:
			g.Kind = kind
		}
		for _, field := range strings.Split(m[4], ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			tag, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid entity tag %q", lineNo, field)
			}
			g.Entities = append(g.Entities, tag)
		}
		groups = append(groups, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return groups, nil
}
