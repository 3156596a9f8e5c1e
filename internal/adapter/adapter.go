package adapter

import (
	"context"

	"feaprep/internal/domain"
	"feaprep/internal/geometry"
)

// Output is the result of one mesh generation
type Output struct {
	// Mesh is the parsed discretization
	Mesh *domain.RawMesh
	// MSH is the mesh in MSH 2.2 ASCII, as published next to the tables
	MSH []byte
	// Tool identifies the generator and its version for the run catalog
	Tool string
}

// Generator defines the interface for mesh generators
type Generator interface {
	// Name returns the unique identifier for this generator
	Name() string

	// Generate discretizes a geometry script. Implementations must honour
	// cancellation of ctx.
	Generate(ctx context.Context, script *geometry.Script) (*Output, error)
}
