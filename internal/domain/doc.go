// Package domain defines the core value types of the feaprep preprocessing pipeline.
//
// This package contains the vocabulary shared by every stage: geometry families,
// materials, boundary conditions, loads, physical groups, the raw mesh produced by
// the external generator and the normalized tables handed to the solver.
//
// # Geometry Families
//
// Geometry is a closed set of variants (Rectangle, LayeredRectangle, LShape,
// PlateWithHole). Downstream code dispatches on Family(), never on field inspection.
//
// # Physical Groups
//
// PhysicalGroup ties a named id to a set of geometric entities. Material,
// boundary and load groups share a single id namespace.
//
// # Raw Mesh and Tables
//
// RawMesh is the transient output of the mesh generator: node coordinates plus
// element records tagged with the physical id they discretize. Tables is the
// terminal artifact: nodes with per-axis constraint flags, elements with material
// ids, materials and nodal loads.
//
// # Errors
//
// ValidationError, GenerationError, ExternalToolError and ConversionError make up
// the error taxonomy; callers match them with errors.As.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No database or external dependencies
// - Closed enumerations with explicit Valid checks
package domain
