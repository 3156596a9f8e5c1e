// Package adapter wraps the mesh generators feaprep can drive.
//
// A Generator takes a geometry script and returns the raw discretization
// together with the MSH text it was read from.
//
// # Generators
//
// GmshAdapter runs the external gmsh binary in a scratch directory, bounded
// by a timeout. The whole process group is killed on cancellation so no
// orphaned mesher outlives the request. A non-zero exit, a timeout or a
// missing output file is reported as a *domain.ExternalToolError and never
// retried, since gmsh is deterministic for a given script.
//
// StructuredMesher discretizes scripts whose boundaries are axis-aligned
// lines (rectangles, layered rectangles and L-shapes) on a tensor-product
// grid in-process. It needs no external tool and produces the same raw mesh
// shape gmsh does, including duplicated edge elements for curves that belong
// to several physical groups.
//
// # Registry
//
// Registry maps generator names to instances so the command surface can pick
// one by name.
package adapter
