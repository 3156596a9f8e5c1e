package adapter

import "time"

// GmshOption is a functional option for configuring GmshAdapter
type GmshOption func(*GmshAdapter)

// WithBinary sets the gmsh executable; an empty value keeps discovery
func WithBinary(path string) GmshOption {
	return func(g *GmshAdapter) {
		g.binary = path
	}
}

// WithTimeout bounds a single gmsh invocation
func WithTimeout(d time.Duration) GmshOption {
	return func(g *GmshAdapter) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithWorkDir sets the parent of the per-run scratch directories
func WithWorkDir(dir string) GmshOption {
	return func(g *GmshAdapter) {
		g.workDir = dir
	}
}

// WithKeepFiles leaves the scratch directory in place for debugging
func WithKeepFiles(keep bool) GmshOption {
	return func(g *GmshAdapter) {
		g.keepFiles = keep
	}
}
