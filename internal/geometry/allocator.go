package geometry

// Allocator hands out entity tags for one script. Every entity kind has its
// own strictly increasing sequence starting at 1, and physical ids may be
// claimed only once. An Allocator is never shared between builds.
type Allocator struct {
	points   int
	curves   int
	loops    int
	surfaces int
	physical map[int]bool
}

// NewAllocator creates an allocator with every sequence at zero
func NewAllocator() *Allocator {
	return &Allocator{physical: make(map[int]bool)}
}

// Point returns the next point tag
func (a *Allocator) Point() int {
	a.points++
	return a.points
}

// Curve returns the next curve tag; lines and arcs share one sequence
func (a *Allocator) Curve() int {
	a.curves++
	return a.curves
}

// Loop returns the next curve loop tag
func (a *Allocator) Loop() int {
	a.loops++
	return a.loops
}

// Surface returns the next surface tag
func (a *Allocator) Surface() int {
	a.surfaces++
	return a.surfaces
}

// ClaimPhysical records a physical id; it reports false if the id was
// already claimed
func (a *Allocator) ClaimPhysical(id int) bool {
	if a.physical[id] {
		return false
	}
	a.physical[id] = true
	return true
}
