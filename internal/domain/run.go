package domain

import "time"

// RunStatus is the outcome of a conversion run
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one catalogued conversion. Fingerprint identifies the input model
// and mesh parameters; Digest identifies the produced tables, so two
// successful runs with equal fingerprints and tools but different digests
// indicate drift in the mesher.
type Run struct {
	ID          string
	Model       string
	Fingerprint string
	Tool        string
	Digest      string
	OutputDir   string
	Summary     Summary
	Status      RunStatus
	Error       string
	CreatedAt   time.Time
}
