package repository

import (
	"context"

	"feaprep/internal/domain"
)

// Catalog defines the interface for run history access
type Catalog interface {
	// RecordRun stores a finished run
	RecordRun(ctx context.Context, run *domain.Run) error

	// GetRun returns a run by id
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// LastSuccessful returns the most recent successful run with the given
	// fingerprint and tool, or nil when there is none
	LastSuccessful(ctx context.Context, fingerprint, tool string) (*domain.Run, error)

	// ListRuns returns the most recent runs, newest first. An empty model
	// lists every model.
	ListRuns(ctx context.Context, model string, limit int) ([]domain.Run, error)

	// Close releases resources
	Close() error
}
