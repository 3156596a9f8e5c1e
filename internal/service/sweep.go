package service

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"feaprep/internal/log"
)

// SweepResult pairs a request with its outcome
type SweepResult struct {
	Request Request
	Result  *Result
	Err     error
}

// Sweep converts independent requests concurrently, running at most
// parallelism conversions at a time. A failed conversion does not stop the
// others; the returned error summarizes every failure.
func (s *ConversionService) Sweep(ctx context.Context, reqs []Request, parallelism int) ([]SweepResult, error) {
	if err := CheckDistinctOutputs(reqs); err != nil {
		return nil, err
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	results := make([]SweepResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, req := range reqs {
		i, req := i, req
		results[i].Request = req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			res, err := s.Convert(ctx, req)
			results[i].Result, results[i].Err = res, err
			if err != nil {
				return fmt.Errorf("%s: %w", req.source(), err)
			}
			return nil
		})
	}
	first := g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	detail := fmt.Sprintf("%d succeeded, %d failed", len(reqs)-failed, failed)
	log.Infof("sweep finished: %s", detail)
	s.eventBus.Publish(Event{Type: EventSweepCompleted, Payload: StageEvent{Detail: detail}})

	if failed > 0 {
		return results, fmt.Errorf("%d of %d conversions failed, first: %w", failed, len(reqs), first)
	}
	return results, nil
}

// CheckDistinctOutputs rejects two requests publishing into the same
// directory. Requests without an output directory are not checked.
func CheckDistinctOutputs(reqs []Request) error {
	seen := make(map[string]int, len(reqs))
	for i, req := range reqs {
		if req.OutputDir == "" {
			continue
		}
		dir, err := filepath.Abs(req.OutputDir)
		if err != nil {
			return fmt.Errorf("output directory %s: %w", req.OutputDir, err)
		}
		if j, ok := seen[dir]; ok {
			return fmt.Errorf("requests %d (%s) and %d (%s) both publish to %s",
				j, reqs[j].source(), i, req.source(), dir)
		}
		seen[dir] = i
	}
	return nil
}
