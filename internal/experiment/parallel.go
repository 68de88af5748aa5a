package experiment

import (
	"context"
	"sync"
)

// RunAll renders every config concurrently and returns the results in the
// same order. Tracks may be shared; each run gets its own cursor and
// analyzer.
func RunAll(ctx context.Context, cfgs []Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i := range cfgs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			e, err := New(cfgs[idx])
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = e.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Ensemble renders one config under a run of consecutive grid seeds.
type Ensemble struct {
	base      Config
	numRuns   int
	seedStart int64
}

func NewEnsemble(cfg Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{base: cfg, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	cfgs := make([]Config, e.numRuns)
	for i := range cfgs {
		cfgs[i] = e.base
		cfgs[i].Seed = e.seedStart + int64(i)
	}
	return RunAll(ctx, cfgs)
}
