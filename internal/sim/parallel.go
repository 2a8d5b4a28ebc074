package sim

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent world for one ensemble member.
type Factory func(seed int64) (World, error)

// Ensemble runs the same configuration over consecutive seeds.
type Ensemble struct {
	factory    Factory
	newMetrics func() []Metric
	numRuns    int
	seedStart  int64
	workers    int
}

// NewEnsemble returns an ensemble of numRuns worlds seeded from seedStart.
// newMetrics may be nil; otherwise every member gets a fresh metric set.
func NewEnsemble(factory Factory, newMetrics func() []Metric, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		factory:    factory,
		newMetrics: newMetrics,
		numRuns:    numRuns,
		seedStart:  seedStart,
		workers:    runtime.GOMAXPROCS(0),
	}
}

// SetWorkers bounds how many members run at once.
func (e *Ensemble) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// Run returns the results in seed order. The first failing member cancels
// the members that have not started.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if e.factory == nil {
		return nil, ErrNoFactory
	}
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("%w: ensemble size %d", ErrInvalidRun, e.numRuns)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	results := make([]*Result, e.numRuns)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			world, err := e.factory(cfgCopy.Seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", cfgCopy.Seed, err)
			}

			s := New(world)
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}

			res, err := s.Run(gctx, cfgCopy)
			if err != nil {
				return fmt.Errorf("seed %d: %w", cfgCopy.Seed, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary aggregates one metric over ensemble results.
type Summary struct {
	Name string
	Mean float64
	Min  float64
	Max  float64
}

// Summarize returns per-metric mean, min and max across results, sorted by
// metric name.
func Summarize(results []*Result) []Summary {
	acc := make(map[string]*Summary)
	counts := make(map[string]int)
	for _, r := range results {
		if r == nil {
			continue
		}
		for name, v := range r.Metrics {
			s, ok := acc[name]
			if !ok {
				s = &Summary{Name: name, Min: v, Max: v}
				acc[name] = s
			}
			s.Mean += v
			s.Min = min(s.Min, v)
			s.Max = max(s.Max, v)
			counts[name]++
		}
	}

	out := make([]Summary, 0, len(acc))
	for name, s := range acc {
		s.Mean /= float64(counts[name])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
