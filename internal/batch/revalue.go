// Package batch recomputes valuations for many listings after a rule change.
package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hwcatalog/appraisal/internal/engine"
	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Batch revaluation.
 *
 * Per-listing evaluation is pure and independent, so revaluation is
 * embarrassingly parallel: a bounded worker pool pulls items from a shared
 * index, evaluates each against the same immutable ruleset tree, and writes
 * its result into a preallocated slot. Results land in input order with no
 * interleaved partial state across listings.
 *
 * Cancellation is cooperative and per-item: workers check the context before
 * starting the next listing, never mid-evaluation (a single evaluation is
 * too short-lived to need interruption). Remaining items are marked canceled
 * in the summary.
 */

// Item is one listing queued for revaluation.
type Item struct {
	ListingID types.ListingID
	Snapshot  engine.Snapshot
	BaseValue float64
}

// ItemResult pairs a listing with its evaluation outcome.
type ItemResult struct {
	ListingID types.ListingID
	Result    engine.EvaluationResult
	Err       error
}

// Summary aggregates one revaluation pass.
type Summary struct {
	Total     int
	Succeeded int
	Canceled  int
	Results   []ItemResult // input order
}

// Pool runs bounded-parallelism revaluation passes.
type Pool struct {
	workers int
	logger  zerolog.Logger
}

// NewPool creates a pool with the given parallelism. Workers below 1 are
// clamped to 1.
func NewPool(workers int, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, logger: logger}
}

// Run evaluates every item against the ruleset and aggregates a summary.
// The ruleset tree must not be mutated while the pass runs.
func (p *Pool) Run(ctx context.Context, ruleset *types.Ruleset, items []Item) Summary {
	summary := Summary{
		Total:   len(items),
		Results: make([]ItemResult, len(items)),
	}
	if len(items) == 0 {
		return summary
	}

	workers := p.workers
	if workers > len(items) {
		workers = len(items)
	}

	var next int
	var mu sync.Mutex
	var wg sync.WaitGroup

	claim := func() int {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(items) {
			return -1
		}
		idx := next
		next++
		return idx
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				// Check-and-stop between listings, never mid-evaluation.
				if ctx.Err() != nil {
					return
				}
				idx := claim()
				if idx < 0 {
					return
				}
				item := items[idx]
				summary.Results[idx] = ItemResult{
					ListingID: item.ListingID,
					Result:    engine.Evaluate(ruleset, item.Snapshot, item.BaseValue),
				}
			}
		}()
	}
	wg.Wait()

	for i := range summary.Results {
		switch {
		case summary.Results[i].ListingID == "":
			// Slot never claimed: pass was canceled before this item.
			summary.Results[i] = ItemResult{ListingID: items[i].ListingID, Err: ctx.Err()}
			summary.Canceled++
		case summary.Results[i].Err != nil:
			// Reserved for future per-item failure modes; evaluation itself
			// degrades instead of erroring.
		default:
			summary.Succeeded++
		}
	}

	p.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("canceled", summary.Canceled).
		Msg("revaluation pass complete")

	return summary
}
