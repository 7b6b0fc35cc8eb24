package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nao1215/packagebot/internal/model"
)

// Harvest is the combined output of every worker.
type Harvest struct {
	Records  []model.Record
	Failures []model.ParseFailure
}

// Aggregator collects worker output. Each of the expected workers calls
// Publish exactly once; Wait returns only after the last one has.
type Aggregator struct {
	mu       sync.Mutex
	records  []model.Record
	failures []model.ParseFailure
	pending  int

	// done is closed by the final Publish.
	done chan struct{}
}

// NewAggregator creates an Aggregator expecting workers publishers.
// It panics if workers is less than one.
func NewAggregator(workers int) *Aggregator {
	if workers < 1 {
		panic(fmt.Sprintf("pipeline: NewAggregator called with %d workers", workers))
	}
	return &Aggregator{
		pending: workers,
		done:    make(chan struct{}),
	}
}

// Publish appends one worker's records and failures and marks that worker
// finished. It is safe for concurrent use. The lock covers only the append.
func (a *Aggregator) Publish(records []model.Record, failures []model.ParseFailure) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending == 0 {
		return ErrAggregatorClosed
	}
	a.records = append(a.records, records...)
	a.failures = append(a.failures, failures...)
	a.pending--
	if a.pending == 0 {
		close(a.done)
	}
	return nil
}

// Pending returns how many workers have not published yet.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Wait blocks until every worker has published and returns the combined
// results. If ctx ends first, Wait returns ctx's error and no results.
func (a *Aggregator) Wait(ctx context.Context) (*Harvest, error) {
	select {
	case <-a.done:
		return a.harvest(), nil
	default:
	}

	select {
	case <-a.done:
		return a.harvest(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Aggregator) harvest() *Harvest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &Harvest{
		Records:  slices.Clone(a.records),
		Failures: slices.Clone(a.failures),
	}
}
