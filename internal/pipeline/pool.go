package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/packagebot/internal/metadata"
	"github.com/nao1215/packagebot/internal/metrics"
	"github.com/nao1215/packagebot/internal/model"
)

// Strategy selects how discoveries are handed to workers.
type Strategy string

const (
	// StrategyQueue has every worker pull from one shared channel, which
	// balances load when some files are slower to parse than others.
	StrategyQueue Strategy = "queue"

	// StrategyPartition gives each worker one contiguous slice up front.
	StrategyPartition Strategy = "partition"
)

// ParseStrategy converts a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyQueue, StrategyPartition:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}

// RecordLoader turns a discovery into a record. Implementations must be
// safe for concurrent use.
type RecordLoader interface {
	Load(d model.Discovery) (model.Record, error)
}

// Pool parses discoveries on a fixed number of workers.
type Pool struct {
	loader   RecordLoader
	workers  int
	strategy Strategy
	logger   *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkers sets the number of workers. Values below one are ignored.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithStrategy sets the work distribution strategy.
func WithStrategy(s Strategy) PoolOption {
	return func(p *Pool) {
		p.strategy = s
	}
}

// WithPoolLogger sets a custom logger for the pool.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool creates a Pool with one queue-fed worker unless configured otherwise.
func NewPool(loader RecordLoader, opts ...PoolOption) *Pool {
	p := &Pool{
		loader:   loader,
		workers:  1,
		strategy: StrategyQueue,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Strategy returns the configured strategy.
func (p *Pool) Strategy() Strategy {
	return p.strategy
}

// Run parses every discovery and returns the combined results. It starts
// exactly Workers goroutines and returns only after all of them exited.
// A file that fails to parse is recorded as a failure and skipped; it never
// stops its worker. If ctx is cancelled, Run returns ctx's error and no
// results.
func (p *Pool) Run(ctx context.Context, discoveries []model.Discovery) (*Harvest, error) {
	if _, err := ParseStrategy(string(p.strategy)); err != nil {
		return nil, err
	}

	start := time.Now()
	p.logger.Info("starting harvest",
		"discoveries", len(discoveries),
		"workers", p.workers,
		"strategy", p.strategy,
	)

	agg := NewAggregator(p.workers)
	g, gctx := errgroup.WithContext(ctx)

	inputs := make([]<-chan model.Discovery, p.workers)
	switch p.strategy {
	case StrategyPartition:
		for i, part := range Partition(discoveries, p.workers) {
			ch := make(chan model.Discovery, len(part))
			for _, d := range part {
				ch <- d
			}
			close(ch)
			inputs[i] = ch
		}
	case StrategyQueue:
		queue := make(chan model.Discovery)
		g.Go(func() error {
			defer close(queue)
			for _, d := range discoveries {
				select {
				case queue <- d:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
		for i := range inputs {
			inputs[i] = queue
		}
	}

	for id, in := range inputs {
		g.Go(func() error {
			return p.work(gctx, id, in, agg)
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("harvest stopped", "error", err)
		return nil, err
	}

	harvest, err := agg.Wait(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Info("harvest complete",
		"records", len(harvest.Records),
		"failures", len(harvest.Failures),
		"elapsed", time.Since(start),
	)
	return harvest, nil
}

// work parses everything arriving on in and publishes once on return.
func (p *Pool) work(ctx context.Context, id int, in <-chan model.Discovery, agg *Aggregator) (err error) {
	metrics.WorkerStarted()
	defer metrics.WorkerFinished()

	var (
		records  []model.Record
		failures []model.ParseFailure
	)
	defer func() {
		if pubErr := agg.Publish(records, failures); pubErr != nil && err == nil {
			err = pubErr
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-in:
			if !ok {
				p.logger.Debug("worker finished", "worker", id, "records", len(records), "failures", len(failures))
				return nil
			}
			rec, loadErr := p.loader.Load(d)
			if loadErr != nil {
				failures = append(failures, model.ParseFailure{Path: d.Path, Error: loadErr.Error()})
				p.logger.Warn("skipping unparsable metadata", "worker", id, "path", d.Path, "error", describe(loadErr))
				continue
			}
			records = append(records, rec)
		}
	}
}

// describe strips the path from parse errors, which the log line already carries.
func describe(err error) error {
	var parseErr *metadata.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Err
	}
	return err
}
