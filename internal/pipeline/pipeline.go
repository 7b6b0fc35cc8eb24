package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/packagebot/internal/metrics"
	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/tracing"
)

// Step is one stage of a run. Do returns an error only when the run cannot
// continue; problems with a single unit are recorded in the report instead.
type Step interface {
	Do(ctx context.Context, report *model.RunReport) error
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps executing after a failed step.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Runs use the default, which stops at the first
// failure so that nothing is harvested without a wiki session.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Cancellation is checked before each
// step; a cancelled run is marked in the report. FinishedAt is always set.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	defer func() {
		report.FinishedAt = time.Now()
		metrics.MarkRunFinished(report.FinishedAt)
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			report.Cancelled = true
			report.SetError(err)
			return err
		}

		if err := p.run(ctx, step, report); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "tree", report.Tree, "error", err)
			report.SetError(err)
			if ctx.Err() != nil {
				report.Cancelled = true
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, step Step, report *model.RunReport) error {
	ctx, span := tracing.StartSpan(ctx, "step."+step.Name())
	defer span.End()
	tracing.AddStepAttributes(span, step.Name(), report.Tree)

	p.logger.Info("executing step", "step", step.Name())
	start := time.Now()
	err := step.Do(ctx, report)
	metrics.ObserveStep(step.Name(), time.Since(start))
	tracing.RecordError(span, err)
	if err == nil {
		p.logger.Debug("step completed", "step", step.Name(), "elapsed", time.Since(start))
	}
	return err
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
