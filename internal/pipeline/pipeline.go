package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/zipcrack/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the session left by the
// previous ones.
type Step interface {
	// Do executes the step. A returned error aborts the attack; the
	// pipeline records it in the session report.
	Do(ctx context.Context, s *Session) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// StateHook is called after every state transition of an attack.
// It runs on the coordinator goroutine and must not block for long.
type StateHook func(state model.State, report *model.AttackReport)

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// stateHook is installed on every session the pipeline executes.
	stateHook StateHook
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStateHook sets a function called after every state transition.
// The CLI uses it to start and stop the progress bar.
func WithStateHook(hook StateHook) Option {
	return func(p *Pipeline) {
		p.stateHook = hook
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and stops at the first error.
//
// Context cancellation is checked before each step; steps are expected to
// honour it while they run. When a step fails or the context is cancelled,
// the session report is moved to Aborted with the error recorded, and the
// error is returned.
func (p *Pipeline) Execute(ctx context.Context, s *Session) error {
	if s.hook == nil {
		s.hook = p.stateHook
	}

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("attack cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			s.abort(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"state", s.Report.State,
		)

		if err := step.Do(ctx, s); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"error", err,
			)
			s.abort(err)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"state", s.Report.State,
		)
	}

	return nil
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
