package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/zipcrack/internal/isolate"
	"github.com/nao1215/zipcrack/internal/model"
)

// ErrWorkerUnavailable is returned by Dispatcher.Run when the verifier
// reports that no worker can be started.
var ErrWorkerUnavailable = errors.New("no verification worker available")

// Dispatcher fans candidates out to a bounded number of concurrent
// verifications and collects their verdicts in completion order.
//
// Design decision: We use errgroup.SetLimit rather than a fixed set of worker
// goroutines reading from a queue because SetLimit blocks the feeder when
// every slot is busy. Candidates are pulled from the lazy sequence only when
// a slot frees up, so nothing is buffered ahead of the workers.
type Dispatcher struct {
	// poolSize is the maximum number of verifications in flight.
	poolSize int

	// logger is used for dispatcher-level logging.
	logger *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPoolSize sets the maximum number of concurrent verifications.
// Default is runtime.NumCPU(). Non-positive values are ignored.
func WithPoolSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.poolSize = n
		}
	}
}

// WithDispatcherLogger sets a custom logger for the dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		poolSize: runtime.NumCPU(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// PoolSize returns the maximum number of concurrent verifications.
func (d *Dispatcher) PoolSize() int {
	return d.poolSize
}

// Run verifies candidates with verifier until one matches, the sequence is
// exhausted, a fatal verdict arrives, or ctx is cancelled.
//
// It returns the matching candidate and true on a match, and the zero
// candidate and false with a nil error on exhaustion. Every processed
// verdict increments progress; Error verdicts are counted as errors and
// otherwise treated as NoMatch. A fatal verdict returns an error: ArchiveIO
// wraps model.ErrInvalidArchive, WorkerUnavailable wraps
// ErrWorkerUnavailable. Cancellation of ctx returns ctx.Err().
//
// The first match cancels every other verification. No verification starts
// after that, and verdicts still in flight are discarded. Run returns once
// the in-flight calls have observed the cancellation.
func (d *Dispatcher) Run(
	ctx context.Context,
	candidates iter.Seq[model.Candidate],
	verifier isolate.Verifier,
	progress *model.Progress,
) (model.Candidate, bool, error) {
	if progress == nil {
		progress = model.NewProgress()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	verdicts := make(chan model.Verdict)
	go d.feed(runCtx, candidates, verifier, verdicts)

	startTime := time.Now()
	var (
		match   model.Candidate
		matched bool
		runErr  error
	)
	for v := range verdicts {
		if matched || runErr != nil {
			continue
		}
		if v.ErrorKind == model.ErrorKindCancelled && runCtx.Err() != nil {
			continue
		}

		progress.AddAttempt(v.IsError())

		switch {
		case v.IsMatch():
			match, matched = v.Candidate, true
			cancel()
		case v.Fatal():
			runErr = fatalError(v)
			cancel()
		case v.IsError():
			d.logger.Debug("verification error",
				"line", v.Candidate.Line(),
				"kind", v.ErrorKind,
				"reason", v.Reason,
			)
		}
	}

	d.logger.Debug("dispatch finished",
		"attempted", progress.Attempted(),
		"errors", progress.Errors(),
		"matched", matched,
		"elapsed", time.Since(startTime),
	)

	switch {
	case matched:
		return match, true, nil
	case runErr != nil:
		return model.Candidate{}, false, runErr
	case ctx.Err() != nil:
		return model.Candidate{}, false, ctx.Err()
	default:
		return model.Candidate{}, false, nil
	}
}

// feed starts one verification per candidate, at most poolSize at a time,
// and closes verdicts once every started verification has reported.
func (d *Dispatcher) feed(
	ctx context.Context,
	candidates iter.Seq[model.Candidate],
	verifier isolate.Verifier,
	verdicts chan<- model.Verdict,
) {
	defer close(verdicts)

	var g errgroup.Group
	g.SetLimit(d.poolSize)

	for c := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The slot may have been granted after a match.
			if ctx.Err() != nil {
				return nil
			}
			v := verifier.Verify(ctx, c)
			select {
			case verdicts <- v:
			case <-ctx.Done():
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // tasks never return errors
}

// fatalError converts a fatal verdict into the error that aborts the attack.
func fatalError(v model.Verdict) error {
	if v.ErrorKind == model.ErrorKindArchiveIO {
		return fmt.Errorf("%w: %s", model.ErrInvalidArchive, v.Reason)
	}
	return fmt.Errorf("%w: %s", ErrWorkerUnavailable, v.Reason)
}
