package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/nao1215/zipcrack/internal/archive"
	"github.com/nao1215/zipcrack/internal/isolate"
	"github.com/nao1215/zipcrack/internal/model"
)

var _ isolate.Verifier = (*archive.Oracle)(nil)

// OracleFactory builds the verifier used by the search step. It is called
// once per attack, after the archive has been opened. A returned verifier
// that implements io.Closer is closed when the search ends.
type OracleFactory func(ctx context.Context, s *Session) (isolate.Verifier, error)

// Options are the parameters of one attack.
type Options struct {
	// ArchivePath is the archive to attack.
	ArchivePath string

	// WordlistPath is the file of candidate passwords, one per line.
	WordlistPath string

	// ExactLength keeps only candidates of this many characters.
	// Zero or less disables the filter.
	ExactLength int

	// Workers is the number of concurrent verifications.
	// Zero or less means runtime.NumCPU().
	Workers int

	// WordlistEncoding decodes wordlist lines. Default latin1.
	WordlistEncoding model.TextEncoding

	// PasswordEncoding encodes candidates into password bytes. Default latin1.
	PasswordEncoding model.TextEncoding

	// SinglePass skips the counting pass; progress then has no total.
	SinglePass bool

	// Isolation names the isolation mode, for the report only.
	Isolation string

	// VerifyTimeout limits a single verification. Zero means no limit.
	VerifyTimeout time.Duration

	// NewOracle builds the verifier. Default InProcessOracle(VerifyTimeout).
	NewOracle OracleFactory

	// Logger is used by every part of the attack. Default slog.Default().
	Logger *slog.Logger

	// StateHook is called after every state transition.
	StateHook StateHook
}

// withDefaults fills in unset options.
func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.WordlistEncoding == "" {
		o.WordlistEncoding = model.EncodingLatin1
	}
	if o.PasswordEncoding == "" {
		o.PasswordEncoding = model.EncodingLatin1
	}
	if o.NewOracle == nil {
		o.NewOracle = InProcessOracle(o.VerifyTimeout)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// InProcessOracle returns an OracleFactory that verifies candidates in
// goroutines of the current process, guarded against panics and, when
// timeout is positive, against slow verifications.
func InProcessOracle(timeout time.Duration) OracleFactory {
	return func(_ context.Context, s *Session) (isolate.Verifier, error) {
		return isolate.Guard(archive.NewOracle(s.Archive, s.Options.PasswordEncoding), timeout), nil
	}
}

// NewAttackPipeline returns the pipeline executing an attack with opts.
func NewAttackPipeline(opts Options) *Pipeline {
	opts = opts.withDefaults()
	stepOpts := []StepOption{WithStepLogger(opts.Logger)}

	p := New(WithLogger(opts.Logger), WithStateHook(opts.StateHook))
	// The wordlist is opened first: a missing wordlist is reported even
	// when the archive is bad too.
	p.AddSteps(
		NewOpenWordlistStep(stepOpts...),
		NewOpenArchiveStep(stepOpts...),
		NewCountStep(stepOpts...),
		NewSearchStep(
			NewDispatcher(WithPoolSize(opts.Workers), WithDispatcherLogger(opts.Logger)),
			opts.NewOracle,
			stepOpts...,
		),
	)
	return p
}

// Attack runs a dictionary attack and returns its report.
//
// The error is nil when the attack ends Found or Exhausted. Otherwise the
// report is Aborted and the error tells why; use errors.Is with
// model.ErrSourceNotFound, model.ErrNoCandidates, model.ErrInvalidArchive or
// context.Canceled to tell the cases apart.
func Attack(ctx context.Context, opts Options) (*model.AttackReport, error) {
	opts = opts.withDefaults()

	sess := NewSession(opts)
	defer func() {
		if err := sess.Close(); err != nil {
			opts.Logger.Debug("failed to release attack inputs", "error", err)
		}
	}()

	err := NewAttackPipeline(opts).Execute(ctx, sess)
	return sess.Report, err
}
