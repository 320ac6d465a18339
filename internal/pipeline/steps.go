package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/zipcrack/internal/archive"
	"github.com/nao1215/zipcrack/internal/model"
	"github.com/nao1215/zipcrack/internal/wordlist"
)

// stepBase carries what every step needs.
type stepBase struct {
	logger *slog.Logger
}

// StepOption configures a step.
type StepOption func(*stepBase)

// WithStepLogger sets a custom logger for a step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(b *stepBase) {
		b.logger = logger
	}
}

func newStepBase(opts []StepOption) stepBase {
	b := stepBase{}
	for _, opt := range opts {
		opt(&b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// OpenArchiveStep opens the target archive and records its format and
// fingerprint. It runs in Counting, after the wordlist is open. An archive
// that cannot be parsed aborts the attack with model.ErrInvalidArchive.
type OpenArchiveStep struct {
	stepBase
}

// NewOpenArchiveStep creates a new OpenArchiveStep.
func NewOpenArchiveStep(opts ...StepOption) *OpenArchiveStep {
	return &OpenArchiveStep{stepBase: newStepBase(opts)}
}

// Name returns the step name.
func (s *OpenArchiveStep) Name() string {
	return "open-archive"
}

// Do executes the step.
func (s *OpenArchiveStep) Do(_ context.Context, sess *Session) error {
	a, err := archive.Open(sess.Options.ArchivePath)
	if err != nil {
		return err
	}
	sess.Archive = a
	sess.Report.ArchiveFormat = string(a.Format())

	fingerprint, err := a.Fingerprint()
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidArchive, err)
	}
	sess.Report.ArchiveFingerprint = fingerprint

	s.logger.Debug("archive opened",
		"format", a.Format(),
		"size", a.Size(),
		"encrypted_entries", a.EncryptedEntries(),
	)
	return nil
}

// OpenWordlistStep opens the wordlist and moves the attack to Counting.
// A missing wordlist aborts the attack with model.ErrSourceNotFound.
type OpenWordlistStep struct {
	stepBase
}

// NewOpenWordlistStep creates a new OpenWordlistStep.
func NewOpenWordlistStep(opts ...StepOption) *OpenWordlistStep {
	return &OpenWordlistStep{stepBase: newStepBase(opts)}
}

// Name returns the step name.
func (s *OpenWordlistStep) Name() string {
	return "open-wordlist"
}

// Do executes the step.
func (s *OpenWordlistStep) Do(_ context.Context, sess *Session) error {
	src, err := wordlist.Open(sess.Options.WordlistPath, sess.Options.WordlistEncoding)
	if err != nil {
		return err
	}
	sess.Source = src
	sess.Filter = wordlist.ExactLength(sess.Options.ExactLength)

	return sess.transition(model.StateCounting)
}

// CountStep counts the candidates left after filtering and moves the attack
// to Searching. An empty result aborts the attack with model.ErrNoCandidates
// before any worker is started.
//
// With Options.SinglePass the count is skipped and the total stays unknown.
type CountStep struct {
	stepBase
}

// NewCountStep creates a new CountStep.
func NewCountStep(opts ...StepOption) *CountStep {
	return &CountStep{stepBase: newStepBase(opts)}
}

// Name returns the step name.
func (s *CountStep) Name() string {
	return "count"
}

// Do executes the step.
func (s *CountStep) Do(ctx context.Context, sess *Session) error {
	if sess.Options.SinglePass {
		s.logger.Debug("skipping count in single-pass mode")
		return sess.transition(model.StateSearching)
	}

	total, err := sess.Source.Count(ctx, sess.Filter)
	if err != nil {
		return err
	}
	sess.Report.Progress.SetTotal(total)
	if total == 0 {
		return noCandidates(sess.Options.ExactLength)
	}

	s.logger.Debug("candidates counted", "total", total)
	return sess.transition(model.StateSearching)
}

// SearchStep dispatches the candidates to the verifier and records the
// result: Found on a match, Exhausted otherwise.
type SearchStep struct {
	stepBase
	dispatcher *Dispatcher
	newOracle  OracleFactory
}

// NewSearchStep creates a new SearchStep.
func NewSearchStep(dispatcher *Dispatcher, newOracle OracleFactory, opts ...StepOption) *SearchStep {
	return &SearchStep{
		stepBase:   newStepBase(opts),
		dispatcher: dispatcher,
		newOracle:  newOracle,
	}
}

// Name returns the step name.
func (s *SearchStep) Name() string {
	return "search"
}

// Do executes the step.
func (s *SearchStep) Do(ctx context.Context, sess *Session) error {
	oracle, err := s.newOracle(ctx, sess)
	if err != nil {
		return err
	}
	if closer, ok := oracle.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				s.logger.Warn("failed to close verifier", "error", err)
			}
		}()
	}

	match, found, err := s.dispatcher.Run(ctx, sess.Source.Candidates(sess.Filter), oracle, sess.Report.Progress)
	if err != nil {
		return err
	}
	if found {
		return sess.found(match)
	}
	if err := sess.Source.Err(); err != nil {
		return err
	}
	if sess.Options.SinglePass && sess.Report.Progress.Attempted() == 0 {
		return noCandidates(sess.Options.ExactLength)
	}
	return sess.transition(model.StateExhausted)
}

// noCandidates builds the NoCandidates error for the given length filter.
func noCandidates(exactLength int) error {
	if exactLength > 0 {
		return fmt.Errorf("%w: no passwords of length %d", model.ErrNoCandidates, exactLength)
	}
	return model.ErrNoCandidates
}
