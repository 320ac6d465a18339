package pipeline

import (
	"errors"

	"github.com/nao1215/zipcrack/internal/archive"
	"github.com/nao1215/zipcrack/internal/model"
	"github.com/nao1215/zipcrack/internal/wordlist"
)

// Session is the run-scoped state of one attack. It is created per attack
// and owned by the goroutine executing the pipeline, so several attacks can
// run in one process without sharing anything.
type Session struct {
	// Options are the attack parameters.
	Options Options

	// Report is the attack state and result.
	Report *model.AttackReport

	// Archive is set by the open-archive step.
	Archive *archive.Archive

	// Source is set by the open-wordlist step.
	Source *wordlist.Source

	// Filter is the candidate filter derived from Options.ExactLength.
	Filter wordlist.Filter

	hook StateHook
}

// NewSession creates a session in StateIdle for opts.
func NewSession(opts Options) *Session {
	report := model.NewAttackReport(opts.ArchivePath, opts.WordlistPath)
	report.ExactLength = opts.ExactLength
	report.Workers = opts.Workers
	report.Isolation = opts.Isolation
	return &Session{Options: opts, Report: report}
}

// transition moves the report to next and notifies the state hook.
func (s *Session) transition(next model.State) error {
	if err := s.Report.Transition(next); err != nil {
		return err
	}
	s.notify()
	return nil
}

// found records the match and notifies the state hook.
func (s *Session) found(c model.Candidate) error {
	if err := s.Report.Found(c); err != nil {
		return err
	}
	s.notify()
	return nil
}

// abort moves the report to Aborted unless it is already terminal.
func (s *Session) abort(err error) {
	if s.Report.State.Terminal() {
		return
	}
	s.Report.Abort(err)
	s.notify()
}

func (s *Session) notify() {
	if s.hook != nil {
		s.hook(s.Report.State, s.Report)
	}
}

// Close releases the archive and the wordlist.
func (s *Session) Close() error {
	var errs []error
	if s.Source != nil {
		errs = append(errs, s.Source.Close())
		s.Source = nil
	}
	if s.Archive != nil {
		errs = append(errs, s.Archive.Close())
		s.Archive = nil
	}
	return errors.Join(errs...)
}
