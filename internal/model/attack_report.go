package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttackReport is the run-scoped state of one attack and, once the attack is
// over, its result. It is created when the attack starts and owned by the
// coordinator; only Progress may be read concurrently while it runs.
type AttackReport struct {
	// ID uniquely identifies the attack, e.g. in the history database.
	ID string `json:"id"`

	// ArchivePath is the path of the attacked archive.
	ArchivePath string `json:"archive_path"`

	// ArchiveFormat is "zip" or "rar" once the archive has been opened.
	ArchiveFormat string `json:"archive_format,omitempty"`

	// ArchiveFingerprint is the hex SHA3-256 of the archive file.
	ArchiveFingerprint string `json:"archive_fingerprint,omitempty"`

	// WordlistPath is the path of the candidate list.
	WordlistPath string `json:"wordlist_path"`

	// ExactLength restricts candidates to this length; 0 disables the filter.
	ExactLength int `json:"exact_length,omitempty"`

	// Workers is the size of the worker pool.
	Workers int `json:"workers"`

	// Isolation is the isolation mode the workers run in.
	Isolation string `json:"isolation,omitempty"`

	// State is the current coordinator state.
	State State `json:"state"`

	// Outcome is set once State is terminal.
	Outcome Outcome `json:"outcome,omitempty"`

	// Password is the matching candidate. Only set when Outcome is found.
	Password string `json:"password,omitempty"`

	// PasswordLine is the wordlist line the password came from.
	PasswordLine int `json:"password_line,omitempty"`

	// AbortReason is set when Outcome is aborted.
	AbortReason AbortReason `json:"abort_reason,omitempty"`

	// ErrorMessage is the text of the error that aborted the attack.
	ErrorMessage string `json:"error,omitempty"`

	// StartedAt is when the attack started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the attack reached a terminal state.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Progress holds the candidate counters.
	Progress *Progress `json:"progress"`
}

// NewAttackReport creates a report in StateIdle with a fresh ID.
func NewAttackReport(archivePath, wordlistPath string) *AttackReport {
	return &AttackReport{
		ID:           uuid.NewString(),
		ArchivePath:  archivePath,
		WordlistPath: wordlistPath,
		State:        StateIdle,
		StartedAt:    time.Now(),
		Progress:     NewProgress(),
	}
}

// Transition moves the report to next. It returns ErrInvalidTransition if
// the state machine does not allow the move. Entering a terminal state sets
// Outcome and FinishedAt.
func (r *AttackReport) Transition(next State) error {
	if !r.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	if next.Terminal() {
		r.Outcome = OutcomeOf(next)
		r.FinishedAt = time.Now()
	}
	return nil
}

// Found records the matching candidate and moves to StateFound.
func (r *AttackReport) Found(c Candidate) error {
	if err := r.Transition(StateFound); err != nil {
		return err
	}
	r.Password = c.String()
	r.PasswordLine = c.Line()
	return nil
}

// Abort records err and moves to StateAborted. Aborting a report that is
// already terminal is a no-op so the first terminal state wins.
func (r *AttackReport) Abort(err error) {
	if r.State.Terminal() {
		return
	}
	r.State = StateAborted
	r.Outcome = OutcomeAborted
	r.FinishedAt = time.Now()
	if err != nil {
		r.AbortReason = AbortReasonOf(err)
		r.ErrorMessage = err.Error()
	}
}

// Duration returns how long the attack ran, or has been running.
func (r *AttackReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Rate returns the number of candidates tested per second.
func (r *AttackReport) Rate() float64 {
	seconds := r.Duration().Seconds()
	if seconds <= 0 || r.Progress == nil {
		return 0
	}
	return float64(r.Progress.Attempted()) / seconds
}
