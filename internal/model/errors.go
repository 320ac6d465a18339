package model

import (
	"context"
	"errors"
)

// Attack-level errors. Only these abort an attack; per-candidate problems
// are reported as Error verdicts instead.
var (
	// ErrSourceNotFound is returned when the wordlist cannot be opened.
	// The attack aborts before any worker starts.
	ErrSourceNotFound = errors.New("candidate source not found")

	// ErrNoCandidates is returned when the wordlist, after filtering,
	// contains no candidate. The attack aborts before any worker starts.
	ErrNoCandidates = errors.New("no candidates to test")

	// ErrInvalidArchive is returned when the archive cannot be opened or
	// parsed at all, or when reading it fails mid-attack. This is distinct
	// from a wrong password.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrInvalidTransition is returned by AttackReport.Transition for a move
	// the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// AbortReason names why an attack ended in StateAborted.
type AbortReason string

const (
	// AbortSourceNotFound corresponds to ErrSourceNotFound.
	AbortSourceNotFound AbortReason = "source_not_found"

	// AbortNoCandidates corresponds to ErrNoCandidates.
	AbortNoCandidates AbortReason = "no_candidates"

	// AbortInvalidArchive corresponds to ErrInvalidArchive.
	AbortInvalidArchive AbortReason = "invalid_archive"

	// AbortInterrupted means the caller cancelled the attack.
	AbortInterrupted AbortReason = "interrupted"

	// AbortInternal covers any other failure, such as workers that cannot start.
	AbortInternal AbortReason = "internal"
)

// AbortReasonOf maps an attack error to its AbortReason.
func AbortReasonOf(err error) AbortReason {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		return AbortSourceNotFound
	case errors.Is(err, ErrNoCandidates):
		return AbortNoCandidates
	case errors.Is(err, ErrInvalidArchive):
		return AbortInvalidArchive
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return AbortInterrupted
	default:
		return AbortInternal
	}
}
