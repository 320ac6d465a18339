package model

import (
	"fmt"
)

// VerdictKind is the ternary outcome of one verification.
type VerdictKind int

const (
	// VerdictNoMatch means the password did not decrypt the archive.
	VerdictNoMatch VerdictKind = iota

	// VerdictMatch means every protected entry decrypted and verified.
	VerdictMatch

	// VerdictError means the verification could not reach an answer.
	// ErrorKind tells why.
	VerdictError
)

// String returns the wire name of the verdict kind.
func (k VerdictKind) String() string {
	switch k {
	case VerdictNoMatch:
		return "no_match"
	case VerdictMatch:
		return "match"
	case VerdictError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k VerdictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *VerdictKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "no_match":
		*k = VerdictNoMatch
	case "match":
		*k = VerdictMatch
	case "error":
		*k = VerdictError
	default:
		return fmt.Errorf("unknown verdict kind %q", string(text))
	}
	return nil
}

// ErrorKind classifies an Error verdict.
type ErrorKind int

const (
	// ErrorKindNone is the zero value used by Match and NoMatch verdicts.
	ErrorKindNone ErrorKind = iota

	// ErrorKindEncodingFailure means the candidate could not be encoded
	// in the archive's password encoding.
	ErrorKindEncodingFailure

	// ErrorKindVerificationTransient means the decryption primitive failed
	// unexpectedly (panic, unsupported method) for this one candidate.
	ErrorKindVerificationTransient

	// ErrorKindTimeout means the verification exceeded its time limit.
	ErrorKindTimeout

	// ErrorKindWorkerCrashed means the worker process died or broke the
	// protocol while handling the candidate.
	ErrorKindWorkerCrashed

	// ErrorKindCancelled means the attack was cancelled before an answer.
	ErrorKindCancelled

	// ErrorKindArchiveIO means reading the archive file itself failed.
	ErrorKindArchiveIO

	// ErrorKindWorkerUnavailable means no worker could be started.
	ErrorKindWorkerUnavailable
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindNone:                  "",
	ErrorKindEncodingFailure:       "encoding_failure",
	ErrorKindVerificationTransient: "verification_transient",
	ErrorKindTimeout:               "timeout",
	ErrorKindWorkerCrashed:         "worker_crashed",
	ErrorKindCancelled:             "cancelled",
	ErrorKindArchiveIO:             "archive_io",
	ErrorKindWorkerUnavailable:     "worker_unavailable",
}

// String returns the wire name of the error kind.
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range errorKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", string(text))
}

// Fatal reports whether the error concerns the archive handle or the worker
// infrastructure rather than a single candidate. Fatal errors abort the attack.
func (k ErrorKind) Fatal() bool {
	return k == ErrorKindArchiveIO || k == ErrorKindWorkerUnavailable
}

// Verdict is the result of testing one Candidate against an archive.
type Verdict struct {
	// Kind is the ternary outcome.
	Kind VerdictKind

	// Candidate is the password that was tested.
	Candidate Candidate

	// ErrorKind is set when Kind is VerdictError.
	ErrorKind ErrorKind

	// Reason is a human readable description of the error, if any.
	Reason string
}

// Match returns a verdict stating that c is the archive password.
func Match(c Candidate) Verdict {
	return Verdict{Kind: VerdictMatch, Candidate: c}
}

// NoMatch returns a verdict stating that c is not the archive password.
func NoMatch(c Candidate) Verdict {
	return Verdict{Kind: VerdictNoMatch, Candidate: c}
}

// Failure returns an Error verdict for c.
func Failure(c Candidate, kind ErrorKind, reason string) Verdict {
	return Verdict{Kind: VerdictError, Candidate: c, ErrorKind: kind, Reason: reason}
}

// IsMatch reports whether the verdict is a match.
func (v Verdict) IsMatch() bool {
	return v.Kind == VerdictMatch
}

// IsError reports whether the verdict is an Error verdict.
func (v Verdict) IsError() bool {
	return v.Kind == VerdictError
}

// Fatal reports whether the verdict is an Error that must abort the attack.
func (v Verdict) Fatal() bool {
	return v.Kind == VerdictError && v.ErrorKind.Fatal()
}

// String returns a short description without the candidate text.
func (v Verdict) String() string {
	if v.Kind != VerdictError {
		return v.Kind.String()
	}
	if v.Reason == "" {
		return fmt.Sprintf("error(%s)", v.ErrorKind)
	}
	return fmt.Sprintf("error(%s): %s", v.ErrorKind, v.Reason)
}
