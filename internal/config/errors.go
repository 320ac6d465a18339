package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoArchive is returned when no archive is specified.
	ErrNoArchive = errors.New("no archive specified: use --file")

	// ErrNoWordlist is returned when no wordlist is specified.
	ErrNoWordlist = errors.New("no wordlist specified: use --wordlist")

	// ErrInvalidLength is returned when the password length is negative.
	ErrInvalidLength = errors.New("invalid password length: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the verification timeout is negative.
	// Use 0 to disable the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidIsolation is returned for an unknown isolation mode.
	ErrInvalidIsolation = errors.New("invalid isolation: must be process or goroutine")

	// ErrInvalidEncoding is returned for an unknown text encoding.
	ErrInvalidEncoding = errors.New("invalid encoding: must be latin1 or utf-8")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
