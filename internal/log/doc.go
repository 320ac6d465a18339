// Package log provides logging that never prints passwords, built on top of
// the standard slog package.
//
// Attack code logs candidates and matches at debug level while it works.
// The SecureHandler masks every attribute whose key names a secret
// ("password", "candidate", "passphrase", ...) and every string value that
// looks like key material, so verbose logs can be shared without leaking
// the recovered password or the wordlist.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("candidate failed", "candidate", c.String(), "line", c.Line())
//	// level=DEBUG msg="candidate failed" candidate=***REDACTED*** line=42
//
// Worker processes write their logs to stderr with the same handler; the
// coordinator copies that stream into its own log.
package log
