// Package isolate runs password verifications so that a single bad
// candidate cannot take the attack down with it.
//
// Two isolation levels are provided:
//
//   - Guard runs each verification in its own goroutine, turning panics into
//     error verdicts and abandoning calls that exceed a time limit.
//   - Pool runs verifications in long-lived worker processes. A worker that
//     crashes, hangs or speaks garbage is killed and replaced; the attack
//     only sees an error verdict for the candidate it was handling.
//
// Workers speak a line-delimited JSON protocol on stdin and stdout. Serve
// implements the worker side.
package isolate
