// Package model defines the core data structures shared by the zipcrack
// packages.
//
// This package contains the following main types:
//   - Candidate: one password guess read from a wordlist
//   - Verdict: the outcome of testing one Candidate against an archive
//   - AttackReport: the run-scoped state and final result of an attack
//   - Progress: counters an external progress reporter can poll
//   - State: the attack coordinator's state machine
//
// Models live in their own package because the wordlist, archive, isolate,
// pipeline, report and database packages all exchange them.
//
// AttackReport, Verdict kinds and error kinds serialize to JSON for report
// output, the worker process protocol and history storage.
package model
