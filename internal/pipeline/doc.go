// Package pipeline runs a dictionary attack against an archive.
//
// An attack is a Pipeline of steps operating on one Session: open the
// archive, open the wordlist, count the candidates, then search. Each step
// moves the session's AttackReport through the coordinator state machine
//
//	Idle → Counting → Searching → Found | Exhausted
//
// and any error moves it to Aborted. The search step hands the candidate
// stream to a Dispatcher, which verifies candidates concurrently with a
// bounded number of workers and stops everything at the first match.
//
// Design decision: We keep the pipeline pattern for the coordinator because
// the fatal checks (archive, wordlist, empty filter result) are naturally
// sequential stages, each able to abort the attack before any worker exists.
package pipeline
