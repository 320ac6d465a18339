// Package database provides SQLite-based storage for zipcrack.
//
// This package implements the HistoryDB, which records every finished
// attack so that the history command can list past runs and show their
// results again.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// history is a single local file and the CGO-free driver keeps zipcrack a
// static binary. WAL mode lets the history command read while an attack
// in another terminal is writing.
package database
