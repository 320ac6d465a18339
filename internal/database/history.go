package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/zipcrack/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "zipcrack.db"

// ErrNotFound is returned by GetAttack when no attack has the given ID.
var ErrNotFound = errors.New("attack not found")

// HistoryDB stores finished attack reports.
//
// Design decision: The full report is stored as JSON next to a few indexed
// columns. The report shape can grow without a migration, and the columns
// cover every query the history command makes.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping os.ErrNotExist is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("failed to open history database %s: %w", dbPath, err)
		}
		mode = "rw"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the path of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attacks (
		id TEXT PRIMARY KEY,
		archive_path TEXT NOT NULL,
		archive_fingerprint TEXT,
		wordlist_path TEXT NOT NULL,
		outcome TEXT NOT NULL,
		attempted INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attacks_fingerprint ON attacks(archive_fingerprint);
	CREATE INDEX IF NOT EXISTS idx_attacks_started ON attacks(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAttack stores a report. Saving a report with an ID that is already
// stored replaces the earlier row.
func (hdb *HistoryDB) SaveAttack(ctx context.Context, report *model.AttackReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	var attempted int64
	if report.Progress != nil {
		attempted = report.Progress.Attempted()
	}

	query := `
	INSERT INTO attacks (id, archive_path, archive_fingerprint, wordlist_path, outcome, attempted, started_at, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		outcome = excluded.outcome,
		attempted = excluded.attempted,
		report_json = excluded.report_json
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.ID,
		report.ArchivePath,
		report.ArchiveFingerprint,
		report.WordlistPath,
		string(report.Outcome),
		attempted,
		report.StartedAt.UnixNano(),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save attack: %w", err)
	}

	return nil
}

// Filter selects attacks for ListAttacks.
type Filter struct {
	// Fingerprint restricts the list to one archive. Empty means all.
	Fingerprint string

	// Outcome restricts the list to one outcome. Empty means all.
	Outcome model.Outcome

	// Limit caps the number of results. Zero or less means no limit.
	Limit int
}

// ListAttacks returns the stored reports matching filter, newest first.
func (hdb *HistoryDB) ListAttacks(ctx context.Context, filter Filter) ([]*model.AttackReport, error) {
	query := `
	SELECT report_json FROM attacks
	WHERE 1=1
	`
	args := make([]any, 0, 3)

	if filter.Fingerprint != "" {
		query += " AND archive_fingerprint = ?"
		args = append(args, filter.Fingerprint)
	}
	if filter.Outcome != model.OutcomeNone {
		query += " AND outcome = ?"
		args = append(args, string(filter.Outcome))
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attacks: %w", err)
	}
	defer rows.Close()

	var reports []*model.AttackReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan attack: %w", err)
		}

		var report model.AttackReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// GetAttack returns the report with the given ID. A unique ID prefix is
// accepted too, since the history listing prints shortened IDs.
func (hdb *HistoryDB) GetAttack(ctx context.Context, id string) (*model.AttackReport, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	query := `
	SELECT report_json FROM attacks
	WHERE id = ? OR substr(id, 1, ?) = ?
	ORDER BY id = ? DESC
	LIMIT 2
	`

	rows, err := hdb.db.QueryContext(ctx, query, id, len(id), id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attack: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan attack: %w", err)
		}
		found = append(found, reportJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get attack: %w", err)
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(found) > 1:
		// An exact match sorts first; anything else is an ambiguous prefix.
		var first model.AttackReport
		if err := json.Unmarshal([]byte(found[0]), &first); err == nil && first.ID == id {
			return &first, nil
		}
		return nil, fmt.Errorf("%w: prefix %q matches more than one attack", ErrNotFound, id)
	}

	var report model.AttackReport
	if err := json.Unmarshal([]byte(found[0]), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// DeleteBefore removes attacks started before t and returns how many rows
// were removed.
func (hdb *HistoryDB) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := hdb.db.ExecContext(ctx, "DELETE FROM attacks WHERE started_at < ?", t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete attacks: %w", err)
	}
	return result.RowsAffected()
}
