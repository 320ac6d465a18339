package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/zipcrack/internal/archive"
	"github.com/nao1215/zipcrack/internal/config"
	"github.com/nao1215/zipcrack/internal/database"
	"github.com/nao1215/zipcrack/internal/model"
)

// defaultHistoryLimit is how many attacks history lists by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past attacks",
		Long: `History lists the attacks saved by the crack command, newest first.

Examples:
  # List the last 20 attacks
  zipcrack history

  # List attacks against one archive (matched by content, not by name)
  zipcrack history --archive secret.zip

  # Show one attack in full, by ID or ID prefix
  zipcrack history --id 1b4e28ba

  # Delete attacks older than 30 days
  zipcrack history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("archive", "", "Only list attacks against this archive")
	cmd.Flags().String("outcome", "", "Only list attacks with this outcome: found, not_found or aborted")
	cmd.Flags().Int("limit", defaultHistoryLimit, "Maximum number of attacks to list (0 = all)")
	cmd.Flags().String("id", "", "Show the attack with this ID or ID prefix")
	cmd.Flags().Duration("prune", 0, "Delete attacks older than this duration instead of listing")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown (mutually exclusive with --json)")

	return cmd
}

// historyOptions are the parsed history flags.
type historyOptions struct {
	archivePath string
	outcome     model.Outcome
	limit       int
	id          string
	prune       time.Duration
	dbDir       string
	cfg         *config.Config
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Nothing saved yet: an empty listing, not an error.
			if opts.id != "" {
				return fmt.Errorf("%w: %s", database.ErrNotFound, opts.id)
			}
			_, err := newReportWriter(opts.cfg, cmd.OutOrStdout(), false, false).WriteHistory(nil)
			return err
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return showHistory(ctx, db, opts, cmd.OutOrStdout())
}

// parseHistoryFlags reads and checks the history flags.
func parseHistoryFlags(cmd *cobra.Command) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{cfg: config.NewConfig()}

	var err error
	if opts.archivePath, err = flags.GetString("archive"); err != nil {
		return nil, err
	}
	outcome, err := flags.GetString("outcome")
	if err != nil {
		return nil, err
	}
	opts.outcome = model.Outcome(outcome)
	switch opts.outcome {
	case model.OutcomeNone, model.OutcomeFound, model.OutcomeNotFound, model.OutcomeAborted:
	default:
		return nil, fmt.Errorf("invalid outcome %q: must be found, not_found or aborted", outcome)
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.id, err = flags.GetString("id"); err != nil {
		return nil, err
	}
	if opts.prune, err = flags.GetDuration("prune"); err != nil {
		return nil, err
	}
	if opts.prune < 0 {
		return nil, errors.New("invalid prune duration: must be positive")
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if opts.cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.cfg.JSONReport && opts.cfg.MarkdownReport {
		return nil, config.ErrConflictingReportFormats
	}
	opts.cfg.Verbose = getVerboseFlag(cmd)

	return opts, nil
}

// showHistory prunes, shows one attack, or lists attacks, depending on opts.
func showHistory(ctx context.Context, db *database.HistoryDB, opts *historyOptions, out io.Writer) error {
	if opts.prune > 0 {
		n, err := db.DeleteBefore(ctx, time.Now().Add(-opts.prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d attacks older than %s.\n", n, opts.prune)
		return nil
	}

	w := newReportWriter(opts.cfg, out, false, false)

	if opts.id != "" {
		r, err := db.GetAttack(ctx, opts.id)
		if err != nil {
			return err
		}
		_, err = w.Write(r)
		return err
	}

	filter := database.Filter{Outcome: opts.outcome, Limit: opts.limit}
	if opts.archivePath != "" {
		fingerprint, err := archiveFingerprint(opts.archivePath)
		if err != nil {
			return err
		}
		filter.Fingerprint = fingerprint
	}

	reports, err := db.ListAttacks(ctx, filter)
	if err != nil {
		return err
	}
	_, err = w.WriteHistory(reports)
	return err
}

// archiveFingerprint returns the fingerprint attacks against path were
// saved under.
func archiveFingerprint(path string) (string, error) {
	a, err := archive.Open(path)
	if err != nil {
		return "", err
	}
	defer a.Close()
	return a.Fingerprint()
}
