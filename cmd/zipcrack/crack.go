package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/zipcrack/internal/archive"
	"github.com/nao1215/zipcrack/internal/config"
	"github.com/nao1215/zipcrack/internal/database"
	"github.com/nao1215/zipcrack/internal/isolate"
	"github.com/nao1215/zipcrack/internal/log"
	"github.com/nao1215/zipcrack/internal/model"
	"github.com/nao1215/zipcrack/internal/pipeline"
	"github.com/nao1215/zipcrack/internal/progress"
	"github.com/nao1215/zipcrack/internal/report"
)

// NewCrackCmd creates the crack command.
func NewCrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crack",
		Short: "Recover an archive password from a wordlist",
		Long: `Crack tries every password of a wordlist against an encrypted ZIP or RAR
archive until one opens it.

The wordlist is read twice: once to count the candidates for the progress
bar, once to try them. Use --single-pass to skip the count.

Exit status is 0 when the password is found, 2 when the wordlist is
exhausted, and 1 on any error.

Examples:
  # Try every password of rockyou.txt
  zipcrack crack -f secret.zip -w rockyou.txt

  # Only try 6-character passwords with 8 workers
  zipcrack crack -f secret.zip -w rockyou.txt -l 6 -t 8

  # Extract the archive once the password is found
  zipcrack crack -f secret.zip -w rockyou.txt --extract ./out

  # Write a JSON report
  zipcrack crack -f secret.zip -w rockyou.txt -j -o report.json

Configuration file (.zipcrack) example:
  defaults:
    workers: 8
    isolation: process
  archives:
    backup.zip:
      wordlist: /lists/backup-passwords.txt
      length: 8`,
		Args: cobra.NoArgs,
		RunE: runCrackCmd,
	}

	// Attack inputs
	cmd.Flags().StringP("file", "f", "", "Encrypted ZIP or RAR archive to attack")
	cmd.Flags().StringP(config.FlagWordlist, "w", "", "Wordlist file, one password per line")
	cmd.Flags().IntP(config.FlagLength, "l", 0, "Only try passwords of exactly this length (0 = any)")

	// Attack behavior
	cmd.Flags().IntP(config.FlagWorkers, "t", config.DefaultWorkers, "Number of concurrent verifications")
	cmd.Flags().Duration(config.FlagTimeout, config.DefaultVerifyTimeout,
		"Time limit for one verification (0 = no limit)")
	cmd.Flags().String(config.FlagIsolation, config.DefaultIsolation,
		"Where verifications run: process or goroutine")
	cmd.Flags().String(config.FlagWordlistEncoding, string(config.DefaultEncoding),
		"Encoding of the wordlist: latin1 or utf-8")
	cmd.Flags().String(config.FlagPasswordEncoding, string(config.DefaultEncoding),
		"Encoding the archive password was created with: latin1 or utf-8")
	cmd.Flags().Bool(config.FlagSinglePass, false, "Do not count the wordlist before the attack")
	cmd.Flags().String("extract", "", "Extract the archive into this directory once the password is found")

	// Output
	cmd.Flags().Bool(config.FlagNoProgress, false, "Disable the progress bar")
	cmd.Flags().Bool(config.FlagNoHistory, false, "Do not save the attack to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .zipcrack in current or home directory)")
	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().Bool("reveal", false, "Show the found password in Markdown reports")
	cmd.Flags().StringP("output", "o", "", "Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrackCmd executes the crack command.
func runCrackCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := normalizeEncodings(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reveal, err := cmd.Flags().GetBool("reveal")
	if err != nil {
		return err
	}

	c := &cracker{
		cfg:    cfg,
		logger: logger,
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
		reveal: reveal,
	}
	return c.run(ctx)
}

// buildConfig creates a Config from flags and the configuration file.
// Values from the file are used for every flag the user did not set.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ArchivePath, err = flags.GetString("file"); err != nil {
		return nil, err
	}
	if cfg.WordlistPath, err = flags.GetString(config.FlagWordlist); err != nil {
		return nil, err
	}
	if cfg.ExactLength, err = flags.GetInt(config.FlagLength); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt(config.FlagWorkers); err != nil {
		return nil, err
	}
	if cfg.VerifyTimeout, err = flags.GetDuration(config.FlagTimeout); err != nil {
		return nil, err
	}
	if cfg.Isolation, err = flags.GetString(config.FlagIsolation); err != nil {
		return nil, err
	}
	wordlistEnc, err := flags.GetString(config.FlagWordlistEncoding)
	if err != nil {
		return nil, err
	}
	cfg.WordlistEncoding = model.TextEncoding(wordlistEnc)
	passwordEnc, err := flags.GetString(config.FlagPasswordEncoding)
	if err != nil {
		return nil, err
	}
	cfg.PasswordEncoding = model.TextEncoding(passwordEnc)
	if cfg.SinglePass, err = flags.GetBool(config.FlagSinglePass); err != nil {
		return nil, err
	}
	if cfg.ExtractDir, err = flags.GetString("extract"); err != nil {
		return nil, err
	}
	if cfg.NoProgress, err = flags.GetBool(config.FlagNoProgress); err != nil {
		return nil, err
	}
	if cfg.NoHistory, err = flags.GetBool(config.FlagNoHistory); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// If the user explicitly specified a config file path, error if not found.
	// Otherwise silently run without one.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.GetArchiveSettings(cfg.ArchivePath).Apply(cfg, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	return cfg, nil
}

// normalizeEncodings replaces encoding aliases such as "utf8" by their
// canonical name.
func normalizeEncodings(cfg *config.Config) error {
	wordlistEnc, err := model.ParseTextEncoding(string(cfg.WordlistEncoding))
	if err != nil {
		return err
	}
	passwordEnc, err := model.ParseTextEncoding(string(cfg.PasswordEncoding))
	if err != nil {
		return err
	}
	cfg.WordlistEncoding, cfg.PasswordEncoding = wordlistEnc, passwordEnc
	return nil
}

// cracker runs one attack for the crack command.
type cracker struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	reveal bool

	// newOracle overrides the oracle factory; nil selects it from cfg.
	newOracle pipeline.OracleFactory
}

// run executes the attack, writes the report, saves it to the history and
// extracts the archive. It returns an *ExitError for every outcome other
// than a found password.
func (c *cracker) run(ctx context.Context) error {
	var bar *progress.Bar

	opts := pipeline.Options{
		ArchivePath:      c.cfg.ArchivePath,
		WordlistPath:     c.cfg.WordlistPath,
		ExactLength:      c.cfg.ExactLength,
		Workers:          c.cfg.Workers,
		WordlistEncoding: c.cfg.WordlistEncoding,
		PasswordEncoding: c.cfg.PasswordEncoding,
		SinglePass:       c.cfg.SinglePass,
		Isolation:        c.cfg.Isolation,
		VerifyTimeout:    c.cfg.VerifyTimeout,
		NewOracle:        c.oracleFactory(),
		Logger:           c.logger,
		StateHook: func(state model.State, r *model.AttackReport) {
			switch state {
			case model.StateCounting:
				if !c.cfg.SinglePass {
					c.info("Counting passwords in wordlist...")
				}
			case model.StateSearching:
				if total, ok := r.Progress.Total(); ok {
					c.info("Starting attack with %d passwords.", total)
				} else {
					c.info("Starting attack.")
				}
				if c.showProgress() {
					bar = progress.NewBar(c.stderr, r.Progress, progress.WithPrefix(filepath.Base(r.ArchivePath)))
					bar.Start()
				}
			default:
				if state.Terminal() && bar != nil {
					bar.Stop()
				}
			}
		},
	}

	attackReport, attackErr := pipeline.Attack(ctx, opts)
	if attackErr != nil {
		c.logger.Debug("attack aborted", "reason", attackReport.AbortReason, "error", attackErr)
	}

	if err := c.writeReport(attackReport); err != nil {
		return err
	}

	// The attack context may be cancelled already; the history and the
	// extraction still run to completion.
	after := context.WithoutCancel(ctx)

	if !c.cfg.NoHistory {
		if err := c.saveHistory(after, attackReport); err != nil {
			c.logger.Warn("failed to save attack history", "error", err)
		}
	}

	switch attackReport.Outcome {
	case model.OutcomeFound:
		if c.cfg.ExtractDir != "" {
			if err := c.extract(after, attackReport); err != nil {
				return err
			}
		}
		return nil
	case model.OutcomeNotFound:
		return &ExitError{Code: exitNotFound}
	default:
		return &ExitError{Code: exitFatal}
	}
}

// oracleFactory returns the oracle factory for the configured isolation.
func (c *cracker) oracleFactory() pipeline.OracleFactory {
	switch {
	case c.newOracle != nil:
		return c.newOracle
	case c.cfg.Isolation == config.IsolationGoroutine:
		return pipeline.InProcessOracle(c.cfg.VerifyTimeout)
	default:
		return c.processOracle
	}
}

// processOracle starts a pool of worker processes running this executable's
// hidden worker command.
func (c *cracker) processOracle(_ context.Context, s *pipeline.Session) (isolate.Verifier, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate the zipcrack executable: %w", err)
	}
	archivePath, err := filepath.Abs(s.Archive.Path())
	if err != nil {
		return nil, err
	}

	args := []string{
		"worker",
		"--archive", archivePath,
		"--" + config.FlagPasswordEncoding, string(s.Options.PasswordEncoding),
	}
	if c.cfg.Verbose {
		args = append(args, "--verbose")
	}

	return isolate.NewPool(s.Options.Workers,
		isolate.WithCommand(exe, args...),
		isolate.WithTimeout(c.cfg.VerifyTimeout),
		isolate.WithStderr(c.stderr),
		isolate.WithLogger(c.logger),
	), nil
}

// showProgress reports whether the progress bar should be drawn.
// The bar needs a terminal; redirected stderr gets the [INFO] lines only.
func (c *cracker) showProgress() bool {
	if c.cfg.NoProgress {
		return false
	}
	f, ok := c.stderr.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// info writes an [INFO] line to stderr.
func (c *cracker) info(format string, args ...any) {
	fmt.Fprintf(c.stderr, "[INFO] "+format+"\n", args...)
}

// writeReport writes the report in the requested format to stdout or the
// report file.
func (c *cracker) writeReport(r *model.AttackReport) error {
	return withReportOutput(c.cfg.ReportFile, c.stdout, func(w io.Writer, toFile bool) error {
		_, err := newReportWriter(c.cfg, w, toFile, c.reveal).Write(r)
		return err
	})
}

// saveHistory stores the report in the history database.
func (c *cracker) saveHistory(ctx context.Context, r *model.AttackReport) error {
	db, err := database.Open(c.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveAttack(ctx, r); err != nil {
		return err
	}
	c.logger.Debug("attack saved to history", "id", r.ID, "db", db.Path())
	return nil
}

// extract writes the archive contents into the extract directory.
func (c *cracker) extract(ctx context.Context, r *model.AttackReport) error {
	a, err := archive.Open(r.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to reopen archive for extraction: %w", err)
	}
	defer a.Close()

	password := model.NewCandidate(r.Password, r.PasswordLine)
	n, err := a.Extract(ctx, password, c.cfg.PasswordEncoding, c.cfg.ExtractDir)
	if err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}
	c.info("Extracted %d files to %s", n, c.cfg.ExtractDir)
	return nil
}

// newReportWriter returns the writer for the configured report format.
func newReportWriter(cfg *config.Config, w io.Writer, toFile, reveal bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w, report.WithRevealPassword(reveal))
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if toFile {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(w, opts...)
	}
}

// withReportOutput calls write with the report file, or with stdout when
// path is empty.
func withReportOutput(path string, stdout io.Writer, write func(w io.Writer, toFile bool) error) error {
	if path == "" {
		return write(stdout, false)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may contain the recovered password and are only readable by the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(f, true); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
