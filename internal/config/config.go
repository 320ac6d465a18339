package config

import (
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/zipcrack/internal/model"
)

// Isolation modes.
const (
	// IsolationProcess verifies candidates in worker processes that can be
	// killed when a verification hangs or crashes.
	IsolationProcess = "process"

	// IsolationGoroutine verifies candidates in goroutines of the main
	// process. It starts faster but a stuck verification cannot be stopped.
	IsolationGoroutine = "goroutine"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "zipcrack"

	// DefaultIsolation runs verifications in worker processes, so a
	// decryption that crashes or never returns does not take the attack down.
	DefaultIsolation = IsolationProcess

	// DefaultEncoding maps every byte to one character, which makes any
	// wordlist decodable and any single-byte password encodable.
	DefaultEncoding = model.EncodingLatin1

	// DefaultVerifyTimeout of zero means a verification may take as long as
	// it needs. Decrypting a large entry with the right password is slow, so
	// a fixed limit would turn the correct password into an error.
	DefaultVerifyTimeout time.Duration = 0
)

// DefaultWorkers is the default worker pool size.
var DefaultWorkers = runtime.NumCPU()

// Config holds all configuration options for one zipcrack run.
// This struct is populated from CLI flags and the configuration file and
// passed through the application rather than kept in global state.
//
// Design decision: We use a single flat struct, as the number of options is
// small and every option applies to the whole run.
type Config struct {
	// ArchivePath is the password-protected archive to attack.
	ArchivePath string

	// WordlistPath is the file of candidate passwords, one per line.
	WordlistPath string

	// ExactLength keeps only candidates of this many characters.
	// Zero disables the filter.
	ExactLength int

	// Workers is the number of concurrent verifications.
	Workers int

	// VerifyTimeout limits a single verification. Zero means no limit.
	VerifyTimeout time.Duration

	// Isolation is IsolationProcess or IsolationGoroutine.
	Isolation string

	// WordlistEncoding decodes wordlist lines.
	WordlistEncoding model.TextEncoding

	// PasswordEncoding encodes candidates into the bytes handed to the
	// archive. It must match the encoding the archive was created with.
	PasswordEncoding model.TextEncoding

	// SinglePass skips counting the wordlist before the attack. The
	// progress bar then shows a counter without a total.
	SinglePass bool

	// ExtractDir, when set, extracts the archive there once the password
	// is found.
	ExtractDir string

	// NoProgress disables the progress bar.
	NoProgress bool

	// NoHistory disables saving the attack to the history database.
	NoHistory bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .zipcrack is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	// Defaults to XDG data directory (~/.local/share/zipcrack on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:          DefaultWorkers,
		VerifyTimeout:    DefaultVerifyTimeout,
		Isolation:        DefaultIsolation,
		WordlistEncoding: DefaultEncoding,
		PasswordEncoding: DefaultEncoding,
		DBDir:            XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for zipcrack.
// On Linux: ~/.local/share/zipcrack
// On macOS: ~/Library/Application Support/zipcrack
// On Windows: %LOCALAPPDATA%\zipcrack
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for zipcrack.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
//
// Design decision: We validate once after flag parsing so that a bad flag
// fails before the archive or the wordlist is touched.
func (c *Config) Validate() error {
	if c.ArchivePath == "" {
		return ErrNoArchive
	}
	if c.WordlistPath == "" {
		return ErrNoWordlist
	}
	if c.ExactLength < 0 {
		return ErrInvalidLength
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.VerifyTimeout < 0 {
		return ErrInvalidTimeout
	}
	if !slices.Contains([]string{IsolationProcess, IsolationGoroutine}, c.Isolation) {
		return ErrInvalidIsolation
	}
	if _, err := model.ParseTextEncoding(string(c.WordlistEncoding)); err != nil {
		return ErrInvalidEncoding
	}
	if _, err := model.ParseTextEncoding(string(c.PasswordEncoding)); err != nil {
		return ErrInvalidEncoding
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
