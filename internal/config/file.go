package config

import (
	"path/filepath"
	"time"

	"github.com/nao1215/zipcrack/internal/model"
)

// Settings holds the options a configuration file may set, either for all
// attacks or for one archive.
// Pointer fields distinguish "not set" from the zero value.
type Settings struct {
	// Wordlist is the default wordlist. Mostly useful per archive.
	Wordlist string `yaml:"wordlist,omitempty"`

	// Length is the exact password length to try.
	Length int `yaml:"length,omitempty"`

	// Workers overrides the worker pool size.
	Workers int `yaml:"workers,omitempty"`

	// Timeout limits a single verification, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Isolation is "process" or "goroutine".
	Isolation string `yaml:"isolation,omitempty"`

	// WordlistEncoding decodes wordlist lines.
	WordlistEncoding string `yaml:"wordlist_encoding,omitempty"`

	// PasswordEncoding encodes candidates for the archive.
	PasswordEncoding string `yaml:"password_encoding,omitempty"`

	// SinglePass skips counting the wordlist.
	SinglePass *bool `yaml:"single_pass,omitempty"`

	// Progress enables the progress bar.
	Progress *bool `yaml:"progress,omitempty"`

	// History enables saving attacks to the history database.
	History *bool `yaml:"history,omitempty"`
}

// File represents the structure of the .zipcrack configuration file.
type File struct {
	// Defaults apply to every attack.
	Defaults Settings `yaml:"defaults,omitempty"`

	// Archives maps an archive path or file name to settings that override
	// Defaults when that archive is attacked.
	Archives map[string]Settings `yaml:"archives,omitempty"`
}

// GetArchiveSettings returns the settings for archivePath, merging the
// archive entry over the defaults. The entry is looked up by the path as
// given, then by its file name.
func (cf *File) GetArchiveSettings(archivePath string) Settings {
	result := cf.Defaults

	entry, ok := cf.Archives[archivePath]
	if !ok {
		entry, ok = cf.Archives[filepath.Base(archivePath)]
	}
	if !ok {
		return result
	}

	if entry.Wordlist != "" {
		result.Wordlist = entry.Wordlist
	}
	if entry.Length != 0 {
		result.Length = entry.Length
	}
	if entry.Workers != 0 {
		result.Workers = entry.Workers
	}
	if entry.Timeout != 0 {
		result.Timeout = entry.Timeout
	}
	if entry.Isolation != "" {
		result.Isolation = entry.Isolation
	}
	if entry.WordlistEncoding != "" {
		result.WordlistEncoding = entry.WordlistEncoding
	}
	if entry.PasswordEncoding != "" {
		result.PasswordEncoding = entry.PasswordEncoding
	}
	if entry.SinglePass != nil {
		result.SinglePass = entry.SinglePass
	}
	if entry.Progress != nil {
		result.Progress = entry.Progress
	}
	if entry.History != nil {
		result.History = entry.History
	}
	return result
}

// Flag names that Settings can fill in. Apply leaves a field alone when
// its flag was set on the command line.
const (
	FlagWordlist         = "wordlist"
	FlagLength           = "length"
	FlagWorkers          = "threads"
	FlagTimeout          = "timeout"
	FlagIsolation        = "isolation"
	FlagWordlistEncoding = "wordlist-encoding"
	FlagPasswordEncoding = "password-encoding"
	FlagSinglePass       = "single-pass"
	FlagNoProgress       = "no-progress"
	FlagNoHistory        = "no-history"
)

// Apply copies the set fields of s into cfg, skipping every field whose
// flag is reported as changed.
func (s Settings) Apply(cfg *Config, changed func(flag string) bool) {
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if s.Wordlist != "" && !changed(FlagWordlist) {
		cfg.WordlistPath = s.Wordlist
	}
	if s.Length != 0 && !changed(FlagLength) {
		cfg.ExactLength = s.Length
	}
	if s.Workers != 0 && !changed(FlagWorkers) {
		cfg.Workers = s.Workers
	}
	if s.Timeout != 0 && !changed(FlagTimeout) {
		cfg.VerifyTimeout = s.Timeout
	}
	if s.Isolation != "" && !changed(FlagIsolation) {
		cfg.Isolation = s.Isolation
	}
	if s.WordlistEncoding != "" && !changed(FlagWordlistEncoding) {
		cfg.WordlistEncoding = model.TextEncoding(s.WordlistEncoding)
	}
	if s.PasswordEncoding != "" && !changed(FlagPasswordEncoding) {
		cfg.PasswordEncoding = model.TextEncoding(s.PasswordEncoding)
	}
	if s.SinglePass != nil && !changed(FlagSinglePass) {
		cfg.SinglePass = *s.SinglePass
	}
	if s.Progress != nil && !changed(FlagNoProgress) {
		cfg.NoProgress = !*s.Progress
	}
	if s.History != nil && !changed(FlagNoHistory) {
		cfg.NoHistory = !*s.History
	}
}
