package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/zipcrack/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Workers is the CPU count", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != DefaultWorkers || cfg.Workers < 1 {
			t.Errorf("expected Workers to be %d, got %d", DefaultWorkers, cfg.Workers)
		}
	})

	t.Run("default Isolation is process", func(t *testing.T) {
		t.Parallel()
		if cfg.Isolation != IsolationProcess {
			t.Errorf("expected Isolation to be %q, got %q", IsolationProcess, cfg.Isolation)
		}
	})

	t.Run("default encodings are latin1", func(t *testing.T) {
		t.Parallel()
		if cfg.WordlistEncoding != model.EncodingLatin1 || cfg.PasswordEncoding != model.EncodingLatin1 {
			t.Errorf("expected latin1 encodings, got %q and %q", cfg.WordlistEncoding, cfg.PasswordEncoding)
		}
	})

	t.Run("default VerifyTimeout is disabled", func(t *testing.T) {
		t.Parallel()
		if cfg.VerifyTimeout != 0 {
			t.Errorf("expected VerifyTimeout to be 0, got %v", cfg.VerifyTimeout)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir to be %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("defaults need only archive and wordlist", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.ArchivePath = "secret.zip"
		c.WordlistPath = "words.txt"
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		return &Config{
			ArchivePath:      "secret.zip",
			WordlistPath:     "words.txt",
			Workers:          4,
			Isolation:        IsolationGoroutine,
			WordlistEncoding: model.EncodingUTF8,
			PasswordEncoding: model.EncodingLatin1,
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid config", func(*Config) {}, nil},
		{"length filter", func(c *Config) { c.ExactLength = 8 }, nil},
		{"timeout", func(c *Config) { c.VerifyTimeout = time.Second }, nil},
		{"encoding alias", func(c *Config) { c.PasswordEncoding = "UTF8" }, nil},
		{"no archive", func(c *Config) { c.ArchivePath = "" }, ErrNoArchive},
		{"no wordlist", func(c *Config) { c.WordlistPath = "" }, ErrNoWordlist},
		{"negative length", func(c *Config) { c.ExactLength = -1 }, ErrInvalidLength},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative timeout", func(c *Config) { c.VerifyTimeout = -time.Second }, ErrInvalidTimeout},
		{"unknown isolation", func(c *Config) { c.Isolation = "container" }, ErrInvalidIsolation},
		{"empty isolation", func(c *Config) { c.Isolation = "" }, ErrInvalidIsolation},
		{"unknown wordlist encoding", func(c *Config) { c.WordlistEncoding = "ebcdic" }, ErrInvalidEncoding},
		{"unknown password encoding", func(c *Config) { c.PasswordEncoding = "utf-16" }, ErrInvalidEncoding},
		{
			"json and markdown",
			func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

// TestFileGetArchiveSettings tests merging archive entries over defaults.
func TestFileGetArchiveSettings(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: Settings{
			Workers:          8,
			Isolation:        IsolationProcess,
			PasswordEncoding: "latin1",
			Progress:         ptr(true),
		},
		Archives: map[string]Settings{
			"backup.zip": {
				Wordlist:         "/lists/backup.txt",
				Length:           6,
				PasswordEncoding: "utf-8",
				Progress:         ptr(false),
			},
			"/exact/path/report.zip": {
				Workers: 2,
			},
		},
	}

	t.Run("unknown archive gets defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetArchiveSettings("/tmp/other.zip")
		if got.Workers != 8 || got.Wordlist != "" || got.Length != 0 {
			t.Errorf("GetArchiveSettings() = %+v", got)
		}
	})

	t.Run("matched by file name", func(t *testing.T) {
		t.Parallel()

		got := cf.GetArchiveSettings("/home/me/backup.zip")
		if got.Wordlist != "/lists/backup.txt" || got.Length != 6 {
			t.Errorf("entry fields not applied: %+v", got)
		}
		if got.Workers != 8 || got.Isolation != IsolationProcess {
			t.Errorf("defaults not kept: %+v", got)
		}
		if got.PasswordEncoding != "utf-8" {
			t.Errorf("PasswordEncoding = %q, want utf-8", got.PasswordEncoding)
		}
		if got.Progress == nil || *got.Progress {
			t.Error("Progress should be overridden to false")
		}
	})

	t.Run("matched by exact path", func(t *testing.T) {
		t.Parallel()

		got := cf.GetArchiveSettings("/exact/path/report.zip")
		if got.Workers != 2 {
			t.Errorf("Workers = %d, want 2", got.Workers)
		}
	})

	t.Run("nil archives map", func(t *testing.T) {
		t.Parallel()

		empty := &File{Defaults: Settings{Length: 4}}
		if got := empty.GetArchiveSettings("a.zip"); got.Length != 4 {
			t.Errorf("Length = %d, want 4", got.Length)
		}
	})
}

// TestSettingsApply tests that file settings fill in the config without
// overriding flags set on the command line.
func TestSettingsApply(t *testing.T) {
	t.Parallel()

	s := Settings{
		Wordlist:         "/lists/default.txt",
		Length:           5,
		Workers:          3,
		Timeout:          10 * time.Second,
		Isolation:        IsolationGoroutine,
		WordlistEncoding: "utf-8",
		PasswordEncoding: "utf-8",
		SinglePass:       ptr(true),
		Progress:         ptr(false),
		History:          ptr(false),
	}

	t.Run("nothing changed", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		s.Apply(cfg, nil)

		if cfg.WordlistPath != "/lists/default.txt" || cfg.ExactLength != 5 || cfg.Workers != 3 {
			t.Errorf("Apply() = %+v", cfg)
		}
		if cfg.VerifyTimeout != 10*time.Second || cfg.Isolation != IsolationGoroutine {
			t.Errorf("Apply() = %+v", cfg)
		}
		if cfg.WordlistEncoding != model.EncodingUTF8 || cfg.PasswordEncoding != model.EncodingUTF8 {
			t.Errorf("Apply() encodings = %q, %q", cfg.WordlistEncoding, cfg.PasswordEncoding)
		}
		if !cfg.SinglePass || !cfg.NoProgress || !cfg.NoHistory {
			t.Errorf("Apply() switches = %+v", cfg)
		}
	})

	t.Run("changed flags win", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Workers = 16
		cfg.ExactLength = 0
		changed := map[string]bool{FlagWorkers: true, FlagLength: true, FlagNoProgress: true}
		s.Apply(cfg, func(name string) bool { return changed[name] })

		if cfg.Workers != 16 {
			t.Errorf("Workers = %d, want 16", cfg.Workers)
		}
		if cfg.ExactLength != 0 {
			t.Errorf("ExactLength = %d, want 0", cfg.ExactLength)
		}
		if cfg.NoProgress {
			t.Error("NoProgress should keep its flag value")
		}
		if cfg.Isolation != IsolationGoroutine {
			t.Errorf("Isolation = %q, unchanged flags should be applied", cfg.Isolation)
		}
	})

	t.Run("empty settings change nothing", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		want := *cfg
		Settings{}.Apply(cfg, nil)
		if *cfg != want {
			t.Errorf("Apply() changed config: %+v", cfg)
		}
	})
}

// TestLoadConfigFile tests loading YAML configuration files.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads defaults and archives", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `
defaults:
  workers: 12
  timeout: 30s
  isolation: goroutine
  single_pass: true
  progress: false
archives:
  backup.zip:
    wordlist: /lists/backup.txt
    length: 8
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if cf.Defaults.Workers != 12 || cf.Defaults.Timeout != 30*time.Second {
			t.Errorf("Defaults = %+v", cf.Defaults)
		}
		if cf.Defaults.SinglePass == nil || !*cf.Defaults.SinglePass {
			t.Error("single_pass should be true")
		}
		if cf.Defaults.Progress == nil || *cf.Defaults.Progress {
			t.Error("progress should be false")
		}
		if cf.Defaults.History != nil {
			t.Error("history should be unset")
		}
		if got := cf.Archives["backup.zip"]; got.Length != 8 || got.Wordlist != "/lists/backup.txt" {
			t.Errorf("Archives[backup.zip] = %+v", got)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if cf.Archives == nil {
			t.Error("Archives should be initialized")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfigFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("defaults: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("LoadConfigFile() should fail on invalid YAML")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("defaults:\n  timeout: soon\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("LoadConfigFile() should fail on an invalid duration")
		}
	})
}

// TestFindConfigFile tests the explicit path branch of config discovery.
// The cwd and home branches depend on process-wide state and are covered
// by the CLI tests.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("defaults: {}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}

// TestXDGDirs tests that XDG directories end with the application name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("%s dir %q should end with %q", name, dir, AppName)
		}
	}
}
