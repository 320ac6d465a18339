package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/zipcrack/internal/config"
	"github.com/nao1215/zipcrack/internal/database"
	"github.com/nao1215/zipcrack/internal/model"
	"github.com/nao1215/zipcrack/internal/report"
)

// TestNewCrackCmd tests the crack command flags.
func TestNewCrackCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrackCmd()

	if cmd.Use != "crack" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"file":              "f",
		config.FlagWordlist: "w",
		config.FlagLength:   "l",
		config.FlagWorkers:  "t",
		"config":            "c",
		"json":              "j",
		"markdown":          "m",
		"output":            "o",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	defaults := map[string]string{
		config.FlagIsolation:        config.IsolationProcess,
		config.FlagWordlistEncoding: "latin1",
		config.FlagPasswordEncoding: "latin1",
		config.FlagTimeout:          "0s",
		config.FlagLength:           "0",
	}
	for flag, want := range defaults {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.DefValue != want {
			t.Errorf("flag %q: expected default %q, got %q", flag, want, f.DefValue)
		}
	}
}

// TestCrack tests complete attacks through the command line.
func TestCrack(t *testing.T) {
	t.Parallel()

	archivePath := writeZip(t, "hunter2")
	words := writeWords(t, "letmein", "hunter2", "dragon")

	t.Run("password found", func(t *testing.T) {
		t.Parallel()
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "-t", "2", "--isolation", "goroutine")...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d (stderr %q)", exitFound, res.code, res.stderr)
		}
		if !strings.Contains(res.stdout, "[+] Password found: hunter2") {
			t.Errorf("unexpected stdout %q", res.stdout)
		}
		for _, want := range []string{
			"[INFO] Counting passwords in wordlist...",
			"[INFO] Starting attack with 3 passwords.",
		} {
			if !strings.Contains(res.stderr, want) {
				t.Errorf("expected stderr to contain %q, got %q", want, res.stderr)
			}
		}
	})

	t.Run("single pass skips the count", func(t *testing.T) {
		t.Parallel()
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "--isolation", "goroutine", "--single-pass")...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d", exitFound, res.code)
		}
		if strings.Contains(res.stderr, "Counting") {
			t.Errorf("expected no counting line, got %q", res.stderr)
		}
		if !strings.Contains(res.stderr, "[INFO] Starting attack.\n") {
			t.Errorf("expected start line without a total, got %q", res.stderr)
		}
	})

	t.Run("password not found", func(t *testing.T) {
		t.Parallel()
		other := writeWords(t, "letmein", "dragon")
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", other, "--isolation", "goroutine")...)

		if res.code != exitNotFound {
			t.Fatalf("expected exit code %d, got %d", exitNotFound, res.code)
		}
		if !strings.Contains(res.stdout, "[-] Password not found in the provided wordlist.") {
			t.Errorf("unexpected stdout %q", res.stdout)
		}
	})

	t.Run("length filter", func(t *testing.T) {
		t.Parallel()
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "-l", "7", "--isolation", "goroutine")...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d", exitFound, res.code)
		}
		if !strings.Contains(res.stderr, "[INFO] Starting attack with 2 passwords.") {
			t.Errorf("expected two candidates of length 7, got %q", res.stderr)
		}
	})

	t.Run("verbose details", func(t *testing.T) {
		t.Parallel()
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "-t", "2", "--isolation", "goroutine", "-v")...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d", exitFound, res.code)
		}
		for _, want := range []string{"Archive:    " + archivePath + " (zip)", "Workers:    2 (goroutine)", "Line:       2"} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected stdout to contain %q, got %q", want, res.stdout)
			}
		}
	})

	t.Run("process isolation", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("worker re-execution is not exercised on Windows")
		}
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "-t", "2", "--isolation", "process", "--timeout", "30s")...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d (stderr %q)", exitFound, res.code, res.stderr)
		}
		if !strings.Contains(res.stdout, "[+] Password found: hunter2") {
			t.Errorf("unexpected stdout %q", res.stdout)
		}
	})
}

// TestCrackFatal tests the fatal errors and their messages.
func TestCrackFatal(t *testing.T) {
	t.Parallel()

	archivePath := writeZip(t, "hunter2")
	words := writeWords(t, "letmein", "hunter2")

	notArchive := filepath.Join(t.TempDir(), "notes.zip")
	if err := os.WriteFile(notArchive, []byte("just some text"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.txt")

	tests := []struct {
		name       string
		args       []string
		wantStdout string
		wantStderr string
	}{
		{
			name:       "wordlist not found",
			args:       []string{"-f", archivePath, "-w", missing},
			wantStdout: "Error: Wordlist '" + missing + "' not found.",
		},
		{
			name:       "no candidate of the requested length",
			args:       []string{"-f", archivePath, "-w", words, "-l", "12"},
			wantStdout: "Error: No passwords of length 12 found in the wordlist.",
		},
		{
			name:       "invalid archive",
			args:       []string{"-f", notArchive, "-w", words},
			wantStdout: "Error: '" + notArchive + "' is not a valid archive.",
		},
		{
			name:       "missing archive flag",
			args:       []string{"-w", words},
			wantStderr: "configuration error",
		},
		{
			name:       "invalid isolation",
			args:       []string{"-f", archivePath, "-w", words, "--isolation", "thread"},
			wantStderr: "configuration error",
		},
		{
			name:       "conflicting report formats",
			args:       []string{"-f", archivePath, "-w", words, "-j", "-m"},
			wantStderr: "configuration error",
		},
		{
			name:       "unknown encoding",
			args:       []string{"-f", archivePath, "-w", words, "--password-encoding", "ebcdic"},
			wantStderr: "configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := append(crackArgs(t, t.TempDir(), "--isolation", "goroutine"), tt.args...)
			res := runCLI(t, args...)

			if res.code != exitFatal {
				t.Fatalf("expected exit code %d, got %d (stdout %q)", exitFatal, res.code, res.stdout)
			}
			if tt.wantStdout != "" && !strings.Contains(res.stdout, tt.wantStdout) {
				t.Errorf("expected stdout to contain %q, got %q", tt.wantStdout, res.stdout)
			}
			if tt.wantStderr != "" && !strings.Contains(res.stderr, tt.wantStderr) {
				t.Errorf("expected stderr to contain %q, got %q", tt.wantStderr, res.stderr)
			}
		})
	}

	t.Run("explicit config file not found", func(t *testing.T) {
		t.Parallel()
		res := runCLI(t, "crack", "-f", archivePath, "-w", words,
			"-c", filepath.Join(t.TempDir(), "nope.yaml"), "--no-history")

		if res.code != exitFatal {
			t.Fatalf("expected exit code %d, got %d", exitFatal, res.code)
		}
		if !strings.Contains(res.stderr, "configuration file not found") {
			t.Errorf("unexpected stderr %q", res.stderr)
		}
	})
}

// TestCrackReportFile tests writing the report to a file.
func TestCrackReportFile(t *testing.T) {
	t.Parallel()

	archivePath := writeZip(t, "hunter2")
	words := writeWords(t, "letmein", "hunter2")

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		reportPath := filepath.Join(t.TempDir(), "reports", "attack.json")
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "--isolation", "goroutine", "-j", "-o", reportPath)...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d", exitFound, res.code)
		}
		if res.stdout != "" {
			t.Errorf("expected nothing on stdout, got %q", res.stdout)
		}

		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var doc struct {
			Version string `json:"version"`
			Report  struct {
				Outcome  string `json:"outcome"`
				Password string `json:"password"`
				Format   string `json:"archive_format"`
			} `json:"report"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("invalid JSON report: %v", err)
		}
		if doc.Version == "" {
			t.Error("expected version in report")
		}
		if doc.Report.Outcome != string(model.OutcomeFound) || doc.Report.Password != "hunter2" {
			t.Errorf("unexpected report %+v", doc.Report)
		}
		if doc.Report.Format != "zip" {
			t.Errorf("expected zip format, got %q", doc.Report.Format)
		}

		if runtime.GOOS != "windows" {
			info, err := os.Stat(reportPath)
			if err != nil {
				t.Fatalf("failed to stat report: %v", err)
			}
			if perm := info.Mode().Perm(); perm != 0o600 {
				t.Errorf("expected permissions 0600, got %o", perm)
			}
		}
	})

	t.Run("markdown masks the password", func(t *testing.T) {
		t.Parallel()
		reportPath := filepath.Join(t.TempDir(), "attack.md")
		res := runCLI(t, crackArgs(t, t.TempDir(),
			"-f", archivePath, "-w", words, "--isolation", "goroutine", "-m", "-o", reportPath)...)

		if res.code != exitFound {
			t.Fatalf("expected exit code %d, got %d", exitFound, res.code)
		}
		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if strings.Contains(string(data), "hunter2") {
			t.Error("expected the password to be masked")
		}
	})
}

// TestCrackExtract tests extracting the archive after a successful attack.
func TestCrackExtract(t *testing.T) {
	t.Parallel()

	archivePath := writeZip(t, "hunter2")
	words := writeWords(t, "hunter2")
	outDir := filepath.Join(t.TempDir(), "out")

	res := runCLI(t, crackArgs(t, t.TempDir(),
		"-f", archivePath, "-w", words, "--isolation", "goroutine", "--extract", outDir)...)

	if res.code != exitFound {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitFound, res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "[INFO] Extracted 1 files to "+outDir) {
		t.Errorf("unexpected stderr %q", res.stderr)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "flag.txt"))
	if err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
	if !strings.HasPrefix(string(data), "flag{wordlist}") {
		t.Errorf("unexpected extracted content %q", data)
	}
}

// TestCrackHistory tests that attacks are saved and listed by history.
func TestCrackHistory(t *testing.T) {
	t.Parallel()

	archivePath := writeZip(t, "hunter2")
	dbDir := t.TempDir()

	found := runCLI(t, crackArgs(t, dbDir,
		"-f", archivePath, "-w", writeWords(t, "hunter2"), "--isolation", "goroutine")...)
	if found.code != exitFound {
		t.Fatalf("expected exit code %d, got %d", exitFound, found.code)
	}
	notFound := runCLI(t, crackArgs(t, dbDir,
		"-f", archivePath, "-w", writeWords(t, "dragon"), "--isolation", "goroutine")...)
	if notFound.code != exitNotFound {
		t.Fatalf("expected exit code %d, got %d", exitNotFound, notFound.code)
	}

	listJSON := func(t *testing.T, args ...string) report.JSONHistory {
		t.Helper()
		res := runCLI(t, append([]string{"history", "--db-dir", dbDir, "-j"}, args...)...)
		if res.code != 0 {
			t.Fatalf("history failed with %d: %q", res.code, res.stderr)
		}
		var doc report.JSONHistory
		if err := json.Unmarshal([]byte(res.stdout), &doc); err != nil {
			t.Fatalf("invalid JSON history: %v", err)
		}
		return doc
	}

	all := listJSON(t)
	if len(all.Attacks) != 2 {
		t.Fatalf("expected 2 attacks, got %d", len(all.Attacks))
	}
	if all.Attacks[0].Outcome != model.OutcomeNotFound {
		t.Errorf("expected newest attack first, got %s", all.Attacks[0].Outcome)
	}

	onlyFound := listJSON(t, "--outcome", "found")
	if len(onlyFound.Attacks) != 1 || onlyFound.Attacks[0].Password != "hunter2" {
		t.Fatalf("unexpected found attacks %+v", onlyFound.Attacks)
	}

	byArchive := listJSON(t, "--archive", archivePath)
	if len(byArchive.Attacks) != 2 {
		t.Errorf("expected 2 attacks against the archive, got %d", len(byArchive.Attacks))
	}

	id := onlyFound.Attacks[0].ID
	res := runCLI(t, "history", "--db-dir", dbDir, "--id", id[:8])
	if res.code != 0 {
		t.Fatalf("history --id failed with %d: %q", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Password found: hunter2") {
		t.Errorf("unexpected history output %q", res.stdout)
	}

	res = runCLI(t, "history", "--db-dir", dbDir)
	if !strings.Contains(res.stdout, id[:8]) {
		t.Errorf("expected listing to contain %s, got %q", id[:8], res.stdout)
	}
}

// TestCrackNoHistory tests that --no-history leaves no database behind.
func TestCrackNoHistory(t *testing.T) {
	t.Parallel()

	dbDir := filepath.Join(t.TempDir(), "db")
	res := runCLI(t, crackArgs(t, dbDir,
		"-f", writeZip(t, "hunter2"), "-w", writeWords(t, "hunter2"),
		"--isolation", "goroutine", "--no-history")...)

	if res.code != exitFound {
		t.Fatalf("expected exit code %d, got %d", exitFound, res.code)
	}
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); !os.IsNotExist(err) {
		t.Errorf("expected no history database, got %v", err)
	}
}

// TestBuildConfig tests merging flags with the configuration file.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	wordlistPath := filepath.Join(t.TempDir(), "backup-words.txt")
	cfgPath := filepath.Join(t.TempDir(), ".zipcrack")
	content := `defaults:
  workers: 3
  isolation: goroutine
  timeout: 5s
  history: false
archives:
  backup.zip:
    wordlist: ` + wordlistPath + `
    length: 8
    password_encoding: utf-8
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Run("file fills unset flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrackCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgPath, "-f", "/data/backup.zip", "-t", "5"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 5 {
			t.Errorf("expected the flag to win for workers, got %d", cfg.Workers)
		}
		if cfg.Isolation != config.IsolationGoroutine {
			t.Errorf("expected isolation from defaults, got %q", cfg.Isolation)
		}
		if cfg.VerifyTimeout != 5*time.Second {
			t.Errorf("expected timeout from defaults, got %s", cfg.VerifyTimeout)
		}
		if !cfg.NoHistory {
			t.Error("expected history to be disabled by the file")
		}
		if cfg.WordlistPath != wordlistPath || cfg.ExactLength != 8 {
			t.Errorf("expected archive settings, got wordlist %q length %d", cfg.WordlistPath, cfg.ExactLength)
		}
		if cfg.PasswordEncoding != model.EncodingUTF8 {
			t.Errorf("expected utf-8 password encoding, got %q", cfg.PasswordEncoding)
		}
	})

	t.Run("archive section only applies to its archive", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrackCmd()
		if err := cmd.ParseFlags([]string{"-c", cfgPath, "-f", "other.zip", "-w", "words.txt"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.WordlistPath != "words.txt" || cfg.ExactLength != 0 {
			t.Errorf("unexpected wordlist %q length %d", cfg.WordlistPath, cfg.ExactLength)
		}
		if cfg.Workers != 3 {
			t.Errorf("expected workers from defaults, got %d", cfg.Workers)
		}
	})
}

// TestNormalizeEncodings tests that encoding aliases are canonicalized.
func TestNormalizeEncodings(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.WordlistEncoding = "ISO-8859-1"
	cfg.PasswordEncoding = "utf8"

	if err := normalizeEncodings(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WordlistEncoding != model.EncodingLatin1 {
		t.Errorf("expected latin1, got %q", cfg.WordlistEncoding)
	}
	if cfg.PasswordEncoding != model.EncodingUTF8 {
		t.Errorf("expected utf-8, got %q", cfg.PasswordEncoding)
	}
}
