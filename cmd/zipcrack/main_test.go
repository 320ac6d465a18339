package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yeka/zip"
)

// testMainEnv makes the test binary behave like the zipcrack executable.
// The crack command re-executes os.Executable() as its worker processes;
// under go test that is the test binary.
const testMainEnv = "ZIPCRACK_TEST_MAIN"

func TestMain(m *testing.M) {
	if os.Getenv(testMainEnv) == "1" {
		os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
	}
	if err := os.Setenv(testMainEnv, "1"); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = os.Unsetenv(testMainEnv)
	os.Exit(code)
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of worker
// stderr forwarding and the coordinator.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// result is the outcome of one CLI invocation.
type result struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs zipcrack with args and captures its output.
func runCLI(t *testing.T, args ...string) result {
	t.Helper()

	var stdout, stderr syncBuffer
	code := run(args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// crackArgs returns crack arguments that keep a test away from the user's
// configuration file, history database and terminal.
func crackArgs(t *testing.T, dbDir string, extra ...string) []string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(cfgPath, nil, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	args := []string{"crack", "-c", cfgPath, "--db-dir", dbDir, "--no-progress"}
	return append(args, extra...)
}

// writeZip creates an AES-256 encrypted ZIP archive protected by password.
func writeZip(t *testing.T, password string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secret.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Encrypt("flag.txt", password, zip.AES256Encryption)
	if err != nil {
		t.Fatalf("failed to add entry: %v", err)
	}
	if _, err := io.WriteString(w, strings.Repeat("flag{wordlist}\n", 16)); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return path
}

// writeWords creates a wordlist with one word per line.
func writeWords(t *testing.T, words ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("failed to write wordlist: %v", err)
	}
	return path
}
