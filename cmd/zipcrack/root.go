package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	// exitFound means the password was found.
	exitFound = 0

	// exitFatal means the attack was aborted or the command line was invalid.
	exitFatal = 1

	// exitNotFound means the wordlist was exhausted without a match.
	exitNotFound = 2
)

// ExitError carries the process exit code of a command that has already
// printed its own result.
type ExitError struct {
	Code int
}

// Error implements error.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd creates the root command for zipcrack.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zipcrack",
		Short: "Dictionary attack against password-protected archives",
		Long: `zipcrack recovers the password of an encrypted ZIP or RAR archive by trying
every password of a wordlist, in parallel.

Only use zipcrack on archives you own or are authorized to test.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrackCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line args and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return exitFound
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	return exitFatal
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
