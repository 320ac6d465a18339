package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/zipcrack/internal/archive"
	"github.com/nao1215/zipcrack/internal/config"
	"github.com/nao1215/zipcrack/internal/isolate"
	"github.com/nao1215/zipcrack/internal/log"
	"github.com/nao1215/zipcrack/internal/model"
)

// NewWorkerCmd creates the hidden worker command. The crack command starts
// one worker process per pool slot; each reads verification requests on
// stdin and answers on stdout until stdin closes.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Verify candidates sent on stdin (internal)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE:   runWorkerCmd,
	}

	cmd.Flags().String("archive", "", "Archive to verify candidates against")
	cmd.Flags().String(config.FlagPasswordEncoding, string(config.DefaultEncoding),
		"Encoding of the archive password")

	return cmd
}

// runWorkerCmd executes the worker command.
func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("archive")
	if err != nil {
		return err
	}
	if path == "" {
		return config.ErrNoArchive
	}
	encName, err := cmd.Flags().GetString(config.FlagPasswordEncoding)
	if err != nil {
		return err
	}
	enc, err := model.ParseTextEncoding(encName)
	if err != nil {
		return err
	}

	// stdout carries the protocol; logs go to stderr, which the pool
	// forwards to the coordinator's stderr.
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd)).With("pid", os.Getpid())

	a, err := archive.Open(path)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("worker ready", "archive", path, "format", a.Format())

	oracle := isolate.Guard(archive.NewOracle(a, enc), 0)
	err = isolate.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), oracle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
