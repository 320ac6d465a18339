package report

import (
	"fmt"
	"io"

	"github.com/nao1215/zipcrack/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the result of one attack.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AttackReport) (int, error)

	// WriteHistory outputs a list of past attacks, newest first.
	WriteHistory(reports []*model.AttackReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AttackReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(reports []*model.AttackReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// FatalMessage returns the user-facing sentence explaining why an attack
// was aborted. It returns "" for attacks that were not aborted.
func FatalMessage(report *model.AttackReport) string {
	if report.State != model.StateAborted {
		return ""
	}
	switch report.AbortReason {
	case model.AbortSourceNotFound:
		return fmt.Sprintf("Wordlist '%s' not found.", report.WordlistPath)
	case model.AbortNoCandidates:
		if report.ExactLength > 0 {
			return fmt.Sprintf("No passwords of length %d found in the wordlist.", report.ExactLength)
		}
		return "No passwords found in the wordlist."
	case model.AbortInvalidArchive:
		return fmt.Sprintf("'%s' is not a valid archive.", report.ArchivePath)
	case model.AbortInterrupted:
		return "Attack interrupted."
	default:
		if report.ErrorMessage != "" {
			return report.ErrorMessage
		}
		return "Attack aborted."
	}
}

// outcomeLine returns the one-line verdict of an attack.
func outcomeLine(report *model.AttackReport) string {
	switch report.Outcome {
	case model.OutcomeFound:
		return "[+] Password found: " + report.Password
	case model.OutcomeNotFound:
		return "[-] Password not found in the provided wordlist."
	case model.OutcomeAborted:
		return "Error: " + FatalMessage(report)
	default:
		return "Attack in progress (" + report.State.String() + ")"
	}
}

// totalText returns the candidate total, or "unknown" in single-pass mode.
func totalText(p *model.Progress, format func(int64) string) string {
	if p == nil {
		return "unknown"
	}
	total, ok := p.Total()
	if !ok {
		return "unknown"
	}
	return format(total)
}
