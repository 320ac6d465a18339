package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nao1215/zipcrack/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// The verdict line is colored when the output supports it: green for a
// found password, yellow for an exhausted wordlist, red for an abort.
type SimpleWriter struct {
	baseWriter

	// verbose adds the attack details above the verdict line.
	verbose bool

	found    *color.Color
	notFound *color.Color
	aborted  *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the detail block above the verdict line.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colored output on or off. By default color follows
// whether stdout is a terminal.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.found, w.notFound, w.aborted} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		found:      color.New(color.FgGreen, color.Bold),
		notFound:   color.New(color.FgYellow),
		aborted:    color.New(color.FgRed, color.Bold),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the attack result.
func (w *SimpleWriter) Write(report *model.AttackReport) (int, error) {
	var sb strings.Builder

	if w.verbose {
		w.writeDetails(&sb, report)
	}
	sb.WriteString(w.colorFor(report.Outcome).Sprint(outcomeLine(report)))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeDetails writes the attack parameters and counters.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, report *model.AttackReport) {
	attempted, errs := int64(0), int64(0)
	if report.Progress != nil {
		attempted, errs = report.Progress.Attempted(), report.Progress.Errors()
	}

	fmt.Fprintf(sb, "Archive:    %s", report.ArchivePath)
	if report.ArchiveFormat != "" {
		fmt.Fprintf(sb, " (%s)", report.ArchiveFormat)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Wordlist:   %s\n", report.WordlistPath)
	if report.ExactLength > 0 {
		fmt.Fprintf(sb, "Length:     %d\n", report.ExactLength)
	}
	fmt.Fprintf(sb, "Workers:    %d (%s)\n", report.Workers, report.Isolation)
	fmt.Fprintf(sb, "Candidates: %s tested of %s",
		humanize.Comma(attempted),
		totalText(report.Progress, humanize.Comma),
	)
	if errs > 0 {
		fmt.Fprintf(sb, ", %s errors", humanize.Comma(errs))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Elapsed:    %s (%s/s)\n",
		report.Duration().Round(time.Millisecond),
		humanize.CommafWithDigits(report.Rate(), 1),
	)
	if report.Outcome == model.OutcomeFound && report.PasswordLine > 0 {
		fmt.Fprintf(sb, "Line:       %s\n", humanize.Comma(int64(report.PasswordLine)))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) colorFor(outcome model.Outcome) *color.Color {
	switch outcome {
	case model.OutcomeFound:
		return w.found
	case model.OutcomeAborted:
		return w.aborted
	default:
		return w.notFound
	}
}

// WriteHistory outputs one line per attack.
func (w *SimpleWriter) WriteHistory(reports []*model.AttackReport) (int, error) {
	var sb strings.Builder

	if len(reports) == 0 {
		sb.WriteString("No attacks recorded.\n")
		return w.output.Write([]byte(sb.String()))
	}

	for _, r := range reports {
		attempted := int64(0)
		if r.Progress != nil {
			attempted = r.Progress.Attempted()
		}
		outcome := string(r.Outcome)
		if r.Outcome == model.OutcomeAborted && r.AbortReason != "" {
			outcome += " (" + string(r.AbortReason) + ")"
		}
		fmt.Fprintf(&sb, "%s  %-12s  %-28s  %s tested  %s\n",
			shortID(r.ID),
			humanize.Time(r.StartedAt),
			w.colorFor(r.Outcome).Sprint(outcome),
			humanize.Comma(attempted),
			r.ArchivePath,
		)
	}

	return w.output.Write([]byte(sb.String()))
}

// shortID returns the first block of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
