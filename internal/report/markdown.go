package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/zipcrack/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for attaching an attack result to a ticket or
// an engagement write-up.
type MarkdownWriter struct {
	baseWriter

	// revealPassword prints the password in clear text. When false the
	// password is masked, since Markdown reports tend to be shared.
	revealPassword bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithRevealPassword prints the found password instead of a mask.
func WithRevealPassword(reveal bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.revealPassword = reveal
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the attack report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AttackReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeCandidates(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs the attack history as a single table.
func (w *MarkdownWriter) WriteHistory(reports []*model.AttackReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("zipcrack History")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No attacks recorded.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		attempted := int64(0)
		if r.Progress != nil {
			attempted = r.Progress.Attempted()
		}
		rows = append(rows, []string{
			"`" + shortID(r.ID) + "`",
			r.StartedAt.Format("2006-01-02 15:04:05 MST"),
			"`" + r.ArchivePath + "`",
			outcomeText(r),
			strconv.FormatInt(attempted, 10),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Archive", "Outcome", "Tested"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the attack parameters table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AttackReport) {
	md.H1("zipcrack Report")
	md.PlainText("")

	length := "any"
	if report.ExactLength > 0 {
		length = strconv.Itoa(report.ExactLength)
	}
	rows := [][]string{
		{"Archive", "`" + report.ArchivePath + "`"},
		{"Format", orDash(report.ArchiveFormat)},
		{"SHA3-256", orDash(report.ArchiveFingerprint)},
		{"Wordlist", "`" + report.WordlistPath + "`"},
		{"Password Length", length},
		{"Workers", strconv.Itoa(report.Workers) + " (" + orDash(report.Isolation) + ")"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", report.Duration().Round(time.Millisecond).String()},
		{"Outcome", outcomeText(report)},
	}
	if report.Outcome == model.OutcomeFound {
		rows = append(rows,
			[]string{"Password", w.password(report.Password)},
			[]string{"Wordlist Line", strconv.Itoa(report.PasswordLine)},
		)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert writes an alert matching the outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.AttackReport) {
	switch report.Outcome {
	case model.OutcomeFound:
		md.Cautionf("The archive password is in the wordlist (line %d). Rotate it.", report.PasswordLine)
	case model.OutcomeNotFound:
		md.Tip("The archive password is not in the wordlist.")
	case model.OutcomeAborted:
		md.Warningf("The attack was aborted: %s", FatalMessage(report))
	default:
		md.Note("The attack has not finished.")
	}
	md.PlainText("")
}

// writeCandidates writes the counters and the verdict distribution chart.
func (w *MarkdownWriter) writeCandidates(md *markdown.Markdown, report *model.AttackReport) {
	md.H2("Candidates")
	md.PlainText("")

	p := report.Progress
	if p == nil {
		p = model.NewProgress()
	}
	attempted, errs := p.Attempted(), p.Errors()

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Total", totalText(p, func(n int64) string { return strconv.FormatInt(n, 10) })},
			{"Tested", strconv.FormatInt(attempted, 10)},
			{"Errors", strconv.FormatInt(errs, 10)},
			{"Rate", strconv.FormatFloat(report.Rate(), 'f', 1, 64) + "/s"},
		},
	})
	md.PlainText("")

	if attempted == 0 {
		return
	}

	matched := uint64(0)
	if report.Outcome == model.OutcomeFound {
		matched = 1
	}
	noMatch := uint64(attempted-errs) - matched //nolint:gosec // errs never exceeds attempted

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdicts"),
		piechart.WithShowData(true),
	)
	if noMatch > 0 {
		chart.LabelAndIntValue("No match", noMatch)
	}
	if errs > 0 {
		chart.LabelAndIntValue("Error", uint64(errs)) //nolint:gosec // counters are never negative
	}
	if matched > 0 {
		chart.LabelAndIntValue("Match", matched)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if errs > 0 {
		md.Details("About errors",
			"A candidate whose verification failed (timeout, crashed worker, undecodable text) "+
				"is counted as tested but could not be confirmed or ruled out.")
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [zipcrack](https://github.com/nao1215/zipcrack)*")
}

func (w *MarkdownWriter) password(p string) string {
	if w.revealPassword {
		return "`" + p + "`"
	}
	return maskPassword(p)
}

// maskPassword keeps the first character and hides the rest.
func maskPassword(p string) string {
	r := []rune(p)
	switch len(r) {
	case 0:
		return "-"
	case 1, 2:
		return "`" + string(r[0]) + "*`"
	default:
		masked := make([]rune, len(r))
		masked[0] = r[0]
		for i := 1; i < len(r); i++ {
			masked[i] = '*'
		}
		return "`" + string(masked) + "`"
	}
}

func outcomeText(r *model.AttackReport) string {
	switch r.Outcome {
	case model.OutcomeFound:
		return "✅ Found"
	case model.OutcomeNotFound:
		return "➖ Not found"
	case model.OutcomeAborted:
		return "❌ Aborted (" + string(r.AbortReason) + ")"
	default:
		return "⏳ " + r.State.String()
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
