package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/zipcrack/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is recorded in every document.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the zipcrack version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport wraps an attack report with output metadata.
type JSONReport struct {
	// Version is the zipcrack version that wrote the document.
	Version string `json:"version,omitempty"`

	// Message is the fatal error message of an aborted attack.
	Message string `json:"message,omitempty"`

	// Report is the attack report.
	Report *model.AttackReport `json:"report"`
}

// JSONHistory wraps a list of attack reports.
type JSONHistory struct {
	Version string                `json:"version,omitempty"`
	Attacks []*model.AttackReport `json:"attacks"`
}

// Write outputs the attack report in JSON format.
func (w *JSONWriter) Write(report *model.AttackReport) (int, error) {
	return w.writeJSON(JSONReport{
		Version: w.version,
		Message: FatalMessage(report),
		Report:  report,
	})
}

// WriteHistory outputs the attack history in JSON format.
func (w *JSONWriter) WriteHistory(reports []*model.AttackReport) (int, error) {
	if reports == nil {
		reports = []*model.AttackReport{}
	}
	return w.writeJSON(JSONHistory{Version: w.version, Attacks: reports})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
