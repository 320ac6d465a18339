package model

import (
	"log/slog"
	"unicode/utf8"
)

// Candidate is one password guess drawn from a wordlist.
// A Candidate is immutable once created; the zero value is the empty
// password with no source line.
type Candidate struct {
	text   string
	line   int
	length int
}

// NewCandidate creates a Candidate from decoded text and the 1-based line
// number it was read from (0 when it did not come from a file).
func NewCandidate(text string, line int) Candidate {
	return Candidate{
		text:   text,
		line:   line,
		length: utf8.RuneCountInString(text),
	}
}

// String returns the candidate text.
func (c Candidate) String() string {
	return c.text
}

// Len returns the number of characters in the candidate.
// For latin-1 wordlists this equals the number of bytes on the line.
func (c Candidate) Len() int {
	return c.length
}

// Line returns the source line number, or 0 if unknown.
func (c Candidate) Line() int {
	return c.line
}

// Encode returns the password bytes for the given archive password encoding.
func (c Candidate) Encode(enc TextEncoding) ([]byte, error) {
	return enc.Encode(c.text)
}

// LogValue implements slog.LogValuer. It logs where the candidate came from
// and its length, never its text.
func (c Candidate) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("line", c.line),
		slog.Int("len", c.length),
	)
}
