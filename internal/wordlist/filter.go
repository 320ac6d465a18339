package wordlist

import "github.com/nao1215/zipcrack/internal/model"

// Filter decides whether a candidate is kept. A nil Filter keeps everything.
type Filter func(model.Candidate) bool

// ExactLength returns a Filter keeping candidates of exactly n characters.
// It returns nil (no filtering) when n <= 0.
func ExactLength(n int) Filter {
	if n <= 0 {
		return nil
	}
	return func(c model.Candidate) bool {
		return c.Len() == n
	}
}

// keep applies f, treating a nil Filter as "keep everything".
func (f Filter) keep(c model.Candidate) bool {
	return f == nil || f(c)
}
