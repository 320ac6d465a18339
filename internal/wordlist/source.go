package wordlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/nao1215/zipcrack/internal/model"
)

// countCheckInterval is how many lines Count reads between context checks.
const countCheckInterval = 4096

// Source is a wordlist file opened for reading.
//
// The first pass reuses the handle opened by Open; every later pass reopens
// the file by path, so passes never share a read offset.
type Source struct {
	path string
	enc  model.TextEncoding

	mu    sync.Mutex
	first *os.File
	err   error
}

// Open opens the wordlist at path. Lines are decoded with enc.
// A missing or unreadable file yields an error wrapping model.ErrSourceNotFound.
func Open(path string, enc model.TextEncoding) (*Source, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	return &Source{path: path, enc: enc, first: f}, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrSourceNotFound, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", model.ErrSourceNotFound, path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrSourceNotFound, path)
	}
	return f, nil
}

// Path returns the path the source was opened from.
func (s *Source) Path() string {
	return s.path
}

// Candidates returns a lazy sequence of the candidates kept by filter, in
// file order. Each line is decoded, trimmed of surrounding whitespace and
// numbered from 1; blank lines yield the empty candidate. Stopping the
// iteration early releases the file.
//
// A read error ends the sequence; it is available from Err afterwards.
func (s *Source) Candidates(filter Filter) iter.Seq[model.Candidate] {
	return func(yield func(model.Candidate) bool) {
		f, err := s.take()
		if err != nil {
			s.setErr(err)
			return
		}
		defer f.Close()

		err = s.scan(f, func(c model.Candidate) bool {
			if !filter.keep(c) {
				return true
			}
			return yield(c)
		})
		s.setErr(err)
	}
}

// Count traverses the whole wordlist and returns how many candidates filter
// keeps. It returns ctx.Err() if ctx is cancelled during the traversal.
func (s *Source) Count(ctx context.Context, filter Filter) (int64, error) {
	f, err := s.take()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		count int64
		lines int
	)
	err = s.scan(f, func(c model.Candidate) bool {
		lines++
		if lines%countCheckInterval == 0 && ctx.Err() != nil {
			return false
		}
		if filter.keep(c) {
			count++
		}
		return true
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return count, ctxErr
	}
	if err != nil {
		return count, err
	}
	return count, nil
}

// Err returns the read error that ended the most recent pass, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the handle opened by Open if no pass consumed it.
// It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.first == nil {
		return nil
	}
	err := s.first.Close()
	s.first = nil
	return err
}

// take returns the handle for a new pass.
func (s *Source) take() (*os.File, error) {
	s.mu.Lock()
	f := s.first
	s.first = nil
	s.mu.Unlock()

	if f != nil {
		return f, nil
	}
	return openFile(s.path)
}

func (s *Source) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// scan reads r line by line and calls fn with each candidate until fn
// returns false or the input ends. Lines have no length limit.
func (s *Source) scan(r io.Reader, fn func(model.Candidate) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), math.MaxInt)
	sc.Split(splitLines)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(s.enc.Decode(sc.Bytes()))
		if !fn(model.NewCandidate(text, line)) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read wordlist %s: %w", s.path, err)
	}
	return nil
}

// splitLines is a bufio.SplitFunc that ends a line at "\n", "\r\n" or a
// lone "\r", so wordlists saved with old Mac line endings still yield one
// candidate per line.
func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		switch {
		case b == '\n':
			return i + 1, data[:i], nil
		case b != '\r':
			continue
		case i+1 < len(data):
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		case atEOF:
			return i + 1, data[:i], nil
		default:
			// A "\n" may follow in the next read.
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
