package model

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextEncoding names the byte encoding used for wordlist lines or for the
// password bytes handed to the archive format.
type TextEncoding string

const (
	// EncodingLatin1 is ISO-8859-1. Every byte value maps to a rune, so
	// decoding never fails and arbitrary binary-looking lines survive.
	EncodingLatin1 TextEncoding = "latin1"

	// EncodingUTF8 is UTF-8. Invalid sequences decode to U+FFFD.
	EncodingUTF8 TextEncoding = "utf-8"
)

// ErrUnknownEncoding is returned by ParseTextEncoding for an unsupported name.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// ParseTextEncoding converts a user supplied name into a TextEncoding.
// It accepts the common aliases ("latin-1", "iso-8859-1", "utf8").
func ParseTextEncoding(name string) (TextEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: latin1, utf-8)", ErrUnknownEncoding, name)
	}
}

// codec returns the x/text encoding backing e.
func (e TextEncoding) codec() encoding.Encoding {
	if e == EncodingUTF8 {
		return unicode.UTF8
	}
	return charmap.ISO8859_1
}

// Decode converts raw bytes into a UTF-8 Go string.
func (e TextEncoding) Decode(raw []byte) string {
	decoded, err := e.codec().NewDecoder().Bytes(raw)
	if err != nil {
		// Neither decoder reports errors; keep the bytes as a last resort.
		return string(raw)
	}
	return string(decoded)
}

// Encode converts text into bytes of this encoding. It fails when text
// contains a rune the encoding cannot represent.
func (e TextEncoding) Encode(text string) ([]byte, error) {
	encoded, err := e.codec().NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("cannot encode as %s: %w", e, err)
	}
	return encoded, nil
}

// String returns the canonical encoding name.
func (e TextEncoding) String() string {
	if e == "" {
		return string(EncodingLatin1)
	}
	return string(e)
}
