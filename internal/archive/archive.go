package archive

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/nwaples/rardecode"
	"github.com/yeka/zip"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/zipcrack/internal/model"
)

// Format identifies the container format of an archive.
type Format string

const (
	// FormatZIP is a PKZIP archive using ZipCrypto or WinZip AES encryption.
	FormatZIP Format = "zip"

	// FormatRAR is a RAR 1.5 to 5.0 archive.
	FormatRAR Format = "rar"
)

// Magic bytes used for format detection.
var (
	zipMagic = []byte("PK\x03\x04")
	rarMagic = []byte("Rar!\x1a\x07")
)

// Archive errors. Open wraps each of them with model.ErrInvalidArchive.
var (
	// ErrUnknownFormat is returned when the file is neither ZIP nor RAR.
	ErrUnknownFormat = errors.New("unknown archive format")

	// ErrNotEncrypted is returned for an archive without any encrypted
	// entry. Every password would "match" such an archive.
	ErrNotEncrypted = errors.New("archive has no encrypted entries")

	// ErrUnsafePath is returned by Extract for an entry whose name would
	// escape the destination directory.
	ErrUnsafePath = errors.New("entry path escapes the destination directory")
)

// Archive is an archive opened read-only.
//
// An Archive is safe for concurrent use: the underlying *os.File is only
// accessed through ReadAt, and every verification builds its own reader.
type Archive struct {
	path   string
	file   *os.File
	size   int64
	format Format

	// order lists the indexes of encrypted ZIP entries, smallest first.
	order []int
}

// Open opens the archive at path and parses its directory once.
//
// A missing file, an unknown format, an unreadable directory or a ZIP
// archive without encrypted entries yields an error wrapping
// model.ErrInvalidArchive.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidArchive, err)
	}

	a, err := inspect(path, f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", model.ErrInvalidArchive, path, err)
	}
	return a, nil
}

func inspect(path string, f *os.File) (*Archive, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	magic := make([]byte, 8)
	n, err := f.ReadAt(magic, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	magic = magic[:n]

	a := &Archive{path: path, file: f, size: info.Size()}
	switch {
	case bytes.HasPrefix(magic, zipMagic):
		a.format = FormatZIP
		err = a.inspectZIP()
	case bytes.HasPrefix(magic, rarMagic):
		a.format = FormatRAR
		err = a.inspectRAR()
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// inspectZIP records the encrypted entries in ascending uncompressed size.
// A wrong password is usually rejected by the first entry, so reading the
// smallest one first keeps NoMatch verdicts cheap.
func (a *Archive) inspectZIP() error {
	zr, err := zip.NewReader(a.file, a.size)
	if err != nil {
		return err
	}
	for i, f := range zr.File {
		if f.FileInfo().IsDir() || !f.IsEncrypted() {
			continue
		}
		a.order = append(a.order, i)
	}
	if len(a.order) == 0 {
		return ErrNotEncrypted
	}
	slices.SortStableFunc(a.order, func(x, y int) int {
		sx, sy := zr.File[x].UncompressedSize64, zr.File[y].UncompressedSize64
		switch {
		case sx < sy:
			return -1
		case sx > sy:
			return 1
		default:
			return 0
		}
	})
	return nil
}

// inspectRAR reads the whole archive with an empty password. RAR does not
// say which entries are encrypted until a password is tried, so an archive
// that reads cleanly without one has nothing to attack.
func (a *Archive) inspectRAR() error {
	rr, err := rardecode.NewReader(a.section(), "")
	if err != nil {
		return err
	}
	err = drainRAR(context.Background(), rr)
	if err == nil {
		return ErrNotEncrypted
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	return nil
}

// section returns a fresh reader over the whole file.
func (a *Archive) section() *io.SectionReader {
	return io.NewSectionReader(a.file, 0, a.size)
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Format returns the detected archive format.
func (a *Archive) Format() Format {
	return a.format
}

// Size returns the archive size in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

// EncryptedEntries returns the number of encrypted ZIP entries.
// It is always 0 for RAR archives, whose entries are only known to be
// encrypted once a password is tried.
func (a *Archive) EncryptedEntries() int {
	return len(a.order)
}

// Fingerprint returns the hex encoded SHA3-256 digest of the archive file.
// It identifies the archive in the attack history independently of its path.
func (a *Archive) Fingerprint() (string, error) {
	h := sha3.New256()
	if _, err := io.Copy(h, a.section()); err != nil {
		return "", fmt.Errorf("failed to hash archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Close closes the underlying file.
func (a *Archive) Close() error {
	return a.file.Close()
}
