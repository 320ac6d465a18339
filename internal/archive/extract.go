package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nwaples/rardecode"
	"github.com/yeka/zip"

	"github.com/nao1215/zipcrack/internal/model"
)

// Extract writes every entry of the archive under dir, decrypting with the
// password c, converted with enc as Oracle does. It is meant to be called
// once the password is known.
//
// Entries whose names are absolute or contain ".." components are rejected
// with ErrUnsafePath before anything is written for them.
func (a *Archive) Extract(ctx context.Context, c model.Candidate, enc model.TextEncoding, dir string) (int, error) {
	password, err := a.password(c, enc)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	switch a.format {
	case FormatZIP:
		return a.extractZIP(ctx, password, dir)
	case FormatRAR:
		return a.extractRAR(ctx, password, dir)
	default:
		return 0, ErrUnknownFormat
	}
}

func (a *Archive) extractZIP(ctx context.Context, password, dir string) (int, error) {
	zr, err := zip.NewReader(a.file, a.size)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, f := range zr.File {
		target, err := destination(dir, f.Name)
		if err != nil {
			return written, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return written, err
			}
			continue
		}
		if f.IsEncrypted() {
			f.SetPassword(password)
		}
		rc, err := f.Open()
		if err != nil {
			return written, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		err = writeFile(ctx, target, rc)
		_ = rc.Close()
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (a *Archive) extractRAR(ctx context.Context, password, dir string) (int, error) {
	rr, err := rardecode.NewReader(a.section(), password)
	if err != nil {
		return 0, err
	}

	written := 0
	for {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		target, err := destination(dir, hdr.Name)
		if err != nil {
			return written, err
		}
		if hdr.IsDir {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return written, err
			}
			continue
		}
		if err := writeFile(ctx, target, rr); err != nil {
			return written, err
		}
		written++
	}
}

// destination resolves an entry name inside dir.
func destination(dir, name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dir, local), nil
}

// writeFile copies r into a new file at path. A partially written file is
// removed when the copy fails.
func writeFile(ctx context.Context, path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path checked by destination
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, contextReader{ctx: ctx, r: r}); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return out.Close()
}
