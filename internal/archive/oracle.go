package archive

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/nwaples/rardecode"
	"github.com/yeka/zip"

	"github.com/nao1215/zipcrack/internal/model"
)

// Oracle verifies candidate passwords against one Archive.
//
// Verify is idempotent and safe for concurrent use. The only state it
// touches is the reader it creates for the call.
type Oracle struct {
	archive *Archive
	enc     model.TextEncoding
}

// NewOracle returns an Oracle for a. ZIP candidates are converted to
// password bytes with enc before they reach the decryption code; RAR
// candidates are used as Unicode text.
func NewOracle(a *Archive, enc model.TextEncoding) *Oracle {
	return &Oracle{archive: a, enc: enc}
}

// Verify tests c against the archive.
//
// The result is a Match only if every encrypted entry decrypts and passes
// its integrity check. Wrong passwords, corrupt data and checksum failures
// are NoMatch. Problems that are not about the password are reported as
// Error verdicts: EncodingFailure, VerificationTransient for unsupported
// methods, Cancelled, and ArchiveIO when the archive file itself cannot be
// read.
func (o *Oracle) Verify(ctx context.Context, c model.Candidate) model.Verdict {
	if ctx.Err() != nil {
		return model.Failure(c, model.ErrorKindCancelled, ctx.Err().Error())
	}

	password, err := o.archive.password(c, o.enc)
	if err != nil {
		return model.Failure(c, model.ErrorKindEncodingFailure, err.Error())
	}

	switch o.archive.format {
	case FormatZIP:
		err = o.archive.verifyZIP(ctx, password)
	case FormatRAR:
		err = o.archive.verifyRAR(ctx, password)
	default:
		return model.Failure(c, model.ErrorKindArchiveIO, ErrUnknownFormat.Error())
	}
	return classify(c, err)
}

// password returns the password string handed to the decryption code.
//
// ZIP stores no password encoding, so the text is converted to the bytes
// the archiver used. RAR 3 and later derive the key from the Unicode text
// (UTF-16 for RAR 3, UTF-8 for RAR 5) and rardecode does that conversion
// itself, so RAR gets the text unchanged.
func (a *Archive) password(c model.Candidate, enc model.TextEncoding) (string, error) {
	if a.format == FormatRAR {
		return c.String(), nil
	}
	b, err := c.Encode(enc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// classify converts the error of one verification into a verdict.
func classify(c model.Candidate, err error) model.Verdict {
	if err == nil {
		return model.Match(c)
	}

	var pathErr *fs.PathError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.Failure(c, model.ErrorKindCancelled, err.Error())
	case errors.As(err, &pathErr):
		return model.Failure(c, model.ErrorKindArchiveIO, err.Error())
	case errors.Is(err, zip.ErrAlgorithm):
		return model.Failure(c, model.ErrorKindVerificationTransient, err.Error())
	default:
		return model.NoMatch(c)
	}
}

func (a *Archive) verifyZIP(ctx context.Context, password string) error {
	// zip.File carries the password, so the parsed directory cannot be
	// shared between concurrent verifications.
	zr, err := zip.NewReader(a.file, a.size)
	if err != nil {
		return err
	}
	for _, i := range a.order {
		if i >= len(zr.File) {
			return zip.ErrFormat
		}
		f := zr.File[i]
		f.SetPassword(password)
		if err := drain(ctx, f.Open); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) verifyRAR(ctx context.Context, password string) error {
	rr, err := rardecode.NewReader(a.section(), password)
	if err != nil {
		return err
	}
	return drainRAR(ctx, rr)
}

// drainRAR reads every file of rr to the end so that each checksum is
// verified.
func drainRAR(ctx context.Context, rr *rardecode.Reader) error {
	for {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.IsDir {
			continue
		}
		if _, err := io.Copy(io.Discard, contextReader{ctx: ctx, r: rr}); err != nil {
			return err
		}
	}
}

// drain opens an entry and reads it to the end so that its checksum or
// authentication code is verified.
func drain(ctx context.Context, open func() (io.ReadCloser, error)) error {
	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(io.Discard, contextReader{ctx: ctx, r: rc})
	return err
}

// contextReader stops a long read once ctx is cancelled.
type contextReader struct {
	ctx context.Context //nolint:containedctx // scoped to a single read loop
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
