package isolate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Serve is the worker side of the protocol. It first writes a ready
// message to w, then reads requests from r, verifies each with v and writes
// one response per request to w, in order.
//
// Serve returns nil when r reaches EOF, ctx.Err() when ctx is cancelled, and
// an error wrapping ErrProtocol for a malformed request.
func Serve(ctx context.Context, r io.Reader, w io.Writer, v Verifier) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	if err := enc.Encode(readyResponse()); err != nil {
		return fmt.Errorf("failed to write ready message: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write ready message: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrProtocol, err)
		}

		verdict := v.Verify(ctx, req.candidate())
		if err := enc.Encode(newResponse(req.ID, verdict)); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
}
