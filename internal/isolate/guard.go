package isolate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/zipcrack/internal/model"
)

// guarded wraps a Verifier with panic recovery and a per-call time limit.
type guarded struct {
	next    Verifier
	timeout time.Duration
}

// Guard returns a Verifier that runs every call of v in a separate goroutine.
//
// A panic inside v becomes a VerificationTransient verdict. When timeout is
// positive, a call that takes longer returns a Timeout verdict right away;
// the goroutine still running v is abandoned and its result dropped.
// Cancelling ctx returns a Cancelled verdict without waiting for v.
//
// Design decision: Go cannot kill a goroutine, so an abandoned call keeps
// running until v notices its context is done. The Oracle checks its context
// between reads, which bounds how long that takes. Use Pool when a stuck
// decryption must be stopped for sure.
func Guard(v Verifier, timeout time.Duration) Verifier {
	return &guarded{next: v, timeout: timeout}
}

// Verify implements Verifier.
func (g *guarded) Verify(ctx context.Context, c model.Candidate) model.Verdict {
	if err := ctx.Err(); err != nil {
		return model.Failure(c, model.ErrorKindCancelled, err.Error())
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if g.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan model.Verdict, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- model.Failure(c, model.ErrorKindVerificationTransient, fmt.Sprintf("panic: %v", r))
			}
		}()
		done <- g.next.Verify(callCtx, c)
	}()

	select {
	case v := <-done:
		if v.ErrorKind == model.ErrorKindCancelled && ctx.Err() == nil &&
			errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return g.timedOut(c)
		}
		return v
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return model.Failure(c, model.ErrorKindCancelled, err.Error())
		}
		return g.timedOut(c)
	}
}

func (g *guarded) timedOut(c model.Candidate) model.Verdict {
	return model.Failure(c, model.ErrorKindTimeout, fmt.Sprintf("verification exceeded %s", g.timeout))
}
