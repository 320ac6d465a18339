package isolate

import (
	"context"

	"github.com/nao1215/zipcrack/internal/model"
)

// Verifier tests one candidate and reports a verdict.
// Implementations must be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, c model.Candidate) model.Verdict
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, c model.Candidate) model.Verdict

// Verify calls f(ctx, c).
func (f VerifierFunc) Verify(ctx context.Context, c model.Candidate) model.Verdict {
	return f(ctx, c)
}
