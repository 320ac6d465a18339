package isolate

import (
	"errors"

	"github.com/nao1215/zipcrack/internal/model"
)

var (
	// ErrProtocol is returned when a peer sends a message that is not a
	// valid request or response.
	ErrProtocol = errors.New("worker protocol violation")

	// ErrWorkerNotReady is returned when a new worker exits, breaks the
	// protocol or stays silent before announcing that it is ready.
	ErrWorkerNotReady = errors.New("worker did not become ready")
)

// Request asks a worker to verify one candidate.
// It is encoded as a single line of JSON.
type Request struct {
	// ID is echoed in the response.
	ID uint64 `json:"id"`

	// Candidate is the decoded candidate text.
	Candidate string `json:"candidate"`

	// Line is the wordlist line of the candidate.
	Line int `json:"line,omitempty"`
}

// Response carries the verdict for the Request with the same ID.
//
// A worker writes one Response with Ready set before reading any request.
// It carries no verdict.
type Response struct {
	ID        uint64            `json:"id"`
	Verdict   model.VerdictKind `json:"verdict"`
	ErrorKind model.ErrorKind   `json:"error_kind,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Ready     bool              `json:"ready,omitempty"`
}

// readyResponse announces that a worker has loaded its archive and waits
// for requests.
func readyResponse() Response {
	return Response{Ready: true}
}

// newRequest builds the request for c.
func newRequest(id uint64, c model.Candidate) Request {
	return Request{ID: id, Candidate: c.String(), Line: c.Line()}
}

// candidate rebuilds the candidate carried by r.
func (r Request) candidate() model.Candidate {
	return model.NewCandidate(r.Candidate, r.Line)
}

// newResponse converts a verdict into its wire form.
func newResponse(id uint64, v model.Verdict) Response {
	return Response{ID: id, Verdict: v.Kind, ErrorKind: v.ErrorKind, Reason: v.Reason}
}

// verdict converts r back into a verdict about c.
func (r Response) verdict(c model.Candidate) model.Verdict {
	return model.Verdict{Kind: r.Verdict, Candidate: c, ErrorKind: r.ErrorKind, Reason: r.Reason}
}
