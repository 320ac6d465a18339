package isolate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/zipcrack/internal/model"
)

// ErrPoolClosed is reported when Verify is called after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// DefaultStartTimeout bounds the start-up of one worker, archive parsing
// included.
const DefaultStartTimeout = 30 * time.Second

// Pool verifies candidates in separate worker processes.
//
// Workers are started lazily, at most size of them, and reused across calls.
// Each worker handles one request at a time. A worker is killed when it
// exceeds the per-call timeout, when the caller's context is cancelled
// during a call, when it exits, or when it breaks the protocol; a later
// call starts a replacement.
//
// A new worker must announce that it is ready before it gets a request.
// One that exits or stays silent instead makes the call fail with the fatal
// WorkerUnavailable kind: a worker that cannot start will not start for the
// next candidate either.
//
// Design decision: We use long-lived workers rather than one process per
// candidate because process start-up costs far more than a ZIP password
// check. The archive is parsed once per worker, not once per candidate.
type Pool struct {
	size    int
	command string
	args    []string
	env     []string
	stderr  io.Writer
	timeout time.Duration
	start   time.Duration
	logger  *slog.Logger

	// slots bounds the number of concurrent calls to size.
	slots *semaphore.Weighted

	mu      sync.Mutex
	idle    []*worker
	live    map[*worker]struct{}
	closed  bool
	spawned int

	nextID atomic.Uint64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithCommand sets the worker executable and its arguments.
// The default is the running executable with no arguments.
func WithCommand(path string, args ...string) PoolOption {
	return func(p *Pool) {
		p.command = path
		p.args = args
	}
}

// WithEnv adds "KEY=value" entries to the worker environment.
func WithEnv(env ...string) PoolOption {
	return func(p *Pool) {
		p.env = append(p.env, env...)
	}
}

// WithStderr sets where worker stderr goes. By default it is discarded.
func WithStderr(w io.Writer) PoolOption {
	return func(p *Pool) {
		p.stderr = w
	}
}

// WithTimeout sets the per-call time limit. Zero means no limit.
func WithTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithStartTimeout sets how long a new worker may take to announce that it
// is ready. Zero means no limit. The default is DefaultStartTimeout.
func WithStartTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d >= 0 {
			p.start = d
		}
	}
}

// WithLogger sets the logger for worker lifecycle events.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool creates a pool of at most size workers. No process is started
// until the first call to Verify.
func NewPool(size int, opts ...PoolOption) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		size:  size,
		start: DefaultStartTimeout,
		slots: semaphore.NewWeighted(int64(size)),
		live:  make(map[*worker]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.command == "" {
		if exe, err := os.Executable(); err == nil {
			p.command = exe
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Size returns the maximum number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Spawned returns how many worker processes have been started so far,
// including replacements.
func (p *Pool) Spawned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawned
}

// Verify sends c to a worker and waits for its verdict.
func (p *Pool) Verify(ctx context.Context, c model.Candidate) model.Verdict {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return model.Failure(c, model.ErrorKindCancelled, err.Error())
	}
	defer p.slots.Release(1)

	w, err := p.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return model.Failure(c, model.ErrorKindCancelled, ctx.Err().Error())
		}
		return model.Failure(c, model.ErrorKindWorkerUnavailable, err.Error())
	}

	id := p.nextID.Add(1)
	if err := w.send(newRequest(id, c)); err != nil {
		p.discard(w, "write failed", err)
		return model.Failure(c, model.ErrorKindWorkerCrashed, err.Error())
	}

	var timeout <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-w.responses:
		if !ok {
			err, reason := w.readErr, "protocol violation"
			if err == nil || errors.Is(err, io.EOF) {
				err, reason = errors.New("worker exited"), "worker exited"
			}
			p.discard(w, reason, err)
			return model.Failure(c, model.ErrorKindWorkerCrashed, err.Error())
		}
		if resp.ID != id {
			err := fmt.Errorf("%w: response id %d, want %d", ErrProtocol, resp.ID, id)
			p.discard(w, "protocol violation", err)
			return model.Failure(c, model.ErrorKindWorkerCrashed, err.Error())
		}
		p.release(w)
		return resp.verdict(c)
	case <-ctx.Done():
		p.discard(w, "cancelled", ctx.Err())
		return model.Failure(c, model.ErrorKindCancelled, ctx.Err().Error())
	case <-timeout:
		p.discard(w, "timeout", nil)
		return model.Failure(c, model.ErrorKindTimeout, fmt.Sprintf("verification exceeded %s", p.timeout))
	}
}

// Close kills every worker and waits for them to exit.
// It is safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	workers := make([]*worker, 0, len(p.live))
	for w := range p.live {
		workers = append(workers, w)
	}
	p.idle = nil
	p.mu.Unlock()

	for _, w := range workers {
		w.kill()
	}
	for _, w := range workers {
		<-w.exited
	}
	return nil
}

// acquire returns an idle worker or starts a new one and waits until it is
// ready. The lock is not held while a worker starts, so slow start-ups do
// not delay calls that find an idle worker.
func (p *Pool) acquire(ctx context.Context) (*worker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return w, nil
	}
	p.mu.Unlock()

	w, err := startWorker(p.command, p.args, p.env, p.stderr)
	if err != nil {
		return nil, err
	}
	if err := p.awaitReady(ctx, w); err != nil {
		w.kill()
		p.logger.Debug("worker failed to start", "pid", w.pid(), "error", err)
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.kill()
		return nil, ErrPoolClosed
	}
	p.spawned++
	p.live[w] = struct{}{}
	p.logger.Debug("worker started", "pid", w.pid(), "spawned", p.spawned)
	return w, nil
}

// awaitReady waits for the ready message of a new worker.
func (p *Pool) awaitReady(ctx context.Context, w *worker) error {
	var timeout <-chan time.Time
	if p.start > 0 {
		timer := time.NewTimer(p.start)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-w.responses:
		if !ok {
			err := w.readErr
			if err == nil || errors.Is(err, io.EOF) {
				err = errors.New("worker exited")
			}
			return fmt.Errorf("%w: %w", ErrWorkerNotReady, err)
		}
		if !resp.Ready {
			return fmt.Errorf("%w: %w: response id %d before the ready message", ErrWorkerNotReady, ErrProtocol, resp.ID)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("%w: no ready message within %s", ErrWorkerNotReady, p.start)
	}
}

// release returns a healthy worker to the idle list.
func (p *Pool) release(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.kill()
		return
	}
	p.idle = append(p.idle, w)
}

// discard kills a worker that must not be reused.
func (p *Pool) discard(w *worker, reason string, err error) {
	p.mu.Lock()
	delete(p.live, w)
	p.mu.Unlock()

	w.kill()
	p.logger.Debug("worker discarded", "pid", w.pid(), "reason", reason, "error", err)
}

// worker is one running worker process.
type worker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder

	// responses is closed by the reader goroutine; readErr is set before.
	responses chan Response
	readErr   error

	// quit is closed by kill.
	quit     chan struct{}
	killOnce sync.Once

	// exited is closed once the process has been waited for.
	exited chan struct{}
}

// startWorker starts one worker process and its reader goroutine.
//
// The worker's stdout is a plain os.Pipe rather than cmd.StdoutPipe so that
// cmd.Wait can run concurrently with the reader.
func startWorker(command string, args, env []string, stderr io.Writer) (*worker, error) {
	if command == "" {
		return nil, errors.New("no worker command configured")
	}

	cmd := exec.Command(command, args...) //nolint:gosec // the command is our own executable
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stdin: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker stdout: %w", err)
	}
	cmd.Stdout = stdoutW

	if err := cmd.Start(); err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("failed to start worker %s: %w", command, err)
	}
	_ = stdoutW.Close()

	w := &worker{
		cmd:       cmd,
		stdin:     stdin,
		enc:       json.NewEncoder(stdin),
		responses: make(chan Response),
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go w.read(stdoutR)
	go func() {
		_ = cmd.Wait()
		close(w.exited)
	}()
	return w, nil
}

// read decodes responses until the worker's stdout closes or carries
// something other than a response.
func (w *worker) read(r io.ReadCloser) {
	defer close(w.responses)
	defer r.Close()

	dec := json.NewDecoder(r)
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: %w", ErrProtocol, err)
			}
			w.readErr = err
			return
		}
		select {
		case w.responses <- resp:
		case <-w.quit:
			return
		}
	}
}

func (w *worker) send(req Request) error {
	return w.enc.Encode(req)
}

func (w *worker) kill() {
	w.killOnce.Do(func() {
		close(w.quit)
		_ = w.stdin.Close()
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
	})
}

func (w *worker) pid() int {
	if w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}
