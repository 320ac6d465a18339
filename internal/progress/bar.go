package progress

import (
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/nao1215/zipcrack/internal/model"
)

// DefaultRefreshRate is how often the bar copies the counters.
const DefaultRefreshRate = 200 * time.Millisecond

// counterOnly is used when the number of candidates is unknown.
const counterOnly pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{speed . }}`

// Bar shows a model.Progress as a pb progress bar.
//
// The bar does not own the counters: the dispatcher updates them and the bar
// samples them on every refresh.
type Bar struct {
	progress    *model.Progress
	bar         *pb.ProgressBar
	refreshRate time.Duration
	prefix      string
	w           io.Writer

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Option configures a Bar.
type Option func(*Bar)

// WithRefreshRate sets how often the bar is redrawn.
func WithRefreshRate(d time.Duration) Option {
	return func(b *Bar) {
		if d > 0 {
			b.refreshRate = d
		}
	}
}

// WithPrefix sets the text shown before the counters.
func WithPrefix(prefix string) Option {
	return func(b *Bar) {
		b.prefix = prefix
	}
}

// NewBar creates a bar writing to w. Nothing is drawn until Start.
func NewBar(w io.Writer, p *model.Progress, opts ...Option) *Bar {
	b := &Bar{
		progress:    p,
		refreshRate: DefaultRefreshRate,
		w:           w,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start draws the bar. With a known total it shows percentage and ETA;
// otherwise only the counter and the rate. Calling Start again does nothing.
func (b *Bar) Start() {
	b.startOnce.Do(func() {
		total, known := b.progress.Total()
		if known {
			b.bar = pb.Full.New(0)
			b.bar.SetTotal(total)
		} else {
			b.bar = counterOnly.New(0)
		}
		b.bar.SetWriter(b.w)
		b.bar.SetRefreshRate(b.refreshRate)
		if b.prefix != "" {
			b.bar.Set("prefix", b.prefix)
		}
		b.bar.SetCurrent(b.progress.Attempted())
		b.bar.Start()

		go b.sample()
	})
}

// sample copies the attempted counter into the bar until Stop.
func (b *Bar) sample() {
	defer close(b.done)

	ticker := time.NewTicker(b.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.bar.SetCurrent(b.progress.Attempted())
		case <-b.stop:
			return
		}
	}
}

// Stop draws the final counters and finishes the bar. It is safe to call
// Stop without Start and more than once.
func (b *Bar) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		if b.bar == nil {
			return
		}
		<-b.done
		b.bar.SetCurrent(b.progress.Attempted())
		b.bar.Finish()
	})
}
