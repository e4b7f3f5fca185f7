package progress

import (
	"io"
	"sync"
	"time"

	"github.com/gioco-play/easy-i18n/i18n"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Board renders one progress line per file. On a terminal it draws mpb bars;
// otherwise it prints a plain line every 10% so CI logs stay readable.
type Board struct {
	out         io.Writer
	interactive bool
	progress    *mpb.Progress
}

// NewBoard creates a board writing to out
func NewBoard(out io.Writer, interactive bool) *Board {
	b := &Board{out: out, interactive: interactive}
	if interactive {
		b.progress = mpb.New(
			mpb.WithOutput(out),
			mpb.WithWidth(40),
			mpb.WithRefreshRate(150*time.Millisecond),
		)
	}
	return b
}

// Bar is the Sink for a single file
type Bar interface {
	Sink
	// Done finalizes the line; ok=false marks the transfer as failed
	Done(ok bool)
}

// NewBar adds a line for name with the given total size
func (b *Board) NewBar(name string, total int64) Bar {
	if !b.interactive {
		return &lineBar{out: b.out, name: name, lastStep: -1}
	}

	bar := b.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Name(" "),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f"),
		),
	)
	return &mpbBar{bar: bar}
}

// Wait blocks until every bar has been rendered for the last time
func (b *Board) Wait() {
	if b.progress != nil {
		b.progress.Wait()
	}
}

type mpbBar struct {
	bar *mpb.Bar
}

func (m *mpbBar) Update(transferred, _ int64) {
	m.bar.SetCurrent(transferred)
}

func (m *mpbBar) Done(ok bool) {
	if !ok {
		m.bar.Abort(false)
		return
	}
	// negative total means "use current": completes zero-byte bars too
	m.bar.SetTotal(-1, true)
}

type lineBar struct {
	mu       sync.Mutex
	out      io.Writer
	name     string
	lastStep int64
}

func (l *lineBar) Update(transferred, total int64) {
	if total <= 0 {
		return
	}
	step := transferred * 10 / total
	l.mu.Lock()
	defer l.mu.Unlock()
	if step <= l.lastStep {
		return
	}
	l.lastStep = step
	i18n.Fprintf(l.out, "[nunu-cli] %s: %d%%\n", l.name, step*10)
}

func (l *lineBar) Done(ok bool) {
	if !ok {
		i18n.Fprintf(l.out, "[nunu-cli] %s: transfer failed\n", l.name)
	}
}
