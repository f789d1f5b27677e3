package status

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const spinnerInterval = 120 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Terminal reports progress on a terminal. On a TTY the busy indicator is a
// spinner redrawn in place next to the status; otherwise every status is
// written as a plain line and the indicator is silent.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	out     *termenv.Output
	tty     bool
	status  string
	loading bool
	frame   int
	stop    chan struct{}
	done    chan struct{}
}

// NewTerminal creates a reporter writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w:   w,
		out: termenv.NewOutput(w),
		tty: isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetStatus replaces the status line.
func (t *Terminal) SetStatus(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = message
	if t.tty && t.loading {
		t.redrawLocked()
		return
	}
	t.printLocked(message)
}

// ShowLoading starts the busy indicator.
func (t *Terminal) ShowLoading() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loading {
		return
	}
	t.loading = true
	if !t.tty {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.spin(t.stop, t.done)
	t.redrawLocked()
}

// HideLoading stops the busy indicator and leaves the last status on screen.
func (t *Terminal) HideLoading() {
	t.mu.Lock()
	if !t.loading {
		t.mu.Unlock()
		return
	}
	t.loading = false
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.ClearLine()
	_, _ = fmt.Fprint(t.w, "\r")
	if t.status != "" {
		t.printLocked(t.status)
	}
}

// Loading reports whether the indicator is on.
func (t *Terminal) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Close stops the spinner if it is still running.
func (t *Terminal) Close() {
	t.HideLoading()
}

func (t *Terminal) spin(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			t.frame = (t.frame + 1) % len(spinnerFrames)
			t.redrawLocked()
			t.mu.Unlock()
		}
	}
}

func (t *Terminal) redrawLocked() {
	t.out.ClearLine()
	frame := t.out.String(spinnerFrames[t.frame]).Foreground(t.out.Color("2"))
	_, _ = fmt.Fprintf(t.w, "\r%s %s", frame, t.status)
}

func (t *Terminal) printLocked(message string) {
	_, _ = fmt.Fprintln(t.w, t.out.String(message).Bold())
}

// Notify writes a failure on its own line. A running spinner is redrawn
// below it.
func (t *Terminal) Notify(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	redraw := t.tty && t.loading
	if redraw {
		t.out.ClearLine()
		_, _ = fmt.Fprint(t.w, "\r")
	}
	_, _ = fmt.Fprintln(t.w, t.out.String(message).Foreground(t.out.Color("1")))
	if redraw {
		t.redrawLocked()
	}
}
