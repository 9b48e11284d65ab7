package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar tracks bytes received against an optional total.
// Example: [=========>          ]  45% 1.2 MB / 2.7 MB ripgrep
//
// A negative total means the size is unknown; the bar then shows only the
// byte count.
type ProgressBar struct {
	total       int64
	current     int64
	description string
	width       int
	mu          sync.Mutex
	writer      io.Writer
	finished    bool
	drawn       bool
}

// NewProgress creates a new progress bar.
func NewProgress(total int64, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		description: description,
		width:       30,
		writer:      os.Stdout,
	}
}

// SetWidth sets the width of the progress bar in characters.
func (p *ProgressBar) SetWidth(width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// SetTotal updates the expected size, e.g. once a response declares it.
func (p *ProgressBar) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// SetCurrent sets the number of bytes received and redraws the bar.
func (p *ProgressBar) SetCurrent(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if p.total >= 0 && p.current > p.total {
		p.current = p.total
	}

	p.render()
}

// Finish completes the progress bar and moves to a new line. Calling it
// more than once has no further effect.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true

	if p.total < 0 {
		p.total = p.current
	}
	p.current = p.total

	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
		return
	}
	// Non-TTY: a single summary line at the end instead of redraws.
	fmt.Fprintf(p.writer, "%s %3d%% %s\n", p.bar(), 100, p.label())
}

// Abort stops the bar without completing it. A partly drawn bar on a TTY
// is ended with a newline so later output starts on its own line; nothing
// is printed otherwise.
func (p *ProgressBar) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true
	if p.drawn {
		fmt.Fprintln(p.writer)
	}
}

// percent returns the completed percentage, or -1 if unknown.
func (p *ProgressBar) percent() int {
	if p.total < 0 {
		return -1
	}
	if p.total == 0 {
		return 100
	}
	return int(p.current * 100 / p.total)
}

func (p *ProgressBar) bar() string {
	filled := 0
	switch {
	case p.total > 0:
		filled = int(p.current * int64(p.width) / p.total)
	case p.total == 0:
		filled = p.width
	}

	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			sb.WriteString("=")
		case i == filled-1:
			sb.WriteString(">")
		default:
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

func (p *ProgressBar) label() string {
	if p.total < 0 {
		return fmt.Sprintf("%s %s", formatSize(p.current), p.description)
	}
	return fmt.Sprintf("%s / %s %s", formatSize(p.current), formatSize(p.total), p.description)
}

// render draws the progress bar (must be called with lock held).
// Nothing is drawn on a non-TTY writer until Finish.
func (p *ProgressBar) render() {
	if !writerIsTTY(p.writer) {
		return
	}
	p.drawn = true
	if pct := p.percent(); pct >= 0 {
		fmt.Fprintf(p.writer, "\r%s %3d%% %s", p.bar(), pct, p.label())
		return
	}
	fmt.Fprintf(p.writer, "\r%s      %s", p.bar(), p.label())
}

// Spinner displays an animated spinner with a message.
// Example: |  Fetching catalog...
type Spinner struct {
	message string
	running bool
	chars   []string
	mu      sync.Mutex
	writer  io.Writer
	ticker  *time.Ticker
	done    chan struct{}
}

// NewSpinner creates a new spinner with a message. Call Start to show it.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  os.Stderr,
		done:    make(chan struct{}),
	}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the spinner animation.
// On a non-TTY writer nothing is animated or printed so that piped output
// stays clean.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	if !writerIsTTY(s.writer) {
		return
	}

	s.ticker = time.NewTicker(100 * time.Millisecond)
	go func() {
		idx := 0
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				if !s.running {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(s.writer, "\r%s  %s", s.chars[idx], s.message)
				idx = (idx + 1) % len(s.chars)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
	}
	close(s.done)
}
