package output

import (
	"fmt"
	"io"
)

// DownloadReporter prints download announcements and, optionally, one
// progress bar per package. It satisfies the lifecycle controller's
// observer interface.
type DownloadReporter struct {
	w    io.Writer
	bars bool

	current     *ProgressBar
	currentName string
}

// NewDownloadReporter writes to w. With bars disabled only the
// announcement lines are printed, which is what concurrent updates need.
func NewDownloadReporter(w io.Writer, bars bool) *DownloadReporter {
	return &DownloadReporter{w: w, bars: bars}
}

// Downloading announces a transfer. from is empty for fresh installs.
func (r *DownloadReporter) Downloading(name, from, to string) {
	if from != "" && from != to {
		fmt.Fprintf(r.w, "Updating %s from version %s to %s...\n", name, from, to)
	}
	fmt.Fprintf(r.w, "Downloading %s version %s...\n", name, to)

	if r.bars {
		r.current = NewProgress(-1, name)
		r.current.SetWriter(r.w)
		r.currentName = name
	}
}

// Progress redraws the bar for name.
func (r *DownloadReporter) Progress(name string, written, total int64) {
	if r.current == nil || r.currentName != name {
		return
	}
	r.current.SetTotal(total)
	r.current.SetCurrent(written)
}

// Downloaded closes the bar for name.
func (r *DownloadReporter) Downloaded(name string, bytes int64) {
	if r.current == nil || r.currentName != name {
		return
	}
	r.current.SetCurrent(bytes)
	r.current.Finish()
	r.current = nil
	r.currentName = ""
}

// Failed drops the bar for name, ending its line if it was drawn.
func (r *DownloadReporter) Failed(name string, err error) {
	if r.current == nil || r.currentName != name {
		return
	}
	r.current.Abort()
	r.current = nil
	r.currentName = ""
}
