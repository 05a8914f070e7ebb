// Package progress provides CLI-based progress reporting
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// CLIReporter shows a spinner on interactive terminals and prints one line
// per update otherwise.
type CLIReporter struct {
	out       io.Writer
	spinner   *spinner.Spinner
	isCI      bool
	startTime time.Time
	mu        sync.Mutex
}

// NewCLIReporter creates a reporter writing to out. The spinner is used only
// when out is a terminal and CI is not set.
func NewCLIReporter(out io.Writer) *CLIReporter {
	r := &CLIReporter{
		out:       out,
		isCI:      os.Getenv("CI") == "true" || !isTerminal(out),
		startTime: time.Now(),
	}

	if !r.isCI {
		r.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
		r.spinner.Prefix = "Progress: "
		_ = r.spinner.Color("cyan", "bold")
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether the spinner is in use.
func (r *CLIReporter) Interactive() bool {
	return !r.isCI
}

func (r *CLIReporter) Update(msg string) {
	if r.isCI {
		fmt.Fprintf(r.out, "[PROGRESS] %s\n", msg)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.spinner.Suffix = " " + msg
	if !r.spinner.Active() {
		r.spinner.Start()
	}
}

func (r *CLIReporter) Stop() {
	elapsed := time.Since(r.startTime).Round(time.Second)
	if r.isCI {
		fmt.Fprintf(r.out, "[PROGRESS] done in %s\n", elapsed)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner.Active() {
		r.spinner.Stop()
	}
	fmt.Fprintf(r.out, "done in %s\n", elapsed)
}
