package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// LineSpinner animates a one-line message outside of a bubbletea program,
// for the blocking steps before a screen starts.
type LineSpinner struct {
	out      io.Writer
	message  string
	frames   []string
	interval time.Duration
	done     chan struct{}
	exited   chan struct{}
	once     sync.Once
}

func newLineSpinner(s spinner.Spinner, message string) *LineSpinner {
	return &LineSpinner{
		out:      os.Stdout,
		message:  message,
		frames:   s.Frames,
		interval: s.FPS,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Start begins drawing.
func (s *LineSpinner) Start() {
	go func() {
		defer close(s.exited)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r%s %s", SpinnerStyle.Render(s.frames[i%len(s.frames)]), s.message)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the line. It is safe to call more than once.
func (s *LineSpinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		<-s.exited
		fmt.Fprint(s.out, "\r\033[K")
	})
}

// RunConnectionSpinner starts a spinner for network steps and returns its
// stop function.
func RunConnectionSpinner(message string) func() {
	sp := newLineSpinner(spinner.Globe, message)
	sp.Start()
	return sp.Stop
}

// RunSpinner starts a general loading spinner and returns its stop function.
func RunSpinner(message string) func() {
	sp := newLineSpinner(spinner.Dot, message)
	sp.Start()
	return sp.Stop
}
