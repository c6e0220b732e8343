package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// spinner animates a status line on stderr while slow filesystem work runs.
// It stays silent when stderr is not a terminal.
type spinner struct {
	writer  io.Writer
	message string
	enabled bool
	done    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

func newSpinner(message string) *spinner {
	return &spinner{
		writer:  os.Stderr,
		message: message,
		enabled: isatty.IsTerminal(os.Stderr.Fd()),
		done:    make(chan struct{}),
	}
}

func (s *spinner) Start() {
	if !s.enabled {
		return
	}
	s.stopped.Add(1)
	go func() {
		defer s.stopped.Done()
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(frames) {
			_, _ = fmt.Fprintf(s.writer, "\r%s %s", frames[i], s.message)
			select {
			case <-s.done:
				_, _ = fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the line. Safe to call more than once.
func (s *spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	s.stopped.Wait()
}
