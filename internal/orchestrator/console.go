package orchestrator

import (
	"fmt"
	"io"
	"sync"
)

// consoleEmitter prints UI events when no terminal UI is running.
type consoleEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleEmitter(w io.Writer) *consoleEmitter {
	return &consoleEmitter{w: w}
}

// Emit writes one "event: payload" line.
func (c *consoleEmitter) Emit(event, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s: %s\n", event, payload)
	return err
}
