// Package console provides a MessageSink that prints messages to a writer,
// for development and demos.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Sink implements ports.MessageSink by printing to a writer.
// Options are printed as-is, not interpreted.
type Sink struct {
	out io.Writer
}

// New creates a sink writing to Stdout.
func New() *Sink {
	return &Sink{out: os.Stdout}
}

// NewWithWriter creates a sink writing to w.
func NewWithWriter(w io.Writer) *Sink {
	return &Sink{out: w}
}

// Send prints the message.
func (s *Sink) Send(ctx context.Context, chatID string, text string, options map[string]any) error {
	if _, err := fmt.Fprintf(s.out, "[To %s] %s\n", chatID, text); err != nil {
		return err
	}
	if len(options) > 0 {
		if _, err := fmt.Fprintf(s.out, "  Options: %v\n", options); err != nil {
			return err
		}
	}
	return nil
}
