// Package console implements tts.Speaker by printing to stdout, for running
// the assistant without an audio stack.
package console

import (
	"context"
	"fmt"
)

// Speaker prints each reply prefixed with "Sistem:".
type Speaker struct{}

// New creates a console speaker.
func New() *Speaker { return &Speaker{} }

// Speak prints the text.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	fmt.Printf("Sistem: %s\n", text)
	return nil
}

// Close is a no-op.
func (s *Speaker) Close() error { return nil }
