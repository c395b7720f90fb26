// Package console implements asr.Listener over standard input, for running
// the assistant without a microphone.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Listener reads one line per turn.
type Listener struct {
	reader *bufio.Reader
}

// New creates a Listener reading from stdin.
func New() *Listener {
	return &Listener{reader: bufio.NewReader(os.Stdin)}
}

// Listen reads a line and returns it lowercased. io.EOF is passed through
// so the loop can tell a closed stdin from an empty answer.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	fmt.Print("> ")
	line, err := l.reader.ReadString('\n')
	if err == io.EOF && strings.TrimSpace(line) == "" {
		return "", io.EOF
	}
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// Close is a no-op.
func (l *Listener) Close() error { return nil }
