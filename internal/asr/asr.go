// Package asr defines the speech capture interface for the assistant.
//
// The dialogue loop blocks on Listen once per turn; it is the loop's only
// suspension point. An empty transcript is a valid result (nothing was
// said), not an error.
package asr

import "context"

// Listener captures one utterance and returns its transcript.
type Listener interface {
	// Listen blocks until a transcript is available. It returns "" when
	// no speech was recognized within the capture window.
	Listen(ctx context.Context) (string, error)

	// Close releases any resources held by the listener.
	Close() error
}
