// Package tts defines the speech output interface for the assistant.
//
// Every prompt and reply goes through a Speaker. Speaking is blocking and
// fire-and-forget from the dialogue loop's perspective: the loop waits for
// the audio to finish, then listens for the next utterance.
package tts

import "context"

// Speaker renders text as speech.
type Speaker interface {
	// Speak synthesizes and plays the text, blocking until done.
	Speak(ctx context.Context, text string) error

	// Close releases any resources held by the speaker.
	Close() error
}
