// Package dialogue runs the multi-turn slot-filling flows that build a
// calendar operation out of spoken answers.
//
// A flow owns exactly one Session from the moment a task intent is matched
// until a terminal outcome: commit, cancellation, redirect, give-up after
// repeated misrecognition, or a store failure. Every answer is checked for
// cancellation and for a competing top-level command ("redirect") before any
// slot value is extracted — a user may hijack any prompt with "hava nasıl"
// and the flow steps aside without leaving partial data behind.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sudeakyildz/sesli-asistan/internal/asr"
	"github.com/sudeakyildz/sesli-asistan/internal/intent"
	"github.com/sudeakyildz/sesli-asistan/internal/normalize"
	"github.com/sudeakyildz/sesli-asistan/internal/store"
	"github.com/sudeakyildz/sesli-asistan/internal/tts"
)

// Flow identifies which calendar operation a session is collecting slots
// for.
type Flow string

const (
	FlowIdle     Flow = "idle"
	FlowAdd      Flow = "add"
	FlowDelete   Flow = "delete"
	FlowComplete Flow = "complete"
)

// FlowForIntent maps a task intent to its flow kind, FlowIdle otherwise.
func FlowForIntent(it intent.Intent) Flow {
	switch it {
	case intent.TaskAdd:
		return FlowAdd
	case intent.TaskDelete:
		return FlowDelete
	case intent.TaskComplete:
		return FlowComplete
	}
	return FlowIdle
}

// Slot names one collected value.
type Slot string

const (
	SlotTitle       Slot = "title"
	SlotDate        Slot = "date"
	SlotTime        Slot = "time"
	SlotYear        Slot = "year"
	SlotDescription Slot = "description"
)

// Session is the mutable state of one flow. It is created when the flow
// starts and discarded on every terminal transition; at most one session
// exists at a time because the dialogue loop is single-threaded.
type Session struct {
	Flow  Flow
	Slots map[Slot]string
}

func newSession(flow Flow) *Session {
	return &Session{Flow: flow, Slots: make(map[Slot]string)}
}

// OutcomeKind classifies how a flow ended.
type OutcomeKind int

const (
	// Committed means the calendar operation was applied.
	Committed OutcomeKind = iota
	// Cancelled means the user spoke the cancellation keyword.
	Cancelled
	// Redirected means an answer was itself a valid top-level command;
	// the caller must re-dispatch Outcome.Utterance.
	Redirected
	// NotFound means the delete/complete target does not exist.
	NotFound
	// GaveUp means a slot could not be understood within the retry budget.
	GaveUp
	// StoreFailed means a task store call failed; nothing was mutated
	// beyond what the outcome's spoken report already covered.
	StoreFailed
)

// Outcome is the terminal result of a flow.
type Outcome struct {
	Kind      OutcomeKind
	Utterance string // raw utterance to re-dispatch when Kind == Redirected
}

// cancelWord aborts any flow when present in a cleaned answer.
const cancelWord = "iptal"

// DefaultMaxRetries bounds re-prompting per slot. The assistant used to
// re-ask forever; a bounded budget with a spoken give-up keeps the loop
// testable and escapable.
const DefaultMaxRetries = 3

// Manager drives slot-filling flows.
type Manager struct {
	listener   asr.Listener
	speaker    tts.Speaker
	matcher    *intent.Matcher
	tasks      store.Store
	maxRetries int
	now        func() time.Time
}

// New creates a Manager. maxRetries <= 0 selects DefaultMaxRetries.
func New(listener asr.Listener, speaker tts.Speaker, matcher *intent.Matcher, tasks store.Store, maxRetries int) *Manager {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Manager{
		listener:   listener,
		speaker:    speaker,
		matcher:    matcher,
		tasks:      tasks,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Run executes the flow for the given task intent through to a terminal
// outcome. The session lives only inside this call.
func (m *Manager) Run(ctx context.Context, it intent.Intent) (Outcome, error) {
	flow := FlowForIntent(it)
	session := newSession(flow)
	slog.Info("dialogue flow started", "flow", flow)

	var outcome Outcome
	var err error
	switch flow {
	case FlowAdd:
		outcome, err = m.runAdd(ctx, session)
	case FlowDelete, FlowComplete:
		outcome, err = m.runDeleteOrComplete(ctx, session)
	default:
		return Outcome{}, fmt.Errorf("intent %q does not start a flow", it)
	}
	if err != nil {
		return Outcome{}, err
	}
	slog.Info("dialogue flow finished", "flow", flow, "outcome", outcome.Kind)
	return outcome, nil
}

// speak logs rather than fails on TTS errors — losing one prompt must not
// kill the flow.
func (m *Manager) speak(ctx context.Context, text string) {
	if err := m.speaker.Speak(ctx, text); err != nil {
		slog.Warn("speech output failed", "error", err)
	}
}

// errTerminal carries a terminal outcome out of the prompt helpers.
type errTerminal struct{ outcome Outcome }

func (e *errTerminal) Error() string { return "dialogue flow ended" }

// ask prompts, listens, and extracts one slot value. The cancellation check
// and the redirect check run on every answer, strictly before extraction.
// The retry budget covers empty transcripts and failed extractions alike.
func (m *Manager) ask(ctx context.Context, prompt, retryPrompt string, extract func(clean string) (string, bool)) (string, error) {
	if retryPrompt == "" {
		retryPrompt = prompt
	}
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if attempt == 0 {
			m.speak(ctx, prompt)
		} else {
			m.speak(ctx, retryPrompt)
		}

		raw, err := m.listener.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Warn("listen failed, re-prompting", "error", err)
			continue
		}
		clean := normalize.Clean(raw)
		if clean == "" {
			m.speak(ctx, "Cevap alınamadı, lütfen tekrar söyleyin.")
			continue
		}
		if strings.Contains(clean, cancelWord) {
			m.speak(ctx, "İşlem iptal edildi. Size başka nasıl yardımcı olabilirim?")
			return "", &errTerminal{Outcome{Kind: Cancelled}}
		}
		if _, ok := m.matcher.Match(ctx, clean); ok {
			return "", &errTerminal{Outcome{Kind: Redirected, Utterance: raw}}
		}
		if value, ok := extract(clean); ok {
			return value, nil
		}
	}
	// The give-up apology is spoken by finish, not here — some callers
	// (the lookup-time prompt) recover instead of aborting.
	return "", &errTerminal{Outcome{Kind: GaveUp}}
}

// terminalOutcome unwraps an errTerminal, if that is what err is.
func terminalOutcome(err error) (Outcome, bool) {
	var term *errTerminal
	if errors.As(err, &term) {
		return term.outcome, true
	}
	return Outcome{}, false
}
