// Package turnview holds the conversation screen's state machine: polling,
// turn-advance detection and per-viewer message visibility.
package turnview

import (
	"time"

	"babelbridge/internal/api"
)

const (
	PollInterval = 2500 * time.Millisecond
	TypingDelay  = 1800 * time.Millisecond
	ScrollSettle = 100 * time.Millisecond
)

// ViewState is the client-side state derived from successive snapshots.
type ViewState struct {
	Last *api.Conversation

	// TypingUntil is zero when no typing placeholder is armed.
	TypingUntil time.Time
	TypingTurn  int

	// RenderedTurn is the current turn the view last scrolled for.
	RenderedTurn int

	// ViewerID is advisory; it comes from an unverified token.
	ViewerID string
}

func NewViewState(viewerID string) ViewState {
	return ViewState{ViewerID: viewerID}
}

func (s ViewState) TypingActive(now time.Time) bool {
	return !s.TypingUntil.IsZero() && now.Before(s.TypingUntil)
}

// Effect is a side effect the caller must schedule after Advance.
type Effect interface{ isEffect() }

// ArmTyping asks for a redraw at Until, when the placeholder expires.
type ArmTyping struct {
	Turn  int
	Until time.Time
}

// ScrollToEnd asks for the message list to scroll to its end after Delay.
type ScrollToEnd struct {
	Turn  int
	Delay time.Duration
}

func (ArmTyping) isEffect()   {}
func (ScrollToEnd) isEffect() {}

// Advance folds a freshly fetched snapshot into state. The snapshot replaces
// the previous one wholesale.
func Advance(state ViewState, next *api.Conversation, now time.Time) (ViewState, []Effect) {
	if next == nil {
		return state, nil
	}
	var effects []Effect
	prev := state.Last

	if prev != nil && next.CurrentTurn > prev.CurrentTurn && next.Status != api.ConversationCompleted {
		if speaker, ok := next.CurrentParticipant(); ok && speaker.IsAI {
			alreadyArmed := state.TypingTurn == next.CurrentTurn && state.TypingActive(now)
			if !alreadyArmed {
				state.TypingUntil = now.Add(TypingDelay)
				state.TypingTurn = next.CurrentTurn
				effects = append(effects, ArmTyping{Turn: next.CurrentTurn, Until: state.TypingUntil})
			}
		}
	}

	state, effects = rebase(state, next, effects)
	return state, effects
}

// Rebase adopts a snapshot returned by the viewer's own submit. It keeps the
// scroll behaviour of Advance but never arms the typing placeholder; only
// fetched snapshots do that.
func Rebase(state ViewState, next *api.Conversation) (ViewState, []Effect) {
	if next == nil {
		return state, nil
	}
	return rebase(state, next, nil)
}

func rebase(state ViewState, next *api.Conversation, effects []Effect) (ViewState, []Effect) {
	if next.CurrentTurn != state.RenderedTurn {
		state.RenderedTurn = next.CurrentTurn
		effects = append(effects, ScrollToEnd{Turn: next.CurrentTurn, Delay: ScrollSettle})
	}
	state.Last = next
	return state, effects
}
