package turnview

import "babelbridge/internal/api"

type Visibility int

const (
	Hidden Visibility = iota
	CleanTarget
	TypingPlaceholder
	FullReveal
)

func (v Visibility) String() string {
	switch v {
	case CleanTarget:
		return "clean-target"
	case TypingPlaceholder:
		return "typing"
	case FullReveal:
		return "full-reveal"
	default:
		return "hidden"
	}
}

// Resolve decides what the viewer sees for one message. An empty viewerID is
// an anonymous viewer and never owns a message.
func Resolve(msg api.Message, viewerID string, participants []api.Participant, currentTurn int, typingActive bool) Visibility {
	answered := msg.Response != nil
	if msg.TurnNumber > currentTurn && !answered {
		return Hidden
	}

	speaker, _ := api.FindParticipant(participants, msg.Speaker)
	if speaker.IsAI {
		if msg.TurnNumber == currentTurn && !answered {
			if typingActive {
				return TypingPlaceholder
			}
			return Hidden
		}
		return CleanTarget
	}

	if !answered {
		return Hidden
	}
	if viewerID != "" && speaker.UserID == viewerID {
		return FullReveal
	}
	// Opponents' raw input and scores stay private.
	return CleanTarget
}

// Bubble is everything needed to render one visible message.
type Bubble struct {
	Visibility Visibility
	Turn       int
	Speaker    api.Participant
	IsViewer   bool

	// Text is the line in the viewer's chosen text mode.
	Text string
	// SpeechText is what the listen action reads aloud.
	SpeechText string

	// Set only for FullReveal.
	Submitted      string
	Diff           []WordToken
	RomanText      string
	NativeText     string
	EnglishText    string
	Score          int
	ScoreLabel     string
	ScoreBreakdown string
}

// Bubbles resolves every message of conv for the viewer and drops the hidden
// ones. Rendering inputs only; conv is not modified.
func Bubbles(conv *api.Conversation, viewerID string, mode api.TextMode, typingActive bool) []Bubble {
	if conv == nil {
		return nil
	}
	out := make([]Bubble, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		vis := Resolve(msg, viewerID, conv.Participants, conv.CurrentTurn, typingActive)
		if vis == Hidden {
			continue
		}
		out = append(out, buildBubble(msg, vis, conv.Participants, viewerID, mode))
	}
	return out
}

func buildBubble(msg api.Message, vis Visibility, participants []api.Participant, viewerID string, mode api.TextMode) Bubble {
	speaker, ok := api.FindParticipant(participants, msg.Speaker)
	if !ok {
		speaker = api.Participant{Role: msg.Speaker}
	}
	b := Bubble{
		Visibility: vis,
		Turn:       msg.TurnNumber,
		Speaker:    speaker,
		IsViewer:   viewerID != "" && !speaker.IsAI && speaker.UserID == viewerID,
	}
	if vis == TypingPlaceholder {
		return b
	}
	b.Text = msg.DisplayText(mode)
	b.SpeechText = msg.RomanText
	if vis != FullReveal || msg.Response == nil {
		return b
	}
	resp := msg.Response
	b.Submitted = resp.Text
	b.Diff = DiffWords(resp.Text, msg.DiffTarget(resp.InputMode))
	b.RomanText = msg.RomanText
	b.NativeText = msg.NativeText
	b.EnglishText = msg.EnglishText
	b.Score = resp.Score
	b.ScoreLabel = resp.ScoreLabel
	b.ScoreBreakdown = resp.ScoreBreakdown
	return b
}
