package turnview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"babelbridge/internal/api"
)

// convAt builds a two-seat conversation (A human "u-a", B AI unless
// humanB) at the given turn, with every earlier turn answered.
func convAt(turn int, status api.ConversationStatus, humanB bool) *api.Conversation {
	participants := []api.Participant{
		{UserID: "u-a", DisplayName: "Anya", Role: api.RoleA},
		{Role: api.RoleB, IsAI: true},
	}
	if humanB {
		participants[1] = api.Participant{UserID: "u-b", DisplayName: "Boris", Role: api.RoleB}
	}
	conv := &api.Conversation{ID: "c1", RoomID: "r1", Status: status, CurrentTurn: turn, Participants: participants}
	for n := 1; n <= 6; n++ {
		speaker := api.RoleA
		if n%2 == 0 {
			speaker = api.RoleB
		}
		msg := api.Message{TurnNumber: n, Speaker: speaker, RomanText: "privet drug", NativeText: "привет друг", EnglishText: "hello friend"}
		if n < turn {
			userID := "u-a"
			if speaker == api.RoleB {
				userID = "u-b"
			}
			msg.Response = &api.Response{UserID: userID, Text: "privet drug", InputMode: api.InputRoman, Score: 100, ScoreLabel: "Perfect!"}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

func TestAdvanceFirstSnapshotIsBaseline(t *testing.T) {
	now := time.Unix(1000, 0)
	state, effects := Advance(NewViewState("u-a"), convAt(2, api.ConversationActive, false), now)
	require.NotNil(t, state.Last)
	require.False(t, state.TypingActive(now))
	require.Equal(t, []Effect{ScrollToEnd{Turn: 2, Delay: ScrollSettle}}, effects)
}

func TestAdvanceArmsTypingForAITurn(t *testing.T) {
	now := time.Unix(1000, 0)
	state, _ := Advance(NewViewState("u-a"), convAt(1, api.ConversationActive, false), now)

	state, effects := Advance(state, convAt(2, api.ConversationActive, false), now)
	require.Contains(t, effects, Effect(ArmTyping{Turn: 2, Until: now.Add(TypingDelay)}))
	require.True(t, state.TypingActive(now))
	require.True(t, state.TypingActive(now.Add(TypingDelay-time.Millisecond)))
	require.False(t, state.TypingActive(now.Add(TypingDelay)))
}

func TestAdvanceDoesNotRearmWhileArmed(t *testing.T) {
	now := time.Unix(1000, 0)
	state, _ := Advance(NewViewState("u-a"), convAt(1, api.ConversationActive, false), now)
	state, _ = Advance(state, convAt(2, api.ConversationActive, false), now)

	// an out-of-order older snapshot followed by the newer one again
	later := now.Add(500 * time.Millisecond)
	state, _ = Advance(state, convAt(1, api.ConversationActive, false), later)
	state, effects := Advance(state, convAt(2, api.ConversationActive, false), later)
	for _, e := range effects {
		_, armed := e.(ArmTyping)
		require.False(t, armed, "typing must not be re-armed for the same turn")
	}
	require.Equal(t, now.Add(TypingDelay), state.TypingUntil)
}

func TestAdvanceNoTypingForHumanOrCompletedOrNoAdvance(t *testing.T) {
	now := time.Unix(1000, 0)

	state, _ := Advance(NewViewState("u-a"), convAt(1, api.ConversationActive, true), now)
	state, effects := Advance(state, convAt(2, api.ConversationActive, true), now)
	require.Equal(t, []Effect{ScrollToEnd{Turn: 2, Delay: ScrollSettle}}, effects)
	require.False(t, state.TypingActive(now))

	state, _ = Advance(NewViewState("u-a"), convAt(1, api.ConversationActive, false), now)
	state, _ = Advance(state, convAt(2, api.ConversationCompleted, false), now)
	require.False(t, state.TypingActive(now))

	state, _ = Advance(NewViewState("u-a"), convAt(3, api.ConversationActive, false), now)
	state, effects = Advance(state, convAt(3, api.ConversationActive, false), now)
	require.Empty(t, effects)
	state, effects = Advance(state, convAt(2, api.ConversationActive, false), now)
	require.Equal(t, []Effect{ScrollToEnd{Turn: 2, Delay: ScrollSettle}}, effects)
	require.False(t, state.TypingActive(now))
}

func TestAdvanceTypingIffAISpeakerAndActive(t *testing.T) {
	// Walk a non-decreasing turn sequence and check the arming rule at each step.
	turns := []int{1, 1, 2, 2, 3, 4, 4, 5, 6}
	for _, humanB := range []bool{false, true} {
		now := time.Unix(5000, 0)
		state := NewViewState("u-a")
		var prevTurn int
		for i, turn := range turns {
			status := api.ConversationActive
			if i == len(turns)-1 {
				status = api.ConversationCompleted
			}
			conv := convAt(turn, status, humanB)
			var effects []Effect
			state, effects = Advance(state, conv, now)

			armed := false
			for _, e := range effects {
				if a, ok := e.(ArmTyping); ok {
					armed = true
					require.Equal(t, now.Add(TypingDelay), a.Until)
				}
			}
			speaker, _ := conv.CurrentParticipant()
			want := i > 0 && turn > prevTurn && speaker.IsAI && status != api.ConversationCompleted
			require.Equal(t, want, armed, "step %d turn %d humanB=%v", i, turn, humanB)

			prevTurn = turn
			now = now.Add(3 * time.Second)
		}
	}
}

func TestResolveFutureTurnsHidden(t *testing.T) {
	conv := convAt(3, api.ConversationActive, true)
	for _, msg := range conv.Messages[3:] {
		require.Equal(t, Hidden, Resolve(msg, "u-a", conv.Participants, conv.CurrentTurn, true))
		require.Equal(t, Hidden, Resolve(msg, "u-b", conv.Participants, conv.CurrentTurn, false))
	}
}

func TestResolveAICurrentTurn(t *testing.T) {
	conv := convAt(4, api.ConversationActive, false)
	current, _ := conv.CurrentMessage()
	require.Equal(t, Hidden, Resolve(current, "u-a", conv.Participants, 4, false))
	require.Equal(t, TypingPlaceholder, Resolve(current, "u-a", conv.Participants, 4, true))

	past := conv.Messages[1]
	require.Equal(t, CleanTarget, Resolve(past, "u-a", conv.Participants, 4, false))
}

func TestResolveOwnAndOpponentMessages(t *testing.T) {
	conv := convAt(3, api.ConversationActive, true)
	mine := conv.Messages[0]   // A, answered
	theirs := conv.Messages[1] // B, answered
	pending := conv.Messages[2]

	require.Equal(t, FullReveal, Resolve(mine, "u-a", conv.Participants, 3, false))
	require.Equal(t, CleanTarget, Resolve(theirs, "u-a", conv.Participants, 3, false))
	require.Equal(t, FullReveal, Resolve(theirs, "u-b", conv.Participants, 3, false))
	require.Equal(t, Hidden, Resolve(pending, "u-a", conv.Participants, 3, false))
	require.Equal(t, Hidden, Resolve(pending, "u-b", conv.Participants, 3, false))

	// anonymous viewer sees everyone as an opponent
	require.Equal(t, CleanTarget, Resolve(mine, "", conv.Participants, 3, false))
}

func TestBubblesNeverLeakOpponentScores(t *testing.T) {
	conv := convAt(5, api.ConversationActive, true)
	conv.Messages[1].Response.Text = "privet drok"
	conv.Messages[1].Response.Score = 55

	bubbles := Bubbles(conv, "u-a", api.TextEnglish, false)
	require.Len(t, bubbles, 4)
	for _, b := range bubbles {
		if b.Speaker.UserID == "u-a" {
			require.Equal(t, FullReveal, b.Visibility)
			require.True(t, b.IsViewer)
			require.Equal(t, 100, b.Score)
			require.Equal(t, "privet drug", b.RomanText)
			require.Equal(t, "привет друг", b.NativeText)
			continue
		}
		require.Equal(t, CleanTarget, b.Visibility)
		require.Equal(t, "hello friend", b.Text)
		require.Empty(t, b.Submitted)
		require.Empty(t, b.Diff)
		require.Zero(t, b.Score)
		require.Empty(t, b.ScoreLabel)
	}
}

func TestBubbleDiffTargetFollowsInputMode(t *testing.T) {
	conv := convAt(2, api.ConversationActive, true)
	conv.Messages[0].Response.Text = "привет друг"
	conv.Messages[0].Response.InputMode = api.InputNative

	bubbles := Bubbles(conv, "u-a", api.TextRoman, false)
	require.Len(t, bubbles, 1)
	require.Equal(t, []WordToken{{"привет", true}, {"друг", true}}, bubbles[0].Diff)
}

func TestTextModeDoesNotMutateSnapshot(t *testing.T) {
	conv := convAt(4, api.ConversationActive, true)
	before := *conv
	msgs := append([]api.Message(nil), conv.Messages...)
	for _, mode := range []api.TextMode{api.TextRoman, api.TextNative, api.TextEnglish, api.TextRoman} {
		_ = Bubbles(conv, "u-a", mode, false)
	}
	require.Equal(t, before.CurrentTurn, conv.CurrentTurn)
	require.Equal(t, msgs, conv.Messages)
}

func TestDiffWordsPositional(t *testing.T) {
	require.Equal(t, []WordToken{{"a", true}, {"x", false}, {"c", true}}, DiffWords("a x c", "a b c"))
}

func TestDiffWordsMisalignment(t *testing.T) {
	tokens := DiffWords("a b c", "a x c")
	require.Equal(t, []bool{true, false, true}, correctness(tokens))

	tokens = DiffWords("x a b", "a b")
	require.Equal(t, []bool{false, false, false}, correctness(tokens))
}

func TestDiffWordsNormalisation(t *testing.T) {
	tokens := DiffWords("Privet,  DRUG!", "privet drug")
	require.Equal(t, []bool{true, true}, correctness(tokens))
	require.Equal(t, "Privet,", tokens[0].Word)

	tokens = DiffWords("Привет друг", "привет, друг")
	require.Equal(t, []bool{true, true}, correctness(tokens))

	tokens = DiffWords("hej hej extra", "hej")
	require.Equal(t, []bool{true, false, false}, correctness(tokens))

	require.Empty(t, DiffWords("   ", "hej"))
}

func TestDiffWordsComparesNonLatinWords(t *testing.T) {
	// An ASCII-only word class would strip these to "" and mark both correct.
	require.Equal(t, []WordToken{{"привет", true}, {"мир", false}}, DiffWords("привет мир", "привет друг"))
	require.Equal(t, "", normalizeWord("!?"))
}

func TestRebaseNeverArmsTyping(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	state, _ := Advance(NewViewState("u-a"), convAt(1, api.ConversationActive, false), now)

	next, effects := Rebase(state, convAt(2, api.ConversationActive, false))
	require.False(t, next.TypingActive(now))
	require.Equal(t, []Effect{ScrollToEnd{Turn: 2, Delay: ScrollSettle}}, effects)
	require.Equal(t, 2, next.Last.CurrentTurn)

	// the following poll sees no advance, so nothing is armed later either
	after, effects := Advance(next, convAt(2, api.ConversationActive, false), now)
	require.False(t, after.TypingActive(now))
	require.Empty(t, effects)

	same, effects := Rebase(after, nil)
	require.Equal(t, after, same)
	require.Nil(t, effects)
}

func TestDiffChars(t *testing.T) {
	tokens := DiffChars("Hej", "hek")
	require.Equal(t, []CharToken{{'H', true}, {'e', true}, {'j', false}}, tokens)
	require.Equal(t, []CharToken{{'я', true}, {'!', false}}, DiffChars("я!", "Я"))
}

func correctness(tokens []WordToken) []bool {
	out := make([]bool, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Correct)
	}
	return out
}

func TestSummariesAndAverages(t *testing.T) {
	conv := convAt(5, api.ConversationActive, true)
	conv.Messages[0].Response.Score = 80
	conv.Messages[2].Response.Score = 85
	conv.Messages[3].Response.Score = 100

	summaries := Summaries(conv)
	require.Len(t, summaries, 2)
	require.Equal(t, "u-a", summaries[0].UserID)
	require.Equal(t, 83, summaries[0].Average) // 82.5 rounds half away from zero
	require.Equal(t, 85, summaries[0].Best)
	require.Equal(t, 0, summaries[0].Perfect)
	require.Equal(t, 100, summaries[1].Average)
	require.Equal(t, 2, summaries[1].Perfect)
	require.Equal(t, 1, summaries[1].ColorIndex)

	fresh := convAt(1, api.ConversationActive, true)
	avgs := Averages(fresh)
	require.Len(t, avgs, 2)
	require.False(t, avgs[0].HasScore)

	done, limit := TurnProgress(conv)
	require.Equal(t, 4, done)
	require.Equal(t, 20, limit)
	conv.CurrentTurn = 25
	done, _ = TurnProgress(conv)
	require.Equal(t, 20, done)
}

func TestAIScoresExcludedFromAverages(t *testing.T) {
	conv := convAt(4, api.ConversationActive, false)
	avgs := Averages(conv)
	require.Len(t, avgs, 1)
	require.Equal(t, "Anya", avgs[0].DisplayName)
}

func TestTiersAndColors(t *testing.T) {
	require.Equal(t, TierSuccess, TierFor("Perfect!"))
	require.Equal(t, TierMiss, TierFor("Keep practising"))
	require.Equal(t, TierUnknown, TierFor("???"))
	require.True(t, CloseMiss(75))
	require.False(t, CloseMiss(100))

	conv := convAt(1, api.ConversationActive, true)
	require.Equal(t, 1, ColorIndexFor(conv.Participants, api.RoleB))
	require.Equal(t, 0, ColorIndexFor(conv.Participants, api.RoleD))
}
