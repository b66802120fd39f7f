package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"babelbridge/internal/api"
	"babelbridge/internal/session"
	"babelbridge/internal/speech"
	"babelbridge/internal/turnview"
)

type fakeBackend struct {
	mu       sync.Mutex
	submits  int
	getConvs int
	maxTurns int
	conv     *api.Conversation
}

func (f *fakeBackend) FetchMeta(context.Context) (api.Meta, error) {
	return api.Meta{
		Languages: []api.LanguageMeta{{Code: "ru", DisplayName: "Russian", NativeSymbol: "Я", RomanSymbol: "ya", SpeechCode: "ru-RU"}},
		Levels:    []api.LevelMeta{{Code: "A1", Description: "Beginner"}},
	}, nil
}

func (f *fakeBackend) Register(_ context.Context, username, _ string) (api.TokenResponse, error) {
	return api.TokenResponse{AccessToken: "tok", Username: username}, nil
}

func (f *fakeBackend) Login(_ context.Context, username, _ string) (api.TokenResponse, error) {
	return api.TokenResponse{AccessToken: "tok", Username: username}, nil
}

func (f *fakeBackend) ListRooms(context.Context) ([]api.Room, error) { return nil, nil }

func (f *fakeBackend) GetRoom(_ context.Context, roomID string) (api.Room, error) {
	return api.Room{ID: roomID}, nil
}

func (f *fakeBackend) CreateRoom(_ context.Context, req api.CreateRoomRequest) (api.Room, error) {
	return api.Room{ID: "r1", Language: req.Language, Level: req.Level, MaxPlayers: req.MaxPlayers}, nil
}

func (f *fakeBackend) JoinRoom(_ context.Context, code, _ string) (api.Room, error) {
	return api.Room{ID: "r1", JoinCode: code}, nil
}

func (f *fakeBackend) DeleteRoom(context.Context, string) error { return nil }

func (f *fakeBackend) ListConversations(context.Context, string) ([]api.Conversation, error) {
	return nil, nil
}

func (f *fakeBackend) CreateConversation(_ context.Context, roomID, prompt string, maxTurns int) (api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxTurns = maxTurns
	return api.Conversation{ID: "c1", RoomID: roomID, Prompt: prompt}, nil
}

func (f *fakeBackend) GetConversation(context.Context, string, string) (*api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getConvs++
	return f.conv, nil
}

func (f *fakeBackend) SubmitTurn(_ context.Context, _, _ string, _ int, _ string, _ api.InputMode) (*api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return f.conv, nil
}

func (f *fakeBackend) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, fake *fakeBackend) model {
	t.Helper()
	store, err := session.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := newModel(ctx, appConfig{}, deps{client: fake, meta: api.NewMetaCache(fake), store: store})
	m.clock = func() time.Time { return testNow }
	m.viewerID = "u-a"
	m.username = "anya"
	return m
}

// testConversation seats Anya (u-a) as A and an AI as B. Turns before
// current are answered.
func testConversation(current int) *api.Conversation {
	lines := []string{"privet", "kak dela", "horosho", "poka"}
	conv := &api.Conversation{
		ID:          "c1",
		RoomID:      "r1",
		Prompt:      "Two friends meet",
		Status:      api.ConversationActive,
		CurrentTurn: current,
		Participants: []api.Participant{
			{UserID: "u-a", DisplayName: "Anya", Role: api.RoleA},
			{Role: api.RoleB, IsAI: true},
		},
	}
	for i, line := range lines {
		turn := i + 1
		msg := api.Message{
			TurnNumber:  turn,
			Speaker:     ternary(turn%2 == 1, api.RoleA, api.RoleB),
			RomanText:   line,
			NativeText:  line,
			EnglishText: "en " + line,
		}
		if turn < current && msg.Speaker == api.RoleA {
			msg.Response = &api.Response{UserID: "u-a", Text: line, InputMode: api.InputRoman, Score: 100, ScoreLabel: "Perfect!"}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

func TestSubmitAnswerIgnoresRepeatWhileOutstanding(t *testing.T) {
	fake := &fakeBackend{conv: testConversation(3)}
	m := newTestModel(t, fake)
	m.screen = screenConversation
	m.view.Last = testConversation(1)
	m.answer.SetValue("privet")

	first := m.submitAnswer()
	if first == nil {
		t.Fatalf("expected a submit command")
	}
	if second := m.submitAnswer(); second != nil {
		t.Fatalf("expected second submit to be ignored while the first is outstanding")
	}
	msg := first()
	if fake.submitCount() != 1 {
		t.Fatalf("expected exactly one submit, got %d", fake.submitCount())
	}
	if _, ok := msg.(submitDoneMsg); !ok {
		t.Fatalf("expected submitDoneMsg, got %T", msg)
	}
}

func TestSubmitAnswerNotMyTurn(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.view.Last = testConversation(2)
	m.answer.SetValue("kak dela")
	if cmd := m.submitAnswer(); cmd != nil {
		t.Fatalf("expected no submit on the AI's turn")
	}
	if m.submitting {
		t.Fatalf("submitting should stay false")
	}
}

func TestStalePollResultIsDropped(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenConversation
	m.pollGen = 2

	next, _ := m.Update(pollMsg{gen: 1, result: turnview.PollResult{Seq: 1, Snapshot: testConversation(1)}})
	got := next.(model)
	if got.view.Last != nil {
		t.Fatalf("expected a stale poll result to be ignored")
	}
}

func TestPollResultArmsTypingForAITurn(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenConversation
	m.pollGen = 2
	m.view = turnview.NewViewState("u-a")

	next, _ := m.Update(pollMsg{gen: 2, result: turnview.PollResult{Seq: 1, Snapshot: testConversation(1)}})
	m = next.(model)
	if m.view.TypingActive(testNow) {
		t.Fatalf("first snapshot should only set the baseline")
	}

	next, _ = m.Update(pollMsg{gen: 2, result: turnview.PollResult{Seq: 2, Snapshot: testConversation(2)}})
	m = next.(model)
	if !m.view.TypingActive(testNow) {
		t.Fatalf("expected typing indicator after the turn passed to the AI")
	}
	if m.view.TypingTurn != 2 {
		t.Fatalf("expected typing armed for turn 2, got %d", m.view.TypingTurn)
	}
	if !m.view.TypingActive(testNow.Add(turnview.TypingDelay - time.Millisecond)) {
		t.Fatalf("typing should last the full delay")
	}
	if m.view.TypingActive(testNow.Add(turnview.TypingDelay)) {
		t.Fatalf("typing should end after the delay")
	}
}

func TestTimelineHidesFutureTurns(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenConversation
	m.width = 120
	m.height = 80
	m.resize()
	m.applySnapshot(testConversation(3), true)

	view := m.timeline.View()
	if !strings.Contains(view, "kak dela") {
		t.Fatalf("expected the AI line in the timeline, got:\n%s", view)
	}
	if strings.Contains(view, "poka") {
		t.Fatalf("future AI line leaked into the timeline:\n%s", view)
	}
	if strings.Contains(view, "horosho") {
		t.Fatalf("the viewer's pending line should not be shown before it is answered:\n%s", view)
	}
}

func TestRegisterPasswordsMustMatch(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenAuth
	m.registering = true
	m.authInputs[authUsername].SetValue("anya")
	m.authInputs[authPassword].SetValue("secret1")
	m.authInputs[authConfirm].SetValue("secret2")

	if cmd := m.submitAuth(); cmd != nil {
		t.Fatalf("expected no request when passwords differ")
	}
	if m.formErr != "Passwords do not match" {
		t.Fatalf("unexpected form error: %q", m.formErr)
	}
	if m.inflight {
		t.Fatalf("inflight should stay false")
	}
}

func TestJoinCodeIsUppercased(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenDashboard
	m.form = formJoin
	m.formFocus = joinCode
	m.codeInput.Focus()

	m.updateJoinForm(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ab3d")})
	if got := m.codeInput.Value(); got != "AB3D" {
		t.Fatalf("expected AB3D, got %q", got)
	}
}

func TestRoomPollIgnoresStaleGeneration(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenRoom
	m.room = &api.Room{ID: "r1", Status: api.RoomWaiting}
	m.roomGen = 3

	next, _ := m.Update(roomPolledMsg{gen: 2, room: api.Room{ID: "r1", Status: api.RoomActive}, convID: "c1"})
	got := next.(model)
	if got.screen != screenRoom {
		t.Fatalf("stale room poll should not navigate, screen=%d", got.screen)
	}
}

func TestActiveRoomOpensConversation(t *testing.T) {
	fake := &fakeBackend{conv: testConversation(1)}
	m := newTestModel(t, fake)
	m.screen = screenRoom
	m.room = &api.Room{ID: "r1", Status: api.RoomWaiting}
	m.roomGen = 3
	gen := m.pollGen

	next, _ := m.Update(roomPolledMsg{gen: 3, room: api.Room{ID: "r1", Status: api.RoomActive}, convID: "c1"})
	m = next.(model)
	t.Cleanup(m.stopPolling)

	if m.screen != screenConversation {
		t.Fatalf("expected conversation screen, got %d", m.screen)
	}
	if m.convID != "c1" {
		t.Fatalf("unexpected conversation id %q", m.convID)
	}
	if m.poller == nil || m.pollCh == nil {
		t.Fatalf("expected a running poller")
	}
	if m.pollGen == gen {
		t.Fatalf("expected the poll generation to move on")
	}
	select {
	case res := <-m.pollCh:
		if res.Snapshot == nil || res.Snapshot.ID != "c1" {
			t.Fatalf("unexpected first snapshot: %+v", res.Snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an immediate first fetch")
	}
}

func TestTextModeCyclesAndPersists(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenConversation
	m.view.Last = testConversation(2)

	m.updateConversation(tea.KeyMsg{Type: tea.KeyTab})
	if m.textMode != api.TextNative {
		t.Fatalf("expected native mode, got %q", m.textMode)
	}
	if got := m.store.TextMode(); got != api.TextNative {
		t.Fatalf("expected native mode persisted, got %q", got)
	}

	m.updateConversation(tea.KeyMsg{Type: tea.KeyCtrlR})
	if got := m.store.InputMode(); got != api.InputNative {
		t.Fatalf("expected native input persisted, got %q", got)
	}
}

func TestViewRendersEachScreen(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.width = 100
	m.height = 40
	m.room = &api.Room{ID: "r1", Language: "Russian", Level: "A1", MaxPlayers: 2, JoinCode: "AB3D9F", CreatedBy: "u-a",
		Members: []api.Member{{UserID: "u-a", DisplayName: "Anya"}}}
	m.view.Last = testConversation(3)
	m.results = testConversation(5)
	m.resize()

	for _, screen := range []screenID{screenAuth, screenDashboard, screenRoom, screenConversation, screenResults} {
		m.screen = screen
		out := m.View()
		if !strings.Contains(out, "Babel") {
			t.Fatalf("screen %d: missing brand in view", screen)
		}
	}
	m.screen = screenRoom
	if out := m.View(); !strings.Contains(out, "Waiting for player...") {
		t.Fatalf("expected an empty seat in the waiting room")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BABEL_TEST_STR", "  value ")
	t.Setenv("BABEL_TEST_INT", "nope")
	t.Setenv("BABEL_TEST_BOOL", "off")

	if got := envOr("BABEL_TEST_STR", "x"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := envOr("BABEL_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := envOrInt("BABEL_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback for bad int, got %d", got)
	}
	if envOrBool("BABEL_TEST_BOOL", true) {
		t.Fatalf("expected off to parse as false")
	}
}

func TestTruncateIsRuneAware(t *testing.T) {
	if got := truncate("привет друг", 6); got != "при..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := initials("борис"); got != "БО" {
		t.Fatalf("unexpected initials %q", got)
	}
}

// runCmd executes cmd and any batched commands, returning every message along
// with how long each took to arrive.
func runCmd(cmd tea.Cmd) ([]tea.Msg, []time.Duration) {
	if cmd == nil {
		return nil, nil
	}
	start := time.Now()
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		var waits []time.Duration
		for _, c := range batch {
			m, w := runCmd(c)
			msgs = append(msgs, m...)
			waits = append(waits, w...)
		}
		return msgs, waits
	}
	return []tea.Msg{msg}, []time.Duration{time.Since(start)}
}

func TestCompletingSubmitOpensResultsAfterDelay(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenConversation
	m.convID = "c1"
	m.room = &api.Room{ID: "r1", Language: "Russian", Level: "A1"}
	m.view.Last = testConversation(3)
	m.submitting = true

	done := testConversation(5)
	done.Status = api.ConversationCompleted
	next, cmd := m.Update(submitDoneMsg{conv: done})
	m = next.(model)
	if cmd == nil {
		t.Fatalf("expected a redirect command after the final submit")
	}
	if m.screen != screenConversation {
		t.Fatalf("results should not open before the delay")
	}

	msgs, waits := runCmd(cmd)
	var redirect *showResultsMsg
	for i, msg := range msgs {
		if sr, ok := msg.(showResultsMsg); ok {
			redirect = &sr
			if waits[i] < completedRedirect {
				t.Fatalf("redirect fired after %s, want at least %s", waits[i], completedRedirect)
			}
		}
	}
	if redirect == nil || redirect.convID != "c1" {
		t.Fatalf("expected showResultsMsg for c1, got %#v", msgs)
	}

	next, _ = m.Update(showResultsMsg{convID: "c-other"})
	m = next.(model)
	if m.screen != screenConversation {
		t.Fatalf("a redirect for another conversation must be ignored")
	}

	next, _ = m.Update(*redirect)
	m = next.(model)
	if m.screen != screenResults {
		t.Fatalf("expected results screen, got %d", m.screen)
	}
	if m.results == nil || !m.results.Completed() {
		t.Fatalf("expected the completed snapshot on the results screen")
	}
}

func TestSubmitResponseDoesNotArmTyping(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.screen = screenConversation
	m.pollGen = 1

	next, _ := m.Update(pollMsg{gen: 1, result: turnview.PollResult{Seq: 1, Snapshot: testConversation(1)}})
	m = next.(model)
	m.submitting = true

	next, _ = m.Update(submitDoneMsg{conv: testConversation(2)})
	m = next.(model)
	if m.view.Last == nil || m.view.Last.CurrentTurn != 2 {
		t.Fatalf("expected the submit response to become the current snapshot")
	}
	if m.view.TypingActive(testNow) {
		t.Fatalf("the viewer's own submit must not arm the typing placeholder")
	}

	next, _ = m.Update(pollMsg{gen: 1, result: turnview.PollResult{Seq: 2, Snapshot: testConversation(2)}})
	m = next.(model)
	if m.view.TypingActive(testNow) {
		t.Fatalf("a poll at the same turn must not arm typing either")
	}
}

func TestResultsShowEveryPlayersResponse(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	conv := testConversation(5)
	conv.Status = api.ConversationCompleted
	conv.Participants[1] = api.Participant{UserID: "u-b", DisplayName: "Boris", Role: api.RoleB}
	conv.Messages[1].Response = &api.Response{
		UserID: "u-b", Text: "kak dila", InputMode: api.InputRoman,
		Score: 87, ScoreLabel: "Great", ScoreBreakdown: "one vowel off",
	}
	m.results = conv
	m.expanded = 2
	m.screen = screenResults
	m.width = 120
	m.height = 80
	m.resize()

	view := m.timeline.View()
	for _, want := range []string{"kak dila", "87%", "Great · 87%", "one vowel off"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q on the results screen, got:\n%s", want, view)
		}
	}
}

func TestStartConversationLeavesTurnLimitToServer(t *testing.T) {
	fake := &fakeBackend{}
	m := newTestModel(t, fake)
	msg := m.startConversationCmd("r1", "")()
	if _, ok := msg.(convStartedMsg); !ok {
		t.Fatalf("expected convStartedMsg, got %T", msg)
	}
	if fake.maxTurns != 0 {
		t.Fatalf("expected no explicit turn limit, got %d", fake.maxTurns)
	}
}

func TestCreateRoomUsesCatalogNames(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	meta, err := m.meta.Get(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	m.nameInput.SetValue("Anya")
	m.maxPlayers = 3

	cmd := m.submitCreate(meta)
	if cmd == nil {
		t.Fatalf("expected a create request")
	}
	opened, ok := cmd().(roomOpenedMsg)
	if !ok {
		t.Fatalf("expected roomOpenedMsg")
	}
	if opened.room.Language != "Russian" || opened.room.Level != "A1" || opened.room.MaxPlayers != 3 {
		t.Fatalf("unexpected room request: %+v", opened.room)
	}
}

func TestParseVoiceMap(t *testing.T) {
	got := parseVoiceMap(" ru = voice-ru ,es=voice-es,broken,=x,de=")
	if len(got) != 2 || got["ru"] != "voice-ru" || got["es"] != "voice-es" {
		t.Fatalf("unexpected voice map: %v", got)
	}
}

func TestSpeakerOptionsPickLanguageVoice(t *testing.T) {
	var mu sync.Mutex
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		models = append(models, r.URL.Query().Get("model"))
		mu.Unlock()
		_, _ = w.Write([]byte{0, 0})
	}))
	t.Cleanup(srv.Close)

	cfg := appConfig{deepgramKey: "key", ttsVoice: speech.DefaultVoice, ttsVoices: parseVoiceMap("ru=voice-ru")}
	opts := append(speakerOptions(cfg), speech.WithEndpoint(srv.URL))
	d := speech.NewDeepgram(cfg.deepgramKey, nil, opts...)

	if _, err := d.Synthesize(context.Background(), "privet", "ru-RU"); err != nil {
		t.Fatalf("synthesize ru: %v", err)
	}
	if _, err := d.Synthesize(context.Background(), "hola", "es-ES"); err != nil {
		t.Fatalf("synthesize es: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(models) != 2 || models[0] != "voice-ru" || models[1] != speech.DefaultVoice {
		t.Fatalf("unexpected voices: %v", models)
	}
}
