package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"babelbridge/internal/api"
	"babelbridge/internal/session"
	"babelbridge/internal/speech"
	"babelbridge/internal/turnview"
)

// completedRedirect is the pause between a completing submit and the results screen.
const completedRedirect = 1200 * time.Millisecond

type screenID int

const (
	screenAuth screenID = iota
	screenDashboard
	screenRoom
	screenConversation
	screenResults
)

// backend is the slice of api.Client the screens use.
type backend interface {
	Register(ctx context.Context, username, password string) (api.TokenResponse, error)
	Login(ctx context.Context, username, password string) (api.TokenResponse, error)
	ListRooms(ctx context.Context) ([]api.Room, error)
	GetRoom(ctx context.Context, roomID string) (api.Room, error)
	CreateRoom(ctx context.Context, req api.CreateRoomRequest) (api.Room, error)
	JoinRoom(ctx context.Context, joinCode, displayName string) (api.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	ListConversations(ctx context.Context, roomID string) ([]api.Conversation, error)
	CreateConversation(ctx context.Context, roomID, prompt string, maxTurns int) (api.Conversation, error)
	GetConversation(ctx context.Context, roomID, convID string) (*api.Conversation, error)
	SubmitTurn(ctx context.Context, roomID, convID string, turnNumber int, text string, mode api.InputMode) (*api.Conversation, error)
}

type deps struct {
	client  backend
	meta    *api.MetaCache
	store   *session.Store
	speaker speech.Speaker
}

type dashForm int

const (
	formNone dashForm = iota
	formCreate
	formJoin
	formDelete
)

const (
	authUsername = iota
	authPassword
	authConfirm
)

const (
	createName = iota
	createLanguage
	createLevel
	createPlayers
)

const (
	joinName = iota
	joinCode
)

type model struct {
	ctx     context.Context
	cfg     appConfig
	client  backend
	meta    *api.MetaCache
	store   *session.Store
	speaker speech.Speaker
	log     *slog.Logger
	clock   func() time.Time

	screen   screenID
	username string
	viewerID string

	statusLine string
	logs       []string
	inflight   bool
	formErr    string

	width  int
	height int

	// auth
	registering bool
	authInputs  []textinput.Model
	authFocus   int

	// dashboard
	rooms       []api.Room
	roomsLoaded bool
	roomIndex   int
	form        dashForm
	formFocus   int
	nameInput   textinput.Model
	codeInput   textinput.Model
	langIndex   int
	levelIndex  int
	maxPlayers  int

	// waiting room
	room        *api.Room
	roomGen     int
	promptInput textinput.Model
	starting    bool

	// conversation
	convID     string
	view       turnview.ViewState
	poller     *turnview.Poller
	pollCh     <-chan turnview.PollResult
	pollGen    int
	textMode   api.TextMode
	inputMode  api.InputMode
	answer     textinput.Model
	showHint   bool
	submitting bool

	// results
	results     *api.Conversation
	resultIndex int
	expanded    int

	timeline viewport.Model
	spinner  spinner.Model
	theme    uiTheme
}

type metaLoadedMsg struct {
	meta api.Meta
	err  error
}

type authDoneMsg struct {
	token       string
	username    string
	registering bool
	err         error
}

type roomsLoadedMsg struct {
	rooms []api.Room
	err   error
}

type roomOpenedMsg struct {
	room     api.Room
	fallback string
	err      error
}

type roomDeletedMsg struct {
	roomID string
	err    error
}

type roomTickMsg struct {
	gen int
}

type roomPolledMsg struct {
	gen    int
	room   api.Room
	convID string
	err    error
}

type convStartedMsg struct {
	conv api.Conversation
	err  error
}

type pollMsg struct {
	gen    int
	result turnview.PollResult
}

type pollClosedMsg struct {
	gen int
}

type typingExpiredMsg struct {
	turn int
}

type scrollMsg struct {
	turn int
}

type submitDoneMsg struct {
	conv *api.Conversation
	err  error
}

type showResultsMsg struct {
	convID string
}

type resultsLoadedMsg struct {
	conv *api.Conversation
	err  error
}

type spokenMsg struct {
	err error
}

func newTextInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = "❯ "
	in.Placeholder = placeholder
	in.CharLimit = limit
	return in
}

func newModel(ctx context.Context, cfg appConfig, d deps) model {
	username := newTextInput("username", 64)
	password := newTextInput("password", 128)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	confirm := newTextInput("confirm password", 128)
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '•'
	username.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#e8643a"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4

	var speaker speech.Speaker = speech.Nop{}
	if d.speaker != nil {
		speaker = d.speaker
	}

	m := model{
		ctx:         ctx,
		cfg:         cfg,
		client:      d.client,
		meta:        d.meta,
		store:       d.store,
		speaker:     speaker,
		log:         slog.Default().With("component", "tui"),
		clock:       time.Now,
		screen:      screenAuth,
		statusLine:  "starting...",
		logs:        []string{},
		authInputs:  []textinput.Model{username, password, confirm},
		nameInput:   newTextInput("e.g. Maria", 40),
		codeInput:   newTextInput("e.g. AB3D9F", 12),
		maxPlayers:  2,
		promptInput: newTextInput("Leave blank for AI to pick a scenario, or describe your own...", 300),
		answer:      newTextInput("", 500),
		textMode:    d.store.TextMode(),
		inputMode:   d.store.InputMode(),
		timeline:    timeline,
		spinner:     sp,
		theme:       newTheme(),
	}

	token, name, err := d.store.Token()
	if err != nil {
		m.log.Warn("reading session", "err", err)
	}
	if token != "" {
		m.signIn(token, name)
	} else {
		m.statusLine = "sign in or register"
	}
	return m
}

// signIn records the identity behind token. The decoded subject is only used
// to personalise the screens; the server authorises every request itself.
func (m *model) signIn(token, username string) {
	m.username = username
	viewerID, err := session.ViewerID(token)
	if err != nil {
		m.log.Warn("token subject unreadable", "err", err)
		viewerID = ""
	}
	m.viewerID = viewerID
	m.screen = screenDashboard
	m.statusLine = fmt.Sprintf("signed in as %s", nullCoalesce(username, "player"))
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.loadMetaCmd(), textinput.Blink}
	if m.screen == screenDashboard {
		cmds = append(cmds, m.loadRoomsCmd())
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case metaLoadedMsg:
		if msg.err != nil {
			m.appendLog("catalog unavailable: " + compactSingleLine(msg.err.Error(), 160))
			break
		}
		m.langIndex = clampInt(m.langIndex, 0, maxInt(0, len(msg.meta.Languages)-1))
		m.levelIndex = clampInt(m.levelIndex, 0, maxInt(0, len(msg.meta.Levels)-1))
	case authDoneMsg:
		m.inflight = false
		if msg.err != nil {
			m.formErr = api.Message(msg.err, ternary(msg.registering, "Registration failed", "Login failed"))
			m.appendLog("auth failed: " + m.formErr)
			break
		}
		if err := m.store.SaveToken(msg.token, msg.username); err != nil {
			m.logError(fmt.Errorf("saving session: %w", err))
		}
		m.formErr = ""
		for i := range m.authInputs {
			m.authInputs[i].Reset()
		}
		m.signIn(msg.token, msg.username)
		cmds = append(cmds, m.loadRoomsCmd())
	case roomsLoadedMsg:
		m.roomsLoaded = true
		if msg.err != nil {
			m.appendLog("room list failed: " + compactSingleLine(msg.err.Error(), 160))
			break
		}
		m.rooms = msg.rooms
		m.roomIndex = clampInt(m.roomIndex, 0, maxInt(0, len(m.rooms)-1))
		m.statusLine = fmt.Sprintf("%d rooms", len(m.rooms))
	case roomOpenedMsg:
		m.inflight = false
		if msg.err != nil {
			m.formErr = api.Message(msg.err, msg.fallback)
			break
		}
		m.form = formNone
		m.formErr = ""
		cmds = append(cmds, m.enterRoom(msg.room))
	case roomDeletedMsg:
		m.inflight = false
		m.form = formNone
		if msg.err != nil {
			m.formErr = api.Message(msg.err, "Failed to delete room")
			break
		}
		m.statusLine = "room deleted"
		cmds = append(cmds, m.loadRoomsCmd())
	case roomTickMsg:
		if msg.gen != m.roomGen || m.screen != screenRoom || m.room == nil {
			break
		}
		cmds = append(cmds, m.fetchRoomCmd(m.roomGen, m.room.ID), tickRoom(m.roomGen))
	case roomPolledMsg:
		if msg.gen != m.roomGen || m.screen != screenRoom {
			break
		}
		if msg.err != nil {
			m.log.Debug("room poll failed", "err", msg.err)
			break
		}
		room := msg.room
		m.room = &room
		if room.Status == api.RoomActive && msg.convID != "" {
			cmds = append(cmds, m.openConversation(msg.convID))
		}
	case convStartedMsg:
		m.starting = false
		if msg.err != nil {
			m.formErr = api.Message(msg.err, "Failed to start conversation")
			break
		}
		if m.screen == screenRoom {
			cmds = append(cmds, m.openConversation(msg.conv.ID))
		}
	case pollMsg:
		if msg.gen != m.pollGen || m.screen != screenConversation {
			// the poller that produced this was torn down
			break
		}
		cmds = append(cmds, m.applySnapshot(msg.result.Snapshot, true)...)
		cmds = append(cmds, waitPoll(m.pollGen, m.pollCh))
	case pollClosedMsg:
		if msg.gen == m.pollGen {
			m.pollCh = nil
			m.appendLog("polling stopped")
		}
	case typingExpiredMsg:
		if m.screen == screenConversation {
			m.renderTimeline()
		}
	case scrollMsg:
		if m.screen == screenConversation && msg.turn == m.view.RenderedTurn {
			m.timeline.GotoBottom()
		}
	case submitDoneMsg:
		m.submitting = false
		if m.screen != screenConversation {
			break
		}
		if msg.err != nil {
			m.formErr = api.Message(msg.err, "Failed to submit turn")
			m.appendLog("submit failed: " + m.formErr)
			break
		}
		m.formErr = ""
		m.answer.Reset()
		m.showHint = false
		cmds = append(cmds, m.applySnapshot(msg.conv, false)...)
		if msg.conv.Completed() {
			convID := m.convID
			cmds = append(cmds, tea.Tick(completedRedirect, func(time.Time) tea.Msg {
				return showResultsMsg{convID: convID}
			}))
		}
	case showResultsMsg:
		if m.screen == screenConversation && msg.convID == m.convID {
			cmds = append(cmds, m.openResults())
		}
	case resultsLoadedMsg:
		if m.screen != screenResults {
			break
		}
		if msg.err != nil {
			m.appendLog("results refresh failed: " + compactSingleLine(msg.err.Error(), 160))
			break
		}
		m.results = msg.conv
		m.renderResults()
	case spokenMsg:
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, speech.ErrDisabled):
			m.statusLine = "speech disabled · set DEEPGRAM_API_KEY to hear lines"
		case errors.Is(msg.err, context.Canceled):
		default:
			m.logError(msg.err)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.screen == screenConversation && m.view.TypingActive(m.clock()) {
			m.renderTimeline()
		}
	case tea.MouseMsg:
		if m.screen == screenConversation || m.screen == screenResults {
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stopPolling()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch m.screen {
		case screenAuth:
			cmd = m.updateAuth(msg)
		case screenDashboard:
			cmd = m.updateDashboard(msg)
		case screenRoom:
			cmd = m.updateRoom(msg)
		case screenConversation:
			cmd = m.updateConversation(msg)
		case screenResults:
			cmd = m.updateResults(msg)
		}
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) updateAuth(msg tea.KeyMsg) tea.Cmd {
	fields := 2
	if m.registering {
		fields = 3
	}
	switch msg.String() {
	case "ctrl+r":
		m.registering = !m.registering
		m.formErr = ""
		if !m.registering && m.authFocus == authConfirm {
			return m.focusAuth(authPassword)
		}
		return nil
	case "tab", "down":
		return m.focusAuth((m.authFocus + 1) % fields)
	case "shift+tab", "up":
		return m.focusAuth((m.authFocus + fields - 1) % fields)
	case "enter":
		return m.submitAuth()
	case "esc":
		m.formErr = ""
		return nil
	}
	var cmd tea.Cmd
	m.authInputs[m.authFocus], cmd = m.authInputs[m.authFocus].Update(msg)
	return cmd
}

func (m *model) focusAuth(idx int) tea.Cmd {
	m.authFocus = idx
	for i := range m.authInputs {
		m.authInputs[i].Blur()
	}
	return m.authInputs[idx].Focus()
}

func (m *model) submitAuth() tea.Cmd {
	if m.inflight {
		return nil
	}
	username := strings.TrimSpace(m.authInputs[authUsername].Value())
	password := m.authInputs[authPassword].Value()
	if username == "" || password == "" {
		m.formErr = "Username and password are required"
		return nil
	}
	if m.registering && password != m.authInputs[authConfirm].Value() {
		m.formErr = "Passwords do not match"
		return nil
	}
	m.formErr = ""
	m.inflight = true
	return m.authCmd(username, password, m.registering)
}

func (m *model) updateDashboard(msg tea.KeyMsg) tea.Cmd {
	switch m.form {
	case formCreate:
		return m.updateCreateForm(msg)
	case formJoin:
		return m.updateJoinForm(msg)
	case formDelete:
		switch msg.String() {
		case "y", "Y":
			if room, ok := m.selectedRoom(); ok && !m.inflight {
				m.inflight = true
				return m.deleteRoomCmd(room.ID)
			}
			m.form = formNone
		case "n", "N", "esc":
			m.form = formNone
			m.statusLine = "delete canceled"
		}
		return nil
	}

	switch msg.String() {
	case "up", "k":
		m.roomIndex = maxInt(0, m.roomIndex-1)
	case "down", "j":
		m.roomIndex = minInt(maxInt(0, len(m.rooms)-1), m.roomIndex+1)
	case "enter":
		if room, ok := m.selectedRoom(); ok {
			return m.enterRoom(room)
		}
	case "c":
		m.form = formCreate
		m.formErr = ""
		m.formFocus = createName
		m.nameInput.Reset()
		if _, ok := m.meta.Cached(); !ok {
			return tea.Batch(m.nameInput.Focus(), m.loadMetaCmd())
		}
		return m.nameInput.Focus()
	case "J":
		m.form = formJoin
		m.formErr = ""
		m.formFocus = joinName
		m.nameInput.Reset()
		m.codeInput.Reset()
		m.codeInput.Blur()
		return m.nameInput.Focus()
	case "d":
		room, ok := m.selectedRoom()
		if !ok {
			break
		}
		if m.viewerID == "" || room.CreatedBy != m.viewerID {
			m.statusLine = "only the host can delete a room"
			break
		}
		m.form = formDelete
	case "r":
		m.statusLine = "refreshing rooms..."
		return m.loadRoomsCmd()
	case "L":
		return m.logout()
	case "q":
		m.stopPolling()
		return tea.Quit
	}
	return nil
}

func (m *model) selectedRoom() (api.Room, bool) {
	if m.roomIndex < 0 || m.roomIndex >= len(m.rooms) {
		return api.Room{}, false
	}
	return m.rooms[m.roomIndex], true
}

func (m *model) logout() tea.Cmd {
	if err := m.store.ClearToken(); err != nil {
		m.logError(fmt.Errorf("clearing session: %w", err))
	}
	m.stopPolling()
	m.username = ""
	m.viewerID = ""
	m.rooms = nil
	m.roomsLoaded = false
	m.roomIndex = 0
	m.room = nil
	m.form = formNone
	m.formErr = ""
	m.screen = screenAuth
	m.statusLine = "signed out"
	return m.focusAuth(authUsername)
}

func (m *model) updateCreateForm(msg tea.KeyMsg) tea.Cmd {
	meta, _ := m.meta.Cached()
	switch msg.String() {
	case "esc":
		m.form = formNone
		m.formErr = ""
		m.nameInput.Blur()
		return nil
	case "tab", "down":
		m.formFocus = (m.formFocus + 1) % 4
	case "shift+tab", "up":
		m.formFocus = (m.formFocus + 3) % 4
	case "left", "right":
		delta := ternary(msg.String() == "left", -1, 1)
		switch m.formFocus {
		case createLanguage:
			m.langIndex = cycleIndex(len(meta.LanguageNames()), m.langIndex, delta)
		case createLevel:
			m.levelIndex = cycleIndex(len(meta.LevelCodes()), m.levelIndex, delta)
		case createPlayers:
			m.maxPlayers = clampInt(m.maxPlayers+delta, 2, 4)
		default:
			var cmd tea.Cmd
			m.nameInput, cmd = m.nameInput.Update(msg)
			return cmd
		}
		return nil
	case "enter":
		return m.submitCreate(meta)
	default:
		if m.formFocus == createName {
			var cmd tea.Cmd
			m.nameInput, cmd = m.nameInput.Update(msg)
			return cmd
		}
		return nil
	}
	if m.formFocus == createName {
		return m.nameInput.Focus()
	}
	m.nameInput.Blur()
	return nil
}

func (m *model) submitCreate(meta api.Meta) tea.Cmd {
	if m.inflight {
		return nil
	}
	name := strings.TrimSpace(m.nameInput.Value())
	if name == "" {
		m.formErr = "Display name is required"
		return nil
	}
	languages, levels := meta.LanguageNames(), meta.LevelCodes()
	if len(languages) == 0 || len(levels) == 0 {
		m.formErr = "Language catalog not loaded yet"
		return m.loadMetaCmd()
	}
	req := api.CreateRoomRequest{
		Language:    languages[clampInt(m.langIndex, 0, len(languages)-1)],
		Level:       levels[clampInt(m.levelIndex, 0, len(levels)-1)],
		MaxPlayers:  clampInt(m.maxPlayers, 2, 4),
		DisplayName: name,
	}
	m.formErr = ""
	m.inflight = true
	return m.createRoomCmd(req)
}

func (m *model) updateJoinForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.form = formNone
		m.formErr = ""
		m.nameInput.Blur()
		m.codeInput.Blur()
		return nil
	case "tab", "shift+tab", "up", "down":
		if m.formFocus == joinName {
			m.formFocus = joinCode
			m.nameInput.Blur()
			return m.codeInput.Focus()
		}
		m.formFocus = joinName
		m.codeInput.Blur()
		return m.nameInput.Focus()
	case "enter":
		return m.submitJoin()
	}
	var cmd tea.Cmd
	if m.formFocus == joinCode {
		m.codeInput, cmd = m.codeInput.Update(msg)
		if upper := strings.ToUpper(m.codeInput.Value()); upper != m.codeInput.Value() {
			m.codeInput.SetValue(upper)
		}
		return cmd
	}
	m.nameInput, cmd = m.nameInput.Update(msg)
	return cmd
}

func (m *model) submitJoin() tea.Cmd {
	if m.inflight {
		return nil
	}
	name := strings.TrimSpace(m.nameInput.Value())
	code := strings.ToUpper(strings.TrimSpace(m.codeInput.Value()))
	if name == "" || code == "" {
		m.formErr = "Display name and room code are required"
		return nil
	}
	m.formErr = ""
	m.inflight = true
	return m.joinRoomCmd(code, name)
}

// enterRoom shows the waiting room and starts polling it.
func (m *model) enterRoom(room api.Room) tea.Cmd {
	m.stopPolling()
	m.room = &room
	m.screen = screenRoom
	m.formErr = ""
	m.starting = false
	m.roomGen++
	m.promptInput.Reset()
	m.statusLine = fmt.Sprintf("room %s", room.JoinCode)
	cmds := []tea.Cmd{m.fetchRoomCmd(m.roomGen, room.ID), tickRoom(m.roomGen)}
	if m.isHost() {
		cmds = append(cmds, m.promptInput.Focus())
	} else {
		m.promptInput.Blur()
	}
	return tea.Batch(cmds...)
}

func (m *model) isHost() bool {
	return m.room != nil && m.viewerID != "" && m.room.CreatedBy == m.viewerID
}

func (m *model) backToDashboard() tea.Cmd {
	m.stopPolling()
	m.roomGen++
	m.screen = screenDashboard
	m.formErr = ""
	m.form = formNone
	m.results = nil
	m.promptInput.Blur()
	m.answer.Blur()
	return m.loadRoomsCmd()
}

func (m *model) updateRoom(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return m.backToDashboard()
	case "enter":
		if !m.isHost() || m.starting || m.room == nil {
			return nil
		}
		m.starting = true
		m.formErr = ""
		return m.startConversationCmd(m.room.ID, strings.TrimSpace(m.promptInput.Value()))
	}
	if !m.isHost() {
		return nil
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return cmd
}

// openConversation switches to the conversation screen and starts a fresh
// poller. Any earlier poller is stopped and its results dropped.
func (m *model) openConversation(convID string) tea.Cmd {
	m.stopPolling()
	m.roomGen++
	m.screen = screenConversation
	m.convID = convID
	m.view = turnview.NewViewState(m.viewerID)
	m.submitting = false
	m.showHint = false
	m.formErr = ""
	m.answer.Reset()
	m.promptInput.Blur()
	m.timeline.SetContent("")
	m.timeline.GotoTop()

	client := m.client
	roomID := m.room.ID
	fetch := func(ctx context.Context) (*api.Conversation, error) {
		return client.GetConversation(ctx, roomID, convID)
	}
	m.poller = turnview.NewPoller(fetch, turnview.WithPollLogger(m.log))
	m.pollCh = m.poller.Start(m.ctx)
	m.statusLine = "conversation started"
	m.appendLog("polling conversation " + convID)
	return tea.Batch(waitPoll(m.pollGen, m.pollCh), m.answer.Focus())
}

// stopPolling tears down the conversation poller. Bumping the generation
// makes Update ignore anything the old poller still delivers.
func (m *model) stopPolling() {
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
	m.pollGen++
	m.pollCh = nil
}

// applySnapshot is the single path by which a conversation snapshot, from a
// poll or a submit, reaches the view state. Only polled snapshots may arm the
// typing placeholder.
func (m *model) applySnapshot(conv *api.Conversation, polled bool) []tea.Cmd {
	if conv == nil {
		return nil
	}
	next, effects := turnview.Rebase(m.view, conv)
	if polled {
		next, effects = turnview.Advance(m.view, conv, m.clock())
	}
	m.view = next
	var cmds []tea.Cmd
	for _, effect := range effects {
		switch e := effect.(type) {
		case turnview.ArmTyping:
			wait := e.Until.Sub(m.clock())
			cmds = append(cmds, tea.Tick(wait, func(time.Time) tea.Msg {
				return typingExpiredMsg{turn: e.Turn}
			}))
		case turnview.ScrollToEnd:
			cmds = append(cmds, tea.Tick(e.Delay, func(time.Time) tea.Msg {
				return scrollMsg{turn: e.Turn}
			}))
		}
	}
	if conv.Completed() {
		m.answer.Blur()
	}
	m.renderTimeline()
	return cmds
}

func (m *model) updateConversation(msg tea.KeyMsg) tea.Cmd {
	conv := m.view.Last
	switch msg.String() {
	case "esc":
		return m.backToDashboard()
	case "tab":
		m.textMode = api.TextMode(cycleString(
			[]string{string(api.TextRoman), string(api.TextNative), string(api.TextEnglish)},
			string(m.textMode), 1,
		))
		if err := m.store.SetTextMode(m.textMode); err != nil {
			m.logError(err)
		}
		m.renderTimeline()
		return nil
	case "ctrl+r":
		m.inputMode = ternary(m.inputMode == api.InputNative, api.InputRoman, api.InputNative)
		if err := m.store.SetInputMode(m.inputMode); err != nil {
			m.logError(err)
		}
		return nil
	case "ctrl+g":
		m.showHint = !m.showHint
		return nil
	case "ctrl+l":
		if text := m.lineToHear(); text != "" {
			return m.speakCmd(text)
		}
		return nil
	case "pgup", "ctrl+b":
		m.timeline.LineUp(8)
		return nil
	case "pgdown", "ctrl+f":
		m.timeline.LineDown(8)
		return nil
	case "home":
		m.timeline.GotoTop()
		return nil
	case "end":
		m.timeline.GotoBottom()
		return nil
	case "enter":
		if conv.Completed() {
			return m.openResults()
		}
		return m.submitAnswer()
	}
	if !conv.IsMyTurn(m.viewerID) || conv.Completed() {
		return nil
	}
	var cmd tea.Cmd
	m.answer, cmd = m.answer.Update(msg)
	return cmd
}

// lineToHear is the pending line on the viewer's turn, otherwise the latest
// visible line.
func (m *model) lineToHear() string {
	conv := m.view.Last
	if conv.IsMyTurn(m.viewerID) {
		if msg, ok := conv.CurrentMessage(); ok {
			return msg.RomanText
		}
	}
	bubbles := turnview.Bubbles(conv, m.viewerID, m.textMode, m.view.TypingActive(m.clock()))
	for i := len(bubbles) - 1; i >= 0; i-- {
		if bubbles[i].SpeechText != "" {
			return bubbles[i].SpeechText
		}
	}
	return ""
}

// submitAnswer sends the typed answer for the current turn. While a submit is
// outstanding further submits are ignored.
func (m *model) submitAnswer() tea.Cmd {
	conv := m.view.Last
	if m.submitting || !conv.IsMyTurn(m.viewerID) || conv.Completed() {
		return nil
	}
	text := strings.TrimSpace(m.answer.Value())
	if text == "" {
		return nil
	}
	m.submitting = true
	m.formErr = ""
	return m.submitCmd(conv.RoomID, conv.ID, conv.CurrentTurn, text, m.inputMode)
}

func (m *model) openResults() tea.Cmd {
	m.stopPolling()
	m.screen = screenResults
	m.results = m.view.Last
	m.resultIndex = 0
	m.expanded = 0
	m.answer.Blur()
	m.statusLine = "conversation complete"
	m.renderResults()
	m.timeline.GotoTop()
	if m.room == nil {
		return nil
	}
	return m.resultsCmd(m.room.ID, m.convID)
}

func (m *model) updateResults(msg tea.KeyMsg) tea.Cmd {
	var count int
	if m.results != nil {
		count = len(m.results.Messages)
	}
	switch msg.String() {
	case "esc", "b":
		return m.backToDashboard()
	case "up", "k":
		m.resultIndex = maxInt(0, m.resultIndex-1)
	case "down", "j":
		m.resultIndex = minInt(maxInt(0, count-1), m.resultIndex+1)
	case "enter", " ":
		if count == 0 {
			return nil
		}
		turn := m.results.Messages[m.resultIndex].TurnNumber
		m.expanded = ternary(m.expanded == turn, 0, turn)
	case "l":
		if count == 0 {
			return nil
		}
		return m.speakCmd(m.results.Messages[m.resultIndex].RomanText)
	case "pgup":
		m.timeline.LineUp(8)
		return nil
	case "pgdown":
		m.timeline.LineDown(8)
		return nil
	default:
		return nil
	}
	m.renderResults()
	return nil
}

func (m *model) resize() {
	width := maxInt(20, m.width-6)
	m.timeline.Width = width
	m.timeline.Height = maxInt(5, m.height-m.reservedRows())
	for i := range m.authInputs {
		m.authInputs[i].Width = minInt(40, width)
	}
	m.answer.Width = maxInt(10, width-6)
	m.promptInput.Width = maxInt(10, width-6)
	switch m.screen {
	case screenConversation:
		m.renderTimeline()
	case screenResults:
		m.renderResults()
	}
}

// reservedRows is the space around the timeline: header, score bar, prompt
// card or waiting line, and footer.
func (m *model) reservedRows() int {
	if m.screen == screenResults {
		return 8
	}
	rows := 13
	if conv := m.view.Last; conv.IsMyTurn(m.viewerID) && !conv.Completed() {
		rows += 6
	}
	return rows
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.log.Info(trimmed)
	m.logs = append(m.logs, fmt.Sprintf("%s %s", m.clock().Format("15:04:05"), compactSingleLine(trimmed, 220)))
	if len(m.logs) > 50 {
		m.logs = m.logs[len(m.logs)-50:]
	}
}

func (m *model) logError(err error) {
	if err == nil {
		return
	}
	m.log.Error("ui error", "err", err)
	m.logs = append(m.logs, fmt.Sprintf("%s error: %s", m.clock().Format("15:04:05"), compactSingleLine(err.Error(), 220)))
	if len(m.logs) > 50 {
		m.logs = m.logs[len(m.logs)-50:]
	}
	m.statusLine = "error: " + compactSingleLine(err.Error(), 160)
}
