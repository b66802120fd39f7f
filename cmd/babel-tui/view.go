package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"babelbridge/internal/api"
	"babelbridge/internal/turnview"
)

func (m model) View() string {
	var body, hints string
	switch m.screen {
	case screenAuth:
		body = m.renderAuth()
		hints = "Keys: Tab next field · Enter submit · Ctrl+R switch login/register · Ctrl+C quit"
	case screenDashboard:
		body = m.renderDashboard()
		hints = m.dashboardHints()
	case screenRoom:
		body = m.renderRoom()
		hints = ternary(m.isHost(),
			"Keys: type a scenario · Enter start conversation · Esc back · Ctrl+C quit",
			"Keys: Esc back · Ctrl+C quit")
	case screenConversation:
		body = m.renderConversation()
		hints = "Keys: Enter send · Tab text mode · Ctrl+R input mode · Ctrl+G hint · Ctrl+L hear line · PgUp/PgDn scroll · Esc leave"
	case screenResults:
		body = m.renderResultsScreen()
		hints = "Keys: Up/Down select turn · Enter expand · L listen · PgUp/PgDn scroll · Esc dashboard"
	}
	out := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter(hints))
	return m.theme.root.Render(out)
}

func (m *model) contentWidth() int {
	return maxInt(40, m.width-4)
}

func (m *model) renderHeader() string {
	brand := m.theme.brand.Render("Babel") + m.theme.brandAccent.Render("Bridge")
	segments := []string{brand}
	switch m.screen {
	case screenConversation:
		if conv := m.view.Last; conv != nil {
			segments = append(segments, m.theme.panelTitle.Render(compactSingleLine(conv.Prompt, maxInt(20, m.width/2))))
		}
		if m.room != nil {
			segments = append(segments, m.theme.muted.Render(m.room.Language+" · "+m.room.Level))
		}
		segments = append(segments, m.renderTextModePills())
	case screenAuth:
		segments = append(segments, m.theme.muted.Render("language practice, one line at a time"))
	default:
		if m.username != "" {
			segments = append(segments, m.theme.muted.Render("signed in as "+m.username))
		}
	}
	return m.theme.header.Width(m.contentWidth()).Render(strings.Join(segments, "  "))
}

func (m *model) renderTextModePills() string {
	meta, _ := m.meta.Cached()
	native := "文"
	if m.room != nil {
		native = nullCoalesce(meta.NativeSymbol(m.room.Language), native)
	}
	options := []struct {
		mode  api.TextMode
		label string
	}{
		{api.TextRoman, "ABC"},
		{api.TextNative, native},
		{api.TextEnglish, "EN"},
	}
	parts := make([]string, 0, len(options))
	for _, opt := range options {
		style := ternary(opt.mode == m.textMode, m.theme.selected, m.theme.option)
		parts = append(parts, style.Render(opt.label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

func (m *model) renderFooter(hints string) string {
	statusStyle := m.theme.status
	lower := strings.ToLower(m.statusLine)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	return m.theme.footer.Width(m.contentWidth()).Render(line + "\n" + m.theme.helpText.Render(hints))
}

func (m *model) renderFormError() string {
	if m.formErr == "" {
		return ""
	}
	return m.theme.errorStatus.Render("! " + m.formErr)
}

func (m *model) renderAuth() string {
	title := ternary(m.registering, "Create an account", "Welcome back")
	labels := []string{"Username", "Password", "Confirm password"}
	fields := ternary(m.registering, 3, 2)

	lines := []string{m.theme.panelTitle.Render(title), ""}
	for i := 0; i < fields; i++ {
		lines = append(lines, m.theme.label.Render(labels[i]), m.authInputs[i].View(), "")
	}
	if errLine := m.renderFormError(); errLine != "" {
		lines = append(lines, errLine, "")
	}
	if m.inflight {
		lines = append(lines, m.spinner.View()+" "+ternary(m.registering, "creating account...", "signing in..."))
	}
	lines = append(lines, m.theme.helpText.Render(ternary(m.registering,
		"Already have an account? Ctrl+R to sign in.",
		"New here? Ctrl+R to register.")))

	panel := m.theme.panel.Width(minInt(60, m.contentWidth())).Render(strings.Join(lines, "\n"))
	return lipgloss.PlaceHorizontal(m.contentWidth(), lipgloss.Center, panel)
}

func (m *model) dashboardHints() string {
	switch m.form {
	case formCreate:
		return "Keys: Tab next field · Left/Right change option · Enter create · Esc cancel"
	case formJoin:
		return "Keys: Tab next field · Enter join · Esc cancel"
	case formDelete:
		return "Keys: y confirm delete · n cancel"
	}
	return "Keys: Up/Down select · Enter open · c create · J join · d delete · r refresh · L logout · q quit"
}

func (m *model) renderDashboard() string {
	width := m.contentWidth()
	sections := []string{
		m.theme.panelTitle.Render("Your Rooms") + "  " +
			m.theme.muted.Render("Pick up where you left off, or start something new"),
	}
	if errLine := m.renderFormError(); errLine != "" {
		sections = append(sections, errLine)
	}
	switch m.form {
	case formCreate:
		sections = append(sections, m.renderCreateForm())
	case formJoin:
		sections = append(sections, m.renderJoinForm())
	case formDelete:
		if room, ok := m.selectedRoom(); ok {
			sections = append(sections, m.theme.promptCard.Width(width).Render(
				fmt.Sprintf("Delete room %s (%s · %s)? y/n", room.JoinCode, room.Language, room.Level)))
		}
	}

	var list strings.Builder
	switch {
	case !m.roomsLoaded:
		list.WriteString(m.spinner.View() + " loading rooms...")
	case len(m.rooms) == 0:
		list.WriteString(m.theme.muted.Render("No rooms yet. Create one or join with a code!"))
	default:
		for i, room := range m.rooms {
			list.WriteString(m.renderRoomRow(room, i == m.roomIndex && m.form == formNone))
			list.WriteString("\n")
		}
	}
	sections = append(sections, m.theme.panel.Width(width).Render(strings.TrimRight(list.String(), "\n")))
	return strings.Join(sections, "\n")
}

func (m *model) renderRoomRow(room api.Room, selected bool) string {
	tag := strings.ToUpper(string([]rune(room.Language + "   ")[:3]))
	prefix := ternary(selected, ">> ", "   ")
	line := fmt.Sprintf("%s%s  %s · %s  %d/%d players · Code: %s",
		prefix, tag, room.Language, room.Level, len(room.Members), room.MaxPlayers, room.JoinCode)
	if room.CreatedBy != "" && room.CreatedBy == m.viewerID {
		line += "  (host)"
	}
	styled := ternary(selected, m.theme.selected.Render(line), m.theme.option.Render(line))
	return styled + " " + m.statusBadge(room.Status)
}

func (m *model) statusBadge(status api.RoomStatus) string {
	switch status {
	case api.RoomCompleted:
		return m.theme.badgeCompleted.Render("Completed")
	case api.RoomActive:
		return m.theme.badgeActive.Render("Active")
	default:
		return m.theme.badgeWaiting.Render("Waiting")
	}
}

func (m *model) fieldLabel(text string, focused bool) string {
	if focused {
		return m.theme.panelTitle.Render("> " + text)
	}
	return m.theme.label.Render("  " + text)
}

func (m *model) renderCreateForm() string {
	meta, _ := m.meta.Cached()
	lang, level := "(loading)", "(loading)"
	if names := meta.LanguageNames(); len(names) > 0 {
		lang = names[clampInt(m.langIndex, 0, len(names)-1)]
	}
	if codes := meta.LevelCodes(); len(codes) > 0 {
		level = codes[clampInt(m.levelIndex, 0, len(codes)-1)]
		if l, ok := meta.Level(level); ok && l.Description != "" {
			level += " · " + l.Description
		}
	}
	lines := []string{
		m.theme.panelTitle.Render("Create a Room"),
		m.fieldLabel("Your display name", m.formFocus == createName),
		"  " + m.nameInput.View(),
		m.fieldLabel("Language", m.formFocus == createLanguage) + "  ◀ " + lang + " ▶",
		m.fieldLabel("Level", m.formFocus == createLevel) + "  ◀ " + level + " ▶",
		m.fieldLabel("Max players", m.formFocus == createPlayers) + fmt.Sprintf("  ◀ %d players ▶", m.maxPlayers),
	}
	if m.inflight {
		lines = append(lines, m.spinner.View()+" creating room...")
	}
	return m.theme.promptCard.Width(m.contentWidth()).Render(strings.Join(lines, "\n"))
}

func (m *model) renderJoinForm() string {
	lines := []string{
		m.theme.panelTitle.Render("Join a Room"),
		m.fieldLabel("Your display name", m.formFocus == joinName),
		"  " + m.nameInput.View(),
		m.fieldLabel("Room code", m.formFocus == joinCode),
		"  " + m.codeInput.View(),
	}
	if m.inflight {
		lines = append(lines, m.spinner.View()+" joining...")
	}
	return m.theme.promptCard.Width(m.contentWidth()).Render(strings.Join(lines, "\n"))
}

func (m *model) renderRoom() string {
	width := m.contentWidth()
	if m.room == nil {
		return m.theme.panel.Width(width).Render(m.spinner.View() + " loading room...")
	}
	room := m.room
	host := m.isHost()

	lines := []string{
		m.theme.panelTitle.Render("Waiting Room") + "  " +
			m.theme.muted.Render(ternary(host, "Set a scenario and start when ready", "Waiting for the host to start...")),
		"",
		m.theme.label.Render("Join code  ") + m.theme.joinCode.Render(strings.Join(strings.Split(room.JoinCode, ""), " ")),
		m.theme.badgeHost.Render(room.Language) + " " + m.theme.badgeWaiting.Render(room.Level) + " " +
			m.theme.badgeCompleted.Render(fmt.Sprintf("%d/%d players", len(room.Members), room.MaxPlayers)) + " " +
			m.statusBadge(room.Status),
		"",
		m.theme.label.Render("PLAYERS"),
	}
	for i, member := range room.Members {
		name := nullCoalesce(member.DisplayName, nullCoalesce(member.Username, "Player"))
		line := m.theme.speaker(i).Render("("+initials(name)+")") + " " + name
		if member.UserID == room.CreatedBy {
			line += " " + m.theme.badgeHost.Render("Host")
		}
		if m.viewerID != "" && member.UserID == m.viewerID {
			line += " " + m.theme.muted.Render("you")
		}
		lines = append(lines, line)
	}
	for i := len(room.Members); i < room.MaxPlayers; i++ {
		lines = append(lines, m.theme.muted.Render("(?) Waiting for player..."))
	}
	lines = append(lines, "")

	if host {
		lines = append(lines, m.theme.label.Render("SCENARIO (optional)"), m.promptInput.View())
		if scenario := m.defaultScenario(); scenario != "" {
			lines = append(lines, m.theme.muted.Render("Blank uses: "+compactSingleLine(scenario, width-16)))
		} else {
			lines = append(lines, m.theme.muted.Render(`e.g. "Two friends argue about what to watch on TV"`))
		}
		lines = append(lines, "")
	}

	full := len(room.Members) >= room.MaxPlayers
	var status string
	switch {
	case !host:
		status = "Waiting for the host to start the conversation..."
	case full:
		status = fmt.Sprintf("Room is full (%d players). Start whenever!", len(room.Members))
	default:
		status = fmt.Sprintf("%d of %d joined. Start when ready, empty slots will be AI.", len(room.Members), room.MaxPlayers)
	}
	lines = append(lines, m.theme.status.Render(status))
	if errLine := m.renderFormError(); errLine != "" {
		lines = append(lines, errLine)
	}
	if m.starting {
		lines = append(lines, m.spinner.View()+" starting conversation...")
	}
	return m.theme.panel.Width(width).Render(strings.Join(lines, "\n"))
}

// defaultScenario is the catalog scenario the server falls back to for this room.
func (m *model) defaultScenario() string {
	meta, ok := m.meta.Cached()
	if !ok || m.room == nil {
		return ""
	}
	lang, _ := meta.Language(m.room.Language)
	return meta.DefaultScenario(m.room.Level, lang.Code)
}

func (m *model) renderConversation() string {
	width := m.contentWidth()
	conv := m.view.Last
	if conv == nil {
		return m.theme.panel.Width(width).Render(m.spinner.View() + " loading conversation...")
	}
	parts := []string{
		m.renderScoreBar(conv),
		m.theme.panel.Width(width).Render(m.timeline.View()),
	}
	switch {
	case conv.Completed():
		parts = append(parts, m.theme.inputPanel.Width(width).Render(
			m.theme.banner.Render("Conversation complete!")+"  "+m.theme.muted.Render("Press Enter for your results.")))
	case conv.IsMyTurn(m.viewerID):
		parts = append(parts, m.renderPromptCard(conv))
	default:
		parts = append(parts, m.theme.inputPanel.Width(width).Render(m.theme.muted.Render(m.waitingLine(conv))))
	}
	return strings.Join(parts, "\n")
}

func (m *model) waitingLine(conv *api.Conversation) string {
	speaker, ok := conv.CurrentParticipant()
	if !ok {
		return "Waiting..."
	}
	if speaker.IsAI {
		return "AI is typing..."
	}
	return fmt.Sprintf("Waiting for %s...", nullCoalesce(speaker.DisplayName, "player"))
}

func (m *model) renderScoreBar(conv *api.Conversation) string {
	segments := []string{}
	for _, p := range turnview.Averages(conv) {
		name := ternary(p.UserID == m.viewerID && m.viewerID != "", "You", p.DisplayName)
		avg := "—"
		if p.HasScore {
			avg = fmt.Sprintf("%d%%", p.Average)
		}
		segments = append(segments, m.theme.speaker(p.ColorIndex).Render(name)+" "+avg)
	}
	done, total := turnview.TurnProgress(conv)
	const barWidth = 20
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	progress := m.theme.muted.Render(fmt.Sprintf("%s %d/%d", bar, done, total))
	return m.theme.panel.Width(m.contentWidth()).Render(strings.Join(segments, "   ") + "   " + progress)
}

func (m *model) renderPromptCard(conv *api.Conversation) string {
	msg, _ := conv.CurrentMessage()
	meta, _ := m.meta.Cached()
	language := ""
	if m.room != nil {
		language = m.room.Language
	}
	romanLabel := strings.ToUpper(nullCoalesce(meta.RomanSymbol(language), "abc"))
	nativeLabel := nullCoalesce(meta.NativeSymbol(language), "native")
	toggle := ternary(m.inputMode == api.InputNative,
		m.theme.option.Render(romanLabel)+m.theme.selected.Render(nativeLabel),
		m.theme.selected.Render(romanLabel)+m.theme.option.Render(nativeLabel))

	lines := []string{
		m.theme.panelTitle.Render("YOUR TURN") + "  " + toggle,
		m.theme.brand.Render(msg.EnglishText),
	}
	if msg.Hint != "" {
		if m.showHint {
			lines = append(lines, m.theme.muted.Render("hint: "+msg.Hint))
		} else {
			lines = append(lines, m.theme.helpText.Render("Ctrl+G show hint"))
		}
	}
	lines = append(lines, m.theme.helpText.Render("Ctrl+L hear the line"))

	m.answer.Placeholder = ternary(m.inputMode == api.InputNative,
		fmt.Sprintf("Type in %s script...", nullCoalesce(language, "native")),
		fmt.Sprintf("Type in romanised %s...", nullCoalesce(language, "text")))
	input := m.answer.View()
	if m.submitting {
		input = m.spinner.View() + " sending... " + input
	}
	lines = append(lines, input)
	if errLine := m.renderFormError(); errLine != "" {
		lines = append(lines, errLine)
	}
	return m.theme.promptCard.Width(m.contentWidth()).Render(strings.Join(lines, "\n"))
}

// renderTimeline rebuilds the message list for the current snapshot.
func (m *model) renderTimeline() {
	conv := m.view.Last
	if conv == nil {
		m.timeline.SetContent("")
		return
	}
	width := maxInt(20, m.timeline.Width)
	var b strings.Builder
	header := "Conversation started"
	if m.room != nil {
		header += " · " + m.room.Language + " · " + m.room.Level
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, m.theme.muted.Render(header)))
	b.WriteString("\n\n")

	typing := m.view.TypingActive(m.clock())
	for _, bubble := range turnview.Bubbles(conv, m.viewerID, m.textMode, typing) {
		b.WriteString(m.renderBubble(conv, bubble, width))
		b.WriteString("\n")
	}
	if conv.Completed() {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			m.theme.banner.Render("Conversation complete!")))
	}
	m.timeline.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *model) renderBubble(conv *api.Conversation, bubble turnview.Bubble, width int) string {
	bubbleWidth := maxInt(16, width*4/5)
	textWidth := maxInt(8, bubbleWidth-4)
	colorIdx := turnview.ColorIndexFor(conv.Participants, bubble.Speaker.Role)
	name := bubble.Speaker.Name()
	if bubble.IsViewer {
		name = "You"
	}
	nameLine := m.theme.speaker(colorIdx).Render(name) + m.theme.muted.Render(fmt.Sprintf("  turn %d", bubble.Turn))

	switch bubble.Visibility {
	case turnview.TypingPlaceholder:
		box := m.theme.bubbleAI.Render(m.theme.typing.Render(m.spinner.View() + " typing"))
		return lipgloss.JoinVertical(lipgloss.Left, nameLine, box)
	case turnview.CleanTarget:
		style := ternary(bubble.Speaker.IsAI, m.theme.bubbleAI, m.theme.bubbleOther)
		box := style.Width(bubbleWidth).Render(wordwrap.String(bubble.Text, textWidth))
		return lipgloss.JoinVertical(lipgloss.Left, nameLine, box)
	}

	// full reveal of the viewer's own turn
	lines := []string{
		m.theme.label.Render("YOU TYPED"),
		wordwrap.String(m.renderWordDiff(bubble.Diff), textWidth),
		m.theme.label.Render("TARGET"),
		wordwrap.String(bubble.RomanText, textWidth),
	}
	if bubble.NativeText != "" && bubble.NativeText != bubble.RomanText {
		lines = append(lines, m.theme.muted.Render(wordwrap.String(bubble.NativeText, textWidth)))
	}
	if bubble.EnglishText != "" {
		lines = append(lines, m.theme.typing.Render(wordwrap.String(bubble.EnglishText, textWidth)))
	}
	score := m.theme.score(bubble.ScoreLabel).Render(fmt.Sprintf("%s · %d%%", nullCoalesce(bubble.ScoreLabel, "Scored"), bubble.Score))
	lines = append(lines, score)
	if bubble.ScoreBreakdown != "" {
		lines = append(lines, m.theme.muted.Render(wordwrap.String(bubble.ScoreBreakdown, textWidth)))
	}
	box := m.theme.bubbleMine.Width(bubbleWidth).Render(strings.Join(lines, "\n"))
	block := lipgloss.JoinVertical(lipgloss.Right, nameLine, box)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
}

func (m *model) renderWordDiff(tokens []turnview.WordToken) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		style := ternary(tok.Correct, m.theme.diffCorrect, m.theme.diffWrong)
		parts = append(parts, style.Render(tok.Word))
	}
	return strings.Join(parts, " ")
}

func (m *model) renderCharDiff(tokens []turnview.CharToken) string {
	var b strings.Builder
	for _, tok := range tokens {
		style := ternary(tok.Correct, m.theme.diffCorrect, m.theme.diffWrong)
		b.WriteString(style.Render(string(tok.Char)))
	}
	return b.String()
}

func (m *model) renderResultsScreen() string {
	return m.theme.panel.Width(m.contentWidth()).Render(m.timeline.View())
}

// renderResults rebuilds the results page. Once the conversation is over every
// answered turn shows its response and score; the character diff is only drawn
// for the viewer's own close misses.
func (m *model) renderResults() {
	conv := m.results
	if conv == nil {
		m.timeline.SetContent(m.spinner.View() + " loading results...")
		return
	}
	width := maxInt(20, m.timeline.Width)
	textWidth := maxInt(8, width-6)
	var b strings.Builder

	b.WriteString(m.theme.banner.Render("Conversation Complete!") + "\n")
	if conv.Prompt != "" {
		b.WriteString(m.theme.muted.Render(wordwrap.String(conv.Prompt, textWidth)) + "\n")
	}
	if m.room != nil {
		b.WriteString(m.theme.badgeHost.Render(m.room.Language) + " " + m.theme.badgeWaiting.Render(m.room.Level) + "\n")
	}
	b.WriteString("\n")

	for _, s := range turnview.Summaries(conv) {
		isYou := m.viewerID != "" && s.UserID == m.viewerID
		name := ternary(isYou, "You", s.DisplayName)
		avg, best := "—", "—"
		if s.HasScore {
			avg = fmt.Sprintf("%d%%", s.Average)
			best = fmt.Sprintf("%d%%", s.Best)
		}
		style := m.theme.speaker(s.ColorIndex)
		b.WriteString(fmt.Sprintf("%s %s  %s\n",
			style.Render("("+initials(s.DisplayName)+")"),
			style.Render(name),
			m.theme.muted.Render(fmt.Sprintf("%d turns taken", len(s.Scores)))))
		b.WriteString(fmt.Sprintf("    average %s · best %s · perfect %d\n", style.Render(avg), best, s.Perfect))
	}

	b.WriteString("\n" + m.theme.panelTitle.Render("Turn by Turn") + "\n")
	for i, msg := range conv.Messages {
		speaker, _ := conv.Participant(msg.Speaker)
		mine := !speaker.IsAI && m.viewerID != "" && speaker.UserID == m.viewerID
		name := speaker.Name()
		if mine {
			name = "You"
		}
		colorIdx := turnview.ColorIndexFor(conv.Participants, msg.Speaker)
		marker := ternary(i == m.resultIndex, ">>", "  ")
		open := m.expanded == msg.TurnNumber

		scoreTag := m.theme.muted.Render("—")
		switch {
		case speaker.IsAI:
			scoreTag = m.theme.muted.Render("AI")
		case msg.Response != nil:
			scoreTag = m.theme.score(msg.Response.ScoreLabel).Render(fmt.Sprintf("%d%%", msg.Response.Score))
		}
		row := fmt.Sprintf("%s %2d %s  %s  %s %s",
			marker, msg.TurnNumber,
			m.theme.speaker(colorIdx).Render(name),
			compactSingleLine(msg.NativeText, maxInt(10, width-36)),
			scoreTag,
			ternary(open, "▲", "▼"))
		if i == m.resultIndex {
			row = m.theme.panelTitle.Render(row)
		}
		b.WriteString(row + "\n")
		if open {
			b.WriteString(m.renderTurnDetail(msg, mine, textWidth))
		}
	}
	m.timeline.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *model) renderTurnDetail(msg api.Message, mine bool, textWidth int) string {
	indent := lipgloss.NewStyle().PaddingLeft(6)
	lines := []string{
		m.theme.label.Render("TARGET"),
		wordwrap.String(msg.RomanText, textWidth),
	}
	if msg.NativeText != msg.RomanText {
		lines = append(lines, m.theme.muted.Render(wordwrap.String(msg.NativeText, textWidth)))
	}
	lines = append(lines,
		m.theme.typing.Render(wordwrap.String(msg.EnglishText, textWidth)),
		m.theme.helpText.Render("L listen"))
	if msg.Response != nil {
		resp := msg.Response
		lines = append(lines, m.theme.label.Render("RESPONSE"), wordwrap.String(resp.Text, textWidth))
		if mine && turnview.CloseMiss(resp.Score) {
			diff := turnview.DiffChars(resp.Text, msg.DiffTarget(resp.InputMode))
			lines = append(lines, m.renderCharDiff(diff))
		}
		lines = append(lines, m.theme.score(resp.ScoreLabel).Render(fmt.Sprintf("%s · %d%%", resp.ScoreLabel, resp.Score)))
		if resp.ScoreBreakdown != "" {
			lines = append(lines, m.theme.muted.Render(wordwrap.String(resp.ScoreBreakdown, textWidth)))
		}
		if msg.Hint != "" {
			lines = append(lines, m.theme.muted.Render("hint: "+msg.Hint))
		}
	}
	return indent.Render(strings.Join(lines, "\n")) + "\n"
}
