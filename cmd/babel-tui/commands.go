package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"babelbridge/internal/api"
	"babelbridge/internal/turnview"
)

const speakTimeout = 30 * time.Second

func tickRoom(gen int) tea.Cmd {
	return tea.Tick(turnview.PollInterval, func(time.Time) tea.Msg {
		return roomTickMsg{gen: gen}
	})
}

// waitPoll relays the next poller result into the update loop.
func waitPoll(gen int, ch <-chan turnview.PollResult) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return pollClosedMsg{gen: gen}
		}
		return pollMsg{gen: gen, result: res}
	}
}

func (m model) loadMetaCmd() tea.Cmd {
	cache := m.meta
	ctx := m.ctx
	return func() tea.Msg {
		meta, err := cache.Get(ctx)
		return metaLoadedMsg{meta: meta, err: err}
	}
}

func (m model) authCmd(username, password string, registering bool) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		var (
			resp api.TokenResponse
			err  error
		)
		if registering {
			resp, err = client.Register(ctx, username, password)
		} else {
			resp, err = client.Login(ctx, username, password)
		}
		if err != nil {
			return authDoneMsg{registering: registering, err: err}
		}
		return authDoneMsg{
			token:       resp.AccessToken,
			username:    nullCoalesce(resp.Username, username),
			registering: registering,
		}
	}
}

func (m model) loadRoomsCmd() tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		rooms, err := client.ListRooms(ctx)
		return roomsLoadedMsg{rooms: rooms, err: err}
	}
}

func (m model) createRoomCmd(req api.CreateRoomRequest) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		room, err := client.CreateRoom(ctx, req)
		return roomOpenedMsg{room: room, fallback: "Failed to create room", err: err}
	}
}

func (m model) joinRoomCmd(code, displayName string) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		room, err := client.JoinRoom(ctx, code, displayName)
		return roomOpenedMsg{room: room, fallback: "Failed to join room", err: err}
	}
}

func (m model) deleteRoomCmd(roomID string) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		return roomDeletedMsg{roomID: roomID, err: client.DeleteRoom(ctx, roomID)}
	}
}

// fetchRoomCmd reads the room and, once it is active, the conversation to open.
func (m model) fetchRoomCmd(gen int, roomID string) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		room, err := client.GetRoom(ctx, roomID)
		if err != nil {
			return roomPolledMsg{gen: gen, err: err}
		}
		out := roomPolledMsg{gen: gen, room: room}
		if room.Status != api.RoomActive {
			return out
		}
		convs, err := client.ListConversations(ctx, roomID)
		if err != nil {
			return roomPolledMsg{gen: gen, err: err}
		}
		if len(convs) > 0 {
			out.convID = convs[0].ID
		}
		return out
	}
}

func (m model) startConversationCmd(roomID, prompt string) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		// zero leaves the turn limit to the server
		conv, err := client.CreateConversation(ctx, roomID, prompt, 0)
		return convStartedMsg{conv: conv, err: err}
	}
}

func (m model) submitCmd(roomID, convID string, turn int, text string, mode api.InputMode) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		conv, err := client.SubmitTurn(ctx, roomID, convID, turn, text, mode)
		return submitDoneMsg{conv: conv, err: err}
	}
}

func (m model) resultsCmd(roomID, convID string) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		conv, err := client.GetConversation(ctx, roomID, convID)
		return resultsLoadedMsg{conv: conv, err: err}
	}
}

func (m model) speakCmd(text string) tea.Cmd {
	speaker := m.speaker
	locale := "en-US"
	if meta, ok := m.meta.Cached(); ok && m.room != nil {
		locale = meta.SpeechCode(m.room.Language)
	}
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, speakTimeout)
		defer cancel()
		return spokenMsg{err: speaker.Speak(ctx, text, locale)}
	}
}
