package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, username, password string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", credentials{Username: username, Password: password}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", credentials{Username: username, Password: password}, &out)
	return out, err
}

// FetchMeta always goes to the network; callers normally use MetaCache.
func (c *Client) FetchMeta(ctx context.Context) (Meta, error) {
	var out Meta
	err := c.do(ctx, http.MethodGet, "/meta", nil, &out)
	return out, err
}

func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var out []Room
	err := c.do(ctx, http.MethodGet, "/rooms", nil, &out)
	return out, err
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodGet, roomPath(roomID), nil, &out)
	return out, err
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodPost, "/rooms", req, &out)
	return out, err
}

func (c *Client) JoinRoom(ctx context.Context, joinCode, displayName string) (Room, error) {
	body := struct {
		JoinCode    string `json:"join_code"`
		DisplayName string `json:"display_name"`
	}{JoinCode: joinCode, DisplayName: displayName}
	var out Room
	err := c.do(ctx, http.MethodPost, "/rooms/join", body, &out)
	return out, err
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodDelete, roomPath(roomID), nil, nil)
}

func (c *Client) ListConversations(ctx context.Context, roomID string) ([]Conversation, error) {
	var out []Conversation
	err := c.do(ctx, http.MethodGet, roomPath(roomID)+"/conversations", nil, &out)
	return out, err
}

// CreateConversation starts a conversation. An empty prompt lets the server
// pick a scenario; maxTurns <= 0 leaves the server default.
func (c *Client) CreateConversation(ctx context.Context, roomID, prompt string, maxTurns int) (Conversation, error) {
	body := struct {
		Prompt   *string `json:"prompt"`
		MaxTurns *int    `json:"max_turns,omitempty"`
	}{}
	if prompt != "" {
		body.Prompt = &prompt
	}
	if maxTurns > 0 {
		body.MaxTurns = &maxTurns
	}
	var out Conversation
	err := c.do(ctx, http.MethodPost, roomPath(roomID)+"/conversations", body, &out)
	return out, err
}

func (c *Client) GetConversation(ctx context.Context, roomID, convID string) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodGet, conversationPath(roomID, convID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTurn answers turnNumber and returns the updated conversation snapshot.
func (c *Client) SubmitTurn(ctx context.Context, roomID, convID string, turnNumber int, text string, mode InputMode) (*Conversation, error) {
	body := struct {
		Text      string    `json:"text"`
		InputMode InputMode `json:"input_mode"`
	}{Text: text, InputMode: mode}
	var out Conversation
	path := fmt.Sprintf("%s/turns/%d", conversationPath(roomID, convID), turnNumber)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func roomPath(roomID string) string {
	return "/rooms/" + url.PathEscape(roomID)
}

func conversationPath(roomID, convID string) string {
	return roomPath(roomID) + "/conversations/" + url.PathEscape(convID)
}
