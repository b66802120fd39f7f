package api

type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomActive    RoomStatus = "active"
	RoomCompleted RoomStatus = "completed"
)

type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
)

// Role is a fixed seat label within a conversation, independent of who occupies it.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
	RoleC Role = "C"
	RoleD Role = "D"
)

type InputMode string

const (
	InputRoman  InputMode = "roman"
	InputNative InputMode = "native"
)

type TextMode string

const (
	TextRoman   TextMode = "roman"
	TextNative  TextMode = "native"
	TextEnglish TextMode = "english"
)

// MaxTurns bounds every conversation.
const MaxTurns = 20

type Member struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	JoinedAt    string `json:"joined_at"`
}

type Room struct {
	ID         string     `json:"id"`
	Language   string     `json:"language"`
	Level      string     `json:"level"`
	MaxPlayers int        `json:"max_players"`
	JoinCode   string     `json:"join_code"`
	Status     RoomStatus `json:"status"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  string     `json:"created_at"`
	Members    []Member   `json:"members"`
}

type Participant struct {
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role"`
	IsAI        bool   `json:"is_ai"`
}

// Name returns the best label available for a participant.
func (p Participant) Name() string {
	if p.IsAI {
		return "AI"
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return "Player"
}

type Response struct {
	UserID         string    `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	Text           string    `json:"text"`
	InputMode      InputMode `json:"input_mode"`
	Score          int       `json:"score"`
	ScoreLabel     string    `json:"score_label"`
	ScoreBreakdown string    `json:"score_breakdown"`
	SubmittedAt    string    `json:"submitted_at"`
}

type Message struct {
	TurnNumber  int       `json:"turn_number"`
	Speaker     Role      `json:"speaker"`
	RomanText   string    `json:"roman_text"`
	NativeText  string    `json:"native_text"`
	EnglishText string    `json:"english_text"`
	Hint        string    `json:"hint"`
	Response    *Response `json:"response"`
}

// DisplayText selects the rendering for the given text mode. Unknown modes fall
// back to the romanised text.
func (m Message) DisplayText(mode TextMode) string {
	switch mode {
	case TextEnglish:
		return m.EnglishText
	case TextNative:
		return m.NativeText
	default:
		return m.RomanText
	}
}

// DiffTarget is the text a response is compared against, chosen by the input
// mode the speaker answered in.
func (m Message) DiffTarget(mode InputMode) string {
	if mode == InputNative {
		return m.NativeText
	}
	return m.RomanText
}

type Conversation struct {
	ID           string             `json:"id"`
	RoomID       string             `json:"room_id"`
	Prompt       string             `json:"prompt"`
	Status       ConversationStatus `json:"status"`
	CurrentTurn  int                `json:"current_turn"`
	CreatedAt    string             `json:"created_at"`
	Participants []Participant      `json:"participants"`
	Messages     []Message          `json:"messages"`
}

func (c *Conversation) Completed() bool {
	return c != nil && c.Status == ConversationCompleted
}

// Participant finds the seat holder for role.
func (c *Conversation) Participant(role Role) (Participant, bool) {
	if c == nil {
		return Participant{}, false
	}
	return FindParticipant(c.Participants, role)
}

func (c *Conversation) Message(turn int) (Message, bool) {
	if c == nil {
		return Message{}, false
	}
	for _, msg := range c.Messages {
		if msg.TurnNumber == turn {
			return msg, true
		}
	}
	return Message{}, false
}

func (c *Conversation) CurrentMessage() (Message, bool) {
	if c == nil {
		return Message{}, false
	}
	return c.Message(c.CurrentTurn)
}

func (c *Conversation) CurrentParticipant() (Participant, bool) {
	msg, ok := c.CurrentMessage()
	if !ok {
		return Participant{}, false
	}
	return c.Participant(msg.Speaker)
}

// IsMyTurn reports whether the pending turn belongs to the human viewer.
func (c *Conversation) IsMyTurn(viewerID string) bool {
	if viewerID == "" {
		return false
	}
	p, ok := c.CurrentParticipant()
	return ok && !p.IsAI && p.UserID == viewerID
}

func FindParticipant(participants []Participant, role Role) (Participant, bool) {
	for _, p := range participants {
		if p.Role == role {
			return p, true
		}
	}
	return Participant{}, false
}

type LanguageMeta struct {
	Code         string `json:"code"`
	DisplayName  string `json:"display_name"`
	NativeSymbol string `json:"native_symbol"`
	RomanSymbol  string `json:"roman_symbol"`
	SpeechCode   string `json:"speech_code"`
}

type LevelMeta struct {
	Code            string            `json:"code"`
	Description     string            `json:"description"`
	DefaultScenario string            `json:"default_scenario"`
	Scenarios       map[string]string `json:"scenarios"`
}

type Meta struct {
	Languages []LanguageMeta `json:"languages"`
	Levels    []LevelMeta    `json:"levels"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

type CreateRoomRequest struct {
	Language    string `json:"language"`
	Level       string `json:"level"`
	MaxPlayers  int    `json:"max_players"`
	DisplayName string `json:"display_name"`
}
