package gamedto

import "encoding/json"

// Inbound event types.
const (
	EventCreateRoom = "create_room"
	EventJoinRoom   = "join_room"
	EventMakeMove   = "make_move"
	EventChat       = "send_chat_message"
)

// Outbound event types.
const (
	EventAck        = "ack"
	EventGameUpdate = "game_update"
	EventGameStart  = "game_started"
	EventMoveMade   = "move_made"
	EventMoveError  = "move_error"
	EventGameOver   = "game_over"
	EventChatRecv   = "receive_chat_message"
)

// Inbound is the envelope read off a client connection.
type Inbound struct {
	Type   string `json:"type"`
	Seq    int64  `json:"seq,omitempty"`
	RoomID string `json:"room_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Move   string `json:"move,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Outbound is the envelope written to a client connection.
type Outbound struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewOutbound marshals data into an envelope. Marshal failures are not expected
// for the payload types below; on failure the envelope is sent without data.
func NewOutbound(typ string, seq int64, data any) Outbound {
	raw, err := json.Marshal(data)
	if err != nil {
		return Outbound{Type: typ, Seq: seq}
	}
	return Outbound{Type: typ, Seq: seq, Data: raw}
}

// Ack answers create_room/join_room requests.
type Ack struct {
	Success bool   `json:"success"`
	RoomID  string `json:"room_id,omitempty"`
	Side    string `json:"side,omitempty"`
	Code    string `json:"code,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

// PlayerView is the public slice of a seated player.
type PlayerView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Side     string   `json:"side"`
	Moves    int      `json:"moves"`
	Captured []string `json:"captured,omitempty"`
}

// GameUpdate carries the room's current view after create/join/reconnect.
type GameUpdate struct {
	RoomID  string       `json:"room_id"`
	FEN     string       `json:"fen"`
	Players []PlayerView `json:"players"`
	Turn    string       `json:"turn"`
}

// LastMove describes the most recently applied move.
type LastMove struct {
	SAN      string `json:"san"`
	UCI      string `json:"uci"`
	From     string `json:"from"`
	To       string `json:"to"`
	Captured string `json:"captured,omitempty"`
}

// MoveMade is broadcast to the room after an accepted move.
type MoveMade struct {
	RoomID   string   `json:"room_id"`
	FEN      string   `json:"fen"`
	LastMove LastMove `json:"last_move"`
	Check    bool     `json:"check"`
	Turn     string   `json:"turn"`
}

// MoveError is directed to the caller whose move was rejected.
type MoveError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// GameOver is broadcast on any terminal transition.
type GameOver struct {
	RoomID   string `json:"room_id"`
	Message  string `json:"message"`
	WinnerID string `json:"winner_id,omitempty"`
	Status   string `json:"status"`
}

// GameStarted announces that the room has both players seated.
type GameStarted struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

// ChatMessage is relayed to every other connection in the room.
type ChatMessage struct {
	RoomID    string `json:"room_id"`
	SenderRef string `json:"sender_ref"`
	Text      string `json:"text"`
}
