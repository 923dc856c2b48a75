package room

import (
	"errors"

	"github.com/sumeet57/chess-live-server/internal/rules"
)

// Status is a room's lifecycle state. Transitions only move forward:
// waiting → in_progress → {completed, draw, abandoned}.
type Status string

const (
	StatusWaiting    Status = "waiting_for_opponent"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDraw       Status = "draw"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further moves are possible in this state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDraw, StatusAbandoned:
		return true
	}
	return false
}

var (
	ErrRoomFull        = errors.New("room is full")
	ErrNotAParticipant = errors.New("player not in game")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrGameOver        = errors.New("game already finished")
	ErrCollision       = errors.New("room id collision")
	ErrRoomNotFound    = errors.New("room not found")
)

// Player is one seated participant. ConnRef is a replaceable back-reference
// to the player's live connection, never an ownership relation.
type Player struct {
	UserID    string
	Name      string
	Side      rules.Side
	ConnRef   string
	MoveCount int
	Captured  []string
}

// PlayerView is a copy-safe snapshot of a player.
type PlayerView struct {
	UserID    string
	Name      string
	Side      rules.Side
	ConnRef   string
	MoveCount int
	Captured  []string
}

// View is a copy-safe snapshot of the room's public state.
type View struct {
	RoomID  string
	FEN     string
	Turn    rules.Side
	Status  Status
	Players []PlayerView
}

// JoinResult reports the outcome of a successful join.
type JoinResult struct {
	Side rules.Side
	// Rejoined is set on the reconnection path: the identity already held a
	// side and only its connection reference was replaced.
	Rejoined bool
	// Started is set when this join seated the second player.
	Started bool
	// PrevConnRef is the connection reference replaced on a rejoin, so the
	// caller can unbind it from the registry index.
	PrevConnRef string
}

// MoveResult reports an accepted move.
type MoveResult struct {
	FEN      string
	Move     rules.Move
	Check    bool
	Turn     rules.Side
	Terminal rules.Terminal
	Status   Status
	WinnerID string
}

// DisconnectAction tells the caller how to resolve a dropped connection.
type DisconnectAction int

const (
	ActionNone DisconnectAction = iota
	ActionDeleteRoom
	ActionForfeit
)

// DisconnectResult reports the outcome of a connection drop.
type DisconnectResult struct {
	Action     DisconnectAction
	WinnerID   string
	WinnerSide rules.Side
	Status     Status
}
