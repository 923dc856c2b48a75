package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// PlayerRecord is the durable slice of a seated player.
type PlayerRecord struct {
	UserID string
	Name   string
	Side   string
}

// MoveRecord is one incremental move update.
type MoveRecord struct {
	UserID    string
	MoveCount int    // mover's cumulative move count after this move
	FEN       string // position after the move
	SAN       string // history entry
	Captured  string // piece letter, empty when nothing was captured
}

// StatsDelta increments a player's lifetime counters.
type StatsDelta struct {
	Wins   int
	Losses int
	Draws  int
}

// MatchSummary is a finished match as read back for history listings.
type MatchSummary struct {
	Ref       string
	RoomID    string
	FEN       string
	MovesSAN  []string
	Status    string
	WinnerID  string
	Players   []PlayerRecord
	StartedAt time.Time
	EndedAt   time.Time
}

// Profile is the lifetime stats view for one player.
type Profile struct {
	UserID string
	Name   string
	Wins   int
	Losses int
	Draws  int
}

// Gateway is the durable record store consumed by game rooms. Everything but
// CreateMatch is best-effort from the game loop's perspective: the in-memory
// room state stays authoritative and write failures are logged, not propagated.
type Gateway interface {
	CreateMatch(ctx context.Context, roomID string, initial PlayerRecord, fen string) (string, error)
	AppendPlayer(ctx context.Context, ref string, p PlayerRecord) error
	RecordMove(ctx context.Context, ref string, mv MoveRecord) error
	FinalizeMatch(ctx context.Context, ref, status, winnerID string, endedAt time.Time) error
	IncrementStats(ctx context.Context, userID string, d StatsDelta) error
	DeleteMatch(ctx context.Context, ref string) error

	Profile(ctx context.Context, userID string) (*Profile, error)
	RecentMatches(ctx context.Context, userID string, limit int) ([]*MatchSummary, error)
}
