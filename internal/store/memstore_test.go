package store

import (
	"context"
	"testing"
	"time"
)

func TestMatchLifecycle(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	ref, err := gw.CreateMatch(ctx, "room-1", PlayerRecord{UserID: "alice", Name: "Alice", Side: "white"}, "startfen")
	if err != nil || ref == "" {
		t.Fatalf("CreateMatch: ref=%q err=%v", ref, err)
	}
	if err := gw.AppendPlayer(ctx, ref, PlayerRecord{UserID: "bob", Name: "Bob", Side: "black"}); err != nil {
		t.Fatalf("AppendPlayer: %v", err)
	}
	if err := gw.RecordMove(ctx, ref, MoveRecord{UserID: "alice", MoveCount: 1, FEN: "fen-1", SAN: "e4"}); err != nil {
		t.Fatalf("RecordMove: %v", err)
	}
	if err := gw.RecordMove(ctx, ref, MoveRecord{UserID: "bob", MoveCount: 1, FEN: "fen-2", SAN: "e5"}); err != nil {
		t.Fatalf("RecordMove: %v", err)
	}
	ended := time.Now()
	if err := gw.FinalizeMatch(ctx, ref, "completed", "alice", ended); err != nil {
		t.Fatalf("FinalizeMatch: %v", err)
	}

	matches, err := gw.RecentMatches(ctx, "bob", 5)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.RoomID != "room-1" || m.Status != "completed" || m.WinnerID != "alice" {
		t.Fatalf("match = %+v", m)
	}
	if m.FEN != "fen-2" {
		t.Fatalf("final fen = %q, want fen-2", m.FEN)
	}
	if len(m.MovesSAN) != 2 || m.MovesSAN[0] != "e4" || m.MovesSAN[1] != "e5" {
		t.Fatalf("moves = %v", m.MovesSAN)
	}
	if len(m.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(m.Players))
	}
}

func TestUnfinishedMatchesHidden(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	if _, err := gw.CreateMatch(ctx, "room-1", PlayerRecord{UserID: "alice"}, "fen"); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	matches, err := gw.RecentMatches(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("in-progress match listed: %d", len(matches))
	}
}

func TestRecentMatchesOrderAndLimit(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		ref, err := gw.CreateMatch(ctx, "room", PlayerRecord{UserID: "alice"}, "fen")
		if err != nil {
			t.Fatalf("CreateMatch: %v", err)
		}
		if err := gw.FinalizeMatch(ctx, ref, "completed", "alice", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("FinalizeMatch: %v", err)
		}
	}

	matches, err := gw.RecentMatches(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if !matches[0].EndedAt.After(matches[1].EndedAt) {
		t.Fatalf("matches not newest-first: %v then %v", matches[0].EndedAt, matches[1].EndedAt)
	}
}

func TestDeleteMatch(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	ref, err := gw.CreateMatch(ctx, "room-1", PlayerRecord{UserID: "alice"}, "fen")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if err := gw.DeleteMatch(ctx, ref); err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	if err := gw.RecordMove(ctx, ref, MoveRecord{UserID: "alice", SAN: "e4"}); err != ErrNotFound {
		t.Fatalf("RecordMove after delete err = %v, want ErrNotFound", err)
	}
	// Deleting twice is harmless.
	if err := gw.DeleteMatch(ctx, ref); err != nil {
		t.Fatalf("second DeleteMatch: %v", err)
	}
}

func TestStatsAccumulate(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	if _, err := gw.Profile(ctx, "alice"); err != ErrNotFound {
		t.Fatalf("Profile before stats err = %v, want ErrNotFound", err)
	}
	for _, d := range []StatsDelta{{Wins: 1}, {Losses: 1}, {Draws: 1}, {Wins: 1}} {
		if err := gw.IncrementStats(ctx, "alice", d); err != nil {
			t.Fatalf("IncrementStats: %v", err)
		}
	}
	p, err := gw.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Wins != 2 || p.Losses != 1 || p.Draws != 1 {
		t.Fatalf("profile = %+v, want 2/1/1", p)
	}
}
