package room

import (
	"context"
	"testing"

	"github.com/sumeet57/chess-live-server/internal/rules"
	"github.com/sumeet57/chess-live-server/internal/store"
)

func newTestRoom(t *testing.T) (*Room, store.Gateway) {
	t.Helper()
	gw := store.NewMemoryGateway()
	ref, err := gw.CreateMatch(context.Background(), "room-1", store.PlayerRecord{
		UserID: "alice", Name: "Alice", Side: "white",
	}, rules.Initial().FEN())
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	r := New("room-1", ref, Player{UserID: "alice", Name: "Alice", ConnRef: "conn-a"}, rules.NewEngine(), gw)
	t.Cleanup(r.Shutdown)
	return r, gw
}

func joinSecond(t *testing.T, r *Room) {
	t.Helper()
	res, err := r.Join("bob", "Bob", "conn-b")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Side != rules.SideBlack || !res.Started {
		t.Fatalf("second join = %+v, want black/started", res)
	}
}

func TestJoinAssignsOppositeSide(t *testing.T) {
	r, _ := newTestRoom(t)
	if got := r.View().Status; got != StatusWaiting {
		t.Fatalf("status = %s, want waiting", got)
	}
	joinSecond(t, r)
	v := r.View()
	if v.Status != StatusInProgress {
		t.Fatalf("status = %s, want in_progress", v.Status)
	}
	if len(v.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(v.Players))
	}
	if v.Players[0].Side == v.Players[1].Side {
		t.Fatalf("both players on side %s", v.Players[0].Side)
	}
}

func TestRejoinReplacesConnRef(t *testing.T) {
	r, _ := newTestRoom(t)
	joinSecond(t, r)

	res, err := r.Join("bob", "Bob", "conn-b2")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !res.Rejoined || res.Side != rules.SideBlack {
		t.Fatalf("rejoin = %+v, want rejoined/black", res)
	}
	if res.PrevConnRef != "conn-b" {
		t.Fatalf("prev conn ref = %q, want conn-b", res.PrevConnRef)
	}
	v := r.View()
	if len(v.Players) != 2 {
		t.Fatalf("rejoin duplicated seat: %d players", len(v.Players))
	}
	for _, p := range v.Players {
		if p.UserID == "bob" && p.ConnRef != "conn-b2" {
			t.Fatalf("conn ref = %q, want conn-b2", p.ConnRef)
		}
	}
}

func TestThirdJoinRejected(t *testing.T) {
	r, _ := newTestRoom(t)
	joinSecond(t, r)
	if _, err := r.Join("carol", "Carol", "conn-c"); err != ErrRoomFull {
		t.Fatalf("third join err = %v, want ErrRoomFull", err)
	}
}

func TestMoveRequiresParticipantAndTurn(t *testing.T) {
	r, _ := newTestRoom(t)
	joinSecond(t, r)

	if _, err := r.ApplyMove("carol", "e4"); err != ErrNotAParticipant {
		t.Fatalf("outsider move err = %v, want ErrNotAParticipant", err)
	}
	if _, err := r.ApplyMove("bob", "e5"); err != ErrNotYourTurn {
		t.Fatalf("out-of-turn move err = %v, want ErrNotYourTurn", err)
	}
}

func TestRejectedMoveLeavesStateUntouched(t *testing.T) {
	r, _ := newTestRoom(t)
	joinSecond(t, r)

	before := r.View().FEN
	if _, err := r.ApplyMove("alice", "e5"); err != rules.ErrIllegalMove {
		t.Fatalf("illegal move err = %v, want ErrIllegalMove", err)
	}
	if got := r.View().FEN; got != before {
		t.Fatalf("position changed by rejected move")
	}
	if len(r.History()) != 0 {
		t.Fatalf("history grew on rejected move")
	}
}

func TestAcceptedMoveAdvancesState(t *testing.T) {
	r, _ := newTestRoom(t)
	joinSecond(t, r)

	res, err := r.ApplyMove("alice", "e4")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if res.Turn != rules.SideBlack {
		t.Fatalf("turn = %s, want black", res.Turn)
	}
	if res.Terminal != rules.TerminalNone {
		t.Fatalf("unexpected terminal %q", res.Terminal)
	}
	hist := r.History()
	if len(hist) != 1 || hist[0] != "e4" {
		t.Fatalf("history = %v, want [e4]", hist)
	}
}

func TestCheckmateFinishesRoomAndStats(t *testing.T) {
	r, gw := newTestRoom(t)
	joinSecond(t, r)

	moves := []struct{ user, mv string }{
		{"alice", "f3"}, {"bob", "e5"}, {"alice", "g4"},
	}
	for _, m := range moves {
		if _, err := r.ApplyMove(m.user, m.mv); err != nil {
			t.Fatalf("ApplyMove(%s %s): %v", m.user, m.mv, err)
		}
	}
	res, err := r.ApplyMove("bob", "Qh4")
	if err != nil {
		t.Fatalf("mating move: %v", err)
	}
	if res.Terminal != rules.TerminalCheckmate || res.Status != StatusCompleted {
		t.Fatalf("result = %+v, want checkmate/completed", res)
	}
	if res.WinnerID != "bob" {
		t.Fatalf("winner = %q, want bob", res.WinnerID)
	}

	if _, err := r.ApplyMove("alice", "e4"); err != ErrGameOver {
		t.Fatalf("move after mate err = %v, want ErrGameOver", err)
	}

	r.Flush()
	ctx := context.Background()
	winner, err := gw.Profile(ctx, "bob")
	if err != nil || winner.Wins != 1 || winner.Losses != 0 {
		t.Fatalf("winner profile = %+v err=%v, want 1 win", winner, err)
	}
	loser, err := gw.Profile(ctx, "alice")
	if err != nil || loser.Losses != 1 || loser.Wins != 0 {
		t.Fatalf("loser profile = %+v err=%v, want 1 loss", loser, err)
	}
	matches, err := gw.RecentMatches(ctx, "bob", 5)
	if err != nil || len(matches) != 1 {
		t.Fatalf("RecentMatches = %d err=%v, want 1", len(matches), err)
	}
	if matches[0].Status != string(StatusCompleted) || matches[0].WinnerID != "bob" {
		t.Fatalf("finalized match = %+v", matches[0])
	}
}

func TestThreefoldRepetitionDrawsForBoth(t *testing.T) {
	r, gw := newTestRoom(t)
	joinSecond(t, r)

	shuffle := []struct{ user, mv string }{
		{"alice", "Nf3"}, {"bob", "Nf6"}, {"alice", "Ng1"}, {"bob", "Ng8"},
		{"alice", "Nf3"}, {"bob", "Nf6"}, {"alice", "Ng1"},
	}
	for _, m := range shuffle {
		if _, err := r.ApplyMove(m.user, m.mv); err != nil {
			t.Fatalf("ApplyMove(%s %s): %v", m.user, m.mv, err)
		}
	}
	res, err := r.ApplyMove("bob", "Ng8")
	if err != nil {
		t.Fatalf("repeating move: %v", err)
	}
	if res.Terminal != rules.TerminalRepetition || res.Status != StatusDraw {
		t.Fatalf("result = %+v, want repetition/draw", res)
	}
	if res.WinnerID != "" {
		t.Fatalf("draw has winner %q", res.WinnerID)
	}

	r.Flush()
	ctx := context.Background()
	for _, user := range []string{"alice", "bob"} {
		p, err := gw.Profile(ctx, user)
		if err != nil || p.Draws != 1 || p.Wins != 0 || p.Losses != 0 {
			t.Fatalf("%s profile = %+v err=%v, want 1 draw", user, p, err)
		}
	}
}

func TestDisconnectLonePlayerDeletesMatch(t *testing.T) {
	r, gw := newTestRoom(t)

	res := r.Disconnect("conn-a")
	if res.Action != ActionDeleteRoom {
		t.Fatalf("action = %v, want delete", res.Action)
	}

	r.Flush()
	err := gw.AppendPlayer(context.Background(), r.DurableRef(), store.PlayerRecord{UserID: "x"})
	if err != store.ErrNotFound {
		t.Fatalf("AppendPlayer after delete err = %v, want ErrNotFound", err)
	}
}

func TestDisconnectMidGameForfeits(t *testing.T) {
	r, gw := newTestRoom(t)
	joinSecond(t, r)
	if _, err := r.ApplyMove("alice", "e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}

	res := r.Disconnect("conn-a")
	if res.Action != ActionForfeit {
		t.Fatalf("action = %v, want forfeit", res.Action)
	}
	if res.WinnerID != "bob" || res.WinnerSide != rules.SideBlack {
		t.Fatalf("forfeit winner = %s/%s, want bob/black", res.WinnerID, res.WinnerSide)
	}
	if res.Status != StatusAbandoned {
		t.Fatalf("status = %s, want abandoned", res.Status)
	}

	r.Flush()
	ctx := context.Background()
	winner, err := gw.Profile(ctx, "bob")
	if err != nil || winner.Wins != 1 {
		t.Fatalf("winner profile = %+v err=%v, want 1 win", winner, err)
	}
	loser, err := gw.Profile(ctx, "alice")
	if err != nil || loser.Losses != 1 {
		t.Fatalf("loser profile = %+v err=%v, want 1 loss", loser, err)
	}
}

func TestDisconnectAfterFinishIsNoOp(t *testing.T) {
	r, _ := newTestRoom(t)
	joinSecond(t, r)

	for _, m := range []struct{ user, mv string }{
		{"alice", "f3"}, {"bob", "e5"}, {"alice", "g4"}, {"bob", "Qh4"},
	} {
		if _, err := r.ApplyMove(m.user, m.mv); err != nil {
			t.Fatalf("ApplyMove(%s %s): %v", m.user, m.mv, err)
		}
	}
	res := r.Disconnect("conn-a")
	if res.Action != ActionNone {
		t.Fatalf("post-game disconnect action = %v, want none", res.Action)
	}
}
