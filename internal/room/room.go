package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sumeet57/chess-live-server/internal/obslog"
	"github.com/sumeet57/chess-live-server/internal/rules"
	"github.com/sumeet57/chess-live-server/internal/store"
)

const (
	persistQueueSize = 64
	persistTimeout   = 5 * time.Second
)

// Room is one match's isolated state machine. Every public method takes the
// room mutex, so operations on the same room never interleave; rooms are
// independent units of concurrency.
//
// Durable writes are queued to a single background worker per room: they stay
// ordered relative to each other but never stall move processing. The
// in-memory state is authoritative; the durable record is best-effort.
type Room struct {
	mu sync.Mutex

	id         string
	durableRef string
	engine     rules.Engine
	gateway    store.Gateway

	position rules.Position
	history  []string // SAN, append-only
	players  []*Player
	status   Status
	winnerID string

	persistMu     sync.Mutex
	persistCh     chan persistOp
	persistClosed bool
	persistDone   chan struct{}
}

type persistOp struct {
	event string
	fn    func(context.Context) error
	done  chan struct{} // flush marker when fn is nil
}

// New seats the creator (always white, as the first player) and starts the
// room in waiting state. The durable match record must already exist; its
// handle is carried for all later incremental writes.
func New(id, durableRef string, creator Player, engine rules.Engine, gateway store.Gateway) *Room {
	creator.Side = rules.SideWhite
	r := &Room{
		id:          id,
		durableRef:  durableRef,
		engine:      engine,
		gateway:     gateway,
		position:    rules.Initial(),
		players:     []*Player{&creator},
		status:      StatusWaiting,
		persistCh:   make(chan persistOp, persistQueueSize),
		persistDone: make(chan struct{}),
	}
	go r.persistLoop()
	return r
}

func (r *Room) ID() string         { return r.id }
func (r *Room) DurableRef() string { return r.durableRef }

// Join seats an identity, or replaces its connection reference when the
// identity already holds a side (the reconnection path).
func (r *Room) Join(userID, name, connRef string) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.playerByUser(userID); p != nil {
		prev := p.ConnRef
		p.ConnRef = connRef
		obslog.L().Info("room_rejoin",
			zap.String("room_id", r.id),
			zap.String("user_id", userID),
			zap.String("side", string(p.Side)),
		)
		return JoinResult{Side: p.Side, Rejoined: true, PrevConnRef: prev}, nil
	}

	if len(r.players) >= 2 {
		return JoinResult{}, ErrRoomFull
	}
	if r.status.Terminal() {
		return JoinResult{}, ErrGameOver
	}

	side := r.players[0].Side.Opposite()
	p := &Player{UserID: userID, Name: name, Side: side, ConnRef: connRef}
	r.players = append(r.players, p)
	r.status = StatusInProgress

	record := store.PlayerRecord{UserID: p.UserID, Name: p.Name, Side: string(p.Side)}
	r.enqueuePersist("append_player", func(ctx context.Context) error {
		return r.gateway.AppendPlayer(ctx, r.durableRef, record)
	})

	obslog.L().Info("room_join",
		zap.String("room_id", r.id),
		zap.String("user_id", userID),
		zap.String("side", string(side)),
	)
	return JoinResult{Side: side, Started: true}, nil
}

// ApplyMove validates turn order, delegates legality to the rules engine and,
// on acceptance, advances the authoritative position. Rejected moves leave
// position and history untouched.
func (r *Room) ApplyMove(userID, moveSpec string) (MoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.Terminal() {
		return MoveResult{}, ErrGameOver
	}
	p := r.playerByUser(userID)
	if p == nil {
		return MoveResult{}, ErrNotAParticipant
	}
	if r.position.Turn() != p.Side {
		return MoveResult{}, ErrNotYourTurn
	}

	next, mv, err := r.engine.Apply(r.position, moveSpec)
	if err != nil {
		return MoveResult{}, err
	}

	r.position = next
	r.history = append(r.history, mv.SAN)
	p.MoveCount++
	if mv.Captured != "" {
		p.Captured = append(p.Captured, mv.Captured)
	}

	record := store.MoveRecord{
		UserID:    p.UserID,
		MoveCount: p.MoveCount,
		FEN:       next.FEN(),
		SAN:       mv.SAN,
		Captured:  mv.Captured,
	}
	r.enqueuePersist("record_move", func(ctx context.Context) error {
		return r.gateway.RecordMove(ctx, r.durableRef, record)
	})

	result := MoveResult{
		FEN:   next.FEN(),
		Move:  mv,
		Check: mv.Check,
		Turn:  next.Turn(),
	}

	if terminal := r.engine.TerminalStatus(next); terminal != rules.TerminalNone {
		if terminal.IsDraw() {
			r.status = StatusDraw
		} else {
			r.status = StatusCompleted
			r.winnerID = p.UserID
		}
		r.finalizeLocked()
		result.Terminal = terminal
		obslog.L().Info("room_terminal",
			zap.String("room_id", r.id),
			zap.String("terminal", string(terminal)),
			zap.String("winner_id", r.winnerID),
		)
	}

	result.Status = r.status
	result.WinnerID = r.winnerID
	return result, nil
}

// Disconnect resolves a dropped connection. A room that only ever had one
// player is deleted outright (the match never really started); a drop in a
// live two-player game is scored as a forfeit to the remaining player.
func (r *Room) Disconnect(connRef string) DisconnectResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) == 1 {
		r.status = StatusAbandoned
		r.enqueuePersist("delete_match", func(ctx context.Context) error {
			return r.gateway.DeleteMatch(ctx, r.durableRef)
		})
		obslog.L().Info("room_delete", zap.String("room_id", r.id), zap.String("conn_ref", connRef))
		return DisconnectResult{Action: ActionDeleteRoom, Status: r.status}
	}

	dropped := r.playerByConn(connRef)
	if dropped == nil || r.status.Terminal() {
		return DisconnectResult{Action: ActionNone, Status: r.status}
	}

	winner := r.otherPlayer(dropped.UserID)
	r.status = StatusAbandoned
	r.winnerID = winner.UserID
	r.finalizeLocked()

	obslog.L().Info("room_forfeit",
		zap.String("room_id", r.id),
		zap.String("dropped_user", dropped.UserID),
		zap.String("winner_id", winner.UserID),
	)
	return DisconnectResult{
		Action:     ActionForfeit,
		WinnerID:   winner.UserID,
		WinnerSide: winner.Side,
		Status:     r.status,
	}
}

// View snapshots the room's public state for broadcast.
func (r *Room) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := View{
		RoomID: r.id,
		FEN:    r.position.FEN(),
		Turn:   r.position.Turn(),
		Status: r.status,
	}
	for _, p := range r.players {
		v.Players = append(v.Players, PlayerView{
			UserID:    p.UserID,
			Name:      p.Name,
			Side:      p.Side,
			ConnRef:   p.ConnRef,
			MoveCount: p.MoveCount,
			Captured:  append([]string(nil), p.Captured...),
		})
	}
	return v
}

// History returns the applied move list in SAN.
func (r *Room) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// ConnRefs returns the live connection references of all seated players.
func (r *Room) ConnRefs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := make([]string, 0, len(r.players))
	for _, p := range r.players {
		if p.ConnRef != "" {
			refs = append(refs, p.ConnRef)
		}
	}
	return refs
}

// finalizeLocked performs the terminal side effects: stats increments for
// both players and the final stamp on the durable record. Caller holds r.mu.
func (r *Room) finalizeLocked() {
	status := string(r.status)
	winnerID := r.winnerID
	endedAt := time.Now()

	if r.status == StatusDraw {
		for _, p := range r.players {
			userID := p.UserID
			r.enqueuePersist("increment_stats", func(ctx context.Context) error {
				return r.gateway.IncrementStats(ctx, userID, store.StatsDelta{Draws: 1})
			})
		}
	} else if winnerID != "" {
		loser := r.otherPlayer(winnerID)
		r.enqueuePersist("increment_stats", func(ctx context.Context) error {
			return r.gateway.IncrementStats(ctx, winnerID, store.StatsDelta{Wins: 1})
		})
		if loser != nil {
			loserID := loser.UserID
			r.enqueuePersist("increment_stats", func(ctx context.Context) error {
				return r.gateway.IncrementStats(ctx, loserID, store.StatsDelta{Losses: 1})
			})
		}
	}
	r.enqueuePersist("finalize_match", func(ctx context.Context) error {
		return r.gateway.FinalizeMatch(ctx, r.durableRef, status, winnerID, endedAt)
	})
}

func (r *Room) playerByUser(userID string) *Player {
	for _, p := range r.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) playerByConn(connRef string) *Player {
	for _, p := range r.players {
		if p.ConnRef == connRef {
			return p
		}
	}
	return nil
}

func (r *Room) otherPlayer(userID string) *Player {
	for _, p := range r.players {
		if p.UserID != userID {
			return p
		}
	}
	return nil
}

// enqueuePersist hands a durable write to the room's background worker. The
// queue never blocks gameplay: when it is full the write is dropped and
// logged, per the best-effort persistence contract.
func (r *Room) enqueuePersist(event string, fn func(context.Context) error) {
	if r.gateway == nil {
		return
	}
	r.persistMu.Lock()
	defer r.persistMu.Unlock()
	if r.persistClosed {
		return
	}
	select {
	case r.persistCh <- persistOp{event: event, fn: fn}:
	default:
		obslog.L().Warn("persist_drop", zap.String("room_id", r.id), zap.String("event", event))
	}
}

func (r *Room) persistLoop() {
	defer close(r.persistDone)
	for op := range r.persistCh {
		if op.fn == nil {
			if op.done != nil {
				close(op.done)
			}
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := op.fn(ctx); err != nil {
			obslog.L().Warn("persist_error",
				zap.String("room_id", r.id),
				zap.String("event", op.event),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Flush waits until every durable write queued so far has been attempted.
func (r *Room) Flush() {
	r.persistMu.Lock()
	if r.persistClosed {
		r.persistMu.Unlock()
		return
	}
	done := make(chan struct{})
	r.persistCh <- persistOp{done: done}
	r.persistMu.Unlock()
	<-done
}

// Shutdown stops the persistence worker after draining queued writes. Called
// once the room has been removed from the registry.
func (r *Room) Shutdown() {
	r.persistMu.Lock()
	if !r.persistClosed {
		r.persistClosed = true
		close(r.persistCh)
	}
	r.persistMu.Unlock()
	<-r.persistDone
}
