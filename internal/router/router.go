package router

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sumeet57/chess-live-server/internal/identity"
	"github.com/sumeet57/chess-live-server/internal/msgcat"
	"github.com/sumeet57/chess-live-server/internal/obslog"
	"github.com/sumeet57/chess-live-server/internal/room"
	"github.com/sumeet57/chess-live-server/internal/rules"
	"github.com/sumeet57/chess-live-server/internal/store"
	"github.com/sumeet57/chess-live-server/pkg/gamedto"
)

const createRetries = 3

// Conn is one client connection as the router sees it. The transport owns the
// socket; the router only addresses it by reference and pushes events.
type Conn interface {
	ID() string
	Send(ctx context.Context, ev gamedto.Outbound) error
}

// Router translates inbound connection events into registry/room calls and
// fans results back out: a direct ack or error to the initiating connection,
// broadcasts to every connection seated in the room.
type Router struct {
	registry  *room.Registry
	engine    rules.Engine
	gateway   store.Gateway
	directory identity.Directory
	catalog   *msgcat.Catalog
	maxRooms  int

	mu    sync.RWMutex
	conns map[string]Conn
}

func New(reg *room.Registry, engine rules.Engine, gateway store.Gateway, directory identity.Directory, catalog *msgcat.Catalog, maxRooms int) *Router {
	return &Router{
		registry:  reg,
		engine:    engine,
		gateway:   gateway,
		directory: directory,
		catalog:   catalog,
		maxRooms:  maxRooms,
		conns:     make(map[string]Conn),
	}
}

// Register makes a connection addressable for broadcasts.
func (rt *Router) Register(c Conn) {
	rt.mu.Lock()
	rt.conns[c.ID()] = c
	rt.mu.Unlock()
}

// Unregister drops a connection from the table. Called by the transport after
// OnDisconnecting has resolved the connection's rooms.
func (rt *Router) Unregister(connID string) {
	rt.mu.Lock()
	delete(rt.conns, connID)
	rt.mu.Unlock()
}

// Dispatch routes one inbound event. Unknown types are logged and dropped.
func (rt *Router) Dispatch(ctx context.Context, c Conn, ev gamedto.Inbound) {
	switch ev.Type {
	case gamedto.EventCreateRoom:
		rt.OnCreateRoom(ctx, c, ev.Seq, ev.UserID)
	case gamedto.EventJoinRoom:
		rt.OnJoinRoom(ctx, c, ev.Seq, ev.RoomID, ev.UserID)
	case gamedto.EventMakeMove:
		rt.OnMakeMove(ctx, c, ev.RoomID, ev.UserID, ev.Move)
	case gamedto.EventChat:
		rt.OnChatMessage(ctx, c, ev.RoomID, ev.Text)
	default:
		obslog.L().Warn("event_unknown", zap.String("type", ev.Type), zap.String("conn", c.ID()))
	}
}

// OnCreateRoom builds a waiting room with the caller seated as white. The
// durable match record must exist before the room counts as created.
func (rt *Router) OnCreateRoom(ctx context.Context, c Conn, seq int64, userID string) {
	id, err := rt.directory.Lookup(ctx, userID)
	if err != nil {
		rt.failAck(ctx, c, seq, gamedto.CodeIdentityNotFound, "User not found")
		return
	}
	if rt.maxRooms > 0 && rt.registry.Len() >= rt.maxRooms {
		rt.failAck(ctx, c, seq, gamedto.CodeInternal, "Server is at capacity")
		return
	}

	var rm *room.Room
	for attempt := 0; attempt < createRetries; attempt++ {
		roomID := room.NewID()
		creator := store.PlayerRecord{UserID: id.UserID, Name: id.DisplayName, Side: string(rules.SideWhite)}
		ref, cerr := rt.gateway.CreateMatch(ctx, roomID, creator, rules.Initial().FEN())
		if cerr != nil {
			obslog.L().Error("match_create_error", zap.String("room_id", roomID), zap.Error(cerr))
			rt.failAck(ctx, c, seq, gamedto.CodeInternal, "Server error on room creation")
			return
		}
		candidate := room.New(roomID, ref, room.Player{
			UserID:  id.UserID,
			Name:    id.DisplayName,
			ConnRef: c.ID(),
		}, rt.engine, rt.gateway)
		if ierr := rt.registry.Insert(candidate); ierr == nil {
			rm = candidate
			break
		}
		// Collision: orphaned record is removed and the id rolled again.
		candidate.Shutdown()
		if derr := rt.gateway.DeleteMatch(ctx, ref); derr != nil {
			obslog.L().Warn("match_delete_error", zap.String("room_id", roomID), zap.Error(derr))
		}
	}
	if rm == nil {
		rt.failAck(ctx, c, seq, gamedto.CodeInternal, "Server error on room creation")
		return
	}

	rt.registry.Bind(c.ID(), rm.ID())
	obslog.L().Info("room_create",
		zap.String("room_id", rm.ID()),
		zap.String("user_id", id.UserID),
		zap.String("conn", c.ID()),
	)

	rt.send(ctx, c, gamedto.NewOutbound(gamedto.EventAck, seq, gamedto.Ack{
		Success: true,
		RoomID:  rm.ID(),
		Side:    string(rules.SideWhite),
	}))
	rt.broadcastView(ctx, rm)
}

// OnJoinRoom seats the identity, or swaps its connection reference on a
// rejoin. A completed pairing additionally announces the match start.
func (rt *Router) OnJoinRoom(ctx context.Context, c Conn, seq int64, roomID, userID string) {
	rm, err := rt.registry.Get(roomID)
	if err != nil {
		rt.failAck(ctx, c, seq, gamedto.CodeRoomNotFound, "Room not found")
		return
	}
	id, err := rt.directory.Lookup(ctx, userID)
	if err != nil {
		rt.failAck(ctx, c, seq, gamedto.CodeIdentityNotFound, "User not found")
		return
	}

	res, err := rm.Join(id.UserID, id.DisplayName, c.ID())
	if err != nil {
		code, msg := mapError(err)
		rt.failAck(ctx, c, seq, code, msg)
		return
	}

	rt.registry.Bind(c.ID(), rm.ID())
	if res.Rejoined && res.PrevConnRef != "" && res.PrevConnRef != c.ID() {
		rt.registry.Unbind(res.PrevConnRef, rm.ID())
	}

	rt.send(ctx, c, gamedto.NewOutbound(gamedto.EventAck, seq, gamedto.Ack{
		Success: true,
		RoomID:  rm.ID(),
		Side:    string(res.Side),
	}))
	rt.broadcastView(ctx, rm)

	if res.Started {
		msg := rt.render("game_started", nil, "Game has two players and is starting!")
		rt.broadcast(ctx, rm.ConnRefs(), gamedto.NewOutbound(gamedto.EventGameStart, 0, gamedto.GameStarted{
			RoomID:  rm.ID(),
			Message: msg,
		}))
	}
}

// OnMakeMove applies a move; failures go only to the caller, accepted moves
// to the whole room. A terminal move also broadcasts the game-over summary
// and retires the room.
func (rt *Router) OnMakeMove(ctx context.Context, c Conn, roomID, userID, moveSpec string) {
	rm, err := rt.registry.Get(roomID)
	if err != nil {
		rt.sendMoveError(ctx, c, gamedto.CodeRoomNotFound, "Game not active")
		return
	}

	res, err := rm.ApplyMove(userID, moveSpec)
	if err != nil {
		code, msg := mapError(err)
		rt.sendMoveError(ctx, c, code, msg)
		return
	}

	refs := rm.ConnRefs()
	rt.broadcast(ctx, refs, gamedto.NewOutbound(gamedto.EventMoveMade, 0, gamedto.MoveMade{
		RoomID: rm.ID(),
		FEN:    res.FEN,
		LastMove: gamedto.LastMove{
			SAN:      res.Move.SAN,
			UCI:      res.Move.UCI,
			From:     res.Move.From,
			To:       res.Move.To,
			Captured: res.Move.Captured,
		},
		Check: res.Check,
		Turn:  string(res.Turn),
	}))

	if res.Terminal == rules.TerminalNone {
		return
	}

	msg := rt.gameOverMessage(res.Terminal, res.WinnerID, rm.View())
	rt.broadcast(ctx, refs, gamedto.NewOutbound(gamedto.EventGameOver, 0, gamedto.GameOver{
		RoomID:   rm.ID(),
		Message:  msg,
		WinnerID: res.WinnerID,
		Status:   string(res.Status),
	}))
	rt.retire(rm)
}

// OnChatMessage relays text to every other connection in the room. No
// persistence, no validation beyond room membership, never echoed back.
func (rt *Router) OnChatMessage(ctx context.Context, c Conn, roomID, text string) {
	rm, err := rt.registry.Get(roomID)
	if err != nil {
		return
	}
	refs := rm.ConnRefs()
	member := false
	for _, ref := range refs {
		if ref == c.ID() {
			member = true
			break
		}
	}
	if !member {
		return
	}
	ev := gamedto.NewOutbound(gamedto.EventChatRecv, 0, gamedto.ChatMessage{
		RoomID:    rm.ID(),
		SenderRef: c.ID(),
		Text:      text,
	})
	for _, ref := range refs {
		if ref == c.ID() {
			continue
		}
		rt.sendTo(ctx, ref, ev)
	}
}

// OnDisconnecting resolves every room the connection participates in. Called
// by the transport when the socket drops, before Unregister.
func (rt *Router) OnDisconnecting(ctx context.Context, connRef string) {
	for _, roomID := range rt.registry.RoomsFor(connRef) {
		rm, err := rt.registry.Get(roomID)
		if err != nil {
			rt.registry.Unbind(connRef, roomID)
			continue
		}
		res := rm.Disconnect(connRef)
		switch res.Action {
		case room.ActionDeleteRoom:
			rt.retire(rm)
		case room.ActionForfeit:
			msg := rt.render("game_over.abandoned", map[string]string{
				"WinnerSide": strings.ToUpper(string(res.WinnerSide)),
			}, strings.ToUpper(string(res.WinnerSide))+" wins by opponent abandonment!")
			ev := gamedto.NewOutbound(gamedto.EventGameOver, 0, gamedto.GameOver{
				RoomID:   rm.ID(),
				Message:  msg,
				WinnerID: res.WinnerID,
				Status:   string(res.Status),
			})
			for _, ref := range rm.ConnRefs() {
				if ref == connRef {
					continue
				}
				rt.sendTo(ctx, ref, ev)
			}
			rt.retire(rm)
		default:
			rt.registry.Unbind(connRef, roomID)
		}
	}
}

// retire removes a finished room from the registry and lets its persistence
// worker drain in the background.
func (rt *Router) retire(rm *room.Room) {
	rt.registry.Remove(rm.ID())
	go rm.Shutdown()
}

func (rt *Router) broadcastView(ctx context.Context, rm *room.Room) {
	v := rm.View()
	update := gamedto.GameUpdate{
		RoomID: v.RoomID,
		FEN:    v.FEN,
		Turn:   string(v.Turn),
	}
	for _, p := range v.Players {
		update.Players = append(update.Players, gamedto.PlayerView{
			ID:       p.UserID,
			Name:     p.Name,
			Side:     string(p.Side),
			Moves:    p.MoveCount,
			Captured: p.Captured,
		})
	}
	rt.broadcast(ctx, rm.ConnRefs(), gamedto.NewOutbound(gamedto.EventGameUpdate, 0, update))
}

func (rt *Router) gameOverMessage(terminal rules.Terminal, winnerID string, v room.View) string {
	if terminal == rules.TerminalCheckmate {
		side := ""
		for _, p := range v.Players {
			if p.UserID == winnerID {
				side = strings.ToUpper(string(p.Side))
				break
			}
		}
		return rt.render("game_over.checkmate", map[string]string{"WinnerSide": side}, side+" wins by checkmate!")
	}
	return rt.render("game_over.draw", nil, "Game Over: Draw!")
}

func (rt *Router) render(key string, data map[string]string, fallback string) string {
	if rt.catalog == nil {
		return fallback
	}
	out, err := rt.catalog.Render(key, data)
	if err != nil {
		obslog.L().Warn("msgcat_render_error", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return out
}

func (rt *Router) broadcast(ctx context.Context, connRefs []string, ev gamedto.Outbound) {
	for _, ref := range connRefs {
		rt.sendTo(ctx, ref, ev)
	}
}

func (rt *Router) sendTo(ctx context.Context, connRef string, ev gamedto.Outbound) {
	rt.mu.RLock()
	c := rt.conns[connRef]
	rt.mu.RUnlock()
	if c == nil {
		return
	}
	rt.send(ctx, c, ev)
}

func (rt *Router) send(ctx context.Context, c Conn, ev gamedto.Outbound) {
	if err := c.Send(ctx, ev); err != nil {
		obslog.L().Warn("send_error", zap.String("conn", c.ID()), zap.String("type", ev.Type), zap.Error(err))
	}
}

func (rt *Router) failAck(ctx context.Context, c Conn, seq int64, code, msg string) {
	rt.send(ctx, c, gamedto.NewOutbound(gamedto.EventAck, seq, gamedto.Ack{
		Success: false,
		Code:    code,
		Msg:     msg,
	}))
}

func (rt *Router) sendMoveError(ctx context.Context, c Conn, code, msg string) {
	rt.send(ctx, c, gamedto.NewOutbound(gamedto.EventMoveError, 0, gamedto.MoveError{Code: code, Msg: msg}))
}

func mapError(err error) (string, string) {
	switch {
	case errors.Is(err, room.ErrRoomFull):
		return gamedto.CodeRoomFull, "Room is full"
	case errors.Is(err, room.ErrNotAParticipant):
		return gamedto.CodeNotAParticipant, "Player not in game"
	case errors.Is(err, room.ErrNotYourTurn):
		return gamedto.CodeNotYourTurn, "Not your turn"
	case errors.Is(err, room.ErrGameOver):
		return gamedto.CodeRoomNotFound, "Game not active"
	case errors.Is(err, rules.ErrIllegalMove):
		return gamedto.CodeIllegalMove, "Invalid move"
	case errors.Is(err, room.ErrRoomNotFound):
		return gamedto.CodeRoomNotFound, "Room not found"
	default:
		return gamedto.CodeInternal, "Server error"
	}
}
