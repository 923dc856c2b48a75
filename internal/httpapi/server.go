package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sumeet57/chess-live-server/internal/obslog"
	"github.com/sumeet57/chess-live-server/internal/store"
)

const (
	defaultMatchLimit = 10
	maxMatchLimit     = 50
	queryTimeout      = 5 * time.Second
)

// Server exposes the read-only profile and match-history API:
//
//	GET /api/profile/{userID}
//	GET /api/matches/{userID}?limit=N
type Server struct {
	gateway store.Gateway
	srv     *fasthttp.Server
}

func NewServer(gateway store.Gateway) *Server {
	s := &Server{gateway: gateway}
	s.srv = &fasthttp.Server{
		Handler:      s.handle,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Name:         "chess-live-server",
	}
	return s
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe(addr)
	}()
	obslog.L().Info("httpapi_listen", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		return s.srv.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := string(ctx.Path())
	switch {
	case strings.HasPrefix(path, "/api/profile/"):
		s.handleProfile(ctx, strings.TrimPrefix(path, "/api/profile/"))
	case strings.HasPrefix(path, "/api/matches/"):
		s.handleMatches(ctx, strings.TrimPrefix(path, "/api/matches/"))
	case path == "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

type profileResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
}

func (s *Server) handleProfile(ctx *fasthttp.RequestCtx, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user id required")
		return
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	p, err := s.gateway.Profile(qctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, "User not found")
			return
		}
		obslog.L().Error("profile_query_error", zap.String("user_id", userID), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "server error")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, profileResponse{
		UserID: p.UserID,
		Name:   p.Name,
		Wins:   p.Wins,
		Losses: p.Losses,
		Draws:  p.Draws,
	})
}

type matchPlayer struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Side   string `json:"side"`
}

type matchResponse struct {
	RoomID    string        `json:"room_id"`
	FEN       string        `json:"fen"`
	MovesSAN  []string      `json:"moves_san"`
	Status    string        `json:"status"`
	WinnerID  string        `json:"winner_id,omitempty"`
	Players   []matchPlayer `json:"players"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}

func (s *Server) handleMatches(ctx *fasthttp.RequestCtx, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "user id required")
		return
	}
	limit := defaultMatchLimit
	if raw := string(ctx.QueryArgs().Peek("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxMatchLimit {
		limit = maxMatchLimit
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	matches, err := s.gateway.RecentMatches(qctx, userID, limit)
	if err != nil {
		obslog.L().Error("matches_query_error", zap.String("user_id", userID), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "server error")
		return
	}
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		resp := matchResponse{
			RoomID:    m.RoomID,
			FEN:       m.FEN,
			MovesSAN:  m.MovesSAN,
			Status:    m.Status,
			WinnerID:  m.WinnerID,
			StartedAt: m.StartedAt,
			EndedAt:   m.EndedAt,
		}
		for _, p := range m.Players {
			resp.Players = append(resp.Players, matchPlayer{UserID: p.UserID, Name: p.Name, Side: p.Side})
		}
		out = append(out, resp)
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "server error")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(b)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	b, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetBody(b)
}
