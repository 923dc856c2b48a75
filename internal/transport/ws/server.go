package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sumeet57/chess-live-server/internal/obslog"
	"github.com/sumeet57/chess-live-server/internal/router"
	"github.com/sumeet57/chess-live-server/pkg/gamedto"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 32 * 1024
)

// Server accepts websocket clients and pumps their events through the router.
// One goroutine per connection; writes are serialized per connection so the
// router can broadcast from any goroutine.
type Server struct {
	router         *router.Router
	allowedOrigins []string

	httpSrv *http.Server
}

func NewServer(rt *router.Router, allowedOrigins []string) *Server {
	return &Server{router: rt, allowedOrigins: allowedOrigins}
}

// Handler returns the http handler accepting websocket upgrades at any path.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWS)
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	obslog.L().Info("ws_listen", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	} else {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	c := &wsConn{id: uuid.NewString(), conn: conn}
	s.router.Register(c)
	obslog.L().Info("ws_connect", zap.String("conn", c.id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go pingLoop(ctx, conn)
	defer func() {
		s.router.OnDisconnecting(context.Background(), c.id)
		s.router.Unregister(c.id)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		obslog.L().Info("ws_disconnect", zap.String("conn", c.id))
	}()

	for {
		var ev gamedto.Inbound
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			if ctx.Err() != nil {
				return
			}
			obslog.L().Debug("ws_read_error", zap.String("conn", c.id), zap.Error(err))
			return
		}
		s.router.Dispatch(ctx, c, ev)
	}
}

// pingLoop keeps idle connections alive until ctx is cancelled. A failed ping
// is left to the read loop to observe as a closed connection.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// wsConn adapts one websocket to the router's Conn. Send is safe for
// concurrent use; wsjson writes are guarded by writeMu.
type wsConn struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ctx context.Context, ev gamedto.Outbound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.conn, ev)
}
