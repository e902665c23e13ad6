package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"blindchat/domain/wire"
	"blindchat/errors"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxFrameSize = 64 << 10
)

// wsConn frames the protocol as one text message per frame.
type wsConn struct {
	raw *websocket.Conn

	wmu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func NewWebsocketConn(raw *websocket.Conn) wire.Conn {
	raw.SetReadLimit(wsMaxFrameSize)
	return &wsConn{raw: raw}
}

func (c *wsConn) Send(f wire.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.raw.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.raw.WriteMessage(websocket.TextMessage, []byte(wire.Encode(f))); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	return nil
}

func (c *wsConn) Receive() (wire.Frame, error) {
	for {
		msgType, data, err := c.raw.ReadMessage()
		if err != nil {
			return wire.Frame{}, fmt.Errorf("%w: %v", errors.ErrTransport, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return wire.Decode(string(data)), nil
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(wsWriteTimeout)
		_ = c.raw.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// WebsocketServer upgrades HTTP clients and hands them to the engine.
// Like the TCP server it runs as a supervised worker.
type WebsocketServer struct {
	log    *slog.Logger
	addr   string
	attach Attacher

	upgrader websocket.Upgrader

	mu  sync.Mutex
	lis net.Listener
}

func NewWebsocketServer(log *slog.Logger, addr string, attach Attacher) *WebsocketServer {
	return &WebsocketServer{
		log:    log,
		addr:   addr,
		attach: attach,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Anonymous chat, any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *WebsocketServer) handle(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.log.Debug("websocket client accepted", "remote", raw.RemoteAddr().String())
	s.attach.Attach(NewWebsocketConn(raw))
}

func (s *WebsocketServer) Run(ctx context.Context) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handle)
	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("websocket transport listening", "addr", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once Run has started listening, nil before.
func (s *WebsocketServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}
