// Package transport carries the wire protocol over real sockets. Each
// accepted connection is wrapped into a wire.Conn and handed to the engine,
// which owns it from then on.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"blindchat/domain/wire"
	"blindchat/errors"
)

// Attacher receives ownership of freshly accepted connection channels.
type Attacher interface {
	Attach(conn wire.Conn)
}

// tcpConn frames the protocol as newline terminated lines.
type tcpConn struct {
	raw net.Conn
	r   *bufio.Reader

	wmu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func NewTCPConn(raw net.Conn) wire.Conn {
	return &tcpConn{raw: raw, r: bufio.NewReader(raw)}
}

func (c *tcpConn) Send(f wire.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.raw.Write([]byte(wire.Encode(f) + "\n")); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	return nil
}

// Receive blocks until one full line arrives. Closing the connection from
// another goroutine unblocks it with a transport error.
func (c *tcpConn) Receive() (wire.Frame, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return wire.Frame{}, fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	return wire.Decode(strings.TrimRight(line, "\r\n")), nil
}

func (c *tcpConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// TCPServer accepts plain socket clients. It runs as a supervised worker:
// a nil return on context cancellation means terminated properly.
type TCPServer struct {
	log    *slog.Logger
	addr   string
	attach Attacher

	mu  sync.Mutex
	lis net.Listener
}

func NewTCPServer(log *slog.Logger, addr string, attach Attacher) *TCPServer {
	return &TCPServer{log: log, addr: addr, attach: attach}
}

func (s *TCPServer) Run(ctx context.Context) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	s.log.Info("tcp transport listening", "addr", lis.Addr().String())

	for {
		raw, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.log.Debug("tcp client accepted", "remote", raw.RemoteAddr().String())
		s.attach.Attach(NewTCPConn(raw))
	}
}

// Addr returns the bound address once Run has started listening, nil before.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}
