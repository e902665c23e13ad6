// Package client speaks the line protocol from the caller's side. It is
// shared by the terminal client and the end to end suite.
package client

import (
	"context"
	"fmt"
	"net"

	"blindchat/domain/wire"
	"blindchat/errors"
	"blindchat/transport"
)

type Client struct {
	conn wire.Conn
}

// Dial connects to a running engine over TCP.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", errors.ErrTransport, addr, err)
	}
	return &Client{conn: transport.NewTCPConn(raw)}, nil
}

// Announce sends the display name and waits for the verdict. A rejected
// name returns ErrInvalidUsername, the server then closes the connection.
func (c *Client) Announce(name string) error {
	if err := c.conn.Send(wire.UsernameFrame(name)); err != nil {
		return err
	}
	f, err := c.conn.Receive()
	if err != nil {
		return err
	}
	switch f.Kind {
	case wire.Connected:
		return nil
	case wire.InvalidUsername:
		return errors.ErrInvalidUsername
	}
	return fmt.Errorf("%w: unexpected reply %s to announce", errors.ErrProtocol, f.Kind)
}

// Say relays one line to the current partner.
func (c *Client) Say(text string) error {
	return c.conn.Send(wire.TextFrame(text))
}

// Help asks the server to echo the help marker back to this side only.
func (c *Client) Help() error {
	return c.conn.Send(wire.Frame{Kind: wire.Help})
}

// History asks for the caller's archived conversations. The reply arrives
// as plain text frames.
func (c *Client) History() error {
	return c.conn.Send(wire.Frame{Kind: wire.History})
}

// Leave announces a voluntary departure.
func (c *Client) Leave() error {
	return c.conn.Send(wire.Frame{Kind: wire.Disconnected})
}

// Receive blocks until the next frame arrives. Close unblocks it.
func (c *Client) Receive() (wire.Frame, error) {
	return c.conn.Receive()
}

func (c *Client) Close() error {
	return c.conn.Close()
}
