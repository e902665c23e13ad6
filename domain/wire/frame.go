// Package wire defines the text protocol spoken with clients and the
// connection channel that carries it. Raw lines are decoded into tagged
// frames exactly once, at the transport boundary; the rest of the engine
// never inspects protocol tokens.
package wire

import "strings"

type Kind int

const (
	// Text is anything that matched no control token. Relayed verbatim.
	Text Kind = iota
	// Username carries the display name announced on connect.
	Username
	// Connected acknowledges a valid registration.
	Connected
	// InvalidUsername rejects the registration, the connection then closes.
	InvalidUsername
	// ChatFound tells both sides a session started.
	ChatFound
	// NoPartnerFound is sent periodically while waiting in the queue.
	NoPartnerFound
	// Help asks for the command list, echoed to the sender only.
	Help
	// Disconnected announces a voluntary departure.
	Disconnected
	// PartnerLeft tells the survivor the partner departed voluntarily.
	PartnerLeft
	// PartnerDisconnected tells the survivor the partner's transport dropped.
	PartnerDisconnected
	// History asks for the caller's archived conversations.
	History
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "TEXT"
	case Username:
		return "USERNAME"
	case Connected:
		return "CONNECTED"
	case InvalidUsername:
		return "INVALID_USERNAME"
	case ChatFound:
		return "CHAT_FOUND"
	case NoPartnerFound:
		return "NO_PARTNER_FOUND"
	case Help:
		return "HELP"
	case Disconnected:
		return "DISCONNECTED"
	case PartnerLeft:
		return "PARTNER_LEFT"
	case PartnerDisconnected:
		return "PARTNER_DISCONNECTED"
	case History:
		return "HISTORY"
	}
	return "UNKNOWN"
}

const usernamePrefix = "[USERNAME]"

var kindByToken = map[string]Kind{
	"[CONNECTED]":            Connected,
	"[INVALID_USERNAME]":     InvalidUsername,
	"[CHAT_FOUND]":           ChatFound,
	"[NO_PARTNER_FOUND]":     NoPartnerFound,
	"[HELP]":                 Help,
	"[DISCONNECTED]":         Disconnected,
	"[PARTNER_LEFT]":         PartnerLeft,
	"[PARTNER_DISCONNECTED]": PartnerDisconnected,
	"[HISTORY]":              History,
}

var tokenByKind = func() map[Kind]string {
	m := make(map[Kind]string, len(kindByToken))
	for token, kind := range kindByToken {
		m[kind] = token
	}
	return m
}()

// Frame is one decoded protocol unit. Body holds the display name for
// Username frames and the untouched line for Text frames.
type Frame struct {
	Kind Kind
	Body string
}

func TextFrame(body string) Frame {
	return Frame{Kind: Text, Body: body}
}

func UsernameFrame(name string) Frame {
	return Frame{Kind: Username, Body: name}
}

// Decode maps one raw line to its frame. Control tokens match exactly,
// a username announce matches by prefix, everything else is plain text.
// Unknown bracketed tokens deliberately fall through to text so peers can
// still talk about them.
func Decode(line string) Frame {
	if kind, ok := kindByToken[line]; ok {
		return Frame{Kind: kind}
	}
	if strings.HasPrefix(line, usernamePrefix) {
		return Frame{Kind: Username, Body: line[len(usernamePrefix):]}
	}
	return Frame{Kind: Text, Body: line}
}

// Encode renders a frame back to its single line form.
func Encode(f Frame) string {
	switch f.Kind {
	case Text:
		return f.Body
	case Username:
		return usernamePrefix + f.Body
	}
	return tokenByKind[f.Kind]
}

// Conn is the connection channel one handle exclusively owns. Close
// unblocks any pending Receive. Implementations must make Close safe to
// call more than once and from a goroutine other than the receiver's.
type Conn interface {
	Send(f Frame) error
	Receive() (Frame, error)
	Close() error
}
