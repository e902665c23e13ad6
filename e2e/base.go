package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"blindchat/domain/event"
	"blindchat/domain/wire"
	"blindchat/repositories"
	"blindchat/runtime"
	"blindchat/runtime/workers"
	"blindchat/transport"
	"blindchat/transport/client"
)

type BaseSuite struct {
	suite.Suite
	Config Config

	addr string
	stop func()
}

// SetupSuite loads the environment configuration before running tests
// and boots an in process engine unless one is already provided.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.EngineAddr != "" {
		s.addr = s.Config.EngineAddr
		return
	}
	s.addr = s.bootEngine()
}

func (s *BaseSuite) TearDownSuite() {
	if s.stop != nil {
		s.stop()
	}
}

// bootEngine assembles a full engine on a free port, wired the way the
// main binary wires it. Stores live in temp directories.
func (s *BaseSuite) bootEngine() string {
	log := slog.New(slog.DiscardHandler)

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(s.T().TempDir()))
	s.Require().NoError(err)

	telemetryEvents := make(chan event.Event, 256)
	sup := workers.NewSupervisor(log, telemetryEvents, 50*time.Millisecond)
	registry := runtime.NewRegistry()
	sessions := repositories.NewSessionRepository(db, writer, log, nil, 1)

	orchestrator := runtime.NewOrchestrator(
		log, sup, registry, sessions, telemetryEvents, nil,
		runtime.PipelineConfig{
			BufferSize:       256,
			SinkTimeout:      time.Second,
			NotifyInterval:   250 * time.Millisecond,
			MetricInterval:   time.Hour,
			TimelineCapacity: 64,
			CharReplacement:  '*',
		},
	)

	tcpServer := transport.NewTCPServer(log, "127.0.0.1:0", orchestrator)
	sup.Add(tcpServer)

	ctx, cancel := context.WithCancel(context.Background())
	s.Require().NoError(orchestrator.Start(ctx))

	// The transport binds asynchronously, wait for the listener
	s.Require().Eventually(func() bool { return tcpServer.Addr() != nil },
		5*time.Second, 10*time.Millisecond, "TCP transport never came up")

	s.stop = func() {
		cancel()
		orchestrator.Stop()
		_ = writer.Close()
		_ = db.Close()
	}
	return tcpServer.Addr().String()
}

// ChatClient dials the engine and prints a colorized header for the
// connection step in logs. Received frames are pumped into a channel so
// read timeouts never lose a frame.
func (s *BaseSuite) ChatClient(t *testing.T, name string) *ChatSession {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, s.addr)
	s.Require().NoError(err, "Failed to connect to engine at "+s.addr)

	cs := &ChatSession{
		Client: c,
		t:      t,
		name:   name,
		debug:  s.Config.DebugFrames,
		frames: make(chan frameResult, 64),
	}
	return cs
}

type frameResult struct {
	frame wire.Frame
	err   error
}

// ChatSession wraps one client connection for scenario steps. Announce
// must be called before the frame pump starts reading.
type ChatSession struct {
	*client.Client
	t      *testing.T
	name   string
	debug  bool
	frames chan frameResult
}

// Announce registers the display name, then starts pumping frames.
func (c *ChatSession) Announce(name string) error {
	if err := c.Client.Announce(name); err != nil {
		return err
	}
	go c.pump()
	return nil
}

func (c *ChatSession) pump() {
	for {
		f, err := c.Client.Receive()
		if c.debug {
			c.t.Logf("%s <- kind=%s body=%q err=%v", c.name, f.Kind, f.Body, err)
		}
		c.frames <- frameResult{frame: f, err: err}
		if err != nil {
			return
		}
	}
}

func (c *ChatSession) Say(text string) error {
	if c.debug {
		c.t.Logf("%s -> %q", c.name, text)
	}
	return c.Client.Say(text)
}

// Next returns the next frame or times out.
func (c *ChatSession) Next(within time.Duration) (wire.Frame, error) {
	select {
	case r := <-c.frames:
		return r.frame, r.err
	case <-time.After(within):
		return wire.Frame{}, fmt.Errorf("%s: no frame within %v", c.name, within)
	}
}

// WaitFor reads frames until the wanted kind shows up. Queue reminders
// and leftover chat lines are skipped.
func (c *ChatSession) WaitFor(kind wire.Kind, within time.Duration) (wire.Frame, error) {
	deadline := time.Now().Add(within)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return wire.Frame{}, fmt.Errorf("%s: no %s frame within %v", c.name, kind, within)
		}
		f, err := c.Next(remaining)
		if err != nil {
			return wire.Frame{}, err
		}
		if f.Kind == kind {
			return f, nil
		}
	}
}

// Quiet reports whether no frame at all arrives for the given window.
func (c *ChatSession) Quiet(window time.Duration) bool {
	select {
	case r := <-c.frames:
		if c.debug {
			c.t.Logf("%s <- unexpected kind=%s body=%q err=%v",
				c.name, r.frame.Kind, r.frame.Body, r.err)
		}
		return false
	case <-time.After(window):
		return true
	}
}

// Dropped reports whether the server closed this connection.
func (c *ChatSession) Dropped(within time.Duration) bool {
	deadline := time.Now().Add(within)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if _, err := c.Next(remaining); err != nil {
			return true
		}
	}
}

const noHistoryReply = "No chat history available for this user."

// ReadHistoryReply collects the text lines answering a history request.
// One blank line ends a chat block, the scenarios archive a single chat.
func (c *ChatSession) ReadHistoryReply(within time.Duration) (string, error) {
	var lines []string
	deadline := time.Now().Add(within)
	for {
		f, err := c.Next(time.Until(deadline))
		if err != nil {
			return "", err
		}
		if f.Kind != wire.Text {
			continue
		}
		if f.Body == noHistoryReply {
			return f.Body, nil
		}
		if f.Body == "" {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, f.Body)
	}
}
