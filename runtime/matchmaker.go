package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blindchat/contract"
	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/domain/wire"
	"blindchat/errors"
)

var _ contract.IMatchmaker = (*Matchmaker)(nil)

// Matchmaker owns the waiting queue and the active pairs. Every mutation of
// either structure happens under the same exclusive lock, so a handle can
// never be waiting and chatting at the same time, and a pair entry always
// exists in both directions.
type Matchmaker struct {
	log *slog.Logger

	mu    sync.Mutex
	queue []*domain.Handle
	pairs map[*domain.Handle]*domain.Session

	wake chan struct{}
	emit func(e event.DomainEvent)
}

func NewMatchmaker(log *slog.Logger) *Matchmaker {
	return &Matchmaker{
		log:   log,
		pairs: make(map[*domain.Handle]*domain.Session),
		wake:  make(chan struct{}, 1),
		emit:  func(event.DomainEvent) {},
	}
}

// SetEmitter routes the domain events produced by pairing and cleanup.
func (m *Matchmaker) SetEmitter(emit func(e event.DomainEvent)) {
	if emit != nil {
		m.emit = emit
	}
}

// WakeChan fires when the queue may hold a new pair. The pairing worker
// blocks on it instead of polling.
func (m *Matchmaker) WakeChan() <-chan struct{} {
	return m.wake
}

func (m *Matchmaker) wakeUp() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Enqueue appends a handle to the waiting queue and wakes the pairing
// worker. A handle already waiting gets ErrAlreadyQueued, one already
// chatting is left alone.
func (m *Matchmaker) Enqueue(h *domain.Handle) error {
	m.mu.Lock()
	if h.Cleaned() {
		m.mu.Unlock()
		return errors.ErrHandleClosed
	}
	if _, chatting := m.pairs[h]; chatting {
		m.mu.Unlock()
		return nil
	}
	for _, waiting := range m.queue {
		if waiting == h {
			m.mu.Unlock()
			return errors.ErrAlreadyQueued
		}
	}
	m.queue = append(m.queue, h)
	m.mu.Unlock()

	m.wakeUp()
	return nil
}

// TryPair pops the two oldest waiting handles into a fresh session.
// Returns nil when fewer than two handles are waiting. A handle matched
// with itself means the queue admitted a duplicate, the handle is pushed
// back and the violation reported.
func (m *Matchmaker) TryPair() (*domain.Session, error) {
	m.mu.Lock()
	if len(m.queue) < 2 {
		m.mu.Unlock()
		return nil, nil
	}
	first, second := m.queue[0], m.queue[1]
	m.queue = m.queue[2:]

	if first == second {
		m.queue = append([]*domain.Handle{first}, m.queue...)
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: handle %s matched with itself", errors.ErrInvariant, first.ID)
	}

	sess := domain.NewSession(first, second)
	m.pairs[first] = sess
	m.pairs[second] = sess
	m.mu.Unlock()

	m.emit(event.PairFormed{
		SessionID: sess.ID,
		User1:     first.Name,
		User2:     second.Name,
		At:        time.Now(),
	})
	return sess, nil
}

// SessionFor returns the active session of a handle, or nil.
func (m *Matchmaker) SessionFor(h *domain.Handle) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[h]
}

type cleanupItem struct {
	handle *domain.Handle
	cause  domain.DepartureCause
}

// Cleanup removes a handle from every engine structure, exactly once per
// handle. The work list replaces recursion: when notifying a survivor
// fails, the survivor becomes the next item instead of a nested call, so
// a chain of dead connections unwinds in constant stack space.
func (m *Matchmaker) Cleanup(h *domain.Handle, cause domain.DepartureCause) {
	work := []cleanupItem{{handle: h, cause: cause}}

	for len(work) > 0 {
		item := work[0]
		work = work[1:]

		partner, sess := m.detach(item.handle)

		if sess != nil {
			m.emit(event.SessionEnded{
				SessionID: sess.ID,
				User1:     sess.First.Name,
				User2:     sess.Second.Name,
				Cause:     item.cause,
				StartedAt: sess.StartedAt,
				At:        time.Now(),
				Messages:  sess.Messages(),
			})
		}

		if partner != nil {
			notice := wire.Frame{Kind: wire.PartnerLeft}
			if item.cause == domain.Dropped {
				notice = wire.Frame{Kind: wire.PartnerDisconnected}
			}
			if err := partner.Conn.Send(notice); err != nil {
				m.log.Warn("survivor unreachable during cleanup",
					"handle", partner.ID, "name", partner.Name, "error", err)
				work = append(work, cleanupItem{handle: partner, cause: domain.Dropped})
			} else if err := m.Enqueue(partner); err != nil {
				m.log.Warn("survivor could not rejoin the queue",
					"handle", partner.ID, "name", partner.Name, "error", err)
			} else {
				m.log.Debug("survivor rejoined the queue",
					"handle", partner.ID, "name", partner.Name)
			}
		}

		if sess != nil {
			sess.Close()
		}

		if conn := item.handle.Conn; conn != nil {
			_ = conn.Close()
		}
	}
}

// detach pops a handle from the queue and both directions of the pair map
// under one lock. Reports the popped partner and session when the handle
// was chatting. A handle already flagged as cleaned detaches to nothing.
func (m *Matchmaker) detach(h *domain.Handle) (*domain.Handle, *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.Cleaned() {
		return nil, nil
	}
	h.MarkCleaned()

	for i, waiting := range m.queue {
		if waiting == h {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}

	sess := m.pairs[h]
	var partner *domain.Handle
	if sess != nil {
		delete(m.pairs, h)
		partner = sess.Peer(h)
		if partner != nil {
			delete(m.pairs, partner)
		}
		sess.BeginEnding()
	}

	// Sweep for stale entries still pointing at this handle. One means the
	// dual membership invariant was broken, heal by requeueing the orphan.
	for other, s := range m.pairs {
		if s.First == h || s.Second == h {
			delete(m.pairs, other)
			m.queue = append(m.queue, other)
			m.log.Error(errors.ErrInvariant.Error(),
				"detail", "stale pair entry", "handle", other.ID, "name", other.Name)
		}
	}

	return partner, sess
}

// Waiting snapshots the queue in arrival order.
func (m *Matchmaker) Waiting() []*domain.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Handle, len(m.queue))
	copy(out, m.queue)
	return out
}

// Stats reports the queue length and the number of active pairs.
func (m *Matchmaker) Stats() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue), len(m.pairs) / 2
}
