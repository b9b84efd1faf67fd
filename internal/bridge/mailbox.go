package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// mailbox buffers raw reply payloads for one attachment in arrival
// order. Payloads posted while nobody waits are retained until taken
// or until the mailbox closes.
type mailbox struct {
	mu     sync.Mutex
	items  *queue.Queue
	nudge  chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{
		items: queue.New(),
		nudge: make(chan struct{}),
	}
}

// post appends one payload. Posts after close report false and the
// payload is dropped.
func (m *mailbox) post(payload []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.items.Add(payload)
	// Wake every waiter; each re-checks the queue under the lock.
	close(m.nudge)
	m.nudge = make(chan struct{})
	return true
}

// take removes the oldest payload, waiting up to timeout for one to
// arrive. A closed mailbox resolves ErrSessionClosed even when items
// remain queued.
func (m *mailbox) take(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrSessionClosed
		}
		if m.items.Length() > 0 {
			payload := m.items.Remove().([]byte)
			m.mu.Unlock()
			return payload, nil
		}
		nudge := m.nudge
		m.mu.Unlock()

		select {
		case <-nudge:
		case <-timer.C:
			return nil, fmt.Errorf("%w after %s", ErrReplyTimeout, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.nudge)
}

func (m *mailbox) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Length()
}
