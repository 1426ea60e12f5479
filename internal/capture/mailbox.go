package capture

import "sync"

// mailbox is an unbounded FIFO feeding the session loop. Posting never
// blocks, so reader and encoder goroutines cannot stall the loop that
// waits on them.
type mailbox struct {
	mu     sync.Mutex
	queue  []any
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) post(msg any) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) pop() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, false
	}
	msg := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return msg, true
}

// take removes and returns, in order, every queued message that matches.
func (m *mailbox) take(match func(any) bool) []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	var taken []any
	kept := m.queue[:0]
	for _, msg := range m.queue {
		if match(msg) {
			taken = append(taken, msg)
			continue
		}
		kept = append(kept, msg)
	}
	clear(m.queue[len(kept):])
	m.queue = kept
	return taken
}
