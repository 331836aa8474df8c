package queue

import (
	"sync"
	"time"
)

// pollInterval is how often Receive rechecks for a message while waiting.
const pollInterval = 10 * time.Millisecond

// Memory is an in-process FIFO Queue backed by a slice. It is the default
// transport for tests and single-process demos, and needs no external
// service.
type Memory struct {
	mu    sync.Mutex
	items []Message
}

// NewMemory returns an empty Memory queue.
func NewMemory() *Memory {
	return &Memory{}
}

// Send appends msg to the queue.
func (m *Memory) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, msg)
	return nil
}

// Receive waits up to timeout for a message to arrive, then pops and
// returns the oldest one. It returns (nil, nil) on timeout.
func (m *Memory) Receive(timeout time.Duration) (*Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			msg := m.items[0]
			m.items = m.items[1:]
			m.mu.Unlock()
			return &msg, nil
		}
		m.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		time.Sleep(pollInterval)
	}
}

// Empty reports whether the queue currently holds no messages.
func (m *Memory) Empty() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) == 0, nil
}

var _ Queue = (*Memory)(nil)
