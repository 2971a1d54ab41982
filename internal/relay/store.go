package relay

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention is how long a message stays in the store before it becomes
// eligible for eviction.
const DefaultRetention = 5 * time.Minute

// MessageStore is an append-only buffer of recently relayed messages. Entries
// keep their append order; eviction only drops entries at or past the cutoff.
type MessageStore struct {
	mu       sync.Mutex
	messages []ChatMessage
}

// NewMessageStore returns an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append adds msg to the end of the buffer.
func (s *MessageStore) Append(msg ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// Evict removes every message with a timestamp at or before now-window and
// returns how many were removed.
func (s *MessageStore) Evict(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]ChatMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.Timestamp.After(cutoff) {
			kept = append(kept, msg)
		}
	}

	removed := len(s.messages) - len(kept)
	if removed > 0 {
		s.messages = kept
	}
	return removed
}

// Len returns the number of buffered messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Snapshot returns a copy of the buffer in append order.
func (s *MessageStore) Snapshot() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.messages...)
}

// RunJanitor evicts on a fixed interval until ctx is done. onEvict, when not
// nil, receives the number of messages removed by each sweep.
func (s *MessageStore) RunJanitor(ctx context.Context, interval, window time.Duration, now func() time.Time, onEvict func(int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Evict(now(), window)
			if onEvict != nil {
				onEvict(removed)
			}
		}
	}
}
