package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStore_AppendKeepsOrder(t *testing.T) {
	s := NewMessageStore()
	for i, text := range []string{"a", "b", "c"} {
		s.Append(ChatMessage{UserName: "u", Text: text, Timestamp: testNow.Add(time.Duration(i) * time.Second)})
	}

	got := s.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
	assert.Equal(t, "c", got[2].Text)
}

func TestMessageStore_Evict(t *testing.T) {
	window := 5 * time.Minute

	tests := []struct {
		name     string
		age      time.Duration
		retained bool
	}{
		{name: "fresh message", age: 0, retained: true},
		{name: "just inside window", age: window - time.Nanosecond, retained: true},
		{name: "exactly at window", age: window, retained: false},
		{name: "past window", age: window + time.Second, retained: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMessageStore()
			s.Append(ChatMessage{UserName: "u", Text: "x", Timestamp: testNow.Add(-tt.age)})

			removed := s.Evict(testNow, window)

			if tt.retained {
				assert.Equal(t, 0, removed)
				assert.Equal(t, 1, s.Len())
			} else {
				assert.Equal(t, 1, removed)
				assert.Equal(t, 0, s.Len())
			}
		})
	}
}

func TestMessageStore_EvictKeepsNewerInteriorEntries(t *testing.T) {
	window := time.Minute
	s := NewMessageStore()

	// Out-of-order timestamps: expired entries may sit between fresh ones.
	s.Append(ChatMessage{Text: "old-1", Timestamp: testNow.Add(-2 * time.Minute)})
	s.Append(ChatMessage{Text: "new-1", Timestamp: testNow.Add(-10 * time.Second)})
	s.Append(ChatMessage{Text: "old-2", Timestamp: testNow.Add(-3 * time.Minute)})
	s.Append(ChatMessage{Text: "new-2", Timestamp: testNow})

	assert.Equal(t, 2, s.Evict(testNow, window))

	got := s.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "new-1", got[0].Text)
	assert.Equal(t, "new-2", got[1].Text)
}

func TestMessageStore_ConcurrentAppendAndEvict(t *testing.T) {
	s := NewMessageStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Append(ChatMessage{Text: "m", Timestamp: testNow})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.Evict(testNow, time.Minute)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
}

func TestMessageStore_RunJanitor(t *testing.T) {
	s := NewMessageStore()
	s.Append(ChatMessage{Text: "old", Timestamp: testNow.Add(-time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunJanitor(ctx, 5*time.Millisecond, time.Minute, func() time.Time { return testNow }, func(n int) {
			select {
			case swept <- n:
			default:
			}
		})
	}()

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("janitor did not sweep")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
	assert.Equal(t, 0, s.Len())
}

func TestMessageStore_RunJanitorDisabled(t *testing.T) {
	s := NewMessageStore()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunJanitor(context.Background(), 0, time.Minute, time.Now, nil)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor with zero interval should return immediately")
	}
}
