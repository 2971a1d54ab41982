package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/logger"
)

func TestBroadcaster_PublishOnlyReachesTopicSubscribers(t *testing.T) {
	b := NewBroadcaster(logger.NewDiscard())
	a, c, other := newFakePeer("a"), newFakePeer("c"), newFakePeer("other")

	b.Subscribe(a, ChatTopic)
	b.Subscribe(c, ChatTopic)
	b.Subscribe(other, "news")

	msg := ChatMessage{UserName: "alice", Text: "hi", Timestamp: testNow}
	delivered := b.Publish(ChatTopic, msg)

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []ChatMessage{msg}, a.messages(t))
	assert.Equal(t, []ChatMessage{msg}, c.messages(t))
	assert.Empty(t, other.messages(t))
}

func TestBroadcaster_SubscribeIsIdempotent(t *testing.T) {
	b := NewBroadcaster(logger.NewDiscard())
	a := newFakePeer("a")

	b.Subscribe(a, ChatTopic)
	b.Subscribe(a, ChatTopic)
	assert.Equal(t, 1, b.Subscribers(ChatTopic))

	b.Publish(ChatTopic, ChatMessage{Text: "once"})
	assert.Len(t, a.messages(t), 1)
}

func TestBroadcaster_FailingPeerDoesNotAffectOthers(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "closed peer", err: ErrPeerClosed},
		{name: "full buffer", err: ErrSendBufferFull},
		{name: "unexpected error", err: fmt.Errorf("write: %w", ErrPeerClosed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBroadcaster(logger.NewDiscard())
			bad, good := newFakePeer("bad"), newFakePeer("good")
			bad.fail(tt.err)

			b.Subscribe(bad, ChatTopic)
			b.Subscribe(good, ChatTopic)

			assert.Equal(t, 1, b.Publish(ChatTopic, ChatMessage{Text: "x"}))
			assert.Len(t, good.messages(t), 1)
			assert.False(t, b.Send(bad, ChatMessage{Text: "direct"}))
		})
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(logger.NewDiscard())
	a, c := newFakePeer("a"), newFakePeer("c")

	b.Subscribe(a, ChatTopic)
	b.Subscribe(a, "news")
	b.Subscribe(c, ChatTopic)

	b.Unsubscribe(a)

	assert.Equal(t, 1, b.Subscribers(ChatTopic))
	assert.Equal(t, 0, b.Subscribers("news"))

	b.Publish(ChatTopic, ChatMessage{Text: "after"})
	assert.Empty(t, a.messages(t))
	assert.Len(t, c.messages(t), 1)
}

func TestBroadcaster_PublishOrder(t *testing.T) {
	b := NewBroadcaster(logger.NewDiscard())
	a := newFakePeer("a")
	b.Subscribe(a, ChatTopic)

	for i := 0; i < 20; i++ {
		b.Publish(ChatTopic, ChatMessage{Text: fmt.Sprintf("m%d", i)})
	}

	got := a.messages(t)
	require.Len(t, got, 20)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Text)
	}
}

func TestBroadcaster_SendIsUnicast(t *testing.T) {
	b := NewBroadcaster(logger.NewDiscard())
	a, c := newFakePeer("a"), newFakePeer("c")
	b.Subscribe(a, ChatTopic)
	b.Subscribe(c, ChatTopic)

	assert.True(t, b.Send(a, ChatMessage{Text: "private"}))
	assert.Len(t, a.messages(t), 1)
	assert.Empty(t, c.messages(t))
}

func TestBroadcaster_ConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	b := NewBroadcaster(logger.NewDiscard())
	stable := newFakePeer("stable")
	b.Subscribe(stable, ChatTopic)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p := newFakePeer(fmt.Sprintf("peer-%d-%d", i, j))
				b.Subscribe(p, ChatTopic)
				b.Subscribers(ChatTopic)
				b.Unsubscribe(p)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(ChatTopic, ChatMessage{UserName: "alice", Text: "hi", Timestamp: testNow})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, b.Subscribers(ChatTopic))
	assert.Len(t, stable.messages(t), 8*50)
}
