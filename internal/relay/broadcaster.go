package relay

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/metrics"
)

var (
	// ErrPeerClosed is returned by Peer.Deliver after the connection is gone.
	ErrPeerClosed = errors.New("peer closed")
	// ErrSendBufferFull is returned by Peer.Deliver when the outbound queue
	// cannot take another message without blocking.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Peer is one connection as seen by the relay. Deliver must not block.
type Peer interface {
	ID() string
	Deliver(payload []byte) error
}

// Broadcaster fans messages out to the peers subscribed to a topic. It only
// references peers between Subscribe and Unsubscribe; the transport calls
// Unsubscribe when a connection closes.
type Broadcaster struct {
	mu     sync.Mutex
	topics map[string]map[string]Peer
	log    logger.Logger
}

// NewBroadcaster returns a broadcaster with no topics.
func NewBroadcaster(log logger.Logger) *Broadcaster {
	return &Broadcaster{
		topics: make(map[string]map[string]Peer),
		log:    log,
	}
}

// Subscribe registers peer for topic. Subscribing twice is a no-op.
func (b *Broadcaster) Subscribe(peer Peer, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.topics[topic]
	if !ok {
		members = make(map[string]Peer)
		b.topics[topic] = members
	}
	members[peer.ID()] = peer
}

// Unsubscribe removes peer from every topic.
func (b *Broadcaster) Unsubscribe(peer Peer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := peer.ID()
	for topic, members := range b.topics {
		delete(members, id)
		if len(members) == 0 {
			delete(b.topics, topic)
		}
	}
}

// Subscribers returns the number of peers subscribed to topic.
func (b *Broadcaster) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Publish delivers msg to every peer subscribed to topic and returns the
// number of successful deliveries. The lock is held for the whole fan-out so
// every subscriber observes a topic's messages in publish order.
func (b *Broadcaster) Publish(topic string, msg ChatMessage) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("Failed to encode message", err, "topic", topic)
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, peer := range b.topics[topic] {
		if b.deliver(peer, payload) {
			delivered++
		}
	}

	b.log.Trace("Published message", "topic", topic, "subscribers", len(b.topics[topic]), "delivered", delivered)
	return delivered
}

// Send delivers msg to a single peer.
func (b *Broadcaster) Send(peer Peer, msg ChatMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("Failed to encode message", err, "peer", peer.ID())
		return false
	}
	return b.deliver(peer, payload)
}

func (b *Broadcaster) deliver(peer Peer, payload []byte) bool {
	err := peer.Deliver(payload)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSendBufferFull):
		metrics.DroppedDeliveries.WithLabelValues(metrics.ReasonBufferFull).Inc()
	default:
		metrics.DroppedDeliveries.WithLabelValues(metrics.ReasonClosed).Inc()
	}

	b.log.Debug("Dropped delivery", "peer", peer.ID(), "reason", err.Error())
	return false
}
