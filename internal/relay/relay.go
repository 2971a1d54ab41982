package relay

import (
	"context"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/metrics"
)

// DefaultEvictionChance is the probability that an inbound chat message
// triggers a retention sweep.
const DefaultEvictionChance = 0.01

// Relay owns the state shared by every connection. Create one per process
// and hand it to the transport.
type Relay struct {
	store    *MessageStore
	presence *PresenceRegistry
	topics   *Broadcaster
	log      logger.Logger

	retention      time.Duration
	evictionChance float64
	now            func() time.Time
	random         func() float64
}

// Option configures a Relay.
type Option func(*Relay)

// WithRetention sets the retention window. Non-positive values are ignored.
func WithRetention(window time.Duration) Option {
	return func(r *Relay) {
		if window > 0 {
			r.retention = window
		}
	}
}

// WithEvictionChance sets the per-message eviction probability. Values outside [0, 1] are ignored.
func WithEvictionChance(chance float64) Option {
	return func(r *Relay) {
		if chance >= 0 && chance <= 1 {
			r.evictionChance = chance
		}
	}
}

// WithClock replaces time.Now for message timestamps and eviction.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

// WithRandom replaces the source deciding whether a message triggers eviction.
// It must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(r *Relay) {
		r.random = random
	}
}

// New creates a Relay with an empty store, registry and broadcaster.
func New(log logger.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:          NewMessageStore(),
		presence:       NewPresenceRegistry(),
		topics:         NewBroadcaster(log),
		log:            log,
		retention:      DefaultRetention,
		evictionChance: DefaultEvictionChance,
		now:            time.Now,
		random:         rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the retention buffer.
func (r *Relay) Store() *MessageStore {
	return r.store
}

// Presence returns the presence registry.
func (r *Relay) Presence() *PresenceRegistry {
	return r.presence
}

// Broadcaster returns the topic fan-out.
func (r *Relay) Broadcaster() *Broadcaster {
	return r.topics
}

// Open runs the open transition for a new connection and returns its session.
func (r *Relay) Open(peer Peer, query url.Values) *Session {
	s := &Session{
		relay:    r,
		peer:     peer,
		userName: resolveUserName(query),
		log:      logger.NewPrefixedLogger(r.log, "ws "+peer.ID()),
		state:    StateOpening,
	}
	s.open()
	return s
}

// Disconnect detaches peer from fan-out. The transport calls it when the
// connection is gone, before closing the session.
func (r *Relay) Disconnect(peer Peer) {
	r.topics.Unsubscribe(peer)
}

// Evict runs a retention sweep now.
func (r *Relay) Evict() int {
	removed := r.store.Evict(r.now(), r.retention)
	r.recordEviction(removed)
	return removed
}

// RunJanitor sweeps the store every interval until ctx is done.
func (r *Relay) RunJanitor(ctx context.Context, interval time.Duration) {
	r.store.RunJanitor(ctx, interval, r.retention, r.now, r.recordEviction)
}

func (r *Relay) maybeEvict() {
	if r.evictionChance <= 0 || r.random() >= r.evictionChance {
		return
	}
	r.Evict()
}

func (r *Relay) recordEviction(removed int) {
	metrics.StoredMessages.Set(float64(r.store.Len()))
	if removed == 0 {
		return
	}
	metrics.EvictedMessages.Add(float64(removed))
	r.log.Debug("Evicted expired messages", "removed", removed, "retention", r.retention.String())
}

func (r *Relay) publish(msg ChatMessage, kind string) {
	r.topics.Publish(ChatTopic, msg)
	metrics.MessagesRelayed.WithLabelValues(ChatTopic, kind).Inc()
}

func resolveUserName(query url.Values) string {
	if name := query.Get(UserNameParam); name != "" {
		return name
	}
	return AnonymousName
}
