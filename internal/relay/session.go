package relay

import (
	"sync"

	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/metrics"
)

// State is the lifecycle stage of a session.
type State int

const (
	// StateOpening is set while the welcome and join are being sent.
	StateOpening State = iota
	// StateOpen accepts inbound messages.
	StateOpen
	// StateClosed is terminal; messages are ignored.
	StateClosed
)

// String returns the lower-case stage name used in logs.
func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session drives one connection through Opening, Open and Closed.
type Session struct {
	relay    *Relay
	peer     Peer
	userName string
	log      logger.Logger

	// mu is held for reading across Message so Close waits for an
	// in-flight message before it announces the leave.
	mu    sync.RWMutex
	state State
}

// UserName returns the display name resolved when the session opened.
func (s *Session) UserName() string {
	return s.userName
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) open() {
	r := s.relay
	now := r.now()

	s.log.Info("Signed in to chat", "user", s.userName)

	r.presence.MarkOnline(s.userName)
	online := r.presence.OnlineCount()
	metrics.UsersOnline.Set(float64(online))

	r.topics.Send(s.peer, serverMessage(welcomeText(s.userName, online), now))
	r.topics.Subscribe(s.peer, ChatTopic)
	r.publish(serverMessage(joinText(s.userName), now), metrics.KindSystem)

	s.mu.Lock()
	s.state = StateOpen
	s.mu.Unlock()
}

// Message handles one inbound text frame. A "ping" is answered with a
// private "pong"; anything else is stored, echoed to the sender and
// published to the chat topic, so the sender receives it twice.
func (s *Session) Message(payload string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateOpen {
		s.log.Debug("Ignoring message on inactive session", "state", s.state.String())
		return
	}

	r := s.relay
	now := r.now()

	s.log.Trace("Message received", "user", s.userName, "payload", payload)

	if payload == pingText {
		r.topics.Send(s.peer, serverMessage(pongText, now))
		metrics.Pings.Inc()
		return
	}

	text, err := ParseInbound(payload)
	if err != nil {
		s.log.Warn("Dropping malformed message", "user", s.userName, "error", err.Error())
		metrics.RejectedInbound.WithLabelValues(metrics.ReasonMalformed).Inc()
		return
	}

	r.maybeEvict()

	msg := ChatMessage{UserName: s.userName, Text: text, Timestamp: now}
	r.store.Append(msg)
	metrics.StoredMessages.Set(float64(r.store.Len()))

	r.topics.Send(s.peer, msg)
	r.publish(msg, metrics.KindChat)
}

// Close runs the close transition once; later calls are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	r := s.relay
	s.log.Info("Signed out of chat", "user", s.userName)

	r.presence.MarkOffline(s.userName)
	metrics.UsersOnline.Set(float64(r.presence.OnlineCount()))

	r.publish(serverMessage(leaveText(s.userName), r.now()), metrics.KindSystem)
}

// Error records a transport error. Presence and subscriptions are only
// changed by Close.
func (s *Session) Error(err error) {
	s.log.Error("Connection error", err, "user", s.userName)
}
