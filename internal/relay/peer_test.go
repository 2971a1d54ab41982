package relay

import (
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/logger"
)

type fakePeer struct {
	id string

	mu       sync.Mutex
	received [][]byte
	err      error
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string {
	return p.id
}

func (p *fakePeer) Deliver(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.received = append(p.received, payload)
	return nil
}

func (p *fakePeer) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakePeer) messages(t *testing.T) []ChatMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ChatMessage, 0, len(p.received))
	for _, raw := range p.received {
		var msg ChatMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		out = append(out, msg)
	}
	return out
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	p.received = nil
	p.mu.Unlock()
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRelay(opts ...Option) *Relay {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithRandom(func() float64 { return 0.5 }),
	}
	return New(logger.NewDiscard(), append(base, opts...)...)
}

func userQuery(name string) url.Values {
	return url.Values{UserNameParam: []string{name}}
}
