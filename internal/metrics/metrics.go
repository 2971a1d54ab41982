// Package metrics declares the Prometheus collectors exported by the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	KindChat   = "chat"
	KindSystem = "system"

	ReasonMalformed   = "malformed"
	ReasonRateLimited = "rate_limited"
	ReasonBinary      = "binary"
	ReasonClosed      = "closed"
	ReasonBufferFull  = "buffer_full"
)

var (
	// ActiveConnections - open WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connections_active",
		Help: "Number of open WebSocket connections",
	})

	// UsersOnline - user names currently marked online.
	UsersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_users_online",
		Help: "Number of user names currently online",
	})

	// StoredMessages - messages held in the retention buffer.
	StoredMessages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_messages_stored",
		Help: "Number of messages inside the retention window",
	})

	// MessagesRelayed - messages published to a topic, by kind.
	MessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_relayed_total",
			Help: "Total number of messages published to a topic",
		},
		[]string{"topic", "kind"},
	)

	// Pings - liveness probes answered.
	Pings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_pings_total",
		Help: "Total number of ping probes answered with pong",
	})

	// DroppedDeliveries - per-subscriber deliveries that failed.
	DroppedDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_deliveries_dropped_total",
			Help: "Total number of deliveries dropped because the peer was closed or its buffer was full",
		},
		[]string{"reason"},
	)

	// EvictedMessages - messages removed by retention sweeps.
	EvictedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_evicted_total",
		Help: "Total number of messages evicted from the retention buffer",
	})

	// RejectedInbound - inbound frames dropped before reaching the relay.
	RejectedInbound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_inbound_rejected_total",
			Help: "Total number of inbound frames dropped, by reason",
		},
		[]string{"reason"},
	)
)
